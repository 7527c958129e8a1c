package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/service/workflow"
)

// WorkflowRepo implements workflow.Repository against PostgreSQL.
type WorkflowRepo struct{ db *sql.DB }

// NewWorkflowRepo creates a Postgres-backed workflow repository.
func NewWorkflowRepo(db *sql.DB) *WorkflowRepo { return &WorkflowRepo{db: db} }

func (r *WorkflowRepo) GetShipment(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, shipmentID)
	s, err := scanShipment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s, nil
}

// ApplyTransition writes the history row and the shipment state/phase
// update in one transaction: if the shipment update fails, the history
// insert rolls back with it.
func (r *WorkflowRepo) ApplyTransition(ctx context.Context, transition *domain.WorkflowTransition, newPhase domain.WorkflowPhase) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply transition: %w", err)
	}
	defer tx.Rollback()

	if transition.ID == "" {
		transition.ID = uuid.New().String()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO shipment_workflow_transitions
			(id, shipment_id, from_state, to_state, triggered_by, triggering_email_id, occurred_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, transition.ID, transition.ShipmentID, transition.FromState, transition.ToState,
		transition.TriggeredBy, nullString(transition.TriggeringEmailID), timeOrNow(transition.OccurredAt), transition.Notes)
	if err != nil {
		return fmt.Errorf("insert transition history: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE shipments SET workflow_state = $1, workflow_phase = $2, updated_at = $3
		WHERE id = $4
	`, transition.ToState, newPhase, timeOrNow(transition.OccurredAt), transition.ShipmentID)
	if err != nil {
		return fmt.Errorf("update shipment state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workflow.ErrShipmentNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply transition: %w", err)
	}
	return nil
}

// WorkflowConfigRepo implements workflow.ConfigSource against the
// operator-maintained state/transition tables. The caller wraps this in a
// TTL cache since the transition tables change rarely and are read on
// every workflow decision.
type WorkflowConfigRepo struct{ db *sql.DB }

// NewWorkflowConfigRepo creates a Postgres-backed workflow config source.
func NewWorkflowConfigRepo(db *sql.DB) *WorkflowConfigRepo { return &WorkflowConfigRepo{db: db} }

func (r *WorkflowConfigRepo) WorkflowStates(ctx context.Context) ([]domain.WorkflowState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, phase, state_order, is_optional, is_milestone, next_states, requires_document_types
		FROM shipment_workflow_states
		ORDER BY state_order ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list workflow states: %w", err)
	}
	defer rows.Close()

	var out []domain.WorkflowState
	for rows.Next() {
		var st domain.WorkflowState
		var nextStates, requiresTypes pq.StringArray
		if err := rows.Scan(&st.Code, &st.Phase, &st.StateOrder, &st.IsOptional, &st.IsMilestone, &nextStates, &requiresTypes); err != nil {
			return nil, fmt.Errorf("scan workflow state: %w", err)
		}
		for _, n := range nextStates {
			st.NextStates = append(st.NextStates, domain.WorkflowStateCode(n))
		}
		for _, t := range requiresTypes {
			st.RequiresDocumentTypes = append(st.RequiresDocumentTypes, domain.DocumentType(t))
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *WorkflowConfigRepo) DocumentTypeTransitions(ctx context.Context) (map[workflow.DocumentTransitionKey]domain.WorkflowStateCode, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT document_type, direction, target_state FROM shipment_document_type_transitions
	`)
	if err != nil {
		return nil, fmt.Errorf("list document type transitions: %w", err)
	}
	defer rows.Close()

	out := make(map[workflow.DocumentTransitionKey]domain.WorkflowStateCode)
	for rows.Next() {
		var docType, direction, target string
		if err := rows.Scan(&docType, &direction, &target); err != nil {
			return nil, fmt.Errorf("scan document type transition: %w", err)
		}
		out[workflow.DocumentTransitionKey{
			DocumentType: domain.DocumentType(docType),
			Direction:    domain.Direction(direction),
		}] = domain.WorkflowStateCode(target)
	}
	return out, rows.Err()
}

func (r *WorkflowConfigRepo) EmailTypeTransitions(ctx context.Context) (map[domain.EmailType]domain.WorkflowStateCode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT email_type, target_state FROM shipment_email_type_transitions`)
	if err != nil {
		return nil, fmt.Errorf("list email type transitions: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.EmailType]domain.WorkflowStateCode)
	for rows.Next() {
		var emailType, target string
		if err := rows.Scan(&emailType, &target); err != nil {
			return nil, fmt.Errorf("scan email type transition: %w", err)
		}
		out[domain.EmailType(emailType)] = domain.WorkflowStateCode(target)
	}
	return out, rows.Err()
}
