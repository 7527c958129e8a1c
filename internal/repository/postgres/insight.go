package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/intoglo/shipment-pipeline/internal/analytics"
	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/service/insight"
)

// InsightRepo implements insight.Repository against PostgreSQL.
type InsightRepo struct{ db *sql.DB }

// NewInsightRepo creates a Postgres-backed insight repository.
func NewInsightRepo(db *sql.DB) *InsightRepo { return &InsightRepo{db: db} }

func (r *InsightRepo) ExistingActiveToday(ctx context.Context, shipmentID string, now time.Time) (map[string]*domain.Insight, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shipment_id, type, severity, title, description, action_target,
		       action_type, action_urgency, action_text, source, confidence,
		       priority_boost, supporting_data, status, dedup_key, created_at
		FROM insights
		WHERE shipment_id = $1 AND status = 'active' AND created_at >= $2
	`, shipmentID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("existing active today: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.Insight)
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		out[in.DedupKey] = in
	}
	return out, rows.Err()
}

func scanInsight(rows *sql.Rows) (*domain.Insight, error) {
	var in domain.Insight
	var supportingDataJSON []byte
	if err := rows.Scan(
		&in.ID, &in.ShipmentID, &in.Type, &in.Severity, &in.Title, &in.Description,
		&in.Action.Target, &in.Action.Type, &in.Action.Urgency, &in.ActionText,
		&in.Source, &in.Confidence, &in.PriorityBoost, &supportingDataJSON,
		&in.Status, &in.DedupKey, &in.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(supportingDataJSON) > 0 {
		if err := json.Unmarshal(supportingDataJSON, &in.SupportingData); err != nil {
			return nil, fmt.Errorf("unmarshal supporting data: %w", err)
		}
	}
	return &in, nil
}

func (r *InsightRepo) SaveInsights(ctx context.Context, shipmentID string, insights []*domain.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save insights: %w", err)
	}
	defer tx.Rollback()

	for _, in := range insights {
		if in.ID == "" {
			in.ID = uuid.New().String()
		}
		supportingDataJSON, err := json.Marshal(in.SupportingData)
		if err != nil {
			return fmt.Errorf("marshal supporting data: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO insights
				(id, shipment_id, type, severity, title, description, action_target,
				 action_type, action_urgency, action_text, source, confidence,
				 priority_boost, supporting_data, status, dedup_key, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			ON CONFLICT (dedup_key, shipment_id) WHERE status = 'active' DO UPDATE SET
				confidence = EXCLUDED.confidence,
				priority_boost = EXCLUDED.priority_boost,
				supporting_data = EXCLUDED.supporting_data
		`, in.ID, shipmentID, in.Type, in.Severity, in.Title, in.Description,
			in.Action.Target, in.Action.Type, in.Action.Urgency, in.ActionText,
			in.Source, in.Confidence, in.PriorityBoost, supportingDataJSON,
			in.Status, in.DedupKey, timeOrNow(in.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert insight %s: %w", in.DedupKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save insights: %w", err)
	}
	return nil
}

// ContextGatherer implements insight.ContextSource, assembling a shipment's
// full context from Postgres plus the Snowflake analytics collector.
type ContextGatherer struct {
	db         *sql.DB
	historical *analytics.Collector
}

// NewContextGatherer builds a ContextGatherer. historical may be nil, in
// which case HistoricalAverages is left zero-valued.
func NewContextGatherer(db *sql.DB, historical *analytics.Collector) *ContextGatherer {
	return &ContextGatherer{db: db, historical: historical}
}

func (g *ContextGatherer) Gather(ctx context.Context, shipmentID string) (*insight.Context, error) {
	row := g.db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, shipmentID)
	shipment, err := scanShipment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, insight.ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gather: load shipment: %w", err)
	}

	documents, err := g.documents(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	stakeholders, err := g.stakeholders(ctx, shipment)
	if err != nil {
		return nil, err
	}
	related, err := g.relatedShipments(ctx, shipment)
	if err != nil {
		return nil, err
	}
	communications, err := g.communications(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	notifications, err := g.notifications(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	var historical insight.HistoricalAverages
	if g.historical != nil {
		g.historical.Track(shipment.ShipperName, shipment.CarrierCode, shipment.PortOfLoadingCode, shipment.PortOfDischargeCode)
		if avg, ok := g.historical.Get(shipment.ShipperName, shipment.CarrierCode, shipment.PortOfLoadingCode, shipment.PortOfDischargeCode); ok {
			historical = insight.HistoricalAverages{
				ShipperAvgSIDelayHours: avg.Shipper.AvgSIDelayHours,
				ShipperIsHighTier:      avg.Shipper.IsHighTier,
				CarrierRolloverRatePct: avg.Carrier.RolloverRatePct,
				RouteAvgDelayDays:      avg.Route.AvgDelayDays,
			}
		}
	}

	return &insight.Context{
		Shipment:         shipment,
		Documents:        documents,
		Stakeholders:     stakeholders,
		RelatedShipments: related,
		Communications:   communications,
		Notifications:    notifications,
		Historical:       historical,
		Now:              time.Now().UTC(),
	}, nil
}

func (g *ContextGatherer) documents(ctx context.Context, shipmentID string) ([]*domain.ShipmentDocumentLink, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM shipment_document_links WHERE shipment_id = $1 ORDER BY created_at ASC`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("gather: documents: %w", err)
	}
	defer rows.Close()

	var out []*domain.ShipmentDocumentLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("gather: scan document link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (g *ContextGatherer) stakeholders(ctx context.Context, shipment *domain.Shipment) (map[string]insight.StakeholderStats, error) {
	out := make(map[string]insight.StakeholderStats)
	roles := []struct {
		role string
		name string
	}{
		{"shipper", shipment.ShipperName},
		{"consignee", shipment.ConsigneeName},
	}
	if shipment.CarrierCode != "" {
		roles = append(roles, struct{ role, name string }{"carrier", shipment.CarrierCode})
	}

	for _, r := range roles {
		if r.name == "" {
			continue
		}
		var stats insight.StakeholderStats
		var lastRespondedAt sql.NullTime
		err := g.db.QueryRowContext(ctx, `
			SELECT category, last_responded_at, is_high_tier, avg_response_hours
			FROM stakeholder_stats WHERE name = $1
		`, r.name).Scan(&stats.Category, &lastRespondedAt, &stats.IsHighTier, &stats.AvgResponseHours)
		if err == sql.ErrNoRows {
			stats = insight.StakeholderStats{Name: r.name}
		} else if err != nil {
			return nil, fmt.Errorf("gather: stakeholder stats for %s: %w", r.role, err)
		}
		stats.Name = r.name
		if lastRespondedAt.Valid {
			stats.LastRespondedAt = lastRespondedAt.Time
		}
		out[r.role] = stats
	}
	return out, nil
}

func (g *ContextGatherer) relatedShipments(ctx context.Context, shipment *domain.Shipment) ([]insight.RelatedShipment, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, booking_number,
			CASE
				WHEN shipper_name = $2 THEN 'same_shipper'
				WHEN consignee_name = $3 THEN 'same_consignee'
				ELSE 'same_week_arrival'
			END AS relation
		FROM shipments
		WHERE id != $1
		  AND status NOT IN ('delivered', 'cancelled')
		  AND (
		      (shipper_name = $2 AND $2 != '')
		      OR (consignee_name = $3 AND $3 != '')
		      OR (eta IS NOT NULL AND $4::timestamptz IS NOT NULL AND date_trunc('week', eta) = date_trunc('week', $4::timestamptz))
		  )
		LIMIT 10
	`, shipment.ID, shipment.ShipperName, shipment.ConsigneeName, shipment.ETA)
	if err != nil {
		return nil, fmt.Errorf("gather: related shipments: %w", err)
	}
	defer rows.Close()

	var out []insight.RelatedShipment
	for rows.Next() {
		var rs insight.RelatedShipment
		if err := rows.Scan(&rs.ShipmentID, &rs.BookingNumber, &rs.Relation); err != nil {
			return nil, fmt.Errorf("gather: scan related shipment: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (g *ContextGatherer) communications(ctx context.Context, shipmentID string) ([]insight.Communication, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT e.id, COALESCE(dc.sender_category, 'unknown'), COALESCE(dc.document_type, 'unknown'),
		       COALESCE(dc.direction, 'inbound'), e.received_at, COALESCE(dc.sentiment, 'neutral')
		FROM shipment_document_links l
		JOIN emails e ON e.id = l.email_id
		LEFT JOIN document_classifications dc ON dc.email_id = e.id
		WHERE l.shipment_id = $1
		ORDER BY e.received_at DESC
		LIMIT 50
	`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("gather: communications: %w", err)
	}
	defer rows.Close()

	var out []insight.Communication
	for rows.Next() {
		var c insight.Communication
		if err := rows.Scan(&c.EmailID, &c.SenderCategory, &c.DocumentType, &c.Direction, &c.ReceivedAt, &c.Sentiment); err != nil {
			return nil, fmt.Errorf("gather: scan communication: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (g *ContextGatherer) notifications(ctx context.Context, shipmentID string) ([]insight.Notification, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT kind, sent_at FROM insight_notifications WHERE shipment_id = $1
	`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("gather: notifications: %w", err)
	}
	defer rows.Close()

	var out []insight.Notification
	for rows.Next() {
		var n insight.Notification
		if err := rows.Scan(&n.Kind, &n.SentAt); err != nil {
			return nil, fmt.Errorf("gather: scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
