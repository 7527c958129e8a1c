package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// LinkingRepo implements linking.Repository against PostgreSQL.
type LinkingRepo struct{ db *sql.DB }

// NewLinkingRepo creates a Postgres-backed linking repository.
func NewLinkingRepo(db *sql.DB) *LinkingRepo { return &LinkingRepo{db: db} }

const shipmentColumns = `
	id, booking_number, COALESCE(mbl_number,''), COALESCE(hbl_number,''), COALESCE(carrier_code,''),
	COALESCE(vessel_name,''), COALESCE(voyage_number,''),
	COALESCE(port_of_loading,''), COALESCE(port_of_loading_code,''),
	COALESCE(port_of_discharge,''), COALESCE(port_of_discharge_code,''),
	etd, eta, si_cutoff, vgm_cutoff, cargo_cutoff, gate_cutoff, doc_cutoff,
	COALESCE(shipper_name,''), COALESCE(shipper_address,''),
	COALESCE(consignee_name,''), COALESCE(consignee_address,''),
	COALESCE(notify_party_name,''), COALESCE(notify_party_address,''),
	COALESCE(container_number_primary,''), container_numbers,
	workflow_state, workflow_phase, status,
	is_direct_carrier_confirmed, COALESCE(created_from_email_id,''), booking_revision_count,
	revisions, created_at, updated_at
`

func scanShipment(scan func(dest ...interface{}) error) (*domain.Shipment, error) {
	var s domain.Shipment
	var containerNumbers pq.StringArray
	var revisionsJSON []byte
	err := scan(
		&s.ID, &s.BookingNumber, &s.MBLNumber, &s.HBLNumber, &s.CarrierCode,
		&s.VesselName, &s.VoyageNumber,
		&s.PortOfLoading, &s.PortOfLoadingCode, &s.PortOfDischarge, &s.PortOfDischargeCode,
		&s.ETD, &s.ETA, &s.SICutoff, &s.VGMCutoff, &s.CargoCutoff, &s.GateCutoff, &s.DocCutoff,
		&s.ShipperName, &s.ShipperAddress, &s.ConsigneeName, &s.ConsigneeAddress,
		&s.NotifyPartyName, &s.NotifyPartyAddress,
		&s.ContainerNumberPrimary, &containerNumbers,
		&s.WorkflowState, &s.WorkflowPhase, &s.Status,
		&s.IsDirectCarrierConfirmed, &s.CreatedFromEmailID, &s.BookingRevisionCount,
		&revisionsJSON, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ContainerNumbers = []string(containerNumbers)
	if len(revisionsJSON) > 0 {
		if err := json.Unmarshal(revisionsJSON, &s.Revisions); err != nil {
			return nil, fmt.Errorf("unmarshal revisions: %w", err)
		}
	}
	return &s, nil
}

func (r *LinkingRepo) findShipmentBy(ctx context.Context, column, value string) (*domain.Shipment, error) {
	if value == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM shipments WHERE %s = $1`, shipmentColumns, column), value)
	s, err := scanShipment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find shipment by %s: %w", column, err)
	}
	return s, nil
}

func (r *LinkingRepo) FindShipmentByBookingNumber(ctx context.Context, bookingNumber string) (*domain.Shipment, error) {
	return r.findShipmentBy(ctx, "booking_number", bookingNumber)
}

func (r *LinkingRepo) FindShipmentByMBLNumber(ctx context.Context, mblNumber string) (*domain.Shipment, error) {
	return r.findShipmentBy(ctx, "mbl_number", mblNumber)
}

func (r *LinkingRepo) FindShipmentByHBLNumber(ctx context.Context, hblNumber string) (*domain.Shipment, error) {
	return r.findShipmentBy(ctx, "hbl_number", hblNumber)
}

func (r *LinkingRepo) FindShipmentByContainer(ctx context.Context, containerNumber string) (*domain.Shipment, error) {
	if containerNumber == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM shipments
		WHERE container_number_primary = $1 OR $1 = ANY(container_numbers)
	`, shipmentColumns), containerNumber)
	s, err := scanShipment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find shipment by container: %w", err)
	}
	return s, nil
}

// UpsertShipment creates a new shipment or updates the existing one keyed
// on BookingNumber, which is unique per shipment.
func (r *LinkingRepo) UpsertShipment(ctx context.Context, shipment *domain.Shipment) (*domain.Shipment, error) {
	if shipment.ID == "" {
		shipment.ID = uuid.New().String()
	}
	revisionsJSON, err := json.Marshal(shipment.Revisions)
	if err != nil {
		return nil, fmt.Errorf("marshal revisions: %w", err)
	}

	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO shipments
			(id, booking_number, mbl_number, hbl_number, carrier_code,
			 vessel_name, voyage_number,
			 port_of_loading, port_of_loading_code, port_of_discharge, port_of_discharge_code,
			 etd, eta, si_cutoff, vgm_cutoff, cargo_cutoff, gate_cutoff, doc_cutoff,
			 shipper_name, shipper_address, consignee_name, consignee_address,
			 notify_party_name, notify_party_address,
			 container_number_primary, container_numbers,
			 workflow_state, workflow_phase, status,
			 is_direct_carrier_confirmed, created_from_email_id, booking_revision_count,
			 revisions, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
			$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35)
		ON CONFLICT (booking_number) DO UPDATE SET
			mbl_number = EXCLUDED.mbl_number,
			hbl_number = EXCLUDED.hbl_number,
			carrier_code = EXCLUDED.carrier_code,
			vessel_name = EXCLUDED.vessel_name,
			voyage_number = EXCLUDED.voyage_number,
			port_of_loading = EXCLUDED.port_of_loading,
			port_of_loading_code = EXCLUDED.port_of_loading_code,
			port_of_discharge = EXCLUDED.port_of_discharge,
			port_of_discharge_code = EXCLUDED.port_of_discharge_code,
			etd = EXCLUDED.etd, eta = EXCLUDED.eta,
			si_cutoff = EXCLUDED.si_cutoff, vgm_cutoff = EXCLUDED.vgm_cutoff,
			cargo_cutoff = EXCLUDED.cargo_cutoff, gate_cutoff = EXCLUDED.gate_cutoff,
			doc_cutoff = EXCLUDED.doc_cutoff,
			shipper_name = EXCLUDED.shipper_name, shipper_address = EXCLUDED.shipper_address,
			consignee_name = EXCLUDED.consignee_name, consignee_address = EXCLUDED.consignee_address,
			notify_party_name = EXCLUDED.notify_party_name, notify_party_address = EXCLUDED.notify_party_address,
			container_number_primary = EXCLUDED.container_number_primary,
			container_numbers = EXCLUDED.container_numbers,
			workflow_state = EXCLUDED.workflow_state, workflow_phase = EXCLUDED.workflow_phase,
			status = EXCLUDED.status,
			is_direct_carrier_confirmed = EXCLUDED.is_direct_carrier_confirmed,
			booking_revision_count = EXCLUDED.booking_revision_count,
			revisions = EXCLUDED.revisions,
			updated_at = EXCLUDED.updated_at
		RETURNING `+shipmentColumns),
		shipment.ID, shipment.BookingNumber, nullString(shipment.MBLNumber), nullString(shipment.HBLNumber), nullString(shipment.CarrierCode),
		nullString(shipment.VesselName), nullString(shipment.VoyageNumber),
		nullString(shipment.PortOfLoading), nullString(shipment.PortOfLoadingCode),
		nullString(shipment.PortOfDischarge), nullString(shipment.PortOfDischargeCode),
		shipment.ETD, shipment.ETA, shipment.SICutoff, shipment.VGMCutoff, shipment.CargoCutoff, shipment.GateCutoff, shipment.DocCutoff,
		nullString(shipment.ShipperName), nullString(shipment.ShipperAddress),
		nullString(shipment.ConsigneeName), nullString(shipment.ConsigneeAddress),
		nullString(shipment.NotifyPartyName), nullString(shipment.NotifyPartyAddress),
		nullString(shipment.ContainerNumberPrimary), pq.Array(shipment.ContainerNumbers),
		shipment.WorkflowState, shipment.WorkflowPhase, shipment.Status,
		shipment.IsDirectCarrierConfirmed, nullString(shipment.CreatedFromEmailID), shipment.BookingRevisionCount,
		revisionsJSON, timeOrNow(shipment.CreatedAt), timeOrNow(shipment.UpdatedAt),
	)
	stored, err := scanShipment(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("upsert shipment: %w", err)
	}
	return stored, nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func (r *LinkingRepo) SaveLink(ctx context.Context, link *domain.ShipmentDocumentLink) error {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shipment_document_links
			(id, shipment_id, email_id, document_type, is_primary, link_method,
			 link_confidence, booking_number_extracted, created_at,
			 action_required, action_confidence, action_source)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			shipment_id = EXCLUDED.shipment_id,
			is_primary = EXCLUDED.is_primary,
			link_method = EXCLUDED.link_method,
			link_confidence = EXCLUDED.link_confidence
	`, link.ID, nullString(link.ShipmentID), link.EmailID, link.DocumentType, link.IsPrimary,
		link.LinkMethod, link.LinkConfidence, nullString(link.BookingNumberExtracted), timeOrNow(link.CreatedAt),
		link.ActionRequired, link.ActionConfidence, nullString(link.ActionSource))
	if err != nil {
		return fmt.Errorf("save link: %w", err)
	}
	return nil
}

// RecordAction implements linking.Repository.RecordAction, writing the
// action-determination verdict onto an already-saved link.
func (r *LinkingRepo) RecordAction(ctx context.Context, linkID string, hasAction bool, confidence int, source string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE shipment_document_links SET action_required = $1, action_confidence = $2, action_source = $3
		WHERE id = $4
	`, hasAction, confidence, nullString(source), linkID)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

func scanLink(rows *sql.Rows) (*domain.ShipmentDocumentLink, error) {
	var l domain.ShipmentDocumentLink
	var shipmentID, actionSource sql.NullString
	if err := rows.Scan(&l.ID, &shipmentID, &l.EmailID, &l.DocumentType, &l.IsPrimary,
		&l.LinkMethod, &l.LinkConfidence, &l.BookingNumberExtracted, &l.CreatedAt,
		&l.ActionRequired, &l.ActionConfidence, &actionSource); err != nil {
		return nil, err
	}
	l.ShipmentID = stringOrEmpty(shipmentID)
	l.ActionSource = stringOrEmpty(actionSource)
	return &l, nil
}

const linkColumns = `id, shipment_id, email_id, document_type, is_primary, link_method, link_confidence, COALESCE(booking_number_extracted,''), created_at, action_required, action_confidence, action_source`

func (r *LinkingRepo) LinksForEmail(ctx context.Context, emailID string) ([]*domain.ShipmentDocumentLink, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM shipment_document_links WHERE email_id = $1`, emailID)
	if err != nil {
		return nil, fmt.Errorf("links for email: %w", err)
	}
	defer rows.Close()

	var out []*domain.ShipmentDocumentLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LinkingRepo) OrphanLinksForEntities(ctx context.Context, identifiers []string) ([]*domain.ShipmentDocumentLink, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM shipment_document_links
		WHERE shipment_id IS NULL AND booking_number_extracted = ANY($1)
	`, pq.Array(identifiers))
	if err != nil {
		return nil, fmt.Errorf("orphan links for entities: %w", err)
	}
	defer rows.Close()

	var out []*domain.ShipmentDocumentLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan orphan link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LinkingRepo) EntityValuesForEmail(ctx context.Context, emailID string, entityTypes []domain.EntityType) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT value FROM extracted_entities
		WHERE email_id = $1 AND entity_type = ANY($2)
	`, emailID, pq.Array(entityTypesToStrings(entityTypes)))
	if err != nil {
		return nil, fmt.Errorf("entity values for email: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan entity value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *LinkingRepo) EmailsWithEntityValue(ctx context.Context, entityTypes []domain.EntityType, value string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT email_id FROM extracted_entities
		WHERE entity_type = ANY($1) AND value = $2
	`, pq.Array(entityTypesToStrings(entityTypes)), value)
	if err != nil {
		return nil, fmt.Errorf("emails with entity value: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan email id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func entityTypesToStrings(types []domain.EntityType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
