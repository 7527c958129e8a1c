package linking

import (
	"context"
	"strings"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/domain"
	"github.com/intoglo/shipment-pipeline/internal/pkg/distlock"
	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
)

// LockFactory builds a distributed lock for a given key. Passing
// distlock.NewLock bound to a Redis client/DB lets the service serialize
// concurrent booking-number create races.
type LockFactory func(key string) distlock.DistLock

// CreateConfidenceFloor is the minimum documentConfidence a
// booking_confirmation must carry before it is trusted to create a
// shipment.
const CreateConfidenceFloor = 70

// ShipmentCreationInput bundles what's needed to evaluate and apply the
// shipment-creation/amendment rules for one booking_confirmation email.
type ShipmentCreationInput struct {
	EmailID            string
	DocumentType       domain.DocumentType
	DocumentConfidence int
	CarrierAttested    bool
	Extracted          *domain.ExtractedDocumentData
	CarrierCode        string
}

// Service implements resolution, shipment creation/amendment, and backfill.
type Service struct {
	repo        Repository
	lockFactory LockFactory
}

// NewService builds a linking service. lockFactory may be nil, in which
// case shipment creation proceeds without serialization (acceptable for
// single-process/test use; production wiring always supplies one).
func NewService(repo Repository, lockFactory LockFactory) *Service {
	return &Service{repo: repo, lockFactory: lockFactory}
}

// Resolve implements the multi-key lookup order: booking
// number, then mbl/hbl number, then container number. It never creates a
// shipment itself; callers combine it with CreateOrUpdateShipment.
func (s *Service) Resolve(ctx context.Context, extracted *domain.ExtractedDocumentData) (*domain.Shipment, domain.LinkMethod, error) {
	if extracted.BookingNumber != "" {
		if sh, err := s.repo.FindShipmentByBookingNumber(ctx, extracted.BookingNumber); err != nil {
			return nil, "", err
		} else if sh != nil {
			return sh, domain.LinkByBookingNumber, nil
		}
	}
	if extracted.MBLNumber != "" {
		if sh, err := s.repo.FindShipmentByMBLNumber(ctx, extracted.MBLNumber); err != nil {
			return nil, "", err
		} else if sh != nil {
			return sh, domain.LinkByMBLNumber, nil
		}
	}
	if extracted.HBLNumber != "" {
		if sh, err := s.repo.FindShipmentByHBLNumber(ctx, extracted.HBLNumber); err != nil {
			return nil, "", err
		} else if sh != nil {
			return sh, domain.LinkByHBLNumber, nil
		}
	}
	for _, c := range extracted.ContainerNumbers {
		if sh, err := s.repo.FindShipmentByContainer(ctx, c); err != nil {
			return nil, "", err
		} else if sh != nil {
			return sh, domain.LinkByContainer, nil
		}
	}
	return nil, domain.LinkOrphan, nil
}

// LinkEmail resolves the email and either attaches it to the found
// shipment or, when allowed, creates a new shipment from it; otherwise it
// records an orphan link for later backfill.
func (s *Service) LinkEmail(ctx context.Context, in ShipmentCreationInput) (*domain.ShipmentDocumentLink, *domain.Shipment, error) {
	shipment, method, err := s.Resolve(ctx, in.Extracted)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case shipment != nil && in.DocumentType == domain.DocBookingAmendment:
		amended, err := s.applyAmendment(ctx, shipment, in)
		if err != nil {
			logger.Warn("linking: amendment failed, link recorded against prior shipment state", "email_id", in.EmailID, "error", err.Error())
		} else {
			shipment = amended
		}
	case shipment == nil && s.canCreateShipment(in):
		shipment, err = s.CreateOrUpdateShipment(ctx, in)
		if err != nil {
			logger.Warn("linking: shipment creation failed, falling back to orphan", "email_id", in.EmailID, "error", err.Error())
		} else if shipment != nil {
			method = domain.LinkByBookingNumber
		}
	case shipment != nil && isPartyBearingDocument(in.DocumentType):
		updated, err := s.updateStakeholders(ctx, shipment, in.Extracted, in.DocumentType)
		if err != nil {
			logger.Warn("linking: stakeholder update failed", "email_id", in.EmailID, "shipment_id", shipment.ID, "error", err.Error())
		} else {
			shipment = updated
		}
	}

	// Re-processing must not insert a second row: reuse this email's
	// existing link for the shipment (or elevate its orphan row) so the
	// save upserts on the prior link's ID.
	existingLinks, err := s.repo.LinksForEmail(ctx, in.EmailID)
	if err != nil {
		return nil, shipment, err
	}

	link := &domain.ShipmentDocumentLink{
		EmailID:      in.EmailID,
		DocumentType: in.DocumentType,
		IsPrimary:    in.DocumentType == domain.DocBookingConfirmation,
		LinkMethod:   method,
		CreatedAt:    time.Now().UTC(),
	}
	if shipment != nil {
		link.ShipmentID = shipment.ID
		link.LinkConfidence = in.DocumentConfidence
		prior := linkFor(existingLinks, shipment.ID)
		if prior == nil {
			prior = linkFor(existingLinks, "")
		}
		if prior != nil {
			link.ID = prior.ID
			link.CreatedAt = prior.CreatedAt
		}
	} else {
		link.LinkMethod = domain.LinkOrphan
		link.BookingNumberExtracted = primaryIdentifier(in.Extracted)
		if prior := linkFor(existingLinks, ""); prior != nil {
			link.ID = prior.ID
			link.CreatedAt = prior.CreatedAt
		}
	}

	if err := s.repo.SaveLink(ctx, link); err != nil {
		return link, shipment, err
	}

	if shipment != nil {
		if err := s.LinkRelatedEmails(ctx, shipment); err != nil {
			logger.Warn("linking: backfill sweep failed, will retry next run", "shipment_id", shipment.ID, "error", err.Error())
		}
	}

	return link, shipment, nil
}

// RecordAction stores the action-determination verdict for an
// already-saved link.
func (s *Service) RecordAction(ctx context.Context, linkID string, hasAction bool, confidence int, source string) error {
	return s.repo.RecordAction(ctx, linkID, hasAction, confidence, source)
}

// primaryIdentifier picks the single identifier recorded on an orphan
// link for later backfill matching: bookingNumber first, then MBL, HBL,
// and finally the first container number.
func primaryIdentifier(extracted *domain.ExtractedDocumentData) string {
	if extracted == nil {
		return ""
	}
	if extracted.BookingNumber != "" {
		return extracted.BookingNumber
	}
	if extracted.MBLNumber != "" {
		return extracted.MBLNumber
	}
	if extracted.HBLNumber != "" {
		return extracted.HBLNumber
	}
	if len(extracted.ContainerNumbers) > 0 {
		return extracted.ContainerNumbers[0]
	}
	return ""
}

func (s *Service) canCreateShipment(in ShipmentCreationInput) bool {
	if in.DocumentType != domain.DocBookingConfirmation {
		return false
	}
	if in.DocumentConfidence < CreateConfidenceFloor {
		return false
	}
	if !in.CarrierAttested {
		return false
	}
	return in.Extracted != nil && in.Extracted.BookingNumber != ""
}

// CreateOrUpdateShipment creates a new shipment or amends an existing one
// keyed on bookingNumber, serialized per booking number to avoid duplicate
// creation races.
func (s *Service) CreateOrUpdateShipment(ctx context.Context, in ShipmentCreationInput) (*domain.Shipment, error) {
	if in.Extracted == nil || in.Extracted.BookingNumber == "" {
		return nil, ErrMissingBookingNumber
	}
	if in.DocumentType != domain.DocBookingConfirmation || !in.CarrierAttested {
		return nil, ErrNotCarrierAttested
	}
	if in.DocumentConfidence < CreateConfidenceFloor {
		return nil, ErrLowConfidence
	}

	lock := s.acquireLock(ctx, distlock.BookingKey(in.Extracted.BookingNumber))
	if lock != nil {
		defer lock.Release(ctx)
	}

	existing, err := s.repo.FindShipmentByBookingNumber(ctx, in.Extracted.BookingNumber)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing == nil {
		shipment := &domain.Shipment{
			BookingNumber:            in.Extracted.BookingNumber,
			MBLNumber:                in.Extracted.MBLNumber,
			HBLNumber:                in.Extracted.HBLNumber,
			CarrierCode:              in.CarrierCode,
			VesselName:               in.Extracted.VesselName,
			VoyageNumber:             in.Extracted.VoyageNumber,
			PortOfLoading:            in.Extracted.PortOfLoading,
			PortOfLoadingCode:        in.Extracted.PortOfLoadingCode,
			PortOfDischarge:          in.Extracted.PortOfDischarge,
			PortOfDischargeCode:      in.Extracted.PortOfDischargeCode,
			ETD:                      in.Extracted.ETD,
			ETA:                      in.Extracted.ETA,
			SICutoff:                 in.Extracted.SICutoff,
			VGMCutoff:                in.Extracted.VGMCutoff,
			CargoCutoff:              in.Extracted.CargoCutoff,
			GateCutoff:               in.Extracted.GateCutoff,
			DocCutoff:                in.Extracted.DocCutoff,
			ContainerNumbers:         in.Extracted.ContainerNumbers,
			WorkflowState:            domain.StateBookingConfirmationReceived,
			WorkflowPhase:            domain.PhasePreDeparture,
			Status:                   domain.StatusBooked,
			IsDirectCarrierConfirmed: in.CarrierAttested,
			CreatedFromEmailID:       in.EmailID,
			CreatedAt:                now,
			UpdatedAt:                now,
		}
		if len(in.Extracted.ContainerNumbers) > 0 {
			shipment.ContainerNumberPrimary = in.Extracted.ContainerNumbers[0]
		}
		applyPartyFields(shipment, in.Extracted, in.DocumentType)
		return s.repo.UpsertShipment(ctx, shipment)
	}

	return s.applyAmendment(ctx, existing, in)
}

// AmendShipment applies a booking_amendment's extracted fields to the
// shipment it resolves against via the same multi-key lookup Resolve
// uses, recording a revision delta. Unlike CreateOrUpdateShipment it never
// creates a shipment — an amendment with no resolvable target is the
// caller's cue to fall back to an orphan link.
func (s *Service) AmendShipment(ctx context.Context, in ShipmentCreationInput) (*domain.Shipment, error) {
	if in.Extracted == nil {
		return nil, ErrMissingBookingNumber
	}

	existing, _, err := s.Resolve(ctx, in.Extracted)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrShipmentNotFound
	}

	return s.applyAmendment(ctx, existing, in)
}

// applyAmendment diffs in.Extracted against existing, appends the
// resulting revision entries, and upserts. Shared by CreateOrUpdateShipment
// (a resubmitted booking_confirmation for a known booking number) and
// AmendShipment/LinkEmail (an explicit booking_amendment).
func (s *Service) applyAmendment(ctx context.Context, existing *domain.Shipment, in ShipmentCreationInput) (*domain.Shipment, error) {
	var lock distlock.DistLock
	if existing.BookingNumber != "" {
		lock = s.acquireLock(ctx, distlock.BookingKey(existing.BookingNumber))
		if lock != nil {
			defer lock.Release(ctx)
		}
	}

	now := time.Now().UTC()
	amended := *existing
	revisions := diffAndApply(&amended, in.Extracted, in.EmailID, now)
	if len(revisions) > 0 {
		amended.Revisions = append(amended.Revisions, revisions...)
		amended.BookingRevisionCount += len(revisions)
	}
	applyPartyFields(&amended, in.Extracted, in.DocumentType)
	amended.UpdatedAt = now
	return s.repo.UpsertShipment(ctx, &amended)
}

// updateStakeholders refreshes shipment's denormalized party fields from an
// SI/HBL-family document that resolved to an existing shipment without
// triggering a create or amend (e.g. a final hbl confirming a prior
// si_draft's parties). No-op, no persistence, when nothing changes.
func (s *Service) updateStakeholders(ctx context.Context, shipment *domain.Shipment, extracted *domain.ExtractedDocumentData, documentType domain.DocumentType) (*domain.Shipment, error) {
	before := [6]string{shipment.ShipperName, shipment.ShipperAddress, shipment.ConsigneeName, shipment.ConsigneeAddress, shipment.NotifyPartyName, shipment.NotifyPartyAddress}
	updated := *shipment
	applyPartyFields(&updated, extracted, documentType)
	after := [6]string{updated.ShipperName, updated.ShipperAddress, updated.ConsigneeName, updated.ConsigneeAddress, updated.NotifyPartyName, updated.NotifyPartyAddress}
	if before == after {
		return shipment, nil
	}
	updated.UpdatedAt = time.Now().UTC()
	return s.repo.UpsertShipment(ctx, &updated)
}

func (s *Service) acquireLock(ctx context.Context, key string) distlock.DistLock {
	if s.lockFactory == nil {
		return nil
	}
	lock := s.lockFactory(key)
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		logger.Warn("linking: lock acquisition failed, proceeding unserialized", "key", key)
		return nil
	}
	return lock
}

// LinkRelatedEmails sweeps orphan links whose recorded identifiers match
// shipment's booking/MBL/HBL/container numbers and elevates them, plus
// finds any further candidate emails via stored extractions. Per-link save
// and candidate-lookup failures are logged and skipped; a failed orphan
// lookup is returned to the caller.
func (s *Service) LinkRelatedEmails(ctx context.Context, shipment *domain.Shipment) error {
	identifiers := []string{shipment.BookingNumber, shipment.MBLNumber, shipment.HBLNumber}
	identifiers = append(identifiers, shipment.ContainerNumbers...)
	identifiers = dedupeNonEmpty(identifiers)
	if len(identifiers) == 0 {
		return nil
	}

	orphans, err := s.repo.OrphanLinksForEntities(ctx, identifiers)
	if err != nil {
		return err
	}
	for _, link := range orphans {
		cp := *link
		cp.ShipmentID = shipment.ID
		cp.LinkMethod = domain.LinkByBookingNumber
		if err := s.repo.SaveLink(ctx, &cp); err != nil {
			logger.Warn("linking: backfill elevate failed", "link_id", link.ID, "error", err.Error())
		}
	}

	entityTypes := []domain.EntityType{
		domain.EntityBookingNumber, domain.EntityMBLNumber,
		domain.EntityHBLNumber, domain.EntityContainerNumber,
	}
	for _, id := range identifiers {
		emailIDs, err := s.repo.EmailsWithEntityValue(ctx, entityTypes, id)
		if err != nil {
			logger.Warn("linking: backfill candidate lookup failed", "identifier", id, "error", err.Error())
			continue
		}
		for _, emailID := range emailIDs {
			links, err := s.repo.LinksForEmail(ctx, emailID)
			if err != nil || linkFor(links, shipment.ID) != nil {
				continue
			}
			newLink := &domain.ShipmentDocumentLink{
				EmailID:    emailID,
				ShipmentID: shipment.ID,
				LinkMethod: domain.LinkByBookingNumber,
				CreatedAt:  time.Now().UTC(),
			}
			if err := s.repo.SaveLink(ctx, newLink); err != nil {
				logger.Warn("linking: backfill create-link failed", "email_id", emailID, "error", err.Error())
			}
		}
	}
	return nil
}

// linkFor returns the email's existing link row for shipmentID (pass ""
// for the orphan row), or nil when none exists.
func linkFor(links []*domain.ShipmentDocumentLink, shipmentID string) *domain.ShipmentDocumentLink {
	for _, l := range links {
		if l.ShipmentID == shipmentID {
			return l
		}
	}
	return nil
}

func dedupeNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// DedupeLinks implements the cross-linking tie-break: keeps the link
// (a) created from this email, else (b) whose booking
// number appears in the subject, else (c) highest confidence, else
// (d) earliest created.
func DedupeLinks(links []*domain.ShipmentDocumentLink, createdFromEmailShipmentID, subject string) *domain.ShipmentDocumentLink {
	if len(links) == 0 {
		return nil
	}
	best := links[0]
	for _, l := range links[1:] {
		if winsTiebreak(l, best, createdFromEmailShipmentID, subject) {
			best = l
		}
	}
	return best
}

func winsTiebreak(candidate, current *domain.ShipmentDocumentLink, createdFromShipmentID, subject string) bool {
	candidateCreated := candidate.ShipmentID == createdFromShipmentID && createdFromShipmentID != ""
	currentCreated := current.ShipmentID == createdFromShipmentID && createdFromShipmentID != ""
	if candidateCreated != currentCreated {
		return candidateCreated
	}

	candidateInSubject := candidate.BookingNumberExtracted != "" && strings.Contains(subject, candidate.BookingNumberExtracted)
	currentInSubject := current.BookingNumberExtracted != "" && strings.Contains(subject, current.BookingNumberExtracted)
	if candidateInSubject != currentInSubject {
		return candidateInSubject
	}

	if candidate.LinkConfidence != current.LinkConfidence {
		return candidate.LinkConfidence > current.LinkConfidence
	}

	return candidate.CreatedAt.Before(current.CreatedAt)
}
