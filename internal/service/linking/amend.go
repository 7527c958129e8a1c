package linking

import (
	"time"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// fieldDiff records one Shipment field an amendment changed, with the
// old/new values compared as strings for the revision log.
// bookingNumber itself is the upsert key and never diffed.
type fieldDiff struct {
	field string
	old   string
	new   string
}

// diffAndApply compares extracted against shipment's current values,
// writes the new values in (retaining the old one whenever the extracted
// value is empty — an amendment never overwrites a known field with
// null), and returns one RevisionEntry per changed field.
func diffAndApply(shipment *domain.Shipment, extracted *domain.ExtractedDocumentData, emailID string, now time.Time) []domain.RevisionEntry {
	var diffs []fieldDiff

	str := func(field, old, newVal string, assign func(string)) {
		if newVal == "" || newVal == old {
			return
		}
		diffs = append(diffs, fieldDiff{field, old, newVal})
		assign(newVal)
	}
	date := func(field string, old, newVal *time.Time, assign func(*time.Time)) {
		if newVal == nil || (old != nil && old.Equal(*newVal)) {
			return
		}
		oldStr := ""
		if old != nil {
			oldStr = old.Format(time.RFC3339)
		}
		diffs = append(diffs, fieldDiff{field, oldStr, newVal.Format(time.RFC3339)})
		assign(newVal)
	}

	str("mblNumber", shipment.MBLNumber, extracted.MBLNumber, func(v string) { shipment.MBLNumber = v })
	str("hblNumber", shipment.HBLNumber, extracted.HBLNumber, func(v string) { shipment.HBLNumber = v })
	str("vesselName", shipment.VesselName, extracted.VesselName, func(v string) { shipment.VesselName = v })
	str("voyageNumber", shipment.VoyageNumber, extracted.VoyageNumber, func(v string) { shipment.VoyageNumber = v })
	str("portOfLoading", shipment.PortOfLoading, extracted.PortOfLoading, func(v string) { shipment.PortOfLoading = v })
	str("portOfLoadingCode", shipment.PortOfLoadingCode, extracted.PortOfLoadingCode, func(v string) { shipment.PortOfLoadingCode = v })
	str("portOfDischarge", shipment.PortOfDischarge, extracted.PortOfDischarge, func(v string) { shipment.PortOfDischarge = v })
	str("portOfDischargeCode", shipment.PortOfDischargeCode, extracted.PortOfDischargeCode, func(v string) { shipment.PortOfDischargeCode = v })

	date("etd", shipment.ETD, extracted.ETD, func(t *time.Time) { shipment.ETD = t })
	date("eta", shipment.ETA, extracted.ETA, func(t *time.Time) { shipment.ETA = t })
	date("siCutoff", shipment.SICutoff, extracted.SICutoff, func(t *time.Time) { shipment.SICutoff = t })
	date("vgmCutoff", shipment.VGMCutoff, extracted.VGMCutoff, func(t *time.Time) { shipment.VGMCutoff = t })
	date("cargoCutoff", shipment.CargoCutoff, extracted.CargoCutoff, func(t *time.Time) { shipment.CargoCutoff = t })
	date("gateCutoff", shipment.GateCutoff, extracted.GateCutoff, func(t *time.Time) { shipment.GateCutoff = t })
	date("docCutoff", shipment.DocCutoff, extracted.DocCutoff, func(t *time.Time) { shipment.DocCutoff = t })

	for _, c := range extracted.ContainerNumbers {
		if !shipment.HasContainer(c) {
			diffs = append(diffs, fieldDiff{"containerNumbers", "", c})
			shipment.ContainerNumbers = append(shipment.ContainerNumbers, c)
			if shipment.ContainerNumberPrimary == "" {
				shipment.ContainerNumberPrimary = c
			}
		}
	}

	entries := make([]domain.RevisionEntry, 0, len(diffs))
	for _, d := range diffs {
		entries = append(entries, domain.RevisionEntry{
			Field:      d.field,
			OldValue:   d.old,
			NewValue:   d.new,
			EmailID:    emailID,
			OccurredAt: now,
		})
	}
	return entries
}

// isPartyBearingDocument reports whether documentType is one of the
// SI/HBL-family documents trusted to carry shipper/consignee/notify-party
// data and triggers a stakeholder update.
func isPartyBearingDocument(documentType domain.DocumentType) bool {
	switch documentType {
	case domain.DocSIDraft, domain.DocHBLDraft, domain.DocHBL:
		return true
	default:
		return false
	}
}

// applyPartyFields overwrites shipper/consignee/notify-party denormalized
// fields only when documentType is in the trusted set and the party's name
// isn't the forwarder's own company (the extractor already excludes the
// forwarder's name, so here we just gate by documentType).
func applyPartyFields(shipment *domain.Shipment, extracted *domain.ExtractedDocumentData, documentType domain.DocumentType) {
	if extracted == nil {
		return
	}
	switch documentType {
	case domain.DocSIDraft, domain.DocHBLDraft, domain.DocHBL:
	default:
		return
	}
	if extracted.Shipper != nil {
		shipment.ShipperName = extracted.Shipper.Name
		shipment.ShipperAddress = extracted.Shipper.Address
	}
	if extracted.Consignee != nil {
		shipment.ConsigneeName = extracted.Consignee.Name
		shipment.ConsigneeAddress = extracted.Consignee.Address
	}
	if extracted.NotifyParty != nil {
		shipment.NotifyPartyName = extracted.NotifyParty.Name
		shipment.NotifyPartyAddress = extracted.NotifyParty.Address
	}
}
