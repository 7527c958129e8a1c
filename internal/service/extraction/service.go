package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// Input bundles everything the extractor needs about one email.
type Input struct {
	EmailID        string
	Subject        string
	BodyText       string
	AttachmentText string // concatenated text pulled from PDF/spreadsheet attachments
	DocumentType   domain.DocumentType
	ForwarderName  string // the forwarder's own company name, excluded from party matches
}

// Service implements the schema-first extraction cascade.
type Service struct {
	repo Repository
}

// NewService builds an extraction service. repo may be nil, in which case
// Extract still computes a result but skips persistence.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Extract runs the full sub-extractor order over in and persists the
// resulting entity set. It never fails outright: a sub-extractor that
// can't find a field leaves it nil and extraction proceeds. Only a
// repository failure on save surfaces an error, with the computed data
// still returned.
func (s *Service) Extract(ctx context.Context, in Input) (*domain.ExtractedDocumentData, error) {
	fullText := in.BodyText + "\n" + in.AttachmentText
	now := time.Now().UTC()

	data := &domain.ExtractedDocumentData{EmailID: in.EmailID}

	// 1. Carrier-aware field regexes over the full text.
	data.BookingNumber = firstMatch(bookingPatterns, fullText)
	data.MBLNumber = firstMatch(mblPatterns, fullText)
	data.HBLNumber = firstMatch(hblPatterns, fullText)
	data.ContainerNumbers = allMatches(containerPatterns, fullText)
	data.VesselName = strings.TrimSpace(firstMatch(vesselVoyagePatterns, fullText))
	data.VoyageNumber = firstMatch(voyagePatterns, fullText)
	data.PortOfLoading = strings.TrimSpace(firstMatch(polPatterns, fullText))
	data.PortOfDischarge = strings.TrimSpace(firstMatch(podPatterns, fullText))

	method := make(map[domain.EntityType]domain.ExtractionMethod)
	if data.BookingNumber != "" {
		method[domain.EntityBookingNumber] = domain.ExtractionRegexBody
	}
	if data.MBLNumber != "" {
		method[domain.EntityMBLNumber] = domain.ExtractionRegexBody
	}
	if data.HBLNumber != "" {
		method[domain.EntityHBLNumber] = domain.ExtractionRegexBody
	}

	// 2. Subject-line regex fallback for identifiers the body missed.
	if data.BookingNumber == "" {
		if m := dealIDPattern.FindStringSubmatch(in.Subject); len(m) > 1 {
			data.BookingNumber = m[1]
			method[domain.EntityBookingNumber] = domain.ExtractionRegexSubject
		} else if m := subjectBookingPattern.FindStringSubmatch(in.Subject); len(m) > 1 {
			data.BookingNumber = m[1]
			method[domain.EntityBookingNumber] = domain.ExtractionRegexSubject
		}
	}
	if locode := subjectLocodePattern.FindAllString(in.Subject, -1); data.PortOfDischargeCode == "" && len(locode) > 0 {
		data.PortOfDischargeCode = locode[len(locode)-1]
		method[domain.EntityPortOfDischargeCode] = domain.ExtractionRegexSubject
	}
	if data.VesselName == "" {
		if fields := strings.Fields(in.Subject); len(fields) > 0 {
			last := fields[len(fields)-1]
			if last != data.PortOfDischargeCode {
				data.VesselName = last
				method[domain.EntityVesselName] = domain.ExtractionRegexSubject
			}
		}
	}
	// 3. Key-value table extraction inside the attachment/body text.
	if data.PortOfLoadingCode == "" {
		data.PortOfLoadingCode = locodeNear(fullText, "port of loading")
	}
	if data.PortOfDischargeCode == "" {
		data.PortOfDischargeCode = locodeNear(fullText, "port of discharge")
	}

	// 4. Date normalization, preserving time-of-day for cutoffs.
	data.SICutoff = extractLabeledDate(fullText, siCutoffLabel)
	data.VGMCutoff = extractLabeledDate(fullText, vgmCutoffLabel)
	data.CargoCutoff = extractLabeledDate(fullText, cargoCutoffLabel)
	data.GateCutoff = extractLabeledDate(fullText, gateCutoffLabel)
	data.DocCutoff = extractLabeledDate(fullText, docCutoffLabel)
	data.ETD = extractLabeledDate(fullText, etdLabel)
	data.ETA = extractLabeledDate(fullText, etaLabel)

	// 5. Party extraction, gated to SI/HBL-family documents.
	if _, ok := partyExtractionDocTypes[in.DocumentType]; ok {
		data.Shipper = extractParty(fullText, "shipper", in.ForwarderName)
		data.Consignee = extractParty(fullText, "consignee", in.ForwarderName)
		data.NotifyParty = extractParty(fullText, "notify", in.ForwarderName)
	}

	data.Entities = buildEntities(in.EmailID, data, method, now)

	if s.repo != nil {
		if err := s.repo.ReplaceEntities(ctx, in.EmailID, data.Entities); err != nil {
			return data, err
		}
	}

	return data, nil
}

func allMatches(patterns []fieldPattern, text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range patterns {
		for _, m := range p.Regex.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			if _, dup := seen[m[1]]; dup {
				continue
			}
			seen[m[1]] = struct{}{}
			out = append(out, m[1])
		}
	}
	return out
}

// locodeNear looks for a UN/LOCODE on the same line as label.
func locodeNear(text, label string) string {
	lowerLabel := strings.ToLower(label)
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), lowerLabel) {
			continue
		}
		if m := locodePattern.FindString(line); m != "" {
			return m
		}
	}
	return ""
}

func buildEntities(emailID string, data *domain.ExtractedDocumentData, method map[domain.EntityType]domain.ExtractionMethod, now time.Time) []domain.ExtractedEntity {
	var entities []domain.ExtractedEntity
	add := func(entityType domain.EntityType, value string) {
		if value == "" {
			return
		}
		m, ok := method[entityType]
		if !ok {
			m = domain.ExtractionRegexBody
		}
		entities = append(entities, domain.ExtractedEntity{
			EmailID:          emailID,
			EntityType:       entityType,
			Value:            value,
			Confidence:       confidenceFor(m),
			ExtractionMethod: m,
			ExtractedAt:      now,
		})
	}
	addTime := func(entityType domain.EntityType, t *time.Time) {
		if t == nil {
			return
		}
		entities = append(entities, domain.ExtractedEntity{
			EmailID:          emailID,
			EntityType:       entityType,
			Value:            t.Format(time.RFC3339),
			Confidence:       domain.ConfidenceFloorBodyKeyword,
			ExtractionMethod: domain.ExtractionRegexBody,
			ExtractedAt:      now,
		})
	}

	add(domain.EntityBookingNumber, data.BookingNumber)
	add(domain.EntityMBLNumber, data.MBLNumber)
	add(domain.EntityHBLNumber, data.HBLNumber)
	for _, c := range data.ContainerNumbers {
		add(domain.EntityContainerNumber, c)
	}
	add(domain.EntityVesselName, data.VesselName)
	add(domain.EntityVoyageNumber, data.VoyageNumber)
	add(domain.EntityPortOfLoading, data.PortOfLoading)
	add(domain.EntityPortOfLoadingCode, data.PortOfLoadingCode)
	add(domain.EntityPortOfDischarge, data.PortOfDischarge)
	add(domain.EntityPortOfDischargeCode, data.PortOfDischargeCode)

	addTime(domain.EntityETD, data.ETD)
	addTime(domain.EntityETA, data.ETA)
	addTime(domain.EntitySICutoff, data.SICutoff)
	addTime(domain.EntityVGMCutoff, data.VGMCutoff)
	addTime(domain.EntityCargoCutoff, data.CargoCutoff)
	addTime(domain.EntityGateCutoff, data.GateCutoff)
	addTime(domain.EntityDocCutoff, data.DocCutoff)

	if data.Shipper != nil {
		add(domain.EntityShipperName, data.Shipper.Name)
		add(domain.EntityShipperAddress, data.Shipper.Address)
	}
	if data.Consignee != nil {
		add(domain.EntityConsigneeName, data.Consignee.Name)
		add(domain.EntityConsigneeAddress, data.Consignee.Address)
	}
	if data.NotifyParty != nil {
		add(domain.EntityNotifyPartyName, data.NotifyParty.Name)
		add(domain.EntityNotifyPartyAddress, data.NotifyParty.Address)
	}

	return entities
}

func confidenceFor(m domain.ExtractionMethod) int {
	switch m {
	case domain.ExtractionSchema:
		return domain.ConfidenceFloorSchema
	case domain.ExtractionRegexSubject:
		return domain.ConfidenceFloorRegexSubject
	default:
		return domain.ConfidenceFloorBodyKeyword
	}
}
