package domain

import "time"

// EntityType is the closed set of identifiers/dates/parties the extractor
// can pull out of an email body or attachment text.
type EntityType string

const (
	EntityBookingNumber     EntityType = "booking_number"
	EntityMBLNumber         EntityType = "mbl_number"
	EntityHBLNumber         EntityType = "hbl_number"
	EntityContainerNumber   EntityType = "container_number"
	EntityVesselName        EntityType = "vessel_name"
	EntityVoyageNumber      EntityType = "voyage_number"
	EntityPortOfLoading     EntityType = "port_of_loading"
	EntityPortOfLoadingCode EntityType = "port_of_loading_code"
	EntityPortOfDischarge   EntityType = "port_of_discharge"
	EntityPortOfDischargeCode EntityType = "port_of_discharge_code"
	EntityETD               EntityType = "etd"
	EntityETA               EntityType = "eta"
	EntitySICutoff           EntityType = "si_cutoff"
	EntityVGMCutoff          EntityType = "vgm_cutoff"
	EntityCargoCutoff        EntityType = "cargo_cutoff"
	EntityGateCutoff         EntityType = "gate_cutoff"
	EntityDocCutoff          EntityType = "doc_cutoff"
	EntityShipperName        EntityType = "shipper_name"
	EntityShipperAddress     EntityType = "shipper_address"
	EntityConsigneeName      EntityType = "consignee_name"
	EntityConsigneeAddress   EntityType = "consignee_address"
	EntityNotifyPartyName    EntityType = "notify_party_name"
	EntityNotifyPartyAddress EntityType = "notify_party_address"
)

// ExtractionMethod records which sub-extractor produced a field, used to
// compute the field's confidence floor.
type ExtractionMethod string

const (
	ExtractionSchema       ExtractionMethod = "schema"
	ExtractionRegexSubject ExtractionMethod = "regex_subject"
	ExtractionRegexBody    ExtractionMethod = "regex_body"
	ExtractionAI           ExtractionMethod = "ai"
)

// Confidence floors per extraction method.
const (
	ConfidenceFloorSchema       = 85
	ConfidenceFloorRegexSubject = 75
	ConfidenceFloorBodyKeyword  = 75
)

// ExtractedEntity is one harvested field, scoped to either an email or one
// of its attachments.
type ExtractedEntity struct {
	EmailID         string
	AttachmentID    string // empty when sourced from the email body
	EntityType      EntityType
	Value           string
	Confidence      int
	ExtractionMethod ExtractionMethod
	SourceField      string
	ExtractedAt      time.Time
}

// PartyBlock is a shipper/consignee/notify-party name+address pair lifted
// from an SI/HBL draft or final HBL.
type PartyBlock struct {
	Name    string
	Address string
}

// ExtractedDocumentData is the full bundle produced by one extraction pass
// over an email's body plus its attachments' extracted text. Nil/zero
// fields mean "not found" — the extractor never guesses.
type ExtractedDocumentData struct {
	EmailID string

	BookingNumber   string
	MBLNumber       string
	HBLNumber       string
	ContainerNumbers []string
	VesselName      string
	VoyageNumber    string

	PortOfLoading        string
	PortOfLoadingCode     string
	PortOfDischarge      string
	PortOfDischargeCode  string

	ETD *time.Time
	ETA *time.Time

	SICutoff    *time.Time
	VGMCutoff   *time.Time
	CargoCutoff *time.Time
	GateCutoff  *time.Time
	DocCutoff   *time.Time

	Shipper     *PartyBlock
	Consignee   *PartyBlock
	NotifyParty *PartyBlock

	Entities []ExtractedEntity
}
