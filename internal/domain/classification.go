package domain

// DocumentType is the closed set of document kinds the classifier can
// assign to an email (and, transitively, to the documents linked off it).
type DocumentType string

const (
	DocBookingConfirmation  DocumentType = "booking_confirmation"
	DocBookingAmendment     DocumentType = "booking_amendment"
	DocBookingCancellation  DocumentType = "booking_cancellation"
	DocShippingInstruction  DocumentType = "shipping_instruction"
	DocSIDraft              DocumentType = "si_draft"
	DocSISubmission         DocumentType = "si_submission"
	DocSIConfirmation       DocumentType = "si_confirmation"
	DocVGMSubmission        DocumentType = "vgm_submission"
	DocVGMConfirmation      DocumentType = "vgm_confirmation"
	DocBillOfLading         DocumentType = "bill_of_lading"
	DocBLDraft              DocumentType = "bl_draft"
	DocHBL                  DocumentType = "hbl"
	DocHBLDraft             DocumentType = "hbl_draft"
	DocArrivalNotice        DocumentType = "arrival_notice"
	DocDeliveryOrder        DocumentType = "delivery_order"
	DocCustomsEntry         DocumentType = "customs_entry"
	DocEntrySummary         DocumentType = "entry_summary"
	DocDutyInvoice          DocumentType = "duty_invoice"
	DocInvoice              DocumentType = "invoice"
	DocExceptionNotice      DocumentType = "exception_notice"
	DocPOD                  DocumentType = "pod"
	DocGeneralCorrespondence DocumentType = "general_correspondence"
	DocUnknown              DocumentType = "unknown"
)

// EmailType is the closed set of rhetorical/functional kinds an email can
// be, independent of the documentType selected for it.
type EmailType string

const (
	EmailConfirmation  EmailType = "confirmation"
	EmailAmendment     EmailType = "amendment"
	EmailCancellation  EmailType = "cancellation"
	EmailRequest       EmailType = "request"
	EmailSubmission    EmailType = "submission"
	EmailCorrespondence EmailType = "correspondence"
	EmailNotification  EmailType = "notification"
	EmailException     EmailType = "exception"
	EmailInstruction   EmailType = "instruction"
	EmailDraftReview   EmailType = "draft_review"
)

// SenderCategory classifies the counterparty an email came from.
type SenderCategory string

const (
	SenderCarrier  SenderCategory = "carrier"
	SenderBroker   SenderCategory = "broker"
	SenderCustoms  SenderCategory = "customs"
	SenderCustomer SenderCategory = "customer"
	SenderInternal SenderCategory = "internal"
	SenderUnknown  SenderCategory = "unknown"
)

// ClassificationMethod records which cascade rule produced the result, for
// observability and for the Thread Authority Rule to reason about.
type ClassificationMethod string

const (
	MethodAttachmentFilename ClassificationMethod = "attachment_filename"
	MethodPatternBody        ClassificationMethod = "pattern"
	MethodKeyword            ClassificationMethod = "keyword"
	MethodBodyText           ClassificationMethod = "body_text"
	MethodSubject            ClassificationMethod = "subject"
	MethodAIFallback         ClassificationMethod = "ai_fallback"
)

// Sentiment is a coarse reading of the email's tone, used by the insight
// engine as a tie-breaker signal, never as a classification input.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// DocumentClassification is the 1:1 classification result for an email.
type DocumentClassification struct {
	EmailID               string
	DocumentType          DocumentType
	DocumentConfidence    int // 0-100
	ClassificationMethod  ClassificationMethod
	EmailType             EmailType
	EmailTypeConfidence   int
	Direction             Direction
	SenderCategory        SenderCategory
	Sentiment             Sentiment
	IsUrgent              bool
	NeedsManualReview     bool
}

// LowConfidenceThreshold is the floor below which an email is routed to
// manual_review without further processing.
const LowConfidenceThreshold = 50

// ShipmentCreateThreshold is the floor a booking_confirmation must clear to
// create a new Shipment. Between LowConfidenceThreshold and this value,
// the email is marked needs_review instead.
const ShipmentCreateThreshold = 70
