package classification

import (
	"regexp"
	"strings"

	"github.com/intoglo/shipment-pipeline/internal/domain"
)

// filenamePattern maps a regex over attachment filenames to a documentType
// with a base confidence, typically 90-95 since a filename match is the
// strongest signal the cascade has.
type filenamePattern struct {
	Regex        *regexp.Regexp
	DocumentType domain.DocumentType
	Confidence   int
}

var filenamePatterns = []filenamePattern{
	{regexp.MustCompile(`(?i)booking[-_ ]?conf`), domain.DocBookingConfirmation, 95},
	{regexp.MustCompile(`(?i)booking[-_ ]?amend`), domain.DocBookingAmendment, 93},
	{regexp.MustCompile(`(?i)booking[-_ ]?cancel`), domain.DocBookingCancellation, 93},
	{regexp.MustCompile(`(?i)^si[-_ ]?draft`), domain.DocSIDraft, 92},
	{regexp.MustCompile(`(?i)shipping[-_ ]?instr`), domain.DocShippingInstruction, 92},
	{regexp.MustCompile(`(?i)si[-_ ]?conf`), domain.DocSIConfirmation, 92},
	{regexp.MustCompile(`(?i)vgm[-_ ]?conf`), domain.DocVGMConfirmation, 92},
	{regexp.MustCompile(`(?i)vgm`), domain.DocVGMSubmission, 90},
	{regexp.MustCompile(`(?i)hbl[-_ ]?draft`), domain.DocHBLDraft, 93},
	{regexp.MustCompile(`(?i)^hbl|house[-_ ]?b[- ]?l`), domain.DocHBL, 93},
	{regexp.MustCompile(`(?i)bl[-_ ]?draft`), domain.DocBLDraft, 92},
	{regexp.MustCompile(`(?i)bill[-_ ]?of[-_ ]?lading|^mbl`), domain.DocBillOfLading, 93},
	{regexp.MustCompile(`(?i)arrival[-_ ]?notice`), domain.DocArrivalNotice, 94},
	{regexp.MustCompile(`(?i)delivery[-_ ]?order`), domain.DocDeliveryOrder, 93},
	{regexp.MustCompile(`(?i)entry[-_ ]?summary`), domain.DocEntrySummary, 92},
	{regexp.MustCompile(`(?i)customs[-_ ]?entry`), domain.DocCustomsEntry, 92},
	{regexp.MustCompile(`(?i)duty[-_ ]?invoice`), domain.DocDutyInvoice, 90},
	{regexp.MustCompile(`(?i)invoice`), domain.DocInvoice, 88},
	{regexp.MustCompile(`(?i)pod|proof[-_ ]?of[-_ ]?delivery`), domain.DocPOD, 90},
}

// bodyMarker matches carrier-specific and carrier-agnostic phrases inside
// attachment extracted text; confidence 85-90, one step below a filename
// match since OCR/text extraction can be noisy.
type bodyMarker struct {
	Marker       string // matched case-insensitively as a substring
	DocumentType domain.DocumentType
	Confidence   int
}

var bodyMarkers = []bodyMarker{
	{"BOOKING CONFIRMATION", domain.DocBookingConfirmation, 90},
	{"BOOKING AMENDMENT", domain.DocBookingAmendment, 88},
	{"BILL OF LADING", domain.DocBillOfLading, 88},
	{"ARRIVAL NOTICE", domain.DocArrivalNotice, 90},
	{"DELIVERY ORDER", domain.DocDeliveryOrder, 88},
	{"SHIPPING INSTRUCTION", domain.DocShippingInstruction, 87},
	{"VERIFIED GROSS MASS", domain.DocVGMSubmission, 86},
	{"CUSTOMS ENTRY", domain.DocCustomsEntry, 86},
	{"ENTRY SUMMARY", domain.DocEntrySummary, 85},
}

// subjectPattern is a carrier-keyed regex table for subject lines;
// confidence 80-90, since a subject line alone is less reliable than
// attachment content but still carrier-specific.
type subjectPattern struct {
	Regex        *regexp.Regexp
	DocumentType domain.DocumentType
	Confidence   int
	Carrier      string // informational; "" means carrier-agnostic
}

var subjectPatterns = []subjectPattern{
	{regexp.MustCompile(`(?i)^Booking Confirmation\s*:\s*26\d{7}$`), domain.DocBookingConfirmation, 90, "MAEU"},
	{regexp.MustCompile(`HLCU\d{7}|HL-?\d{8}`), domain.DocBookingConfirmation, 88, "HLCU"},
	{regexp.MustCompile(`(?i)CMA CGM.*Booking confirmation`), domain.DocBookingConfirmation, 88, "CMDU"},
	{regexp.MustCompile(`(?i)booking\s*amendment`), domain.DocBookingAmendment, 85, ""},
	{regexp.MustCompile(`(?i)booking\s*cancellation|cancelled?\s*booking`), domain.DocBookingCancellation, 85, ""},
	{regexp.MustCompile(`(?i)arrival\s*notice`), domain.DocArrivalNotice, 85, ""},
	{regexp.MustCompile(`(?i)shipping\s*instructions?`), domain.DocShippingInstruction, 82, ""},
	{regexp.MustCompile(`(?i)vgm\b`), domain.DocVGMSubmission, 80, ""},
	{regexp.MustCompile(`(?i)\bhbl\b|house\s*b/?l`), domain.DocHBL, 82, ""},
}

// bodyKeywordPattern is the phrase table matched in lowercased body text;
// confidence 70-80, the weakest cascade step since it's carrier-agnostic
// plain-English phrasing.
type bodyKeywordPattern struct {
	Phrase       string
	DocumentType domain.DocumentType
	Confidence   int
}

var bodyKeywordPatterns = []bodyKeywordPattern{
	{"booking confirmation", domain.DocBookingConfirmation, 78},
	{"booking has been confirmed", domain.DocBookingConfirmation, 76},
	{"please find attached amendment", domain.DocBookingAmendment, 75},
	{"booking has been cancelled", domain.DocBookingCancellation, 76},
	{"arrival notice", domain.DocArrivalNotice, 76},
	{"shipping instruction", domain.DocShippingInstruction, 74},
	{"vgm cut-off", domain.DocVGMSubmission, 72},
	{"please submit si", domain.DocShippingInstruction, 72},
	{"delivery order", domain.DocDeliveryOrder, 74},
	{"customs entry", domain.DocCustomsEntry, 72},
	{"proof of delivery", domain.DocPOD, 73},
}

// emailTypeMarker is the independent marker table for emailType, which
// runs in parallel to document-type classification and is unaffected by
// which documentType the cascade settles on.
type emailTypeMarker struct {
	Phrase    string
	EmailType domain.EmailType
}

var emailTypeMarkers = []emailTypeMarker{
	{"confirmed", domain.EmailConfirmation},
	{"has been confirmed", domain.EmailConfirmation},
	{"amendment", domain.EmailAmendment},
	{"amended", domain.EmailAmendment},
	{"cancelled", domain.EmailCancellation},
	{"cancellation", domain.EmailCancellation},
	{"please submit", domain.EmailRequest},
	{"please provide", domain.EmailRequest},
	{"please respond", domain.EmailRequest},
	{"submission", domain.EmailSubmission},
	{"submitted", domain.EmailSubmission},
	{"notice", domain.EmailNotification},
	{"notification", domain.EmailNotification},
	{"exception", domain.EmailException},
	{"hold", domain.EmailException},
	{"delay", domain.EmailException},
	{"instructions", domain.EmailInstruction},
	{"draft", domain.EmailDraftReview},
	{"please review", domain.EmailDraftReview},
}

// hardcodedCarrierDomains is the resilience fallback list of carrier
// domains. It is always consulted alongside the configured carrier domain
// table, not only when that table is empty.
var hardcodedCarrierDomains = []string{
	"maersk.com", "hlag.com", "cma-cgm.com", "msc.com", "evergreen-line.com",
	"oocl.com", "cosco-shipping.com", "yangming.com", "one-line.com", "zim.com",
	"hmm21.com", "pilship.com", "wanhai.com", "sitcline.com",
}

// customsBrokerDomainHints and other sender-category heuristics are kept
// intentionally small; the config table is expected to carry the bulk of
// real-world entries.
var customsBrokerDomainHints = []string{"customs", "broker", "cbp.gov"}
var customerDomainHints []string // empty: customer category resolved by elimination, not hints

func minConfidenceForCascadeSufficiency() int {
	return domain.LowConfidenceThreshold
}

func lowerContains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
