package domain

import "time"

// ProcessingStatus tracks an email's progress through the pipeline.
type ProcessingStatus string

const (
	ProcessingPending      ProcessingStatus = "pending"
	ProcessingClassified   ProcessingStatus = "classified"
	ProcessingProcessed    ProcessingStatus = "processed"
	ProcessingNeedsReview  ProcessingStatus = "needs_review"
	ProcessingManualReview ProcessingStatus = "manual_review"
	ProcessingFailed       ProcessingStatus = "failed"
)

// Direction is the inferred sense of an email relative to the forwarder.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// RawEmail is the immutable record fetched by the mail-source adapter.
// The pipeline never mutates these fields; it only reads them.
type RawEmail struct {
	ID                string
	ThreadID          string
	Subject           string
	SenderEmail       string
	SenderDisplayName string
	TrueSenderEmail   string // actual sender before a forwarding hop, if any
	Recipients        []string
	BodyText          string
	Headers           map[string][]string
	ReceivedAt        time.Time
	Labels            []string
	InReplyTo         string
	HasAttachments    bool
	ProcessingStatus  ProcessingStatus
}

// RawAttachment is the immutable record for one attachment on a RawEmail.
// ExtractedText is populated asynchronously by the external PDF/OCR
// extraction service and may be empty when the pipeline runs.
type RawAttachment struct {
	ID            string
	EmailID       string
	Filename      string
	MimeType      string
	SizeBytes     int64
	StorageRef    string
	ExtractedText string
}

// FlaggedEmail overlays cheap, deterministic triage flags on a RawEmail.
type FlaggedEmail struct {
	EmailID           string
	IsResponse        bool
	CleanSubject      string
	Direction         Direction
	ThreadPosition    int
	RespondsToEmailID string
	ContentHash       string
	TrueSenderEmail   string
	FlaggedAt         time.Time
}

// FlaggedAttachment overlays triage flags on a RawAttachment.
type FlaggedAttachment struct {
	AttachmentID     string
	IsSignatureImage bool
	IsBusinessDoc    bool
	FlaggedAt        time.Time
}
