package pipeline

import "fmt"

// Kind is the closed taxonomy of failure categories a stage can report. It
// is not a Go error type hierarchy (errors.As would invite callers to
// branch on concrete types); it is a tag carried on a single wrapper so
// that the orchestrator and batch driver can make the same
// recoverable/fatal decision regardless of which stage produced it.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindLowConfidence      Kind = "low_confidence"
	KindValidationFailure  Kind = "validation_failure"
	KindConflictingWrite   Kind = "conflicting_write"
	KindExternalUnavailable Kind = "external_unavailable"
	KindDataIntegrity      Kind = "data_integrity"
	KindUnknown            Kind = "unknown_failure"
)

// Stage names the point in the pipeline a failure occurred, used to report
// ProcessingResult.Stage and to decide how far a retry should rewind.
type Stage string

const (
	StageFlagging       Stage = "flagging"
	StageClassification Stage = "classification"
	StageExtraction     Stage = "extraction"
	StageLinking        Stage = "linking"
	StageWorkflow       Stage = "workflow"
	StageInsight        Stage = "insight"
)

// Error is the structured failure every stage returns instead of a bare
// error. The orchestrator's top-level recover() converts any residual
// panic into one of these with Kind = KindUnknown: stage helpers never
// throw to the orchestrator, and the orchestrator never lets anything
// escape the top level.
type Error struct {
	Kind    Kind
	Stage   Stage
	EmailID string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s at %s (email %s): %s: %v", e.Kind, e.Stage, e.EmailID, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s at %s (email %s): %s", e.Kind, e.Stage, e.EmailID, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a pipeline.Error for the given kind/stage/email.
func New(kind Kind, stage Stage, emailID, message string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, EmailID: emailID, Message: message, Cause: cause}
}
