// Package classification implements the classification cascade: for an
// email plus its attachments, decide the single best
// documentType, the emailType, and the sender category. The cascade tries
// progressively weaker signals — attachment filename, PDF body markers,
// subject patterns, body keywords, and finally an optional AI fallback —
// and takes the first sufficient signal. The sender category is derived
// from the sender domain separately and is not used as a documentType
// signal or tie-breaker. On any
// internal error, classification degrades to documentType=unknown,
// confidence=0; it never panics out to the orchestrator.
package classification
