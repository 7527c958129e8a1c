// Package flagging implements the pipeline's first, cheapest stage: cheap
// deterministic triage on a RawEmail and its RawAttachments before any
// classification, extraction, or LLM/embedding spend. Flagging never fails
// the pipeline — unrecognized shapes fall through with IsResponse and
// IsBusinessDoc left false and are safe for downstream stages to treat as
// non-business, non-response mail.
package flagging
