// Package pipeline holds the cross-stage result and error types shared by
// the orchestrator and every stage service (flagging, classification,
// extraction, linking, workflow, insight). Stages never throw; they return
// an *Error carrying a typed Kind, so the orchestrator can reason about
// failures across stages uniformly regardless of which one produced them.
package pipeline
