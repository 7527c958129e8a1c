// Package embedding provides an optional text-embedding capability used by
// the action-determination step's vector-intent check (priority (d)): given
// an inbound document email's body text, compute a vector and compare it
// against a set of pre-embedded anchor texts by cosine similarity. An
// embedding-backed action is only returned when the best match clears a
// similarity floor with a margin over the runner-up.
//
// Like internal/llm, this is an injected, optional capability: a nil or
// no-op embedder means the pipeline simply skips straight to priority (e).
package embedding
