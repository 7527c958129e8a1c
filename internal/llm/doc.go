// Package llm provides an optional language-model capability used by two
// call sites: the classification cascade's AI fallback (invoked only when
// the filename/body/subject/keyword passes all miss) and the insight
// engine's optional AI analyzer (invoked only when the engine's gating
// conditions are met). Both call sites treat the capability as optional:
// a nil Classifier/Analyzer, or any error it returns, must never abort the
// pipeline — callers fall back to documentType=unknown or skip the AI
// analysis stage respectively.
//
// The production implementation is backed by AWS Bedrock, repointed at
// structured document classification and shipment insight generation
// instead of open-ended chat.
package llm
