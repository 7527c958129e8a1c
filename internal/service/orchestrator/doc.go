// Package orchestrator sequences the per-email pipeline:
// Flagging -> Classification -> Extraction -> Linking/Shipment mutation ->
// Workflow transition -> Insight refresh, and the batch driver that runs
// it across many emails with a bounded worker pool. It is intentionally
// thin: every real decision lives in the stage service it calls.
package orchestrator
