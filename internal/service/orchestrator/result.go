package orchestrator

import "github.com/intoglo/shipment-pipeline/internal/pipeline"

// ProcessingResult is ProcessEmail's public contract.
type ProcessingResult struct {
	EmailID         string
	Success         bool
	Stage           pipeline.Stage
	ShipmentID      string
	FieldsExtracted int
	Error           string
}
