// Package domain holds the core entities of the shipment materialization
// pipeline: raw email/attachment records, the flags and classifications
// derived from them, extracted entities, the Shipment aggregate, document
// links, workflow configuration/history, and insights.
//
// Types in this package carry no behavior beyond small invariant helpers.
// Business logic lives in internal/service/*; persistence lives in
// internal/repository/postgres.
package domain
