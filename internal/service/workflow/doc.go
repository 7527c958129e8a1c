// Package workflow advances a Shipment through a configured DAG of states.
// The state table and document/email-type transition table
// are data-driven and cached for up to 10 minutes; transitions are
// validated against nextStates, write their history row before mutating
// the shipment, and never panic on an invalid request — they return a
// structured TransitionError instead.
package workflow
