// Package insight implements the Action/Insight engine: a
// context gatherer, a rule-driven pattern detector, an optional AI
// analyzer, a synthesizer that dedupes and ranks candidate insights, and
// the separate action-determination path invoked per inbound document
// email.
package insight
