// Package analytics provides read-only access to the historical-average
// warehouse backing the insight engine's context gatherer: shipper
// SI-submission delay, carrier rollover rate, and route transit-delay
// averages.
package analytics
