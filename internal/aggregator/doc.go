// Package aggregator fans a request out to multiple guarded dependencies
// and merges the outcomes under a per-dependency criticality policy: a
// critical failure aborts the whole aggregation, a non-critical failure is
// absorbed into the "UNKNOWN" sentinel.
package aggregator
