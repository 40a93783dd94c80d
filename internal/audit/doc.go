// Package audit keeps a bounded in-memory trail of aggregation outcomes
// with integrity hashes, so any response the service produced can be
// reconstructed and verified.
package audit
