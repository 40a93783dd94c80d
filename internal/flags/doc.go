// Package flags implements feature flags for controlled degradation and
// safe rollouts: kill switches for the insight dependency and a degraded
// mode that sheds optional work.
package flags
