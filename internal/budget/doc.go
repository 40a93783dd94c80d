// Package budget tracks token spend for the insight dependency so that a
// runaway request pattern cannot exhaust the daily allowance.
package budget
