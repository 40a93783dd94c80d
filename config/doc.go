// Package config handles loading and parsing of configuration from YAML
// files and environment variables. It defines the application configuration
// structure including server settings, circuit breaker defaults,
// per-dependency policies, health probe intervals, and the insight token
// budget.
package config
