// Package config loads the application configuration from environment
// variables (STACKDID_ prefix) with an optional YAML file override. Defaults
// live in struct tags; Validate catches contradictions the tags cannot
// express.
package config
