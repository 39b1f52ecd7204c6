// Package config provides environment-based configuration.
//
// Loads from environment variables with defaults, validates required fields
// and numeric ranges. LICENSE_API_URL is the only hard requirement.
package config
