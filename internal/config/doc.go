// Package config defines the application's configuration structure and
// loading. Configuration comes from environment variables with the
// NEXUSDATA_ prefix and an optional YAML file, with struct-tag validation
// applied after unmarshalling.
package config
