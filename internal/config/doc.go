// Package config loads and validates mission-gateway configuration from YAML.
//
// Configuration files support ${VAR_NAME} environment variable expansion and
// duration strings ("30s", "5m") for timing fields. See Load for the entry
// point and Config for the full schema.
package config
