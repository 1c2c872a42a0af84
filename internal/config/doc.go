// Package config loads and validates the YAML pipeline configuration.
package config
