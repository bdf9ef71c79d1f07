// Package config loads and validates the recast configuration file. Values
// are read from TOML, normalized (path expansion, trimming), and validated
// before any recording resource is touched.
package config
