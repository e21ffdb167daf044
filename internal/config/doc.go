// Package config loads the run context, the entity schema and the alias
// table from YAML.
//
// Every problem found while loading is a *Error carrying a code and the
// offending path, so the CLI can reject a bad configuration before any
// record is processed.
package config
