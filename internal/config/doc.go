// Package config holds tracewright configuration.
//
// Configuration is assembled from built-in defaults, an optional TOML file
// and TRACEWRIGHT_* environment variables, in increasing precedence. Values
// that may change while a session runs are published as observable entries
// in Settings.
package config
