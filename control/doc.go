// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for cnet.
//
// Provides concurrent-safe state handling primitives including:
//   - TOML configuration files with defaults and validation
//   - A snapshot config store with reload hooks
//   - go-metrics instruments and the /metrics handler
//   - Debug probe registration and state export
package control
