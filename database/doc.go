// Package database selects and wires a catalog backend. It dispatches on
// the configured type to the sqlite or postgres implementation, running
// migrations and schema validation on connect.
package database
