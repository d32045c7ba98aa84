// Package app wires the codec together: it builds and validates the descriptor
// registry, loads the catalogs, counts conversions and exposes parse, dump and
// schema generation to entrypoints like the CLI.
package app
