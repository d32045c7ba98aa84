// Package cli is the cobra command tree of slurmcodec. It turns flags into the
// application's configuration, reads and writes documents in the supported
// formats, and maps failures to process exit codes.
package cli
