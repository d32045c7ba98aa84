// Package registry holds the parser descriptors of one application instance.
//
// The Registry maps type ids such as "QOS_ID" or "JOB_INFO" to their
// descriptors. It is filled once at startup by Modules, validated once with
// ValidateRegistry, and only read afterwards, so it may be shared by any
// number of concurrent parse and dump calls.
//
// Validation makes sure that the descriptor tables, which are written by hand
// and grow independently, agree with each other and with the Go records they
// describe before the first call is served.
package registry
