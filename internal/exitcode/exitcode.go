// Package exitcode defines process exit codes.
package exitcode

const (
	// Success indicates a clean run or interrupt.
	Success = 0

	// Failure covers everything else: bad arguments, missing or malformed
	// config, missing credentials, or a failed sync cycle.
	Failure = 1
)
