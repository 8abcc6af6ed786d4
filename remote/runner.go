package remote

import "context"

// Output is the captured result of a remote command. Output is fully buffered.
type Output struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus int // -1 if the remote side reported no status
}

// Runner runs a single command on the remote host described by a profile.
//
// Run returns an error only when the command could not run to an end, e.g. a
// *ConnectionError, or ErrCancelled once ctx is done. A non-zero exit status is
// not an error, and the captured output is still returned.
type Runner interface {
	Run(ctx context.Context, profile *Profile, command string) (*Output, error)
}
