package remote

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/dux-project/dux/scan"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh/knownhosts"
)

var (
	// ErrCancelled is returned once a remote scan observed cancellation. It is the
	// same value as scan.ErrCancelled, so a Handle reports the Cancelled state.
	ErrCancelled = scan.ErrCancelled

	// ErrNoData is returned when the remote path listed no accessible entry, which
	// is distinct from a connection failure.
	ErrNoData = errors.New("no accessible data at remote path")

	ErrProfileNotFound = errors.New("connection profile not found")
)

// ConnectionErrorReason tells why a connection could not be established.
type ConnectionErrorReason string

const (
	ConnectionAuth        ConnectionErrorReason = "authentication failed"
	ConnectionTimeout     ConnectionErrorReason = "timeout"
	ConnectionUnreachable ConnectionErrorReason = "host unreachable"
	ConnectionHostKey     ConnectionErrorReason = "host key mismatch"
	ConnectionHandshake   ConnectionErrorReason = "handshake failed"
)

// ConnectionError is returned before any output exists, when the remote host
// could not be reached or refused the session.
type ConnectionError struct {
	Host   string
	Reason ConnectionErrorReason
	Err    error
}

func newConnectionError(host string, err error) *ConnectionError {
	return &ConnectionError{host, classify(err), err}
}

func classify(err error) ConnectionErrorReason {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) && len(keyErr.Want) > 0 {
		return ConnectionHostKey
	}

	var netErr net.Error
	if os.IsTimeout(err) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ConnectionTimeout
	}

	message := err.Error()
	switch {
	case strings.Contains(message, "unable to authenticate"), strings.Contains(message, "no supported methods remain"):
		return ConnectionAuth
	case strings.Contains(message, "key mismatch"), strings.Contains(message, "knownhosts"):
		return ConnectionHostKey
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ConnectionUnreachable
	}

	return ConnectionHandshake
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("Connection to %s: %s: %v", e.Host, e.Reason, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommandError is returned when a remote command exited non-zero without any
// usable output.
type CommandError struct {
	Command    string
	ExitStatus int
	Stderr     string
}

func (e *CommandError) Error() string {
	if len(e.Stderr) == 0 {
		return fmt.Sprintf("Remote command %q exited with status %d", e.Command, e.ExitStatus)
	}
	return fmt.Sprintf("Remote command %q exited with status %d: %s", e.Command, e.ExitStatus, e.Stderr)
}
