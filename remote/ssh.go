package remote

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dux-project/dux/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const keepAliveRequest = "keepalive@openssh.com"

var defaultKeyFiles = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// SSHRunner runs every command on a fresh, non-interactive SSH connection that is
// torn down once the command completes. Unknown host keys are accepted and recorded,
// while changed host keys are rejected.
type SSHRunner struct {
	logger *logrus.Logger

	knownHostsMu sync.Mutex
}

var _ Runner = (*SSHRunner)(nil)

// NewSSHRunner creates an SSHRunner.
func NewSSHRunner(logOpt ...common.LogOption) *SSHRunner {
	return &SSHRunner{
		logger: common.NewLogger(logOpt...),
	}
}

// Run implements the Runner interface.
func (r *SSHRunner) Run(ctx context.Context, profile *Profile, command string) (*Output, error) {
	config, closer, err := r.clientConfig(profile)
	if err != nil {
		return nil, err
	}
	defer closer()

	client, err := r.dial(ctx, profile, config)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	stopKeepAlive := r.keepAlive(client, profile)
	defer stopKeepAlive()

	session, err := client.NewSession()
	if err != nil {
		return nil, newConnectionError(profile.Host, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	r.logger.WithFields(logrus.Fields{
		"remote":  profile.String(),
		"command": command,
	}).Debug("Start to run remote command")

	if err = session.Start(command); err != nil {
		return nil, newConnectionError(profile.Host, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		if err := session.Signal(ssh.SIGKILL); err != nil {
			r.logger.WithError(err).WithField("remote", profile.String()).Debug("Failed to kill remote command")
		}
		client.Close()
		<-done
		return nil, errors.WithMessage(ErrCancelled, "remote command terminated")
	case err = <-done:
	}

	output := Output{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *ssh.ExitError
	var missingErr *ssh.ExitMissingError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		output.ExitStatus = exitErr.ExitStatus()
	case errors.As(err, &missingErr):
		output.ExitStatus = -1
	default:
		return nil, newConnectionError(profile.Host, err)
	}

	r.logger.WithFields(logrus.Fields{
		"remote": profile.String(),
		"exit":   output.ExitStatus,
		"stdout": len(output.Stdout),
	}).Debug("Remote command completed")

	return &output, nil
}

func (r *SSHRunner) dial(ctx context.Context, profile *Profile, config *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: profile.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", profile.Address())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, newConnectionError(profile.Host, err)
	}

	// handshake is bounded by the connect timeout too
	if err = conn.SetDeadline(time.Now().Add(profile.Timeout)); err != nil {
		conn.Close()
		return nil, newConnectionError(profile.Host, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, profile.Address(), config)
	if err != nil {
		conn.Close()
		return nil, newConnectionError(profile.Host, err)
	}

	if err = conn.SetDeadline(time.Time{}); err != nil {
		c.Close()
		return nil, newConnectionError(profile.Host, err)
	}

	return ssh.NewClient(c, chans, reqs), nil
}

// keepAlive sends keep-alive requests periodically, and closes the client once
// too many requests are left unanswered.
func (r *SSHRunner) keepAlive(client *ssh.Client, profile *Profile) func() {
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(profile.KeepAliveInterval)
		defer ticker.Stop()

		var missed int

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, _, err := client.SendRequest(keepAliveRequest, true, nil); err != nil {
					missed++
				} else {
					missed = 0
				}

				if missed >= profile.KeepAliveCountMax {
					r.logger.WithField("remote", profile.String()).Warn("Remote host not responding, disconnect")
					client.Close()
					return
				}
			}
		}
	}()

	return func() { close(stop) }
}

func (r *SSHRunner) clientConfig(profile *Profile) (*ssh.ClientConfig, func(), error) {
	closer := func() {}

	hostKeyCallback, err := r.acceptNewHostKey(profile.KnownHosts)
	if err != nil {
		return nil, closer, &ConnectionError{profile.Host, ConnectionHostKey, err}
	}

	config := ssh.ClientConfig{
		User:            profile.Username,
		HostKeyCallback: hostKeyCallback,
		Timeout:         profile.Timeout,
	}

	switch profile.Auth {
	case AuthPassword:
		password := profile.Password
		config.Auth = []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		}
	case AuthAgent:
		socket := os.Getenv("SSH_AUTH_SOCK")
		if len(socket) == 0 {
			err := errors.New("SSH agent not available, SSH_AUTH_SOCK is not set")
			return nil, closer, &ConnectionError{profile.Host, ConnectionAuth, err}
		}

		conn, err := net.Dial("unix", socket)
		if err != nil {
			err = errors.WithMessage(err, "failed to connect to SSH agent")
			return nil, closer, &ConnectionError{profile.Host, ConnectionAuth, err}
		}

		config.Auth = []ssh.AuthMethod{ssh.PublicKeysCallback(agent.NewClient(conn).Signers)}
		closer = func() { conn.Close() }
	default:
		signer, err := loadSigner(profile.KeyPath, profile.Passphrase)
		if err != nil {
			return nil, closer, &ConnectionError{profile.Host, ConnectionAuth, err}
		}
		config.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	}

	return &config, closer, nil
}

func loadSigner(keyPath, passphrase string) (ssh.Signer, error) {
	candidates := []string{keyPath}

	if len(keyPath) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.WithMessage(err, "failed to locate home directory")
		}

		candidates = candidates[:0]
		for _, name := range defaultKeyFiles {
			candidates = append(candidates, filepath.Join(home, ".ssh", name))
		}
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(expandHome(candidate))
		if os.IsNotExist(err) && len(keyPath) == 0 {
			continue
		}

		if err != nil {
			return nil, errors.WithMessagef(err, "failed to read private key %v", candidate)
		}

		var signer ssh.Signer
		if len(passphrase) > 0 {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(data)
		}

		if err != nil {
			return nil, errors.WithMessagef(err, "failed to parse private key %v", candidate)
		}

		return signer, nil
	}

	return nil, errors.New("no private key found under ~/.ssh")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// acceptNewHostKey verifies host keys against the known_hosts file, and appends
// the key of a host that is not listed yet. Callers report its errors as host key
// failures of the connection.
func (r *SSHRunner) acceptNewHostKey(path string) (ssh.HostKeyCallback, error) {
	if len(path) == 0 {
		return nil, errors.New("known_hosts file not specified")
	}

	path = expandHome(path)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.WithMessage(err, "failed to create known_hosts directory")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to open known_hosts file")
	}
	file.Close()

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load known_hosts file")
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := check(hostname, remote, key)

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) || len(keyErr.Want) > 0 {
			return err
		}

		return r.appendKnownHost(path, hostname, key)
	}, nil
}

func (r *SSHRunner) appendKnownHost(path, hostname string, key ssh.PublicKey) error {
	r.knownHostsMu.Lock()
	defer r.knownHostsMu.Unlock()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return errors.WithMessage(err, "failed to open known_hosts file")
	}
	defer file.Close()

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	if _, err = file.WriteString(line + "\n"); err != nil {
		return errors.WithMessage(err, "failed to record host key")
	}

	r.logger.WithField("host", hostname).Info("Permanently added host key to known hosts")

	return nil
}
