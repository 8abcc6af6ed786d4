package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	testUser     = "alice"
	testPassword = "secret"
)

// sshServer is an in-process SSH server that runs a few fixed commands:
// "echo hello", "exit 3" and "sleep", which blocks until killed.
type sshServer struct {
	addr    string
	port    int
	signer  ssh.Signer
	started chan struct{}
}

func newSigner(t *testing.T) ssh.Signer {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := ssh.NewSignerFromKey(key)
	require.NoError(t, err)

	return signer
}

func newSSHServer(t *testing.T) *sshServer {
	server := sshServer{
		signer:  newSigner(t),
		started: make(chan struct{}, 1),
	}

	config := ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == testUser && string(password) == testPassword {
				return nil, nil
			}
			return nil, errors.New("password rejected")
		},
	}
	config.AddHostKey(server.signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	server.addr = listener.Addr().String()
	server.port = listener.Addr().(*net.TCPAddr).Port

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go server.serve(conn, &config)
		}
	}()

	return &server
}

func (s *sshServer) serve(conn net.Conn, config *ssh.ServerConfig) {
	serverConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	defer serverConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			return
		}

		go s.session(channel, requests)
	}
}

func (s *sshServer) session(channel ssh.Channel, requests <-chan *ssh.Request) {
	closed := make(chan struct{})
	killed := make(chan struct{})
	defer close(closed)

	for req := range requests {
		var payload struct{ Command string }

		switch req.Type {
		case "exec":
			err := ssh.Unmarshal(req.Payload, &payload)
			req.Reply(err == nil, nil)
			if err == nil {
				go s.exec(channel, payload.Command, killed, closed)
			}
		case "signal":
			select {
			case <-killed:
			default:
				close(killed)
			}
			if req.WantReply {
				req.Reply(true, nil)
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

func (s *sshServer) exec(channel ssh.Channel, command string, killed, closed <-chan struct{}) {
	defer channel.Close()

	var status uint32

	switch command {
	case "echo hello":
		channel.Write([]byte("hello\n"))
	case "exit 3":
		channel.Stderr().Write([]byte("failed\n"))
		status = 3
	case "sleep":
		s.started <- struct{}{}
		select {
		case <-killed:
		case <-closed:
		}
		return
	default:
		status = 127
	}

	channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
}

func newTestProfile(t *testing.T, server *sshServer, password string) *Profile {
	profile := Profile{
		Host:       "127.0.0.1",
		Port:       server.port,
		Username:   testUser,
		Auth:       AuthPassword,
		Password:   password,
		KnownHosts: filepath.Join(t.TempDir(), "ssh", "known_hosts"),
		Timeout:    5 * time.Second,
	}
	profile.Normalize()

	return &profile
}

func TestSSHRunnerPassword(t *testing.T) {
	server := newSSHServer(t)
	profile := newTestProfile(t, server, testPassword)
	runner := NewSSHRunner()

	output, err := runner.Run(context.Background(), profile, "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(output.Stdout))
	assert.Equal(t, 0, output.ExitStatus)

	output, err = runner.Run(context.Background(), profile, "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, output.ExitStatus)
	assert.Equal(t, "failed\n", string(output.Stderr))
}

func TestSSHRunnerWrongPassword(t *testing.T) {
	server := newSSHServer(t)
	profile := newTestProfile(t, server, "wrong")

	_, err := NewSSHRunner().Run(context.Background(), profile, "echo hello")

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), err)
	assert.Equal(t, ConnectionAuth, connErr.Reason)
	assert.Equal(t, "127.0.0.1", connErr.Host)
}

func TestSSHRunnerKnownHosts(t *testing.T) {
	server := newSSHServer(t)
	profile := newTestProfile(t, server, testPassword)
	runner := NewSSHRunner()

	_, err := runner.Run(context.Background(), profile, "echo hello")
	require.NoError(t, err)

	recorded := knownhosts.Line([]string{knownhosts.Normalize(server.addr)}, server.signer.PublicKey()) + "\n"

	data, err := os.ReadFile(profile.KnownHosts)
	require.NoError(t, err)
	assert.Equal(t, recorded, string(data))

	// known host is not recorded twice
	_, err = runner.Run(context.Background(), profile, "echo hello")
	require.NoError(t, err)

	data, err = os.ReadFile(profile.KnownHosts)
	require.NoError(t, err)
	assert.Equal(t, recorded, string(data))

	// key of the same address changed
	changed := knownhosts.Line([]string{knownhosts.Normalize(server.addr)}, newSigner(t).PublicKey()) + "\n"
	require.NoError(t, os.WriteFile(profile.KnownHosts, []byte(changed), 0600))

	_, err = runner.Run(context.Background(), profile, "echo hello")

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), err)
	assert.Equal(t, ConnectionHostKey, connErr.Reason)

	data, err = os.ReadFile(profile.KnownHosts)
	require.NoError(t, err)
	assert.Equal(t, changed, string(data))
}

func TestSSHRunnerKnownHostsUnavailable(t *testing.T) {
	server := newSSHServer(t)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	for _, path := range []string{"", filepath.Join(blocker, "known_hosts")} {
		profile := newTestProfile(t, server, testPassword)
		profile.KnownHosts = path

		_, err := NewSSHRunner().Run(context.Background(), profile, "echo hello")

		var connErr *ConnectionError
		require.True(t, errors.As(err, &connErr), err)
		assert.Equal(t, ConnectionHostKey, connErr.Reason, path)
		assert.Equal(t, "127.0.0.1", connErr.Host)
	}
}

func TestSSHRunnerCancel(t *testing.T) {
	server := newSSHServer(t)
	profile := newTestProfile(t, server, testPassword)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-server.started
		cancel()
	}()

	start := time.Now()
	_, err := NewSSHRunner().Run(ctx, profile, "sleep")
	assert.True(t, errors.Is(err, ErrCancelled), err)
	assert.Less(t, time.Since(start), profile.Timeout)
}

func TestSSHRunnerUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	profile := Profile{Host: "127.0.0.1", Port: port, Username: testUser, Auth: AuthPassword, Password: testPassword,
		KnownHosts: filepath.Join(t.TempDir(), "known_hosts")}
	profile.Normalize()
	require.Equal(t, "127.0.0.1:"+strconv.Itoa(port), profile.Address())

	_, err = NewSSHRunner().Run(context.Background(), &profile, "echo hello")

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), err)
	assert.Equal(t, ConnectionUnreachable, connErr.Reason)
}
