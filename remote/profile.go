package remote

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// AuthMethod is the way a connection authenticates against the remote host.
type AuthMethod string

const (
	AuthKey      AuthMethod = "key"
	AuthPassword AuthMethod = "password"
	AuthAgent    AuthMethod = "agent"
)

const (
	defaultPort              = 22
	defaultTimeout           = 10 * time.Second
	defaultKeepAliveInterval = 5 * time.Second
	defaultKeepAliveCountMax = 3
)

var validate = validator.New()

// Profile is a resolved connection profile. Credentials are consumed as is and
// never persisted by this package.
type Profile struct {
	ID       string     `json:"id" validate:"required"`
	Name     string     `json:"name"`
	Host     string     `json:"host" validate:"required,hostname_rfc1123|ip"`
	Port     int        `json:"port" validate:"min=1,max=65535"`
	Username string     `json:"username" validate:"required"`
	Auth     AuthMethod `json:"auth" validate:"oneof=key password agent"`
	LastUsed *time.Time `json:"lastUsed,omitempty"`

	// Private key file, defaults to well-known files under ~/.ssh
	KeyPath string `json:"keyPath,omitempty"`
	// Passphrase of an encrypted private key
	Passphrase string `json:"-"`
	Password   string `json:"-" validate:"required_if=Auth password"`

	// known_hosts file, defaults to ~/.ssh/known_hosts
	KnownHosts string `json:"knownHosts,omitempty"`
	// Path to scan when none is specified
	DefaultPath string `json:"defaultPath,omitempty"`

	Timeout           time.Duration `json:"timeout"`           // Connect timeout
	KeepAliveInterval time.Duration `json:"keepAliveInterval"` // Interval between keep-alive requests
	KeepAliveCountMax int           `json:"keepAliveCountMax"` // Unanswered keep-alive requests before disconnecting
}

// Normalize fills defaults for unset fields.
func (p *Profile) Normalize() {
	if p.Port == 0 {
		p.Port = defaultPort
	}

	if len(p.Auth) == 0 {
		p.Auth = AuthKey
	}

	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}

	if p.KeepAliveInterval <= 0 {
		p.KeepAliveInterval = defaultKeepAliveInterval
	}

	if p.KeepAliveCountMax <= 0 {
		p.KeepAliveCountMax = defaultKeepAliveCountMax
	}

	if len(p.KnownHosts) == 0 {
		if home, err := os.UserHomeDir(); err == nil {
			p.KnownHosts = filepath.Join(home, ".ssh", "known_hosts")
		}
	}

	if len(p.ID) == 0 {
		p.ID = fmt.Sprintf("%v@%v:%v", p.Username, p.Host, p.Port)
	}
}

// Validate checks the profile fields after normalization.
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.WithMessage(err, "invalid connection profile")
	}

	return nil
}

// Address returns the host:port to dial.
func (p *Profile) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

func (p *Profile) String() string {
	return fmt.Sprintf("%v@%v", p.Username, p.Address())
}
