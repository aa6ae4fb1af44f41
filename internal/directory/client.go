package directory

import (
	"context"
	"errors"
	"time"

	"github.com/ffarras/multi-ad-login/internal/domain"
)

// Classified connection errors. Callers branch on these two: a credentials
// rejection must never be retried, an unavailable directory is an operational
// condition.
var (
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
	ErrUnavailable        = errors.New("directory: unavailable")
)

// ConnConfig carries the per-profile connection parameters for one
// authentication attempt.
type ConnConfig struct {
	Servers         []string
	Port            int
	Security        domain.TransportSecurity
	AllowSelfSigned bool
	Timeout         time.Duration
	BaseDN          string
	BindUsername    string
	BindPassword    string
	AccountSuffix   string
}

// Conn is an established, optionally service-bound directory connection.
// Connections are single-use per authentication attempt and never shared.
type Conn interface {
	// Authenticate validates the end-user credential pair. A clean bind
	// rejection returns ErrInvalidCredentials; infrastructure failures
	// return errors matching ErrUnavailable.
	Authenticate(username, password string) error
	// FetchAttributes looks up the principal under the base DN and returns
	// its normalized record, or nil when no entry matches.
	FetchAttributes(principal string, attrs []string) (*Record, error)
	Close()
}

// Client is the directory-client capability consumed by the authentication
// flow. The production implementation speaks LDAP; tests substitute fakes.
type Client interface {
	Bind(ctx context.Context, cfg ConnConfig) (Conn, error)
}
