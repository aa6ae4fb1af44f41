package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/domain"
)

// LDAPClient implements Client over go-ldap. One instance is shared by all
// requests; every Bind opens a fresh connection.
type LDAPClient struct {
	logger *zap.Logger
}

var _ Client = (*LDAPClient)(nil)

func NewLDAPClient(logger *zap.Logger) *LDAPClient {
	if logger == nil {
		logger = zap.L()
	}
	return &LDAPClient{logger: logger}
}

// Bind dials the configured domain controllers in order and returns the first
// connection that can be established (and service-bound, when bind credentials
// are configured). All failures are classified as ErrUnavailable.
func (c *LDAPClient) Bind(ctx context.Context, cfg ConnConfig) (Conn, error) {
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("%w: no domain controllers configured", ErrUnavailable)
	}

	var lastErr error
	for _, server := range cfg.Servers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		conn, err := c.dial(server, cfg)
		if err != nil {
			c.logger.Warn("domain controller unreachable",
				zap.String("server", server), zap.Error(err))
			lastErr = err
			continue
		}

		if cfg.BindUsername != "" {
			bindDN := qualify(cfg.BindUsername, cfg.AccountSuffix)
			if err := conn.Bind(bindDN, cfg.BindPassword); err != nil {
				conn.Close()
				c.logger.Warn("service bind rejected",
					zap.String("server", server), zap.String("bind_dn", bindDN), zap.Error(err))
				lastErr = err
				continue
			}
		}

		return &ldapConn{conn: conn, baseDN: cfg.BaseDN, suffix: cfg.AccountSuffix}, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *LDAPClient) dial(server string, cfg ConnConfig) (*ldap.Conn, error) {
	host, port, err := splitServer(server, cfg.Port)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: cfg.AllowSelfSigned,
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout}

	var conn *ldap.Conn
	addr := fmt.Sprintf("%s:%d", host, port)
	if cfg.Security == domain.TransportLDAPS {
		conn, err = ldap.DialURL("ldaps://"+addr,
			ldap.DialWithDialer(dialer), ldap.DialWithTLSConfig(tlsConfig))
	} else {
		conn, err = ldap.DialURL("ldap://"+addr, ldap.DialWithDialer(dialer))
	}
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(cfg.Timeout)

	if cfg.Security == domain.TransportStartTLS {
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

type ldapConn struct {
	conn   *ldap.Conn
	baseDN string
	suffix string
}

func (c *ldapConn) Authenticate(username, password string) error {
	err := c.conn.Bind(qualify(username, c.suffix), password)
	if err == nil {
		return nil
	}
	if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (c *ldapConn) FetchAttributes(principal string, attrs []string) (*Record, error) {
	filter := fmt.Sprintf("(&(objectClass=user)(sAMAccountName=%s))", ldap.EscapeFilter(principal))
	if strings.Contains(principal, "@") {
		filter = fmt.Sprintf("(&(objectClass=user)(userPrincipalName=%s))", ldap.EscapeFilter(principal))
	}

	req := ldap.NewSearchRequest(
		c.baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1, 0, false,
		filter,
		attrs,
		nil,
	)

	res, err := c.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) && res != nil && len(res.Entries) > 0 {
			record := NewRecord(res.Entries[0])
			return &record, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}

	record := NewRecord(res.Entries[0])
	return &record, nil
}

func (c *ldapConn) Close() {
	c.conn.Close()
}

// splitServer separates an optional per-server port from a host entry. The
// profile port is the fallback for entries without one; a malformed port makes
// the entry unusable rather than silently dialing the wrong address.
func splitServer(server string, defaultPort int) (string, int, error) {
	host, p, err := net.SplitHostPort(server)
	if err != nil {
		return server, defaultPort, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q in server %q", p, server)
	}
	return host, port, nil
}

// qualify appends the account suffix to a bare account name, mirroring how a
// directory client composes user@suffix for the bind DN. Names that already
// carry a domain are left alone.
func qualify(username, suffix string) string {
	if suffix == "" || strings.Contains(username, "@") {
		return username
	}
	return username + suffix
}
