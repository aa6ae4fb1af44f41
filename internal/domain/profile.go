package domain

import "time"

// TransportSecurity selects how the connection to a domain controller is
// protected.
type TransportSecurity string

const (
	// TransportNone uses a plain connection on the configured port.
	TransportNone TransportSecurity = "none"
	// TransportStartTLS upgrades a plain connection via STARTTLS.
	TransportStartTLS TransportSecurity = "starttls"
	// TransportLDAPS uses implicit TLS on a dedicated port.
	TransportLDAPS TransportSecurity = "ldaps"
)

// Profile is a named directory-connection configuration. A login is routed to
// exactly one profile: by domain identifier when it is a UPN, otherwise to the
// single default profile.
type Profile struct {
	ID                int64
	ProfileName       string
	IsDefault         bool
	DomainIdentifier  string
	BaseDN            string
	DomainControllers []string
	Port              int
	UseTLS            bool
	UseSSL            bool
	AllowSelfSigned   bool
	NetworkTimeout    int
	AccountSuffixes   []string
	BindUsername      string
	BindPassword      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Security reduces the two stored checkbox flags to one transport mode.
// STARTTLS wins when both are set; the admin surface warns against that
// combination but does not reject it.
func (p Profile) Security() TransportSecurity {
	switch {
	case p.UseTLS:
		return TransportStartTLS
	case p.UseSSL:
		return TransportLDAPS
	default:
		return TransportNone
	}
}

// AccountSuffix returns the first configured suffix, or "" when none is set.
func (p Profile) AccountSuffix() string {
	if len(p.AccountSuffixes) > 0 {
		return p.AccountSuffixes[0]
	}
	return ""
}
