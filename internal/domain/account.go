package domain

import "time"

// Metadata keys attached to accounts after a successful directory login.
const (
	MetaExternalObjectID = "external_object_id"
	MetaLastAuthProfile  = "last_auth_profile"
	MetaLastExternalUPN  = "last_external_upn"
)

// Account is the local record a verified directory identity maps onto. The
// login name is the chosen email/UPN, not the directory's short account name.
type Account struct {
	ID           int64
	LoginName    string
	Email        string
	FirstName    string
	LastName     string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
