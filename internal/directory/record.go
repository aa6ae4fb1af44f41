package directory

import (
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Attributes fetched for every authenticated user. Requested exactly as the
// directory names them; the normalized Record uses lower-case keys.
var UserAttributes = []string{
	"sAMAccountName",
	"mail",
	"givenName",
	"sn",
	"displayName",
	"objectGUID",
	"userPrincipalName",
}

// Record is the normalized attribute bag produced after a successful
// bind+fetch. Multi-valued directory attributes are collapsed to their first
// value. Transient; never persisted.
type Record struct {
	SAMAccountName    string
	Mail              string
	GivenName         string
	Surname           string
	DisplayName       string
	ObjectGUID        string
	UserPrincipalName string
}

// Complete reports whether the record carries the minimum fields needed to
// reconcile a local account.
func (r Record) Complete() bool {
	if r.SAMAccountName == "" {
		return false
	}
	return r.Mail != "" || r.UserPrincipalName != ""
}

// ChosenEmail returns the address used as both local login name and email:
// mail when present, otherwise the user principal name.
func (r Record) ChosenEmail() string {
	if r.Mail != "" {
		return r.Mail
	}
	return r.UserPrincipalName
}

// NewRecord normalizes a raw directory entry. Attribute names are matched
// case-insensitively and multi-valued attributes collapse to the first value.
// The object GUID is normalized from either its canonical string form or raw
// bytes.
func NewRecord(entry *ldap.Entry) Record {
	values := make(map[string]string, len(entry.Attributes))
	var rawGUID []byte
	for _, attr := range entry.Attributes {
		name := strings.ToLower(attr.Name)
		if name == "objectguid" && len(attr.ByteValues) > 0 {
			rawGUID = attr.ByteValues[0]
			continue
		}
		if _, ok := values[name]; ok || len(attr.Values) == 0 {
			continue
		}
		values[name] = attr.Values[0]
	}

	return Record{
		SAMAccountName:    values["samaccountname"],
		Mail:              values["mail"],
		GivenName:         values["givenname"],
		Surname:           values["sn"],
		DisplayName:       values["displayname"],
		ObjectGUID:        FormatGUID(rawGUID),
		UserPrincipalName: values["userprincipalname"],
	}
}

var canonicalGUID = regexp.MustCompile(`^[0-9A-Fa-f]{8}-([0-9A-Fa-f]{4}-){3}[0-9A-Fa-f]{12}$`)

// FormatGUID produces the stable external identity key for an account. A
// canonical 8-4-4-4-12 hex string is upper-cased unchanged; anything else is
// treated as raw bytes and hex-encoded.
func FormatGUID(guid []byte) string {
	if len(guid) == 0 {
		return ""
	}
	if canonicalGUID.Match(guid) {
		return strings.ToUpper(string(guid))
	}
	return hex.EncodeToString(guid)
}
