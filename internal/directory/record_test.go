package directory_test

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/require"

	"github.com/ffarras/multi-ad-login/internal/directory"
)

func TestNewRecordNormalizesEntry(t *testing.T) {
	entry := &ldap.Entry{
		DN: "CN=Jane Doe,OU=Users,DC=corp,DC=example,DC=com",
		Attributes: []*ldap.EntryAttribute{
			{Name: "sAMAccountName", Values: []string{"jdoe"}},
			{Name: "mail", Values: []string{"jdoe@corp.example.com", "jdoe@alias.example.com"}},
			{Name: "givenName", Values: []string{"Jane"}},
			{Name: "sn", Values: []string{"Doe"}},
			{Name: "displayName", Values: []string{"Jane Doe"}},
			{Name: "userPrincipalName", Values: []string{"jdoe@corp.example.com"}},
		},
	}

	record := directory.NewRecord(entry)
	require.Equal(t, "jdoe", record.SAMAccountName)
	// Multi-valued attributes collapse to the first value.
	require.Equal(t, "jdoe@corp.example.com", record.Mail)
	require.Equal(t, "Jane", record.GivenName)
	require.Equal(t, "Doe", record.Surname)
	require.Equal(t, "Jane Doe", record.DisplayName)
	require.Equal(t, "jdoe@corp.example.com", record.UserPrincipalName)
	require.Empty(t, record.ObjectGUID)
}

func TestNewRecordGUIDFromRawBytes(t *testing.T) {
	entry := &ldap.Entry{
		Attributes: []*ldap.EntryAttribute{
			{Name: "sAMAccountName", Values: []string{"jdoe"}},
			{
				Name:       "objectGUID",
				Values:     []string{"\xf2\xba{["},
				ByteValues: [][]byte{{0xf2, 0xba, 0x7b, 0x5b, 0x17, 0x9e, 0x8b, 0x4a, 0xa0, 0x65, 0x7d, 0x0e, 0x4c, 0x6b, 0x9d, 0x21}},
			},
		},
	}

	record := directory.NewRecord(entry)
	require.Equal(t, "f2ba7b5b179e8b4aa0657d0e4c6b9d21", record.ObjectGUID)
}

func TestFormatGUID(t *testing.T) {
	// Canonical string form is upper-cased, not re-encoded.
	canonical := []byte("5b7bbaf2-9e17-4a8b-a065-7d0e4c6b9d21")
	require.Equal(t, "5B7BBAF2-9E17-4A8B-A065-7D0E4C6B9D21", directory.FormatGUID(canonical))

	raw := []byte{0xf2, 0xba, 0x7b, 0x5b}
	require.Equal(t, "f2ba7b5b", directory.FormatGUID(raw))

	require.Empty(t, directory.FormatGUID(nil))
}

func TestRecordComplete(t *testing.T) {
	require.True(t, directory.Record{SAMAccountName: "jdoe", Mail: "jdoe@corp.example.com"}.Complete())
	require.True(t, directory.Record{SAMAccountName: "jdoe", UserPrincipalName: "jdoe@corp.example.com"}.Complete())
	require.False(t, directory.Record{SAMAccountName: "jdoe"}.Complete())
	require.False(t, directory.Record{Mail: "jdoe@corp.example.com"}.Complete())
}

func TestRecordChosenEmail(t *testing.T) {
	record := directory.Record{Mail: "mail@corp.example.com", UserPrincipalName: "upn@corp.example.com"}
	require.Equal(t, "mail@corp.example.com", record.ChosenEmail())

	record.Mail = ""
	require.Equal(t, "upn@corp.example.com", record.ChosenEmail())
}
