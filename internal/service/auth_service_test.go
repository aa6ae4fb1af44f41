package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/directory"
	"github.com/ffarras/multi-ad-login/internal/domain"
	"github.com/ffarras/multi-ad-login/internal/profile"
	"github.com/ffarras/multi-ad-login/internal/repository"
	"github.com/ffarras/multi-ad-login/internal/service"
)

func newAuthFixture(profiles []domain.Profile, client *fakeClient) *service.AuthService {
	repo := &memoryProfileRepo{profiles: profiles}
	resolver := profile.NewResolver(repo, zap.NewNop())
	return service.NewAuthService(resolver, client, zap.NewNop())
}

func defaultProfile() domain.Profile {
	return domain.Profile{
		ID:                1,
		ProfileName:       "corp",
		IsDefault:         true,
		DomainIdentifier:  "corp.example.com",
		BaseDN:            "DC=corp,DC=example,DC=com",
		DomainControllers: []string{"dc1.corp.example.com"},
		Port:              389,
		NetworkTimeout:    5,
	}
}

func completeRecord() *directory.Record {
	return &directory.Record{
		SAMAccountName:    "jdoe",
		Mail:              "jdoe@corp.example.com",
		GivenName:         "Jane",
		Surname:           "Doe",
		DisplayName:       "Jane Doe",
		ObjectGUID:        "5B7BBAF2-9E17-4A8B-A065-7D0E4C6B9D21",
		UserPrincipalName: "jdoe@corp.example.com",
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	client := &fakeClient{conn: &fakeConn{record: completeRecord()}}
	auth := newAuthFixture([]domain.Profile{defaultProfile()}, client)

	result := auth.Authenticate(context.Background(), nil, "jdoe", "hunter2")
	require.True(t, result.Authenticated())
	require.Equal(t, service.StatusSuccess, result.Status)
	require.Equal(t, "corp", result.ProfileName)
	require.Equal(t, "jdoe", result.Record.SAMAccountName)
	require.Equal(t, "jdoe", client.conn.authUsername)
	require.True(t, client.conn.closed)
}

func TestAuthenticateEmptyCredentialsSkipDirectory(t *testing.T) {
	client := &fakeClient{conn: &fakeConn{record: completeRecord()}}
	auth := newAuthFixture([]domain.Profile{defaultProfile()}, client)

	for _, creds := range [][2]string{{"", "secret"}, {"jdoe", ""}, {"  ", "secret"}} {
		result := auth.Authenticate(context.Background(), nil, creds[0], creds[1])
		require.Equal(t, service.StatusInvalidCredentials, result.Status)
	}
	require.Zero(t, client.bindCalls)
}

func TestAuthenticateNoProfile(t *testing.T) {
	client := &fakeClient{conn: &fakeConn{record: completeRecord()}}
	auth := newAuthFixture(nil, client)

	result := auth.Authenticate(context.Background(), nil, "jdoe", "hunter2")
	require.Equal(t, service.StatusNoProfile, result.Status)
	require.Zero(t, client.bindCalls)
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	client := &fakeClient{conn: &fakeConn{authErr: directory.ErrInvalidCredentials}}
	auth := newAuthFixture([]domain.Profile{defaultProfile()}, client)

	result := auth.Authenticate(context.Background(), nil, "jdoe", "wrong")
	require.Equal(t, service.StatusInvalidCredentials, result.Status)
	require.False(t, result.Authenticated())
}

func TestAuthenticateDirectoryUnreachable(t *testing.T) {
	client := &fakeClient{bindErr: fmt.Errorf("dial dc1: %w", directory.ErrUnavailable)}
	auth := newAuthFixture([]domain.Profile{defaultProfile()}, client)

	result := auth.Authenticate(context.Background(), nil, "jdoe", "hunter2")
	require.Equal(t, service.StatusDirectoryUnavailable, result.Status)
}

func TestAuthenticateFetchFailure(t *testing.T) {
	client := &fakeClient{conn: &fakeConn{fetchErr: errors.New("search timed out")}}
	auth := newAuthFixture([]domain.Profile{defaultProfile()}, client)

	result := auth.Authenticate(context.Background(), nil, "jdoe", "hunter2")
	require.Equal(t, service.StatusDirectoryUnavailable, result.Status)
}

func TestAuthenticateNoEntryAfterBind(t *testing.T) {
	client := &fakeClient{conn: &fakeConn{}}
	auth := newAuthFixture([]domain.Profile{defaultProfile()}, client)

	result := auth.Authenticate(context.Background(), nil, "jdoe", "hunter2")
	require.Equal(t, service.StatusDirectoryUnavailable, result.Status)
}

func TestAuthenticateIncompleteRecord(t *testing.T) {
	record := completeRecord()
	record.SAMAccountName = ""
	client := &fakeClient{conn: &fakeConn{record: record}}
	auth := newAuthFixture([]domain.Profile{defaultProfile()}, client)

	result := auth.Authenticate(context.Background(), nil, "jdoe", "hunter2")
	require.Equal(t, service.StatusIncompleteData, result.Status)
}

func TestAuthenticatePriorSuccessShortCircuits(t *testing.T) {
	client := &fakeClient{conn: &fakeConn{record: completeRecord()}}
	auth := newAuthFixture([]domain.Profile{defaultProfile()}, client)

	prior := &service.Result{Status: service.StatusSuccess, ProfileName: "upstream"}
	result := auth.Authenticate(context.Background(), prior, "jdoe", "hunter2")
	require.Same(t, prior, result)
	require.Zero(t, client.bindCalls)
}

func TestAuthenticatePriorFailureIsRetried(t *testing.T) {
	client := &fakeClient{conn: &fakeConn{record: completeRecord()}}
	auth := newAuthFixture([]domain.Profile{defaultProfile()}, client)

	prior := &service.Result{Status: service.StatusInvalidCredentials}
	result := auth.Authenticate(context.Background(), prior, "jdoe", "hunter2")
	require.True(t, result.Authenticated())
	require.Equal(t, 1, client.bindCalls)
}

func TestAuthenticateConnConfigFromProfile(t *testing.T) {
	p := defaultProfile()
	p.UseTLS = true
	p.UseSSL = true
	p.AllowSelfSigned = true
	p.Port = 636
	p.NetworkTimeout = 12
	p.AccountSuffixes = []string{"@corp.example.com", "@legacy.example.com"}
	p.BindUsername = "svc-bind"
	p.BindPassword = "bind-secret"

	client := &fakeClient{conn: &fakeConn{record: completeRecord()}}
	auth := newAuthFixture([]domain.Profile{p}, client)

	result := auth.Authenticate(context.Background(), nil, "jdoe", "hunter2")
	require.True(t, result.Authenticated())

	cfg := client.lastConfig
	require.Equal(t, []string{"dc1.corp.example.com"}, cfg.Servers)
	require.Equal(t, 636, cfg.Port)
	// STARTTLS takes precedence when both transport flags are set.
	require.Equal(t, domain.TransportStartTLS, cfg.Security)
	require.True(t, cfg.AllowSelfSigned)
	require.Equal(t, 12*time.Second, cfg.Timeout)
	require.Equal(t, "DC=corp,DC=example,DC=com", cfg.BaseDN)
	require.Equal(t, "svc-bind", cfg.BindUsername)
	require.Equal(t, "bind-secret", cfg.BindPassword)
	require.Equal(t, "@corp.example.com", cfg.AccountSuffix)
}

func TestAuthenticateSuffixFallsBackToUPNDomain(t *testing.T) {
	p := defaultProfile()
	p.IsDefault = false
	p.AccountSuffixes = nil

	client := &fakeClient{conn: &fakeConn{record: completeRecord()}}
	auth := newAuthFixture([]domain.Profile{p}, client)

	result := auth.Authenticate(context.Background(), nil, "jdoe@corp.example.com", "hunter2")
	require.True(t, result.Authenticated())
	require.Equal(t, "@corp.example.com", client.lastConfig.AccountSuffix)
	require.Equal(t, "jdoe", client.conn.authUsername)
}

type fakeClient struct {
	conn       *fakeConn
	bindErr    error
	bindCalls  int
	lastConfig directory.ConnConfig
}

func (f *fakeClient) Bind(ctx context.Context, cfg directory.ConnConfig) (directory.Conn, error) {
	f.bindCalls++
	f.lastConfig = cfg
	if f.bindErr != nil {
		return nil, f.bindErr
	}
	return f.conn, nil
}

type fakeConn struct {
	record       *directory.Record
	authErr      error
	fetchErr     error
	authUsername string
	closed       bool
}

func (f *fakeConn) Authenticate(username, password string) error {
	f.authUsername = username
	return f.authErr
}

func (f *fakeConn) FetchAttributes(principal string, attrs []string) (*directory.Record, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.record, nil
}

func (f *fakeConn) Close() {
	f.closed = true
}

type memoryProfileRepo struct {
	profiles []domain.Profile
}

func (m *memoryProfileRepo) Create(ctx context.Context, p domain.Profile) (int64, error) {
	p.ID = int64(len(m.profiles) + 1)
	m.profiles = append(m.profiles, p)
	return p.ID, nil
}

func (m *memoryProfileRepo) Update(ctx context.Context, p domain.Profile) error {
	for i := range m.profiles {
		if m.profiles[i].ID == p.ID {
			m.profiles[i] = p
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memoryProfileRepo) Delete(ctx context.Context, id int64) error {
	for i := range m.profiles {
		if m.profiles[i].ID == id {
			m.profiles = append(m.profiles[:i], m.profiles[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memoryProfileRepo) GetByID(ctx context.Context, id int64) (domain.Profile, error) {
	for _, p := range m.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Profile{}, repository.ErrNotFound
}

func (m *memoryProfileRepo) List(ctx context.Context) ([]domain.Profile, error) {
	return m.profiles, nil
}

func (m *memoryProfileRepo) GetDefault(ctx context.Context) (domain.Profile, error) {
	for _, p := range m.profiles {
		if p.IsDefault {
			return p, nil
		}
	}
	return domain.Profile{}, repository.ErrNotFound
}

func (m *memoryProfileRepo) GetByDomainIdentifier(ctx context.Context, identifier string) (domain.Profile, error) {
	for _, p := range m.profiles {
		if p.DomainIdentifier != "" && strings.EqualFold(p.DomainIdentifier, identifier) {
			return p, nil
		}
	}
	return domain.Profile{}, repository.ErrNotFound
}

func (m *memoryProfileRepo) ClearDefault(ctx context.Context, exceptID int64) error {
	for i := range m.profiles {
		if m.profiles[i].ID != exceptID {
			m.profiles[i].IsDefault = false
		}
	}
	return nil
}
