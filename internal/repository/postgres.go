package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ffarras/multi-ad-login/internal/domain"
)

// Compile-time interface assertions.
var (
	_ ProfileRepository = (*PostgresProfileRepo)(nil)
	_ AccountRepository = (*PostgresAccountRepo)(nil)
)

// listSeparator joins domain controllers and account suffixes into the text
// columns, preserving the storage format of existing profile rows.
const listSeparator = ";"

const profileColumns = `id, profile_name, is_default, domain_identifier, base_dn, domain_controllers,
port, use_tls, use_ssl, allow_self_signed, network_timeout, account_suffixes,
bind_username, bind_password, created_at, updated_at`

// PostgresProfileRepo implements ProfileRepository over pgx.
type PostgresProfileRepo struct {
	db *pgxpool.Pool
}

func NewPostgresProfileRepo(pool *pgxpool.Pool) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: pool}
}

func (r *PostgresProfileRepo) Create(ctx context.Context, profile domain.Profile) (int64, error) {
	const query = `
INSERT INTO ad_profiles (profile_name, is_default, domain_identifier, base_dn, domain_controllers,
	port, use_tls, use_ssl, allow_self_signed, network_timeout, account_suffixes,
	bind_username, bind_password)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		profile.ProfileName,
		profile.IsDefault,
		profile.DomainIdentifier,
		profile.BaseDN,
		joinList(profile.DomainControllers),
		profile.Port,
		profile.UseTLS,
		profile.UseSSL,
		profile.AllowSelfSigned,
		profile.NetworkTimeout,
		joinList(profile.AccountSuffixes),
		profile.BindUsername,
		profile.BindPassword,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert profile: %w", err)
	}
	return id, nil
}

func (r *PostgresProfileRepo) Update(ctx context.Context, profile domain.Profile) error {
	const query = `
UPDATE ad_profiles
SET profile_name = $2, is_default = $3, domain_identifier = $4, base_dn = $5,
	domain_controllers = $6, port = $7, use_tls = $8, use_ssl = $9,
	allow_self_signed = $10, network_timeout = $11, account_suffixes = $12,
	bind_username = $13, bind_password = $14, updated_at = now()
WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		profile.ID,
		profile.ProfileName,
		profile.IsDefault,
		profile.DomainIdentifier,
		profile.BaseDN,
		joinList(profile.DomainControllers),
		profile.Port,
		profile.UseTLS,
		profile.UseSSL,
		profile.AllowSelfSigned,
		profile.NetworkTimeout,
		joinList(profile.AccountSuffixes),
		profile.BindUsername,
		profile.BindPassword,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update profile %d: %w", profile.ID, ErrNotFound)
	}
	return nil
}

func (r *PostgresProfileRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM ad_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete profile %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresProfileRepo) GetByID(ctx context.Context, id int64) (domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM ad_profiles WHERE id = $1`
	return r.scanProfile(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresProfileRepo) List(ctx context.Context) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM ad_profiles ORDER BY profile_name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		profile, err := r.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (r *PostgresProfileRepo) GetDefault(ctx context.Context) (domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM ad_profiles WHERE is_default LIMIT 1`
	return r.scanProfile(r.db.QueryRow(ctx, query))
}

func (r *PostgresProfileRepo) GetByDomainIdentifier(ctx context.Context, identifier string) (domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM ad_profiles
WHERE domain_identifier <> '' AND lower(domain_identifier) = lower($1) LIMIT 1`
	return r.scanProfile(r.db.QueryRow(ctx, query, identifier))
}

func (r *PostgresProfileRepo) ClearDefault(ctx context.Context, exceptID int64) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE ad_profiles SET is_default = FALSE, updated_at = now() WHERE is_default AND id <> $1`,
		exceptID,
	); err != nil {
		return fmt.Errorf("clear default profiles: %w", err)
	}
	return nil
}

func (r *PostgresProfileRepo) scanProfile(row pgx.Row) (domain.Profile, error) {
	var (
		p           domain.Profile
		controllers string
		suffixes    string
	)
	err := row.Scan(
		&p.ID,
		&p.ProfileName,
		&p.IsDefault,
		&p.DomainIdentifier,
		&p.BaseDN,
		&controllers,
		&p.Port,
		&p.UseTLS,
		&p.UseSSL,
		&p.AllowSelfSigned,
		&p.NetworkTimeout,
		&suffixes,
		&p.BindUsername,
		&p.BindPassword,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, fmt.Errorf("profile: %w", ErrNotFound)
		}
		return domain.Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	p.DomainControllers = splitList(controllers)
	p.AccountSuffixes = splitList(suffixes)
	return p, nil
}

const accountColumns = `id, login_name, email, first_name, last_name, display_name, password_hash, role, created_at, updated_at`

// PostgresAccountRepo implements AccountRepository over pgx. Audit metadata
// lives in a key/value side table keyed by account id.
type PostgresAccountRepo struct {
	db *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: pool}
}

func (r *PostgresAccountRepo) GetByExternalID(ctx context.Context, externalID string) (domain.Account, error) {
	query := `
SELECT ` + prefixColumns("a", accountColumns) + `
FROM accounts a
JOIN account_metadata m ON m.account_id = a.id
WHERE m.meta_key = $1 AND m.meta_value = $2
LIMIT 1`
	return r.scanAccount(r.db.QueryRow(ctx, query, domain.MetaExternalObjectID, externalID))
}

func (r *PostgresAccountRepo) GetByLoginName(ctx context.Context, loginName string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE login_name = $1 LIMIT 1`
	return r.scanAccount(r.db.QueryRow(ctx, query, loginName))
}

func (r *PostgresAccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 LIMIT 1`
	return r.scanAccount(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresAccountRepo) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	query := `
INSERT INTO accounts (id, login_name, email, first_name, last_name, display_name, password_hash, role)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + accountColumns
	return r.scanAccount(r.db.QueryRow(ctx, query,
		account.ID,
		account.LoginName,
		account.Email,
		account.FirstName,
		account.LastName,
		account.DisplayName,
		account.PasswordHash,
		account.Role,
	))
}

func (r *PostgresAccountRepo) Update(ctx context.Context, account domain.Account) (domain.Account, error) {
	query := `
UPDATE accounts
SET login_name = $2, email = $3, first_name = $4, last_name = $5,
	display_name = $6, password_hash = $7, role = $8, updated_at = now()
WHERE id = $1
RETURNING ` + accountColumns
	return r.scanAccount(r.db.QueryRow(ctx, query,
		account.ID,
		account.LoginName,
		account.Email,
		account.FirstName,
		account.LastName,
		account.DisplayName,
		account.PasswordHash,
		account.Role,
	))
}

func (r *PostgresAccountRepo) SetMetadata(ctx context.Context, accountID int64, key, value string) error {
	const query = `
INSERT INTO account_metadata (account_id, meta_key, meta_value)
VALUES ($1, $2, $3)
ON CONFLICT (account_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`
	if _, err := r.db.Exec(ctx, query, accountID, key, value); err != nil {
		return fmt.Errorf("set account metadata %q: %w", key, err)
	}
	return nil
}

func (r *PostgresAccountRepo) GetMetadata(ctx context.Context, accountID int64, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT meta_value FROM account_metadata WHERE account_id = $1 AND meta_key = $2`,
		accountID, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("account metadata %q: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("get account metadata %q: %w", key, err)
	}
	return value, nil
}

func (r *PostgresAccountRepo) scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.LoginName,
		&a.Email,
		&a.FirstName,
		&a.LastName,
		&a.DisplayName,
		&a.PasswordHash,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, fmt.Errorf("account: %w", ErrNotFound)
		}
		return domain.Account{}, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func joinList(values []string) string {
	return strings.Join(values, listSeparator)
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, listSeparator)
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
