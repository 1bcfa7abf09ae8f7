package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, email, password_hash, github_id, github_login, avatar_url, created_at`

// CreateAccount inserts a new email/password account. ID and CreatedAt are
// filled in when empty. A second account with the same email is a conflict.
func (db *DB) CreateAccount(ctx context.Context, a *model.Account) error {
	if a.ID == "" {
		a.ID = xid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, a.GitHubID, a.GitHubLogin, a.AvatarURL, toNanos(a.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account", a.Email)
		}
		return fmt.Errorf("sqlite: inserting account %s: %w", a.Email, err)
	}
	return nil
}

// GetAccountByID returns apperror.ErrNotFound if no account has that ID.
func (db *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("account", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return a, nil
}

// GetAccountByEmail returns apperror.ErrNotFound if no account has that email.
func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ? AND email != ''`, email)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("account", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting account by email: %w", err)
	}
	return a, nil
}

// UpsertGitHubAccount finds or creates the account behind a GitHub login.
//
// LOOKUP ORDER:
//  1. An account already linked to this GitHub ID: refresh login and avatar.
//  2. An account registered with the same email: link the GitHub ID to it,
//     so someone who signed up with a password can later use GitHub too.
//  3. Otherwise: create a new account with no password.
//
// On return, a holds the stored record (including its ID).
func (db *DB) UpsertGitHubAccount(ctx context.Context, a *model.Account) error {
	// github_id 0 means "not linked" in the table, so it must never be looked up.
	if a.GitHubID == 0 {
		return apperror.ValidationFailed("githubId", "GitHub ID is required")
	}

	existing, err := db.lookupForGitHub(ctx, a.GitHubID, a.Email)
	if err != nil {
		return err
	}

	if existing == nil {
		a.ID = xid.New().String()
		a.PasswordHash = ""
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		return db.CreateAccount(ctx, a)
	}

	existing.GitHubID = a.GitHubID
	existing.GitHubLogin = a.GitHubLogin
	existing.AvatarURL = a.AvatarURL
	if existing.Email == "" {
		existing.Email = a.Email
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE accounts SET email = ?, github_id = ?, github_login = ?, avatar_url = ? WHERE id = ?`,
		existing.Email, existing.GitHubID, existing.GitHubLogin, existing.AvatarURL, existing.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating account %s: %w", existing.ID, err)
	}

	*a = *existing
	return nil
}

func (db *DB) lookupForGitHub(ctx context.Context, githubID int64, email string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE github_id = ?`, githubID)
	a, err := scanAccount(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: looking up account by github_id %d: %w", githubID, err)
	}

	if email == "" {
		return nil, nil
	}
	a, err = db.GetAccountByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	var (
		a       model.Account
		created int64
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.GitHubID, &a.GitHubLogin, &a.AvatarURL, &created); err != nil {
		return nil, err
	}
	a.CreatedAt = fromNanos(created)
	return &a, nil
}
