// Package service holds the account rules that sit between the HTTP
// handlers and the account store:
//
//	AuthHandler (HTTP) → AuthService (account rules) → AccountRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// An account answers "who is this?". What that person does on the platform
// (profile, connections, messages, games) lives in the session package and
// is keyed on the same ID.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/auth"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/repository"
)

// AuthService registers and signs in accounts and issues their tokens.
type AuthService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the account and its freshly issued token, so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// normalizeEmail trims and lowercases email and checks that it is a bare
// address ("a@b.c", not "Name <a@b.c>").
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "email is not a valid address")
	}
	return email, nil
}

// Register creates an email + password account and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordTooShort):
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
		case errors.Is(err, auth.ErrPasswordTooLong):
			return nil, apperror.ValidationFailed("password", "password is too long")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	account := &model.Account{Email: email, PasswordHash: hash}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "an account with this email already exists",
				Field:   "email",
			}
		}
		return nil, fmt.Errorf("service/auth: creating account: %w", err)
	}

	s.logger.Info("account registered", slog.String("accountID", account.ID))
	return s.issue(account)
}

// Login checks email and password. Every failure, whether the email is
// unknown, the account has no password, or the password is wrong, comes back
// as the same apperror.Unauthenticated so callers cannot probe for accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.Unauthenticated()
	}

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/auth: looking up account: %w", err)
	}
	if account.PasswordHash == "" {
		return nil, apperror.Unauthenticated()
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Debug("failed login", slog.String("accountID", account.ID))
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("account signed in", slog.String("accountID", account.ID))
	return s.issue(account)
}

// LoginOrRegisterGitHub handles the OAuth callback: it creates the account
// on first login, links it to an existing email account when the addresses
// match, and refreshes login and avatar on later logins.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}

	account := &model.Account{
		Email:       strings.ToLower(strings.TrimSpace(ghUser.Email)),
		GitHubID:    ghUser.ID,
		GitHubLogin: ghUser.Login,
		AvatarURL:   ghUser.AvatarURL,
	}
	if err := s.accounts.UpsertGitHubAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("service/auth: upserting account (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("account authenticated via GitHub",
		slog.String("accountID", account.ID),
		slog.String("login", account.GitHubLogin),
	)
	return s.issue(account)
}

// GetAccount returns the account behind an authenticated request.
func (s *AuthService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "account ID is required")
	}
	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching account %s: %w", id, err)
	}
	return account, nil
}

func (s *AuthService) issue(account *model.Account) (*AuthResult, error) {
	token, err := s.tokens.Generate(account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for account %s: %w", account.ID, err)
	}
	return &AuthResult{Account: account, Token: token}, nil
}
