package account

import (
	"auction-market/internal/auctionerrors"
	"auction-market/internal/models"
	"auction-market/internal/repository"
	"auction-market/internal/session"
	"auction-market/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// AccountService registers accounts and issues the session tokens that authenticate callers
type AccountService struct {
	repo       repository.AuctionDB
	sessions   session.Store
	sessionTTL time.Duration
	hashCost   int
	now        func() time.Time
}

// Option configures an AccountService
type Option func(*AccountService)

// WithHashCost overrides the bcrypt cost
func WithHashCost(cost int) Option {
	return func(s *AccountService) { s.hashCost = cost }
}

// WithClock replaces the wall clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *AccountService) { s.now = now }
}

// NewAccountService creates a new AccountService instance
func NewAccountService(repo repository.AuctionDB, sessions session.Store, sessionTTL time.Duration, opts ...Option) *AccountService {
	s := &AccountService{
		repo:       repo,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		hashCost:   bcrypt.DefaultCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is an issued login token
type Session struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProfileUpdate lists the profile fields to change; nil fields are kept
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
	Image    *string
}

// Register creates an account with a bcrypt-hashed password
func (s *AccountService) Register(ctx context.Context, username, email, password string) (models.Account, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if err := validateCredentials(username, email, password); err != nil {
		return models.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("service: failed to hash password: %w", err)
	}

	account := models.Account{
		AccountID:    utils.GenerateID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return models.Account{}, fmt.Errorf("service: failed to register %q: %w", username, err)
	}
	return account, nil
}

func validateCredentials(username, email, password string) error {
	if username == "" || strings.ContainsAny(username, " \t\n") {
		return fmt.Errorf("service: %w - username is required and cannot contain spaces", auctionerrors.ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return validatePassword(password)
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("service: %w - invalid email %q", auctionerrors.ErrValidation, email)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("service: %w - password must be at least %d characters", auctionerrors.ErrValidation, minPasswordLength)
	}
	return nil
}

// Login verifies credentials and issues a session token
func (s *AccountService) Login(ctx context.Context, username, password string) (Session, models.Account, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Session{}, models.Account{}, fmt.Errorf("service: %w - username and password are required", auctionerrors.ErrValidation)
	}

	account, err := s.repo.GetAccountByUsername(ctx, username)
	if errors.Is(err, auctionerrors.ErrNotFound) {
		return Session{}, models.Account{}, fmt.Errorf("service: %w - invalid credentials", auctionerrors.ErrUnauthenticated)
	}
	if err != nil {
		return Session{}, models.Account{}, fmt.Errorf("service: failed to load account %q: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Session{}, models.Account{}, fmt.Errorf("service: %w - invalid credentials", auctionerrors.ErrUnauthenticated)
	}

	sess := Session{
		Token:     utils.GenerateToken(),
		AccountID: account.AccountID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, sess.Token, account.AccountID, s.sessionTTL); err != nil {
		return Session{}, models.Account{}, fmt.Errorf("service: failed to store session: %w", err)
	}
	return sess, account, nil
}

// Logout ends a session
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("service: failed to end session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token to the caller's account ID
func (s *AccountService) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("service: %w - missing token", auctionerrors.ErrUnauthenticated)
	}
	accountID, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return "", fmt.Errorf("service: %w", err)
	}
	return accountID, nil
}

// GetProfile returns the account of accountID
func (s *AccountService) GetProfile(ctx context.Context, accountID string) (models.Account, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, fmt.Errorf("service: failed to get profile %s: %w", accountID, err)
	}
	return account, nil
}

// UpdateProfile changes username, email, password or image of an account
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) (models.Account, error) {
	var patch repository.AccountPatch

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" || strings.ContainsAny(username, " \t\n") {
			return models.Account{}, fmt.Errorf("service: %w - username cannot be empty or contain spaces", auctionerrors.ErrValidation)
		}
		patch.Username = &username
	}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if err := validateEmail(email); err != nil {
			return models.Account{}, err
		}
		patch.Email = &email
	}
	if update.Password != nil {
		if err := validatePassword(*update.Password); err != nil {
			return models.Account{}, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), s.hashCost)
		if err != nil {
			return models.Account{}, fmt.Errorf("service: failed to hash password: %w", err)
		}
		hashed := string(hash)
		patch.PasswordHash = &hashed
	}
	if update.Image != nil {
		image := strings.TrimSpace(*update.Image)
		patch.Image = &image
	}

	account, err := s.repo.UpdateAccount(ctx, accountID, patch)
	if err != nil {
		return models.Account{}, fmt.Errorf("service: failed to update profile %s: %w", accountID, err)
	}
	return account, nil
}
