package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"clubhouse/internal/adapters/storage"
	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/failure"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Create(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string // defaults to athlete
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	Now          func() time.Time
	GenerateID   func() string
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount coordinates account creation.
// PRE: Valid email, password >= 12 chars, valid role
// POST: Account created with hashed password and no membership
// INVARIANT: Email must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (string, error) {
	if input.Role == "" {
		input.Role = account.RoleAthlete
	}

	// Check if email already exists
	if _, err := deps.AccountStore.GetByEmail(ctx, input.Email); err == nil {
		return "", failure.Conflict("%s", ErrEmailAlreadyExists.Error())
	}

	acct := account.Account{
		ID:               deps.GenerateID(),
		Email:            strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName:      strings.TrimSpace(input.DisplayName),
		Role:             input.Role,
		MembershipStatus: account.MembershipNone,
		CreatedAt:        deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return "", failure.Validation("%s", err.Error())
	}
	// Set password (handles hashing and length validation)
	if err := acct.SetPassword(input.Password); err != nil {
		return "", failure.Validation("%s", err.Error())
	}

	if err := deps.AccountStore.Create(ctx, acct); err != nil {
		if errors.Is(err, storage.ErrUniqueViolation) {
			return "", failure.Conflict("%s", ErrEmailAlreadyExists.Error())
		}
		return "", err
	}

	slog.Info("auth_event", "event", "account_created", "email", acct.Email, "role", acct.Role)
	return acct.ID, nil
}

// ExecuteSeedAdmin creates a default admin account if no accounts exist.
// PRE: Database is initialized
// POST: Admin account created if count == 0
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // Accounts already exist, skip seeding
	}

	if _, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email:    email,
		Password: password,
		Role:     account.RoleAdmin,
	}, deps); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "email", email)
	return nil
}
