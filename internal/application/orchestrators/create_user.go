package orchestrators

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"

	"gymtrack/internal/domain/account"
	"gymtrack/internal/domain/audit"
	"gymtrack/internal/platform/clock"
)

// AccountStoreForCreate defines the store interface needed by CreateUser.
type AccountStoreForCreate interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// CreateUserInput carries input for the orchestrator.
type CreateUserInput struct {
	Username  string
	Password  string
	Role      string
	CreatedBy string // admin adding the account; empty for the CLI and seeding
}

// CreateUserDeps holds dependencies for CreateUser.
type CreateUserDeps struct {
	AccountStore AccountStoreForCreate
	Clock        clock.Clock
	GenerateID   func() string
	Audit        AuditRecorder
}

var ErrUsernameTaken = errors.New("an account with this username already exists")

// ExecuteCreateUser adds a staff login.
// PRE: Valid username, password >= account.MinPasswordLength, valid role
// POST: Account created with hashed password
// INVARIANT: Username must be unique
func ExecuteCreateUser(ctx context.Context, input CreateUserInput, deps CreateUserDeps) (string, error) {
	acct := account.Account{
		ID:        newID(deps.GenerateID),
		Username:  account.NormalizeUsername(input.Username),
		Role:      input.Role,
		CreatedAt: now(deps.Clock),
	}
	if err := acct.Validate(); err != nil {
		return "", err
	}

	if _, err := deps.AccountStore.GetByUsername(ctx, acct.Username); err == nil {
		return "", ErrUsernameTaken
	}

	if err := acct.SetPassword(input.Password); err != nil {
		return "", err
	}

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "account_created", "username", acct.Username, "role", acct.Role)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.CreatedBy, audit.CategoryAccount, audit.ActionCreate, acct.CreatedAt).
		WithResource(acct.ID).
		WithDescription("created " + acct.Role + " " + acct.Username))
	return acct.ID, nil
}

// ExecuteSeedAdmin creates the first admin account if no accounts exist.
// An empty password is replaced with a random one, logged once.
// PRE: Database is initialized
// POST: Admin account created if count == 0
func ExecuteSeedAdmin(ctx context.Context, deps CreateUserDeps, username, password string) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	generated := password == ""
	if generated {
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		password = hex.EncodeToString(buf)
	}

	if _, err := ExecuteCreateUser(ctx, CreateUserInput{
		Username: username,
		Password: password,
		Role:     account.RoleAdmin,
	}, deps); err != nil {
		return err
	}

	if generated {
		slog.Warn("auth_event", "event", "admin_seeded", "username", username, "generated_password", password)
		return nil
	}
	slog.Info("auth_event", "event", "admin_seeded", "username", username)
	return nil
}
