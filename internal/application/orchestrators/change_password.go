package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/failure"
)

// ChangePasswordInput carries input for the change-password orchestrator.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// AccountStoreForChangePassword defines the store interface needed by ChangePassword.
type AccountStoreForChangePassword interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	Tx           TxRunner
	AccountStore AccountStoreForChangePassword
	AuditStore   AuditAppender
	Now          func() time.Time
	GenerateID   func() string
}

// ExecuteChangePassword verifies the current password and stores a new hash.
// PRE: AccountID is the authenticated caller
// POST: password replaced and audited; failed-login counter cleared
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	if input.AccountID == "" {
		return failure.Unauthorized("no authenticated actor")
	}
	if input.CurrentPassword == "" {
		return failure.MissingField("current_password")
	}
	if input.NewPassword == "" {
		return failure.MissingField("new_password")
	}

	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return err
	}
	if err := acct.CheckPassword(input.CurrentPassword); err != nil {
		slog.Info("auth_event", "event", "password_change_rejected", "account_id", acct.ID, "reason", "wrong_password")
		return &failure.Error{Kind: failure.ErrValidation, Message: "current password is incorrect", Field: "current_password"}
	}
	if input.CurrentPassword == input.NewPassword {
		return &failure.Error{Kind: failure.ErrValidation, Message: "new password must differ from the current one", Field: "new_password"}
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return &failure.Error{Kind: failure.ErrValidation, Message: err.Error(), Field: "new_password"}
	}
	acct.ResetFailedLogins()

	err = deps.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return err
		}
		event := audit.NewEvent(deps.GenerateID(), deps.Now(), acct.ID, audit.CategoryAccount, audit.ActionPasswordChanged).
			WithResource("account", acct.ID)
		if err := deps.AuditStore.Save(ctx, event); err != nil {
			return fmt.Errorf("audit password change: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", acct.ID)
	return nil
}
