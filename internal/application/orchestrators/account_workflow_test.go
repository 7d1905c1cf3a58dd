package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/audit"
	"clubhouse/internal/domain/failure"
)

const testPassword = "correct horse battery"

func (f *fixture) accountDeps() CreateAccountDeps {
	return CreateAccountDeps{AccountStore: f.accounts, Now: f.now, GenerateID: f.id}
}

func (f *fixture) loginDeps() LoginDeps {
	return LoginDeps{AccountStore: f.accounts, AuditStore: f.audits, Now: f.now, GenerateID: f.id}
}

func TestExecuteCreateAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email: " Ana@Example.com ", Password: testPassword, DisplayName: "Ana",
	}, f.accountDeps())
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	acct, err := f.accounts.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if acct.Email != "ana@example.com" || acct.Role != account.RoleAthlete || acct.MembershipStatus != account.MembershipNone {
		t.Errorf("account = %+v", acct)
	}

	tests := []struct {
		name  string
		input CreateAccountInput
		want  error
	}{
		{"duplicate email", CreateAccountInput{Email: "ana@example.com", Password: testPassword}, failure.ErrConflict},
		{"duplicate email other case", CreateAccountInput{Email: "ANA@example.com", Password: testPassword}, failure.ErrConflict},
		{"short password", CreateAccountInput{Email: "bo@example.com", Password: "short"}, failure.ErrValidation},
		{"bad email", CreateAccountInput{Email: "bo.example.com", Password: testPassword}, failure.ErrValidation},
		{"bad role", CreateAccountInput{Email: "bo@example.com", Password: testPassword, Role: "owner"}, failure.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteCreateAccount(ctx, tt.input, f.accountDeps())
			requireKind(t, err, tt.want)
		})
	}
}

func TestExecuteSeedAdmin_OnlyOnEmptyDatabase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := ExecuteSeedAdmin(ctx, f.accountDeps(), "admin@clubhouse.test", testPassword); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := ExecuteSeedAdmin(ctx, f.accountDeps(), "second@clubhouse.test", testPassword); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if n := f.countRows("account"); n != 1 {
		t.Errorf("accounts = %d, want 1", n)
	}
	acct, err := f.accounts.GetByEmail(ctx, "admin@clubhouse.test")
	if err != nil || acct.Role != account.RoleAdmin {
		t.Errorf("seeded = %+v, %v", acct, err)
	}
}

func TestExecuteLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := ExecuteCreateAccount(ctx, CreateAccountInput{Email: "coach@example.com", Password: testPassword, Role: account.RoleCoach}, f.accountDeps())
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	result, err := ExecuteLogin(ctx, LoginInput{Email: "Coach@Example.com", Password: testPassword}, f.loginDeps())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccountID != id || result.Role != account.RoleCoach {
		t.Errorf("result = %+v", result)
	}

	for _, in := range []LoginInput{
		{Email: "coach@example.com", Password: "wrong password!"},
		{Email: "nobody@example.com", Password: testPassword},
		{Email: "", Password: ""},
	} {
		if _, err := ExecuteLogin(ctx, in, f.loginDeps()); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("login(%q) = %v, want ErrInvalidCredentials", in.Email, err)
		}
	}
	actions := f.auditActions(id)
	if !hasAction(actions, audit.ActionLogin) || !hasAction(actions, audit.ActionLoginFailed) {
		t.Errorf("audit actions = %v", actions)
	}
}

func TestExecuteLogin_LocksAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := ExecuteCreateAccount(ctx, CreateAccountInput{Email: "ana@example.com", Password: testPassword}, f.accountDeps()); err != nil {
		t.Fatalf("create account: %v", err)
	}

	bad := LoginInput{Email: "ana@example.com", Password: "not the password"}
	for i := 0; i < account.MaxFailedLogins; i++ {
		if _, err := ExecuteLogin(ctx, bad, f.loginDeps()); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	good := LoginInput{Email: "ana@example.com", Password: testPassword}
	if _, err := ExecuteLogin(ctx, good, f.loginDeps()); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	f.advance(account.LockoutDuration + time.Second)
	if _, err := ExecuteLogin(ctx, good, f.loginDeps()); err != nil {
		t.Fatalf("login after lockout: %v", err)
	}
	acct, _ := f.accounts.GetByEmail(ctx, "ana@example.com")
	if acct.FailedLogins != 0 {
		t.Errorf("FailedLogins = %d, want 0", acct.FailedLogins)
	}
}

func TestExecuteChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := ExecuteCreateAccount(ctx, CreateAccountInput{Email: "ana@example.com", Password: testPassword}, f.accountDeps())
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	deps := ChangePasswordDeps{Tx: f.tx, AccountStore: f.accounts, AuditStore: f.audits, Now: f.now, GenerateID: f.id}
	const newPassword = "staple battery horse"

	tests := []struct {
		name  string
		input ChangePasswordInput
		kind  error
		field string
	}{
		{"anonymous", ChangePasswordInput{CurrentPassword: testPassword, NewPassword: newPassword}, failure.ErrAuthorization, ""},
		{"missing current", ChangePasswordInput{AccountID: id, NewPassword: newPassword}, failure.ErrValidation, "current_password"},
		{"wrong current", ChangePasswordInput{AccountID: id, CurrentPassword: "not the password", NewPassword: newPassword}, failure.ErrValidation, "current_password"},
		{"unchanged", ChangePasswordInput{AccountID: id, CurrentPassword: testPassword, NewPassword: testPassword}, failure.ErrValidation, "new_password"},
		{"too short", ChangePasswordInput{AccountID: id, CurrentPassword: testPassword, NewPassword: "short"}, failure.ErrValidation, "new_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExecuteChangePassword(ctx, tt.input, deps)
			requireKind(t, err, tt.kind)
			if got := failure.FieldOf(err); got != tt.field {
				t.Errorf("field = %q, want %q", got, tt.field)
			}
		})
	}

	if err := ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: id, CurrentPassword: testPassword, NewPassword: newPassword}, deps); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := ExecuteLogin(ctx, LoginInput{Email: "ana@example.com", Password: testPassword}, f.loginDeps()); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still accepted: %v", err)
	}
	if _, err := ExecuteLogin(ctx, LoginInput{Email: "ana@example.com", Password: newPassword}, f.loginDeps()); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if !hasAction(f.auditActions(id), audit.ActionPasswordChanged) {
		t.Error("password change was not audited")
	}
}
