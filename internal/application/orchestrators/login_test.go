package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"flock/internal/domain/account"
)

// mockAccountStoreForLogin implements AccountStoreForLogin for testing.
type mockAccountStoreForLogin struct {
	byEmail map[string]account.Account
}

func newMockAccountStoreForLogin() *mockAccountStoreForLogin {
	return &mockAccountStoreForLogin{byEmail: make(map[string]account.Account)}
}

func (m *mockAccountStoreForLogin) GetByEmail(_ context.Context, email string) (account.Account, error) {
	a, ok := m.byEmail[email]
	if !ok {
		return account.Account{}, errors.New("not found")
	}
	return a, nil
}

func (m *mockAccountStoreForLogin) Save(_ context.Context, a account.Account) error {
	m.byEmail[a.Email] = a
	return nil
}

func loginTestAccount(t *testing.T, email, password, role string) account.Account {
	t.Helper()
	a := account.Account{ID: "acct-1", Email: email, Role: role, CreatedAt: time.Now()}
	if err := a.SetPassword(password); err != nil {
		t.Fatalf("set password: %v", err)
	}
	return a
}

// TestExecuteLogin_Success verifies valid credentials return account info.
func TestExecuteLogin_Success(t *testing.T) {
	store := newMockAccountStoreForLogin()
	store.byEmail["ana@flock.church"] = loginTestAccount(t, "ana@flock.church", "correct-horse-battery", account.RoleAttendance)

	result, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "ana@flock.church",
		Password: "correct-horse-battery",
	}, LoginDeps{AccountStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Role != account.RoleAttendance {
		t.Errorf("role=%q want attendance", result.Role)
	}
	if result.AccountID != "acct-1" {
		t.Errorf("accountID=%q want acct-1", result.AccountID)
	}
}

// TestExecuteLogin_WrongPassword verifies a bad password fails and counts
// toward the lockout.
func TestExecuteLogin_WrongPassword(t *testing.T) {
	store := newMockAccountStoreForLogin()
	store.byEmail["ana@flock.church"] = loginTestAccount(t, "ana@flock.church", "correct-horse-battery", account.RolePersonal)

	_, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "ana@flock.church",
		Password: "wrong",
	}, LoginDeps{AccountStore: store})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err=%v want ErrInvalidCredentials", err)
	}
	if store.byEmail["ana@flock.church"].FailedLogins != 1 {
		t.Errorf("failedLogins=%d want 1", store.byEmail["ana@flock.church"].FailedLogins)
	}
}

// TestExecuteLogin_UnknownEmail verifies an unknown email fails with the same
// error as a wrong password.
func TestExecuteLogin_UnknownEmail(t *testing.T) {
	store := newMockAccountStoreForLogin()
	_, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "ghost@flock.church",
		Password: "whatever-this-is",
	}, LoginDeps{AccountStore: store})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err=%v want ErrInvalidCredentials", err)
	}
}

// TestExecuteLogin_LockedAccount verifies a locked account is refused even
// with the right password.
func TestExecuteLogin_LockedAccount(t *testing.T) {
	store := newMockAccountStoreForLogin()
	a := loginTestAccount(t, "ana@flock.church", "correct-horse-battery", account.RolePersonal)
	a.FailedLogins = 5
	a.LockedUntil = time.Now().Add(10 * time.Minute)
	store.byEmail["ana@flock.church"] = a

	_, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "ana@flock.church",
		Password: "correct-horse-battery",
	}, LoginDeps{AccountStore: store})
	if !errors.Is(err, ErrAccountLocked) {
		t.Errorf("err=%v want ErrAccountLocked", err)
	}
}

// TestExecuteLogin_UnknownRoleFallsBack verifies an unrecognized stored role
// degrades to the personal role instead of failing.
func TestExecuteLogin_UnknownRoleFallsBack(t *testing.T) {
	store := newMockAccountStoreForLogin()
	a := loginTestAccount(t, "ana@flock.church", "correct-horse-battery", account.RolePersonal)
	a.Role = "superuser"
	store.byEmail["ana@flock.church"] = a

	result, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "ana@flock.church",
		Password: "correct-horse-battery",
	}, LoginDeps{AccountStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Role != account.RolePersonal {
		t.Errorf("role=%q want personal fallback", result.Role)
	}
}
