package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"flock/internal/domain/account"

	"github.com/google/uuid"
)

// TestAccountSeedDeps holds stores needed for test account seeding.
type TestAccountSeedDeps struct {
	AccountStore testAcctAccountStore
}

type testAcctAccountStore interface {
	Save(ctx context.Context, a account.Account) error
	GetByEmail(ctx context.Context, email string) (account.Account, error)
}

// testAccountDef defines a single test account to seed.
type testAccountDef struct {
	Email    string
	Password string
	Role     string
}

// testAccounts returns the list of test accounts to seed, one per role.
func testAccounts() []testAccountDef {
	return []testAccountDef{
		{
			Email:    "admin@flock.church",
			Password: "Shepherd+admin!",
			Role:     account.RoleAdmin,
		},
		{
			Email:    "personal@flock.church",
			Password: "Shepherd+staff!",
			Role:     account.RolePersonal,
		},
		{
			Email:    "attendance@flock.church",
			Password: "Shepherd+staff!",
			Role:     account.RoleAttendance,
		},
		{
			Email:    "reports@flock.church",
			Password: "Shepherd+staff!",
			Role:     account.RoleReports,
		},
	}
}

// ExecuteSeedTestAccounts creates test accounts for each role if they don't already exist.
// It is idempotent, skipping accounts that already exist (checked by email).
// PRE: Database is migrated, admin seed has run.
// POST: 4 test accounts exist covering every role.
func ExecuteSeedTestAccounts(ctx context.Context, deps TestAccountSeedDeps) error {
	created := 0
	for _, def := range testAccounts() {
		// Check if account already exists
		_, err := deps.AccountStore.GetByEmail(ctx, def.Email)
		if err == nil {
			continue // already exists
		}

		acct := account.Account{
			ID:    uuid.New().String(),
			Email: def.Email,
			Role:  def.Role,
		}
		if err := acct.SetPassword(def.Password); err != nil {
			return fmt.Errorf("seed test account %s: set password: %w", def.Email, err)
		}
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return fmt.Errorf("seed test account %s: save: %w", def.Email, err)
		}

		created++
		slog.Info("seed_event", "event", "test_account_created", "email", def.Email, "role", def.Role)
	}

	if created > 0 {
		slog.Info("seed_event", "event", "test_accounts_seeded", "created", created)
	}
	return nil
}
