package admincli

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/outurnate/ruuth/internal/config"
	"github.com/outurnate/ruuth/internal/ruuthdb"
	"github.com/outurnate/ruuth/internal/users"
)

func newTestDB(t *testing.T) *ruuthdb.DB {
	t.Helper()
	dsn := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", t.Name())
	db, err := ruuthdb.Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testBoot is a BootFunc that hands back pre-built dependencies without
// touching a config file.
func testBoot(userManager *users.Manager) BootFunc {
	return func(string) (*Deps, error) {
		return &Deps{Settings: &config.Settings{}, Users: userManager}, nil
	}
}

func noopRun(ctx context.Context, s *config.Settings, u *users.Manager) error { return nil }

func TestNewRootCommand_HasExpectedSubcommands(t *testing.T) {
	db := newTestDB(t)
	userManager := users.NewManager(db, "ruuth-test", []byte("pepper"))
	root := NewRootCommand(testBoot(userManager), noopRun)

	want := []string{"run", "add-user", "delete-user", "reset-password", "reset-mfa"}
	got := map[string]bool{}
	for _, c := range root.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("expected a %q subcommand, found none", name)
		}
	}
}

func TestRunCommand_InvokesRunFunc(t *testing.T) {
	db := newTestDB(t)
	userManager := users.NewManager(db, "ruuth-test", []byte("pepper"))

	var invoked bool
	root := NewRootCommand(testBoot(userManager), func(ctx context.Context, s *config.Settings, u *users.Manager) error {
		invoked = true
		return nil
	})
	root.SetArgs([]string{"run"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !invoked {
		t.Error("expected the run subcommand to invoke the provided RunFunc")
	}
}

// TestHelp_DoesNotBoot pins down the lazy-boot contract: printing usage
// must not load a config file or connect anything.
func TestHelp_DoesNotBoot(t *testing.T) {
	booted := false
	root := NewRootCommand(func(string) (*Deps, error) {
		booted = true
		return nil, fmt.Errorf("must not be called")
	}, noopRun)
	root.SetArgs([]string{"--help"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if booted {
		t.Error("expected --help to complete without booting dependencies")
	}
}

func TestDeleteUserCommand_DeletesViaUserManager(t *testing.T) {
	db := newTestDB(t)
	userManager := users.NewManager(db, "ruuth-test", []byte("pepper"))
	ctx := context.Background()

	if _, err := userManager.Register(ctx, "erin", "a-fine-password-99"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	root := NewRootCommand(testBoot(userManager), noopRun)
	root.SetArgs([]string{"delete-user", "erin"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if err := userManager.Delete(ctx, "erin"); err == nil {
		t.Error("expected the user to already be deleted by the CLI command")
	}
}

func TestDeleteUserCommand_RequiresExactlyOneArg(t *testing.T) {
	db := newTestDB(t)
	userManager := users.NewManager(db, "ruuth-test", []byte("pepper"))

	root := NewRootCommand(testBoot(userManager), noopRun)
	root.SetArgs([]string{"delete-user"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err == nil {
		t.Error("expected an error when delete-user is called without a username")
	}
}
