// Package admincli is the operator command-line surface: start the server,
// or manage users out-of-band (add/delete/reset-password/reset-mfa),
// wired with cobra.
package admincli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/outurnate/ruuth/internal/config"
	"github.com/outurnate/ruuth/internal/users"
)

// Deps are the shared dependencies every subcommand needs: the loaded
// settings and a user manager bound to the connected database.
type Deps struct {
	Settings *config.Settings
	Users    *users.Manager
}

// BootFunc loads configuration, sets up logging, and connects the
// database. It is called lazily from each subcommand's RunE -- after
// cobra has parsed flags -- so --help and usage errors never require a
// readable config file or a reachable database.
type BootFunc func(configPath string) (*Deps, error)

// RunFunc starts the long-running server for the "run" subcommand. Passed
// in from cmd/ruuth rather than imported directly, so admincli does not
// need to depend on internal/web, internal/challenge, or internal/ruuthdb.
type RunFunc func(ctx context.Context, settings *config.Settings, userManager *users.Manager) error

// NewRootCommand builds the cobra command tree: run, add-user, delete-user,
// reset-password, reset-mfa.
func NewRootCommand(boot BootFunc, run RunFunc) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "ruuth",
		Short: "ruuth is an authentication decision service for reverse proxy auth_request",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "ruuth.toml", "path to the TOML configuration file")

	root.AddCommand(
		newRunCommand(&configPath, boot, run),
		newAddUserCommand(&configPath, boot),
		newDeleteUserCommand(&configPath, boot),
		newResetPasswordCommand(&configPath, boot),
		newResetMFACommand(&configPath, boot),
	)

	return root
}

func newRunCommand(configPath *string, boot BootFunc, run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "start the authentication decision service",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := boot(*configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), deps.Settings, deps.Users)
		},
	}
}

func newAddUserCommand(configPath *string, boot BootFunc) *cobra.Command {
	var showQRCode bool
	cmd := &cobra.Command{
		Use:   "add-user USERNAME",
		Short: "register a new user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := boot(*configPath)
			if err != nil {
				return err
			}
			username := args[0]
			password, err := promptNewPassword(username)
			if err != nil {
				return err
			}
			setupCode, err := deps.Users.Register(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			showSetupCode(setupCode, showQRCode)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showQRCode, "show-qr-code", false, "render the TOTP enrollment code as a QR code instead of a raw otpauth:// URL")
	return cmd
}

func newDeleteUserCommand(configPath *string, boot BootFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user USERNAME",
		Short: "delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := boot(*configPath)
			if err != nil {
				return err
			}
			return deps.Users.Delete(cmd.Context(), args[0])
		},
	}
}

func newResetPasswordCommand(configPath *string, boot BootFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password USERNAME",
		Short: "reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := boot(*configPath)
			if err != nil {
				return err
			}
			username := args[0]
			password, err := promptNewPassword(username)
			if err != nil {
				return err
			}
			return deps.Users.ResetPassword(cmd.Context(), username, password)
		},
	}
}

func newResetMFACommand(configPath *string, boot BootFunc) *cobra.Command {
	var showQRCode bool
	cmd := &cobra.Command{
		Use:   "reset-mfa USERNAME",
		Short: "reset a user's TOTP secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := boot(*configPath)
			if err != nil {
				return err
			}
			setupCode, err := deps.Users.ResetMFA(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			showSetupCode(setupCode, showQRCode)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showQRCode, "show-qr-code", false, "render the TOTP enrollment code as a QR code instead of a raw otpauth:// URL")
	return cmd
}

// showSetupCode prints the TOTP enrollment code to stdout: either a
// scannable QR code rendered in the terminal, or the raw otpauth:// URL
// for the operator to forward manually.
func showSetupCode(code users.SetupCode, asQR bool) {
	if asQR {
		if err := printQRCode(code.String()); err != nil {
			fmt.Fprintln(os.Stderr, "failed to render QR code:", err)
			fmt.Println(code.String())
		}
		return
	}
	fmt.Println(code.String())
}
