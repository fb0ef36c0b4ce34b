package handler

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

func (h *Handler) loginCommand() *cobra.Command {
	var email, token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or adopt an existing token",
		Args:  cobra.NoArgs,
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			ctx := cmd.Context()
			auth := d.Coordinator.Auth()
			if strings.TrimSpace(token) != "" {
				if err := auth.Login(ctx, token); err != nil {
					return err
				}
			} else {
				if email == "" {
					v, err := d.Prompt.ReadLine("Email: ")
					if err != nil {
						return err
					}
					email = v
				}
				password, err := d.Prompt.ReadSecret("Password: ")
				if err != nil {
					return err
				}
				if err := auth.LoginWithPassword(ctx, email, password); err != nil {
					if appErr.IsUnauthenticated(err) {
						return fmt.Errorf("%w: %w", errLoginFailed, err)
					}
					return err
				}
			}
			fmt.Fprintf(d.Prompt.Out(), "Signed in as %s\n", auth.Session().User.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&token, "token", "", "use an access token issued elsewhere")
	return cmd
}

func (h *Handler) signupCommand() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			var err error
			if name == "" {
				if name, err = d.Prompt.ReadLine("Full name: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = d.Prompt.ReadLine("Email: "); err != nil {
					return err
				}
			}
			password, err := d.Prompt.ReadSecret("Password: ")
			if err != nil {
				return err
			}
			auth := d.Coordinator.Auth()
			if err := auth.Signup(cmd.Context(), model.SignupRequest{FullName: name, Email: email, Password: password}); err != nil {
				return err
			}
			fmt.Fprintf(d.Prompt.Out(), "Welcome, %s! You are signed in as %s\n", auth.Session().User.FullName, auth.Session().User.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (h *Handler) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			d.Coordinator.Logout(cmd.Context())
			fmt.Fprintln(d.Prompt.Out(), "Signed out")
			return nil
		}),
	}
}

func (h *Handler) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in account",
		Args:  cobra.NoArgs,
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			auth := d.Coordinator.Auth()
			auth.Init(cmd.Context())
			if !auth.IsAuthenticated() {
				return errNotSignedIn
			}
			user := auth.Session().User
			out := d.Prompt.Out()
			fmt.Fprintf(out, "%s <%s>\n", user.FullName, user.Email)
			fmt.Fprintf(out, "id: %s\n", user.ID)
			if !user.CreatedAt.IsZero() {
				fmt.Fprintf(out, "member since: %s\n", user.CreatedAt.Format("2006-01-02"))
			}
			return nil
		}),
	}
}
