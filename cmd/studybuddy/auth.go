package main

import (
	"errors"
	"fmt"

	"github.com/NordCoder/studybuddy/internal/client/api"
	"github.com/NordCoder/studybuddy/internal/client/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	firstName string
	lastName  string
	email     string
	password  string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long: `Create an account. Signing up does not sign you in.

Examples:
  studybuddy signup --first Ada --last Lovelace --email ada@example.com --password s3cret`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.api.SignUp(cmd.Context(), api.SignUpRequest{
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
			Password:  password,
		}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "account created; run `studybuddy login` to sign in")
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		pair, err := a.api.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		snap, err := a.cache.Store(cmd.Context(), pair)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), describe(snap))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out here and in every other running studybuddy",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		access, _ := a.store.Get(session.KeyAccessToken)
		refresh, _ := a.store.Get(session.KeyRefreshToken)
		if access != "" || refresh != "" {
			// server-side revocation is best effort; clearing local storage is what ends the session
			if err := a.api.Logout(cmd.Context(), access, refresh); err != nil {
				a.log.Debug("server logout failed", zap.Error(err))
			}
		}
		a.cache.Logout(cmd.Context())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state, refreshing an expired access token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		snap, err := a.cache.Check(cmd.Context())
		if err != nil {
			return err
		}
		if snap.State == session.LoggedIn {
			fmt.Fprintln(cmd.OutOrStdout(), describe(snap))
		}
		return nil
	},
}

var errNotSignedIn = errors.New("not signed in")

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Ask the server who the stored access token belongs to",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		snap, err := a.cache.Check(cmd.Context())
		if err != nil {
			return err
		}
		if snap.State != session.LoggedIn {
			return errNotSignedIn
		}
		me, err := a.api.Me(cmd.Context(), snap.AccessToken)
		if err != nil {
			if api.IsUnauthorized(err) {
				a.cache.Logout(cmd.Context())
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s <%s> id=%s\n", me.FirstName, me.LastName, me.Email, me.ID)
		return nil
	},
}

func init() {
	signupCmd.Flags().StringVar(&firstName, "first", "", "first name")
	signupCmd.Flags().StringVar(&lastName, "last", "", "last name")
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().StringVar(&email, "email", "", "account email")
		c.Flags().StringVar(&password, "password", envOr("STUDYBUDDY_PASSWORD", ""), "account password (or STUDYBUDDY_PASSWORD)")
	}
}
