// Command studybuddy signs in to the StudyBuddy API from a terminal and keeps
// the session in a shared file, so every running copy sees the same login.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NordCoder/studybuddy/internal/client/api"
	"github.com/NordCoder/studybuddy/internal/client/session"
	"github.com/NordCoder/studybuddy/internal/obs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serverURL  string
	sessionDir string
	verbose    bool
	timeout    time.Duration

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "studybuddy",
	Short:         "Sign in to StudyBuddy from the terminal",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("STUDYBUDDY_SERVER", "http://localhost:8080/api"), "auth API base URL")
	rootCmd.PersistentFlags().StringVar(&sessionDir, "session-dir", envOr("STUDYBUDDY_SESSION_DIR", defaultSessionDir()), "directory holding the shared session file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log session decisions")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP timeout")

	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, statusCmd, whoamiCmd, watchCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".studybuddy"
	}
	return filepath.Join(dir, "studybuddy")
}

type app struct {
	api   *api.Client
	store *session.FileStore
	cache *session.Cache
	log   *zap.Logger
}

func newApp(cmd *cobra.Command) (*app, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := obs.NewLogger(obs.LogConfig{
		Level:    level,
		Pretty:   true,
		App:      "studybuddy",
		Ver:      version,
		Outputs:  []string{"stderr"},
		NoCaller: true,
	})
	if err != nil {
		return nil, err
	}

	store, err := session.NewFileStore(sessionDir)
	if err != nil {
		return nil, err
	}
	client := api.New(serverURL, timeout)
	out := cmd.OutOrStdout()
	cache := session.New(store, client, session.Options{
		Logger: log,
		Home: func(s session.Snapshot) {
			if s.State == session.LoggedOut {
				fmt.Fprintln(out, "signed out")
			}
		},
	})
	return &app{api: client, store: store, cache: cache, log: log}, nil
}

func describe(s session.Snapshot) string {
	if s.State != session.LoggedIn || s.User == nil {
		return "not signed in"
	}
	exp := time.Unix(s.User.ExpiresAt, 0).Local().Format(time.Kitchen)
	return fmt.Sprintf("signed in as %s (access token valid until %s)", s.User.Email, exp)
}
