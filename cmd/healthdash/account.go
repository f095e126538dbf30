// ABOUTME: CLI commands for accounts: register, login, logout and whoami.
// ABOUTME: The signed-in session is saved under the config directory.
package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/auth"
)

var accountPassword string

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and sign in",
	Long: `Create an account. The password is read from --password or, when that is
not set, from the first line of stdin.

Examples:
  healthdash register you@example.com --password 'correct horse'
  echo 'correct horse' | healthdash register you@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		sess, err := authSvc.Register(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		return signIn(sess, "Registered")
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		sess, err := authSvc.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		return signIn(sess, "Logged in")
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessions.Clear(); err != nil {
			return err
		}
		session = nil
		color.Green("✓ Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		faint := color.New(color.Faint)
		fmt.Println(sess.Email)
		fmt.Printf("  %s %s\n", faint.Sprint("user:"), sess.UserID)
		fmt.Printf("  %s %s\n", faint.Sprint("expires:"), sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func signIn(sess *auth.Session, verb string) error {
	if err := sessions.Save(sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	session = sess
	color.Green("✓ %s as %s", verb, sess.Email)
	return nil
}

func readPassword(in io.Reader) (string, error) {
	if accountPassword != "" {
		return accountPassword, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password required: pass --password or pipe it on stdin")
	}
	return line, nil
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&accountPassword, "password", "", "account password (read from stdin when omitted)")
	}
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}
