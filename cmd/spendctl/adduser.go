package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"spendwise/internal/auth"
	"spendwise/internal/storage"
)

func newAddUserCommand(a *app) *cobra.Command {
	var username, password, fullName string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireUser(cmd, username); err != nil {
				return err
			}
			return a.addUser(cmd, username, password, fullName)
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password (optional, will prompt if omitted)")
	cmd.Flags().StringVar(&fullName, "name", "", "full name")
	return cmd
}

func (a *app) addUser(cmd *cobra.Command, username, password, fullName string) error {
	stdout := cmd.OutOrStdout()
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) < auth.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	// Check if user already exists
	existingUser, err := db.GetUserByUsername(ctx, username)
	if err == nil && existingUser != nil {
		return fmt.Errorf("user %s already exists", username)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := db.CreateUser(ctx, storage.NewUser{Username: username, PasswordHash: hash, FullName: fullName})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Username, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
