package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/auth"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/storage"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

const minPasswordLength = 6

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address used to log in")
	name := fs.String("name", "", "Display name (defaults to the email)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	rolesFlag := fs.String("roles", models.RoleUser, "Comma-separated role names, e.g. admin,user")
	dbPath := fs.String("db", "expenses.db", "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	*email = strings.ToLower(strings.TrimSpace(*email))
	if *email == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> [-name <name>] [-roles admin,user] [-password <password>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}

	roles := splitRoles(*rolesFlag)
	if len(roles) == 0 {
		return fmt.Errorf("at least one role is required")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > auth.MaxPasswordBytes {
		return fmt.Errorf("password must not be longer than %d bytes", auth.MaxPasswordBytes)
	}

	// Allow overriding db path via env var if not explicitly set via flag (flag default is used)
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == "expenses.db" {
		*dbPath = path
	}

	db, err := storage.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Check if user already exists
	if _, err := db.GetUserByEmail(ctx, *email); err == nil {
		return fmt.Errorf("user %s already exists", *email)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	roleIDs, err := db.ResolveRoleIDs(ctx, roles)
	if err != nil {
		return fmt.Errorf("invalid roles: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := strings.TrimSpace(*name)
	if displayName == "" {
		displayName = *email
	}

	user, err := db.CreateUser(ctx, storage.NewUser{
		Name:         displayName,
		Email:        *email,
		PasswordHash: hash,
		RoleIDs:      roleIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d (roles: %s)\n", user.Email, user.ID, strings.Join(roles, ", "))
	return nil
}

func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
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
