// issue-token mints a bearer token for the ledger RPC service. The token
// acts as the given chat user, so the user's admin roles decide what the
// holder may do.
//
//	issue-token --user-id 123456 --name ops --expiry 72h
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/mmynk/lebot/internal/auth"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Getenv("JWT_SECRET"), os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, envSecret string, stdout io.Writer) error {
	var (
		userID int64
		name   string
		secret string
		expiry time.Duration
	)

	flagSet := pflag.NewFlagSet("issue-token", pflag.ContinueOnError)
	flagSet.Int64VarP(&userID, "user-id", "u", 0, "chat user ID the token acts as")
	flagSet.StringVarP(&name, "name", "n", "", "display name recorded on ledger entries")
	flagSet.StringVar(&secret, "secret", envSecret, "signing secret (default: $JWT_SECRET)")
	flagSet.DurationVar(&expiry, "expiry", 24*time.Hour, "token lifetime")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if userID == 0 {
		return errors.New("--user-id is required")
	}
	if secret == "" {
		return errors.New("--secret or JWT_SECRET is required")
	}
	if expiry <= 0 {
		return fmt.Errorf("--expiry must be positive, got %s", expiry)
	}

	token, err := auth.NewJWTManager(secret, expiry).Generate(userID, name)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}
