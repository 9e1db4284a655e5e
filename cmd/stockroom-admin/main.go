package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/stockroom/pkg/auth"
	"github.com/platinummonkey/stockroom/pkg/config"
	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

// adminPasswordEnv supplies the password when -password is omitted
const adminPasswordEnv = "STOCKROOM_ADMIN_PASSWORD"

var errUsage = errors.New("usage")

func main() {
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	logger := setupLogger(*logLevel)

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cm, err := storage.NewConnectionManager(ctx, cfg.Database.Storage(), observability.FromLogrus(logger))
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer cm.Close()

	if _, err := storage.Migrate(ctx, cm.Primary(), cm.Driver()); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	accounts := auth.NewService(
		auth.NewUserStore(cm.Primary(), nil),
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		nil,
		nil,
	)

	err = runCommand(ctx, accounts, flag.Args(), logger)
	if errors.Is(err, errUsage) {
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalf("%s failed: %v", flag.Arg(0), err)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: stockroom-admin [-log-level LEVEL] <command> [flags]

Commands:
  create-admin -username NAME [-password PASS] [-email ADDR]
      Create an admin account. The password may be supplied via %s.
  promote -username NAME
      Grant the admin role to an existing account.
  demote -username NAME
      Revoke the admin role from an existing account.
`, adminPasswordEnv)
}

func runCommand(ctx context.Context, accounts *auth.Service, args []string, logger *logrus.Logger) error {
	switch args[0] {
	case "create-admin":
		return createAdmin(ctx, accounts, args[1:], logger)
	case "promote":
		return setRole(ctx, accounts, args, auth.RoleAdmin, logger)
	case "demote":
		return setRole(ctx, accounts, args, auth.RoleUser, logger)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func createAdmin(ctx context.Context, accounts *auth.Service, args []string, logger *logrus.Logger) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "Admin username")
	password := fs.String("password", os.Getenv(adminPasswordEnv), "Admin password")
	email := fs.String("email", "", "Admin email")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("%w: -username and -password are required", errUsage)
	}

	var emailPtr *string
	if *email != "" {
		emailPtr = email
	}

	id, created, err := accounts.BootstrapAdmin(ctx, *username, *password, emailPtr)
	if err != nil {
		return err
	}

	entry := logger.WithFields(logrus.Fields{"username": *username, "id": id})
	if !created {
		entry.Warn("User already exists; leaving account unchanged")
		return nil
	}
	entry.Info("Admin account created")
	return nil
}

func setRole(ctx context.Context, accounts *auth.Service, args []string, role auth.Role, logger *logrus.Logger) error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "Account username")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *username == "" {
		return fmt.Errorf("%w: -username is required", errUsage)
	}

	user, err := accounts.SetRole(ctx, *username, role)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"username": user.Username,
		"id":       user.ID,
		"role":     user.Role,
	}).Info("Role updated")
	return nil
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
