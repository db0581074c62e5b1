// Package main is the entry point for the project manager admin CLI.
// It manages accounts directly against the database, including the
// administrator accounts that cannot be created over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/prn-tf/pmapp/internal/auth"
	"github.com/prn-tf/pmapp/internal/config"
	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/logging"
	"github.com/prn-tf/pmapp/internal/pkg/crypto"
	"github.com/prn-tf/pmapp/internal/repository/backend"
	"github.com/prn-tf/pmapp/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch command := os.Args[1]; command {
	case "version":
		fmt.Printf("Project Manager Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		err = runUser(os.Args[2:])

	case "keygen":
		err = runKeygen(os.Args[2:])

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Project Manager Admin CLI

Usage:
  pmapp-admin <command> [arguments]

Commands:
  user        Manage users (create, promote, list)
  keygen      Generate a token signing secret
  version     Print version information
  help        Show this help message

Examples:
  pmapp-admin user create --username root --admin
  pmapp-admin user promote --username alice
  pmapp-admin user promote --username alice --demote
  pmapp-admin user list
  pmapp-admin keygen --bytes 48

Use "pmapp-admin <command> --help" for more information about a command.`)
}

// ============================================================================
// User Commands
// ============================================================================

func runUser(args []string) error {
	if len(args) < 1 {
		return errors.New("user requires a subcommand: create, promote, list")
	}

	switch args[0] {
	case "create":
		return userCreate(args[1:])
	case "promote":
		return userPromote(args[1:])
	case "list":
		return userList(args[1:])
	default:
		return fmt.Errorf("unknown user subcommand %q", args[0])
	}
}

func userCreate(args []string) error {
	fs := flag.NewFlagSet("user create", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to the configuration file")
	username := fs.StringP("username", "u", "", "username of the new account")
	password := fs.StringP("password", "p", "", "password of the new account (generated when empty)")
	admin := fs.Bool("admin", false, "grant the ADMIN role")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("--username is required")
	}

	generated := false
	if *password == "" {
		pw, err := crypto.GeneratePassword(crypto.DefaultPasswordLength)
		if err != nil {
			return err
		}
		*password = pw
		generated = true
	}

	role := domain.RoleUser
	if *admin {
		role = domain.RoleAdmin
	}

	return withUsers(*configPath, func(ctx context.Context, users *service.UserService) error {
		user, err := users.Create(ctx, service.CreateUserInput{
			Username: *username,
			Password: *password,
			Role:     role,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created user %q (id %d, role %s)\n", user.Username, user.ID, user.Role)
		if generated {
			fmt.Printf("Password: %s\n", *password)
		}
		return nil
	})
}

func userPromote(args []string) error {
	fs := flag.NewFlagSet("user promote", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to the configuration file")
	username := fs.StringP("username", "u", "", "username of the account")
	demote := fs.Bool("demote", false, "revert the account to the USER role")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("--username is required")
	}

	role := domain.RoleAdmin
	if *demote {
		role = domain.RoleUser
	}

	return withUsers(*configPath, func(ctx context.Context, users *service.UserService) error {
		user, err := users.SetRole(ctx, *username, role)
		if err != nil {
			return err
		}
		fmt.Printf("User %q now has role %s\n", user.Username, user.Role)
		return nil
	})
}

func userList(args []string) error {
	fs := flag.NewFlagSet("user list", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to the configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withUsers(*configPath, func(ctx context.Context, users *service.UserService) error {
		list, err := users.List(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tCREATED")
		for _, u := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.CreatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	})
}

// withUsers opens the configured database and runs fn with a UserService.
func withUsers(configPath string, fn func(ctx context.Context, users *service.UserService) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger = logger.Level(zerolog.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := backend.NewFactory(cfg.Database, logger).Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer result.Database.Close()

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	users := service.NewUserService(result.Repos.User, result.Repos.Project, hasher, logger)
	return fn(ctx, users)
}

// ============================================================================
// Keygen Command
// ============================================================================

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	size := fs.IntP("bytes", "b", crypto.SigningKeySize, "key size in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := crypto.GenerateSigningKey(*size)
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}
