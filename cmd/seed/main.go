package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/persistence"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts seed.Options
	var migrate bool

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&opts.AdminEmail, "admin-email", "admin@example.com", "email of the first administrator")
	flagSet.StringVar(&opts.AdminName, "admin-name", "Administrator", "display name of the first administrator")
	flagSet.StringVar(&opts.AdminPassword, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "administrator password (default $SEED_ADMIN_PASSWORD)")
	flagSet.BoolVar(&opts.Demo, "demo", false, "also create demo staff, a customer and sample tickets")
	flagSet.StringVar(&opts.DemoPassword, "demo-password", "password123", "password shared by demo staff accounts")
	flagSet.BoolVar(&migrate, "migrate", true, "apply SQL migrations before seeding")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}
	opts.BcryptCost = cfg.Auth.BcryptCost

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if migrate {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	pool := pg.PoolHandle()
	res, err := seed.Run(ctx, seed.Repositories{
		Users:     repository.NewUserRepository(pool),
		Customers: repository.NewCustomerRepository(pool),
		Tickets:   repository.NewTicketRepository(pool),
		Responses: repository.NewResponseRepository(pool),
	}, opts, logger)
	if err != nil {
		return err
	}
	logger.Info("seed complete",
		zap.Int("users_created", res.UsersCreated),
		zap.Int("tickets_created", res.TicketsCreated),
		zap.Int("responses_created", res.ResponsesCreated))
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: seed [flags]\n\nCreates the first administrator and optional demo data.\n\nFlags:\n")
	flagSet.PrintDefaults()
}
