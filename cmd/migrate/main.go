package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/ayo6706/salon-ledger/internal/db"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const usage = `usage: migrate [-database-url URL] <up|down|version|force VERSION>`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()
	v := viper.New()
	_ = v.BindEnv("database_url", "DATABASE_URL", "SALON_DATABASE_URL")

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	databaseURL := fs.String("database-url", v.GetString("database_url"), "postgres connection URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *databaseURL == "" {
		return fmt.Errorf("DATABASE_URL or -database-url is required")
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	m, err := db.NewMigrator(*databaseURL, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd := fs.Arg(0); cmd {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	case "force":
		if fs.NArg() < 2 {
			return fmt.Errorf("force requires a version\n%s", usage)
		}
		version, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", fs.Arg(1), err)
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}
