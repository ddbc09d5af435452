package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayo6706/salon-ledger/internal/app"
)

func main() {
	envFile := flag.String("env-file", "", "dotenv file loaded before the environment is read")
	store := flag.String("store", "", "override STORE_DRIVER (postgres or memory)")
	flag.Parse()

	if *envFile != "" {
		os.Setenv("ENV_FILE", *envFile)
	}
	if *store != "" {
		os.Setenv("STORE_DRIVER", *store)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "salon-ledger: %v\n", err)
		os.Exit(1)
	}
}
