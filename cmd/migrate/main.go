package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"venomous.dev/internal/auth"
	"venomous.dev/internal/migrate"
	"venomous.dev/internal/obs"
)

func main() {
	var (
		dsn = flag.String("dsn", os.Getenv("DATABASE_URL"), "postgres connection string")
		dir = flag.String("migrations", "migrations", "path to migrations directory")
	)
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "missing -dsn (or DATABASE_URL)")
		os.Exit(2)
	}

	db, err := auth.OpenDB(*dsn)
	if err != nil {
		obs.Error("migrate open failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	runner := migrate.NewRunner(db, *dir)
	switch cmd {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "status":
		var applied []string
		applied, err = runner.Status(ctx)
		for _, name := range applied {
			fmt.Println(name)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want up, down or status)\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		obs.Error("migrate failed", map[string]any{"command": cmd, "error": err.Error()})
		os.Exit(1)
	}
	obs.Info("migrate done", map[string]any{"command": cmd})
}
