package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jirananyenlab/storeMom/internal/storage/postgres"
)

const usage = `usage: migrate [flags] up|down|status

Применяет встроенные миграции схемы магазина.

flags:
  -dsn      PostgreSQL DSN (по умолчанию STOREMOM_POSTGRES_DSN)
  -steps    сколько миграций применить/откатить (0 = все для up, 1 для down)
  -timeout  лимит времени на всю операцию
`

func main() {
	var (
		dsn     string
		steps   int
		timeout time.Duration
	)

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
	}
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN")
	flag.IntVar(&steps, "steps", 0, "number of migrations")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "operation timeout")
	flag.Parse()

	command := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	if command == "" {
		command = "status"
	}

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("STOREMOM_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("STOREMOM_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	switch command {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			fail("migrate up failed: %v", err)
		}
		printStatus(ctx, store, "migrate up ok")
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			fail("migrate down failed: %v", err)
		}
		printStatus(ctx, store, "migrate down ok")
	case "status":
		printStatus(ctx, store, "migration status")
	default:
		flag.Usage()
		fail("unknown command: %s", command)
	}
}

func printStatus(ctx context.Context, store *postgres.Store, prefix string) {
	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		fail("migration status failed: %v", err)
	}
	fmt.Printf("%s: version=%d applied=%d\n", prefix, version, count)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
