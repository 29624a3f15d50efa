// Command yuraidb bootstraps and inspects the Yurai database schema.
//
// Usage:
//
//	yuraidb create   create the database (if missing) and apply migrations
//	yuraidb drop     drop the database (asks for confirmation)
//	yuraidb reset    drop then create
//	yuraidb status   show applied migrations and table row counts
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/ashita-ai/yurai/internal/config"
	"github.com/ashita-ai/yurai/internal/storage"
	"github.com/ashita-ai/yurai/migrations"
)

func main() {
	if len(os.Args) != 2 {
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "create":
		create(ctx, cfg)
	case "drop":
		confirmOrExit(cfg.DBName)
		drop(ctx, cfg)
	case "reset":
		confirmOrExit(cfg.DBName)
		drop(ctx, cfg)
		create(ctx, cfg)
	case "status":
		status(ctx, cfg)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: yuraidb <create|drop|reset|status>")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// confirmOrExit requires the operator to type the database name before a
// destructive command proceeds.
func confirmOrExit(dbName string) {
	fmt.Printf("This will destroy all data in %q. Type the database name to continue: ", dbName)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil || strings.TrimSpace(line) != dbName {
		fmt.Fprintln(os.Stderr, "aborted")
		os.Exit(1)
	}
}

// adminURL is the connection URL for the maintenance database, used to
// create and drop the application database.
func adminURL(cfg config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:   fmt.Sprintf("%s:%d", cfg.DBHost, cfg.DBPort),
		Path:   "postgres",
	}
	return u.String()
}

func create(ctx context.Context, cfg config.Config) {
	conn, err := pgx.Connect(ctx, adminURL(cfg))
	if err != nil {
		fatal("connect: %v", err)
	}

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_database WHERE datname = $1)`, cfg.DBName).Scan(&exists)
	if err != nil {
		fatal("check database: %v", err)
	}
	if !exists {
		// Identifiers cannot be bound as parameters; DBName comes from the
		// operator's own environment.
		if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %s`, pgx.Identifier{cfg.DBName}.Sanitize())); err != nil {
			fatal("create database: %v", err)
		}
		fmt.Printf("created database %s\n", cfg.DBName)
	}
	_ = conn.Close(ctx)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	db, err := storage.New(ctx, cfg.DatabaseURL(), logger)
	if err != nil {
		fatal("connect %s: %v", cfg.DBName, err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		fatal("migrate: %v", err)
	}
	fmt.Println("schema up to date")
}

func drop(ctx context.Context, cfg config.Config) {
	conn, err := pgx.Connect(ctx, adminURL(cfg))
	if err != nil {
		fatal("connect: %v", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	if _, err := conn.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s WITH (FORCE)`, pgx.Identifier{cfg.DBName}.Sanitize())); err != nil {
		fatal("drop database: %v", err)
	}
	fmt.Printf("dropped database %s\n", cfg.DBName)
}

func status(ctx context.Context, cfg config.Config) {
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL())
	if err != nil {
		fatal("connect: %v", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	rows, err := conn.Query(ctx, `SELECT version, applied_at::text FROM schema_migrations ORDER BY version`)
	if err != nil {
		fatal("read schema_migrations (run 'yuraidb create' first?): %v", err)
	}
	fmt.Println("applied migrations:")
	for rows.Next() {
		var version, appliedAt string
		if err := rows.Scan(&version, &appliedAt); err != nil {
			fatal("scan: %v", err)
		}
		fmt.Printf("  %s  %s\n", version, appliedAt)
	}
	if err := rows.Err(); err != nil {
		fatal("read migrations: %v", err)
	}
	rows.Close()

	fmt.Println("tables:")
	for _, table := range []string{"projects", "traces", "conversation_contents", "commit_links"} {
		var count int
		if err := conn.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&count); err != nil {
			fmt.Printf("  %-22s missing\n", table)
			continue
		}
		fmt.Printf("  %-22s %d rows\n", table, count)
	}
}
