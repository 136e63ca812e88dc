package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fatalf("usage: dbtool <apply-schema|seed-admin> [args]")
	}

	switch os.Args[1] {
	case "apply-schema":
		applySchema(os.Args[2:])
	case "seed-admin":
		seedAdmin(os.Args[2:])
	default:
		fatalf("unknown subcommand: %s", os.Args[1])
	}
}

func applySchema(args []string) {
	fs := flag.NewFlagSet("apply-schema", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url, file string
	fs.StringVar(&url, "url", os.Getenv("DATABASE_URL"), "postgres connection string")
	fs.StringVar(&file, "file", "db/schema.sql", "schema file to apply")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if url == "" {
		fatalf("missing --url")
	}

	schema, err := os.ReadFile(file)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		fatal(err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, string(schema)); err != nil {
		fatal(err)
	}
	fmt.Printf("applied %s\n", file)
}

func seedAdmin(args []string) {
	fs := flag.NewFlagSet("seed-admin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url, email, password, name, code string
	fs.StringVar(&url, "url", os.Getenv("DATABASE_URL"), "postgres connection string")
	fs.StringVar(&email, "email", "", "admin login email")
	fs.StringVar(&password, "password", "", "admin login password")
	fs.StringVar(&name, "name", "Administrator", "admin employee name")
	fs.StringVar(&code, "code", "ADMIN-1", "admin employee code")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if url == "" {
		fatalf("missing --url")
	}
	if email == "" || password == "" {
		fatalf("missing --email or --password")
	}
	if len(password) < 8 {
		fatalf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fatal(err)
	}
	accountID, err := uuid.NewV7()
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		fatal(err)
	}
	defer conn.Close(context.Background())

	tx, err := conn.Begin(ctx)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var employeeID int
	if err := tx.QueryRow(ctx, `
INSERT INTO crew.employees (code, name, mobile, job_location, role)
VALUES ($1, $2, '', '', 'admin')
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`, code, name).Scan(&employeeID); err != nil {
		fatal(err)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO crew.accounts (id, employee_id, email, password_hash, role_slug, status)
VALUES ($1::uuid, $2, lower($3), $4, 'admin', 'active')
ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, status = 'active'
`, accountID.String(), employeeID, email, string(hash)); err != nil {
		fatal(err)
	}

	if err := tx.Commit(ctx); err != nil {
		fatal(err)
	}
	fmt.Printf("seeded admin %s (employee %d)\n", email, employeeID)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
