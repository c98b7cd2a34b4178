package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"gitlab.com/dirk.krummacker/contacts-api/internal/auth"
	"gitlab.com/dirk.krummacker/contacts-api/internal/config"
	"gitlab.com/dirk.krummacker/contacts-api/internal/service"
	"gitlab.com/dirk.krummacker/contacts-api/internal/store"
)

// CLI is the command structure of the migration tool.
type CLI struct {
	Migrate  MigrateCmd  `cmd:"" default:"withargs" help:"Execute the statements of an SQL file."`
	SeedUser SeedUserCmd `cmd:"" help:"Create a user and print a bearer token for it."`
}

// MigrateCmd executes an SQL file statement by statement.
type MigrateCmd struct {
	File string `help:"The SQL file to execute." default:"database.sql"`
}

// SeedUserCmd registers a user for development and testing.
type SeedUserCmd struct {
	Email string `arg:"" help:"Email address of the new user."`
}

// Usage example on the command line:
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go migrate --file=../../scripts/database.sql
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 JWT_SECRET=s3cr3t go run main.go seed-user dirk@example.com
func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("migration"),
		kong.Description("Database maintenance for the contacts service."),
	)
	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)
	kctx.FatalIfErrorf(kctx.Run(cfg))
}

func (m *MigrateCmd) Run(cfg config.Config) error {
	db, err := service.CreateDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	readFile, err := os.Open(m.File) // nosemgrep
	if err != nil {
		return err
	}
	defer readFile.Close()

	statements, err := splitStatements(readFile)
	if err != nil {
		return err
	}
	ctx := context.Background()
	for _, sql := range statements {
		if _, err := db.ExecContext(ctx, sql); err != nil {
			return fmt.Errorf("executing %q: %w", sql, err)
		}
	}
	fmt.Printf("Executed %d statements from %s\n", len(statements), m.File)
	return nil
}

func (s *SeedUserCmd) Run(cfg config.Config) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set to issue a token")
	}
	db, err := service.CreateDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	users := store.NewSQLUserStore(db)
	user, err := users.CreateUser(context.Background(), s.Email)
	if err != nil {
		return err
	}
	token, err := auth.NewResolver(cfg.JWTSecret, users).IssueToken(user, cfg.TokenTTL)
	if err != nil {
		return err
	}
	fmt.Printf("Created user %d (%s)\n", user.Id, user.Email)
	fmt.Println(token)
	return nil
}

// splitStatements reads SQL separated by semicolons at the end of a line. Lines starting with "--"
// are comments and skipped.
func splitStatements(r io.Reader) ([]string, error) {
	var statements []string
	fileScanner := bufio.NewScanner(r)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := strings.TrimSpace(fileScanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSpace(builder.String()))
			builder = strings.Builder{}
		}
	}
	if err := fileScanner.Err(); err != nil {
		return nil, err
	}
	if rest := strings.TrimSpace(builder.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements, nil
}
