package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"card-parlor/internal/config"
	"card-parlor/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var testSchemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// openStore gives each test its own schema so runs never see each other's rows.
func openStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil || cfg.TestPostgresDSN == "" {
		t.Skip("skip test db: TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	dsn := cfg.TestPostgresDSN
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	createSQL, err := schemaDDL("CREATE SCHEMA %s", schema)
	if err != nil {
		t.Fatalf("invalid schema name: %v", err)
	}
	base, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open base db: %v", err)
	}
	if _, err := base.Exec(ctx, createSQL); err != nil {
		base.Close()
		t.Fatalf("create schema: %v", err)
	}
	base.Close()

	st, err := New(withSearchPath(dsn, schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := applySchema(ctx, st); err != nil {
		st.Close()
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
		base, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return
		}
		defer base.Close()
		if dropSQL, err := schemaDDL("DROP SCHEMA %s CASCADE", schema); err == nil {
			_, _ = base.Exec(ctx, dropSQL)
		}
	})
	return st, ctx
}

func applySchema(ctx context.Context, st *Store) error {
	path, err := findInitMigrationPath()
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = st.Pool.Exec(ctx, string(b))
	return err
}

func findInitMigrationPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		p := filepath.Join(dir, "migrations", "000001_init.up.sql")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("000001_init.up.sql not found from %s", dir)
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func schemaDDL(format, schema string) (string, error) {
	if !testSchemaNamePattern.MatchString(schema) {
		return "", fmt.Errorf("schema %q does not match required pattern", schema)
	}
	return fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()), nil
}

func newGame(t *testing.T) *game.TableState {
	t.Helper()
	st, err := game.NewEngine().NewTable(NewID(), game.DefaultConfig(), []game.Seat{{ID: "a", Name: "Ann"}, {ID: "b", Name: "Bo"}})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return st
}

type repository interface {
	CreateGame(ctx context.Context, st *game.TableState) (GameRecord, error)
	GetGame(ctx context.Context, id string) (GameRecord, error)
	SaveGame(ctx context.Context, st *game.TableState, expectedVersion int64, action *game.Action) (GameRecord, error)
	ListActions(ctx context.Context, gameID string, limit int) ([]ActionRecord, error)
	SetPresence(ctx context.Context, p Presence) error
	ListPresence(ctx context.Context, gameID string) ([]Presence, error)
}

var (
	_ repository = (*Store)(nil)
	_ repository = (*Memory)(nil)
)
