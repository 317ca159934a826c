package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func TestConnectionStrings(t *testing.T) {
	t.Parallel()

	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss word", Name: "achibot", SSLMode: "disable"}
	assert.Equal(t, "user=bot password=p@ss word host=db port=5432 dbname=achibot sslmode=disable", DSN(cfg))
	assert.Equal(t, "postgres://bot:p%40ss%20word@db:5432/achibot?sslmode=disable", URL(cfg))
}

func TestMigrationVersions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"000002_b.up.sql", "000001_a.up.sql", "000001_a.down.sql", "000010_c.up.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	srcURL, err := sourceURL(dir)
	require.NoError(t, err)
	src, err := source.Open(srcURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	known, err := versions(src)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 10}, known)
	assert.Equal(t, []uint{2, 10}, between(known, 1, 10))
	assert.Empty(t, between(known, 10, 10))
	assert.Equal(t, "1, 2, 10", preview(known))
}

func TestMigrationVersionsEmpty(t *testing.T) {
	t.Parallel()

	srcURL, err := sourceURL(t.TempDir())
	require.NoError(t, err)
	src, err := source.Open(srcURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	known, err := versions(src)
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestRepositoryMigrationsArePaired(t *testing.T) {
	t.Parallel()

	ups, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	for _, up := range ups {
		down := up[:len(up)-len(".up.sql")] + ".down.sql"
		_, err := os.Stat(down)
		assert.NoError(t, err, "missing down migration for %s", filepath.Base(up))
	}
}

type flakyPinger struct {
	fails int
	calls int
}

func (p *flakyPinger) PingContext(context.Context) error {
	p.calls++
	if p.calls <= p.fails {
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitReady(t *testing.T) {
	t.Parallel()

	ok := &flakyPinger{}
	require.NoError(t, waitReady(context.Background(), ok, time.Second))
	assert.Equal(t, 1, ok.calls)

	down := &flakyPinger{fails: 1 << 30}
	err := waitReady(context.Background(), down, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
