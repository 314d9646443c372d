package migrations

import (
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	src, err := iofs.New(FS, ".")
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	version, err := src.First()
	require.NoError(t, err)
	require.Equal(t, uint(1), version)

	for {
		up, _, err := src.ReadUp(version)
		require.NoError(t, err, "up script for %d", version)
		body, err := io.ReadAll(up)
		require.NoError(t, err)
		require.NotEmpty(t, body)
		_ = up.Close()

		down, _, err := src.ReadDown(version)
		require.NoError(t, err, "down script for %d", version)
		_ = down.Close()

		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
	}
}

func TestLedgerSchemaDeclaresActiveSourceIndex(t *testing.T) {
	body, err := FS.ReadFile("000001_ledger.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(body), "uq_journal_entries_active_source")
	require.Contains(t, string(body), "audit_logs")
}
