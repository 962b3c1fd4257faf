package storage

import (
	"testing"
	"testing/fstest"

	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/storage/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrationsOrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.up.sql":   {Data: []byte("SELECT 1")},
		"002_second.up.sql": {Data: []byte("SELECT 1")},
		"001_init.up.sql":   {Data: []byte("SELECT 1")},
		"001_init.down.sql": {Data: []byte("SELECT 1")},
		"notes.txt":         {Data: []byte("ignored")},
		"abc_bad.up.sql":    {Data: []byte("ignored")},
	}

	got, err := listMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []migration{
		{version: 1, name: "001_init.up.sql"},
		{version: 2, name: "002_second.up.sql"},
		{version: 10, name: "010_late.up.sql"},
	}, got)
}

func TestEmbeddedSchema(t *testing.T) {
	got, err := listMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[0].version)

	content, err := migrations.FS.ReadFile(got[0].name)
	require.NoError(t, err)
	assert.Contains(t, string(content), "appointments_user_slot_uidx")
	assert.Contains(t, string(content), "WHERE status <> 'cancelled'")
}
