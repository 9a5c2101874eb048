package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])

	sql, err := migrationsFS.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	for _, want := range []string{
		"UNIQUE (user_id, seminar_id)",
		"UNIQUE (user_id, session_id)",
		"UNIQUE (seminar_id, sequence)",
		"REFERENCES seminars (id) ON DELETE CASCADE",
		"REFERENCES sessions (id) ON DELETE CASCADE",
	} {
		assert.Contains(t, string(sql), want)
	}
}
