package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_UpMigrationsPaired(t *testing.T) {
	ups, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(FS, "*.down.sql")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"001_create_users.up.sql",
		"002_create_auth_credentials.up.sql",
		"003_create_refresh_tokens.up.sql",
	}, ups)
	assert.Len(t, downs, len(ups))
}

func TestFS_RefreshTokensKeyedByDigest(t *testing.T) {
	data, err := fs.ReadFile(FS, "003_create_refresh_tokens.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "token_key   CHAR(64) PRIMARY KEY")
}
