package common_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/shiki-arena/internal/pkg/common"
)

func TestReadSettingsFile(t *testing.T) {
	t.Parallel()

	base := common.Settings{
		Admin:               "admin",
		OperationsRecipient: "operations",
		DailyBurn:           5000,
		HealthSchedule:      "@hourly",
	}

	settings, err := common.ReadSettingsFile("", base)
	require.NoError(t, err)
	assert.Equal(t, base, settings)

	filename := filepath.Join(t.TempDir(), "config.toml")
	err = os.WriteFile(filename, []byte("admin = \"curator\"\ndailyBurn = 1200\n"), 0600)
	require.NoError(t, err)

	settings, err = common.ReadSettingsFile(filename, base)
	require.NoError(t, err)
	assert.Equal(t, "curator", settings.Admin)
	assert.Equal(t, int64(1200), settings.DailyBurn)
	assert.Equal(t, "operations", settings.OperationsRecipient)
	assert.Equal(t, "@hourly", settings.HealthSchedule)

	_, err = common.ReadSettingsFile(filepath.Join(t.TempDir(), "missing.toml"), base)
	require.Error(t, err)

	err = os.WriteFile(filename, []byte("admin = "), 0600)
	require.NoError(t, err)

	_, err = common.ReadSettingsFile(filename, base)
	require.Error(t, err)
}
