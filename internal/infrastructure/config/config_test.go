package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
	"github.com/sportello-bot/sportello/internal/shared/biztime"
	apperrors "github.com/sportello-bot/sportello/internal/shared/errors"
)

const minimalConfig = `
discord:
  token: tok
  client_id: "100"
  guild_id: "200"
roles:
  staff: "300"
  close: "301"
tickets:
  log_channel_id: "400"
  category_parents:
    general: "500"
    informational: ""
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "tok", cfg.Discord.Token)
	assert.Equal(t, 15*time.Second, cfg.Tickets.OpenLockTTL)
	assert.Equal(t, 2*time.Minute, cfg.Tickets.CloseLockTTL)
	assert.Equal(t, 1200*time.Millisecond, cfg.Tickets.CloseGrace)
	assert.Equal(t, "Europe/Rome", cfg.Tickets.Timezone)
	assert.Equal(t, 7*24*time.Hour, cfg.Transcript.Retention)
	assert.Equal(t, "./templates", cfg.Transcript.TemplateDir)
	assert.Equal(t, time.Hour, cfg.Panel.RefreshInterval)
	assert.False(t, cfg.HTTP.Enabled)
	assert.Same(t, cfg, Get())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SPORTELLO_DISCORD_TOKEN", "from-env")
	t.Setenv("SPORTELLO_LOCK_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Discord.Token)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Lock.RedisURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load(writeConfig(t, "roles:\n  staff: \"1\"\n"))
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeConfig, appErr.Type)
	assert.Contains(t, appErr.Details, "discord.token")
	assert.Contains(t, appErr.Details, "tickets.log_channel_id")
}

func TestLoad_InvalidSupportHours(t *testing.T) {
	body := minimalConfig + "  support_hours:\n    funday: \"10:00-12:00\"\n"
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	assert.True(t, apperrors.IsAppError(err))
}

func TestConfig_SupportSchedule(t *testing.T) {
	cfg := &Config{}
	cfg.Tickets.SupportHours = map[string]string{
		"saturday": "10:30-01:30",
		"Mon":      "12:00-00:00",
	}

	schedule, err := cfg.SupportSchedule()
	require.NoError(t, err)
	assert.Equal(t, biztime.Schedule{
		time.Saturday: {Start: 630, End: 90},
		time.Monday:   {Start: 720, End: 0},
	}, schedule)

	cfg.Tickets.SupportHours = map[string]string{"monday": "noon"}
	_, err = cfg.SupportSchedule()
	assert.Error(t, err)
}

func TestConfig_CategoryParents(t *testing.T) {
	cfg := &Config{}
	cfg.Tickets.CategoryParents = map[string]string{"general": "500", "informational": ""}

	parents, err := cfg.CategoryParents()
	require.NoError(t, err)
	assert.Equal(t, map[vo.Category]string{vo.CategoryGeneral: "500"}, parents)

	cfg.Tickets.CategoryParents = map[string]string{"mystery": "1"}
	_, err = cfg.CategoryParents()
	assert.Error(t, err)
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"monday", time.Monday, false},
		{"SUN", time.Sunday, false},
		{" friday ", time.Friday, false},
		{"fr", 0, true},
		{"funday", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
