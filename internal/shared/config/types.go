package config

import (
	"fmt"
	"path/filepath"
	"time"
)

type DiscordConfig struct {
	Token    string `mapstructure:"token" validate:"required"`
	ClientID string `mapstructure:"client_id" validate:"required"`
	GuildID  string `mapstructure:"guild_id" validate:"required"`
}

type RolesConfig struct {
	Staff  string `mapstructure:"staff" validate:"required"`
	Close  string `mapstructure:"close" validate:"required"`
	Bypass string `mapstructure:"bypass"`
	Join   string `mapstructure:"join"`
}

type TicketsConfig struct {
	LogChannelID     string            `mapstructure:"log_channel_id" validate:"required"`
	WelcomeChannelID string            `mapstructure:"welcome_channel_id"`
	CategoryParents  map[string]string `mapstructure:"category_parents"`
	CloseGrace       time.Duration     `mapstructure:"close_grace"`
	OpenLockTTL      time.Duration     `mapstructure:"open_lock_ttl" validate:"gt=0"`
	CloseLockTTL     time.Duration     `mapstructure:"close_lock_ttl" validate:"gt=0"`
	AuditBucket      time.Duration     `mapstructure:"audit_bucket" validate:"gt=0"`
	Timezone         string            `mapstructure:"timezone"`
	SupportHours     map[string]string `mapstructure:"support_hours"`
}

type PanelConfig struct {
	BannerURL       string        `mapstructure:"banner_url"`
	ThumbnailURL    string        `mapstructure:"thumbnail_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type LockConfig struct {
	RedisURL              string        `mapstructure:"redis_url"`
	TTL                   time.Duration `mapstructure:"ttl" validate:"gt=0"`
	InstanceTTL           time.Duration `mapstructure:"instance_ttl" validate:"gt=0"`
	InstanceRenewInterval time.Duration `mapstructure:"instance_renew_interval" validate:"gt=0"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir" validate:"required"`
}

// LocksDir is where the filesystem lock provider and the instance lock live.
func (s *StorageConfig) LocksDir() string {
	return filepath.Join(s.DataDir, "locks")
}

// TranscriptsDir holds transcript blobs and their index.
func (s *StorageConfig) TranscriptsDir() string {
	return filepath.Join(s.DataDir, "transcripts")
}

// PanelStatePath is the JSON file mapping panel keys to message ids.
func (s *StorageConfig) PanelStatePath() string {
	return filepath.Join(s.DataDir, "panels.json")
}

type TranscriptConfig struct {
	Retention     time.Duration `mapstructure:"retention" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
	TemplateDir   string        `mapstructure:"template_dir"`
}

type HTTPConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

func (h *HTTPConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}
