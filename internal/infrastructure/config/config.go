package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	vo "github.com/sportello-bot/sportello/internal/domain/ticket/valueobjects"
	"github.com/sportello-bot/sportello/internal/shared/biztime"
	sharedConfig "github.com/sportello-bot/sportello/internal/shared/config"
	apperrors "github.com/sportello-bot/sportello/internal/shared/errors"
)

type Config struct {
	Discord    sharedConfig.DiscordConfig    `mapstructure:"discord"`
	Roles      sharedConfig.RolesConfig      `mapstructure:"roles"`
	Tickets    sharedConfig.TicketsConfig    `mapstructure:"tickets"`
	Panel      sharedConfig.PanelConfig      `mapstructure:"panel"`
	Lock       sharedConfig.LockConfig       `mapstructure:"lock"`
	Storage    sharedConfig.StorageConfig    `mapstructure:"storage"`
	Transcript sharedConfig.TranscriptConfig `mapstructure:"transcript"`
	HTTP       sharedConfig.HTTPConfig       `mapstructure:"http"`
	Logger     sharedConfig.LoggerConfig     `mapstructure:"logger"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml when present, overlays SPORTELLO_* environment
// variables and validates the result. Missing required keys are returned as a
// config error; callers treat that as fatal.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("SPORTELLO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindRequiredEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, apperrors.NewConfigError("failed to read config file", err.Error())
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, apperrors.NewConfigError("failed to unmarshal config", err.Error())
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

var validate = validator.New()

// Validate checks required keys and value ranges.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return validateSupportHours(cfg)
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewConfigError("invalid configuration", err.Error())
	}

	missing := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		missing = append(missing, fmt.Sprintf("%s (%s)", configKey(fe), fe.Tag()))
	}
	return apperrors.NewConfigError("invalid configuration", strings.Join(missing, "; "))
}

func validateSupportHours(cfg *Config) error {
	for day, window := range cfg.Tickets.SupportHours {
		if _, err := ParseWeekday(day); err != nil {
			return apperrors.NewConfigError("invalid support_hours weekday", day)
		}
		if _, _, err := ParseWindow(window); err != nil {
			return apperrors.NewConfigError("invalid support_hours window", fmt.Sprintf("%s=%s", day, window))
		}
	}
	for key := range cfg.Tickets.CategoryParents {
		if _, err := vo.NewCategory(key); err != nil {
			return apperrors.NewConfigError("invalid category_parents key", key)
		}
	}
	return nil
}

// SupportSchedule converts tickets.support_hours into a schedule. Days left
// out of the map are closed all day.
func (c *Config) SupportSchedule() (biztime.Schedule, error) {
	schedule := make(biztime.Schedule, len(c.Tickets.SupportHours))
	for day, window := range c.Tickets.SupportHours {
		wd, err := ParseWeekday(day)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid support_hours weekday", day)
		}
		start, end, err := ParseWindow(window)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid support_hours window", fmt.Sprintf("%s=%s", day, window))
		}
		schedule[wd] = biztime.Window{Start: start, End: end}
	}
	return schedule, nil
}

// CategoryParents returns tickets.category_parents keyed by category. Empty
// values are dropped so those tickets are created at the guild root.
func (c *Config) CategoryParents() (map[vo.Category]string, error) {
	parents := make(map[vo.Category]string, len(c.Tickets.CategoryParents))
	for key, parentID := range c.Tickets.CategoryParents {
		cat, err := vo.NewCategory(key)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid category_parents key", key)
		}
		if parentID != "" {
			parents[cat] = parentID
		}
	}
	return parents, nil
}

// configKey maps a validator field path (Config.Discord.Token) to the dotted
// config key (discord.token) an operator would set.
func configKey(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}
	keys := make([]string, 0, len(parts))
	t := reflect.TypeOf(Config{})
	for _, p := range parts {
		if t.Kind() != reflect.Struct {
			keys = append(keys, strings.ToLower(p))
			continue
		}
		f, ok := t.FieldByName(p)
		if !ok {
			keys = append(keys, strings.ToLower(p))
			continue
		}
		keys = append(keys, f.Tag.Get("mapstructure"))
		t = f.Type
	}
	return strings.Join(keys, ".")
}

// ParseWeekday accepts English weekday names or their three-letter prefix.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// ParseWindow parses "HH:MM-HH:MM" into minutes since midnight.
func ParseWindow(s string) (start, end int, err error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("window %q: expected HH:MM-HH:MM", s)
	}
	if start, err = parseClock(from); err != nil {
		return 0, 0, err
	}
	if end, err = parseClock(to); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// bindRequiredEnv makes AutomaticEnv visible to Unmarshal for keys that have no
// default and may be absent from the config file.
func bindRequiredEnv(v *viper.Viper) {
	for _, key := range []string{
		"discord.token", "discord.client_id", "discord.guild_id",
		"roles.staff", "roles.close", "roles.bypass", "roles.join",
		"tickets.log_channel_id", "tickets.welcome_channel_id",
		"panel.banner_url", "panel.thumbnail_url",
		"lock.redis_url", "http.public_base_url",
		"tickets.category_parents.armed_branch", "tickets.category_parents.informational",
		"tickets.category_parents.general", "tickets.category_parents.factional",
	} {
		_ = v.BindEnv(key)
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Tickets defaults
	v.SetDefault("tickets.close_grace", 1200*time.Millisecond)
	v.SetDefault("tickets.open_lock_ttl", 15*time.Second)
	v.SetDefault("tickets.close_lock_ttl", 2*time.Minute)
	v.SetDefault("tickets.audit_bucket", time.Minute)
	v.SetDefault("tickets.timezone", "Europe/Rome")
	v.SetDefault("tickets.support_hours", map[string]string{
		"monday":    "12:00-00:00",
		"tuesday":   "12:00-00:00",
		"wednesday": "12:00-00:00",
		"thursday":  "12:00-00:00",
		"friday":    "12:00-00:00",
		"saturday":  "10:30-01:30",
		"sunday":    "10:30-00:00",
	})

	// Panel defaults
	v.SetDefault("panel.refresh_interval", time.Hour)
	v.SetDefault("panel.thumbnail_url", "https://i.imgur.com/wUuHZUk.png")

	// Lock defaults
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.instance_ttl", 90*time.Second)
	v.SetDefault("lock.instance_renew_interval", 30*time.Second)

	// Storage defaults
	v.SetDefault("storage.data_dir", "./data")

	// Transcript defaults
	v.SetDefault("transcript.retention", 7*24*time.Hour)
	v.SetDefault("transcript.sweep_interval", time.Hour)
	v.SetDefault("transcript.template_dir", "./templates")

	// HTTP defaults
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")
}
