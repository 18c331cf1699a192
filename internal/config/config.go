// Package config loads and holds the application configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/constants"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds connection settings for the Airflow metadata database.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the database connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnectionConfig holds credentials for a named storage connection,
// analogous to an Airflow connection ID.
type ConnectionConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// ScheduleConfig describes an optional recurring cleanup run.
type ScheduleConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Cron              string   `mapstructure:"cron"`
	DryRun            bool     `mapstructure:"dry_run"`
	OlderThanDays     int      `mapstructure:"older_than_days"`
	Provider          string   `mapstructure:"provider"`
	ConnectionID      string   `mapstructure:"connection_id"`
	BucketName        string   `mapstructure:"bucket_name"`
	ProviderSecretEnv string   `mapstructure:"provider_secret_env"`
	PurgeTables       bool     `mapstructure:"purge_tables"`
	TableNames        []string `mapstructure:"table_names"`
}

// CleanupConfig holds defaults for cleanup and export runs.
type CleanupConfig struct {
	ReleaseName   string         `mapstructure:"release_name"`
	OutputPath    string         `mapstructure:"output_path"`
	ArchivePrefix string         `mapstructure:"archive_prefix"`
	BatchSize     int            `mapstructure:"batch_size"`
	Schedule      ScheduleConfig `mapstructure:"schedule"`
}

// DiscordConfig holds Discord notifier settings.
type DiscordConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Webhook string `mapstructure:"webhook"`
}

// NotifiersConfig holds settings for all notifiers.
type NotifiersConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Discord DiscordConfig `mapstructure:"discord"`
}

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig                `mapstructure:"server"`
	Database    DatabaseConfig              `mapstructure:"database"`
	Cleanup     CleanupConfig               `mapstructure:"cleanup"`
	Connections map[string]ConnectionConfig `mapstructure:"connections"`
	Notifiers   NotifiersConfig             `mapstructure:"notifiers"`
}

// Connection returns the named storage connection, if configured.
func (c *Config) Connection(id string) (ConnectionConfig, bool) {
	conn, ok := c.Connections[id]
	return conn, ok
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", constants.DefaultListenAddr)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Minute)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "airflow")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("cleanup.release_name", constants.DefaultReleaseName)
	v.SetDefault("cleanup.output_path", constants.DefaultOutputPath)
	v.SetDefault("cleanup.archive_prefix", constants.ArchiveTablePrefix)
	v.SetDefault("cleanup.batch_size", constants.DefaultBatchSize)
	v.SetDefault("cleanup.schedule.enabled", false)
	v.SetDefault("cleanup.schedule.cron", "0 3 * * *")
	v.SetDefault("cleanup.schedule.dry_run", true)
	v.SetDefault("cleanup.schedule.older_than_days", 90)
	v.SetDefault("cleanup.schedule.provider", "local")

	v.SetDefault("notifiers.enabled", false)
	v.SetDefault("notifiers.discord.enabled", false)
}

// LoadConfig reads the configuration from the optional config file and the
// environment. Environment variables use the DBCLEANUP_ prefix with
// underscores, e.g. DBCLEANUP_DATABASE_HOST.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DBCLEANUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("dbcleanup")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/dbcleanup")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &cfg, nil
}
