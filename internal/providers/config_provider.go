package providers

import (
	"fmt"
	"path/filepath"
	"publishd/internal/structures"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultMaxSuccessiveFailures = 2
	defaultArchiveConcurrency    = 8
	defaultArchiveBatchSize      = 200
	defaultGitTimeout            = 2 * time.Minute
	defaultCacheTTL              = 30 * time.Second
	defaultWriteTimeout          = 5 * time.Minute
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.BindEnv("logger.level", "PUBLISHD_LOG_LEVEL")
	v.BindEnv("database.dsn", "PUBLISHD_DB_DSN")
	v.BindEnv("deploy.queueFile", "PUBLISHD_QUEUE_FILE")
	v.BindEnv("deploy.bakeTimeout", "PUBLISHD_BAKE_TIMEOUT")
	v.BindEnv("archive.interval", "PUBLISHD_ARCHIVE_INTERVAL")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	applyDefaults(&conf)

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "PublishDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

func applyDefaults(conf *structures.Config) {
	if conf.WebServer.WriteTimeout <= 0 {
		conf.WebServer.WriteTimeout = defaultWriteTimeout
	}
	if conf.Deploy.MaxSuccessiveFailures <= 0 {
		conf.Deploy.MaxSuccessiveFailures = defaultMaxSuccessiveFailures
	}
	if conf.Deploy.GitTimeout <= 0 {
		conf.Deploy.GitTimeout = defaultGitTimeout
	}
	if conf.Archive.Concurrency <= 0 {
		conf.Archive.Concurrency = defaultArchiveConcurrency
	}
	if conf.Archive.BatchSize <= 0 {
		conf.Archive.BatchSize = defaultArchiveBatchSize
	}
	if conf.Cache.TTL <= 0 {
		conf.Cache.TTL = defaultCacheTTL
	}
}
