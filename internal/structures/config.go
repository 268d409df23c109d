package structures

import "time"

type Server struct {
	Host         string        `yaml:"host" validate:"required"`
	Port         int           `yaml:"port" validate:"required|uint|min:1"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type DatabaseConfig struct {
	Driver         string        `yaml:"driver" validate:"required|in:postgres,sqlite"`
	DSN            string        `yaml:"dsn" validate:"required"`
	MigrateSources bool          `yaml:"migrateSources"`
	SlowQuery      time.Duration `yaml:"slowQuery"`
}

type DeployConfig struct {
	QueueFile             string        `yaml:"queueFile" validate:"required|unixPath"`
	MaxSuccessiveFailures int           `yaml:"maxSuccessiveFailures"`
	LightningEnabled      bool          `yaml:"lightningEnabled"`
	BakeTimeout           time.Duration `yaml:"bakeTimeout"`
	PollInterval          time.Duration `yaml:"pollInterval"`
	WatchQueue            bool          `yaml:"watchQueue"`
	SiteRepoDir           string        `yaml:"siteRepoDir"`
	FullBakeCommand       []string      `yaml:"fullBakeCommand"`
	LightningBakeCommand  []string      `yaml:"lightningBakeCommand"`
	GitPush               bool          `yaml:"gitPush"`
	GitTimeout            time.Duration `yaml:"gitTimeout"`
}

type ArchiveConfig struct {
	Interval       time.Duration     `yaml:"interval"`
	Concurrency    int               `yaml:"concurrency"`
	BatchSize      int               `yaml:"batchSize"`
	SnapshotDir    string            `yaml:"snapshotDir"`
	BuildManifest  string            `yaml:"buildManifest"`
	StaticBaseURL  string            `yaml:"staticBaseUrl"`
	RuntimeBaseURL string            `yaml:"runtimeBaseUrl"`
	Repos          map[string]string `yaml:"repos"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server         `yaml:"webServer"`
	Logger    LoggerConfig   `yaml:"logger"`
	Database  DatabaseConfig `yaml:"database"`
	Deploy    DeployConfig   `yaml:"deploy"`
	Archive   ArchiveConfig  `yaml:"archive"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}
