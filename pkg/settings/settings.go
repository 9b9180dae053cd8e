// Package settings loads the application settings of titleplot.
//
// Settings describe the environment a batch runs in: where fingerprint
// records live, where run summaries go, how the PDF printer is reached and
// how long to wait for artifacts. They are separate from the print
// configuration (package plotconfig), which describes what a batch prints.
//
// Priority, highest first:
//
//  1. environment variables with the TITLEPLOT_ prefix
//     (TITLEPLOT_CACHE_BACKEND, TITLEPLOT_REDIS_ADDR, ...)
//  2. titleplot.toml in the working directory or the config directory
//  3. built-in defaults
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matzehuels/titleplot/pkg/drawing"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
	"github.com/matzehuels/titleplot/pkg/plot"
	"github.com/matzehuels/titleplot/pkg/plot/chromeengine"
	"github.com/matzehuels/titleplot/pkg/poll"
	"github.com/matzehuels/titleplot/pkg/report"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// Report sinks.
const (
	SinkFile  = "file"
	SinkMongo = "mongo"
	SinkNone  = "none"
)

const (
	configName  = "titleplot"
	envPrefix   = "TITLEPLOT"
	defaultAddr = "127.0.0.1:8375"
)

// Settings is the loaded application configuration.
type Settings struct {
	Cache   CacheSettings
	Report  ReportSettings
	Chrome  ChromeSettings
	Plot    PlotSettings
	Server  ServerSettings
	Catalog CatalogSettings

	// File is the settings file that was read, empty when none was found.
	File string
}

type CacheSettings struct {
	Backend string
	Redis   fingerprint.RedisConfig
}

type ReportSettings struct {
	Sink  string
	Mongo report.MongoConfig
}

type ChromeSettings struct {
	RemoteURL string
	ExecPath  string
	NoSandbox bool
	Timeout   time.Duration
}

type PlotSettings struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	BusyTimeout  time.Duration
	// Async lets the engine write artifacts in the background.
	Async bool
}

type ServerSettings struct {
	Addr string
}

// CatalogSettings adds media and style sheets to the PDF device.
type CatalogSettings struct {
	Media       []drawing.Media
	StyleSheets []string
}

// Load reads settings. An explicit file must exist; without one the
// default locations are searched and a missing file is not an error.
func Load(file string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "read settings")
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &Settings{
		Cache: CacheSettings{
			Backend: strings.ToLower(v.GetString("cache.backend")),
			Redis: fingerprint.RedisConfig{
				Addr:     v.GetString("redis.addr"),
				Password: v.GetString("redis.password"),
				DB:       v.GetInt("redis.db"),
				Prefix:   v.GetString("redis.prefix"),
			},
		},
		Report: ReportSettings{
			Sink: strings.ToLower(v.GetString("report.sink")),
			Mongo: report.MongoConfig{
				URI:        v.GetString("mongo.uri"),
				Database:   v.GetString("mongo.database"),
				Collection: v.GetString("mongo.collection"),
			},
		},
		Chrome: ChromeSettings{
			RemoteURL: v.GetString("chrome.remote_url"),
			ExecPath:  v.GetString("chrome.exec_path"),
			NoSandbox: v.GetBool("chrome.no_sandbox"),
			Timeout:   v.GetDuration("chrome.timeout"),
		},
		Plot: PlotSettings{
			PollInterval: v.GetDuration("plot.poll_interval"),
			PollTimeout:  v.GetDuration("plot.poll_timeout"),
			BusyTimeout:  v.GetDuration("plot.busy_timeout"),
			Async:        v.GetBool("plot.async"),
		},
		Server: ServerSettings{
			Addr: v.GetString("server.addr"),
		},
		Catalog: CatalogSettings{
			StyleSheets: v.GetStringSlice("catalog.style_sheets"),
		},
		File: v.ConfigFileUsed(),
	}
	if err := v.UnmarshalKey("catalog.media", &s.Catalog.Media); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "catalog media")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.backend", CacheFile)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", fingerprint.DefaultRedisPrefix)
	v.SetDefault("report.sink", SinkFile)
	v.SetDefault("mongo.database", report.DefaultDatabase)
	v.SetDefault("mongo.collection", report.DefaultCollection)
	v.SetDefault("chrome.timeout", chromeengine.DefaultTimeout)
	v.SetDefault("plot.poll_interval", poll.DefaultInterval)
	v.SetDefault("plot.poll_timeout", poll.DefaultTimeout)
	v.SetDefault("plot.busy_timeout", time.Duration(0))
	v.SetDefault("server.addr", defaultAddr)
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	switch s.Cache.Backend {
	case CacheFile, CacheMemory:
	case CacheRedis:
		if s.Cache.Redis.Addr == "" {
			return perrors.New(perrors.ErrCodeInvalidConfig, "redis cache requires redis.addr")
		}
	default:
		return perrors.New(perrors.ErrCodeInvalidConfig, "unknown cache backend %q", s.Cache.Backend)
	}

	switch s.Report.Sink {
	case SinkFile, SinkNone:
	case SinkMongo:
		if s.Report.Mongo.URI == "" {
			return perrors.New(perrors.ErrCodeInvalidConfig, "mongo report sink requires mongo.uri")
		}
	default:
		return perrors.New(perrors.ErrCodeInvalidConfig, "unknown report sink %q", s.Report.Sink)
	}

	if s.Chrome.Timeout < 0 {
		return perrors.New(perrors.ErrCodeInvalidConfig, "chrome.timeout cannot be negative")
	}
	opts := s.PlotOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	for _, m := range s.Catalog.Media {
		if m.Name == "" || !(m.Width > 0) || !(m.Height > 0) {
			return perrors.New(perrors.ErrCodeInvalidConfig, "catalog media %q needs a name and a positive size", m.Name)
		}
	}
	return nil
}

// PlotOptions returns the driver timings.
func (s *Settings) PlotOptions() plot.Options {
	return plot.Options{
		PollInterval: s.Plot.PollInterval,
		PollTimeout:  s.Plot.PollTimeout,
		BusyTimeout:  s.Plot.BusyTimeout,
	}
}

// ChromeConfig returns the printer configuration.
func (s *Settings) ChromeConfig() chromeengine.Config {
	return chromeengine.Config{
		Timeout:   s.Chrome.Timeout,
		RemoteURL: s.Chrome.RemoteURL,
		NoSandbox: s.Chrome.NoSandbox,
		ExecPath:  s.Chrome.ExecPath,
	}
}

// ConfigDir returns ~/.config/titleplot, honouring XDG_CONFIG_HOME.
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, configName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", configName), nil
}
