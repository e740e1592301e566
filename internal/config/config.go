package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// IntersphinxConfig names an external project whose objects.inv can be
// linked against. Inventory defaults to URL + "/objects.inv".
type IntersphinxConfig struct {
	URL       string `mapstructure:"url"`
	Inventory string `mapstructure:"inventory"`
}

// InventoryURL is where the project's inventory is fetched from.
func (c IntersphinxConfig) InventoryURL() string {
	if c.Inventory != "" {
		return c.Inventory
	}
	return strings.TrimSuffix(c.URL, "/") + "/objects.inv"
}

type ProjectConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type SourceConfig struct {
	Dir     string   `mapstructure:"dir"`
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type ErlangConfig struct {
	DefaultModule        string   `mapstructure:"default_module"`
	ModIndexCommonPrefix []string `mapstructure:"modindex_common_prefix"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type DaemonConfig struct {
	ExpirationSeconds int `mapstructure:"expiration_seconds"`
}

type WatchConfig struct {
	DebounceMillis int `mapstructure:"debounce_ms"`
}

type Config struct {
	Project     ProjectConfig                `mapstructure:"project"`
	Source      SourceConfig                 `mapstructure:"source"`
	Output      OutputConfig                 `mapstructure:"output"`
	Erlang      ErlangConfig                 `mapstructure:"erlang"`
	Intersphinx map[string]IntersphinxConfig `mapstructure:"intersphinx"`
	Store       StoreConfig                  `mapstructure:"store"`
	Daemon      DaemonConfig                 `mapstructure:"daemon"`
	Watch       WatchConfig                  `mapstructure:"watch"`
}

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// cacheBase returns the base cache directory for erldoc.
// Checks XDG_CACHE_HOME, then ~/.cache, then /tmp/erldoc as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "erldoc")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "erldoc")
	}
	return filepath.Join(os.TempDir(), "erldoc")
}

// ProjectDir is the cache directory of the project rooted at sourceDir.
func ProjectDir(sourceDir string) string {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		abs = sourceDir
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(cacheBase(), "projects", fmt.Sprintf("%x", sum[:8]))
}

// DBPath returns the path of the environment store for a project.
func DBPath(sourceDir, driver string) string {
	ext := ".db"
	if driver == DriverDuckDB {
		ext = ".duckdb"
	}
	return filepath.Join(ProjectDir(sourceDir), "env"+ext)
}

// CASDir returns the path to the content-addressable storage directory.
func CASDir() string {
	return filepath.Join(cacheBase(), "cas")
}

// InventoryCacheDir holds fetched external inventories.
func InventoryCacheDir() string {
	return filepath.Join(cacheBase(), "inventories")
}

// LogPath returns the path to the daemon's log file.
func LogPath() string {
	return filepath.Join(cacheBase(), "daemon.log")
}

// SocketPath returns the path to the daemon's unix socket.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "erldoc", "daemon.sock")
	}
	return filepath.Join(fmt.Sprintf("/run/user/%d", os.Getuid()), "erldoc", "daemon.sock")
}

func InitializeViper() error {
	return initialize(viper.GetViper(), ".")
}

func initialize(v *viper.Viper, dir string) error {
	v.SetConfigName("config")
	v.SetConfigType("toml")

	v.AddConfigPath(dir)
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "erldoc"))
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "erldoc"))
	}

	setDefaults(v)

	v.SetEnvPrefix("ERLDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "")
	v.SetDefault("project.version", "")
	v.SetDefault("source.dir", ".")
	v.SetDefault("source.include", []string{"**/*.md"})
	v.SetDefault("source.exclude", []string{})
	v.SetDefault("output.dir", "_build")
	v.SetDefault("erlang.default_module", "erlang")
	v.SetDefault("erlang.modindex_common_prefix", []string{})
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("daemon.expiration_seconds", 600)
	v.SetDefault("watch.debounce_ms", 250)
}

// stringToIntersphinxHookFunc lets an intersphinx entry be a bare URL.
func stringToIntersphinxHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(IntersphinxConfig{}) {
			return data, nil
		}
		if f.Kind() == reflect.String {
			return IntersphinxConfig{URL: data.(string)}, nil
		}
		return data, nil
	}
}

func Load() (*Config, error) {
	if err := InitializeViper(); err != nil {
		return nil, err
	}
	return decode(viper.AllSettings())
}

// LoadFrom loads the configuration of the project rooted at dir, for
// processes such as the daemon that serve more than one project. The
// source directory is always dir itself.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	if err := initialize(v, dir); err != nil {
		return nil, err
	}
	cfg, err := decode(v.AllSettings())
	if err != nil {
		return nil, err
	}
	cfg.Source.Dir = dir
	return cfg, nil
}

func decode(settings map[string]interface{}) (*Config, error) {
	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToIntersphinxHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverDuckDB:
	default:
		return fmt.Errorf("unknown store driver %q (want %q or %q)", c.Store.Driver, DriverSQLite, DriverDuckDB)
	}
	for name, is := range c.Intersphinx {
		if is.URL == "" {
			return fmt.Errorf("intersphinx %q: url is required", name)
		}
	}
	return nil
}
