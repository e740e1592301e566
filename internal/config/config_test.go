package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestCacheBase_XDGSet(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/custom/cache")
	got := cacheBase()
	want := filepath.Join("/custom/cache", "erldoc")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCacheBase_HomeDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	got := cacheBase()
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}
	want := filepath.Join(home, ".cache", "erldoc")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCacheBase_TmpFallback(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "")
	got := cacheBase()
	if !strings.Contains(got, "erldoc") {
		t.Errorf("expected erldoc in path, got %q", got)
	}
}

func TestProjectPaths(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/cache")

	a, b := ProjectDir("/src/a"), ProjectDir("/src/b")
	if a == b || !strings.HasPrefix(a, "/cache/erldoc/projects/") {
		t.Errorf("ProjectDir: %q %q", a, b)
	}
	if got := DBPath("/src/a", DriverDuckDB); got != filepath.Join(a, "env.duckdb") {
		t.Errorf("DBPath(duckdb) = %q", got)
	}
	if got := DBPath("/src/a", DriverSQLite); got != filepath.Join(a, "env.db") {
		t.Errorf("DBPath(sqlite) = %q", got)
	}
}

func TestDecode_Defaults(t *testing.T) {
	t.Parallel()

	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v.AllSettings())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Dir != "." || !reflect.DeepEqual(cfg.Source.Include, []string{"**/*.md"}) {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Output.Dir != "_build" || cfg.Erlang.DefaultModule != "erlang" || cfg.Store.Driver != DriverSQLite {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Daemon.ExpirationSeconds != 600 || cfg.Watch.DebounceMillis != 250 {
		t.Errorf("daemon/watch = %+v %+v", cfg.Daemon, cfg.Watch)
	}
}

func TestDecode_Intersphinx(t *testing.T) {
	t.Parallel()

	cfg, err := decode(map[string]interface{}{
		"store": map[string]interface{}{"driver": "duckdb"},
		"intersphinx": map[string]interface{}{
			"otp": "https://www.erlang.org/doc/",
			"elixir": map[string]interface{}{
				"url":       "https://hexdocs.pm/elixir",
				"inventory": "/tmp/elixir.inv",
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	otp := cfg.Intersphinx["otp"]
	if otp.URL != "https://www.erlang.org/doc/" || otp.InventoryURL() != "https://www.erlang.org/doc/objects.inv" {
		t.Errorf("otp = %+v (%s)", otp, otp.InventoryURL())
	}
	if ex := cfg.Intersphinx["elixir"]; ex.InventoryURL() != "/tmp/elixir.inv" {
		t.Errorf("elixir = %+v", ex)
	}
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings map[string]interface{}
		want     string
	}{
		{"driver", map[string]interface{}{"store": map[string]interface{}{"driver": "postgres"}}, "unknown store driver"},
		{"intersphinx_url", map[string]interface{}{
			"store":       map[string]interface{}{"driver": "sqlite"},
			"intersphinx": map[string]interface{}{"x": map[string]interface{}{"inventory": "a"}},
		}, "url is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := decode(tt.settings)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadFrom(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	toml := "[project]\nname = \"demo\"\n\n[output]\ndir = \"site\"\n\n[intersphinx]\notp = \"https://www.erlang.org/doc\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Project.Name != "demo" || cfg.Output.Dir != "site" || cfg.Source.Dir != dir {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Intersphinx["otp"].URL != "https://www.erlang.org/doc" {
		t.Errorf("intersphinx = %+v", cfg.Intersphinx)
	}

	empty, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if empty.Output.Dir != "_build" {
		t.Errorf("defaults not applied: %+v", empty.Output)
	}
}
