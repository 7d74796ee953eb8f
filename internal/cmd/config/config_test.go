package config

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appconfig "github.com/Iron-Ham/svcdeck/internal/config"
)

// setupConfigHome points the config directory at a temp dir and resets viper.
func setupConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	viper.Reset()
	t.Cleanup(viper.Reset)
	appconfig.SetDefaults()
	return filepath.Join(dir, "svcdeck", "config.yaml")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "svcdeck", SilenceUsage: true, SilenceErrors: true}
	Register(root)

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"config"}, args...))
	err := root.Execute()
	return buf.String(), err
}

// readBack loads the written config file into a fresh viper instance.
func readBack(t *testing.T, path string) *appconfig.Config {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var cfg appconfig.Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return &cfg
}

func TestLookupSetting(t *testing.T) {
	tests := []struct {
		key  string
		ok   bool
		kind string
	}{
		{"supervisor.stop_timeout_ms", true, "int"},
		{"watcher.enabled", true, "bool"},
		{"watcher.ignore", true, "list"},
		{"services.interpreters.node", true, "string"},
		{"services.interpreters.", false, ""},
		{"services.interpreters.a.b", false, ""},
		{"tui.theme", false, ""},
	}
	for _, tt := range tests {
		s, ok := lookupSetting(tt.key)
		if ok != tt.ok || s.kind != tt.kind {
			t.Errorf("lookupSetting(%q) = (%+v, %v), want kind %q ok %v", tt.key, s, ok, tt.kind, tt.ok)
		}
	}
}

func TestParseValue(t *testing.T) {
	list, err := parseValue(setting{key: "watcher.ignore", kind: "list"}, " .git, *.pyc ,,")
	if err != nil {
		t.Fatalf("parseValue(list) error = %v", err)
	}
	if got := list.([]string); !slices.Equal(got, []string{".git", "*.pyc"}) {
		t.Errorf("parseValue(list) = %v", got)
	}

	if _, err := parseValue(setting{key: "watcher.enabled", kind: "bool"}, "yes"); err == nil {
		t.Error("parseValue(bool, yes) should fail")
	}
	if _, err := parseValue(setting{key: "output.tail_bytes", kind: "int"}, "lots"); err == nil {
		t.Error("parseValue(int, lots) should fail")
	}
}

func TestDefaultValuesCoverSettings(t *testing.T) {
	for _, s := range settings {
		if strings.HasPrefix(s.key, interpreterPrefix) {
			continue
		}
		if _, ok := defaultValue(s.key); !ok {
			t.Errorf("no default for %s", s.key)
		}
	}
	if v, ok := defaultValue("services.interpreters.python"); !ok || v != "python3" {
		t.Errorf("defaultValue(python) = %v, %v", v, ok)
	}
	if _, ok := defaultValue("services.interpreters.ruby"); ok {
		t.Error("ruby should have no default")
	}
}

func TestDefaultConfigContentMatchesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := readBack(t, path)
	want := appconfig.Default()

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("template is invalid: %v", errs)
	}
	if cfg.Supervisor != want.Supervisor {
		t.Errorf("Supervisor = %+v, want %+v", cfg.Supervisor, want.Supervisor)
	}
	if cfg.Services.ManifestFile != want.Services.ManifestFile || cfg.Services.Interpreters["python"] != "python3" {
		t.Errorf("Services = %+v", cfg.Services)
	}
	if !slices.Equal(cfg.Paths.RemoteRoots, want.Paths.RemoteRoots) {
		t.Errorf("RemoteRoots = %q, want %q", cfg.Paths.RemoteRoots, want.Paths.RemoteRoots)
	}
	if cfg.Paths.Launcher != want.Paths.Launcher || cfg.Paths.UnbufferedFlag != want.Paths.UnbufferedFlag {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
	if cfg.Output != want.Output {
		t.Errorf("Output = %+v, want %+v", cfg.Output, want.Output)
	}
	if cfg.Logging != want.Logging {
		t.Errorf("Logging = %+v, want %+v", cfg.Logging, want.Logging)
	}
}

func TestConfigSet(t *testing.T) {
	configFile := setupConfigHome(t)

	out, err := run(t, "set", "supervisor.stop_timeout_ms", "12000")
	if err != nil {
		t.Fatalf("config set error = %v", err)
	}
	if !strings.Contains(out, "Set supervisor.stop_timeout_ms = 12000") {
		t.Errorf("output = %q", out)
	}
	if _, err := run(t, "set", "services.interpreters.node", "node"); err != nil {
		t.Fatalf("config set interpreter error = %v", err)
	}
	if _, err := run(t, "set", "watcher.ignore", ".git,*.pyc"); err != nil {
		t.Fatalf("config set list error = %v", err)
	}

	cfg := readBack(t, configFile)
	if cfg.Supervisor.StopTimeoutMs != 12000 {
		t.Errorf("StopTimeoutMs = %d, want 12000", cfg.Supervisor.StopTimeoutMs)
	}
	if cfg.Services.Interpreters["node"] != "node" || cfg.Services.Interpreters["python"] != "python3" {
		t.Errorf("Interpreters = %v", cfg.Services.Interpreters)
	}
	if !slices.Equal(cfg.Watcher.Ignore, []string{".git", "*.pyc"}) {
		t.Errorf("Ignore = %v", cfg.Watcher.Ignore)
	}
}

func TestConfigSet_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown key", []string{"tui.theme", "dark"}, "unknown configuration key"},
		{"bad int", []string{"output.tail_bytes", "big"}, "expected integer"},
		{"bad color", []string{"output.color", "sometimes"}, "output.color"},
		{"empty interpreter", []string{"services.interpreters.node", ""}, "services.interpreters.node"},
		{"bad glob", []string{"watcher.ignore", "[abc"}, "watcher.ignore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := setupConfigHome(t)

			_, err := run(t, append([]string{"set"}, tt.args...)...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("config set error = %v, want containing %q", err, tt.wantErr)
			}
			if _, statErr := os.Stat(configFile); !os.IsNotExist(statErr) {
				t.Error("rejected value should not be written")
			}
			if _, err := appconfig.Load(); err != nil {
				t.Errorf("viper left with the rejected value: %v", err)
			}
		})
	}
}

func TestConfigInit(t *testing.T) {
	configFile := setupConfigHome(t)

	out, err := run(t, "init")
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, configFile) {
		t.Errorf("output should name %s: %q", configFile, out)
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if string(data) != defaultConfigContent {
		t.Error("config file does not hold the default template")
	}

	if _, err := run(t, "init"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second init error = %v, want already exists", err)
	}
}

func TestConfigReset(t *testing.T) {
	configFile := setupConfigHome(t)

	if _, err := run(t, "set", "logging.level", "debug"); err != nil {
		t.Fatalf("config set error = %v", err)
	}
	if _, err := run(t, "set", "output.max_line_width", "120"); err != nil {
		t.Fatalf("config set error = %v", err)
	}

	out, err := run(t, "reset", "logging.level")
	if err != nil {
		t.Fatalf("config reset key error = %v", err)
	}
	if !strings.Contains(out, "Reset logging.level to default: info") {
		t.Errorf("output = %q", out)
	}
	cfg := readBack(t, configFile)
	if cfg.Logging.Level != "info" || cfg.Output.MaxLineWidth != 120 {
		t.Errorf("after key reset: level %q width %d", cfg.Logging.Level, cfg.Output.MaxLineWidth)
	}

	if _, err := run(t, "reset"); err != nil {
		t.Fatalf("config reset error = %v", err)
	}
	cfg = readBack(t, configFile)
	if cfg.Output.MaxLineWidth != 0 {
		t.Errorf("MaxLineWidth after reset = %d, want 0", cfg.Output.MaxLineWidth)
	}
	if got := viper.GetInt("output.max_line_width"); got != 0 {
		t.Errorf("viper value after reset = %d, want 0", got)
	}
}

func TestConfigReset_NoDefault(t *testing.T) {
	setupConfigHome(t)
	_, err := run(t, "reset", "services.interpreters.ruby")
	if err == nil || !strings.Contains(err.Error(), "no default") {
		t.Errorf("reset error = %v, want no default", err)
	}
}

func TestConfigShowAndPath(t *testing.T) {
	configFile := setupConfigHome(t)

	out, err := run(t, "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	for _, want := range []string{"(none - using defaults)", "stop_timeout_ms: 5000", "manifest_file: services.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if !strings.Contains(out, configFile) || !strings.Contains(out, "SVCDECK_") {
		t.Errorf("path output = %q", out)
	}
}

func TestConfigEdit_UsesEditor(t *testing.T) {
	configFile := setupConfigHome(t)
	t.Setenv("EDITOR", "true")

	if _, err := run(t, "edit"); err != nil {
		t.Fatalf("config edit error = %v", err)
	}
	if _, err := os.Stat(configFile); err != nil {
		t.Errorf("edit should create the config file first: %v", err)
	}
}
