package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeTempFile(t, "cfg.yaml", `
runtime_command: [python3, launch.py]
runtime_dir: /opt/webui
host: 0.0.0.0
port_start: 7860
port_end: 7870
timeout_sec: 600
grace_sec: 10
tail_lines: 120
matrix_path: /etc/webuictl/matrix.yaml
ready_pattern: "Running on local URL"
listen_addr: 127.0.0.1:8080
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.RuntimeCommand, []string{"python3", "launch.py"}) {
		t.Fatalf("runtime_command = %v", cfg.RuntimeCommand)
	}
	if cfg.RuntimeDir != "/opt/webui" || cfg.Host != "0.0.0.0" || cfg.PortStart != 7860 || cfg.PortEnd != 7870 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.TimeoutSec != 600 || cfg.GraceSec != 10 || cfg.TailLines != 120 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.MatrixPath != "/etc/webuictl/matrix.yaml" || cfg.ListenAddr != "127.0.0.1:8080" || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeTempFile(t, "cfg.json", `{"runtime_command":["python3","launch.py"],"timeout_sec":120}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TimeoutSec != 120 {
		t.Fatalf("timeout_sec = %d", cfg.TimeoutSec)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeTempFile(t, "cfg.toml", "runtime_command = [\"python3\", \"launch.py\"]\nhost = \"10.0.0.5\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "10.0.0.5" {
		t.Fatalf("host = %q", cfg.Host)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("empty path must fail")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file must fail")
	}
	if _, err := Load(writeTempFile(t, "cfg.ini", "a=b")); err == nil {
		t.Error("unsupported extension must fail")
	}
	if _, err := Load(writeTempFile(t, "cfg.yaml", "runtime_command: [unterminated")); err == nil {
		t.Error("malformed yaml must fail")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("WEBUICTL_RUNTIME", "python3 webui.py")
	t.Setenv("WEBUICTL_RUNTIME_DIR", "/srv/webui")
	t.Setenv("WEBUICTL_HOST", "127.0.0.2")
	t.Setenv("WEBUICTL_MATRIX", "/tmp/matrix.yaml")
	t.Setenv("WEBUICTL_LOG_LEVEL", "trace")
	t.Setenv("WEBUICTL_LISTEN", ":9090")

	var cfg Config
	cfg.FromEnv()
	if !reflect.DeepEqual(cfg.RuntimeCommand, []string{"python3", "webui.py"}) {
		t.Fatalf("runtime_command = %v", cfg.RuntimeCommand)
	}
	if cfg.RuntimeDir != "/srv/webui" || cfg.Host != "127.0.0.2" || cfg.MatrixPath != "/tmp/matrix.yaml" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != "trace" || cfg.ListenAddr != ":9090" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestFromEnvDoesNotOverrideFile(t *testing.T) {
	t.Setenv("WEBUICTL_HOST", "10.9.9.9")
	cfg := Config{Host: "127.0.0.1"}
	cfg.FromEnv()
	if cfg.Host != "127.0.0.1" {
		t.Fatalf("file value must win, got %q", cfg.Host)
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if !reflect.DeepEqual(cfg.RuntimeCommand, []string{"python3", "launch.py"}) {
		t.Fatalf("runtime_command = %v", cfg.RuntimeCommand)
	}
	if cfg.Host != "127.0.0.1" || cfg.TimeoutSec != 300 || cfg.GraceSec != 5 || cfg.TailLines != 80 || cfg.LogLevel != "info" {
		t.Fatalf("cfg = %+v", cfg)
	}

	set := Config{TimeoutSec: 60, LogLevel: "warn"}
	set.ApplyDefaults()
	if set.TimeoutSec != 60 || set.LogLevel != "warn" {
		t.Fatalf("explicit values must survive defaults: %+v", set)
	}
}
