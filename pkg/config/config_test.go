package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// poolSettings is the shape the repo's deployments load: the pool section
// plus the transport and server settings around it.
type poolSettings struct {
	Pool struct {
		Workers int    `yaml:"workers" json:"workers"`
		Name    string `yaml:"name" json:"name"`
	} `yaml:"pool" json:"pool"`
	Transport struct {
		Backend string `yaml:"backend" json:"backend"`
		URL     string `yaml:"url" json:"url"`
	} `yaml:"transport" json:"transport"`
	Server struct {
		Addr            string        `yaml:"addr" json:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	} `yaml:"server" json:"server"`
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeTempFile(t, "settings.yaml", `
pool:
  workers: 4
  name: "ingest"
transport:
  backend: "nats"
  url: "nats://127.0.0.1:4222"
server:
  addr: ":8080"
  shutdown_timeout: 30s
`)

	var s poolSettings
	if err := LoadYAML(path, &s); err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	if s.Pool.Workers != 4 {
		t.Errorf("Pool.Workers = %d, want 4", s.Pool.Workers)
	}
	if s.Pool.Name != "ingest" {
		t.Errorf("Pool.Name = %q, want ingest", s.Pool.Name)
	}
	if s.Transport.Backend != "nats" {
		t.Errorf("Transport.Backend = %q, want nats", s.Transport.Backend)
	}
	if s.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 30s", s.Server.ShutdownTimeout)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeTempFile(t, "settings.json", `{
  "pool": {"workers": 2, "name": "batch"},
  "transport": {"backend": "memory", "url": ""},
  "server": {"addr": ":9090", "shutdown_timeout": 5000000000}
}`)

	var s poolSettings
	if err := LoadJSON(path, &s); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}

	if s.Pool.Workers != 2 {
		t.Errorf("Pool.Workers = %d, want 2", s.Pool.Workers)
	}
	if s.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", s.Server.Addr)
	}
}

func TestLoad_PicksCodecByExtension(t *testing.T) {
	yamlPath := writeTempFile(t, "settings.yml", "pool:\n  workers: 3\n")
	jsonPath := writeTempFile(t, "settings.json", `{"pool": {"workers": 7}}`)

	var fromYAML, fromJSON poolSettings
	if err := Load(yamlPath, &fromYAML); err != nil {
		t.Fatalf("Load yaml: %v", err)
	}
	if err := Load(jsonPath, &fromJSON); err != nil {
		t.Fatalf("Load json: %v", err)
	}

	if fromYAML.Pool.Workers != 3 || fromJSON.Pool.Workers != 7 {
		t.Errorf("workers = %d/%d, want 3/7", fromYAML.Pool.Workers, fromJSON.Pool.Workers)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s poolSettings
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &s); err == nil {
		t.Fatal("Load of a missing file should fail")
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := writeTempFile(t, "settings.yaml", `
pool:
  workers: 2
  name: "from-file"
transport:
  backend: "memory"
server:
  shutdown_timeout: 10s
`)

	t.Setenv("THREADPOOL_POOL_WORKERS", "8")
	t.Setenv("THREADPOOL_TRANSPORT_BACKEND", "nats")
	t.Setenv("THREADPOOL_SERVER_SHUTDOWNTIMEOUT", "1m")

	var s poolSettings
	if err := LoadWithEnv(path, "THREADPOOL", &s); err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}

	if s.Pool.Workers != 8 {
		t.Errorf("Pool.Workers = %d, want 8 (env override)", s.Pool.Workers)
	}
	if s.Pool.Name != "from-file" {
		t.Errorf("Pool.Name = %q, want from-file (no override set)", s.Pool.Name)
	}
	if s.Transport.Backend != "nats" {
		t.Errorf("Transport.Backend = %q, want nats (env override)", s.Transport.Backend)
	}
	if s.Server.ShutdownTimeout != time.Minute {
		t.Errorf("Server.ShutdownTimeout = %v, want 1m (env override)", s.Server.ShutdownTimeout)
	}
}

func TestApplyEnvOverrides_BadValue(t *testing.T) {
	t.Setenv("THREADPOOL_POOL_WORKERS", "many")

	var s poolSettings
	if err := ApplyEnvOverrides("THREADPOOL", &s); err == nil {
		t.Fatal("non-numeric override for an int field should fail")
	}
}

func TestApplyEnvOverrides_TargetMustBeStructPointer(t *testing.T) {
	var n int
	if err := ApplyEnvOverrides("THREADPOOL", &n); err == nil {
		t.Fatal("non-struct target should fail")
	}
	if err := ApplyEnvOverrides("THREADPOOL", poolSettings{}); err == nil {
		t.Fatal("non-pointer target should fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	var s poolSettings
	s.Pool.Workers = 6
	s.Pool.Name = "rt"
	s.Transport.Backend = "memory"

	yamlPath := filepath.Join(t.TempDir(), "out.yaml")
	if err := SaveYAML(yamlPath, &s); err != nil {
		t.Fatalf("SaveYAML: %v", err)
	}
	var fromYAML poolSettings
	if err := LoadYAML(yamlPath, &fromYAML); err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if fromYAML.Pool.Workers != 6 || fromYAML.Pool.Name != "rt" {
		t.Errorf("YAML round trip = %+v", fromYAML.Pool)
	}

	jsonPath := filepath.Join(t.TempDir(), "out.json")
	if err := SaveJSON(jsonPath, &s); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	var fromJSON poolSettings
	if err := LoadJSON(jsonPath, &fromJSON); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if fromJSON.Transport.Backend != "memory" {
		t.Errorf("JSON round trip = %+v", fromJSON.Transport)
	}
}

func TestValidate(t *testing.T) {
	var s poolSettings
	s.Pool.Workers = 4
	s.Pool.Name = "validated"
	s.Transport.Backend = "nats"

	err := Validate(&s,
		RequiredFields("Pool.Workers", "Pool.Name"),
		RangeValidator("Pool.Workers", 1, 1024),
		OneOf("Transport.Backend", "memory", "nats"),
	)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	var s poolSettings
	s.Pool.Workers = 0
	s.Transport.Backend = "carrier-pigeon"

	if err := Validate(&s, RequiredFields("Pool.Workers")); err == nil {
		t.Error("RequiredFields should reject a zero worker count")
	}
	if err := Validate(&s, RangeValidator("Pool.Workers", 1, 1024)); err == nil {
		t.Error("RangeValidator should reject 0")
	}
	if err := Validate(&s, OneOf("Transport.Backend", "memory", "nats")); err == nil {
		t.Error("OneOf should reject an unknown backend")
	}
	if err := Validate(&s, RequiredFields("Pool.Impossible")); err == nil {
		t.Error("RequiredFields should fail for unknown field paths")
	}
}

func TestValidatorFunc(t *testing.T) {
	sentinel := errors.New("rejected")
	fail := ValidatorFunc(func(interface{}) error { return sentinel })

	err := Validate(struct{}{}, fail)
	if !errors.Is(err, sentinel) {
		t.Errorf("Validate error = %v, want wrapped sentinel", err)
	}
}
