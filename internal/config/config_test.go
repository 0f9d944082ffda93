package config

import (
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != "." {
		t.Errorf("Root = %q, want .", cfg.Root)
	}
	if cfg.Certificate.CertFile != "server.crt" || cfg.Certificate.KeyFile != "server.key" {
		t.Errorf("certificate paths = %q, %q", cfg.Certificate.CertFile, cfg.Certificate.KeyFile)
	}
	if cfg.Certificate.ValidityDays != 365 {
		t.Errorf("ValidityDays = %d, want 365", cfg.Certificate.ValidityDays)
	}
	if cfg.Certificate.KeyBits != 2048 {
		t.Errorf("KeyBits = %d, want 2048", cfg.Certificate.KeyBits)
	}
	if cfg.Static.Content != "Hello, World!" {
		t.Errorf("Static.Content = %q", cfg.Static.Content)
	}
	if cfg.Static.Index != filepath.Join("static", "index.html") {
		t.Errorf("Static.Index = %q", cfg.Static.Index)
	}
	if cfg.Build.Dir != "build" || cfg.Build.Command != "cmake" {
		t.Errorf("Build = %+v", cfg.Build)
	}
}

func TestDefaultDependencyOrder(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, d := range cfg.Dependencies {
		names = append(names, d.Name)
	}
	got := strings.Join(names, ",")
	want := "build-essential,cmake,openssl,nghttp2"
	if got != want {
		t.Errorf("dependency order = %q, want %q", got, want)
	}
}

func TestDefaultDependencyPackages(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		dep     string
		manager string
		want    string
	}{
		{"build-essential", "apt", "build-essential"},
		{"build-essential", "brew", "gcc"},
		{"openssl", "apt", "openssl libssl-dev"},
		{"openssl", "brew", "openssl"},
		{"nghttp2", "brew", "nghttp2"},
	}
	for _, tt := range tests {
		t.Run(tt.dep+"/"+tt.manager, func(t *testing.T) {
			var dep *Dependency
			for i := range cfg.Dependencies {
				if cfg.Dependencies[i].Name == tt.dep {
					dep = &cfg.Dependencies[i]
				}
			}
			if dep == nil {
				t.Fatalf("dependency %q not found", tt.dep)
			}
			args, ok := dep.PackageFor(tt.manager)
			if !ok {
				t.Fatalf("no package for %s", tt.manager)
			}
			if got := strings.Join(args, " "); got != tt.want {
				t.Errorf("PackageFor(%q) = %q, want %q", tt.manager, got, tt.want)
			}
		})
	}
}

func TestPackageForMissing(t *testing.T) {
	d := Dependency{Name: "x", Probe: "x", Packages: map[string]string{"apt": "x", "brew": "  "}}
	if _, ok := d.PackageFor("none"); ok {
		t.Error("expected no package for unknown manager")
	}
	if _, ok := d.PackageFor("brew"); ok {
		t.Error("expected blank package string to be treated as missing")
	}
}

func TestSubjectString(t *testing.T) {
	s := Subject{Country: "IN", State: "WB", Locality: "Ok", Organization: "test", Unit: "test", CommonName: "blaze"}
	want := "/C=IN/ST=WB/L=Ok/O=test/OU=test/CN=blaze"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPath(t *testing.T) {
	cfg := Config{Root: "/work"}
	if got := cfg.Path("server.crt"); got != filepath.Join("/work", "server.crt") {
		t.Errorf("Path(relative) = %q", got)
	}
	if got := cfg.Path("/etc/ssl/server.crt"); got != "/etc/ssl/server.crt" {
		t.Errorf("Path(absolute) = %q", got)
	}
	if got := cfg.WithRoot("/other").Path("build"); got != filepath.Join("/other", "build") {
		t.Errorf("WithRoot().Path() = %q", got)
	}
	if cfg.Root != "/work" {
		t.Error("WithRoot must not mutate the receiver")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Dependencies = append(cfg.Dependencies, Dependency{Name: "cmake", Probe: "cmake", Packages: map[string]string{"apt": "cmake"}})
	cfg.Dependencies = append(cfg.Dependencies, Dependency{Name: "bare"})
	cfg.Certificate.ValidityDays = 0
	cfg.Certificate.KeyBits = 1024

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"declared twice", "probe is required", "no packages declared", "validity_days", "key_bits"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestLoadDependenciesInvalid(t *testing.T) {
	if _, err := LoadDependencies([]byte("name: [unterminated")); err == nil {
		t.Error("expected parse error")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	var back Config
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Certificate.Subject != cfg.Certificate.Subject {
		t.Errorf("subject = %+v, want %+v", back.Certificate.Subject, cfg.Certificate.Subject)
	}
	if len(back.Dependencies) != len(cfg.Dependencies) {
		t.Errorf("dependencies = %d, want %d", len(back.Dependencies), len(cfg.Dependencies))
	}
}
