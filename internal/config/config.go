// Package config holds the fixed provisioning configuration for a BlazeHTTP checkout.
// A Config is built once at start-up with Default and passed by value to every step.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed dependencies.yaml
var dependencyManifest []byte

// Config is the complete, immutable description of a provisioned checkout.
type Config struct {
	// Root is the directory every relative path below resolves against.
	Root         string       `yaml:"root"`
	Dependencies []Dependency `yaml:"dependencies"`
	Certificate  Certificate  `yaml:"certificate"`
	Static       Static       `yaml:"static"`
	Build        Build        `yaml:"build"`
	NextSteps    []string     `yaml:"next_steps"`
}

// Dependency is a build or runtime tool the server needs on the host.
type Dependency struct {
	Name string `yaml:"name"`
	// Probe is the command whose presence on PATH means the dependency is installed.
	Probe string `yaml:"probe"`
	// Packages maps a package manager name to the install argument string.
	// The string may name several packages separated by spaces.
	Packages map[string]string `yaml:"packages"`
}

// PackageFor returns the install packages for manager, split into arguments.
func (d Dependency) PackageFor(manager string) ([]string, bool) {
	pkg, ok := d.Packages[manager]
	if !ok || strings.TrimSpace(pkg) == "" {
		return nil, false
	}
	return strings.Fields(pkg), true
}

// Subject is the distinguished name of the self-signed certificate.
type Subject struct {
	Country      string `yaml:"country"`
	State        string `yaml:"state"`
	Locality     string `yaml:"locality"`
	Organization string `yaml:"organization"`
	Unit         string `yaml:"unit"`
	CommonName   string `yaml:"common_name"`
}

// String renders the subject in the slash form openssl's -subj flag expects.
func (s Subject) String() string {
	return fmt.Sprintf("/C=%s/ST=%s/L=%s/O=%s/OU=%s/CN=%s",
		s.Country, s.State, s.Locality, s.Organization, s.Unit, s.CommonName)
}

// Certificate describes the TLS certificate/key pair served by the HTTP server.
type Certificate struct {
	CertFile     string  `yaml:"cert_file"`
	KeyFile      string  `yaml:"key_file"`
	Subject      Subject `yaml:"subject"`
	ValidityDays int     `yaml:"validity_days"`
	KeyBits      int     `yaml:"key_bits"`
}

// Static describes the static-content root and its default entry file.
type Static struct {
	Root    string `yaml:"root"`
	Index   string `yaml:"index"`
	Content string `yaml:"content"`
}

// Build describes the out-of-tree build directory and its configure command.
type Build struct {
	Dir     string   `yaml:"dir"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Default returns the fixed configuration rooted at the current directory.
func Default() (Config, error) {
	deps, err := LoadDependencies(dependencyManifest)
	if err != nil {
		return Config{}, fmt.Errorf("load dependency manifest: %w", err)
	}
	cfg := Config{
		Root:         ".",
		Dependencies: deps,
		Certificate: Certificate{
			CertFile: "server.crt",
			KeyFile:  "server.key",
			Subject: Subject{
				Country:      "IN",
				State:        "WB",
				Locality:     "Ok",
				Organization: "test",
				Unit:         "test",
				CommonName:   "blaze",
			},
			ValidityDays: 365,
			KeyBits:      2048,
		},
		Static: Static{
			Root:    "static",
			Index:   filepath.Join("static", "index.html"),
			Content: "Hello, World!",
		},
		Build: Build{
			Dir:     "build",
			Command: "cmake",
			Args:    []string{".."},
		},
		NextSteps: []string{
			"./start_server.sh",
			"cd build && make && ./http_server",
		},
	}
	return cfg, cfg.Validate()
}

// LoadDependencies parses a YAML dependency manifest.
func LoadDependencies(data []byte) ([]Dependency, error) {
	var deps []Dependency
	if err := yaml.Unmarshal(data, &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// WithRoot returns a copy of c whose relative paths resolve against root.
func (c Config) WithRoot(root string) Config {
	c.Root = root
	return c
}

// Path resolves p against the config root. Absolute paths are returned unchanged.
func (c Config) Path(p string) string {
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, d := range c.Dependencies {
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Errorf("dependency %d: name is required", i))
		case seen[d.Name]:
			errs = append(errs, fmt.Errorf("dependency %q: declared twice", d.Name))
		}
		seen[d.Name] = true
		if d.Probe == "" {
			errs = append(errs, fmt.Errorf("dependency %q: probe is required", d.Name))
		}
		if len(d.Packages) == 0 {
			errs = append(errs, fmt.Errorf("dependency %q: no packages declared", d.Name))
		}
	}
	if c.Certificate.CertFile == "" || c.Certificate.KeyFile == "" {
		errs = append(errs, errors.New("certificate: cert_file and key_file are required"))
	}
	if c.Certificate.ValidityDays <= 0 {
		errs = append(errs, errors.New("certificate: validity_days must be positive"))
	}
	if c.Certificate.KeyBits < 2048 {
		errs = append(errs, errors.New("certificate: key_bits must be at least 2048"))
	}
	if c.Static.Root == "" || c.Static.Index == "" {
		errs = append(errs, errors.New("static: root and index are required"))
	}
	if c.Build.Dir == "" || c.Build.Command == "" {
		errs = append(errs, errors.New("build: dir and command are required"))
	}
	return errors.Join(errs...)
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
