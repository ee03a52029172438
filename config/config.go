// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config defines the configuration file of the pyscope checker.
//
// A configuration file is a YAML document such as:
//
//	builtins: [print, len]      # replaces the standard builtins
//	extra_builtins: [_, gettext]
//	allow: [injected_by_plugin] # names always considered bound
//	star_imports: report        # or suppress (the default)
//	exclude: [migrations, third_party]
//	max_files: 5000
//	jobs: 8
//	cache: .pyscope-cache.db
//
// Unknown keys are errors.
package config // import "go.pyscope.dev/config"

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"go.pyscope.dev/resolve"
)

// DefaultFile is the name of the configuration file looked up by Find.
const DefaultFile = ".pyscope.yaml"

// Config is the checker configuration.
type Config struct {
	Builtins      []string `yaml:"builtins"`       // if non-empty, replaces resolve.Builtins
	ExtraBuiltins []string `yaml:"extra_builtins"` // added to the builtins
	Allow         []string `yaml:"allow"`          // names always bound
	StarImports   string   `yaml:"star_imports"`   // "suppress" or "report"
	Exclude       []string `yaml:"exclude"`        // directory names skipped during discovery
	MaxFiles      int      `yaml:"max_files"`      // 0 means no limit
	Jobs          int      `yaml:"jobs"`           // 0 means GOMAXPROCS
	Cache         string   `yaml:"cache"`          // findings cache database, if any
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{StarImports: resolve.SuppressUnresolved.String()}
}

// Load reads the configuration file of the specified name.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(filename, data)
}

// Parse decodes a configuration file. Fields absent from the file
// keep their default values. An empty file yields the default
// configuration.
func Parse(filename string, data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Find looks for DefaultFile in dir and its ancestors and returns the
// name of the first one found, or "" if there is none.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		filename := filepath.Join(dir, DefaultFile)
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Validate reports the first invalid field of the configuration.
func (c *Config) Validate() error {
	if _, err := resolve.ParseStarImportPolicy(c.StarImports); err != nil {
		return fmt.Errorf("star_imports: %w", err)
	}
	if c.MaxFiles < 0 {
		return fmt.Errorf("max_files: must not be negative, got %d", c.MaxFiles)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs: must not be negative, got %d", c.Jobs)
	}
	for _, names := range [][]string{c.Builtins, c.ExtraBuiltins, c.Allow} {
		for _, name := range names {
			if !isIdentifier(name) {
				return fmt.Errorf("%q is not an identifier", name)
			}
		}
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c != '_' && !unicode.IsLetter(c) && !(i > 0 && unicode.IsDigit(c)) {
			return false
		}
	}
	return true
}

// Options returns the resolver options denoted by the configuration.
func (c *Config) Options() *resolve.Options {
	builtins := resolve.Builtins
	if len(c.Builtins) > 0 {
		builtins = resolve.NewNameSet(c.Builtins...)
	}
	if len(c.ExtraBuiltins) > 0 {
		builtins = builtins.Union(resolve.NewNameSet(c.ExtraBuiltins...))
	}
	policy, _ := resolve.ParseStarImportPolicy(c.StarImports)
	return &resolve.Options{
		Builtins:    builtins,
		Predeclared: resolve.NewNameSet(c.Allow...),
		StarImports: policy,
	}
}

// Fingerprint returns a digest of the parts of the configuration that
// affect the findings of a file. Two configurations with the same
// fingerprint produce the same findings for every file.
func (c *Config) Fingerprint() string {
	opts := c.Options()
	h := sha256.New()
	fmt.Fprintf(h, "builtins=%s\n", strings.Join(opts.Builtins.Names(), ","))
	fmt.Fprintf(h, "allow=%s\n", strings.Join(opts.Predeclared.Names(), ","))
	fmt.Fprintf(h, "star_imports=%s\n", opts.StarImports)
	return hex.EncodeToString(h.Sum(nil))
}
