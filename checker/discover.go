// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checker

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"go.pyscope.dev/config"
)

// ErrNoFiles is returned by Discover when the roots contain no Python files.
var ErrNoFiles = errors.New("no Python files found")

// skipDirs are directories never searched for Python files.
var skipDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	"venv":         true,
	"env":          true,
	".venv":        true,
	".env":         true,
	"build":        true,
	"dist":         true,
	"target":       true,
}

// Discover returns the Python files under the specified roots, in
// lexical order within each root. A root that is a file is returned
// as is. Hidden directories, well-known build and environment
// directories, and the directories named by cfg.Exclude are skipped.
// At most cfg.MaxFiles files are returned if it is positive.
func Discover(cfg *config.Config, roots ...string) ([]string, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	exclude := make(map[string]bool, len(cfg.Exclude))
	for _, name := range cfg.Exclude {
		exclude[name] = true
	}

	var paths []string
	seen := make(map[string]bool)
	errLimit := errors.New("limit")
	add := func(path string) error {
		if seen[path] {
			return nil
		}
		seen[path] = true
		paths = append(paths, path)
		if cfg.MaxFiles > 0 && len(paths) >= cfg.MaxFiles {
			return errLimit
		}
		return nil
	}

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != root && (skipDirs[name] || exclude[name] || isHidden(name)) {
					return filepath.SkipDir
				}
				return nil
			}
			if path == root || filepath.Ext(path) == ".py" {
				return add(path)
			}
			return nil
		})
		if err == errLimit {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	return paths, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
