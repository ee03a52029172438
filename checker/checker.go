// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package checker applies the resolver to Python files: it reads and
// parses each file, reports unreadable and unparsable files as
// findings, and checks many files in parallel.
package checker // import "go.pyscope.dev/checker"

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"go.pyscope.dev/cache"
	"go.pyscope.dev/config"
	"go.pyscope.dev/resolve"
	"go.pyscope.dev/syntax"
)

// A Checker checks Python files under one configuration.
// It is safe for concurrent use.
type Checker struct {
	cfg         *config.Config
	opts        *resolve.Options
	fingerprint string
	cache       *cache.Cache // may be nil
	log         *log.Logger  // may be nil
}

// New returns a checker for the specified configuration.
// If c is non-nil, it is used to memoize the findings of files.
// If logger is non-nil, progress is logged to it.
func New(cfg *config.Config, c *cache.Cache, logger *log.Logger) *Checker {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Checker{
		cfg:         cfg,
		opts:        cfg.Options(),
		fingerprint: cfg.Fingerprint(),
		cache:       c,
		log:         logger,
	}
}

// Options returns the resolver options of the checker.
func (c *Checker) Options() *resolve.Options { return c.opts }

func (c *Checker) logf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// A FileError records a file that could not be checked because the
// resolver failed on it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// Results is the outcome of checking a set of files.
type Results struct {
	Files    int               // number of files checked, including failed ones
	Cached   int               // number of files whose findings came from the cache
	Failed   []*FileError      // files the resolver failed on, by path
	Findings []resolve.Finding // sorted by resolve.SortFindings
}

// CheckFile reads, parses and resolves one file.
// A file that cannot be read or parsed yields a single finding.
// CheckFile returns an error only if ctx is done or the resolver
// fails on the file.
func (c *Checker) CheckFile(ctx context.Context, path string) ([]resolve.Finding, error) {
	findings, _, err := c.checkFile(ctx, path)
	return findings, err
}

func (c *Checker) checkFile(ctx context.Context, path string) (findings []resolve.Finding, cached bool, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return []resolve.Finding{ioFinding(path, 0, 0, err.Error())}, false, nil
	}

	var key string
	if c.cache != nil {
		key = cache.Key(c.fingerprint, src)
		findings, ok, err := c.cache.Get(key, path)
		if err != nil {
			c.logf("%s: %v", path, err)
		} else if ok {
			return findings, true, nil
		}
	}

	findings, err = c.CheckSource(ctx, path, src)
	if err != nil {
		return nil, false, err
	}
	if c.cache != nil {
		if err := c.cache.Put(key, findings); err != nil {
			c.logf("%s: %v", path, err)
		}
	}
	return findings, false, nil
}

// CheckSource parses and resolves the source of a file.
func (c *Checker) CheckSource(ctx context.Context, filename string, src []byte) ([]resolve.Finding, error) {
	if line, col, ok := invalidUTF8(src); ok {
		return []resolve.Finding{ioFinding(filename, line, col, "invalid UTF-8 encoding")}, nil
	}

	f, err := syntax.Parse(filename, src)
	if err != nil {
		var serr syntax.Error
		if !errors.As(err, &serr) {
			return nil, err
		}
		return []resolve.Finding{{
			Pos:      serr.Pos,
			Code:     resolve.CodeSyntax,
			Severity: resolve.SeverityError,
			Msg:      "syntax error: " + serr.Msg,
		}}, nil
	}
	return resolve.FileContext(ctx, f, c.opts)
}

func ioFinding(filename string, line, col int32, msg string) resolve.Finding {
	return resolve.Finding{
		Pos:      syntax.MakePosition(&filename, line, col),
		Code:     resolve.CodeIO,
		Severity: resolve.SeverityError,
		Msg:      msg,
	}
}

// invalidUTF8 returns the position of the first invalid byte of src.
func invalidUTF8(src []byte) (line, col int32, ok bool) {
	line, col = 1, 1
	for len(src) > 0 {
		r, size := utf8.DecodeRune(src)
		if r == utf8.RuneError && size == 1 {
			return line, col, true
		}
		if r == '\n' {
			line, col = line+1, 1
		} else {
			col++
		}
		src = src[size:]
	}
	return 0, 0, false
}

// Run checks the specified files in parallel.
// If ctx is done before all files are checked, Run returns its error
// and no results.
func (c *Checker) Run(ctx context.Context, paths []string) (*Results, error) {
	type result struct {
		findings []resolve.Finding
		cached   bool
		err      error
	}
	results := make([]result, len(paths))

	jobs := c.cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.logf("checking %s", path)
			findings, cached, err := c.checkFile(gctx, path)
			if err != nil && !isInternal(err) {
				return err
			}
			results[i] = result{findings, cached, err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Results{Files: len(paths)}
	for i, r := range results {
		if r.err != nil {
			res.Failed = append(res.Failed, &FileError{paths[i], r.err})
			continue
		}
		if r.cached {
			res.Cached++
		}
		res.Findings = append(res.Findings, r.findings...)
	}
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Path < res.Failed[j].Path })
	resolve.SortFindings(res.Findings)
	return res, nil
}

func isInternal(err error) bool {
	var ierr *resolve.InternalError
	return errors.As(err, &ierr)
}

// CheckPaths discovers the Python files under the specified roots and
// checks them.
func (c *Checker) CheckPaths(ctx context.Context, roots ...string) (*Results, error) {
	paths, err := Discover(c.cfg, roots...)
	if err != nil {
		return nil, err
	}
	c.logf("found %d files", len(paths))
	res, err := c.Run(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("checking %d files: %w", len(paths), err)
	}
	return res, nil
}
