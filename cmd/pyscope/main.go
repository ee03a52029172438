// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The pyscope command reports the names in Python files that cannot
// be resolved to any definition.
//
// Usage:
//
//	pyscope [flags] [path ...]
//
// Each path is a Python file or a directory to search for Python
// files; the default is the current directory. The exit status is 1
// if any finding is reported, and 2 if the check could not be run.
//
// With -repl, pyscope starts an interactive session in which each
// statement typed is resolved against the statements before it.
// With -lsp, it runs a language server on its standard input and
// output.
package main // import "go.pyscope.dev/cmd/pyscope"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"go.pyscope.dev/cache"
	"go.pyscope.dev/checker"
	"go.pyscope.dev/config"
	"go.pyscope.dev/lsp"
	"go.pyscope.dev/repl"
	"go.pyscope.dev/report"
)

// flags
var (
	cpuprofile  = flag.String("cpuprofile", "", "gather Go CPU profile in this file")
	memprofile  = flag.String("memprofile", "", "gather Go memory profile in this file")
	configFile  = flag.String("config", "", "read configuration from `file` (default: nearest "+config.DefaultFile+")")
	format      = flag.String("format", "text", "output format: text, json, prototext or wire")
	color       = flag.String("color", "auto", "colorize text output: auto, always or never")
	showContext = flag.Bool("context", false, "show the source line of each finding")
	verbose     = flag.Bool("v", false, "log progress to stderr")
	jobs        = flag.Int("jobs", 0, "check at most `n` files in parallel (default: configuration, then GOMAXPROCS)")
	cacheFile   = flag.String("cache", "", "memoize findings in the database `file`")
	starImports = flag.String("star-imports", "", "treatment of unresolved names in files with wildcard imports: suppress or report")
	execprog    = flag.String("c", "", "check program `prog`")
	runREPL     = flag.Bool("repl", false, "start an interactive session")
	runLSP      = flag.Bool("lsp", false, "run a language server on stdin and stdout")
)

func main() {
	os.Exit(doMain())
}

func doMain() int {
	log.SetPrefix("pyscope: ")
	log.SetFlags(0)
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		check(err)
		err = pprof.StartCPUProfile(f)
		check(err)
		defer func() {
			pprof.StopCPUProfile()
			err := f.Close()
			check(err)
		}()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		check(err)
		defer func() {
			runtime.GC()
			err := pprof.Lookup("heap").WriteTo(f, 0)
			check(err)
			err = f.Close()
			check(err)
		}()
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Print(err)
		return 2
	}
	opts, err := reportOptions()
	if err != nil {
		log.Print(err)
		return 2
	}

	var logger *log.Logger
	if *verbose || *runLSP {
		logger = log.New(os.Stderr, "pyscope: ", 0)
	}

	var db *cache.Cache
	if cfg.Cache != "" && !*runREPL {
		db, err = cache.Open(cfg.Cache)
		if err != nil {
			log.Print(err)
			return 2
		}
		defer db.Close()
	}
	c := checker.New(cfg, db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *runLSP:
		if err := lsp.ServeStdio(ctx, c, logger); err != nil {
			log.Print(err)
			return 2
		}
		return 0
	case *runREPL:
		stop()
		fmt.Println("Welcome to pyscope (go.pyscope.dev)")
		repl.REPL(repl.NewSession(c.Options()))
		return 0
	case *execprog != "":
		findings, err := c.CheckSource(ctx, "cmdline", []byte(*execprog))
		if err != nil {
			log.Print(err)
			return 2
		}
		return write(&checker.Results{Files: 1, Findings: findings}, opts)
	}

	roots := flag.Args()
	if len(roots) == 0 {
		roots = []string{"."}
	}
	res, err := c.CheckPaths(ctx, roots...)
	if err != nil {
		log.Print(err)
		return 2
	}
	return write(res, opts)
}

// loadConfig reads the configuration file and applies the flags that
// override it.
func loadConfig() (*config.Config, error) {
	filename := *configFile
	if filename == "" {
		var err error
		if filename, err = config.Find("."); err != nil {
			return nil, err
		}
	}
	cfg := config.Default()
	if filename != "" {
		var err error
		if cfg, err = config.Load(filename); err != nil {
			return nil, err
		}
	}
	if *jobs != 0 {
		cfg.Jobs = *jobs
	}
	if *cacheFile != "" {
		cfg.Cache = *cacheFile
	}
	if *starImports != "" {
		cfg.StarImports = *starImports
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func reportOptions() (*report.Options, error) {
	f, err := report.ParseFormat(*format)
	if err != nil {
		return nil, err
	}
	opts := &report.Options{Format: f, Context: *showContext}
	switch *color {
	case "always":
		opts.Color = true
	case "never":
	case "auto":
		opts.Color = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	default:
		return nil, fmt.Errorf("invalid -color %q (want auto, always or never)", *color)
	}
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		opts.Width = width
	}
	return opts, nil
}

func write(res *checker.Results, opts *report.Options) int {
	if err := report.Write(os.Stdout, res, opts); err != nil {
		log.Print(err)
		return 2
	}
	if len(res.Findings) > 0 {
		return 1
	}
	if len(res.Failed) > 0 {
		return 2
	}
	return 0
}

func check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
