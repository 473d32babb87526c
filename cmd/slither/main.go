// Slither - a bytecode interpreter for a small Python-like language
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/slither/pkg/bytecode"
	"github.com/chazu/slither/pkg/cache"
	"github.com/chazu/slither/pkg/config"
	"github.com/chazu/slither/pkg/fault"
	"github.com/chazu/slither/pkg/history"
	"github.com/chazu/slither/pkg/parser"
	"github.com/chazu/slither/pkg/repl"

	_ "github.com/tliron/commonlog/simple"
)

var (
	source      = flag.String("s", "", "execute the given source text and exit")
	disassemble = flag.Bool("d", false, "print the compiled bytecode instead of executing")
	trace       = flag.Bool("trace", false, "print each instruction before it executes")
	noCache     = flag.Bool("no-cache", false, "skip the compiled-bytecode cache")
	histCount   = flag.Int("history", 0, "print the n most recent interactive inputs and exit")
	verbosity   = flag.Int("verbose", 0, "log verbosity (0 quiet, 2 debug)")
	version     = flag.Bool("version", false, "print version and exit")
)

const versionStr = "0.3.0"

var log = commonlog.GetLogger("slither")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Slither - a bytecode interpreter for a small Python-like language\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  slither               start an interactive session\n")
		fmt.Fprintf(os.Stderr, "  slither script.py     run a script\n")
		fmt.Fprintf(os.Stderr, "  slither -s 'print(1)' run inline source\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *version {
		fmt.Printf("slither version %s\n", versionStr)
		os.Exit(0)
	}

	commonlog.Configure(*verbosity, nil)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	conf, err := config.FindAndLoad(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if conf.Trace {
		*trace = true
	}

	switch {
	case *histCount > 0:
		os.Exit(printHistory(conf, *histCount))
	case *source != "":
		os.Exit(runSource("<cmdline>", *source, conf))
	case flag.NArg() > 0:
		os.Exit(runFile(flag.Arg(0), conf))
	default:
		os.Exit(runInteractive(conf))
	}
}

// runFile executes a script file, consulting the bytecode cache when it
// is enabled.
func runFile(path string, conf *config.Config) int {
	data, err := os.ReadFile(path)
	if err != nil {
		report(fault.Errorf(fault.FileError, "cannot open '%s'", path))
		return 1
	}
	return runSource(filepath.Base(path), string(data), conf)
}

func runSource(name, src string, conf *config.Config) int {
	unit, err := compile(name, src, conf)
	if err != nil {
		report(err)
		return 1
	}

	if *disassemble {
		fmt.Print(bytecode.Disassemble(unit))
		return 0
	}

	vm := bytecode.New()
	vm.Trace = *trace
	if _, err := vm.Execute(unit); err != nil {
		report(err)
		return 1
	}
	return 0
}

// compile turns source into a code unit, going through the on-disk cache
// unless caching is off.
func compile(name, src string, conf *config.Config) (*bytecode.CodeUnit, error) {
	var store *cache.Cache
	if conf.Cache.Enabled && !*noCache {
		c, err := cache.Open(conf.CacheDir())
		if err != nil {
			log.Warningf("bytecode cache unavailable: %s", err.Error())
		} else {
			store = c
			if unit, ok := store.Load(src); ok {
				log.Infof("cache hit for %s", name)
				return unit, nil
			}
		}
	}

	nodes, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	unit, err := bytecode.Compile(nodes, name)
	if err != nil {
		return nil, err
	}

	if store != nil {
		if err := store.Store(src, unit); err != nil {
			log.Warningf("cannot store cache entry: %s", err.Error())
		}
	}
	return unit, nil
}

func printHistory(conf *config.Config, n int) int {
	store, err := history.Open(conf.HistoryPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	inputs, err := store.Recent(n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for _, input := range inputs {
		fmt.Println(input)
	}
	return 0
}

func runInteractive(conf *config.Config) int {
	fmt.Printf("slither %s (type exit to leave)\n", versionStr)

	opts := []repl.Option{
		repl.WithPrompts(conf.Repl.Prompt, conf.Repl.ContinuationPrompt),
	}
	store, err := history.Open(conf.HistoryPath())
	if err != nil {
		log.Warningf("history unavailable: %s", err.Error())
	} else {
		defer store.Close()
		opts = append(opts, repl.WithRecorder(store))
	}

	session := repl.New(os.Stdin, os.Stdout, opts...)
	session.VM().Trace = *trace
	if err := session.Run(); err != nil {
		report(err)
		return 1
	}
	return 0
}

// report prints a fault as "Kind: message", with the diagnostic dump
// appended when tracing is on.
func report(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	if e, ok := fault.As(err); ok && *trace && e.Dump != "" {
		fmt.Fprintln(os.Stderr, strings.TrimRight(e.Dump, "\n"))
	}
}
