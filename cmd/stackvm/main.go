// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/tebeka/atexit"

	"github.com/ezrec/stackvm/config"
	"github.com/ezrec/stackvm/conformance"
	"github.com/ezrec/stackvm/emulator"
	"github.com/ezrec/stackvm/server"
	"github.com/ezrec/stackvm/translate"
)

// defines collects -D NAME=VALUE assembler predefines.
type defines map[string]int64

func (d defines) String() string {
	var parts []string
	for name, value := range d {
		parts = append(parts, fmt.Sprintf("%v=%v", name, value))
	}
	return strings.Join(parts, ",")
}

func (d defines) Set(text string) (err error) {
	name, value, ok := strings.Cut(text, "=")
	if !ok || len(name) == 0 {
		err = fmt.Errorf("%q is not NAME=VALUE", text)
		return
	}
	d[name], err = strconv.ParseInt(value, 0, 64)
	return
}

func main() {
	var compile string
	var configPath string
	var limit int
	var dump bool
	var check string
	var serve string
	var output string
	var lang string
	var verbose bool
	predefine := defines{}

	flag.StringVar(&compile, "c", "", ".asm file to assemble and run")
	flag.StringVar(&configPath, "config", "", "YAML configuration file")
	flag.IntVar(&limit, "limit", -1, "Step limit, 0 for none (overrides configuration)")
	flag.BoolVar(&dump, "dump", false, "Dump the machine state after the run")
	flag.StringVar(&check, "check", "", "Directory of YAML conformance suites to run")
	flag.StringVar(&serve, "serve", "", "Serve the remote control API on this address ('-' for the configured address)")
	flag.StringVar(&output, "o", "-", "Program output")
	flag.StringVar(&lang, "lang", "", "Message language (overrides configuration)")
	flag.Var(predefine, "D", "Predefine NAME=VALUE for the assembler (repeatable)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		atexit.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	cfg := config.Default()
	if len(configPath) != 0 {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			atexit.Fatalf("%v: %v", configPath, err)
		}
	}

	if limit >= 0 {
		cfg.StepLimit = limit
	}
	if verbose {
		cfg.Verbose = true
	}
	if len(lang) != 0 {
		cfg.Language = lang
	}
	for name, value := range predefine {
		cfg.Defines[name] = value
	}

	if len(cfg.Language) != 0 {
		err := translate.SetLanguage(cfg.Language)
		if err != nil {
			atexit.Fatalf("%v: %v", cfg.Language, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	atexit.Register(stop)

	if len(check) != 0 {
		err := runCheck(cfg, check)
		if err != nil {
			atexit.Fatalf("%v", err)
		}
	}

	if len(compile) != 0 {
		err := runProgram(ctx, cfg, compile, output, dump)
		if err != nil {
			atexit.Fatalf("%v", err)
		}
	}

	if len(serve) != 0 {
		if serve == "-" {
			serve = cfg.Listen
		}
		err := server.New(cfg).ListenAndServe(ctx, serve)
		if err != nil {
			atexit.Fatalf("%v: %v", serve, err)
		}
	}

	atexit.Exit(0)
}

// runCheck runs every conformance suite in dir, and fails on any failure.
func runCheck(cfg *config.Config, dir string) (err error) {
	tests, err := conformance.LoadDir(os.DirFS(dir), ".")
	if err != nil {
		err = fmt.Errorf("%v: %w", dir, err)
		return
	}

	runner := conformance.NewRunner()
	runner.Verbose = cfg.Verbose
	if cfg.StepLimit > 0 {
		runner.StepLimit = cfg.StepLimit
	}

	results := runner.RunAll(tests)
	for _, result := range results {
		switch {
		case result.Skipped:
			fmt.Printf("SKIP %v/%v: %v\n", result.Test.File, result.Test.Test.Name, result.SkipReason)
		case !result.Passed:
			fmt.Printf("FAIL %v/%v: %v\n", result.Test.File, result.Test.Test.Name, result.Error)
		case cfg.Verbose:
			fmt.Printf("PASS %v/%v\n", result.Test.File, result.Test.Test.Name)
		}
	}

	stats := conformance.ComputeStats(results)
	fmt.Println(conformance.FormatStats(stats))
	if stats.Failed > 0 {
		err = fmt.Errorf("%v: %v", dir, conformance.FormatStats(stats))
	}

	return
}

// runProgram assembles and runs a source file, streaming its output.
func runProgram(ctx context.Context, cfg *config.Config, compile string, output string, dump bool) (err error) {
	inf, err := os.Open(compile)
	if err != nil {
		err = fmt.Errorf("%v: %w", compile, err)
		return
	}
	defer inf.Close()

	emu := emulator.NewEmulator()
	emu.Verbose = cfg.Verbose
	emu.StepLimit = cfg.StepLimit

	err = emu.Load(inf, cfg.Defines)
	if err != nil {
		err = fmt.Errorf("%v: %w", compile, err)
		return
	}

	if output == "-" {
		emu.Tape.Output = os.Stdout
	} else {
		var ouf *os.File
		ouf, err = os.Create(output)
		if err != nil {
			err = fmt.Errorf("%v: %w", output, err)
			return
		}
		defer ouf.Close()
		emu.Tape.Output = ouf
	}

	err = emu.Run(ctx)

	if dump {
		derr := emu.Dump(os.Stderr)
		if derr != nil {
			log.Printf("dump: %v", derr)
		}
	}

	if err != nil {
		err = fmt.Errorf("%v: %w", compile, err)
	}

	return
}
