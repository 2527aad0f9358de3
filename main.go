//go:build !js && !wasm

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"bell/colors"
	"bell/internal/compiler"
	"bell/internal/config"
	"bell/internal/inspect"
)

const version = "0.1.0"

const historyFile = ".bell_history"

type bindings []string

func (b *bindings) String() string     { return strings.Join(*b, ",") }
func (b *bindings) Set(v string) error { *b = append(*b, v); return nil }

func main() {
	cfg := config.FromEnv()

	// Define flags
	debug := flag.Bool("d", cfg.Debug, "Enable debug output")
	showVersion := flag.Bool("v", false, "Show version")
	flag.BoolVar(debug, "debug", cfg.Debug, "Enable debug output")
	flag.BoolVar(showVersion, "version", false, "Show version")
	output := flag.String("o", "", "Write the command listing to `file`")
	level := flag.String("O", cfg.OptLevel.String(), "Optimization level: debug or release")
	maxDepth := flag.Int("max-depth", cfg.MaxDepth, "Recursion and loop depth ceiling; recursion and loops must have a trip count known at compile time, since runtime-bounded loops are not supported")
	namespace := flag.String("ns", cfg.Namespace, "Datapack namespace")
	runEntry := flag.String("run", "", "Simulate `entry` and print its output")
	interactive := flag.Bool("i", false, "Open an interactive prompt over the result")
	var sets bindings
	flag.Var(&sets, "set", "Bind `cell=value` before -run (repeatable)")

	flag.Parse()

	// Handle version
	if *showVersion {
		fmt.Printf("bell lowering core version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bell [options] <tree.json>")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	lvl, err := config.ParseOptLevel(*level)
	if err != nil {
		colors.RED.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.OptLevel = lvl
	cfg.MaxDepth = *maxDepth
	cfg.Namespace = *namespace
	cfg.Debug = *debug

	result := compiler.Compile(&compiler.Options{
		InputFile:  args[0],
		Config:     cfg,
		Debug:      *debug,
		LogFormat:  compiler.ANSI,
		OutputFile: *output,
	})

	// Exit code
	if !result.Success {
		os.Exit(1)
	}

	session := inspect.NewSession(result.Program, cfg.Strict)
	for _, s := range sets {
		if err := session.Bind(s); err != nil {
			colors.RED.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	switch {
	case *interactive:
		os.Exit(repl(session))
	case *runEntry != "":
		printed, err := session.Run(*runEntry)
		for _, v := range printed {
			fmt.Println(v)
		}
		if err != nil {
			colors.RED.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case *output == "":
		fmt.Print(result.Listing)
	}
}

func repl(session *inspect.Session) int {
	colors.CYAN.Println("bell inspector. Type :help for commands, :quit to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		var out []string
		for _, cmd := range []string{":list", ":show ", ":set ", ":run ", ":cells", ":help", ":quit"} {
			if strings.HasPrefix(cmd, line) {
				out = append(out, cmd)
			}
		}
		return out
	})

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("bell> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return 0
		}
		if err != nil {
			colors.RED.Fprintln(os.Stderr, err)
			return 1
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)

		quit, err := session.Exec(line, os.Stdout)
		if err != nil {
			colors.RED.Fprintln(os.Stderr, err)
		}
		if quit {
			return 0
		}
	}
}
