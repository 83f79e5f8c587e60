// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command romadebug analyzes an error log against a project's source tree
// and proposes a fix.
//
// Usage:
//
//	romadebug                        # interactive stdin mode
//	romadebug crash.log               # analyze a log file
//	romadebug --language python crash.log
//	romadebug --no-apply crash.log
//	romadebug --watch crash.log
//	romadebug --serve --port 8080
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aleutianai/romadebug/services/trace"
	"github.com/aleutianai/romadebug/services/trace/config"
	"github.com/aleutianai/romadebug/services/trace/core"
)

const (
	exitSuccess     = 0
	exitAnalysisErr = 1
	exitUsageErr    = 2
)

var (
	flagLanguage    string
	flagNoApply     bool
	flagServe       bool
	flagPort        int
	flagWatch       bool
	flagProjectRoot string
	flagVersion     bool
	flagConfigFile  string
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(exitUsageErr)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "romadebug [path]",
		Short:         "Investigate an error log and propose a fix.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runRoot,
	}
	cmd.Flags().StringVar(&flagLanguage, "language", "", "override language detection (python, javascript, typescript, go, rust, java)")
	cmd.Flags().BoolVar(&flagNoApply, "no-apply", false, "print the proposed fix, never write to disk")
	cmd.Flags().BoolVar(&flagServe, "serve", false, "start the HTTP server instead of analyzing a log")
	cmd.Flags().IntVar(&flagPort, "port", 8080, "port to listen on with --serve")
	cmd.Flags().BoolVar(&flagWatch, "watch", false, "re-run analysis each time the log file changes")
	cmd.Flags().StringVar(&flagProjectRoot, "project-root", ".", "project root to investigate against")
	cmd.Flags().BoolVar(&flagVersion, "version", false, "print version and exit")
	cmd.Flags().StringVar(&flagConfigFile, "config", "", "YAML file with defaults for model list and size caps (environment variables still win)")
	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	if flagVersion {
		fmt.Println(trace.Version)
		return nil
	}

	cfg := config.LoadWithFile(flagConfigFile)

	if flagServe {
		return runServe(cfg)
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	}

	if flagWatch {
		if path == "" {
			fmt.Fprintln(os.Stderr, "--watch requires a log file path")
			os.Exit(exitUsageErr)
		}
		return runWatch(cfg, path)
	}

	return runOnce(cfg, path)
}

func runOnce(cfg config.Config, path string) error {
	logText, err := readLog(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading log: %v\n", err)
		os.Exit(exitUsageErr)
	}

	engine := trace.NewEngine(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ps, err := engine.Analyze(ctx, trace.AnalyzeRequest{
		Log:         logText,
		ProjectRoot: flagProjectRoot,
		Language:    flagLanguage,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(exitAnalysisErr)
	}

	printPatchSet(ps)

	if flagNoApply {
		return nil
	}
	if !confirmApply() {
		return nil
	}

	result := engine.ApplyPatchSet(flagProjectRoot, ps)
	for _, r := range result.Results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", r.FilePath, r.Err)
			continue
		}
		fmt.Printf("wrote %s\n", r.FilePath)
	}
	if result.Failed() {
		os.Exit(exitAnalysisErr)
	}
	return nil
}

func runWatch(cfg config.Config, path string) error {
	watcher, err := newLogWatcher(path)
	if err != nil {
		return err
	}
	defer watcher.Close()

	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", path)
	engine := trace.NewEngine(cfg)

	for {
		select {
		case <-watcher.Events():
			logText, err := readLog(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reading log: %v\n", err)
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			ps, err := engine.Analyze(ctx, trace.AnalyzeRequest{
				Log:         logText,
				ProjectRoot: flagProjectRoot,
				Language:    flagLanguage,
			})
			cancel()
			if err != nil {
				fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
				continue
			}
			printPatchSet(ps)
		case err := <-watcher.Errors():
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-watcher.Done():
			return nil
		}
	}
}

func runServe(cfg config.Config) error {
	shutdownTelemetry, err := setupTelemetry(context.Background())
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	engine := trace.NewEngine(cfg)
	router := trace.NewRouter(engine, cfg)

	addr := fmt.Sprintf(":%d", flagPort)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		slog.Info("romadebug server starting", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			os.Exit(exitAnalysisErr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down romadebug server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func readLog(path string) (string, error) {
	if path == "" {
		return readStdinUntilBlankLine()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func readStdinUntilBlankLine() (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" && sb.Len() > 0 {
			break
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func confirmApply() bool {
	fmt.Print("Apply this fix? [Y/n] ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "" || line == "y" || line == "yes"
}

func printPatchSet(ps core.PatchSet) {
	if ps.Primary.FilePath == "" {
		fmt.Println("no fix proposed")
		return
	}
	fmt.Printf("--- %s ---\n", ps.Primary.FilePath)
	fmt.Println(ps.Primary.Explanation)
	if ps.Primary.UnifiedDiff != "" {
		fmt.Println(ps.Primary.UnifiedDiff)
	} else {
		fmt.Println(ps.Primary.FullCodeBlock)
	}
	if ps.RootCauseFile != "" {
		fmt.Printf("root cause: %s\n%s\n", ps.RootCauseFile, ps.RootCauseExplanation)
	}
	for _, add := range ps.Additional {
		fmt.Printf("--- %s (additional) ---\n", add.FilePath)
		fmt.Println(add.Explanation)
		if add.UnifiedDiff != "" {
			fmt.Println(add.UnifiedDiff)
		} else {
			fmt.Println(add.FullCodeBlock)
		}
	}
}
