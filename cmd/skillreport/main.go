/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"skillreport/internal/config"
	"skillreport/internal/crash"
	applog "skillreport/internal/log"
	"skillreport/internal/storage"
	"skillreport/internal/telemetry"
	"skillreport/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "Skill Report — PDF reports for course skills")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  skillreport version|-v|--version                 Show version")
	fmt.Fprintln(w, "  skillreport init <dir> [--skill NAME]             Create a workspace with an empty draft")
	fmt.Fprintln(w, "  skillreport validate <draft>                      Check a workspace or report file")
	fmt.Fprintln(w, "  skillreport render <draft> [--out DIR]            Generate Skill_<name>_Report.pdf")
	fmt.Fprintln(w, "  skillreport import <course> [--into DIR|--out F]  Build levels from Day<N> folders")
	fmt.Fprintln(w, "  skillreport history <workspace> [--limit N]       List past renders")
	fmt.Fprintln(w, "  skillreport search <workspace> <query>            Search task questions, files and code")
	fmt.Fprintln(w, "  skillreport ui [<workspace>]                      Launch the desktop form (build with -tags fyne)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "A <draft> is a workspace directory or a .json/.yaml report file.")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: config:", err)
		cfg = config.Defaults()
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	telemetry.NewDefault(telemetry.FromEnvWithOptIn(cfg.General.TelemetryOptIn))

	a := &cli{cfg: cfg, stdout: os.Stdout, stderr: os.Stderr}
	defer func() { crash.Handle(recover(), a.workspace) }()
	applog.WithComponent("cli").Debug("start", slog.Int("args", len(os.Args)))
	code := a.run(os.Args[1:])
	telemetry.Flush(context.Background())
	_ = applog.Close()
	if code != 0 {
		os.Exit(code)
	}
}

// cli carries what every command needs. workspace is set once a command opened one,
// so a crash can autosave it.
type cli struct {
	cfg       config.AppConfig
	stdout    io.Writer
	stderr    io.Writer
	workspace *storage.WorkspaceHandle
}

func (a *cli) run(args []string) int {
	if len(args) == 0 {
		usage(a.stdout)
		return 0
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(a.stdout, "Skill Report")
		fmt.Fprintln(a.stdout, version.String())
		return 0
	case "init":
		return a.cmdInit(rest)
	case "validate":
		return a.cmdValidate(rest)
	case "render":
		return a.cmdRender(rest)
	case "import":
		return a.cmdImport(rest)
	case "history":
		return a.cmdHistory(rest)
	case "search":
		return a.cmdSearch(rest)
	case "ui":
		return a.cmdUI(rest)
	case "help", "-h", "--help":
		usage(a.stdout)
		return 0
	}
	fmt.Fprintf(a.stderr, "unknown command %q\n\n", cmd)
	usage(a.stderr)
	return 2
}

func (a *cli) fail(err error) int {
	fmt.Fprintln(a.stderr, "Error:", err)
	return 1
}
