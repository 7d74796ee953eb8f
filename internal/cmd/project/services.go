// Package project provides CLI commands that inspect a project without
// starting it: its declared services, command resolution and file tree.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/svcdeck/internal/config"
	"github.com/Iron-Ham/svcdeck/internal/deck"
	"github.com/Iron-Ham/svcdeck/internal/errors"
	"github.com/Iron-Ham/svcdeck/internal/project"
	"github.com/Iron-Ham/svcdeck/internal/render"
	"github.com/Iron-Ham/svcdeck/internal/supervisor"
	"github.com/Iron-Ham/svcdeck/internal/util"
)

var servicesCmd = &cobra.Command{
	Use:   "services [project-path]",
	Short: "List the services a project declares",
	Long: `List the services declared in the project's manifest, the command each
one would be started with, and whether it will be started at all.

A service is skipped when no interpreter is configured for its language
(see services.interpreters) or when an earlier service has the same name.
An entry missing its fileName or declaring an out-of-range port is listed
as invalid; the other services still start.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServices,
}

var (
	servicesJSON bool
	servicesWide bool
)

func init() {
	servicesCmd.Flags().BoolVar(&servicesJSON, "json", false, "Print the launch plan as JSON")
	servicesCmd.Flags().BoolVar(&servicesWide, "wide", false, "Do not truncate commands")
}

// RegisterServicesCmd registers the services command with the given parent command.
func RegisterServicesCmd(parent *cobra.Command) {
	parent.AddCommand(servicesCmd)
}

func runServices(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	projectPath, err := project.Resolve(arg)
	if err != nil {
		return err
	}

	cfg := config.Get()
	d, err := deck.New(cfg, projectPath, deck.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = d.Close(context.Background()) }()

	plan, err := d.Plan(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read services: %w", err)
	}

	out := cmd.OutOrStdout()
	if servicesJSON {
		return writePlanJSON(out, plan)
	}
	styles := render.NewStyles(render.ColorEnabled(cfg.Output.Color, out))
	fmt.Fprintf(out, "Project:  %s\n", projectPath)
	fmt.Fprintf(out, "Manifest: %s\n\n", d.Manifests().Path(projectPath))
	writePlanTable(out, plan, styles, !servicesWide)
	return nil
}

// launchStatus describes whether a planned service will be started.
func launchStatus(l supervisor.Launch) string {
	switch {
	case l.Duplicate:
		return "duplicate"
	case l.Err != nil && !errors.Is(l.Err, errors.ErrUnsupportedLanguage):
		return "invalid"
	case !l.Supported:
		return "unsupported"
	default:
		return "ready"
	}
}

// writePlanTable prints one aligned row per planned service.
func writePlanTable(w io.Writer, plan []supervisor.Launch, styles *render.Styles, truncate bool) {
	if len(plan) == 0 {
		fmt.Fprintln(w, "No services declared.")
		return
	}

	headers := []string{"NAME", "LANGUAGE", "ADDRESS", "STATUS", "COMMAND"}
	rows := make([][]string, 0, len(plan))
	for _, l := range plan {
		addr := l.Service.Address()
		if addr == "" {
			addr = "-"
		}
		command := "-"
		if l.Supported {
			command = l.Command.String()
			if truncate {
				command = util.TruncateString(command, 60)
			}
		}
		rows = append(rows, []string{l.Service.Name, l.Service.Language, addr, launchStatus(l), command})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len([]rune(cell)))
		}
	}

	cells := func(row []string, style func(col int, s string) string) string {
		parts := make([]string, len(row))
		for i, cell := range row {
			if i < len(row)-1 {
				cell = util.PadRight(cell, widths[i])
			}
			parts[i] = style(i, cell)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(w, cells(headers, func(_ int, s string) string { return styles.Muted(s) }))
	for _, row := range rows {
		fmt.Fprintln(w, cells(row, func(col int, s string) string {
			if col != 3 {
				return s
			}
			switch strings.TrimSpace(s) {
			case "ready":
				return styles.Success(s)
			case "duplicate":
				return styles.Warning(s)
			case "invalid":
				return styles.Error(s)
			default:
				return styles.Muted(s)
			}
		}))
	}
}

// planEntry is the JSON form of a planned service.
type planEntry struct {
	Name        string   `json:"name"`
	Language    string   `json:"language"`
	Address     string   `json:"address,omitempty"`
	Status      string   `json:"status"`
	Command     []string `json:"command,omitempty"`
	Dir         string   `json:"dir,omitempty"`
	Translated  bool     `json:"translated,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func writePlanJSON(w io.Writer, plan []supervisor.Launch) error {
	entries := make([]planEntry, 0, len(plan))
	for _, l := range plan {
		e := planEntry{
			Name:     l.Service.Name,
			Language: l.Service.Language,
			Address:  l.Service.Address(),
			Status:   launchStatus(l),
		}
		if l.Supported {
			e.Command = l.Command.Argv()
			e.Dir = l.Dir
			e.Translated = l.Command.Translated
			e.Environment = l.Command.Environment
		}
		if l.Err != nil {
			e.Error = l.Err.Error()
		}
		entries = append(entries, e)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
