package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/svcdeck/internal/config"
	"github.com/Iron-Ham/svcdeck/internal/logging"
	"github.com/Iron-Ham/svcdeck/internal/render"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View svcdeck's own log",
	Long: `View and filter the supervisor log written by svcdeck.

Examples:
  # Show the last 50 entries
  svcdeck logs

  # Show everything
  svcdeck logs -n 0

  # Follow the log in real time
  svcdeck logs -f

  # Only warnings and errors for one service
  svcdeck logs --level warn --service auth

  # Entries from the last hour matching a pattern
  svcdeck logs --since 1h --grep "exited|failed"`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsService   string
	logsComponent string
	logsGrep      string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsService, "service", "", "Only entries for this service")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only entries from this component (supervisor, detector, output)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries matching pattern (regex)")
}

// logQuery is the parsed form of the logs command flags.
type logQuery struct {
	filter logging.LogFilter
	grep   *regexp.Regexp
	tail   int
}

func buildLogQuery(now time.Time) (logQuery, error) {
	q := logQuery{
		filter: logging.LogFilter{
			Service:   logsService,
			Component: logsComponent,
		},
		tail: logsTail,
	}
	if logsLevel != "" {
		q.filter.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return q, fmt.Errorf("invalid duration format: %w", err)
		}
		q.filter.Since = now.Add(-d)
	}
	if logsGrep != "" {
		re, err := regexp.Compile(logsGrep)
		if err != nil {
			return q, fmt.Errorf("invalid grep pattern: %w", err)
		}
		q.grep = re
	}
	return q, nil
}

// apply filters entries and keeps the last tail of them.
func (q logQuery) apply(entries []logging.LogEntry) []logging.LogEntry {
	entries = logging.FilterLogs(entries, q.filter)
	if q.grep != nil {
		var kept []logging.LogEntry
		for _, e := range entries {
			if q.matches(e) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if q.tail > 0 && len(entries) > q.tail {
		entries = entries[len(entries)-q.tail:]
	}
	return entries
}

// matches applies the grep pattern to the message and attribute values.
func (q logQuery) matches(e logging.LogEntry) bool {
	if q.grep == nil {
		return true
	}
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, v := range e.Attrs {
		sb.WriteString(" ")
		sb.WriteString(fmt.Sprintf("%v", v))
	}
	return q.grep.MatchString(sb.String())
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logPath := filepath.Join(cfg.Logging.ResolveLogDir(), logging.LogFileName)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No log file found.")
		fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}

	q, err := buildLogQuery(time.Now())
	if err != nil {
		return err
	}
	styles := render.NewStyles(render.ColorEnabled(cfg.Output.Color, out))

	if logsFollow {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return followLogs(ctx, out, logPath, q, styles)
	}
	return displayLogs(out, logPath, q, styles)
}

// displayLogs reads the log file and prints the filtered entries
func displayLogs(w io.Writer, logPath string, q logQuery, styles *render.Styles) error {
	entries, err := logging.ReadLogFile(logPath)
	if err != nil {
		return err
	}

	entries = q.apply(entries)
	if len(entries) == 0 {
		fmt.Fprintln(w, "No matching log entries found.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(w, render.FormatLogEntry(e, styles))
	}
	return nil
}

// followLogs implements tail -f behavior for the log file
func followLogs(ctx context.Context, w io.Writer, logPath string, q logQuery, styles *render.Styles) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(w, "Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	var pending string
	for {
		chunk, err := reader.ReadString('\n')
		pending += chunk
		if err != nil {
			if err != io.EOF {
				return fmt.Errorf("error reading log file: %w", err)
			}
			// No complete line yet, wait briefly and try again
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		line := strings.TrimSpace(pending)
		pending = ""
		if line == "" {
			continue
		}
		entry, err := logging.ParseLogEntry(line)
		if err != nil {
			fmt.Fprintln(w, line)
			continue
		}
		if len(logging.FilterLogs([]logging.LogEntry{entry}, q.filter)) == 0 || !q.matches(entry) {
			continue
		}
		fmt.Fprintln(w, render.FormatLogEntry(entry, styles))
	}
}
