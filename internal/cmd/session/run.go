// Package session provides the CLI command that runs a project's services
// in the foreground.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/svcdeck/internal/changes"
	"github.com/Iron-Ham/svcdeck/internal/config"
	"github.com/Iron-Ham/svcdeck/internal/deck"
	"github.com/Iron-Ham/svcdeck/internal/event"
	"github.com/Iron-Ham/svcdeck/internal/project"
	"github.com/Iron-Ham/svcdeck/internal/render"
)

var runCmd = &cobra.Command{
	Use:   "run [project-path]",
	Short: "Start a project's services and stream their output",
	Long: `Start every service declared in the project's manifest whose language
has a configured interpreter, and stream their output with a per-service
prefix until interrupted.

The project path defaults to the current directory. While running:
  SIGHUP            restarts all services
  Ctrl+C / SIGTERM  stops all services and exits

File changes in the project are printed as they are detected unless
--no-watch is given or watcher.enabled is false.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var (
	noWatch  bool
	maxWidth int
)

func init() {
	runCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch the project for file changes")
	runCmd.Flags().IntVar(&maxWidth, "max-width", -1, "Truncate output lines to this width (default from output.max_line_width)")
}

// RegisterRunCmd registers the run command with the given parent command.
func RegisterRunCmd(parent *cobra.Command) {
	parent.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	projectPath, err := project.Resolve(arg)
	if err != nil {
		return err
	}

	cfg := config.Get()
	logger := deck.NewLogger(cfg)
	defer func() { _ = logger.Close() }()

	d, err := deck.New(cfg, projectPath, deck.Options{Logger: logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	restart := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				select {
				case restart <- struct{}{}:
				default:
				}
			}
		}
	}()

	out := cmd.OutOrStdout()
	width := cfg.Output.MaxLineWidth
	if maxWidth >= 0 {
		width = maxWidth
	}
	return Run(ctx, d, RunOptions{
		Out:      out,
		Styles:   render.NewStyles(render.ColorEnabled(cfg.Output.Color, out)),
		MaxWidth: width,
		Watch:    cfg.Watcher.Enabled && !noWatch,
		Restart:  restart,
	})
}

// RunOptions configures Run.
type RunOptions struct {
	Out      io.Writer
	Styles   *render.Styles
	MaxWidth int
	// Watch runs the change detector and prints each change.
	Watch bool
	// Restart triggers a restart of all services for every value received.
	Restart <-chan struct{}
	// ShutdownTimeout bounds the final teardown. Defaults to the stop
	// timeout plus five seconds.
	ShutdownTimeout time.Duration
}

// Run starts the deck's services, prints their output and lifecycle events
// to opts.Out, and blocks until ctx ends. All services are stopped before
// it returns. A failed start is returned as an error.
func Run(ctx context.Context, d *deck.Deck, opts RunOptions) error {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	styles := opts.Styles
	if styles == nil {
		styles = render.Plain()
	}
	printer := render.NewLinePrinter(opts.Out, styles, opts.MaxWidth)
	d.Output().SubscribeAll(printer)

	unsubscribe := subscribeEvents(d.Bus(), printer, styles)
	defer unsubscribe()

	if plan, err := d.Plan(ctx); err == nil {
		names := make([]string, 0, len(plan))
		for _, l := range plan {
			names = append(names, l.Service.Name)
		}
		printer.AlignTo(names)
	}

	sup := d.Supervisor()
	res := sup.Start(ctx, d.ProjectPath())
	if !res.Success {
		shutdown(d, printer, opts)
		return fmt.Errorf("%s", res.Message)
	}
	printer.Printf("%s", styles.Success(res.Message))

	var watchers sync.WaitGroup
	watchCtx, stopWatch := context.WithCancel(ctx)
	if opts.Watch {
		root := d.ProjectPath()
		det, err := d.NewDetector(func(r changes.Report) {
			for _, c := range r.All() {
				printer.Printf("%s", render.FormatChange(c, root, styles))
			}
		})
		if err != nil {
			printer.Printf("%s", styles.Warning(fmt.Sprintf("file watching disabled: %v", err)))
		} else {
			watchers.Add(1)
			go func() {
				defer watchers.Done()
				_ = det.Run(watchCtx)
			}()
		}
	}

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-opts.Restart:
			printer.Printf("restarting services")
			res := sup.Restart(ctx, "")
			if res.Success {
				printer.Printf("%s", styles.Success(res.Message))
			} else {
				printer.Printf("%s", styles.Error(res.Message))
			}
		}
	}

	stopWatch()
	watchers.Wait()
	shutdown(d, printer, opts)
	return nil
}

// shutdown stops every service, drains their output and prints the
// remaining partial lines.
func shutdown(d *deck.Deck, printer *render.LinePrinter, opts RunOptions) {
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = d.Config().Supervisor.StopTimeout() + 5*time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := d.Close(ctx); err != nil {
		printer.Printf("shutdown incomplete: %v", err)
	}
	printer.Flush()
}

// subscribeEvents prints service lifecycle events and returns a function
// removing the subscriptions.
func subscribeEvents(bus *event.Bus, printer *render.LinePrinter, styles *render.Styles) func() {
	ids := []string{
		bus.Subscribe(event.TypeServiceSpawned, func(e event.Event) {
			if ev, ok := e.(event.ServiceSpawnedEvent); ok {
				printer.Printf("%s started (pid %d)", styles.Service(ev.Service), ev.PID)
			}
		}),
		bus.Subscribe(event.TypeServiceSpawnFailed, func(e event.Event) {
			if ev, ok := e.(event.ServiceSpawnFailedEvent); ok {
				printer.Printf("%s", styles.Error(fmt.Sprintf("%s failed to start: %v", ev.Service, ev.Err)))
			}
		}),
		bus.Subscribe(event.TypeServiceExited, func(e event.Event) {
			ev, ok := e.(event.ServiceExitedEvent)
			if !ok {
				return
			}
			switch {
			case ev.Stopped:
				printer.Printf("%s stopped", styles.Service(ev.Service))
			case ev.ExitCode == 0:
				printer.Printf("%s exited", styles.Service(ev.Service))
			default:
				printer.Printf("%s", styles.Warning(fmt.Sprintf("%s exited with code %d", ev.Service, ev.ExitCode)))
			}
		}),
	}
	return func() {
		for _, id := range ids {
			bus.Unsubscribe(id)
		}
	}
}
