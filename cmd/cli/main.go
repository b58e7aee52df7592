// Command cli runs the scheduled ledger jobs.
//
// Usage:
//
//	cli update-payment-dates
//	cli generate-initial-transactions [--months N]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/budgee/family/infra/initializer"
	"github.com/budgee/family/pkg/app"
	"github.com/budgee/family/pkg/config"
	"github.com/fatih/color"
)

const (
	exitOK    = 0
	exitRun   = 1
	exitUsage = 2
)

// bootstrapFunc builds the application and returns a cleanup to run on exit.
type bootstrapFunc func() (*app.App, func(), error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, bootstrap)
	stop()
	os.Exit(code)
}

func bootstrap() (*app.App, func(), error) {
	cfg, err := config.Load(".env")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load application configuration: %w", err)
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	cleanup := func() {}
	if closer, ok := deps.EventBus.(io.Closer); ok {
		cleanup = func() { _ = closer.Close() }
	}
	return app.New(*deps), cleanup, nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: cli <command> [arguments]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  update-payment-dates                       realise due occurrences and advance sources")
	fmt.Fprintln(w, "  generate-initial-transactions [--months N] project every active source")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, boot bootstrapFunc) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}
	failure := color.New(color.FgRed, color.Bold)

	switch args[0] {
	case jobUpdatePaymentDates:
		a, cleanup, err := boot()
		if err != nil {
			failure.Fprintln(stderr, err)
			return exitRun
		}
		defer cleanup()
		return updatePaymentDates(ctx, a, stdout, stderr)
	case jobGenerateInitial:
		fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
		fs.SetOutput(stderr)
		months := fs.Int("months", 0, "projection horizon in months (default: LEDGER_HORIZON_MONTHS)")
		if err := fs.Parse(args[1:]); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return exitOK
			}
			return exitUsage
		}
		if *months < 0 {
			failure.Fprintln(stderr, "--months must not be negative")
			return exitUsage
		}
		a, cleanup, err := boot()
		if err != nil {
			failure.Fprintln(stderr, err)
			return exitRun
		}
		defer cleanup()
		return generateInitialTransactions(ctx, a, *months, stdout, stderr)
	case "-h", "--help", "help":
		usage(stdout)
		return exitOK
	}
	failure.Fprintf(stderr, "Unknown command: %s\n", args[0])
	usage(stderr)
	return exitUsage
}

const (
	jobUpdatePaymentDates = "update-payment-dates"
	jobGenerateInitial    = "generate-initial-transactions"
)

// previousRun prints the last recorded run of job; journal failures only warn.
func previousRun(ctx context.Context, a *app.App, job string, stdout io.Writer) {
	if a.Deps.Journal == nil {
		return
	}
	last, ok, err := a.Deps.Journal.LastRun(ctx, job)
	switch {
	case err != nil:
		color.New(color.FgYellow).Fprintf(stdout, "Run journal unavailable: %v\n", err)
	case ok:
		fmt.Fprintf(stdout, "Previous run: %s\n", last.Format("2006-01-02"))
	}
}

func recordRun(ctx context.Context, a *app.App, job string, runDate time.Time, stdout io.Writer) {
	if a.Deps.Journal == nil {
		return
	}
	if err := a.Deps.Journal.RecordRun(ctx, job, runDate); err != nil {
		color.New(color.FgYellow).Fprintf(stdout, "Run journal not updated: %v\n", err)
	}
}

func updatePaymentDates(ctx context.Context, a *app.App, stdout, stderr io.Writer) int {
	previousRun(ctx, a, jobUpdatePaymentDates, stdout)
	report, err := a.Advancer.Run(ctx)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(stderr, "update-payment-dates failed: %v\n", err)
		return exitRun
	}
	recordRun(ctx, a, jobUpdatePaymentDates, report.RunDate, stdout)
	title := color.New(color.FgGreen, color.Bold)
	title.Fprintf(stdout, "Payment dates updated for %s\n", report.RunDate.Format("2006-01-02"))
	fmt.Fprintf(stdout, "  users:                  %d\n", report.Users)
	fmt.Fprintf(stdout, "  sources processed:      %d\n", report.SourcesProcessed)
	fmt.Fprintf(stdout, "  rows completed:         %d\n", report.RowsCompleted)
	fmt.Fprintf(stdout, "  installments completed: %d\n", report.InstallmentsCompleted)
	fmt.Fprintf(stdout, "  credits terminated:     %d\n", report.CreditsTerminated)
	fmt.Fprintf(stdout, "  topped up:              %d\n", report.ToppedUp)
	fmt.Fprintf(stdout, "  notifications sent:     %d\n", report.Notified)
	if report.SourcesFailed > 0 || report.UsersFailed > 0 {
		color.New(color.FgYellow).Fprintf(stdout, "  skipped: %d sources, %d users (see logs)\n",
			report.SourcesFailed, report.UsersFailed)
	}
	return exitOK
}

func generateInitialTransactions(ctx context.Context, a *app.App, months int, stdout, stderr io.Writer) int {
	previousRun(ctx, a, jobGenerateInitial, stdout)
	report, err := a.Lifecycle.ProjectAll(ctx, months)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(stderr, "generate-initial-transactions failed: %v\n", err)
		return exitRun
	}
	recordRun(ctx, a, jobGenerateInitial, a.Lifecycle.Today(), stdout)
	color.New(color.FgGreen, color.Bold).Fprintln(stdout, "Initial transactions generated")
	fmt.Fprintf(stdout, "  users:   %d\n", report.Users)
	fmt.Fprintf(stdout, "  sources: %d\n", report.Sources)
	fmt.Fprintf(stdout, "  rows:    %d\n", report.Rows)
	if report.Failed > 0 {
		color.New(color.FgYellow).Fprintf(stdout, "  skipped: %d sources (see logs)\n", report.Failed)
	}
	return exitOK
}
