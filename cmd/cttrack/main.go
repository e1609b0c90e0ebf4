// Package main is the CLI entry point for cttrack.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ddobrev25/coding-time-tracker/internal/config"
	"github.com/ddobrev25/coding-time-tracker/internal/daemon"
	"github.com/ddobrev25/coding-time-tracker/internal/domain"
	"github.com/ddobrev25/coding-time-tracker/internal/infra"
	"github.com/ddobrev25/coding-time-tracker/internal/ledger"
	"github.com/ddobrev25/coding-time-tracker/internal/logging"
	"github.com/ddobrev25/coding-time-tracker/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cttrack",
	Short: "Coding time tracker",
	Long: `cttrack measures how long your editors and IDEs are open and keeps
the running total in a ledger file that survives restarts.

Every check interval it asks whether you are still working. Answering
"no" closes the watched applications.`,
	Version:      Version,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracker in the foreground",
	Long: `Runs the tracker until interrupted. SIGUSR1 pauses activity checks,
SIGUSR2 resumes them. Time tracking continues while checks are paused.`,
	RunE: runRun,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tracker in the background",
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked time and tracker state",
	RunE:  runStatus,
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List watched applications",
	RunE:  runTargets,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run an activity check immediately",
	Long: `Asks the activity question now instead of waiting for the next scheduled
check. Answering "no" closes the watched applications.`,
	RunE: runCheck,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause activity checks of the running tracker",
	RunE:  func(cmd *cobra.Command, args []string) error { return signalTracker(syscall.SIGUSR1, "paused") },
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume activity checks of the running tracker",
	RunE:  func(cmd *cobra.Command, args []string) error { return signalTracker(syscall.SIGUSR2, "resumed") },
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the accumulated total",
	RunE:  runReset,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE:  runConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath string
	jsonOutput bool
	assumeYes  bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./cttrack.yaml)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(runCmd, startCmd, statusCmd, targetsCmd, checkCmd,
		pauseCmd, resumeCmd, resetCmd, configCmd, versionCmd)
}

// setup loads configuration and builds the wired components.
func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
		_ = a.logger.Sync()
	}()

	if alive, inst, _ := a.registry.IsAlive(); alive && inst.PID != os.Getpid() {
		return fmt.Errorf("tracker already running (pid %d)", inst.PID)
	}

	tracker, err := a.tracker()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	control := make(chan os.Signal, 1)
	signal.Notify(control, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(control)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-control:
				var err error
				if sig == syscall.SIGUSR1 {
					err = tracker.PauseChecks()
				} else {
					err = tracker.ResumeChecks()
				}
				if err != nil {
					a.logger.Warn("ignoring control signal", zap.Stringer("signal", sig), zap.Error(err))
				}
			}
		}
	}()

	var watching sync.WaitGroup
	defer watching.Wait()
	watchCtx, stopWatching := context.WithCancel(ctx)
	defer stopWatching()
	if a.cfg.Source != "" {
		watching.Add(1)
		go func() {
			defer watching.Done()
			if err := a.watchTargets(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("config watching stopped", zap.Error(err))
			}
		}()
	}

	if err := tracker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry := infra.NewFileRegistry(infra.RunFileFor(cfg.LedgerPath()))
	if alive, inst, _ := registry.IsAlive(); alive {
		fmt.Printf("cttrack is already running (pid %d)\n", inst.PID)
		return nil
	}

	if cfg.Prompt.Mode == config.PromptTerminal {
		fmt.Println("Warning: a background tracker has no terminal; activity checks go unanswered.")
		fmt.Println("         Set prompt.mode: auto-yes or use 'cttrack run' to answer them.")
	}

	pid, err := daemon.StartSelf(cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to start tracker: %w", err)
	}

	// Wait a moment for the tracker to register
	time.Sleep(500 * time.Millisecond)

	fmt.Printf("cttrack started (pid %d)\n", pid)
	fmt.Printf("Ledger: %s\n", cfg.LedgerPath())
	return nil
}

type statusReport struct {
	Running       bool     `json:"running"`
	PID           int      `json:"pid,omitempty"`
	LastHeartbeat string   `json:"last_heartbeat,omitempty"`
	Ledger        string   `json:"ledger"`
	TimeCreated   string   `json:"time_created,omitempty"`
	TotalTime     string   `json:"total_time"`
	Active        []string `json:"active"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	report := statusReport{Ledger: a.ledger.Location(), Active: []string{}}

	if alive, inst, _ := a.registry.IsAlive(); alive {
		report.Running = true
		report.PID = inst.PID
		report.LastHeartbeat = time.Unix(inst.LastHeartbeat, 0).Format(time.RFC3339)
	}

	if err := fillLedger(&report, a.ledger); err != nil {
		return err
	}

	poller := usecase.NewLivenessPoller(a.presence, a.logger)
	for _, t := range poller.RunningTargets(a.targets.All()) {
		report.Active = append(report.Active, t.ID)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Println(renderStatus(report))
	return nil
}

// fillLedger copies the ledger records into report. A TimeCreated stamp in a
// foreign format, as older ledgers carry, is shown as stored.
func fillLedger(report *statusReport, l *ledger.Ledger) error {
	created, ok, err := l.TimeCreated()
	switch {
	case err != nil:
		raw, found, readErr := l.Read(domain.KeyTimeCreated)
		if readErr != nil || !found {
			return err
		}
		report.TimeCreated = raw
	case ok:
		report.TimeCreated = created.Format(ledger.TimeLayout)
	}

	total, _, err := l.TotalTime()
	if err != nil {
		return err
	}
	report.TotalTime = ledger.FormatDuration(total)
	return nil
}

func renderStatus(report statusReport) string {
	tracker := "not running"
	if report.Running {
		tracker = fmt.Sprintf("running (pid %d, heartbeat %s)", report.PID, report.LastHeartbeat)
	}
	active := "none"
	if len(report.Active) > 0 {
		active = strings.Join(report.Active, ", ")
	}

	t := table.NewWriter()
	t.SetTitle("cttrack status")
	t.AppendRow(table.Row{"Tracker", tracker})
	t.AppendRow(table.Row{"Ledger", report.Ledger})
	if report.TimeCreated != "" {
		t.AppendRow(table.Row{"Tracking since", report.TimeCreated})
	}
	t.AppendRow(table.Row{"Total time", report.TotalTime})
	t.AppendRow(table.Row{"Active applications", active})
	return t.Render()
}

func runTargets(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Println(renderTargets(cfg.DomainTargets(), infra.NewProcessPresence()))
	return nil
}

var targetHeader = table.Row{"ID", "Name", "Process", "State"}

func renderTargets(targets []domain.Target, presence domain.ProcessPresence) string {
	t := table.NewWriter()
	t.AppendHeader(targetHeader)
	for _, target := range targets {
		state := "not running"
		if running, err := presence.IsRunning(target.ProcessName); err == nil && running {
			state = "running"
		}
		t.AppendRow(table.Row{target.ID, target.Name, target.ProcessName, state})
	}
	return t.Render()
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	guard, err := a.guard(usecase.NewLivenessPoller(a.presence, a.logger))
	if err != nil {
		return err
	}

	result := guard.Check(cmd.Context())
	switch {
	case !result.Prompted:
		fmt.Println("No watched application is running.")
	case len(result.Terminated) > 0:
		fmt.Printf("Closed: %v\n", result.Terminated)
	default:
		fmt.Printf("Answer: %s, nothing closed.\n", result.Answer)
	}
	return errors.Join(result.Errors...)
}

func signalTracker(sig syscall.Signal, verb string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	alive, inst, err := infra.NewFileRegistry(infra.RunFileFor(cfg.LedgerPath())).IsAlive()
	if err != nil {
		return err
	}
	if !alive {
		return errors.New("cttrack is not running")
	}
	if err := syscall.Kill(inst.PID, sig); err != nil {
		return fmt.Errorf("failed to signal tracker: %w", err)
	}
	fmt.Printf("Activity checks %s (pid %d)\n", verb, inst.PID)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if !assumeYes {
		p := infra.NewTerminalPrompt(os.Stdin, os.Stdout, 0)
		p.Caption = "Reset tracked time"
		answer, err := p.Confirm(cmd.Context(), fmt.Sprintf("Clear the total stored in %s?", a.ledger.Location()))
		if err != nil {
			return err
		}
		if answer != domain.AnswerYes {
			fmt.Println("Aborted.")
			return nil
		}
	}

	removed, err := a.ledger.Reset()
	if err != nil {
		return err
	}
	if removed {
		fmt.Println("Total time cleared.")
	} else {
		fmt.Println("Nothing to clear.")
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Source != "" {
		fmt.Printf("# %s\n", cfg.Source)
	}
	return cfg.Dump(os.Stdout)
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("cttrack %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
