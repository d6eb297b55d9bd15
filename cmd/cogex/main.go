// Package main provides the CLI entrypoint for cogex.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vargamartonaron/cogex/internal/config"
	"github.com/vargamartonaron/cogex/internal/engine"
	"github.com/vargamartonaron/cogex/internal/export"
	"github.com/vargamartonaron/cogex/internal/model"
	"github.com/vargamartonaron/cogex/internal/stats"
	"github.com/vargamartonaron/cogex/internal/statsui"
	"github.com/vargamartonaron/cogex/internal/store"
	"github.com/vargamartonaron/cogex/internal/timing"
	"github.com/vargamartonaron/cogex/internal/tui"
)

const (
	defaultFrameRate          = 240
	defaultCalibrationSamples = 200
	defaultCurveWindow        = 5
)

var (
	runPracticeTrials   int
	runExperimentTrials int
	runFixationMinMs    int64
	runFixationMaxMs    int64
	runStimulusMs       int64
	runResponseWindowMs int64
	runFeedbackMs       int64
	runInterTrialMs     int64
	runSeed             int64
	runFrameRate        int
	runCalibration      int
	runOut              string
	runNoSave           bool

	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPractice    bool
	statsPlain       bool

	exportOut string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := model.DefaultExperimentConfig()
	rootCmd := &cobra.Command{
		Use:           "cogex",
		Short:         "Reaction time experiment runner",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runExperimentCmd,
	}

	rootCmd.Flags().IntVar(&runPracticeTrials, "practice", defaults.PracticeTrials, "practice trials before the experiment")
	rootCmd.Flags().IntVar(&runExperimentTrials, "trials", defaults.ExperimentTrials, "experiment trials")
	rootCmd.Flags().Int64Var(&runFixationMinMs, "fixation-min-ms", defaults.FixationMinMs, "minimum fixation duration (ms)")
	rootCmd.Flags().Int64Var(&runFixationMaxMs, "fixation-max-ms", defaults.FixationMaxMs, "maximum fixation duration (ms)")
	rootCmd.Flags().Int64Var(&runStimulusMs, "stimulus-ms", defaults.StimulusMs, "stimulus presentation duration (ms)")
	rootCmd.Flags().Int64Var(&runResponseWindowMs, "response-window-ms", defaults.ResponseWindowMs, "response window after stimulus onset (ms)")
	rootCmd.Flags().Int64Var(&runFeedbackMs, "feedback-ms", defaults.FeedbackMs, "feedback duration (ms)")
	rootCmd.Flags().Int64Var(&runInterTrialMs, "inter-trial-ms", defaults.InterTrialMs, "inter-trial interval (ms)")
	rootCmd.Flags().Int64Var(&runSeed, "seed", 0, "trial sequence seed (0 picks a random seed)")
	rootCmd.Flags().IntVar(&runFrameRate, "frame-rate", defaultFrameRate, "engine tick rate (Hz)")
	rootCmd.Flags().IntVar(&runCalibration, "calibration-samples", defaultCalibrationSamples, "timer calibration samples before the run")
	rootCmd.Flags().StringVar(&runOut, "out", "", "results JSON path (default: results dir)")
	rootCmd.Flags().BoolVar(&runNoSave, "no-save", false, "skip the run database")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

func runExperimentCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "practice", &runPracticeTrials, fileCfg.Experiment.PracticeTrials)
	applyIntConfig(cmd, "trials", &runExperimentTrials, fileCfg.Experiment.ExperimentTrials)
	applyInt64Config(cmd, "fixation-min-ms", &runFixationMinMs, fileCfg.Experiment.FixationMinMs)
	applyInt64Config(cmd, "fixation-max-ms", &runFixationMaxMs, fileCfg.Experiment.FixationMaxMs)
	applyInt64Config(cmd, "stimulus-ms", &runStimulusMs, fileCfg.Experiment.StimulusMs)
	applyInt64Config(cmd, "response-window-ms", &runResponseWindowMs, fileCfg.Experiment.ResponseWindowMs)
	applyInt64Config(cmd, "feedback-ms", &runFeedbackMs, fileCfg.Experiment.FeedbackMs)
	applyInt64Config(cmd, "inter-trial-ms", &runInterTrialMs, fileCfg.Experiment.InterTrialMs)
	applyInt64Config(cmd, "seed", &runSeed, fileCfg.Experiment.Seed)
	applyIntConfig(cmd, "frame-rate", &runFrameRate, fileCfg.Timing.FrameRate)
	applyIntConfig(cmd, "calibration-samples", &runCalibration, fileCfg.Timing.CalibrationSamples)

	expCfg := model.ExperimentConfig{
		PracticeTrials:   runPracticeTrials,
		ExperimentTrials: runExperimentTrials,
		FixationMinMs:    runFixationMinMs,
		FixationMaxMs:    runFixationMaxMs,
		StimulusMs:       runStimulusMs,
		ResponseWindowMs: runResponseWindowMs,
		FeedbackMs:       runFeedbackMs,
		InterTrialMs:     runInterTrialMs,
	}
	if err := expCfg.Validate(); err != nil {
		return fmt.Errorf("invalid experiment config: %w", err)
	}
	if runFrameRate <= 0 {
		return fmt.Errorf("--frame-rate must be > 0")
	}
	if runCalibration < 0 {
		return fmt.Errorf("--calibration-samples must be >= 0")
	}

	seed := runSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	degraded := false
	clock, err := timing.Acquire()
	if err != nil {
		logErrf("high-resolution timer unavailable, timing will be degraded: %v\n", err)
		clock = timing.Coarse()
		degraded = true
	}
	defer func() {
		if cerr := clock.Close(); cerr != nil {
			logErrf("failed to close timer: %v\n", cerr)
		}
	}()

	if runCalibration > 0 {
		bias := clock.Calibrate(runCalibration)
		logErrf("timer calibration: mean overshoot %s, max %s (%d samples)\n",
			bias.MeanOvershoot, bias.MaxOvershoot, bias.Samples)
	}

	eng, err := engine.New(expCfg, clock, seed)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	if degraded {
		eng.SetDegraded(true)
	}

	sched := timing.NewFrameScheduler(clock, time.Second/time.Duration(runFrameRate), schedulerOptions(fileCfg)...)

	events := make(chan engine.InputEvent, 16)
	frames := make(chan engine.Snapshot, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startedAt := time.Now()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		engine.Run(ctx, clock, sched, eng, events, frames)
	}()

	ui := tui.NewModel(clock, events, frames, eng.Cancel)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	_, runErr := program.Run()
	cancel()
	<-loopDone
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	endedAt := time.Now()

	if jitter := sched.Stats(); jitter.Samples > 0 {
		logErrf("frame jitter: mean %.3f ms over %d frames (max %.3f ms)\n",
			jitter.MeanNs/1e6, jitter.Samples, float64(jitter.MaxNs)/1e6)
	}

	records, err := eng.Results().Snapshot()
	if err != nil {
		return fmt.Errorf("failed to collect results: %w", err)
	}
	if len(records) == 0 {
		logErrln("no trials recorded")
		return nil
	}

	summary := stats.Summarize(records)
	logErrf("recorded %d trials, %d correct, %d timeouts, mean RT %.1f ms\n",
		summary.Trials, summary.Correct, summary.Timeouts, summary.MeanMs)
	if eng.Degraded() {
		logErrln("warning: timing was degraded during this run")
	}

	runID, err := saveRun(expCfg, eng, records, startedAt, endedAt)
	if err != nil {
		return err
	}

	outPath := runOut
	if outPath == "" {
		name := fmt.Sprintf("run-%s.json", endedAt.Format("20060102-150405"))
		if runID > 0 {
			name = fmt.Sprintf("run-%d-%s.json", runID, endedAt.Format("20060102-150405"))
		}
		outPath = filepath.Join(config.DefaultResultsDir(), name)
	}
	doc := export.Document{Seed: eng.Seed(), Degraded: eng.Degraded(), Results: records}
	if err := export.WriteFile(outPath, doc); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logErrf("results written to %s\n", outPath)
	return nil
}

func schedulerOptions(fileCfg config.FileConfig) []timing.SchedulerOption {
	threshold := timing.DefaultOverrunThreshold
	frames := timing.DefaultOverrunFrames
	if fileCfg.Timing.OverrunThresholdMs != nil && *fileCfg.Timing.OverrunThresholdMs > 0 {
		threshold = time.Duration(*fileCfg.Timing.OverrunThresholdMs) * time.Millisecond
	}
	if fileCfg.Timing.OverrunFrames != nil && *fileCfg.Timing.OverrunFrames > 0 {
		frames = *fileCfg.Timing.OverrunFrames
	}
	return []timing.SchedulerOption{timing.WithOverrunPolicy(threshold, frames)}
}

func saveRun(cfg model.ExperimentConfig, eng *engine.Engine, records []model.ResultRecord, startedAt, endedAt time.Time) (int64, error) {
	if runNoSave {
		return 0, nil
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return 0, fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	run := model.RunInfo{
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Seed:      eng.Seed(),
		Config:    cfg,
		FrameRate: runFrameRate,
		Degraded:  eng.Degraded(),
	}
	id, err := st.InsertRun(context.Background(), run, records)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse run history",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD) or duration (e.g. 72h)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window for the RT trend")
	cmd.Flags().BoolVar(&statsPractice, "practice", false, "include practice trials in aggregates")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print the report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	sinceTime, err := stats.SinceFlag(statsSince)
	if err != nil {
		return fmt.Errorf("invalid --since value: %w", err)
	}

	cfg := model.StatsConfig{
		Since:           sinceTime,
		Last:            statsLast,
		CurveWindow:     statsCurveWindow,
		IncludePractice: statsPractice,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain {
		report, err := stats.BuildReport(context.Background(), st, cfg)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprint(cmd.OutOrStdout(), report.Render(stats.AutoPlotWidth(100))); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	ui := statsui.NewModel(st, cfg)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Re-export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportOut, "out", "", "output path (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	seed, degraded, err := st.RunSeedAndDegraded(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", runID, err)
	}
	records, err := st.ListResults(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load results for run %d: %w", runID, err)
	}

	doc := export.Document{Seed: seed, Degraded: degraded, Results: records}
	if exportOut == "" {
		return export.Write(cmd.OutOrStdout(), doc)
	}
	if err := export.WriteFile(exportOut, doc); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logErrf("results written to %s\n", exportOut)
	return nil
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	defaults := model.DefaultExperimentConfig()
	return fmt.Sprintf(`# cogex configuration
# Uncomment a value to enable it. CLI flags override config values.

[experiment]
# practice-trials = %d      # Practice trials before the experiment
# experiment-trials = %d   # Experiment trials
# fixation-min-ms = %d     # Minimum fixation duration (ms)
# fixation-max-ms = %d    # Maximum fixation duration (ms)
# stimulus-ms = %d         # Stimulus presentation duration (ms)
# response-window-ms = %d # Response window after stimulus onset (ms)
# feedback-ms = %d         # Feedback duration (ms)
# inter-trial-ms = %d     # Inter-trial interval (ms)
# seed = 0                  # Trial sequence seed (0 picks a random seed)

[timing]
# frame-rate = %d          # Engine tick rate (Hz)
# calibration-samples = %d # Timer calibration samples before the run
# overrun-threshold-ms = 2  # Mean frame overrun that counts as sustained (ms)
# overrun-frames = 30       # Consecutive frames over threshold before degrading
`,
		defaults.PracticeTrials,
		defaults.ExperimentTrials,
		defaults.FixationMinMs,
		defaults.FixationMaxMs,
		defaults.StimulusMs,
		defaults.ResponseWindowMs,
		defaults.FeedbackMs,
		defaults.InterTrialMs,
		defaultFrameRate,
		defaultCalibrationSamples,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
