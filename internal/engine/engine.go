package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"macroscan/internal/analyzer"
	"macroscan/internal/config"
	"macroscan/internal/loader"
	"macroscan/internal/logger"
	"macroscan/internal/output"
	"macroscan/internal/report"
	"macroscan/internal/rules"
	"macroscan/internal/verdict"
)

func exitCodeForRun(fatal, partial, risky bool) int {
	// Exit code contract:
	// 0 = clean run, nothing at or above --fail-on
	// 1 = at least one document at or above --fail-on
	// 2 = partial failure (some files could not be read)
	// 3 = fatal error (scan did not run)
	if fatal {
		return 3
	}
	if partial {
		return 2
	}
	if risky {
		return 1
	}
	return 0
}

func setupOutputManager(cfg *config.Config, extra ...output.Sink) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(os.Stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// History Sink
	if cfg.Output.DB != "" {
		hs, err := output.NewHistorySink(cfg.Output.DB)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(hs); err != nil {
			hs.Close()
			outMgr.Close()
			return nil, err
		}
	}

	for _, s := range extra {
		if err := outMgr.AddSink(s); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// resolveRules selects the rule set and applies per-rule --set overrides.
//
// --set values are parsed as "ruleID.option=value" and routed to the
// matching rule's Configure method. Only the resolved copies change.
//
// Example:
//
//	macroscan scan ./inbox --set shell-execution.points=30
func resolveRules(cfg *config.Config) ([]rules.Rule, error) {
	selected, err := rules.ResolveWith(cfg.Rules.Selector, cfg.Rules.Custom)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no rules selected")
	}

	if len(cfg.Rules.Set) == 0 {
		return selected, nil
	}
	assignments, err := config.ParseRuleOptionAssignments(cfg.Rules.Set)
	if err != nil {
		return nil, err
	}
	if err := rules.ApplyOptions(selected, assignments); err != nil {
		return nil, err
	}
	return selected, nil
}

// session is everything a scan or watch needs besides the file list.
type session struct {
	rules    []rules.Rule
	analyzer *analyzer.Analyzer
	allow    *AllowList
	failOn   verdict.Tier
}

func prepareSession(cfg *config.Config) (*session, error) {
	if !cfg.Output.NoConsole {
		fmt.Fprintln(os.Stderr, "Resolving rules...")
	}
	selected, err := resolveRules(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolving rules: %w", err)
	}

	evidence, err := report.ParseEvidence(cfg.Rules.Evidence)
	if err != nil {
		return nil, err
	}
	failOn, err := verdict.ParseTier(cfg.Rules.FailOn)
	if err != nil {
		return nil, err
	}

	if !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Selected %d rules.\n", len(selected))
	}
	return &session{
		rules:    selected,
		analyzer: analyzer.New(selected, evidence),
		allow:    NewAllowList(cfg),
		failOn:   failOn,
	}, nil
}

// finish applies the allowlist and stamps the run ID. It reports whether
// the document counts against --fail-on.
func (s *session) finish(runID string, rep report.Report) (report.Report, bool) {
	rep = s.allow.CheckReport(rep)
	rep.RunID = runID
	return rep, rep.Status == report.StatusRisk && rep.AtLeast(s.failOn)
}

type Engine struct {
	Loader *loader.Loader

	// schedulerExecute is a test seam for streaming execution.
	// If nil, Engine uses the real loader + scheduler.
	schedulerExecute func(ctx context.Context, cfg *config.Config, plan *ScanPlan, a *analyzer.Analyzer) (<-chan FileExecutionResult, <-chan error)

	// extraSinks are attached to every run's output manager.
	extraSinks []output.Sink

	newRunID func() string
}

func NewEngine(l *loader.Loader) *Engine {
	return &Engine{
		Loader:   l,
		newRunID: uuid.NewString,
	}
}

func (e *Engine) runID() string {
	if e.newRunID == nil {
		return uuid.NewString()
	}
	return e.newRunID()
}

func (e *Engine) loaderFor(cfg *config.Config) *loader.Loader {
	if e.Loader == nil {
		e.Loader = loader.New(cfg.Runtime.MaxFileSize)
	}
	return e.Loader
}

func (e *Engine) executePlanStream(ctx context.Context, cfg *config.Config, plan *ScanPlan, a *analyzer.Analyzer) (<-chan FileExecutionResult, <-chan error) {
	if e.schedulerExecute != nil {
		return e.schedulerExecute(ctx, cfg, plan, a)
	}

	scheduler, err := NewScheduler(e.loaderFor(cfg), a, cfg.Runtime.Concurrency, cfg.Runtime.FailFast)
	if err != nil {
		resCh := make(chan FileExecutionResult)
		errCh := make(chan error, 1)
		close(resCh)
		errCh <- err
		close(errCh)
		return resCh, errCh
	}
	return scheduler.Execute(ctx, plan)
}

type runTally struct {
	scanned  int
	byStatus map[report.Status]int
}

// evaluateStreamingResults receives streamed per-file results, turns load
// failures into ERROR/SKIPPED reports, applies the allowlist and forwards
// reports and events to the configured output sinks.
func evaluateStreamingResults(cfg *config.Config, sess *session, runID string, resCh <-chan FileExecutionResult, outMgr *output.Manager) (hasErrors bool, hasRisk bool, tally runTally) {
	tally.byStatus = make(map[report.Status]int)
	for res := range resCh {
		_ = outMgr.Write(output.Event{Type: "file.started", RunID: runID, Path: res.File.Path})

		var rep report.Report
		if res.LoadErr != nil {
			logger.Warn("loading %s: %v", res.File.Path, res.LoadErr)
			rep = reportForLoadError(res.File, res.LoadErr, cfg.Runtime.Verbose)
			rep.RunID = runID
		} else {
			var risky bool
			rep, risky = sess.finish(runID, res.Report)
			if risky {
				hasRisk = true
			}
		}

		if rep.Status == report.StatusError {
			hasErrors = true
		}
		tally.scanned++
		tally.byStatus[rep.Status]++

		if err := outMgr.Write(rep); err != nil {
			logger.Warn("writing report for %s: %v", rep.Path, err)
		}
	}
	return hasErrors, hasRisk, tally
}

func (e *Engine) discoverFiles(cfg *config.Config) ([]FileRef, bool) {
	if !cfg.Output.NoConsole {
		fmt.Fprintln(os.Stderr, "Discovering files...")
	}
	files, err := ResolveFiles(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering files: %v\n", err)
		return nil, false
	}
	return files, true
}

func maybeDryRun(cfg *config.Config, files []FileRef) (int, bool) {
	if !cfg.Targeting.DryRun {
		return 0, false
	}

	fmt.Println("Resolved files:")
	for _, n := range sortedPaths(files) {
		fmt.Println(n)
	}
	return 0, true
}

func buildPlanForFiles(cfg *config.Config, files []FileRef, selected []rules.Rule) (*ScanPlan, bool) {
	if !cfg.Output.NoConsole {
		fmt.Fprintln(os.Stderr, "Planning scan...")
	}
	plan := NewScanPlan(selected)
	for _, f := range files {
		if err := plan.AddFile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding %s to plan: %v\n", f.Path, err)
			return nil, false
		}
	}
	return plan, true
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	files, ok := e.discoverFiles(cfg)
	if !ok {
		return exitCodeForRun(true, false, false)
	}

	files = FilterFiles(files, cfg)
	if !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Found %d files.\n", len(files))
	}

	if code, ok := maybeDryRun(cfg, files); ok {
		return code
	}

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no Office documents to scan")
		return exitCodeForRun(true, false, false)
	}

	sess, err := prepareSession(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring rules: %v\n", err)
		return exitCodeForRun(true, false, false)
	}

	plan, ok := buildPlanForFiles(cfg, files, sess.rules)
	if !ok {
		return exitCodeForRun(true, false, false)
	}

	outMgr, err := setupOutputManager(cfg, e.extraSinks...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	defer outMgr.Close()

	runID := e.runID()
	_ = outMgr.Write(output.Event{Type: "run.started", RunID: runID, Files: plan.Len(), Rules: len(plan.Rules), RuleIDs: plan.RuleIDs()})

	runCtx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	resCh, errCh := e.executePlanStream(runCtx, cfg, plan, sess.analyzer)

	hasErrors, hasRisk, tally := evaluateStreamingResults(cfg, sess, runID, resCh, outMgr)

	var schedErr error
	// Drain scheduler errors; we only need to know whether any fatal error occurred (keep one non-nil error).
	for err := range errCh {
		if err != nil {
			schedErr = err
		}
	}
	if schedErr != nil {
		fmt.Fprintf(os.Stderr, "Error: scan stopped: %v\n", schedErr)
	}
	if cfg.Runtime.FailFast && tally.scanned < plan.Len() && !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Stopped after first failure; %d of %d files scanned.\n", tally.scanned, plan.Len())
	}

	if !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Scanned %d files: %d risky, %d safe, %d without macros, %d allowed, %d skipped, %d errors.\n",
			tally.scanned,
			tally.byStatus[report.StatusRisk],
			tally.byStatus[report.StatusSafe],
			tally.byStatus[report.StatusNoMacros],
			tally.byStatus[report.StatusAllowed],
			tally.byStatus[report.StatusSkipped],
			tally.byStatus[report.StatusError],
		)
	}

	fatal := schedErr != nil
	code := exitCodeForRun(fatal, hasErrors, hasRisk)
	_ = outMgr.Write(output.Event{Type: "run.finished", RunID: runID, ExitCode: code})
	return code
}
