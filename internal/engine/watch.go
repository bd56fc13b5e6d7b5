package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"macroscan/internal/config"
	"macroscan/internal/document"
	"macroscan/internal/logger"
	"macroscan/internal/output"
	"macroscan/internal/report"
)

// watcher rescans documents as they are created or rewritten inside the
// watched directories. Each path is debounced so a save that produces several
// write events is analyzed once.
type watcher struct {
	cfg    *config.Config
	sess   *session
	engine *Engine
	outMgr *output.Manager
	fsw    *fsnotify.Watcher
	runID  string

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
	risky   bool
	errored bool
}

// Watch blocks until ctx is done, writing one report per settled change.
// It returns 3 when the watch cannot start, otherwise the exit code the
// reports seen so far would produce.
func (e *Engine) Watch(ctx context.Context, cfg *config.Config) int {
	dirs, err := watchRoots(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForRun(true, false, false)
	}

	sess, err := prepareSession(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring rules: %v\n", err)
		return exitCodeForRun(true, false, false)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting file watcher: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	defer fsw.Close()

	w := &watcher{
		cfg:     cfg,
		sess:    sess,
		engine:  e,
		fsw:     fsw,
		runID:   e.runID(),
		pending: make(map[string]*time.Timer),
	}

	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching %s: %v\n", dir, err)
			return exitCodeForRun(true, false, false)
		}
	}

	outMgr, err := setupOutputManager(cfg, e.extraSinks...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	w.outMgr = outMgr
	defer outMgr.Close()

	_ = outMgr.Write(output.Event{Type: "run.started", RunID: w.runID, Rules: len(sess.rules), RuleIDs: ruleIDs(sess)})
	if !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Watching %d directories. Press Ctrl+C to stop.\n", len(w.fsw.WatchList()))
	}

	w.loop(ctx)
	w.stop()

	code := exitCodeForRun(false, w.errored, w.risky)
	_ = outMgr.Write(output.Event{Type: "run.finished", RunID: w.runID, ExitCode: code})
	return code
}

func ruleIDs(sess *session) []string {
	ids := make([]string, 0, len(sess.rules))
	for _, r := range sess.rules {
		ids = append(ids, r.ID)
	}
	return ids
}

// watchRoots returns the configured paths, which must all be directories.
func watchRoots(cfg *config.Config) ([]string, error) {
	var dirs []string
	for _, p := range cfg.Targeting.Paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", p)
		}
		dirs = append(dirs, p)
	}
	if len(dirs) == 0 {
		return nil, errors.New("at least one directory must be provided")
	}
	return dirs, nil
}

// addTree watches dir and, unless recursion is off, every directory below it.
func (w *watcher) addTree(dir string) error {
	if w.cfg.Targeting.NoRecursive {
		return w.fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			logger.Warn("not watching %s: %v", p, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		logger.Debug("watching %s", p)
		return w.fsw.Add(p)
	})
}

func (w *watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.cfg.Targeting.NoRecursive {
				if err := w.addTree(ev.Name); err != nil {
					logger.Warn("not watching %s: %v", ev.Name, err)
				}
			}
			return
		}
		w.schedule(ev.Name)
	case ev.Has(fsnotify.Write):
		w.schedule(ev.Name)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(ev.Name)
	}
}

// wants reports whether a changed path is a document this watch scans.
func (w *watcher) wants(p string) bool {
	if !document.IsAccepted(p) || strings.HasPrefix(filepath.Base(p), "~$") {
		return false
	}
	files := FilterFiles([]FileRef{{Path: p}}, w.cfg)
	return len(files) == 1
}

func (w *watcher) schedule(p string) {
	if !w.wants(p) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[p]; ok {
		// An expired timer fires again once re-armed.
		if !t.Reset(w.cfg.Runtime.Debounce) {
			w.wg.Add(1)
		}
		return
	}
	w.wg.Add(1)
	w.pending[p] = time.AfterFunc(w.cfg.Runtime.Debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.pending, p)
		w.mu.Unlock()
		w.scan(p)
	})
}

func (w *watcher) cancel(p string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[p]; ok {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, p)
	}
}

// stop drops pending scans and waits for running ones.
func (w *watcher) stop() {
	w.mu.Lock()
	for p, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, p)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *watcher) scan(p string) {
	ld := w.engine.loaderFor(w.cfg)

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Runtime.Timeout)
	defer cancel()

	var rep report.Report
	doc, err := ld.Load(ctx, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Removed before it settled.
			return
		}
		rep = reportForLoadError(FileRef{Path: p}, err, w.cfg.Runtime.Verbose)
		rep.RunID = w.runID
	} else {
		var risky bool
		rep, risky = w.sess.finish(w.runID, w.sess.analyzer.Analyze(doc))
		w.mu.Lock()
		w.risky = w.risky || risky
		w.mu.Unlock()
	}

	if rep.Status == report.StatusError {
		w.mu.Lock()
		w.errored = true
		w.mu.Unlock()
	}

	if err := w.outMgr.Write(rep); err != nil {
		logger.Warn("writing report for %s: %v", p, err)
	}
}
