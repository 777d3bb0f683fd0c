// Package snapgen generates snapshot accessors for state machines.
//
// For every Go source file that declares constants of the state identifier
// type, it writes <machine>_snapshot.go next to it: offset constants, the
// state count, a snapshot.Table and a <Machine>CurrentState accessor that
// packs the machine's active states into a snapshot.Mask.
package snapgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Run executes every job described by cfg. Generated files are written to
// disk, or to out when cfg.DryRun is set.
func Run(ctx context.Context, cfg Config, out io.Writer, logger *slog.Logger) error {
	if out == nil {
		return errors.New("output is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	jobs, err := collectJobs(cfg)
	if err != nil {
		return err
	}

	generated := 0
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}

		stateType := job.Type
		if stateType == "" {
			stateType = cfg.StateType
		}
		m, err := ScanFile(job.Source, job.Machine, stateType)
		if errors.Is(err, ErrNoStates) {
			logger.Info("no state constants found, skipping", "file", job.Source, "type", stateType)
			continue
		}
		if err != nil {
			return err
		}

		src, err := Render(m)
		if err != nil {
			return err
		}

		target := OutputPath(m, job.Output)
		if cfg.DryRun {
			if _, err := fmt.Fprintf(out, "// %s\n%s", target, src); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
		} else if err := os.WriteFile(target, src, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}

		logger.Info("generated snapshot", "machine", m.Name, "states", len(m.States), "output", target)
		generated++
	}

	logger.Debug("snapgen finished", "jobs", len(jobs), "generated", generated)
	return nil
}

// collectJobs merges manifest jobs with the files found under cfg.Paths,
// dropping duplicate sources.
func collectJobs(cfg Config) ([]Job, error) {
	var jobs []Job
	seen := make(map[string]bool)
	add := func(job Job) error {
		key, err := filepath.Abs(job.Source)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", job.Source, err)
		}
		if seen[key] {
			return nil
		}
		seen[key] = true
		jobs = append(jobs, job)
		return nil
	}

	if cfg.Manifest != "" {
		manifest, err := LoadManifest(cfg.Manifest)
		if err != nil {
			return nil, err
		}
		for _, job := range manifest.Jobs {
			if err := add(job); err != nil {
				return nil, err
			}
		}
	}

	for _, p := range cfg.Paths {
		files, err := findSources(p)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if err := add(Job{Source: f}); err != nil {
				return nil, err
			}
		}
	}
	return jobs, nil
}

// findSources returns p itself when it is a file, or every candidate Go
// file below it when it is a directory.
func findSources(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if !info.IsDir() {
		return []string{p}, nil
	}

	var files []string
	err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != p && (name == "testdata" || name == "vendor" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if isCandidate(name) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", p, err)
	}
	sort.Strings(files)
	return files, nil
}

func isCandidate(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		!strings.HasSuffix(name, "_snapshot.go")
}
