package asar

import (
	"log/slog"
	"path"
	"strings"
)

// ExtractOption configures extraction.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	paths    map[string]struct{}
	logger   *slog.Logger
	progress ProgressFunc
}

// ExtractWithPaths limits extraction to the named archive-relative paths.
// Naming a directory selects its whole subtree. Without this option every
// entry is extracted.
func ExtractWithPaths(paths ...string) ExtractOption {
	return func(cfg *extractConfig) {
		if cfg.paths == nil {
			cfg.paths = make(map[string]struct{}, len(paths))
		}
		for _, p := range paths {
			cfg.paths[path.Clean(p)] = struct{}{}
		}
	}
}

// ExtractWithLogger sets the logger for extraction diagnostics, including
// the warning emitted when an unpacked file is missing from the sidecar.
// A nil logger discards all output.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.logger = logger
	}
}

// ExtractWithProgress registers a callback for progress updates.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.progress = fn
	}
}

// selected reports whether rel is covered by the path filter: an exact
// match or a descendant of a selected directory. A nil filter selects all.
func (cfg *extractConfig) selected(rel string) bool {
	if cfg.paths == nil {
		return true
	}
	for p := rel; ; {
		if _, ok := cfg.paths[p]; ok {
			return true
		}
		i := strings.LastIndexByte(p, '/')
		if i < 0 {
			return false
		}
		p = p[:i]
	}
}
