package asar

import (
	"log/slog"
	"path"
)

// PackOption configures archive creation.
type PackOption func(*packConfig)

// packConfig holds configuration for archive creation.
type packConfig struct {
	blockSize int
	unpacked  map[string]struct{}
	logger    *slog.Logger
	progress  ProgressFunc
}

// PackWithUnpacked marks source-relative paths whose content is stored in
// the <output>.unpacked sidecar tree instead of the container body.
// Unpacked entries carry no offset and no integrity record.
func PackWithUnpacked(paths ...string) PackOption {
	return func(cfg *packConfig) {
		if cfg.unpacked == nil {
			cfg.unpacked = make(map[string]struct{}, len(paths))
		}
		for _, p := range paths {
			cfg.unpacked[path.Clean(p)] = struct{}{}
		}
	}
}

// PackWithBlockSize sets the integrity hashing block size in bytes.
// Zero or negative selects DefaultBlockSize.
func PackWithBlockSize(n int) PackOption {
	return func(cfg *packConfig) {
		cfg.blockSize = n
	}
}

// PackWithLogger sets the logger for pack diagnostics. A nil logger
// discards all output.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(cfg *packConfig) {
		cfg.logger = logger
	}
}

// PackWithProgress registers a callback for progress updates.
func PackWithProgress(fn ProgressFunc) PackOption {
	return func(cfg *packConfig) {
		cfg.progress = fn
	}
}
