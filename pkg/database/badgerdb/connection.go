package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/revenant-13/maintenance-app/pkg/config"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// zapAdapter routes badger's internal logging through zap.
type zapAdapter struct {
	logger *zap.SugaredLogger
}

func (l *zapAdapter) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *zapAdapter) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *zapAdapter) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l *zapAdapter) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

func Open(cfg config.BadgerConfig, logger *zap.Logger) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("BADGER_PATH is required unless BADGER_IN_MEMORY is set")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if logger != nil {
		opts = opts.WithLogger(&zapAdapter{logger: logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// OpenInMemory is used by tests and the BADGER_IN_MEMORY mode.
func OpenInMemory() (*badger.DB, error) {
	return Open(config.BadgerConfig{InMemory: true}, nil)
}

// RunGC reclaims value-log space until ctx is cancelled.
func RunGC(ctx context.Context, db *badger.DB, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 || db.Opts().InMemory {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				if err := db.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logger.Warn("badger value log GC failed", zap.Error(err))
					}
					break
				}
			}
		}
	}
}
