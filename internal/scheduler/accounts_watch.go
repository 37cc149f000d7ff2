package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/sources/accounts"
)

// AccountsApplier receives every successfully parsed accounts file.
type AccountsApplier interface {
	ApplyAccounts(ctx context.Context, a accounts.Accounts) error
}

// AccountsWatcher reloads the accounts file when it changes on disk.
//
// The parent directory is watched rather than the file: editors and secret
// mounts replace the file through a rename, which drops a file-level watch.
type AccountsWatcher struct {
	loader   *accounts.Loader
	applier  AccountsApplier
	logger   logger.Logger
	debounce time.Duration

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewAccountsWatcher(
	loader *accounts.Loader,
	applier AccountsApplier,
	log logger.Logger,
	debounce time.Duration,
) (*AccountsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(loader.Path())); err != nil {
		_ = w.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &AccountsWatcher{
		loader:   loader,
		applier:  applier,
		logger:   log,
		debounce: debounce,
		watcher:  w,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start watches in the background until Stop or ctx ends.
func (aw *AccountsWatcher) Start(ctx context.Context) {
	go aw.run(ctx)
}

// Stop ends the watch and releases the inotify handle.
func (aw *AccountsWatcher) Stop() {
	aw.stopOnce.Do(func() { close(aw.stopCh) })
	<-aw.done
	if err := aw.watcher.Close(); err != nil {
		aw.logger.Warn("failed to close accounts watcher", logger.Error(err))
	}
}

func (aw *AccountsWatcher) run(ctx context.Context) {
	defer close(aw.done)

	target := filepath.Clean(aw.loader.Path())
	timer := time.NewTimer(aw.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-aw.stopCh:
			return

		case ev, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// rapid saves collapse into one reload
			timer.Reset(aw.debounce)

		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			aw.logger.Warn("accounts watcher error", logger.Error(err))

		case <-timer.C:
			aw.reload(ctx)
		}
	}
}

func (aw *AccountsWatcher) reload(ctx context.Context) {
	accs, err := aw.loader.Read()
	if err != nil {
		// keep the current accounts until the file is fixed
		aw.logger.Error("failed to reload accounts file",
			logger.String("path", aw.loader.Path()),
			logger.Error(err))
		return
	}

	if err := aw.applier.ApplyAccounts(ctx, accs); err != nil {
		aw.logger.Error("failed to apply reloaded accounts", logger.Error(err))
		return
	}
	aw.logger.Info("accounts file reloaded",
		logger.Int("accounts", len(accs.List)),
		logger.String("active", accs.Active.String()))
}
