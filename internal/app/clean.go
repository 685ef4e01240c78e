package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/kiln/internal/adapters/storage"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// CleanOptions select what Clean removes.
type CleanOptions struct {
	// Logs also removes task logs.
	Logs bool
	// All removes the whole .kiln directory, including the step log and the ledger.
	All bool
	Cwd string
}

// Clean removes local kiln state. Remote stores are never touched.
func (a *App) Clean(_ context.Context, opts CleanOptions) error {
	root, err := a.findRoot(opts.Cwd)
	if err != nil {
		return err
	}
	ws, err := a.loader.Load(root)
	if err != nil {
		return err
	}

	var paths []string
	if dir, ok := filesystemStoreDir(root, ws.Settings.Cache); ok {
		paths = append(paths, dir)
	}
	if opts.Logs {
		paths = append(paths, filepath.Join(root, domain.DefaultLogsPath()))
	}
	if opts.All {
		paths = append(paths, filepath.Join(root, domain.DefaultKilnPath()))
	}
	slices.Sort(paths)
	paths = slices.Compact(paths)

	if len(paths) == 0 {
		a.logger.Info(fmt.Sprintf("Nothing to clean for the %s backend", ws.Settings.Cache.Backend))
		return nil
	}

	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrCleanFailed, err.Error()), "path", p)
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		a.logger.Info("Removed " + rel)
	}
	return nil
}

func filesystemStoreDir(root string, settings domain.CacheSettings) (string, bool) {
	if settings.Backend != "" && settings.Backend != domain.BackendFilesystem {
		return "", false
	}
	return storage.FilesystemDir(root, settings), true
}
