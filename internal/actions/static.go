package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/atomikpanda/blazesetup/internal/config"
)

// StaticSiteAction ensures the static-content root and its default index exist.
// The root and the index are checked independently, and an existing index is
// never overwritten.
type StaticSiteAction struct {
	// Site holds resolved Root and Index paths.
	Site config.Static
	Printer
	Log zerolog.Logger
}

func (a *StaticSiteAction) Describe() string {
	return fmt.Sprintf("ensure static root %s with %s", a.Site.Root, filepath.Base(a.Site.Index))
}

// IsApplied implements Idempotent.
func (a *StaticSiteAction) IsApplied(context.Context) (bool, error) {
	info, err := os.Stat(a.Site.Root)
	if err != nil || !info.IsDir() {
		return false, nil
	}
	return fileExists(a.Site.Index), nil
}

func (a *StaticSiteAction) Run(_ context.Context, dryRun bool) error {
	if err := a.ensureRoot(dryRun); err != nil {
		return err
	}

	_, err := os.Stat(a.Site.Index)
	switch {
	case err == nil:
		a.Log.Debug().Str("index", a.Site.Index).Msg("index present, leaving untouched")
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return &IOError{Op: "stat index", Path: a.Site.Index, Err: err}
	case dryRun:
		a.DryRun("write default %s", a.Site.Index)
		return nil
	}

	if err := writeIndex(a.Site.Index, []byte(a.Site.Content)); err != nil {
		return &IOError{Op: "write index", Path: a.Site.Index, Err: err}
	}
	a.Log.Info().Str("index", a.Site.Index).Msg("default index written")
	a.OK("added default %s", a.Site.Index)
	return nil
}

func (a *StaticSiteAction) ensureRoot(dryRun bool) error {
	info, err := os.Stat(a.Site.Root)
	switch {
	case err == nil && info.IsDir():
		a.Info("static directory already exists: %s", a.Site.Root)
		return nil
	case err == nil:
		return &IOError{Op: "create static root", Path: a.Site.Root, Err: errors.New("exists and is not a directory")}
	case !errors.Is(err, os.ErrNotExist):
		return &IOError{Op: "stat static root", Path: a.Site.Root, Err: err}
	case dryRun:
		a.DryRun("create directory %s", a.Site.Root)
		return nil
	}

	if err := os.MkdirAll(a.Site.Root, 0o755); err != nil {
		return &IOError{Op: "create static root", Path: a.Site.Root, Err: err}
	}
	a.OK("created static directory: %s", a.Site.Root)
	return nil
}

// writeIndex writes data to path through a temporary file and an atomic rename,
// so an interrupted run never leaves a truncated index behind.
func writeIndex(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}
