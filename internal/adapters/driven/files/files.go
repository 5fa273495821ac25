// Package files reads documents from the local filesystem and watches
// directories for changes.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/logger"
)

// MaxFileSize is the largest file that will be read.
const MaxFileSize = 64 << 20

// ErrTooLarge is returned for files above MaxFileSize.
var ErrTooLarge = errors.New("file too large")

// Read loads one file as a raw document. The file type comes from the
// extension.
func Read(path string) (*domain.RawDocument, error) {
	fileType, err := domain.FileTypeFromFilename(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %w: %s is %d bytes", domain.ErrExtraction, ErrTooLarge, path, info.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &domain.RawDocument{
		URI:      "file://" + abs,
		Filename: filepath.Base(path),
		FileType: fileType,
		Content:  content,
	}, nil
}

// Collect expands paths into the supported, non-hidden files beneath them.
// Directories are walked recursively. Explicitly named files are returned
// even when their type is unsupported so the caller can report them.
func Collect(ctx context.Context, paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("skipping %s: %v", path, err)
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if path != root && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !Supported(path) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Supported reports whether the extension maps to an accepted file type.
func Supported(path string) bool {
	_, err := domain.FileTypeFromFilename(path)
	return err == nil
}

// Watch reports changes to supported files under root until ctx is done.
// Subdirectories are watched too, including ones created later. The
// returned channel is closed when watching stops.
func Watch(ctx context.Context, root string) (<-chan domain.FileChange, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(watcher, root); err != nil {
		watcher.Close()
		return nil, err
	}

	changes := make(chan domain.FileChange)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) && isDir(event.Name) && !isHidden(filepath.Base(event.Name)) {
					if err := addTree(watcher, event.Name); err != nil {
						logger.Warn("watching %s: %v", event.Name, err)
					}
					continue
				}
				change, ok := handleEvent(event)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher error: %v", err)
			}
		}
	}()
	return changes, nil
}

// handleEvent maps a filesystem event to a change. Directories, hidden
// files, unsupported types and attribute changes are ignored.
func handleEvent(event fsnotify.Event) (domain.FileChange, bool) {
	if isHidden(event.Name) || !Supported(event.Name) {
		return domain.FileChange{}, false
	}

	switch {
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			return domain.FileChange{}, false
		}
		return domain.FileChange{Type: domain.ChangeCreated, Path: event.Name}, true
	case event.Has(fsnotify.Write):
		if isDir(event.Name) {
			return domain.FileChange{}, false
		}
		return domain.FileChange{Type: domain.ChangeUpdated, Path: event.Name}, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return domain.FileChange{Type: domain.ChangeDeleted, Path: event.Name}, true
	}
	return domain.FileChange{}, false
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// DocumentID derives a stable document ID from a file URI so re-indexing
// the same file replaces its previous version.
func DocumentID(uri string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(uri)).String()
}
