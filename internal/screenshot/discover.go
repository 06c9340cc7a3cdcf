package screenshot

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultExtensions are the accepted screenshot extensions. Matching is
// case-sensitive.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Discover lists image files directly inside dir whose extension is in exts.
// The result is ordered by filename. An empty directory yields an empty,
// non-nil slice; an unreadable or missing directory yields a *DiscoveryError.
func Discover(dir string, exts []string) ([]ImageFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Dir: dir, Err: fmt.Errorf("not a directory")}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Err: err}
	}

	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed[ext] = true
	}

	files := make([]ImageFile, 0, len(entries))
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !allowed[ext] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !isRegularFile(path, e) {
			slog.Debug("Skipping non-regular entry", "path", path)
			continue
		}
		files = append(files, ImageFile{
			Path: path,
			Name: e.Name(),
			Ext:  ext,
		})
	}

	slog.Debug("Discovered images", "dir", dir, "count", len(files))
	return files, nil
}

// isRegularFile accepts regular files and symlinks that resolve to one.
func isRegularFile(path string, e fs.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
