package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/homowarp/internal/utils"
)

// selector decides which files under the batch inputs get warped. Patterns
// match the base name only.
type selector struct {
	recursive bool
	include   []string
	exclude   []string
}

func newSelector(recursive bool, include, exclude []string) (selector, error) {
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if _, err := filepath.Match(p, ""); err != nil {
			return selector{}, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return selector{recursive: recursive, include: include, exclude: exclude}, nil
}

// discoverImageFiles expands files and directories into the list of images
// to warp. Files named explicitly are kept whatever their extension, so an
// unsupported file fails loudly instead of being skipped. A path reached
// twice is listed once.
func discoverImageFiles(args []string, recursive bool, include, exclude []string) ([]string, error) {
	sel, err := newSelector(recursive, include, exclude)
	if err != nil {
		return nil, err
	}

	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := filepath.Clean(path)
		if !seen[key] {
			seen[key] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			if sel.wants(arg) {
				add(arg)
			}
			continue
		}
		if err := sel.walk(arg, add); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// walk reports every supported image below root that the selector wants.
func (s selector) walk(root string, emit func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && path != root && !s.recursive:
			return filepath.SkipDir
		case !d.IsDir() && utils.IsSupportedImage(path) && s.wants(path):
			emit(path)
		}
		return nil
	})
}

// wants applies exclude patterns before include patterns. With no include
// patterns every file that is not excluded is wanted.
func (s selector) wants(path string) bool {
	base := filepath.Base(path)
	if matchAny(base, s.exclude) {
		return false
	}
	return len(s.include) == 0 || matchAny(base, s.include)
}

func matchAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
