// Package pathexpr translates the CLI's path-expression grammar into the
// ordered entry list container.Create consumes. A path expression is a
// `?`-delimited list of top-level items; an item containing `**` is
// expanded as a doublestar glob (in which `*` is a wildcard too), and any
// other item is a `*`-delimited chain of path segments that are joined
// into one filesystem path before being walked.
package pathexpr

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kelbwah/huffmin-archiver/internal/container"
)

const doubleGlob = "**"

// Resolve expands expr into the (full path, trimmed stored path) pairs
// container.Create needs. Every top-level item must resolve to at least
// one existing file or directory; a directory is walked recursively.
func Resolve(expr string) ([]container.Entry, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, container.ErrInvalidArgument
	}

	var entries []container.Entry
	for _, segment := range strings.Split(expr, string(container.PathDelimiter)) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		if strings.Contains(segment, doubleGlob) {
			matches, err := doublestar.FilepathGlob(segment)
			if err != nil {
				return nil, container.ErrInvalidArgument
			}
			if len(matches) == 0 {
				return nil, container.ErrNotFound
			}
			for _, m := range matches {
				if err := collect(m, &entries); err != nil {
					return nil, err
				}
			}
			continue
		}

		parts := strings.Split(segment, string(container.FileCombiner))
		full := filepath.Join(parts...)
		if err := collect(full, &entries); err != nil {
			return nil, err
		}
	}

	if len(entries) == 0 {
		return nil, container.ErrNotFound
	}
	return entries, nil
}

// collect appends root (a single file, or every file under root if it is a
// directory) to out, storing trimmed paths rooted at root's own base name.
func collect(root string, out *[]container.Entry) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return container.ErrNotFound
	}
	if err != nil {
		return err
	}

	if !info.IsDir() {
		*out = append(*out, container.Entry{Full: root, Trimmed: filepath.Base(root)})
		return nil
	}

	base := filepath.Base(root)
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		trimmed := base + string(container.PathSeparator) + filepath.ToSlash(rel)
		trimmed = strings.ReplaceAll(trimmed, "/", string(container.PathSeparator))
		*out = append(*out, container.Entry{Full: path, Trimmed: trimmed})
		return nil
	})
}
