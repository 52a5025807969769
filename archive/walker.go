// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/text/encoding"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk, name is the entry name (decoded when necessary) and file is the
// zip.File structure for the entry. If an error is returned, processing
// stops.
type WalkFunc func(archive, name string, file *zip.File) error

// Walk visits all files in the archive with names starting with prefix in
// natural name order, calling walkFn for each item. Zip does not define file
// name encoding, so when cp is not nil entry names not flagged as UTF-8 are
// decoded with it. Archives with absolute entry paths or path traversal
// components ("..") are refused.
func Walk(archive, prefix string, cp encoding.Encoding, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	files := make(map[string]*zip.File, len(r.File))
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if cp != nil && f.FileHeader.NonUTF8 {
			n, err := cp.NewDecoder().String(name)
			if err != nil {
				return fmt.Errorf("zip entry %q: unable to decode name: %w", name, err)
			}
			name = n
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, exists := files[name]; exists {
			// first one wins, same as most unzip tools
			continue
		}
		files[name] = f
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))

	for _, name := range names {
		if err := walkFn(archive, name, files[name]); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
