package split

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"pagesheet/config"
	"pagesheet/state"
)

// outputs describes where results of splitting a single source go.
type outputs struct {
	dir  string
	base string
}

// buildOutputs returns output location for source. "src" is path of the
// source relative to what was specified on the command line (just a base name
// for a single file). Source directory structure is preserved under "dst",
// every path segment is cleaned and if requested transliterated.
func buildOutputs(src, dst string, env *state.LocalEnv) outputs {
	segments := splitAndCleanPath(src)
	if len(segments) == 0 {
		return outputs{dir: dst, base: cleanPathSegment("sheet", env)}
	}

	parts := make([]string, 0, len(segments))
	parts = append(parts, dst)
	for _, s := range segments[:len(segments)-1] {
		parts = append(parts, cleanPathSegment(s, env))
	}

	name := segments[len(segments)-1]
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return outputs{dir: filepath.Join(parts...), base: cleanPathSegment(name, env)}
}

// page returns file name of n-th page, numbering starts with 1.
func (o outputs) page(suffix string, n int) string {
	return fmt.Sprintf("%s%s%d.css", o.base, suffix, n)
}

func (o outputs) index() string {
	return o.base + ".css"
}

func splitAndCleanPath(path string) []string {
	path = filepath.Clean(filepath.FromSlash(path))
	if path == "." || path == string(os.PathSeparator) {
		return nil
	}
	segments := make([]string, 0, 8)
	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		segments = slices.Insert(segments, 0, tail)
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}
	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Output.Transliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}

// prepareOutput makes sure file could be written: its directory exists and
// existing file is only replaced when requested.
func prepareOutput(name string, env *state.LocalEnv) error {
	if _, err := os.Stat(name); err == nil {
		if !env.Flags.Overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		env.Log.Warn("Overwriting existing file", zap.String("file", name))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
