package split

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildOutputs(t *testing.T) {
	_, env := setupTestEnv(t)
	dst := filepath.Join(t.TempDir(), "out")

	tests := []struct {
		name          string
		src           string
		transliterate bool
		want          outputs
	}{
		{name: "single file", src: "theme.css", transliterate: true, want: outputs{dir: dst, base: "theme"}},
		{name: "nested", src: filepath.Join("sub dir", "Main Theme.css"), transliterate: true, want: outputs{dir: filepath.Join(dst, "sub-dir"), base: "main-theme"}},
		{name: "nested as is", src: filepath.Join("sub dir", "Main Theme.css"), want: outputs{dir: filepath.Join(dst, "sub dir"), base: "Main Theme"}},
		{name: "nothing", src: "", transliterate: true, want: outputs{dir: dst, base: "sheet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.Cfg.Output.Transliterate = tt.transliterate
			got := buildOutputs(tt.src, dst, env)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(outputs{})); diff != "" {
				t.Errorf("buildOutputs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOutputs_Names(t *testing.T) {
	o := outputs{base: "theme"}
	if got := o.page("-", 3); got != "theme-3.css" {
		t.Errorf("page() = %q", got)
	}
	if got := o.page("_part", 10); got != "theme_part10.css" {
		t.Errorf("page() = %q", got)
	}
	if got := o.index(); got != "theme.css" {
		t.Errorf("index() = %q", got)
	}
}

func TestSplitAndCleanPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{path: "a.css", want: []string{"a.css"}},
		{path: filepath.Join("x", "y", "a.css"), want: []string{"x", "y", "a.css"}},
		{path: "x/y/", want: []string{"x", "y"}},
		{path: ".", want: nil},
		{path: "", want: nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, splitAndCleanPath(tt.path)); diff != "" {
			t.Errorf("splitAndCleanPath(%q) mismatch (-want +got):\n%s", tt.path, diff)
		}
	}
}

func TestPrepareOutput(t *testing.T) {
	_, env := setupTestEnv(t)
	dir := t.TempDir()

	name := filepath.Join(dir, "new", "deep", "a.css")
	if err := prepareOutput(name, env); err != nil {
		t.Fatalf("prepareOutput() error = %v", err)
	}
	if fi, err := os.Stat(filepath.Dir(name)); err != nil || !fi.IsDir() {
		t.Fatalf("directory was not created: %v", err)
	}

	existing := writeFile(t, filepath.Join(dir, "b.css"), []byte("b{}"))
	if err := prepareOutput(existing, env); err == nil {
		t.Error("Expected error for existing file without overwrite")
	}
	env.Flags.Overwrite = true
	if err := prepareOutput(existing, env); err != nil {
		t.Errorf("prepareOutput() with overwrite error = %v", err)
	}
}
