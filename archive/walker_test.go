package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/encoding/charmap"
)

type entry struct {
	name    string
	content string
	nonUTF8 bool
}

func createZip(t *testing.T, entries ...entry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, NonUTF8: e.nonUTF8})
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip writer: %v", err)
	}
	return zipPath
}

func collect(t *testing.T, zipPath, prefix string) []string {
	t.Helper()
	var visited []string
	err := Walk(zipPath, prefix, nil, func(archive, name string, _ *zip.File) error {
		if archive != zipPath {
			t.Errorf("archive = %s, want %s", archive, zipPath)
		}
		visited = append(visited, name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	return visited
}

func TestWalk(t *testing.T) {
	zipPath := createZip(t,
		entry{name: "css/theme10.css", content: "b{}"},
		entry{name: "css/theme2.css", content: "a{}"},
		entry{name: "css/", content: ""},
		entry{name: "fonts/font.woff", content: "font"},
		entry{name: "readme.txt", content: "readme"},
	)

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{name: "natural order", prefix: "css/", want: []string{"css/theme2.css", "css/theme10.css"}},
		{name: "everything", prefix: "", want: []string{"css/theme2.css", "css/theme10.css", "fonts/font.woff", "readme.txt"}},
		{name: "no match", prefix: "img/", want: nil},
		{name: "case sensitive", prefix: "CSS/", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, collect(t, zipPath, tt.prefix)); diff != "" {
				t.Errorf("visited mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWalk_FileContent(t *testing.T) {
	zipPath := createZip(t, entry{name: "style.css", content: "p { margin: 0 }"})

	var got string
	err := Walk(zipPath, "", nil, func(_, _ string, f *zip.File) error {
		r, err := f.Open()
		if err != nil {
			return err
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		got = string(data)
		return err
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if got != "p { margin: 0 }" {
		t.Errorf("content = %q", got)
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	zipPath := createZip(t,
		entry{name: "a.css"},
		entry{name: "b.css"},
		entry{name: "c.css"},
	)

	stop := errors.New("stop")
	count := 0
	err := Walk(zipPath, "", nil, func(_, _ string, _ *zip.File) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want %v", err, stop)
	}
	if count != 2 {
		t.Errorf("visited %d files, want 2", count)
	}
}

func TestWalk_CodePage(t *testing.T) {
	// "стиль.css" in cp866
	raw, err := charmap.CodePage866.NewEncoder().String("стиль.css")
	if err != nil {
		t.Fatalf("unable to encode name: %v", err)
	}
	zipPath := createZip(t, entry{name: raw, content: "a{}", nonUTF8: true})

	var names []string
	err = Walk(zipPath, "", charmap.CodePage866, func(_, name string, _ *zip.File) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if diff := cmp.Diff([]string{"стиль.css"}, names); diff != "" {
		t.Errorf("decoded names mismatch (-want +got):\n%s", diff)
	}

	// without code page names are passed as is
	if diff := cmp.Diff([]string{raw}, collect(t, zipPath, "")); diff != "" {
		t.Errorf("raw names mismatch (-want +got):\n%s", diff)
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	t.Run("nonexistent file", func(t *testing.T) {
		err := Walk(filepath.Join(t.TempDir(), "missing.zip"), "", nil, func(_, _ string, _ *zip.File) error { return nil })
		if err == nil {
			t.Error("Walk() expected error for nonexistent file")
		}
	})

	t.Run("invalid zip file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.zip")
		if err := os.WriteFile(path, []byte("not a zip file"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
		err := Walk(path, "", nil, func(_, _ string, _ *zip.File) error { return nil })
		if err == nil {
			t.Error("Walk() expected error for invalid zip")
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		zipPath := createZip(t, entry{name: "../evil.css", content: "a{}"})
		err := Walk(zipPath, "", nil, func(_, _ string, _ *zip.File) error { return nil })
		if err == nil {
			t.Error("Walk() expected error for unsafe entry")
		}
	})
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"style.css", true},
		{"css/style.css", true},
		{"css/..style.css", true},
		{"/etc/passwd", false},
		{`\windows\evil.css`, false},
		{"../evil.css", false},
		{"css/../../evil.css", false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
