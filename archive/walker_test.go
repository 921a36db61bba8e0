package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func makeZip(t *testing.T, files map[string]string, dirs ...string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "bundle.zip")
	zf, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zf.Close()

	w := zip.NewWriter(zf)
	for _, d := range dirs {
		if _, err := w.Create(d); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return zipPath
}

func TestWalk(t *testing.T) {
	zipPath := makeZip(t, map[string]string{
		"theme/10-dark.css": "a",
		"theme/2-base.CSS":  "b",
		"theme/readme.txt":  "c",
		"extra.css":         "d",
	}, "theme/")

	tests := []struct {
		name string
		dir  string
		ext  string
		want []string
	}{
		{"css under dir", "theme/", ".css", []string{"theme/2-base.CSS", "theme/10-dark.css"}},
		{"all css", "", ".css", []string{"extra.css", "theme/2-base.CSS", "theme/10-dark.css"}},
		{"any extension", "theme/", "", []string{"theme/2-base.CSS", "theme/10-dark.css", "theme/readme.txt"}},
		{"no match", "none/", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, tt.dir, tt.ext, func(f *zip.File) error {
				visited = append(visited, f.Name)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if !slices.Equal(visited, tt.want) {
				t.Errorf("visited = %v, want %v", visited, tt.want)
			}
		})
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	zipPath := makeZip(t, map[string]string{"a.css": "", "b.css": "", "c.css": ""})
	stop := errors.New("stop")
	count := 0
	err := Walk(zipPath, "", ".css", func(*zip.File) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || count != 2 {
		t.Errorf("Walk() error = %v after %d files", err, count)
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	if err := Walk(filepath.Join(t.TempDir(), "missing.zip"), "", "", nil); err == nil {
		t.Error("expected error for missing archive")
	}
	bad := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(bad, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Walk(bad, "", "", nil); err == nil {
		t.Error("expected error for invalid archive")
	}
}

func TestWalk_UnsafePath(t *testing.T) {
	zipPath := makeZip(t, map[string]string{"../evil.css": "x"})
	if err := Walk(zipPath, "", ".css", func(*zip.File) error { return nil }); err == nil {
		t.Error("expected error for path traversal entry")
	}
}

func TestStylesheets(t *testing.T) {
	zipPath := makeZip(t, map[string]string{
		"b.css":   ".b { width: 1px }",
		"a.css":   ".a { width: 2px }",
		"img.png": "png",
	})
	files, err := Stylesheets(zipPath)
	if err != nil {
		t.Fatalf("Stylesheets() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Stylesheets() = %d files, want 2", len(files))
	}
	if files[0].Name != zipPath+"/a.css" || string(files[0].Data) != ".a { width: 2px }" {
		t.Errorf("first file = %s %q", files[0].Name, files[0].Data)
	}
	if files[1].Name != zipPath+"/b.css" {
		t.Errorf("second file = %s", files[1].Name)
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a/b.css", true},
		{"a..b.css", true},
		{"/abs.css", false},
		{`\win.css`, false},
		{"a/../b.css", false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
