package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	input := filepath.Join(dir, "page.html")
	if err := os.WriteFile(input, []byte("<div></div>"), 0644); err != nil {
		t.Fatal(err)
	}
	r.Store("page.html", input)
	r.Store("missing.css", filepath.Join(dir, "missing.css"))
	r.StoreData("computed.txt", []byte("first"))
	r.StoreData("computed.txt", []byte("second"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.Name() != conf.Destination {
		t.Errorf("Name() = %q, want %q", r.Name(), conf.Destination)
	}

	files := readArchive(t, conf.Destination)
	if files["page.html"] != "<div></div>" {
		t.Errorf("page.html = %q", files["page.html"])
	}
	if _, ok := files["missing.css"]; ok {
		t.Error("absent files must be skipped")
	}
	if files["computed.txt"] != "first" {
		t.Errorf("computed.txt = %q", files["computed.txt"])
	}
	var versioned int
	for name, content := range files {
		if strings.HasPrefix(name, "computed.txt-") && content == "second" {
			versioned++
		}
	}
	if versioned != 1 {
		t.Errorf("expected versioned copy of repeated data, got files %v", files)
	}
	if !strings.Contains(files["MANIFEST"], "page.html") {
		t.Errorf("MANIFEST = %q", files["MANIFEST"])
	}
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("c", nil)
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Error("Name of nil report should be empty")
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}

func TestCleanFileName(t *testing.T) {
	if got := CleanFileName(""); got != "_bad_file_name_" {
		t.Errorf("CleanFileName(\"\") = %q", got)
	}
	if got := CleanFileName("a" + string(os.PathSeparator) + "b.css"); got != "ab.css" {
		t.Errorf("CleanFileName() = %q", got)
	}
}

func TestReport_FreeName(t *testing.T) {
	var none *Report
	if got := none.FreeName("input/a.css", "a.css"); got != "input/a.css" {
		t.Errorf("nil FreeName() = %q", got)
	}

	r := &Report{entries: make(map[string]entry)}
	r.Store("input/a.css", "x/a.css")
	r.StoreData("computed.txt", []byte("data"))

	tests := []struct {
		name, path, want string
	}{
		{"input/b.css", "x/b.css", "input/b.css"},
		{"input/a.css", "x/a.css", "input/a.css"},
		{"input/a.css", "y/a.css", "input/a-2.css"},
		{"computed.txt", "z/computed.txt", "computed-2.txt"},
	}
	for _, tt := range tests {
		if got := r.FreeName(tt.name, tt.path); got != tt.want {
			t.Errorf("FreeName(%q, %q) = %q, want %q", tt.name, tt.path, got, tt.want)
		}
	}

	r.Store(r.FreeName("input/a.css", "y/a.css"), "y/a.css")
	if got := r.FreeName("input/a.css", "z/a.css"); got != "input/a-3.css" {
		t.Errorf("FreeName() after two stores = %q", got)
	}
}
