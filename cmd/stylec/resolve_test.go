package main

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"uistyle/config"
	"uistyle/dom"
	"uistyle/state"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestStylesheetSources_SameBaseName(t *testing.T) {
	dir := t.TempDir()
	light := filepath.Join(dir, "light", "theme.css")
	dark := filepath.Join(dir, "dark", "theme.css")
	docPath := filepath.Join(dir, "page.html")
	writeFile(t, light, ".box { color: white }")
	writeFile(t, dark, ".box { color: black }")
	writeFile(t, docPath, `<html><head>
<link rel="stylesheet" href="light/theme.css">
<link rel="stylesheet" href="missing.css">
</head><body><div class="box"></div></body></html>`)

	doc, err := dom.NewBuilder(nil).ParseReader(mustOpen(t, docPath), "text/html", docPath)
	if err != nil {
		t.Fatal(err)
	}

	conf := config.ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	rpt, err := conf.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	env := &state.LocalEnv{Rpt: rpt, Log: zaptest.NewLogger(t)}

	sources, err := stylesheetSources(env, []string{light, dark}, docPath, doc)
	if err != nil {
		t.Fatalf("stylesheetSources() error = %v", err)
	}
	if len(sources) != 3 {
		t.Errorf("got %d sources, want 3", len(sources))
	}
	if err := rpt.Close(); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(conf.Destination)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(data)
	}

	want := map[string]string{
		"input/theme.css":   ".box { color: white }",
		"input/theme-2.css": ".box { color: black }",
	}
	for name, content := range want {
		if files[name] != content {
			t.Errorf("%s = %q, want %q", name, files[name], content)
		}
	}
	if _, ok := files["input/theme-3.css"]; ok {
		t.Error("linked stylesheet given on command line must be stored once")
	}
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}
