// Package archive reads stylesheet bundles: zip archives with CSS files.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// WalkFunc is called for each file in archive visited by Walk. If an error is
// returned, processing stops.
type WalkFunc func(file *zip.File) error

// Walk visits files under dir prefix with given extension (case-insensitive)
// in natural order of their names. Entries with absolute paths or ".."
// components make the whole archive invalid.
func Walk(archive, dir, ext string, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, dir) {
			continue
		}
		if ext != "" && !strings.EqualFold(path.Ext(name), ext) {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return natural.Less(files[i].Name, files[j].Name) })

	for _, f := range files {
		if err := walkFn(f); err != nil {
			return err
		}
	}
	return nil
}

// File is a named archive entry content.
type File struct {
	Name string
	Data []byte
}

// Stylesheets reads all .css files of a bundle in cascade order: natural
// order of names, so "10-theme.css" goes after "2-base.css".
func Stylesheets(archive string) ([]File, error) {
	var out []File
	err := Walk(archive, "", ".css", func(f *zip.File) error {
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", f.Name, err)
		}
		out = append(out, File{Name: archive + "/" + f.Name, Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
