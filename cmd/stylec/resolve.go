package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"uistyle/archive"
	"uistyle/config"
	"uistyle/dom"
	"uistyle/engine"
	"uistyle/state"
)

func runResolve(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() == 0 {
		return errors.New("no document specified")
	}
	docPath := cmd.Args().First()

	opts := env.EngineOptions()
	if vp := cmd.String("viewport"); vp != "" {
		size, err := parseViewport(vp)
		if err != nil {
			return err
		}
		opts.Viewport = size
	}
	start := time.Now()
	opts.Clock = func() time.Time { return start }

	data, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("unable to read document: %w", err)
	}
	storeInput(env.Rpt, docPath)

	doc, err := dom.NewBuilder(env.Log).Parse(data, docPath)
	if err != nil {
		return fmt.Errorf("unable to load document: %w", err)
	}
	sources, err := stylesheetSources(env, cmd.Args().Tail(), docPath, doc)
	if err != nil {
		return err
	}

	// stylesheets go first, so document load establishes values animations
	// and transitions start from
	eng := engine.New(env.Log, opts)
	if err := eng.LoadStylesheets(sources...); err != nil {
		return fmt.Errorf("unable to load stylesheets: %w", err)
	}
	if err := eng.LoadDocument(data, docPath); err != nil {
		return fmt.Errorf("unable to load document: %w", err)
	}

	for _, arg := range cmd.StringSlice("var") {
		name, value, err := parseVariable(arg)
		if err != nil {
			return err
		}
		if err := eng.SetVariable(name, value); err != nil {
			return err
		}
	}

	if args := cmd.StringSlice("state"); len(args) > 0 {
		snapshot, err := parseStates(eng.Document(), args)
		if err != nil {
			return err
		}
		if err := eng.SetStates(snapshot); err != nil {
			return err
		}
	}
	if at := cmd.Duration("at"); at > 0 {
		dirty := eng.Tick(start.Add(at))
		env.Log.Debug("Animations advanced", zap.Duration("at", at), zap.Int("nodes", len(dirty)))
	}

	d := eng.Diagnostics()
	env.Log.Info("Styles resolved",
		zap.Int("nodes", eng.Document().Len()),
		zap.Int("rules", len(eng.Stylesheet().Rules)),
		zap.Int64("unresolved", d.Unresolved),
		zap.Int64("cyclic", d.Cyclic),
		zap.Int64("invalid", d.Invalid))

	dump := eng.Dump(cmd.StringSlice("property")...)
	env.Rpt.StoreData("computed.txt", []byte(dump))

	out := os.Stdout
	if fname := cmd.String("output"); fname != "" {
		if out, err = os.Create(fname); err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}
	if _, err := out.WriteString(dump); err != nil {
		return fmt.Errorf("unable to write result: %w", err)
	}
	return nil
}

// storeInput puts an input file into the report. Inputs from different
// directories may share base name, those get numbered.
func storeInput(rpt *config.Report, path string) {
	rpt.Store(rpt.FreeName("input/"+config.CleanFileName(filepath.Base(path)), path), path)
}

// readStylesheets reads a CSS file or every CSS file of a zip bundle.
func readStylesheets(path string) ([]archive.File, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		files, err := archive.Stylesheets(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read stylesheet bundle: %w", err)
		}
		return files, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read stylesheet: %w", err)
	}
	return []archive.File{{Name: path, Data: data}}, nil
}

// stylesheetSources reads stylesheets listed on command line followed by the
// ones linked from the document. Unreadable links are skipped.
func stylesheetSources(env *state.LocalEnv, files []string, docPath string, doc *dom.Document) ([]engine.Source, error) {
	var sources []engine.Source
	for _, f := range files {
		read, err := readStylesheets(f)
		if err != nil {
			return nil, err
		}
		storeInput(env.Rpt, f)
		for _, file := range read {
			sources = append(sources, engine.Source{Name: file.Name, Data: file.Data})
		}
	}

	base := filepath.Dir(docPath)
	for _, src := range doc.StyleSources() {
		if src.Href == "" {
			continue
		}
		path := src.Href
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, filepath.FromSlash(path))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			env.Log.Warn("Linked stylesheet skipped", zap.String("href", src.Href), zap.Error(err))
			continue
		}
		storeInput(env.Rpt, path)
		sources = append(sources, engine.Source{Name: src.Href, Data: data})
	}
	return sources, nil
}
