package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"uistyle/archive"
	"uistyle/css"
	"uistyle/state"
)

func runCheck(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() == 0 {
		return errors.New("no stylesheets specified")
	}

	p := css.NewParser(env.Log)
	var (
		sheets []*css.Stylesheet
		errs   error
	)
	var files []archive.File
	for _, f := range cmd.Args().Slice() {
		read, err := readStylesheets(f)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		files = append(files, read...)
	}
	for _, file := range files {
		f := file.Name
		s, err := p.Parse(file.Data, f)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, w := range s.Warnings {
			env.Log.Warn("Unsupported CSS", zap.String("source", f), zap.String("details", w))
		}
		env.Log.Info("Stylesheet parsed",
			zap.String("source", f),
			zap.Int("rules", len(s.Rules)),
			zap.Int("variables", len(s.Variables)),
			zap.Int("keyframes", len(s.Keyframes)),
			zap.Int("media", len(s.Media)),
			zap.Int("dropped", s.Dropped))
		sheets = append(sheets, s)
	}
	if errs != nil {
		return errs
	}

	merged := css.Merge(sheets...)
	if cmd.Bool("dump") {
		if _, err := merged.WriteTo(os.Stdout); err != nil {
			return fmt.Errorf("unable to write stylesheet: %w", err)
		}
	}
	if selectors := cmd.StringSlice("selector"); len(selectors) > 0 {
		if err := writeRules(os.Stdout, merged, selectors, cmd.StringSlice("property")); err != nil {
			return fmt.Errorf("unable to write rules: %w", err)
		}
	}
	return nil
}

// writeRules outputs rules written with exactly the given selectors in
// cascade order. With properties listed only their winning declarations
// within each rule are shown.
func writeRules(w io.Writer, sheet *css.Stylesheet, selectors, props []string) error {
	for _, sel := range selectors {
		rules := sheet.RulesBySelector(sel)
		if len(rules) == 0 {
			if _, err := fmt.Fprintf(w, "/* no rules for %s */\n", sel); err != nil {
				return err
			}
			continue
		}
		for _, r := range rules {
			decls := r.Declarations
			if len(props) > 0 {
				decls = nil
				for _, name := range props {
					if d, ok := r.GetProperty(name); ok {
						decls = append(decls, d)
					}
				}
			}
			media := ""
			if r.Media != css.NoMedia {
				media = " /* @media " + sheet.Media[r.Media].Raw + " */"
			}
			if _, err := fmt.Fprintf(w, "%s {%s\n", r.Selector.Raw, media); err != nil {
				return err
			}
			for _, d := range decls {
				if _, err := fmt.Fprintf(w, "  %s;\n", d); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "}\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
