package css

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// MediaFeature is a single width condition, e.g. (max-width: 900px).
type MediaFeature struct {
	Name  string // "min-width" or "max-width"
	Value float64
}

// Matches reports whether the feature holds for viewport width. Bounds are
// inclusive.
func (f MediaFeature) Matches(width float64) bool {
	switch f.Name {
	case "min-width":
		return width >= f.Value
	case "max-width":
		return width <= f.Value
	}
	return false
}

func (f MediaFeature) String() string {
	return fmt.Sprintf("(%s: %spx)", f.Name, formatFloat(f.Value))
}

// MediaQuery is a parsed @media condition: a list of alternatives, each a
// conjunction of width features. Queries with unsupported conditions never
// match.
type MediaQuery struct {
	Raw          string
	Alternatives [][]MediaFeature
	Unsupported  bool
}

// Matches evaluates query against viewport width.
func (mq MediaQuery) Matches(width float64) bool {
	if mq.Unsupported {
		return false
	}
	for _, alt := range mq.Alternatives {
		ok := true
		for _, f := range alt {
			if !f.Matches(width) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// and combines two queries, as for @media nested in @media.
func (mq MediaQuery) and(other MediaQuery) MediaQuery {
	out := MediaQuery{
		Raw:         mq.Raw + " and " + other.Raw,
		Unsupported: mq.Unsupported || other.Unsupported,
	}
	for _, a := range mq.Alternatives {
		for _, b := range other.Alternatives {
			alt := append(append([]MediaFeature{}, a...), b...)
			out.Alternatives = append(out.Alternatives, alt)
		}
	}
	return out
}

// parseMediaQuery parses media prelude tokens: comma separated alternatives
// of an optional media type and "and" joined (min-width|max-width: N)
// features.
func parseMediaQuery(toks []token) (MediaQuery, error) {
	toks = trimSpace(toks)
	mq := MediaQuery{Raw: joinTokens(toks)}
	if len(toks) == 0 {
		// "@media {" applies unconditionally
		mq.Alternatives = [][]MediaFeature{{}}
		return mq, nil
	}

	for _, alt := range splitTop(toks) {
		var features []MediaFeature
		alt = trimSpace(alt)
		expectFeature := true
		for i := 0; i < len(alt); i++ {
			t := alt[i]
			switch {
			case t.isSpace():
			case t.tt == css.IdentToken:
				switch strings.ToLower(t.data) {
				case "and":
					expectFeature = true
				case "all", "screen", "only":
				default:
					mq.Unsupported = true
				}
			case t.tt == css.LeftParenthesisToken:
				if !expectFeature {
					return mq, fmt.Errorf("missing 'and' in media query %q", mq.Raw)
				}
				end := i + 1
				for end < len(alt) && alt[end].tt != css.RightParenthesisToken {
					end++
				}
				if end == len(alt) {
					return mq, fmt.Errorf("unterminated media feature in %q", mq.Raw)
				}
				f, ok, err := parseMediaFeature(alt[i+1 : end])
				if err != nil {
					return mq, err
				}
				if ok {
					features = append(features, f)
				} else {
					mq.Unsupported = true
				}
				i = end
				expectFeature = false
			default:
				return mq, fmt.Errorf("unexpected %q in media query %q", t.data, mq.Raw)
			}
		}
		mq.Alternatives = append(mq.Alternatives, features)
	}
	return mq, nil
}

// parseMediaFeature returns false for well-formed features other than
// min-width and max-width.
func parseMediaFeature(toks []token) (MediaFeature, bool, error) {
	toks = trimSpace(toks)
	if len(toks) == 0 || toks[0].tt != css.IdentToken {
		return MediaFeature{}, false, fmt.Errorf("bad media feature %q", joinTokens(toks))
	}
	name := strings.ToLower(toks[0].data)
	rest := trimSpace(toks[1:])
	if len(rest) == 0 || rest[0].tt != css.ColonToken {
		return MediaFeature{}, false, nil
	}
	if name != "min-width" && name != "max-width" {
		return MediaFeature{}, false, nil
	}
	val, err := parseValue(rest[1:])
	if err != nil {
		return MediaFeature{}, false, fmt.Errorf("bad value of %s: %w", name, err)
	}
	switch v := val.(type) {
	case Number:
		return MediaFeature{Name: name, Value: v.Value}, true, nil
	case Dimension:
		if v.Unit == UnitPx {
			return MediaFeature{Name: name, Value: v.Value}, true, nil
		}
	}
	return MediaFeature{}, false, nil
}
