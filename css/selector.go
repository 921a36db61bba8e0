package css

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// ParseSelector parses a single complex selector, e.g. "ul > li.item:hover".
// Supported are type, class, id, universal selectors, the :root pseudo-class,
// pseudo-states and descendant/child combinators. Everything else is an error.
func ParseSelector(raw string) (Selector, error) {
	toks, err := tokenize([]byte(raw))
	if err != nil {
		return Selector{}, err
	}
	return parseSelectorTokens(toks)
}

func parseSelectorTokens(toks []token) (Selector, error) {
	toks = trimSpace(toks)
	sel := Selector{Raw: joinTokens(toks)}
	if len(toks) == 0 {
		return sel, fmt.Errorf("empty selector")
	}

	var (
		cur        Compound
		empty      = true
		pending    = false
		combinator = Descendant
	)
	flush := func() error {
		if empty {
			return fmt.Errorf("missing compound selector in %q", sel.Raw)
		}
		if len(sel.Parts) > 0 {
			sel.Combinators = append(sel.Combinators, combinator)
		}
		sel.Parts = append(sel.Parts, cur)
		cur, empty, pending, combinator = Compound{}, true, false, Descendant
		return nil
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if pending && !t.isSpace() && !t.isDelim(">") {
			if err := flush(); err != nil {
				return sel, err
			}
		}
		switch {
		case t.isSpace():
			if !empty {
				pending = true
			}
		case t.isDelim(">"):
			if empty && len(sel.Parts) == 0 {
				return sel, fmt.Errorf("leading combinator in %q", sel.Raw)
			}
			if empty && combinator == Child {
				return sel, fmt.Errorf("repeated combinator in %q", sel.Raw)
			}
			if !empty {
				if err := flush(); err != nil {
					return sel, err
				}
			}
			combinator = Child
		case t.isDelim("*"):
			if !empty {
				return sel, fmt.Errorf("misplaced universal selector in %q", sel.Raw)
			}
			empty = false
		case t.tt == css.IdentToken:
			if !empty {
				return sel, fmt.Errorf("misplaced type selector %q", t.data)
			}
			cur.Tag = strings.ToLower(t.data)
			sel.Specificity[2]++
			empty = false
		case t.tt == css.HashToken:
			if cur.ID != "" {
				return sel, fmt.Errorf("multiple ids in %q", sel.Raw)
			}
			cur.ID = strings.TrimPrefix(t.data, "#")
			sel.Specificity[0]++
			empty = false
		case t.isDelim("."):
			if i+1 >= len(toks) || toks[i+1].tt != css.IdentToken {
				return sel, fmt.Errorf("bad class selector in %q", sel.Raw)
			}
			i++
			cur.Classes = append(cur.Classes, toks[i].data)
			sel.Specificity[1]++
			empty = false
		case t.tt == css.ColonToken:
			if i+1 >= len(toks) || toks[i+1].tt != css.IdentToken {
				return sel, fmt.Errorf("unsupported pseudo selector in %q", sel.Raw)
			}
			i++
			name := strings.ToLower(toks[i].data)
			if name == "root" {
				cur.Root = true
			} else {
				st, ok := ParseState(name)
				if !ok {
					return sel, fmt.Errorf("unsupported pseudo-class :%s", name)
				}
				cur.States |= st
			}
			sel.Specificity[1]++
			empty = false
		case t.isDelim("+"), t.isDelim("~"):
			return sel, fmt.Errorf("unsupported combinator %q", t.data)
		case t.tt == css.LeftBracketToken:
			return sel, fmt.Errorf("unsupported attribute selector in %q", sel.Raw)
		default:
			return sel, fmt.Errorf("unexpected %q in selector %q", t.data, sel.Raw)
		}
	}
	if err := flush(); err != nil {
		return sel, err
	}
	return sel, nil
}

// nestSelectors splices parent selectors into a nested selector list. Every
// "&" is replaced with the parent, a selector without "&" becomes a
// descendant of the parent.
func nestSelectors(parents []string, nested string) []string {
	var out []string
	for _, child := range strings.Split(nested, ",") {
		child = strings.TrimSpace(child)
		for _, parent := range parents {
			if strings.Contains(child, "&") {
				out = append(out, strings.ReplaceAll(child, "&", parent))
			} else {
				out = append(out, parent+" "+child)
			}
		}
	}
	return out
}
