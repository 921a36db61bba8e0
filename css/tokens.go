package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// token is a lexed CSS token with the line it starts on. Comments are
// dropped during tokenization.
type token struct {
	tt   css.TokenType
	data string
	line int
}

func (t token) is(tt css.TokenType, data string) bool {
	return t.tt == tt && t.data == data
}

func (t token) isDelim(d string) bool {
	return t.is(css.DelimToken, d)
}

func (t token) isSpace() bool {
	return t.tt == css.WhitespaceToken
}

// isCustomProperty reports "--name" tokens. Depending on context the lexer
// emits them either as custom property names or as plain identifiers.
func (t token) isCustomProperty() bool {
	return (t.tt == css.CustomPropertyNameToken || t.tt == css.IdentToken) && strings.HasPrefix(t.data, "--")
}

func tokenize(data []byte) ([]token, error) {
	lexer := css.NewLexer(parse.NewInput(bytes.NewReader(data)))

	var toks []token
	line := 1
	for {
		tt, text := lexer.Next()
		if tt == css.ErrorToken {
			if err := lexer.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return toks, nil
		}
		s := string(text)
		if tt != css.CommentToken {
			toks = append(toks, token{tt: tt, data: s, line: line})
		}
		line += strings.Count(s, "\n")
	}
}

// trimSpace strips leading and trailing whitespace tokens.
func trimSpace(toks []token) []token {
	for len(toks) > 0 && toks[0].isSpace() {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].isSpace() {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// splitTop splits tokens on top-level commas, ignoring commas nested in
// functions, parentheses and brackets.
func splitTop(toks []token) [][]token {
	var (
		parts [][]token
		depth int
		start int
	)
	for i, t := range toks {
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.CommaToken:
			if depth == 0 {
				parts = append(parts, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, toks[start:])
}

// joinTokens renders tokens back into source text.
func joinTokens(toks []token) string {
	var sb strings.Builder
	for _, t := range toks {
		if t.isSpace() {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteString(t.data)
	}
	return strings.TrimSpace(sb.String())
}
