package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ParseError is returned when no well-formed document can be produced from
// the source at all. Malformed markup that can be repaired is not an error.
type ParseError struct {
	Source string
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	src := e.Source
	if src == "" {
		src = "document"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", src, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", src, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// syntheticRoot adopts top-level content when the source has more than one
// top-level element.
const syntheticRoot = "html"

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Builder parses HTML-like markup into Documents.
type Builder struct {
	log *zap.Logger
}

// NewBuilder creates a new document builder.
func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log.Named("dom-builder")}
}

// ParseReader decodes r according to contentType (and <meta> charset
// declarations) into UTF-8 before parsing.
func (b *Builder) ParseReader(r io.Reader, contentType string, source ...string) (*Document, error) {
	name := sourceName(source)
	ur, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, &ParseError{Source: name, Msg: "unable to detect document encoding", Err: err}
	}
	data, err := io.ReadAll(ur)
	if err != nil {
		return nil, &ParseError{Source: name, Msg: "unable to read document", Err: err}
	}
	return b.Parse(data, source...)
}

// Parse builds a document tree from UTF-8 markup. Unknown tags are kept as
// opaque elements. A stray closing tag is ignored, a closing tag matching an
// open ancestor closes everything above it, unclosed elements are closed at
// the end of input.
func (b *Builder) Parse(data []byte, source ...string) (*Document, error) {
	name := sourceName(source)
	if !utf8.Valid(data) {
		return nil, &ParseError{Source: name, Msg: "source is not valid UTF-8"}
	}

	b.log.Debug("Parsing document", zap.String("source", name), zap.Int("bytes", len(data)))

	doc := &Document{Name: name}
	container := doc.add(syntheticRoot, nil, NoNode)
	open := []NodeID{container}

	var (
		elements, stray, repaired int
		z                         = html.NewTokenizer(bytes.NewReader(data))
	)

loop:
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, &ParseError{Source: name, Msg: "tokenizer failure", Err: err}
			}
			break loop

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			attrs := make([]Attr, 0, len(tok.Attr))
			for _, a := range tok.Attr {
				attrs = append(attrs, Attr{Name: strings.ToLower(a.Key), Value: a.Val})
			}
			id := doc.add(tok.Data, attrs, open[len(open)-1])
			elements++
			if tt == html.StartTagToken && !voidElements[tok.Data] {
				open = append(open, id)
			}

		case html.EndTagToken:
			tag := z.Token().Data
			match := -1
			for i := len(open) - 1; i > 0; i-- {
				if doc.nodes[open[i]].Tag == tag {
					match = i
					break
				}
			}
			switch {
			case match < 0:
				stray++
				b.log.Debug("Ignoring stray closing tag", zap.String("tag", tag))
			case match < len(open)-1:
				repaired += len(open) - 1 - match
				b.log.Debug("Closing unclosed elements", zap.String("tag", tag), zap.Int("count", len(open)-1-match))
				open = open[:match]
			default:
				open = open[:match]
			}

		case html.TextToken:
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			cur := open[len(open)-1]
			if cur == container {
				b.log.Debug("Ignoring top-level text", zap.String("text", text))
				continue
			}
			n := &doc.nodes[cur]
			if n.Text != "" {
				n.Text += " "
			}
			n.Text += text
		}
	}

	if len(open) > 1 {
		repaired += len(open) - 1
	}
	if elements == 0 {
		return nil, &ParseError{Source: name, Msg: "no elements found"}
	}

	top := doc.nodes[container].Children
	if len(top) == 1 {
		doc.root = top[0]
		doc.nodes[doc.root].Parent = NoNode
		doc.nodes[container].Children = nil
		doc.nodes[container].removed = true
	} else {
		doc.root = container
	}

	if stray > 0 || repaired > 0 {
		b.log.Warn("Document markup repaired", zap.String("source", name), zap.Int("stray", stray), zap.Int("unclosed", repaired))
	}
	b.log.Debug("Parsed document", zap.String("source", name), zap.Int("elements", elements), zap.String("root", doc.nodes[doc.root].Tag))
	return doc, nil
}

func sourceName(source []string) string {
	if len(source) > 0 {
		return source[0]
	}
	return ""
}
