package services

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var errEmptyMarkup = errors.New("preview markup contains no HTML elements")

// dropped elements are removed together with everything inside them.
var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Noscript: true,
}

// unwrapped elements are removed but their children are kept.
var unwrappedElements = map[atom.Atom]bool{
	atom.Html: true,
	atom.Head: true,
	atom.Body: true,
	atom.Meta: true,
	atom.Link: true,
}

// sanitizePreview strips fences, document wrappers and active content from the
// preview markup. It fails when no element is left.
func sanitizePreview(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```html")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	z := html.NewTokenizer(strings.NewReader(raw))
	var b strings.Builder
	elements := 0
	skipDepth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return "", z.Err()
		}

		tok := z.Token()
		switch tt {
		case html.DoctypeToken, html.CommentToken:
			continue
		case html.StartTagToken, html.SelfClosingTagToken:
			if droppedElements[tok.DataAtom] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 || unwrappedElements[tok.DataAtom] {
				continue
			}
			tok.Attr = safeAttrs(tok.Attr)
			elements++
			b.WriteString(tok.String())
		case html.EndTagToken:
			if droppedElements[tok.DataAtom] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 || unwrappedElements[tok.DataAtom] {
				continue
			}
			b.WriteString(tok.String())
		default:
			if skipDepth > 0 {
				continue
			}
			b.WriteString(tok.String())
		}
	}

	if elements == 0 {
		return "", errEmptyMarkup
	}
	return strings.TrimSpace(b.String()), nil
}

func safeAttrs(attrs []html.Attribute) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if (key == "href" || key == "src") &&
			strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
			continue
		}
		out = append(out, a)
	}
	return out
}
