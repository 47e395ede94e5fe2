package script

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// parseMarkdown turns every heading of level two or deeper into a block
// title; the prose up to the next such heading is the block text. Prose
// before the first heading becomes an untitled block. A level one heading is
// the document title and is skipped.
func parseMarkdown(source []byte) *Script {
	doc := md.Parser().Parse(text.NewReader(source))

	s := &Script{}
	var (
		current *Entry
		paras   []string
	)
	flush := func() {
		if current == nil && len(paras) == 0 {
			return
		}
		e := Entry{Text: strings.Join(paras, "\n\n")}
		if current != nil {
			e.Title = current.Title
		}
		s.Entries = append(s.Entries, e)
		current, paras = nil, nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 {
				continue
			}
			flush()
			current = &Entry{Title: plainText(node, source)}
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.ThematicBreak:
			// not spoken
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				if t := plainText(item, source); t != "" {
					paras = append(paras, t)
				}
			}
		default:
			if t := plainText(node, source); t != "" {
				paras = append(paras, t)
			}
		}
	}
	flush()
	return s
}

// plainText collects the readable text below node. Soft line breaks become
// spaces and inline markup is dropped.
func plainText(node ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n != node && b.Len() > 0 {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
