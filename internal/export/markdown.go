package export

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

var markdownEngine = goldmark.New()

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading1
	blockHeading2
	blockHeading3
	blockBullet
)

type run struct {
	Text string
	Bold bool
}

type block struct {
	Kind blockKind
	Runs []run
}

func (b block) plain() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// parseMarkdown flattens the analyst's markdown into one block per line:
// headings past level 3 are folded into level 3, nested lists become plain
// bullets, and only **strong** emphasis survives as bold. HTML is reduced
// to its text, with <br> starting a new line.
func parseMarkdown(text string) []block {
	source := []byte(strings.ReplaceAll(text, "\r\n", "\n"))
	doc := markdownEngine.Parser().Parse(gmtext.NewReader(source))

	c := &collector{source: source}
	c.blocks(doc, blockParagraph)

	// trailing blank lines carry nothing
	for len(c.out) > 0 && len(c.out[len(c.out)-1].Runs) == 0 {
		c.out = c.out[:len(c.out)-1]
	}
	return c.out
}

type collector struct {
	source []byte
	out    []block
}

func (c *collector) blocks(parent ast.Node, kind blockKind) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			c.open(headingKind(node.Level))
			c.inline(node, false)
		case *ast.ListItem:
			c.blocks(node, blockBullet)
		case *ast.Paragraph, *ast.TextBlock:
			c.open(kind)
			c.inline(node, false)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			c.lines(string(node.Lines().Value(c.source)), kind)
		case *ast.HTMLBlock:
			raw := node.Lines().Value(c.source)
			if node.HasClosure() {
				raw = append(raw, node.ClosureLine.Value(c.source)...)
			}
			c.lines(htmlText(raw), kind)
		case *ast.ThematicBreak:
		default:
			c.blocks(node, kind)
		}
	}
}

func (c *collector) inline(parent ast.Node, bold bool) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			c.add(string(node.Segment.Value(c.source)), bold)
			if node.SoftLineBreak() || node.HardLineBreak() {
				c.open(blockParagraph)
			}
		case *ast.String:
			c.add(string(node.Value), bold)
		case *ast.Emphasis:
			c.inline(node, bold || node.Level >= 2)
		case *ast.AutoLink:
			c.add(string(node.URL(c.source)), bold)
		case *ast.RawHTML:
			for i, part := range strings.Split(htmlText(node.Segments.Value(c.source)), "\n") {
				if i > 0 {
					c.open(blockParagraph)
				}
				c.add(part, bold)
			}
		default:
			c.inline(node, bold)
		}
	}
}

func (c *collector) lines(text string, kind blockKind) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		c.open(kind)
		c.add(strings.TrimSpace(line), false)
	}
}

func (c *collector) open(kind blockKind) {
	c.out = append(c.out, block{Kind: kind})
}

func (c *collector) add(text string, bold bool) {
	if text == "" || len(c.out) == 0 {
		return
	}
	b := &c.out[len(c.out)-1]
	if last := len(b.Runs) - 1; last >= 0 && b.Runs[last].Bold == bold {
		b.Runs[last].Text += text
		return
	}
	b.Runs = append(b.Runs, run{Text: text, Bold: bold})
}

func headingKind(level int) blockKind {
	switch level {
	case 1:
		return blockHeading1
	case 2:
		return blockHeading2
	default:
		return blockHeading3
	}
}

// htmlText keeps the character data of raw HTML and turns <br> into "\n".
func htmlText(raw []byte) string {
	var sb strings.Builder
	z := html.NewTokenizer(bytes.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				sb.Write(z.Raw())
			}
			return sb.String()
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				sb.WriteByte('\n')
			}
		}
	}
}
