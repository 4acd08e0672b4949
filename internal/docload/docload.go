package docload

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Document is the plain-text form of an input file, ready for chunking.
type Document struct {
	Name     string   // Base file name
	Text     string   // Extracted plain text
	Headings []string // Pre-detected headings in document order, when the format carries them
}

// Load reads a document file and extracts its plain text. Supported
// formats: .txt, .md/.markdown, .html/.htm. Anything else is treated
// as plain text if it decodes cleanly.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	doc := &Document{Name: filepath.Base(path)}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, headings, err := extractHTML(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		doc.Text = text
		doc.Headings = headings
	case ".md", ".markdown":
		doc.Text = string(data)
		doc.Headings = markdownHeadings(string(data))
	default:
		doc.Text = string(data)
	}

	return doc, nil
}

var mdHeading = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*\s*$`)

func markdownHeadings(text string) []string {
	var headings []string
	for _, line := range strings.Split(text, "\n") {
		if m := mdHeading.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			headings = append(headings, m[1])
		}
	}
	return headings
}

// extractHTML walks the parse tree collecting visible text, skipping
// script/style subtrees. Headings come from h1-h4 elements. Block
// elements are separated by blank lines so paragraph chunking still
// sees structure.
func extractHTML(content string) (string, []string, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", nil, err
	}

	var buf strings.Builder
	var headings []string

	blockTags := map[string]bool{
		"p": true, "div": true, "section": true, "article": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"li": true, "tr": true, "br": true,
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			case "h1", "h2", "h3", "h4":
				if text := nodeText(n); text != "" {
					headings = append(headings, text)
				}
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockTags[n.Data] {
			buf.WriteString("\n\n")
		}
	}

	walk(root)

	text := regexp.MustCompile(`\n{3,}`).ReplaceAllString(buf.String(), "\n\n")
	return strings.TrimSpace(text), headings, nil
}

func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}
