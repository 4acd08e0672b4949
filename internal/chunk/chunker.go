package chunk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mpetrov/reglens/internal/model"
)

// Chunker splits document text into ordered, labeled chunks.
//
// Strategies:
//   - smart: detects document structure, falls back to paragraphs
//   - paragraph: groups content by blank-line paragraphs
//   - sentence: groups content by sentences
//   - simple: fixed-size windows with configurable overlap
type Chunker struct {
	size      int
	overlap   int
	method    string
	maxChunks int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMethod selects the chunking strategy.
func WithMethod(method string) Option {
	return func(c *Chunker) { c.method = method }
}

// WithMaxChunks caps the number of chunks produced.
func WithMaxChunks(n int) Option {
	return func(c *Chunker) { c.maxChunks = n }
}

// New creates a Chunker with the given target size and overlap.
func New(size, overlap int, opts ...Option) *Chunker {
	if size <= 0 {
		size = 1500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	c := &Chunker{
		size:    size,
		overlap: overlap,
		method:  "smart",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits the document text into ordered chunks. An empty or
// whitespace-only document yields an empty slice, not an error.
// Sequence indices are strictly increasing and every chunk carries a
// section label - the nearest preceding heading, or a generated
// ordinal when the document has no detectable structure.
func (c *Chunker) Chunk(text string) []model.DocumentChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []model.DocumentChunk
	switch c.method {
	case "paragraph":
		chunks = c.paragraphChunks(text)
	case "sentence":
		chunks = c.sentenceChunks(text)
	case "simple":
		chunks = c.windowChunks(text)
	default:
		chunks = c.smartChunks(text)
	}

	if c.maxChunks > 0 && len(chunks) > c.maxChunks {
		chunks = chunks[:c.maxChunks]
	}
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

// smartChunks tries structure-aware splitting first and falls back to
// paragraph mode when the detected sections don't look reasonable.
func (c *Chunker) smartChunks(text string) []model.DocumentChunk {
	sections := detectSections(text)
	if len(sections) > 1 && sectionsLookReasonable(sections) {
		return c.sectionChunks(sections)
	}
	return c.paragraphChunks(text)
}

type section struct {
	title string
	text  string
}

// Heading cues, tried per line: numbered headings, short ALL-CAPS
// lines, named structural units, markdown headings.
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`),
	regexp.MustCompile(`^[A-Z][A-Z0-9 ,&/-]{3,60}$`),
	regexp.MustCompile(`^(?i:(section|article|part|chapter|appendix|schedule))\s+\S+`),
	regexp.MustCompile(`^#{1,6}\s+\S`),
}

// IsHeading reports whether a line looks like a section heading.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 120 {
		return false
	}
	// Headings don't end mid-sentence
	if strings.HasSuffix(line, ",") || strings.HasSuffix(line, ";") {
		return false
	}
	for _, p := range headingPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func detectSections(text string) []section {
	var sections []section
	current := section{title: "Introduction"}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			current.text += "\n"
			continue
		}
		if IsHeading(trimmed) && strings.TrimSpace(current.text) != "" {
			sections = append(sections, current)
			current = section{title: cleanHeading(trimmed)}
			continue
		}
		if IsHeading(trimmed) && strings.TrimSpace(current.text) == "" && len(sections) == 0 {
			// Heading before any body text names the first section
			current.title = cleanHeading(trimmed)
			continue
		}
		current.text += line + "\n"
	}

	if strings.TrimSpace(current.text) != "" {
		sections = append(sections, current)
	}
	return sections
}

func cleanHeading(line string) string {
	line = strings.TrimLeft(line, "# ")
	return strings.TrimSpace(line)
}

func sectionsLookReasonable(sections []section) bool {
	if len(sections) > 60 {
		return false
	}

	total := 0
	small := 0
	for _, s := range sections {
		n := len(strings.TrimSpace(s.text))
		total += n
		if n < 150 {
			small++
		}
	}

	avg := total / len(sections)
	if avg < 120 {
		return false
	}
	// Mostly-tiny sections mean we misread formatting as structure
	return small <= len(sections)*6/10
}

// sectionChunks creates chunks that respect section boundaries. Small
// sections stay whole; oversized ones are split at sentence boundaries
// with part-numbered labels.
func (c *Chunker) sectionChunks(sections []section) []model.DocumentChunk {
	var chunks []model.DocumentChunk
	for _, s := range sections {
		text := strings.TrimSpace(s.text)
		if text == "" {
			continue
		}
		if len(text) <= c.size {
			chunks = append(chunks, model.DocumentChunk{Section: s.title, Text: text})
			continue
		}
		parts := c.splitLong(text)
		for i, part := range parts {
			label := s.title
			if len(parts) > 1 {
				label = fmt.Sprintf("%s (part %d)", s.title, i+1)
			}
			chunks = append(chunks, model.DocumentChunk{Section: label, Text: part})
		}
	}
	return chunks
}

// paragraphChunks groups blank-line paragraphs up to the target size
// with generated ordinal labels.
func (c *Chunker) paragraphChunks(text string) []model.DocumentChunk {
	paragraphs := splitParagraphs(text)

	var chunks []model.DocumentChunk
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, model.DocumentChunk{
			Section: fmt.Sprintf("Section #%d", len(chunks)+1),
			Text:    strings.TrimSpace(current.String()),
		})
		current.Reset()
	}

	for _, p := range paragraphs {
		if len(p) > c.size {
			flush()
			for _, part := range c.splitLong(p) {
				chunks = append(chunks, model.DocumentChunk{
					Section: fmt.Sprintf("Section #%d", len(chunks)+1),
					Text:    part,
				})
			}
			continue
		}
		if current.Len() > 0 && current.Len()+len(p)+2 > c.size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	return chunks
}

// sentenceChunks groups sentences up to the target size.
func (c *Chunker) sentenceChunks(text string) []model.DocumentChunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return c.windowChunks(text)
	}

	var chunks []model.DocumentChunk
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, model.DocumentChunk{
			Section: fmt.Sprintf("Section #%d", len(chunks)+1),
			Text:    strings.TrimSpace(current.String()),
		})
		current.Reset()
	}

	for _, s := range sentences {
		if current.Len() > 0 && current.Len()+len(s)+1 > c.size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(s)
	}
	flush()
	return chunks
}

// windowChunks is the degenerate-structure fallback: fixed-size
// windows with the configured overlap, cut at word boundaries where
// possible.
func (c *Chunker) windowChunks(text string) []model.DocumentChunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []model.DocumentChunk
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else if idx := strings.LastIndexByte(text[start:end], ' '); idx > c.size/2 {
			// Pull the cut back to the last space inside the window
			end = start + idx
		}

		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, model.DocumentChunk{
				Section: fmt.Sprintf("Section #%d", len(chunks)+1),
				Text:    piece,
			})
		}

		if end == len(text) {
			break
		}
		// Next window starts overlap characters before the cut;
		// guard against zero progress on pathological inputs
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// splitLong recursively splits an oversized structural unit, preferring
// sentence boundaries and falling back to fixed windows for a single
// sentence that alone exceeds the limit.
func (c *Chunker) splitLong(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) <= 1 {
		var parts []string
		for _, ch := range c.windowChunks(text) {
			parts = append(parts, ch.Text)
		}
		return parts
	}

	var parts []string
	var current strings.Builder
	for _, s := range sentences {
		if len(s) > c.size {
			if current.Len() > 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			}
			parts = append(parts, c.splitLong(s)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(s)+1 > c.size {
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range regexp.MustCompile(`\n\s*\n`).Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitSentences splits text into sentences using terminator
// heuristics. Short fragments are merged forward rather than dropped
// so no content is lost.
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Avoid splitting on abbreviations and decimals
			if i+1 < len(runes) && runes[i+1] != ' ' && runes[i+1] != '\t' {
				continue
			}
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
