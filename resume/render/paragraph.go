package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

var (
	ErrUnclosedTag   = errors.New("unclosed template tag")
	ErrUnopenedTag   = errors.New("unopened template tag")
	ErrNoRootElement = errors.New("part has no root element")
)

// TagError locates a delimiter problem in a paragraph.
type TagError struct {
	Err     error
	Context string
}

func (e *TagError) Error() string { return fmt.Sprintf("%v near %q", e.Err, e.Context) }
func (e *TagError) Unwrap() error { return e.Err }

// textSegment is one w:t element. start/end bound its raw content in the part.
type textSegment struct {
	tagStart int
	tagEnd   int
	start    int
	end      int
	text     string
	preserve bool
}

type paragraph struct {
	segments []*textSegment
}

// edit replaces src[start:end] with text.
type edit struct {
	start int
	end   int
	text  string
}

type partStats struct {
	replaced   int
	unresolved []string
}

// renderPart substitutes {{key}} tags paragraph by paragraph. Bytes outside the
// modified w:t elements are copied through unchanged.
func renderPart(src []byte, replacements map[string]string) ([]byte, partStats, error) {
	var stats partStats
	paragraphs, err := scanParagraphs(src)
	if err != nil {
		return nil, stats, err
	}

	var edits []edit
	for _, p := range paragraphs {
		pe, n, unresolved, err := substituteParagraph(src, p, replacements)
		if err != nil {
			return nil, stats, err
		}
		edits = append(edits, pe...)
		stats.replaced += n
		stats.unresolved = append(stats.unresolved, unresolved...)
	}
	if len(edits) == 0 {
		return src, stats, nil
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	out := append([]byte(nil), src...)
	for _, e := range edits {
		out = append(out[:e.start], append([]byte(e.text), out[e.end:]...)...)
	}
	if err := checkWellFormed(out); err != nil {
		return nil, stats, fmt.Errorf("rendered xml: %w", err)
	}
	return out, stats, nil
}

// scanParagraphs collects the text elements of every w:p. Nested paragraphs
// (text boxes) own their own segments.
func scanParagraphs(src []byte) ([]*paragraph, error) {
	dec := xml.NewDecoder(bytes.NewReader(src))
	var (
		open    []*paragraph
		done    []*paragraph
		current *textSegment
		sawRoot bool
	)
	for {
		before := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			switch {
			case isWML(t.Name, "p"):
				open = append(open, &paragraph{})
			case isWML(t.Name, "t") && len(open) > 0:
				after := int(dec.InputOffset())
				if bytes.HasSuffix(src[before:after], []byte("/>")) {
					continue
				}
				current = &textSegment{tagStart: before, tagEnd: after, start: after, preserve: hasSpaceAttr(t.Attr)}
			}
		case xml.CharData:
			if current != nil {
				current.text += string(t)
			}
		case xml.EndElement:
			switch {
			case isWML(t.Name, "t") && current != nil:
				current.end = before
				p := open[len(open)-1]
				p.segments = append(p.segments, current)
				current = nil
			case isWML(t.Name, "p") && len(open) > 0:
				done = append(done, open[len(open)-1])
				open = open[:len(open)-1]
			}
		}
	}
	if !sawRoot {
		return nil, ErrNoRootElement
	}
	return done, nil
}

type tagMatch struct {
	start int
	end   int
	key   string
}

// findTags locates every {{ key }} in the paragraph text.
func findTags(text string) ([]tagMatch, error) {
	var out []tagMatch
	i := 0
	for {
		open := strings.Index(text[i:], openDelim)
		closeIdx := strings.Index(text[i:], closeDelim)
		if closeIdx != -1 && (open == -1 || closeIdx < open) {
			return nil, &TagError{Err: ErrUnopenedTag, Context: snippet(text, i+closeIdx)}
		}
		if open == -1 {
			return out, nil
		}
		start := i + open
		inner := text[start+len(openDelim):]
		end := strings.Index(inner, closeDelim)
		if end == -1 {
			return nil, &TagError{Err: ErrUnclosedTag, Context: snippet(text, start)}
		}
		if nested := strings.Index(inner[:end], openDelim); nested != -1 {
			return nil, &TagError{Err: ErrUnclosedTag, Context: snippet(text, start)}
		}
		stop := start + len(openDelim) + end + len(closeDelim)
		out = append(out, tagMatch{start: start, end: stop, key: strings.TrimSpace(inner[:end])})
		i = stop
	}
}

// substituteParagraph merges the paragraph's text, replaces known tags and maps
// the result back onto the original w:t elements: a value lands in the element
// where its tag began, and tag remnants are cut from the elements that follow.
func substituteParagraph(src []byte, p *paragraph, replacements map[string]string) ([]edit, int, []string, error) {
	if len(p.segments) == 0 {
		return nil, 0, nil, nil
	}
	bounds := make([]int, len(p.segments)+1)
	var combined strings.Builder
	for i, s := range p.segments {
		bounds[i] = combined.Len()
		combined.WriteString(s.text)
	}
	bounds[len(p.segments)] = combined.Len()
	text := combined.String()

	tags, err := findTags(text)
	if err != nil {
		return nil, 0, nil, err
	}

	var applied []tagMatch
	var unresolved []string
	for _, tag := range tags {
		if _, ok := replacements[tag.key]; ok {
			applied = append(applied, tag)
		} else {
			unresolved = append(unresolved, tag.key)
		}
	}
	if len(applied) == 0 {
		return nil, 0, unresolved, nil
	}

	out := make([]strings.Builder, len(p.segments))
	copyRange := func(from, to int) {
		for k := range p.segments {
			lo, hi := max(from, bounds[k]), min(to, bounds[k+1])
			if lo < hi {
				out[k].WriteString(text[lo:hi])
			}
		}
	}
	owner := func(pos int) int {
		for k := range p.segments {
			if pos >= bounds[k] && pos < bounds[k+1] {
				return k
			}
		}
		return len(p.segments) - 1
	}

	cursor := 0
	for _, tag := range applied {
		copyRange(cursor, tag.start)
		out[owner(tag.start)].WriteString(replacements[tag.key])
		cursor = tag.end
	}
	copyRange(cursor, len(text))

	var edits []edit
	for k, s := range p.segments {
		updated := out[k].String()
		if updated == s.text {
			continue
		}
		name := qualifiedName(src[s.tagStart:s.tagEnd])
		edits = append(edits, edit{start: s.start, end: s.end, text: encodeText(updated, name)})
		if !s.preserve {
			at := s.tagEnd - 1
			edits = append(edits, edit{start: at, end: at, text: ` xml:space="preserve"`})
		}
	}
	return edits, len(applied), unresolved, nil
}

// encodeText escapes text for a w:t body and turns newlines into line breaks
// by closing and reopening the text element around a w:br.
func encodeText(text, tName string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	brName := "br"
	if i := strings.IndexByte(tName, ':'); i != -1 {
		brName = tName[:i+1] + "br"
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString("</" + tName + "><" + brName + "/><" + tName + ` xml:space="preserve">`)
		}
		_ = xml.EscapeText(&b, []byte(line))
	}
	return b.String()
}

// qualifiedName returns the element name as written in a raw start tag.
func qualifiedName(startTag []byte) string {
	s := strings.TrimPrefix(string(startTag), "<")
	if i := strings.IndexAny(s, " \t\r\n/>"); i != -1 {
		s = s[:i]
	}
	return s
}

func isWML(name xml.Name, local string) bool {
	if name.Local != local {
		return false
	}
	return name.Space == "" || name.Space == "w" || name.Space == wmlNamespace
}

// hasSpaceAttr reports any xml:space attribute; a second one would make the tag invalid.
func hasSpaceAttr(attrs []xml.Attr) bool {
	for _, a := range attrs {
		if a.Name.Local == "space" && (a.Name.Space == "xml" || a.Name.Space == "http://www.w3.org/XML/1998/namespace") {
			return true
		}
	}
	return false
}

func checkWellFormed(src []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(src))
	for {
		if _, err := dec.Token(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func snippet(text string, at int) string {
	start := max(at-20, 0)
	end := min(at+20, len(text))
	return text[start:end]
}
