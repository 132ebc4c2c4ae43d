// Package fence splits assistant text into prose and fenced code segments.
//
// The scanner is a two-state machine (outside a fence / inside a fence) that
// walks the input left to right. It never fails: anything that does not form
// a well-formed opener is kept as prose.
package fence

import (
	"iter"
	"slices"
	"strings"
)

// Delimiter opens and closes a fenced block.
const Delimiter = "```"

// FallbackLanguage is substituted when a fence carries no language tag.
const FallbackLanguage = "plaintext"

// Kind tells prose and code segments apart.
type Kind int

const (
	Prose Kind = iota
	Code
)

func (k Kind) String() string {
	if k == Code {
		return "code"
	}
	return "prose"
}

// Segment is one contiguous unit of parsed content.
type Segment struct {
	Kind Kind
	// Text is the verbatim prose, or the code body without the header line
	// and closing delimiter.
	Text string
	// Language is set for code segments only.
	Language string
	// Raw is the exact sub-span of the input this segment was cut from.
	// Concatenating Raw over all segments reproduces the input.
	Raw string
	// Offset is the byte offset of Raw in the input.
	Offset int
	// Unterminated marks a code segment whose fence never closed; it runs to
	// the end of the input.
	Unterminated bool
}

// HasFence reports whether s contains any fence marker at all.
func HasFence(s string) bool {
	return strings.Contains(s, Delimiter)
}

// Parse returns a lazy sequence of the segments of s in document order.
// Every call to the returned sequence rescans s from the start.
func Parse(s string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		sc := &scanner{src: s}
		for {
			seg, ok := sc.next()
			if !ok || !yield(seg) {
				return
			}
		}
	}
}

// Split collects Parse(s) into a slice.
func Split(s string) []Segment {
	return slices.Collect(Parse(s))
}

// FirstCode returns the first code segment of s, if any.
func FirstCode(s string) (Segment, bool) {
	for seg := range Parse(s) {
		if seg.Kind == Code {
			return seg, true
		}
	}
	return Segment{}, false
}

type scanner struct {
	src     string
	pos     int
	pending *Segment
}

func (sc *scanner) next() (Segment, bool) {
	if sc.pending != nil {
		seg := *sc.pending
		sc.pending = nil
		return seg, true
	}
	if sc.pos >= len(sc.src) {
		return Segment{}, false
	}

	start := sc.pos
	open, bodyStart, lang, found := sc.findOpener(start)
	if !found {
		sc.pos = len(sc.src)
		return sc.prose(start, len(sc.src)), true
	}

	code := sc.code(open, bodyStart, lang)
	sc.pos = open + len(code.Raw)
	if open == start {
		return code, true
	}
	sc.pending = &code
	return sc.prose(start, open), true
}

// findOpener looks for the leftmost delimiter at or after from that is
// followed by an info string free of backticks and a newline.
func (sc *scanner) findOpener(from int) (open, bodyStart int, lang string, ok bool) {
	search := from
	for search < len(sc.src) {
		i := strings.Index(sc.src[search:], Delimiter)
		if i < 0 {
			return 0, 0, "", false
		}
		open = search + i
		header := open + len(Delimiter)
		nl := strings.IndexByte(sc.src[header:], '\n')
		if nl < 0 {
			return 0, 0, "", false
		}
		info := sc.src[header : header+nl]
		if strings.ContainsRune(info, '`') {
			search = open + 1
			continue
		}
		return open, header + nl + 1, language(info), true
	}
	return 0, 0, "", false
}

func (sc *scanner) code(open, bodyStart int, lang string) Segment {
	seg := Segment{Kind: Code, Language: lang, Offset: open}
	end := strings.Index(sc.src[bodyStart:], Delimiter)
	if end < 0 {
		seg.Unterminated = true
		seg.Text = trimBody(sc.src[bodyStart:])
		seg.Raw = sc.src[open:]
		return seg
	}
	seg.Text = trimBody(sc.src[bodyStart : bodyStart+end])
	seg.Raw = sc.src[open : bodyStart+end+len(Delimiter)]
	return seg
}

func (sc *scanner) prose(from, to int) Segment {
	text := sc.src[from:to]
	return Segment{Kind: Prose, Text: text, Raw: text, Offset: from}
}

func language(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return FallbackLanguage
	}
	return fields[0]
}

// trimBody drops leading blank lines and trailing whitespace, keeping the
// indentation of the first code line.
func trimBody(body string) string {
	for {
		nl := strings.IndexByte(body, '\n')
		if nl < 0 || strings.TrimSpace(body[:nl]) != "" {
			break
		}
		body = body[nl+1:]
	}
	return strings.TrimRight(body, " \t\r\n")
}
