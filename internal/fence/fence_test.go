package fence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func rejoin(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Raw)
	}
	return b.String()
}

func TestSplit_SingleFence(t *testing.T) {
	segs := Split("```js\nconsole.log(1)\n```")
	require.Len(t, segs, 1)
	require.Equal(t, Code, segs[0].Kind)
	require.Equal(t, "js", segs[0].Language)
	require.Equal(t, "console.log(1)", segs[0].Text)
	require.False(t, segs[0].Unterminated)
}

func TestSplit_SingleFenceWithProse(t *testing.T) {
	in := "Here you go:\n```js\nconsole.log(1)\n```\nEnjoy."
	segs := Split(in)
	require.Len(t, segs, 3)
	require.Equal(t, Prose, segs[0].Kind)
	require.Equal(t, "Here you go:\n", segs[0].Text)
	require.Equal(t, Code, segs[1].Kind)
	require.Equal(t, "console.log(1)", segs[1].Text)
	require.Equal(t, len("Here you go:\n"), segs[1].Offset)
	require.Equal(t, Prose, segs[2].Kind)
	require.Equal(t, "\nEnjoy.", segs[2].Text)
	require.Equal(t, in, rejoin(segs))
}

func TestSplit_NoFence(t *testing.T) {
	segs := Split("just words\nand more")
	require.Len(t, segs, 1)
	require.Equal(t, Prose, segs[0].Kind)
	require.Equal(t, "just words\nand more", segs[0].Text)

	require.Empty(t, Split(""))
}

func TestSplit_MissingLanguageFallsBack(t *testing.T) {
	segs := Split("```\nplain\n```")
	require.Len(t, segs, 1)
	require.Equal(t, FallbackLanguage, segs[0].Language)
	require.Equal(t, "plain", segs[0].Text)
}

func TestSplit_InfoStringTakesFirstWord(t *testing.T) {
	segs := Split("```python title=x.py\nprint(1)\n```")
	require.Len(t, segs, 1)
	require.Equal(t, "python", segs[0].Language)
}

func TestSplit_AdjacentFencesHaveNoEmptyProse(t *testing.T) {
	in := "```go\na\n``````html\n<b>b</b>\n```"
	segs := Split(in)
	require.Len(t, segs, 2)
	require.Equal(t, "go", segs[0].Language)
	require.Equal(t, "a", segs[0].Text)
	require.Equal(t, "html", segs[1].Language)
	require.Equal(t, "<b>b</b>", segs[1].Text)
	require.Equal(t, in, rejoin(segs))
}

func TestSplit_MultipleFencesInDocumentOrder(t *testing.T) {
	in := "one\n```a\n1\n```\ntwo\n```b\n2\n```\nthree"
	segs := Split(in)
	kinds := make([]Kind, 0, len(segs))
	for _, s := range segs {
		kinds = append(kinds, s.Kind)
	}
	require.Equal(t, []Kind{Prose, Code, Prose, Code, Prose}, kinds)
	require.Equal(t, "a", segs[1].Language)
	require.Equal(t, "b", segs[3].Language)
	require.Equal(t, in, rejoin(segs))
}

func TestSplit_UnterminatedFenceRunsToEnd(t *testing.T) {
	in := "intro\n```html\n<p>never closed"
	segs := Split(in)
	require.Len(t, segs, 2)
	require.Equal(t, Code, segs[1].Kind)
	require.True(t, segs[1].Unterminated)
	require.Equal(t, "<p>never closed", segs[1].Text)
	require.Equal(t, in, rejoin(segs))
}

func TestSplit_OpenerWithoutNewlineIsProse(t *testing.T) {
	in := "inline ```x``` stays prose"
	segs := Split(in)
	require.Len(t, segs, 1)
	require.Equal(t, Prose, segs[0].Kind)
	require.Equal(t, in, segs[0].Text)
}

func TestSplit_FourBackticksKeepLeadingTick(t *testing.T) {
	in := "````js\nx\n```"
	segs := Split(in)
	require.Len(t, segs, 2)
	require.Equal(t, "`", segs[0].Text)
	require.Equal(t, "js", segs[1].Language)
	require.Equal(t, in, rejoin(segs))
}

func TestSplit_TrimsBlankLinesAroundBody(t *testing.T) {
	segs := Split("```py\n\n\n    indented()\n\n```")
	require.Len(t, segs, 1)
	require.Equal(t, "    indented()", segs[0].Text)
}

func TestParse_IsRestartable(t *testing.T) {
	seq := Parse("a\n```x\ny\n```\nb")
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	require.Equal(t, 3, first)
	require.Equal(t, first, second)
}

func TestParse_StopsEarly(t *testing.T) {
	n := 0
	for seg := range Parse("a\n```x\ny\n```\nb") {
		n++
		if seg.Kind == Code {
			break
		}
	}
	require.Equal(t, 2, n)
}

func TestFirstCode(t *testing.T) {
	seg, ok := FirstCode("text\n```css\nbody{}\n```\n```html\n<p/>\n```")
	require.True(t, ok)
	require.Equal(t, "css", seg.Language)

	_, ok = FirstCode("nothing here")
	require.False(t, ok)
}

func TestHasFence(t *testing.T) {
	require.True(t, HasFence("a ``` b"))
	require.False(t, HasFence("a `` b"))
}

func FuzzParseRoundTrip(f *testing.F) {
	for _, seed := range []string{
		"",
		"plain",
		"```",
		"```\n",
		"```js\nconsole.log(1)\n```",
		"a```b\n```c```\n```",
		"````\n`````\n```",
		"x\n```go\nfunc(){}\n",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		segs := Split(in)
		if got := rejoin(segs); got != in {
			t.Fatalf("round trip mismatch: %q != %q", got, in)
		}
		for _, s := range segs {
			if s.Raw == "" {
				t.Fatalf("zero-length segment in %q", in)
			}
		}
	})
}
