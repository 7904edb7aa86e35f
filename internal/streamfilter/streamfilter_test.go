package streamfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func runAll(t *testing.T, chunks []string) (string, string) {
	f := New()
	var clean, thinking []byte
	for _, chunk := range chunks {
		c, th := f.Write([]byte(chunk))
		clean = append(clean, c...)
		thinking = append(thinking, th...)
	}
	c, th := f.Flush()
	clean = append(clean, c...)
	thinking = append(thinking, th...)
	_ = t
	return string(clean), string(thinking)
}

// A <think> tag split across multiple writes must still be stripped
// cleanly.
func TestScenarioA_SplitAcrossChunks(t *testing.T) {
	clean, thinking := runAll(t, []string{"A<thi", "nk>B</thi", "nk>C"})
	assert.Equal(t, "AC", clean)
	assert.Equal(t, "B", thinking)
}

// Scenario B: an unmatched-looking opening tag passes straight through.
func TestScenarioB_NotThinkTagPassesThrough(t *testing.T) {
	clean, thinking := runAll(t, []string{"<notthink>hi"})
	assert.Equal(t, "<notthink>hi", clean)
	assert.Equal(t, "", thinking)
}

// Scenario C: EOF mid-block treats the unterminated content as thinking.
func TestScenarioC_UnterminatedBlockAtEOF(t *testing.T) {
	clean, thinking := runAll(t, []string{"x<think>y"})
	assert.Equal(t, "x", clean)
	assert.Equal(t, "y", thinking)
}

func TestBasicFiltering(t *testing.T) {
	clean, thinking := runAll(t, []string{"Hello <think>internal thought</think> World"})
	assert.Equal(t, "Hello  World", clean)
	assert.Equal(t, "internal thought", thinking)
}

func TestMultipleChunksInsideThink(t *testing.T) {
	f := New()
	c1, th1 := f.Write([]byte("Hello <think>first "))
	c2, th2 := f.Write([]byte("second "))
	c3, th3 := f.Write([]byte("third</think> World"))

	assert.Equal(t, "Hello ", string(c1))
	assert.Equal(t, "", string(c2))
	assert.Equal(t, " World", string(c3))
	assert.Equal(t, "first ", string(th1))
	assert.Equal(t, "second ", string(th2))
	assert.Equal(t, "third", string(th3))
}

func TestNoThinkTags(t *testing.T) {
	clean, thinking := runAll(t, []string{"Just normal content here"})
	assert.Equal(t, "Just normal content here", clean)
	assert.Equal(t, "", thinking)
}

func TestEmptyThinkBlock(t *testing.T) {
	clean, thinking := runAll(t, []string{"Before <think></think> After"})
	assert.Equal(t, "Before  After", clean)
	assert.Equal(t, "", thinking)
}

func TestMultipleThinkBlocks(t *testing.T) {
	clean, thinking := runAll(t, []string{"A<think>1</think>B<think>2</think>C"})
	assert.Equal(t, "ABC", clean)
	assert.Equal(t, "12", thinking)
}

func TestAngleBracketInsideThink(t *testing.T) {
	clean, thinking := runAll(t, []string{"<think>a < b</think>done"})
	assert.Equal(t, "done", clean)
	assert.Equal(t, "a < b", thinking)
}

// Chunk-boundary independence: identical input rechunked arbitrarily
// must produce byte-identical clean and thinking output.
func TestChunkBoundaryIndependence(t *testing.T) {
	input := "prefix <think>hidden <notreal> reasoning</think> suffix <think>more</think> tail"

	rechunkings := [][]string{
		{input},
		splitEvery(input, 1),
		splitEvery(input, 3),
		splitEvery(input, 7),
		{input[:10], input[10:]},
	}

	var wantClean, wantThinking string
	for i, chunks := range rechunkings {
		clean, thinking := runAll(t, chunks)
		if i == 0 {
			wantClean, wantThinking = clean, thinking
			continue
		}
		assert.Equal(t, wantClean, clean, "rechunking %d clean mismatch", i)
		assert.Equal(t, wantThinking, thinking, "rechunking %d thinking mismatch", i)
	}
}

func splitEvery(s string, n int) []string {
	var out []string
	for i := 0; i < len(s); i += n {
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[i:end])
	}
	return out
}

func TestFlushPartialOpenTag(t *testing.T) {
	f := New()
	out1, _ := f.Write([]byte("Content <thi"))
	clean, thinking := f.Flush()
	assert.Equal(t, "Content ", string(out1))
	assert.Equal(t, "<thi", string(clean))
	assert.Equal(t, "", string(thinking))
}

func TestFlushPartialCloseTag(t *testing.T) {
	f := New()
	out1, th1 := f.Write([]byte("Start <think>thought</thi"))
	clean, thinking := f.Flush()
	assert.Equal(t, "Start ", string(out1))
	assert.Equal(t, "thought", string(th1))
	assert.Equal(t, "", string(clean))
	assert.Equal(t, "</thi", string(thinking))
}
