package clitools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLineNumberedOutput(t *testing.T) {
	out := "a.go:10:hello world\nb.go:2:another line\n"
	hits := parseLineNumberedOutput(out, 10)
	assert.Len(t, hits, 2)
	assert.Equal(t, "a.go", hits[0].Path)
	assert.Equal(t, 10, hits[0].Line)
	assert.Equal(t, "hello world", hits[0].Content)
}

func TestParseLineNumberedOutputRespectsMax(t *testing.T) {
	out := "a.go:1:x\nb.go:2:y\nc.go:3:z\n"
	hits := parseLineNumberedOutput(out, 2)
	assert.Len(t, hits, 2)
}

func TestSplitLinesTrimsAndDropsEmpty(t *testing.T) {
	lines := splitLines("  a  \n\n b \n")
	assert.Equal(t, []string{"a", "b"}, lines)
}
