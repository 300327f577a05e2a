package editor

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Buffer is an edit buffer indexed by grapheme cluster, so that a cursor
// step always moves over one displayed character.
type Buffer struct {
	clusters []string
}

// NewBuffer returns a buffer holding s.
func NewBuffer(s string) *Buffer {
	b := &Buffer{}
	b.Set(s)
	return b
}

// Set replaces the contents.
func (b *Buffer) Set(s string) {
	b.clusters = segment(s)
}

func segment(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// String returns the contents.
func (b *Buffer) String() string {
	return strings.Join(b.clusters, "")
}

// Len returns the number of grapheme clusters.
func (b *Buffer) Len() int {
	return len(b.clusters)
}

// Slice returns clusters [from, to) as a string.
func (b *Buffer) Slice(from, to int) string {
	from, to = b.clamp(from), b.clamp(to)
	if from >= to {
		return ""
	}
	return strings.Join(b.clusters[from:to], "")
}

// Insert adds s before cluster pos and returns the cursor position just
// after the inserted text. A combining mark merges with the cluster before
// it, so the returned position accounts for re-segmentation.
func (b *Buffer) Insert(pos int, s string) int {
	pos = b.clamp(pos)
	head := b.Slice(0, pos) + s
	b.Set(head + b.Slice(pos, b.Len()))
	return len(segment(head))
}

// Delete removes clusters [from, to).
func (b *Buffer) Delete(from, to int) {
	from, to = b.clamp(from), b.clamp(to)
	if from >= to {
		return
	}
	b.clusters = append(b.clusters[:from], b.clusters[to:]...)
}

// Width returns the display width of clusters [0, pos).
func (b *Buffer) Width(pos int) int {
	return runewidth.StringWidth(b.Slice(0, pos))
}

// TotalWidth returns the display width of the whole buffer.
func (b *Buffer) TotalWidth() int {
	return b.Width(b.Len())
}

// WordStart returns the start of the word before pos, skipping spaces.
func (b *Buffer) WordStart(pos int) int {
	pos = b.clamp(pos)
	for pos > 0 && isSpace(b.clusters[pos-1]) {
		pos--
	}
	for pos > 0 && !isSpace(b.clusters[pos-1]) {
		pos--
	}
	return pos
}

func isSpace(cluster string) bool {
	return cluster == " " || cluster == "\t"
}

func (b *Buffer) clamp(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > len(b.clusters) {
		return len(b.clusters)
	}
	return pos
}
