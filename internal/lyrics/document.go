package lyrics

import (
	"sort"
)

type Line struct {
	TimestampMillis int64  `json:"t"`
	Text            string `json:"text"`
}

// Document is an immutable, time-sorted set of lyric lines. The zero value
// is the empty document, which also stands for "searched, nothing found".
type Document struct {
	lines []Line
}

func Empty() Document {
	return Document{}
}

// NewDocument copies lines and sorts them by timestamp. Lines sharing a
// timestamp keep their input order.
func NewDocument(lines []Line) Document {
	if len(lines) == 0 {
		return Document{}
	}

	sorted := make([]Line, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMillis < sorted[j].TimestampMillis
	})

	return Document{lines: sorted}
}

func (d Document) IsEmpty() bool {
	return len(d.lines) == 0
}

func (d Document) Len() int {
	return len(d.lines)
}

func (d Document) Lines() []Line {
	if len(d.lines) == 0 {
		return nil
	}
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}

func (d Document) Line(index int) (Line, bool) {
	if index < 0 || index >= len(d.lines) {
		return Line{}, false
	}
	return d.lines[index], true
}

// LineIndexAtTime returns the index of the last line whose timestamp is
// <= timeMillis, or -1 when timeMillis precedes the first line.
func (d Document) LineIndexAtTime(timeMillis int64) int {
	n := len(d.lines)
	if n == 0 || timeMillis < d.lines[0].TimestampMillis {
		return -1
	}

	// first line strictly after timeMillis, minus one
	idx := sort.Search(n, func(i int) bool {
		return d.lines[i].TimestampMillis > timeMillis
	})
	return idx - 1
}

func (d Document) CurrentLine(timeMillis int64) (Line, bool) {
	return d.Line(d.LineIndexAtTime(timeMillis))
}

// Window returns up to before lines preceding index, the line itself and up
// to after lines following it. An index of -1 yields the opening lines.
func (d Document) Window(index, before, after int) []Line {
	if len(d.lines) == 0 {
		return nil
	}

	start := index - before
	if start < 0 {
		start = 0
	}
	end := index + after + 1
	if end > len(d.lines) {
		end = len(d.lines)
	}
	if start >= end {
		return nil
	}

	out := make([]Line, end-start)
	copy(out, d.lines[start:end])
	return out
}
