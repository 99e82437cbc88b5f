package lyrics

import (
	"fmt"
	"strings"
)

// FormatTimestamp renders milliseconds as an LRC tag body, mm:ss.xx.
func FormatTimestamp(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	minutes := millis / 60_000
	seconds := (millis % 60_000) / 1000
	centis := (millis % 1000) / 10
	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, centis)
}

// Format writes the document back out as LRC text, one tag per line.
func Format(doc Document) string {
	var b strings.Builder
	for _, line := range doc.lines {
		b.WriteString("[")
		b.WriteString(FormatTimestamp(line.TimestampMillis))
		b.WriteString("]")
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	return b.String()
}
