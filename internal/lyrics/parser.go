package lyrics

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// largest minutes value whose millisecond timestamp still fits in an int64
const maxTagMinutes = (math.MaxInt64 - 59_999) / 60_000

var (
	timeTagPattern   = regexp.MustCompile(`^\[(\d+):(\d{1,2})(?:[.:](\d{1,3}))?\]`)
	offsetTagPattern = regexp.MustCompile(`(?i)^\[offset:\s*([+-]?\d+)\s*\]`)
)

// Parse turns LRC text into a Document. Lines without a time tag are
// skipped, so input with no usable lines gives the empty document.
func Parse(raw string) Document {
	if strings.TrimSpace(raw) == "" {
		return Empty()
	}

	var (
		lines  []Line
		offset int64
	)

	for _, rawLine := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(strings.TrimSuffix(rawLine, "\r"))
		if trimmed == "" {
			continue
		}

		if m := offsetTagPattern.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				offset = v
			}
			continue
		}

		stamps, text, ok := splitTags(trimmed)
		if !ok {
			continue
		}

		for _, ts := range stamps {
			lines = append(lines, Line{TimestampMillis: ts, Text: text})
		}
	}

	if offset != 0 {
		// a positive offset makes lyrics appear sooner
		for i := range lines {
			shifted := lines[i].TimestampMillis - offset
			if shifted < 0 {
				shifted = 0
			}
			lines[i].TimestampMillis = shifted
		}
	}

	return NewDocument(lines)
}

// splitTags consumes every leading time tag and returns their timestamps
// with the remaining text.
func splitTags(line string) ([]int64, string, bool) {
	var stamps []int64
	rest := line

	for {
		m := timeTagPattern.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}

		ts, ok := tagMillis(rest[m[2]:m[3]], rest[m[4]:m[5]], submatch(rest, m, 6))
		if !ok {
			return nil, "", false
		}
		stamps = append(stamps, ts)
		rest = rest[m[1]:]
	}

	if len(stamps) == 0 {
		return nil, "", false
	}

	return stamps, strings.TrimSpace(rest), true
}

func submatch(s string, loc []int, group int) string {
	if loc[group] < 0 {
		return ""
	}
	return s[loc[group]:loc[group+1]]
}

func tagMillis(minutes, seconds, fraction string) (int64, bool) {
	mm, err := strconv.ParseInt(minutes, 10, 64)
	if err != nil || mm > maxTagMinutes {
		return 0, false
	}
	ss, err := strconv.ParseInt(seconds, 10, 64)
	if err != nil || ss >= 60 {
		return 0, false
	}

	var frac int64
	if fraction != "" {
		v, err := strconv.ParseInt(fraction, 10, 64)
		if err != nil {
			return 0, false
		}
		switch len(fraction) {
		case 1:
			frac = v * 100
		case 2:
			frac = v * 10
		default:
			frac = v
		}
	}

	return mm*60_000 + ss*1000 + frac, true
}
