package cache

import "strings"

// Key derives the storage key for a track: "title-artist", or just the
// title when there is no artist, with every character other than ASCII
// letters, digits, CJK ideographs and '-' replaced by '_'.
func Key(title, artist string) string {
	raw := title
	if artist != "" {
		raw = title + "-" + artist
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-':
			return r
		case r >= '一' && r <= '龥':
			return r
		default:
			return '_'
		}
	}, raw)
}
