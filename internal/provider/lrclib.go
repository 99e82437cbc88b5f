package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultLrclibURL = "https://lrclib.net"

type lrclibRecord struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Lrclib talks to the lrclib.net API: /api/search for candidates and
// /api/get/{id} for the synced text.
type Lrclib struct {
	baseURL string
	http    httpDoer
}

func NewLrclib(baseURL string, timeout time.Duration, userAgent string) *Lrclib {
	if baseURL == "" {
		baseURL = DefaultLrclibURL
	}
	return &Lrclib{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPDoer(timeout, userAgent),
	}
}

func (l *Lrclib) Name() string {
	return "lrclib"
}

// Search tries the names as given first, then with bracketed version info
// such as "(Remastered)" removed.
func (l *Lrclib) Search(ctx context.Context, title, artist string) ([]Candidate, error) {
	attempts := [][2]string{{normalizeString(title), normalizeString(artist)}}
	if stripped := stripVersionInfo(title); stripped != "" && stripped != attempts[0][0] {
		attempts = append(attempts, [2]string{stripped, stripVersionInfo(artist)})
	}

	var lastErr error
	for _, attempt := range attempts {
		query := url.Values{}
		query.Set("track_name", attempt[0])
		if attempt[1] != "" {
			query.Set("artist_name", attempt[1])
		}

		var records []lrclibRecord
		err := l.http.getJSON(ctx, l.baseURL+"/api/search?"+query.Encode(), &records)
		if err != nil {
			lastErr = err
			if err == ErrNotFound {
				continue
			}
			return nil, NewError(l.Name(), "search failed", err)
		}

		candidates := make([]Candidate, 0, len(records))
		for _, r := range records {
			if r.Instrumental || r.SyncedLyrics == "" {
				continue
			}
			candidates = append(candidates, Candidate{
				ProviderTrackID: strconv.FormatInt(r.ID, 10),
				Title:           r.TrackName,
				Artist:          r.ArtistName,
				Album:           r.AlbumName,
			})
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}

	if lastErr != nil && lastErr != ErrNotFound {
		return nil, NewError(l.Name(), "search failed", lastErr)
	}
	return nil, nil
}

func (l *Lrclib) FetchLyricText(ctx context.Context, id string) (string, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", NewError(l.Name(), fmt.Sprintf("invalid track id %q", id), err)
	}

	var record lrclibRecord
	if err := l.http.getJSON(ctx, l.baseURL+"/api/get/"+id, &record); err != nil {
		if err == ErrNotFound {
			return "", ErrNotFound
		}
		return "", NewError(l.Name(), "fetch failed", err)
	}

	if record.SyncedLyrics == "" {
		return "", ErrNotFound
	}
	return record.SyncedLyrics, nil
}

// normalizeString trims and collapses runs of spaces.
func normalizeString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripVersionInfo removes text in parentheses and brackets (remixes, versions, etc)
func stripVersionInfo(s string) string {
	s = strings.TrimSpace(s)

	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		for {
			start := strings.Index(s, pair[0])
			end := strings.Index(s, pair[1])
			if start < 0 || end <= start {
				break
			}
			s = s[:start] + " " + s[end+1:]
		}
	}

	return normalizeString(s)
}
