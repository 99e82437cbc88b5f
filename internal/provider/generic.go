package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// looseID accepts an id sent either as a JSON string or a number.
type looseID string

func (id *looseID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = looseID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = looseID(n.String())
	return nil
}

type genericSearchResponse struct {
	Data []struct {
		ID     looseID `json:"id"`
		Title  string  `json:"title"`
		Artist string  `json:"artist"`
		Album  string  `json:"album"`
	} `json:"data"`
}

type genericLyricResponse struct {
	Lrc string `json:"lrc"`
}

// Generic speaks the minimal lyric API shape: GET {base}/search?q= with a
// data array of {id,title,artist,album}, and GET {base}/lyric/{id}
// returning {lrc}. It lets users point at a self-hosted service.
type Generic struct {
	baseURL string
	http    httpDoer
}

func NewGeneric(baseURL string, timeout time.Duration, userAgent string) *Generic {
	return &Generic{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPDoer(timeout, userAgent),
	}
}

func (g *Generic) Name() string {
	return "generic"
}

func (g *Generic) Search(ctx context.Context, title, artist string) ([]Candidate, error) {
	q := title
	if artist != "" {
		q = title + " " + artist
	}

	var resp genericSearchResponse
	if err := g.http.getJSON(ctx, g.baseURL+"/search?q="+url.QueryEscape(q), &resp); err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, NewError(g.Name(), "search failed", err)
	}

	candidates := make([]Candidate, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.ID == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			ProviderTrackID: string(d.ID),
			Title:           d.Title,
			Artist:          d.Artist,
			Album:           d.Album,
		})
	}
	return candidates, nil
}

func (g *Generic) FetchLyricText(ctx context.Context, id string) (string, error) {
	var resp genericLyricResponse
	if err := g.http.getJSON(ctx, g.baseURL+"/lyric/"+url.PathEscape(id), &resp); err != nil {
		if err == ErrNotFound {
			return "", ErrNotFound
		}
		return "", NewError(g.Name(), "lyric fetch failed", err)
	}

	if strings.TrimSpace(resp.Lrc) == "" {
		return "", ErrNotFound
	}
	return resp.Lrc, nil
}
