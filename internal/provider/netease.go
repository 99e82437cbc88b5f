package provider

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultNeteaseURL = "https://music.163.com"

type neteaseSearchResponse struct {
	Result struct {
		Songs []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name string `json:"name"`
			} `json:"album"`
		} `json:"songs"`
	} `json:"result"`
}

type neteaseLyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
}

type Netease struct {
	baseURL string
	http    httpDoer
}

func NewNetease(baseURL string, timeout time.Duration, userAgent string) *Netease {
	if baseURL == "" {
		baseURL = DefaultNeteaseURL
	}
	doer := newHTTPDoer(timeout, userAgent)
	doer.headers = map[string]string{"Referer": "https://music.163.com/"}
	return &Netease{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
	}
}

func (n *Netease) Name() string {
	return "netease"
}

func (n *Netease) Search(ctx context.Context, title, artist string) ([]Candidate, error) {
	keyword := title
	if artist != "" {
		keyword = title + " " + artist
	}

	query := url.Values{}
	query.Set("s", keyword)
	query.Set("type", "1")
	query.Set("limit", "10")

	var resp neteaseSearchResponse
	if err := n.http.getJSON(ctx, n.baseURL+"/api/search/pc?"+query.Encode(), &resp); err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, NewError(n.Name(), "search failed", err)
	}

	candidates := make([]Candidate, 0, len(resp.Result.Songs))
	for _, song := range resp.Result.Songs {
		names := make([]string, 0, len(song.Artists))
		for _, a := range song.Artists {
			names = append(names, a.Name)
		}
		candidates = append(candidates, Candidate{
			ProviderTrackID: strconv.FormatInt(song.ID, 10),
			Title:           song.Name,
			Artist:          strings.Join(names, ", "),
			Album:           song.Album.Name,
		})
	}

	return candidates, nil
}

func (n *Netease) FetchLyricText(ctx context.Context, id string) (string, error) {
	query := url.Values{}
	query.Set("id", id)
	query.Set("lv", "1")
	query.Set("kv", "1")
	query.Set("tv", "-1")

	var resp neteaseLyricResponse
	if err := n.http.getJSON(ctx, n.baseURL+"/api/song/lyric?"+query.Encode(), &resp); err != nil {
		if err == ErrNotFound {
			return "", ErrNotFound
		}
		return "", NewError(n.Name(), "lyric fetch failed", err)
	}

	if strings.TrimSpace(resp.Lrc.Lyric) == "" {
		return "", ErrNotFound
	}
	return resp.Lrc.Lyric, nil
}
