package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const DefaultKugouURL = "https://krcs.kugou.com"

type kugouSearchResponse struct {
	Status     int    `json:"status"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
	Candidates []struct {
		ID        string `json:"id"`
		AccessKey string `json:"accesskey"`
		Singer    string `json:"singer"`
		Song      string `json:"song"`
	} `json:"candidates"`
}

type kugouDownloadResponse struct {
	Status    int    `json:"status"`
	Info      string `json:"info"`
	ErrorCode int    `json:"error_code"`
	Content   string `json:"content"`
}

// Kugou uses the krcs lyric search. Track ids are "id:accesskey" since the
// download endpoint needs both.
type Kugou struct {
	baseURL string
	http    httpDoer
}

func NewKugou(baseURL string, timeout time.Duration, userAgent string) *Kugou {
	if baseURL == "" {
		baseURL = DefaultKugouURL
	}
	return &Kugou{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPDoer(timeout, userAgent),
	}
}

func (k *Kugou) Name() string {
	return "kugou"
}

func (k *Kugou) Search(ctx context.Context, title, artist string) ([]Candidate, error) {
	keyword := title
	if artist != "" {
		keyword = title + " " + artist
	}

	query := url.Values{}
	query.Set("ver", "1")
	query.Set("man", "yes")
	query.Set("client", "mobi")
	query.Set("keyword", keyword)

	var resp kugouSearchResponse
	if err := k.http.getJSON(ctx, k.baseURL+"/search?"+query.Encode(), &resp); err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, NewError(k.Name(), "search failed", err)
	}

	if resp.Status != 200 {
		return nil, NewError(k.Name(), fmt.Sprintf("api error %d: %s", resp.ErrCode, resp.ErrMsg), nil)
	}

	candidates := make([]Candidate, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		if c.ID == "" || c.AccessKey == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			ProviderTrackID: c.ID + ":" + c.AccessKey,
			Title:           c.Song,
			Artist:          c.Singer,
		})
	}

	return candidates, nil
}

func (k *Kugou) FetchLyricText(ctx context.Context, trackID string) (string, error) {
	id, accessKey, ok := strings.Cut(trackID, ":")
	if !ok || id == "" || accessKey == "" {
		return "", NewError(k.Name(), fmt.Sprintf("invalid track id %q", trackID), nil)
	}

	query := url.Values{}
	query.Set("ver", "1")
	query.Set("client", "pc")
	query.Set("id", id)
	query.Set("accesskey", accessKey)
	query.Set("fmt", "lrc")
	query.Set("charset", "utf8")

	var resp kugouDownloadResponse
	if err := k.http.getJSON(ctx, k.baseURL+"/download?"+query.Encode(), &resp); err != nil {
		if err == ErrNotFound {
			return "", ErrNotFound
		}
		return "", NewError(k.Name(), "download failed", err)
	}

	if resp.Status != 200 {
		return "", NewError(k.Name(), fmt.Sprintf("api error %d: %s", resp.ErrorCode, resp.Info), nil)
	}
	if resp.Content == "" {
		return "", ErrNotFound
	}

	decoded, err := base64.StdEncoding.DecodeString(resp.Content)
	if err != nil {
		return "", NewError(k.Name(), "failed to decode lyric content", err)
	}

	// some payloads carry a UTF-8 BOM
	return strings.TrimPrefix(string(decoded), "\ufeff"), nil
}
