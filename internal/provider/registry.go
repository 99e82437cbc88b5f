package provider

import (
	"fmt"
	"strings"
	"time"
)

type Options struct {
	Order            []string
	Timeout          time.Duration
	UserAgent        string
	RatePerSecond    float64
	Burst            int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	LrclibURL        string
	NeteaseURL       string
	KugouURL         string
	GenericURL       string
}

var DefaultOrder = []string{"lrclib", "netease", "kugou"}

// Build creates the sources named in opts.Order, in that order. The
// generic provider is skipped unless a base URL is configured.
func Build(opts Options) ([]*Source, error) {
	order := opts.Order
	if len(order) == 0 {
		order = DefaultOrder
	}

	srcCfg := SourceConfig{
		RatePerSecond:    opts.RatePerSecond,
		Burst:            opts.Burst,
		BreakerThreshold: opts.BreakerThreshold,
		BreakerCooldown:  opts.BreakerCooldown,
	}

	seen := make(map[string]bool)
	var sources []*Source

	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		var p Provider
		switch name {
		case "lrclib":
			p = NewLrclib(opts.LrclibURL, opts.Timeout, opts.UserAgent)
		case "netease":
			p = NewNetease(opts.NeteaseURL, opts.Timeout, opts.UserAgent)
		case "kugou":
			p = NewKugou(opts.KugouURL, opts.Timeout, opts.UserAgent)
		case "generic":
			if opts.GenericURL == "" {
				continue
			}
			p = NewGeneric(opts.GenericURL, opts.Timeout, opts.UserAgent)
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}

		sources = append(sources, NewSource(p, srcCfg))
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no lyric providers configured")
	}

	return sources, nil
}
