package scraper

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultSelector = "body"
	userAgent       = "NextStepMarketScanner/0.1"
)

var ErrNoPostings = errors.New("no market postings fetched")

// Page is the posting text pulled from one listing page. Each entry of
// Postings is the text of one element matched by the selector.
type Page struct {
	URL      string
	Postings []string
}

// PageFetcher loads a listing page and returns its postings.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

func httpHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept-Language": "en-US,en;q=0.9",
	}
}

func hostFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(u.Host); err == nil {
		return h
	}
	return u.Host
}

func selectorOr(selector string) string {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return DefaultSelector
	}
	return selector
}

// postingTexts returns the whitespace-collapsed text of every element under
// root matching selector. Empty matches are dropped.
func postingTexts(root *goquery.Selection, selector string) []string {
	var out []string
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := collapseSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
