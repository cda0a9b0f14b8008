package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
)

const defaultFetchTimeout = 25 * time.Second

// CollyFetcher scrapes server-rendered listing pages.
type CollyFetcher struct {
	Selector string
	Timeout  time.Duration
	// Delay is the politeness delay between requests to the same domain.
	Delay time.Duration
}

func (f CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	host := hostFromURL(rawURL)
	if host == "" {
		return Page{}, fmt.Errorf("invalid market url %q", rawURL)
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	selector := selectorOr(f.Selector)

	c := colly.NewCollector(colly.AllowedDomains(host))
	c.SetRequestTimeout(timeout)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 2, Delay: f.Delay, RandomDelay: f.Delay / 2})

	page := Page{URL: rawURL}
	var reqErr error

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		for k, v := range httpHeaders() {
			r.Headers.Set(k, v)
		}
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		page.Postings = append(page.Postings, postingTexts(e.DOM, selector)...)
	})

	c.OnError(func(r *colly.Response, err error) {
		if reqErr == nil {
			reqErr = fmt.Errorf("fetch %s: status %d: %w", rawURL, r.StatusCode, err)
		}
	})

	visitErr := c.Visit(rawURL)
	c.Wait()
	if reqErr != nil {
		return Page{}, reqErr
	}
	if visitErr != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, visitErr)
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	return page, nil
}

// HeadlessFetcher renders client-side listing pages in headless Chrome before
// selecting postings.
type HeadlessFetcher struct {
	Selector string
	Timeout  time.Duration
	// Settle is how long to wait after the body is ready for scripts to render.
	Settle time.Duration
}

func (f HeadlessFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	settle := f.Settle
	if settle <= 0 {
		settle = 1500 * time.Millisecond
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	reqCtx, reqCancel := context.WithTimeout(browserCtx, timeout)
	defer reqCancel()

	var html string
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return Page{}, fmt.Errorf("render %s: %w", rawURL, err)
	}
	return parsePage(rawURL, html, f.Selector)
}

func parsePage(rawURL, html, selector string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return Page{URL: rawURL, Postings: postingTexts(doc.Selection, selectorOr(selector))}, nil
}
