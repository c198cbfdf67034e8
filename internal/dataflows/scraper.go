package dataflows

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	scrapeUserAgent = "Mozilla/5.0 (compatible; finscope/1.0)"
	maxPageText     = 8000
)

// Scraper fetches article pages referenced by news results and
// extracts bounded readable text for the sentiment step.
type Scraper struct {
	client *resty.Client
}

func NewScraper() *Scraper {
	client := resty.New()
	client.SetTimeout(20 * time.Second)
	client.SetHeader("User-Agent", scrapeUserAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &Scraper{client: client}
}

// Fetch downloads a page and extracts its title and body text. Output
// text is capped at maxPageText runes.
func (s *Scraper) Fetch(url string) (*PageContent, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("unsupported url scheme: %s", url)
	}
	resp, err := s.client.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	doc.Find("script, style, nav, footer, header, aside, form").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	var parts []string
	doc.Find("article p, main p, p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) >= 40 {
			parts = append(parts, text)
		}
	})
	body := strings.Join(parts, "\n\n")
	if body == "" {
		body = strings.TrimSpace(doc.Find("body").Text())
	}
	if runes := []rune(body); len(runes) > maxPageText {
		body = string(runes[:maxPageText])
	}

	return &PageContent{URL: url, Title: title, Text: body}, nil
}
