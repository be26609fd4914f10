// Package fetcher downloads and parses the classifieds site's listing pages.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sethvargo/go-retry"

	"autoads_bot/internal/model"
)

const userAgent = "AutoAdsBot/1.0"

// maxBodySize bounds how much of a response is read (5 MiB).
const maxBodySize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads listing pages and parses them into model.Listing records.
type Fetcher struct {
	client  HTTPClient
	baseURL string
	timeout time.Duration
	retries uint64
}

// New creates a Fetcher with the given HTTP client and site base URL.
// Relative ad links from the index page are resolved against baseURL.
func New(client HTTPClient, baseURL string) *Fetcher {
	return &Fetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 30 * time.Second,
		retries: 2,
	}
}

// SetTimeout overrides the default per-request timeout.
func (f *Fetcher) SetTimeout(d time.Duration) {
	f.timeout = d
}

// BaseFromURL extracts scheme://host from a page URL.
func BaseFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// FetchIndex downloads the listing index page and parses its ad rows,
// page order preserved (the site lists newest first).
//
// A row missing its link cell is dropped; a page missing the listing table
// entirely is an error and aborts the poll cycle.
func (f *Fetcher) FetchIndex(ctx context.Context, pageURL string) ([]model.Listing, error) {
	body, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}
	return f.parseIndex(doc)
}

func (f *Fetcher) parseIndex(doc *goquery.Document) ([]model.Listing, error) {
	table := doc.Find("table.ads-list-table")
	if table.Length() == 0 {
		return nil, fmt.Errorf("listing table not found")
	}

	var listings []model.Listing
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		anchor := row.Find("td.ads-list-table-title a")
		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			return
		}

		l := model.Listing{
			Link:         f.absoluteLink(href),
			Title:        strings.TrimSpace(anchor.Text()),
			Year:         cellText(row, "td.feature-19"),
			Engine:       cellText(row, "td.feature-103"),
			Mileage:      cellText(row, "td.feature-104"),
			Transmission: cellText(row, "td.feature-101"),
			Price:        strings.ReplaceAll(cellText(row, "td.feature-2"), "\u00a0", " "),
			Date:         cellText(row, "td.ads-list-table-date"),
			Image:        model.NoImage,
		}

		if img, ok := row.Find("div.photo.js-tooltip-photo").Attr("data-image"); ok {
			l.Image = strings.SplitN(img, "?", 2)[0]
		}

		listings = append(listings, l)
	})
	return listings, nil
}

// FetchDetail downloads an ad's detail page for enrichment: engine, fuel,
// drive, condition, contacts and the EUR price that the index page lacks.
func (f *Fetcher) FetchDetail(ctx context.Context, link string) (*model.Listing, error) {
	body, err := f.get(ctx, link)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}
	return parseDetail(doc, link)
}

func parseDetail(doc *goquery.Document, link string) (*model.Listing, error) {
	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		return nil, fmt.Errorf("detail page has no title")
	}

	l := &model.Listing{
		Link:         link,
		Title:        title,
		Year:         featureValue(doc, "Год выпуска"),
		Engine:       featureValue(doc, "Объем двигателя"),
		Mileage:      featureValue(doc, "Пробег"),
		Transmission: featureValue(doc, "КПП"),
		FuelType:     featureValue(doc, "Тип топлива"),
		DriveType:    featureValue(doc, "Привод"),
		Condition:    featureValue(doc, "Состояние"),
		Author:       featureValue(doc, "Автор"),
		Wheel:        featureValue(doc, "Руль"),
		Registration: featureValue(doc, "Регистрация"),
		Price:        detailPrice(doc),
		Image:        model.NoImage,
	}

	if v, ok := doc.Find(`meta[itemprop="addressLocality"]`).Attr("content"); ok {
		l.Locality = strings.TrimSpace(v)
	}

	doc.Find("dl.adPage__content__phone a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			l.Contacts = append(l.Contacts, strings.TrimPrefix(href, "tel:"))
		}
	})

	if src, ok := doc.Find("div#js-ad-photos img").First().Attr("src"); ok && src != "" {
		l.Image = src
	}

	return l, nil
}

// detailPrice returns the EUR price of the ad, or the negotiable sentinel
// when the ad is listed without a price.
func detailPrice(doc *goquery.Document) string {
	prices := doc.Find("ul.adPage__content__price-feature__prices")
	if prices.Find("li.is-negotiable").Length() > 0 {
		return model.NegotiablePrice
	}

	price := ""
	prices.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		currency := strings.TrimSpace(li.Find("span.adPage__content__price-feature__prices__price__currency").Text())
		if currency != "€" {
			return true
		}
		value := li.Find("span.adPage__content__price-feature__prices__price__value").Text()
		price = strings.ReplaceAll(strings.ReplaceAll(value, "\u00a0", ""), " ", "")
		return false
	})
	return price
}

// featureValue looks up one key/value pair in the detail page feature list.
func featureValue(doc *goquery.Document, key string) string {
	value := ""
	doc.Find("span.adPage__content__features__key").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != key {
			return true
		}
		value = collapseSpaces(s.Parent().Find("span.adPage__content__features__value").Text())
		return false
	})
	return value
}

// FetchImage downloads an ad photo for the notification message.
func (f *Fetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	body, err := f.get(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(io.LimitReader(body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// get performs a GET with a finite timeout and capped exponential backoff on
// transient failures (network errors, 5xx, 429).
func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var body io.ReadCloser

	backoff := retry.WithMaxRetries(f.retries, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, f.timeout)

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			cancel()
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "*/*")

		resp, err := f.client.Do(req)
		if err != nil {
			cancel()
			return retry.RetryableError(fmt.Errorf("http get: %w", err))
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			cancel()
			err := fmt.Errorf("unexpected status %d", resp.StatusCode)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return retry.RetryableError(err)
			}
			return err
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		_ = resp.Body.Close()
		cancel()
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read body: %w", err))
		}
		body = io.NopCloser(strings.NewReader(string(data)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	return body, nil
}

func (f *Fetcher) absoluteLink(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return f.baseURL + href
}

func cellText(row *goquery.Selection, selector string) string {
	return collapseSpaces(row.Find(selector).First().Text())
}

// collapseSpaces trims a cell and collapses internal whitespace runs.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}
