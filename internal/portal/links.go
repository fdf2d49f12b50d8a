package portal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/cookiecode-sync/internal/queue"
	"github.com/go-scripts/cookiecode-sync/internal/types"
)

// ErrNoEditLinks means the listing produced no edit links at all, which
// usually points at a failed login or a changed selector.
var ErrNoEditLinks = errors.New("no edit links found")

const (
	customerEditPrefix = "/company/customer-edit/"
	websiteEditPrefix  = "/company/website-edit/"

	firstPageScreenshot = "debug-customers-page1.png"
)

// ArtifactWriter stores diagnostic files
type ArtifactWriter interface {
	WriteArtifact(name string, data []byte) (string, error)
}

// ListURL returns the customer listing URL for page n
func ListURL(baseURL string, n int) string {
	return fmt.Sprintf("%s/company/customers?search=&page=%d", baseURL, n)
}

// ResolveHref resolves href against base. Unparseable input yields "".
func ResolveHref(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

func resolveAll(base string, hrefs []string) []string {
	out := make([]string, len(hrefs))
	for i, href := range hrefs {
		out[i] = ResolveHref(base, href)
	}
	return out
}

// ExtractEditLinks returns the raw customer-edit and website-edit hrefs of
// a listing page, in document order.
func ExtractEditLinks(html string) (customers, websites []string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse listing html: %w", err)
	}

	hrefs := func(prefix string) []string {
		var out []string
		doc.Find(fmt.Sprintf(`a[href^=%q]`, prefix)).Each(func(_ int, sel *goquery.Selection) {
			if href, ok := sel.Attr("href"); ok && href != "" {
				out = append(out, href)
			}
		})
		return out
	}

	return hrefs(customerEditPrefix), hrefs(websiteEditPrefix), nil
}

// Collector paginates the customer listing and gathers edit URLs
type Collector struct {
	BaseURL   string
	PageMax   int
	Artifacts ArtifactWriter
	Logger    *log.Logger
}

// Collect scans listing pages 1..PageMax and returns the deduplicated
// absolute edit URLs in first-seen order.
func (c *Collector) Collect(ctx context.Context, page Page) (types.EditURLs, error) {
	customers := queue.New()
	websites := queue.New()
	var firstPage []byte

	for n := 1; n <= c.PageMax; n++ {
		listURL := ListURL(c.BaseURL, n)
		if err := page.Navigate(ctx, listURL); err != nil {
			return types.EditURLs{}, fmt.Errorf("listing page %d: %w", n, err)
		}
		if err := page.WaitIdle(ctx); err != nil {
			c.Logger.Warn("listing page did not settle", "page", n, "err", err)
		}

		if n == 1 {
			shot, err := page.Screenshot(ctx)
			if err != nil {
				c.Logger.Debug("first listing page screenshot failed", "err", err)
			}
			firstPage = shot
		}

		html, err := page.HTML(ctx)
		if err != nil {
			return types.EditURLs{}, fmt.Errorf("listing page %d: %w", n, err)
		}
		customerHrefs, websiteHrefs, err := ExtractEditLinks(html)
		if err != nil {
			return types.EditURLs{}, fmt.Errorf("listing page %d: %w", n, err)
		}

		c.Logger.Info("listing page scanned", "page", n, "customer_links", len(customerHrefs), "website_links", len(websiteHrefs))

		customers.AddAll(resolveAll(c.BaseURL, customerHrefs))
		websites.AddAll(resolveAll(c.BaseURL, websiteHrefs))
	}

	if customers.Len() == 0 && websites.Len() == 0 {
		if len(firstPage) > 0 && c.Artifacts != nil {
			p, err := c.Artifacts.WriteArtifact(firstPageScreenshot, firstPage)
			if err != nil {
				c.Logger.Warn("could not save listing screenshot", "err", err)
			} else {
				return types.EditURLs{}, fmt.Errorf("%w after %d pages, see %s", ErrNoEditLinks, c.PageMax, p)
			}
		}
		return types.EditURLs{}, fmt.Errorf("%w after %d pages", ErrNoEditLinks, c.PageMax)
	}

	return types.EditURLs{Customers: customers.Items(), Websites: websites.Items()}, nil
}
