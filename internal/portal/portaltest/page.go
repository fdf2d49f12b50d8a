// Package portaltest provides a browser-free page for testing portal flows.
package portaltest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/cookiecode-sync/internal/browser"
)

// StaticPage serves fixture HTML by URL and answers DOM queries with
// goquery. Input values come from the value attribute.
type StaticPage struct {
	Pages map[string]string
	// Redirects maps a requested URL to the URL that is actually loaded
	Redirects map[string]string

	Visited []string
	Filled  map[string]string
	Clicked []string

	current string
	doc     *goquery.Document
}

// New creates a StaticPage over pages
func New(pages map[string]string) *StaticPage {
	return &StaticPage{
		Pages:     pages,
		Redirects: map[string]string{},
		Filled:    map[string]string{},
	}
}

func (p *StaticPage) Navigate(_ context.Context, url string) error {
	p.Visited = append(p.Visited, url)
	if target, ok := p.Redirects[url]; ok {
		url = target
	}

	html, ok := p.Pages[url]
	if !ok {
		return fmt.Errorf("navigate to %s: no fixture", url)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	p.current = url
	p.doc = doc
	return nil
}

func (p *StaticPage) WaitIdle(context.Context) error {
	return nil
}

// WaitReady returns at once when selector matches, otherwise it blocks
// until timeout like a real browser would.
func (p *StaticPage) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	if p.doc != nil && p.doc.Find(selector).Length() > 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	<-ctx.Done()
	return fmt.Errorf("wait for %q: %w", selector, ctx.Err())
}

func (p *StaticPage) Fill(_ context.Context, selector, value string) error {
	if p.doc == nil || p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("fill %q: no such element", selector)
	}
	p.Filled[selector] = value
	return nil
}

func (p *StaticPage) Click(_ context.Context, selector string) error {
	if p.doc == nil || p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("click %q: no such element", selector)
	}
	p.Clicked = append(p.Clicked, selector)
	return nil
}

func (p *StaticPage) Value(_ context.Context, selector string) browser.Lookup {
	sel := p.find(selector)
	if sel == nil {
		return browser.Missing()
	}
	return browser.Found(sel.AttrOr("value", ""))
}

func (p *StaticPage) Text(_ context.Context, selector string) browser.Lookup {
	sel := p.find(selector)
	if sel == nil {
		return browser.Missing()
	}
	return browser.Found(strings.TrimSpace(sel.Text()))
}

func (p *StaticPage) find(selector string) *goquery.Selection {
	if p.doc == nil {
		return nil
	}
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel
}

func (p *StaticPage) HTML(context.Context) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("read page html: no page loaded")
	}
	return p.doc.Html()
}

func (p *StaticPage) Location(context.Context) (string, error) {
	return p.current, nil
}

// Screenshot returns a placeholder image naming the current URL
func (p *StaticPage) Screenshot(context.Context) ([]byte, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("screenshot: no page loaded")
	}
	return []byte("screenshot of " + p.current), nil
}
