// Package portal drives the portal pages: login, the customer listing and
// the customer and website edit forms.
package portal

import (
	"context"
	"time"

	"github.com/go-scripts/cookiecode-sync/internal/browser"
)

// Page is the browser surface the portal flows need. *browser.Session
// implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitIdle(ctx context.Context) error
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Value(ctx context.Context, selector string) browser.Lookup
	Text(ctx context.Context, selector string) browser.Lookup
	HTML(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

var _ Page = (*browser.Session)(nil)
