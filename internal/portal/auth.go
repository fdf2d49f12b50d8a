package portal

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/cookiecode-sync/internal/types"
)

const (
	emailSelector    = `input[name="emailaddress"]`
	passwordSelector = `input[name="password"]`
	submitSelector   = `button[type="submit"], input[type="submit"]`
)

// Login submits the login form on the portal root and waits for the
// resulting page to settle. Success is not verified: a rejected login only
// shows up later as an empty listing or edit pages without a form.
func Login(ctx context.Context, page Page, baseURL string, creds types.Credentials, logger *log.Logger) error {
	if err := page.Navigate(ctx, baseURL+"/"); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := page.Fill(ctx, emailSelector, creds.Email); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := page.Fill(ctx, passwordSelector, creds.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := page.Click(ctx, submitSelector); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := page.WaitIdle(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	logger.Info("login submitted, success is not verified until pages are scraped", "base_url", baseURL)
	return nil
}
