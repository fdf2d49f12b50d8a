package browser

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const editPage = `<!doctype html>
<html><body>
<form>
	<input name="name" value="Acme B.V.">
	<input name="coc" value="">
	<span class="select2-selection__rendered" id="select2-countryId-x9-container">
		Netherlands
	</span>
</form>
</body></html>`

func TestLookupOr(t *testing.T) {
	assert.Equal(t, "x", Found("x").Or("def"))
	assert.Equal(t, "", Found("").Or("def"))
	assert.Equal(t, "def", Missing().Or("def"))
}

// findBrowser returns a Chrome/Chromium executable or skips the test
func findBrowser(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome or Chromium executable found")
	return ""
}

func newTestSession(t *testing.T) (*Session, *httptest.Server) {
	t.Helper()
	execPath := findBrowser(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/empty" {
			w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
			return
		}
		w.Write([]byte(editPage))
	}))
	t.Cleanup(server.Close)

	session, err := NewSession(context.Background(), Options{
		Headless:   true,
		ExecPath:   execPath,
		NavTimeout: 20 * time.Second,
	}, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(session.Close)

	return session, server
}

func TestSessionReadsFields(t *testing.T) {
	session, server := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, session.Navigate(ctx, server.URL+"/edit"))
	require.NoError(t, session.WaitReady(ctx, "form", 5*time.Second))

	assert.Equal(t, Found("Acme B.V."), session.Value(ctx, `input[name="name"]`))
	assert.Equal(t, Found(""), session.Value(ctx, `input[name="coc"]`))
	assert.Equal(t, Missing(), session.Value(ctx, `input[name="street"]`))
	assert.Equal(t, Found("Netherlands"), session.Text(ctx, `.select2-selection__rendered[id^="select2-countryId"]`))

	loc, err := session.Location(ctx)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/edit", loc)
}

func TestSessionWaitReadyTimesOut(t *testing.T) {
	session, server := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, session.Navigate(ctx, server.URL+"/empty"))

	start := time.Now()
	err := session.WaitReady(ctx, "form", 300*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSessionCapturesDiagnostics(t *testing.T) {
	session, server := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, session.Navigate(ctx, server.URL+"/edit"))

	html, err := session.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, `name="name"`)

	png, err := session.Screenshot(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}
