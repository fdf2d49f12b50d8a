package portal_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/cookiecode-sync/internal/portal"
	"github.com/go-scripts/cookiecode-sync/internal/portal/portaltest"
	"github.com/go-scripts/cookiecode-sync/internal/types"
)

const base = "https://portal.test"

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

type memArtifacts map[string][]byte

func (m memArtifacts) WriteArtifact(name string, data []byte) (string, error) {
	m[name] = data
	return "/debug/" + name, nil
}

func TestResolveHref(t *testing.T) {
	testCases := []struct {
		name string
		base string
		href string
		want string
	}{
		{"parent relative", "https://h/a/b", "../x/5", "https://h/x/5"},
		{"root relative", "https://portal.test", "/company/customer-edit/12", "https://portal.test/company/customer-edit/12"},
		{"absolute", "https://portal.test", "https://other.test/x", "https://other.test/x"},
		{"malformed host", "https://portal.test", "http://[::1", ""},
		{"bad escape", "https://portal.test", "/company/%zz", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, portal.ResolveHref(tc.base, tc.href))
		})
	}
}

func TestExtractEditLinks(t *testing.T) {
	html := portaltest.ListingPage(
		"/company/customer-edit/1",
		"/company/website-edit/10",
		"/company/customer-edit/2",
		"/company/customers/view/3",
	)

	customers, websites, err := portal.ExtractEditLinks(html)
	require.NoError(t, err)
	assert.Equal(t, []string{"/company/customer-edit/1", "/company/customer-edit/2"}, customers)
	assert.Equal(t, []string{"/company/website-edit/10"}, websites)
}

func TestCollectorDeduplicatesAcrossPages(t *testing.T) {
	page := portaltest.New(map[string]string{
		portal.ListURL(base, 1): portaltest.ListingPage(
			"/company/customer-edit/1", "/company/website-edit/10", "/company/customer-edit/2",
		),
		portal.ListURL(base, 2): portaltest.ListingPage(
			"/company/customer-edit/2", "/company/customer-edit/3", "/company/website-edit/10",
		),
		portal.ListURL(base, 3): portaltest.ListingPage(
			"/company/customer-edit/1", "/company/website-edit/11",
		),
	})

	c := &portal.Collector{BaseURL: base, PageMax: 3, Artifacts: memArtifacts{}, Logger: quietLogger()}
	got, err := c.Collect(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, []string{
		base + "/company/customer-edit/1",
		base + "/company/customer-edit/2",
		base + "/company/customer-edit/3",
	}, got.Customers)
	assert.Equal(t, []string{
		base + "/company/website-edit/10",
		base + "/company/website-edit/11",
	}, got.Websites)
	assert.Equal(t, []string{portal.ListURL(base, 1), portal.ListURL(base, 2), portal.ListURL(base, 3)}, page.Visited)
}

func TestCollectorFailsWhenNothingFound(t *testing.T) {
	page := portaltest.New(map[string]string{
		portal.ListURL(base, 1): portaltest.ListingPage(),
		portal.ListURL(base, 2): portaltest.ListingPage("/company/customers/view/3"),
	})
	artifacts := memArtifacts{}

	c := &portal.Collector{BaseURL: base, PageMax: 2, Artifacts: artifacts, Logger: quietLogger()}
	_, err := c.Collect(context.Background(), page)

	require.Error(t, err)
	assert.True(t, errors.Is(err, portal.ErrNoEditLinks))
	assert.Contains(t, err.Error(), "debug-customers-page1.png")
	assert.Equal(t, "screenshot of "+portal.ListURL(base, 1), string(artifacts["debug-customers-page1.png"]))
}

func TestCollectorStopsOnNavigationError(t *testing.T) {
	page := portaltest.New(map[string]string{
		portal.ListURL(base, 1): portaltest.ListingPage("/company/customer-edit/1"),
	})

	c := &portal.Collector{BaseURL: base, PageMax: 2, Logger: quietLogger()}
	_, err := c.Collect(context.Background(), page)

	require.Error(t, err)
	assert.False(t, errors.Is(err, portal.ErrNoEditLinks))
	assert.Contains(t, err.Error(), "listing page 2")
}

func TestLoginFillsAndSubmits(t *testing.T) {
	page := portaltest.New(map[string]string{base + "/": portaltest.LoginPage})

	err := portal.Login(context.Background(), page, base, types.Credentials{Email: "bot@example.com", Password: "pw"}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		`input[name="emailaddress"]`: "bot@example.com",
		`input[name="password"]`:     "pw",
	}, page.Filled)
	assert.Len(t, page.Clicked, 1)
}

func TestLoginFailsWithoutForm(t *testing.T) {
	page := portaltest.New(map[string]string{base + "/": portaltest.NoFormPage})

	err := portal.Login(context.Background(), page, base, types.Credentials{Email: "a", Password: "b"}, quietLogger())
	assert.Error(t, err)
}

func TestScrapeCustomer(t *testing.T) {
	url := base + "/company/customer-edit/42"
	page := portaltest.New(map[string]string{
		url: portaltest.EditPage(map[string]string{
			"name":       "Acme B.V.",
			"street":     "Hoofdstraat 1",
			"postalcode": "1234 AB",
			"email":      "info@acme.test",
			"coc":        "12345678",
		}, "Nederland"),
	})

	rec, err := portal.CustomerForm.Scrape(context.Background(), page, url, time.Second)
	require.NoError(t, err)

	assert.Equal(t, types.CategoryCustomer, rec.Type)
	assert.Equal(t, url, rec.SourceURL)
	assert.Equal(t, url, rec.FinalURL)
	assert.Equal(t, map[string]string{
		"name":       "Acme B.V.",
		"street":     "Hoofdstraat 1",
		"postalcode": "1234 AB",
		"country":    "Nederland",
		"email":      "info@acme.test",
		"coc":        "12345678",
	}, rec.Fields)
}

func TestScrapeMissingOptionalField(t *testing.T) {
	url := base + "/company/website-edit/7"
	page := portaltest.New(map[string]string{
		url: portaltest.EditPage(map[string]string{
			"baseurl":     "https://shop.test",
			"contactname": "Jan",
		}, ""),
	})

	rec, err := portal.WebsiteForm.Scrape(context.Background(), page, url, time.Second)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"baseurl":      "https://shop.test",
		"contactname":  "Jan",
		"contactemail": "",
	}, rec.Fields)
}

func TestScrapeRecordsFinalURL(t *testing.T) {
	url := base + "/company/website-edit/7"
	moved := base + "/company/website-edit/7?tab=general"
	page := portaltest.New(map[string]string{
		moved: portaltest.EditPage(map[string]string{"baseurl": "https://shop.test"}, ""),
	})
	page.Redirects[url] = moved

	rec, err := portal.WebsiteForm.Scrape(context.Background(), page, url, time.Second)
	require.NoError(t, err)
	assert.Equal(t, url, rec.SourceURL)
	assert.Equal(t, moved, rec.FinalURL)
}

func TestScrapeMissingMarkerTimesOut(t *testing.T) {
	url := base + "/company/customer-edit/9"
	page := portaltest.New(map[string]string{url: portaltest.NoFormPage})

	start := time.Now()
	_, err := portal.CustomerForm.Scrape(context.Background(), page, url, 50*time.Millisecond)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExtractorValidate(t *testing.T) {
	require.NoError(t, portal.CustomerForm.Validate())
	require.NoError(t, portal.WebsiteForm.Validate())

	bad := portal.Extractor{Category: types.CategoryWebsite, Marker: "form", Fields: []portal.FieldSpec{portal.Input("type")}}
	assert.Error(t, bad.Validate())

	dup := portal.Extractor{Category: types.CategoryWebsite, Marker: "form", Fields: []portal.FieldSpec{portal.Input("a"), portal.Input("a")}}
	assert.Error(t, dup.Validate())
}

func TestExtractorFor(t *testing.T) {
	e, err := portal.ExtractorFor(types.CategoryWebsite)
	require.NoError(t, err)
	assert.Equal(t, types.CategoryWebsite, e.Category)

	_, err = portal.ExtractorFor("invoice")
	assert.Error(t, err)
}

func TestExtractorsKeepsOrder(t *testing.T) {
	forms, err := portal.Extractors(types.CategoryWebsite, types.CategoryCustomer)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, types.CategoryWebsite, forms[0].Category)
	assert.Equal(t, types.CategoryCustomer, forms[1].Category)

	_, err = portal.Extractors(types.CategoryCustomer, "invoice")
	assert.Error(t, err)
}
