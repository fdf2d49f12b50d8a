package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category tags an edit page and the record scraped from it
type Category string

const (
	CategoryCustomer Category = "customer"
	CategoryWebsite  Category = "website"
)

// Credentials are used once to log in and never persisted
type Credentials struct {
	Email    string
	Password string
}

// EditURLs holds the deduplicated edit pages found on the customer listing
type EditURLs struct {
	Customers []string
	Websites  []string
}

// Total returns the number of planned scrapes
func (e EditURLs) Total() int {
	return len(e.Customers) + len(e.Websites)
}

// Keys reserved for record metadata in the flat JSON form
const (
	keyType      = "type"
	keySourceURL = "sourceUrl"
	keyFinalURL  = "finalUrl"
)

// IsReservedField reports whether name collides with record metadata
func IsReservedField(name string) bool {
	return name == keyType || name == keySourceURL || name == keyFinalURL
}

// Record is a flat set of form values scraped from one edit page.
// It serializes as a single JSON object: metadata keys next to the field values.
type Record struct {
	Type      Category
	SourceURL string
	FinalURL  string
	Fields    map[string]string
}

func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(r.Fields)+3)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[keyType] = string(r.Type)
	flat[keySourceURL] = r.SourceURL
	if r.FinalURL != "" {
		flat[keyFinalURL] = r.FinalURL
	}
	return json.Marshal(flat)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	r.Type = Category(flat[keyType])
	r.SourceURL = flat[keySourceURL]
	r.FinalURL = flat[keyFinalURL]
	delete(flat, keyType)
	delete(flat, keySourceURL)
	delete(flat, keyFinalURL)
	r.Fields = flat
	return nil
}

// Failure describes an edit page that could not be scraped
type Failure struct {
	Type       Category `json:"type"`
	URL        string   `json:"url"`
	Error      string   `json:"error"`
	Screenshot string   `json:"screenshot,omitempty"`
	HTML       string   `json:"html,omitempty"`
}

// Counts summarizes a run in the single payload
type Counts struct {
	Records          int `json:"records"`
	Failed           int `json:"failed"`
	CustomersPlanned int `json:"customersPlanned"`
	WebsitesPlanned  int `json:"websitesPlanned"`
}

// Payload is the single-message webhook body, failures included
type Payload struct {
	ScrapedAt time.Time `json:"scrapedAt"`
	Counts    Counts    `json:"counts"`
	Failed    []Failure `json:"failed"`
	Records   []Record  `json:"records"`
}

// Batch is one chunk of records sent in batched mode
type Batch struct {
	ScrapedAt time.Time `json:"scrapedAt"`
	Count     int       `json:"count"`
	Records   []Record  `json:"records"`
}

// URLCache is the on-disk form of previously collected edit URLs
type URLCache struct {
	SavedAt          time.Time `json:"savedAt"`
	PageMax          int       `json:"pageMax"`
	CustomerEditURLs []string  `json:"customerEditUrls"`
	WebsiteEditURLs  []string  `json:"websiteEditUrls"`
}

// EditURLs converts the cache back into collector output
func (c URLCache) EditURLs() EditURLs {
	return EditURLs{Customers: c.CustomerEditURLs, Websites: c.WebsiteEditURLs}
}
