package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/go-scripts/cookiecode-sync/internal/browser"
	"github.com/go-scripts/cookiecode-sync/internal/types"
)

// FieldKind selects how a field is read from the page
type FieldKind int

const (
	// KindInput reads the current value of a form control
	KindInput FieldKind = iota
	// KindText reads the trimmed rendered text of an element
	KindText
)

// FieldSpec maps a record field to the element it is read from
type FieldSpec struct {
	Name     string
	Selector string
	Kind     FieldKind
}

// Input is a FieldSpec for <input name="name">
func Input(name string) FieldSpec {
	return FieldSpec{Name: name, Selector: fmt.Sprintf(`input[name=%q]`, name), Kind: KindInput}
}

// Text is a FieldSpec reading rendered text from selector
func Text(name, selector string) FieldSpec {
	return FieldSpec{Name: name, Selector: selector, Kind: KindText}
}

// Extractor scrapes one kind of edit page into a record
type Extractor struct {
	Category types.Category
	// Marker must be present before any field is read
	Marker string
	Fields []FieldSpec
}

// CustomerForm reads the customer edit page. The country is a select2
// widget whose element id varies per record, hence the id prefix match.
var CustomerForm = Extractor{
	Category: types.CategoryCustomer,
	Marker:   "form",
	Fields: []FieldSpec{
		Input("name"),
		Input("street"),
		Input("postalcode"),
		Text("country", `.select2-selection__rendered[id^="select2-countryId"]`),
		Input("email"),
		Input("coc"),
	},
}

// WebsiteForm reads the website edit page
var WebsiteForm = Extractor{
	Category: types.CategoryWebsite,
	Marker:   "form",
	Fields: []FieldSpec{
		Input("baseurl"),
		Input("contactname"),
		Input("contactemail"),
	},
}

// ExtractorFor returns the extractor of a category
func ExtractorFor(c types.Category) (Extractor, error) {
	switch c {
	case types.CategoryCustomer:
		return CustomerForm, nil
	case types.CategoryWebsite:
		return WebsiteForm, nil
	}
	return Extractor{}, fmt.Errorf("no extractor for category %q", c)
}

// Extractors returns the extractors of categories in the given order, each
// checked with Validate.
func Extractors(categories ...types.Category) ([]Extractor, error) {
	out := make([]Extractor, 0, len(categories))
	for _, c := range categories {
		e, err := ExtractorFor(c)
		if err != nil {
			return nil, err
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Validate rejects field lists that would produce an ambiguous record
func (e Extractor) Validate() error {
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if f.Name == "" || f.Selector == "" {
			return fmt.Errorf("%s extractor: field %q has no name or selector", e.Category, f.Name)
		}
		if types.IsReservedField(f.Name) {
			return fmt.Errorf("%s extractor: field name %q is reserved", e.Category, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s extractor: duplicate field %q", e.Category, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Scrape opens url, waits up to timeout for the marker and reads every field.
// Absent fields become "" and never fail the record; a missing marker fails
// the whole scrape.
func (e Extractor) Scrape(ctx context.Context, page Page, url string, timeout time.Duration) (types.Record, error) {
	if err := page.Navigate(ctx, url); err != nil {
		return types.Record{}, fmt.Errorf("%s %s: %w", e.Category, url, err)
	}
	if err := page.WaitReady(ctx, e.Marker, timeout); err != nil {
		return types.Record{}, fmt.Errorf("%s %s: %w", e.Category, url, err)
	}

	fields := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		fields[f.Name] = e.read(ctx, page, f).Or("")
	}

	finalURL, err := page.Location(ctx)
	if err != nil {
		finalURL = ""
	}

	return types.Record{
		Type:      e.Category,
		SourceURL: url,
		FinalURL:  finalURL,
		Fields:    fields,
	}, nil
}

func (e Extractor) read(ctx context.Context, page Page, f FieldSpec) browser.Lookup {
	switch f.Kind {
	case KindText:
		return page.Text(ctx, f.Selector)
	default:
		return page.Value(ctx, f.Selector)
	}
}
