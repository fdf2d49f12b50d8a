package portaltest

import (
	"fmt"
	"html"
	"strings"
)

// LoginPage is the portal root with the login form
const LoginPage = `<!doctype html>
<html><body>
<form method="post" action="/login">
	<input type="email" name="emailaddress">
	<input type="password" name="password">
	<button type="submit">Inloggen</button>
</form>
</body></html>`

// ListingPage renders a customer listing with one anchor per href
func ListingPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<!doctype html><html><body><table>")
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<tr><td><a href="%s">edit</a></td></tr>`, html.EscapeString(href))
	}
	b.WriteString(`</table><a href="/company/customers?search=&amp;page=2">next</a></body></html>`)
	return b.String()
}

// EditPage renders an edit form with one input per entry of inputs. A
// non-empty country adds the select2 rendered span with a record-specific id.
func EditPage(inputs map[string]string, country string) string {
	var b strings.Builder
	b.WriteString("<!doctype html><html><body><form>")
	for name, value := range inputs {
		fmt.Fprintf(&b, `<input name="%s" value="%s">`, html.EscapeString(name), html.EscapeString(value))
	}
	if country != "" {
		fmt.Fprintf(&b, `<span class="select2-selection select2-selection--single"><span class="select2-selection__rendered" id="select2-countryId-%d-container">
			%s
		</span></span>`, len(inputs), html.EscapeString(country))
	}
	b.WriteString("</form></body></html>")
	return b.String()
}

// NoFormPage is what an edit URL shows when the session is not logged in
const NoFormPage = `<!doctype html><html><body><p>Please log in</p></body></html>`
