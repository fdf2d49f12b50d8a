package browser

// Lookup is the result of an optional DOM read. Absence is not a fault:
// callers collapse it to a documented default with Or.
type Lookup struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// Found wraps a value that was read from an existing element
func Found(value string) Lookup {
	return Lookup{Value: value, Found: true}
}

// Missing is the lookup for an absent element
func Missing() Lookup {
	return Lookup{}
}

// Or returns the value, or def when the element was absent
func (l Lookup) Or(def string) string {
	if !l.Found {
		return def
	}
	return l.Value
}
