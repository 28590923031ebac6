package shared

import "strings"

// Address identifies a delivery destination. It carries either a single
// free-text line or structured street fields, optionally with an already
// resolved coordinate. A resolved coordinate always wins over any
// textual form.
type Address struct {
	FreeText   string      `json:"free_text,omitempty"`
	Street     string      `json:"street,omitempty"`
	Number     string      `json:"number,omitempty"`
	Corner1    string      `json:"corner_1,omitempty"`
	Corner2    string      `json:"corner_2,omitempty"`
	City       string      `json:"city,omitempty"`
	Country    string      `json:"country,omitempty"`
	PostalCode string      `json:"postal_code,omitempty"`
	Location   *Coordinate `json:"location,omitempty"`
}

// NewFreeTextAddress creates an address from a single unstructured line.
func NewFreeTextAddress(text, city, country string) (Address, error) {
	if strings.TrimSpace(text) == "" {
		return Address{}, NewValidationError("free_text", "address text cannot be empty")
	}
	return Address{FreeText: strings.TrimSpace(text), City: city, Country: country}, nil
}

// NewStreetAddress creates a structured street-and-number address.
func NewStreetAddress(street, number, city, country string) (Address, error) {
	if strings.TrimSpace(street) == "" {
		return Address{}, NewValidationError("street", "street cannot be empty")
	}
	return Address{
		Street:  strings.TrimSpace(street),
		Number:  strings.TrimSpace(number),
		City:    city,
		Country: country,
	}, nil
}

// HasLocation reports whether the address already carries coordinates.
func (a Address) HasLocation() bool {
	return a.Location != nil
}

// IsIntersection reports whether the address is expressed as a street
// corner rather than a street number.
func (a Address) IsIntersection() bool {
	return a.Corner1 != ""
}

// Resolvable reports whether the address carries enough information for
// a geocoder to attempt resolution.
func (a Address) Resolvable() bool {
	return a.HasLocation() || a.FreeText != "" || a.Street != "" || a.Corner1 != ""
}

// FullText composes the most specific single-line form of the address.
// Free text wins when present; otherwise street fields are joined in
// the usual "street number, city, country" shape.
func (a Address) FullText() string {
	if a.FreeText != "" {
		return a.withRegion(a.FreeText)
	}

	var street string
	switch {
	case a.Street != "" && a.Number != "":
		street = a.Street + " " + a.Number
	case a.Street != "" && a.Corner1 != "":
		street = a.Street + " & " + a.Corner1
	case a.Street != "":
		street = a.Street
	case a.Corner1 != "" && a.Corner2 != "":
		street = a.Corner1 + " & " + a.Corner2
	case a.Corner1 != "":
		street = a.Corner1
	}
	return a.withRegion(street)
}

func (a Address) withRegion(line string) string {
	parts := make([]string, 0, 3)
	if line != "" {
		parts = append(parts, line)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}

func (a Address) String() string {
	if a.HasLocation() {
		return a.Location.String()
	}
	return a.FullText()
}
