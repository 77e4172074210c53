package compound

import (
	"net/url"
	"strconv"
)

// FilterParams holds the user's query constraints for the compound listing.
// All fields are optional; the zero value selects the whole dataset.
// Filtering itself happens server-side, this type only describes the query
// surface of the /items endpoint.
type FilterParams struct {
	// Query is a free-text search applied across attribute fields.
	Query string

	// Fields restricts the free-text search to the named attributes.
	// Empty means all fields.
	Fields []string

	// Page and PerPage override the client's pagination defaults when > 0.
	Page    int
	PerPage int

	// Numeric range constraints. Nil means unconstrained.
	MinMolWeight *float64
	MaxMolWeight *float64
	MinIC50      *float64
	MaxIC50      *float64

	// Activity filters on actin disruption activity.
	Activity string

	// Reversibility filters on the reversibility annotation ("+", "-",
	// "not tested", or a textual value like "Reversible").
	Reversibility string

	// QuantityType selects the quantity filter mode: "numeric" (with the
	// Min/MaxQuantity bounds), "available", or "not available".
	QuantityType string
	MinQuantity  *float64
	MaxQuantity  *float64
}

// Values encodes the parameters as URL query values using the backend's
// parameter names. Zero and nil fields are omitted.
func (p FilterParams) Values() url.Values {
	v := url.Values{}

	if p.Query != "" {
		v.Set("query", p.Query)
	}
	for _, f := range p.Fields {
		v.Add("fields", f)
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(p.PerPage))
	}

	setFloat(v, "min_molweight", p.MinMolWeight)
	setFloat(v, "max_molweight", p.MaxMolWeight)
	setFloat(v, "min_ic50", p.MinIC50)
	setFloat(v, "max_ic50", p.MaxIC50)

	if p.Activity != "" {
		v.Set("activity", p.Activity)
	}
	if p.Reversibility != "" {
		v.Set("reversibility", p.Reversibility)
	}
	if p.QuantityType != "" {
		v.Set("quantity_type", p.QuantityType)
		setFloat(v, "min_quantity", p.MinQuantity)
		setFloat(v, "max_quantity", p.MaxQuantity)
	}

	return v
}

// WithPage returns a copy of the parameters targeting the given page.
func (p FilterParams) WithPage(page int) FilterParams {
	p.Page = page
	return p
}

func setFloat(v url.Values, key string, value *float64) {
	if value != nil {
		v.Set(key, strconv.FormatFloat(*value, 'f', -1, 64))
	}
}

// Float64 returns a pointer to v, for populating optional filter bounds.
func Float64(v float64) *float64 {
	return &v
}
