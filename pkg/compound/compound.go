// Package compound defines the data model of the compound database API:
// compound records, the paginated listing envelope, and filter parameters.
package compound

import (
	"fmt"
	"strings"
)

// Compound is a single chemical-entity record as served by the backend.
// The attribute fields are schemaless: every compound carries a map of
// attribute name to value, with names taken verbatim from the source SDF
// (e.g. "Compound Name", "Total Molweight", "IC50"). Records are immutable
// once fetched.
type Compound struct {
	// MolIdx is the unique identifier of the compound in the dataset.
	MolIdx int64 `json:"mol_idx"`

	// Fields holds the chemical/biological attributes of the compound.
	Fields map[string]any `json:"fields"`

	// Base64PNG is the rendered structure image, if the backend has one.
	Base64PNG string `json:"base64_png,omitempty"`
}

// Field returns the value of the named attribute, matching names the way
// the backend does: whitespace-insensitive and case-insensitive, with a
// containment fallback so "molweight" finds "Total Molweight".
// Returns nil if no attribute matches.
func (c *Compound) Field(name string) any {
	want := normalizeName(name)

	for field, value := range c.Fields {
		if normalizeName(field) == want {
			return value
		}
	}

	for field, value := range c.Fields {
		norm := normalizeName(field)
		if strings.Contains(norm, want) || strings.Contains(want, norm) {
			return value
		}
	}

	return nil
}

// FieldString returns the named attribute rendered as a string,
// or "" if the attribute is absent.
func (c *Compound) FieldString(name string) string {
	value := c.Field(name)
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

// normalizeName strips all whitespace and lowercases a field name.
func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// Page is the envelope carrying one page of compounds plus pagination
// metadata. Each fetch produces a fresh Page; responses are never merged.
type Page struct {
	Items      []Compound `json:"items"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalPages int        `json:"total_pages"`
	TotalItems int        `json:"total_items"`
}

// Detail is the envelope returned by the single-compound endpoint. PrevIdx
// and NextIdx are the mol_idx values of the neighbouring compounds in
// dataset order, or nil at the ends of the dataset.
type Detail struct {
	Item    Compound `json:"item"`
	PrevIdx *int64   `json:"prev_idx"`
	NextIdx *int64   `json:"next_idx"`
}
