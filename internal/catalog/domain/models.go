package domain

import (
	"fmt"
	"strings"
)

// ProductSpec identifies an eligible tire by brand, size and design.
// RimSize is display-only and never part of the key.
type ProductSpec struct {
	Brand   string `json:"brand"`
	Size    string `json:"size"`
	Design  string `json:"design"`
	RimSize string `json:"rimSize,omitempty"`
}

// Normalize trims and upper-cases the key fields.
func (p ProductSpec) Normalize() ProductSpec {
	return ProductSpec{
		Brand:   strings.ToUpper(strings.TrimSpace(p.Brand)),
		Size:    strings.ToUpper(strings.TrimSpace(p.Size)),
		Design:  strings.ToUpper(strings.TrimSpace(p.Design)),
		RimSize: strings.TrimSpace(p.RimSize),
	}
}

// Valid reports whether every key field is present.
func (p ProductSpec) Valid() bool {
	n := p.Normalize()
	return n.Brand != "" && n.Size != "" && n.Design != ""
}

// SameKey compares two specs ignoring case and rim size.
func (p ProductSpec) SameKey(other ProductSpec) bool {
	a, b := p.Normalize(), other.Normalize()
	return a.Brand == b.Brand && a.Size == b.Size && a.Design == b.Design
}

func (p ProductSpec) String() string {
	n := p.Normalize()
	return fmt.Sprintf("%s %s %s", n.Brand, n.Size, n.Design)
}

// Entry is one catalog row.
type Entry struct {
	Code     string   `json:"code"`
	Brand    string   `json:"brand"`
	Size     string   `json:"size"`
	Design   string   `json:"design"`
	RimSizes []string `json:"rimSizes"`
}

func (e Entry) Spec() ProductSpec {
	return ProductSpec{Brand: e.Brand, Size: e.Size, Design: e.Design}
}
