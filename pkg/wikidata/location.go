package wikidata

import (
	"strconv"
	"strings"
)

// Section is the top-level part of an entity record.
type Section string

const (
	SectionEntity       Section = "entity"
	SectionLabels       Section = "labels"
	SectionDescriptions Section = "descriptions"
	SectionAliases      Section = "aliases"
	SectionClaims       Section = "claims"
	SectionSitelinks    Section = "sitelinks"
)

// Part is the part of a claim an error was found in.
type Part string

const (
	PartMainSnak   Part = "mainsnak"
	PartRank       Part = "rank"
	PartQualifiers Part = "qualifiers"
	PartReferences Part = "references"
)

// Location points at the failing part of a record, e.g.
// claims/P31[Q42$abc]/qualifiers/P580[0].
type Location struct {
	Section  Section
	Key      string   // language code, site key or entity field name outside claims
	Property EntityID // property the claim is grouped under
	ClaimID  string
	Part     Part
	// Reference is the index of the reference block; only meaningful for PartReferences.
	Reference int
	// SnakProperty and Snak locate a single snak within a qualifier or reference group.
	SnakProperty EntityID
	Snak         int
}

func (l Location) String() string {
	var b strings.Builder
	if l.Section != "" {
		b.WriteString(string(l.Section))
	}
	if l.Key != "" {
		b.WriteByte('/')
		b.WriteString(l.Key)
	}
	if !l.Property.IsZero() {
		b.WriteByte('/')
		b.WriteString(l.Property.String())
	}
	if l.ClaimID != "" {
		b.WriteByte('[')
		b.WriteString(l.ClaimID)
		b.WriteByte(']')
	}
	if l.Part != "" {
		b.WriteByte('/')
		b.WriteString(string(l.Part))
		if l.Part == PartReferences {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(l.Reference))
			b.WriteByte(']')
		}
	}
	grouped := l.Part == PartQualifiers || l.Part == PartReferences
	if !l.SnakProperty.IsZero() && (grouped || l.SnakProperty != l.Property) {
		b.WriteByte('/')
		b.WriteString(l.SnakProperty.String())
		if grouped {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(l.Snak))
			b.WriteByte(']')
		}
	}
	return strings.TrimPrefix(b.String(), "/")
}

func (l Location) merge(outer Location) Location {
	if l.Section == "" {
		l.Section = outer.Section
	}
	if l.Key == "" {
		l.Key = outer.Key
	}
	if l.Property.IsZero() {
		l.Property = outer.Property
	}
	if l.ClaimID == "" {
		l.ClaimID = outer.ClaimID
	}
	if l.Part == "" {
		l.Part = outer.Part
		l.Reference = outer.Reference
	}
	if l.SnakProperty.IsZero() {
		l.SnakProperty = outer.SnakProperty
		l.Snak = outer.Snak
	}
	return l
}
