package wikidata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

// jsonDoc accumulates sjson writes. Keys are appended in write order, which
// is what keeps the output ordered. The first error sticks.
type jsonDoc struct {
	b   []byte
	err error
}

func newDoc(empty string) *jsonDoc { return &jsonDoc{b: []byte(empty)} }

func (d *jsonDoc) set(path string, v any) {
	if d.err == nil {
		d.b, d.err = sjson.SetBytes(d.b, path, v)
	}
}

func (d *jsonDoc) setRaw(path string, raw []byte) {
	if d.err == nil {
		d.b, d.err = sjson.SetRawBytes(d.b, path, raw)
	}
}

func (d *jsonDoc) bytes() ([]byte, error) { return d.b, d.err }

var pathEscaper = strings.NewReplacer(
	`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`, `|`, `\|`, `#`, `\#`, `@`, `\@`, `:`, `\:`, `!`, `\!`,
)

// key escapes a map key for use as an sjson path component.
func key(k string) string { return pathEscaper.Replace(k) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// EncodeValue writes v as a datavalue object and returns its datatype.
func EncodeValue(v Value) (Datatype, []byte, error) {
	if v == nil {
		return "", nil, fmt.Errorf("wikidata: cannot encode nil value")
	}
	dt := v.Datatype()
	d := newDoc("{}")

	switch v := v.(type) {
	case String, ExternalID, URL, CommonsMedia, GeoShape, MusicalNotation, TabularData, Math:
		d.set("value", stringOf(v))
	case MonolingualText:
		d.set("value.text", v.Text)
		d.set("value.language", v.Language)
	case Quantity:
		d.set("value.amount", v.Amount.String())
		if v.Dimensionless() {
			d.set("value.unit", dimensionlessUnit)
		} else {
			d.set("value.unit", v.Unit.ConceptURI())
		}
		if !v.UpperBound.IsZero() {
			d.set("value.upperBound", v.UpperBound.String())
		}
		if !v.LowerBound.IsZero() {
			d.set("value.lowerBound", v.LowerBound.String())
		}
	case GlobeCoordinate:
		d.setRaw("value.latitude", []byte(formatFloat(v.Latitude)))
		d.setRaw("value.longitude", []byte(formatFloat(v.Longitude)))
		d.setRaw("value.altitude", []byte("null"))
		if v.HasPrecision {
			d.setRaw("value.precision", []byte(formatFloat(v.Precision)))
		} else {
			d.setRaw("value.precision", []byte("null"))
		}
		d.set("value.globe", v.Globe.ConceptURI())
	case Time:
		d.set("value.time", v.Timestamp())
		d.set("value.timezone", v.Timezone)
		d.set("value.before", v.Before)
		d.set("value.after", v.After)
		d.set("value.precision", int(v.Precision))
		d.set("value.calendarmodel", v.Calendar.ConceptURI())
	case EntityRef:
		if dt == "" {
			return "", nil, fmt.Errorf("wikidata: cannot encode reference to %q", v.ID)
		}
		d.set("value.entity-type", v.ID.Kind.String())
		if v.ID.Kind != Form && v.ID.Kind != Sense {
			d.set("value.numeric-id", v.ID.Num)
		}
		d.set("value.id", v.ID.String())
	default:
		return "", nil, fmt.Errorf("wikidata: cannot encode %T", v)
	}
	d.set("type", dt.ValueType())

	b, err := d.bytes()
	if err != nil {
		return "", nil, fmt.Errorf("wikidata: encode %s value: %w", dt, err)
	}
	return dt, b, nil
}

func stringOf(v Value) string {
	switch v := v.(type) {
	case String:
		return string(v)
	case ExternalID:
		return string(v)
	case URL:
		return string(v)
	case CommonsMedia:
		return string(v)
	case GeoShape:
		return string(v)
	case MusicalNotation:
		return string(v)
	case TabularData:
		return string(v)
	case Math:
		return string(v)
	}
	return ""
}

// EncodeSnak writes s as a snak object.
func EncodeSnak(s Snak) ([]byte, error) {
	d := newDoc("{}")
	d.set("snaktype", s.Type.String())
	d.set("property", s.Property.String())
	if s.Datatype != "" {
		d.set("datatype", string(s.Datatype))
	}
	if s.Type == SnakValue {
		_, raw, err := EncodeValue(s.Value)
		if err != nil {
			return nil, fmt.Errorf("snak %s: %w", s.Property, err)
		}
		d.setRaw("datavalue", raw)
	}
	return d.bytes()
}

func encodeSnakGroups(d *jsonDoc, groupsPath, orderPath string, groups *SnakGroups) error {
	d.setRaw(groupsPath, []byte("{}"))
	d.setRaw(orderPath, []byte("[]"))
	for pid, snaks := range groups.All() {
		p := groupsPath + "." + pid.String()
		d.setRaw(p, []byte("[]"))
		for _, s := range snaks {
			raw, err := EncodeSnak(s)
			if err != nil {
				return err
			}
			d.setRaw(p+".-1", raw)
		}
		d.set(orderPath+".-1", pid.String())
	}
	return nil
}

// EncodeClaim writes c as a statement object.
func EncodeClaim(c *Claim) ([]byte, error) {
	d := newDoc("{}")
	main, err := EncodeSnak(c.MainSnak)
	if err != nil {
		return nil, err
	}
	d.setRaw("mainsnak", main)
	d.set("type", "statement")
	if c.ID != "" {
		d.set("id", c.ID)
	}
	d.set("rank", c.Rank.String())

	if c.Qualifiers.Len() > 0 {
		if err := encodeSnakGroups(d, "qualifiers", "qualifiers-order", &c.Qualifiers); err != nil {
			return nil, err
		}
	}
	if len(c.References) > 0 {
		d.setRaw("references", []byte("[]"))
		for i := range c.References {
			ref := &c.References[i]
			r := newDoc("{}")
			if ref.Hash != "" {
				r.set("hash", ref.Hash)
			}
			if err := encodeSnakGroups(r, "snaks", "snaks-order", &ref.Snaks); err != nil {
				return nil, err
			}
			raw, err := r.bytes()
			if err != nil {
				return nil, err
			}
			d.setRaw("references.-1", raw)
		}
	}
	return d.bytes()
}

func encodeTerms(d *jsonDoc, path string, terms *MultilingualText) {
	d.setRaw(path, []byte("{}"))
	for lang, text := range terms.All() {
		p := path + "." + key(lang)
		d.set(p+".language", lang)
		d.set(p+".value", text)
	}
}

// EncodeEntity writes e in the Wikidata entity JSON layout, preserving the
// order of every map.
func EncodeEntity(e *Entity) ([]byte, error) {
	d := newDoc("{}")
	d.set("type", e.Kind().String())
	if e.IsProperty() && e.Datatype != "" {
		d.set("datatype", string(e.Datatype))
	}
	d.set("id", e.ID.String())

	encodeTerms(d, "labels", &e.Labels)
	encodeTerms(d, "descriptions", &e.Descriptions)

	d.setRaw("aliases", []byte("{}"))
	for lang, list := range e.Aliases.All() {
		p := "aliases." + key(lang)
		d.setRaw(p, []byte("[]"))
		for i, alias := range list {
			ap := p + "." + strconv.Itoa(i)
			d.set(ap+".language", lang)
			d.set(ap+".value", alias)
		}
	}

	d.setRaw("claims", []byte("{}"))
	for pid, claims := range e.Claims.All() {
		p := "claims." + pid.String()
		d.setRaw(p, []byte("[]"))
		for i := range claims {
			raw, err := EncodeClaim(&claims[i])
			if err != nil {
				return nil, fmt.Errorf("wikidata: encode %s: %w", e.ID, err)
			}
			d.setRaw(p+".-1", raw)
		}
	}

	if e.IsItem() {
		d.setRaw("sitelinks", []byte("{}"))
		for site, link := range e.Sitelinks.All() {
			p := "sitelinks." + key(site)
			d.set(p+".site", link.Site)
			d.set(p+".title", link.Title)
			d.setRaw(p+".badges", []byte("[]"))
			for _, b := range link.Badges {
				d.set(p+".badges.-1", b.String())
			}
			if link.URL != "" {
				d.set(p+".url", link.URL)
			}
		}
	}

	if e.LastRevID != 0 {
		d.set("lastrevid", e.LastRevID)
	}
	if !e.Modified.IsZero() {
		d.set("modified", e.Modified.UTC().Format(time.RFC3339))
	}
	b, err := d.bytes()
	if err != nil {
		return nil, fmt.Errorf("wikidata: encode %s: %w", e.ID, err)
	}
	return b, nil
}
