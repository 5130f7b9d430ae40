package wikidata

// Datatype is the property datatype declared on a snak, e.g. "wikibase-item".
type Datatype string

const (
	DatatypeString          Datatype = "string"
	DatatypeMonolingualText Datatype = "monolingualtext"
	DatatypeQuantity        Datatype = "quantity"
	DatatypeGlobeCoordinate Datatype = "globe-coordinate"
	DatatypeTime            Datatype = "time"
	DatatypeItem            Datatype = "wikibase-item"
	DatatypeProperty        Datatype = "wikibase-property"
	DatatypeLexeme          Datatype = "wikibase-lexeme"
	DatatypeForm            Datatype = "wikibase-form"
	DatatypeSense           Datatype = "wikibase-sense"
	DatatypeExternalID      Datatype = "external-id"
	DatatypeURL             Datatype = "url"
	DatatypeCommonsMedia    Datatype = "commonsMedia"
	DatatypeGeoShape        Datatype = "geo-shape"
	DatatypeMusicalNotation Datatype = "musical-notation"
	DatatypeTabularData     Datatype = "tabular-data"
	DatatypeMath            Datatype = "math"
)

// Value types as they appear in datavalue.type.
const (
	valueTypeString          = "string"
	valueTypeMonolingualText = "monolingualtext"
	valueTypeQuantity        = "quantity"
	valueTypeGlobeCoordinate = "globecoordinate"
	valueTypeTime            = "time"
	valueTypeEntityID        = "wikibase-entityid"
)

var datatypeValueTypes = map[Datatype]string{
	DatatypeString:          valueTypeString,
	DatatypeMonolingualText: valueTypeMonolingualText,
	DatatypeQuantity:        valueTypeQuantity,
	DatatypeGlobeCoordinate: valueTypeGlobeCoordinate,
	DatatypeTime:            valueTypeTime,
	DatatypeItem:            valueTypeEntityID,
	DatatypeProperty:        valueTypeEntityID,
	DatatypeLexeme:          valueTypeEntityID,
	DatatypeForm:            valueTypeEntityID,
	DatatypeSense:           valueTypeEntityID,
	DatatypeExternalID:      valueTypeString,
	DatatypeURL:             valueTypeString,
	DatatypeCommonsMedia:    valueTypeString,
	DatatypeGeoShape:        valueTypeString,
	DatatypeMusicalNotation: valueTypeString,
	DatatypeTabularData:     valueTypeString,
	DatatypeMath:            valueTypeString,
}

var knownValueTypes = map[string]bool{
	valueTypeString:          true,
	valueTypeMonolingualText: true,
	valueTypeQuantity:        true,
	valueTypeGlobeCoordinate: true,
	valueTypeTime:            true,
	valueTypeEntityID:        true,
}

// Known reports whether the codec can decode this datatype.
func (d Datatype) Known() bool {
	_, ok := datatypeValueTypes[d]
	return ok
}

// ValueType returns the datavalue.type used to encode values of this datatype.
func (d Datatype) ValueType() string { return datatypeValueTypes[d] }

// entityDatatypes pairs each wikibase-* datatype with the id kind it refers to.
var entityDatatypes = map[Datatype]IDKind{
	DatatypeItem:     Item,
	DatatypeProperty: Property,
	DatatypeLexeme:   Lexeme,
	DatatypeForm:     Form,
	DatatypeSense:    Sense,
}

// Value is one decoded claim value. The set of implementations is closed;
// switch on the concrete type:
//
//	switch v := snak.Value.(type) {
//	case wikidata.Quantity:
//	case wikidata.EntityRef:
//	}
type Value interface {
	// Datatype is the datatype this value encodes as.
	Datatype() Datatype
	isValue()
}

type (
	// String is a plain string value.
	String string
	// ExternalID is an identifier in an external database.
	ExternalID string
	// URL is a URL value.
	URL string
	// CommonsMedia is a file name on Wikimedia Commons.
	CommonsMedia string
	// GeoShape is a page name on Commons in the Data namespace.
	GeoShape string
	// MusicalNotation is LilyPond source.
	MusicalNotation string
	// TabularData is a page name on Commons in the Data namespace.
	TabularData string
	// Math is a TeX formula.
	Math string
)

func (String) Datatype() Datatype          { return DatatypeString }
func (ExternalID) Datatype() Datatype      { return DatatypeExternalID }
func (URL) Datatype() Datatype             { return DatatypeURL }
func (CommonsMedia) Datatype() Datatype    { return DatatypeCommonsMedia }
func (GeoShape) Datatype() Datatype        { return DatatypeGeoShape }
func (MusicalNotation) Datatype() Datatype { return DatatypeMusicalNotation }
func (TabularData) Datatype() Datatype     { return DatatypeTabularData }
func (Math) Datatype() Datatype            { return DatatypeMath }

func (String) isValue()          {}
func (ExternalID) isValue()      {}
func (URL) isValue()             {}
func (CommonsMedia) isValue()    {}
func (GeoShape) isValue()        {}
func (MusicalNotation) isValue() {}
func (TabularData) isValue()     {}
func (Math) isValue()            {}

// stringValue builds the string-backed variant for a datatype.
func stringValue(dt Datatype, s string) (Value, bool) {
	switch dt {
	case DatatypeString:
		return String(s), true
	case DatatypeExternalID:
		return ExternalID(s), true
	case DatatypeURL:
		return URL(s), true
	case DatatypeCommonsMedia:
		return CommonsMedia(s), true
	case DatatypeGeoShape:
		return GeoShape(s), true
	case DatatypeMusicalNotation:
		return MusicalNotation(s), true
	case DatatypeTabularData:
		return TabularData(s), true
	case DatatypeMath:
		return Math(s), true
	}
	return nil, false
}

// MonolingualText is a text in one explicitly stated language.
type MonolingualText struct {
	Language string
	Text     string
}

func (MonolingualText) Datatype() Datatype { return DatatypeMonolingualText }
func (MonolingualText) isValue()           {}

// Quantity is an amount with optional bounds and unit. A zero Unit means the
// quantity is dimensionless (unit "1" on the wire).
type Quantity struct {
	Amount     Decimal
	Unit       EntityID
	LowerBound Decimal
	UpperBound Decimal
}

func (Quantity) Datatype() Datatype { return DatatypeQuantity }
func (Quantity) isValue()           {}

// Dimensionless reports whether the quantity has no unit.
func (q Quantity) Dimensionless() bool { return q.Unit.IsZero() }

// EntityRef refers to another entity. Its datatype follows from the id kind.
type EntityRef struct {
	ID EntityID
}

func (r EntityRef) Datatype() Datatype {
	for dt, kind := range entityDatatypes {
		if kind == r.ID.Kind {
			return dt
		}
	}
	return ""
}
func (EntityRef) isValue() {}
