package wikidata

// Frequently used properties.
var (
	InstanceOf         = PID(31)
	SubclassOf         = PID(279)
	Image              = PID(18)
	Country            = PID(17)
	SexOrGender        = PID(21)
	CountryOfCitizen   = PID(27)
	Occupation         = PID(106)
	DateOfBirth        = PID(569)
	DateOfDeath        = PID(570)
	StartTimeProp      = PID(580)
	EndTimeProp        = PID(582)
	PointInTime        = PID(585)
	CoordinateLocation = PID(625)
	StatedIn           = PID(248)
	ImportedFrom       = PID(143)
	ReferenceURL       = PID(854)
	Retrieved          = PID(813)
	OfficialWebsite    = PID(856)
	Population         = PID(1082)
	Area               = PID(2046)
)

// Frequently used items.
var (
	Human     = QID(5)
	Earth     = QID(2)
	Moon      = QID(405)
	Gregorian = QID(1985727)
	Julian    = QID(1985786)
)

// Units.
var (
	Metre           = QID(11573)
	Kilometre       = QID(828224)
	Foot            = QID(3710)
	SquareKilometre = QID(712226)
	Hectare         = QID(35852)
	Kilogram        = QID(11570)
	Gram            = QID(41803)
	Litre           = QID(11582)
	Second          = QID(11574)
	Minute          = QID(7727)
	Hour            = QID(25235)
	Annum           = QID(1092296)
	Degree          = QID(28390)
	DegreeCelsius   = QID(25267)
	Percent         = QID(11229)
	USDollar        = QID(4917)
	Euro            = QID(4916)
)

var unitSuffixes = map[EntityID]string{
	Metre:           "m",
	Kilometre:       "km",
	Foot:            "ft",
	SquareKilometre: "km²",
	Hectare:         "ha",
	Kilogram:        "kg",
	Gram:            "g",
	Litre:           "L",
	Second:          "s",
	Minute:          "min",
	Hour:            "h",
	Annum:           "a",
	Degree:          "°",
	DegreeCelsius:   "°C",
	Percent:         "%",
	USDollar:        "USD",
	Euro:            "EUR",
}

// UnitSuffix returns the display suffix for a common unit, e.g. "km" for Q828224.
func UnitSuffix(unit EntityID) (string, bool) {
	s, ok := unitSuffixes[unit]
	return s, ok
}
