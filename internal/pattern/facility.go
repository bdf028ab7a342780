package pattern

// FacilityGrammar matches an 8-digit block, a period, a digit run, then
// whitespace and a trailing digit run. The identifier is all three digit
// groups run together.
var FacilityGrammar = Grammar{
	Name:    "facility",
	Expr:    `(\d{8})\.(\d+)\s+(\d+)`,
	Compose: []int{1, 2, 3},
}

var facility = FacilityGrammar.MustCompile()

// FindFacility returns the facility identifier of the first match in text.
func FindFacility(text string) (string, bool) {
	return facility.Find(text)
}
