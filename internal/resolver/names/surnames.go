package names

import "strings"

// Most frequent US surnames (census rank order). A surname shared between the
// target and the linked decedent only counts as evidence when it is not here.
var commonSurnames = buildSet(`
smith johnson williams brown jones garcia miller davis rodriguez martinez
hernandez lopez gonzalez wilson anderson thomas taylor moore jackson martin
lee perez thompson white harris sanchez clark ramirez lewis robinson
walker young allen king wright scott torres nguyen hill flores
green adams nelson baker hall rivera campbell mitchell carter roberts
gomez phillips evans turner diaz parker cruz edwards collins reyes
stewart morris morales murphy cook rogers gutierrez ortiz morgan cooper
peterson bailey reed kelly howard ramos kim cox ward richardson
watson brooks chavez wood james bennett gray mendoza ruiz hughes
price alvarez castillo sanders patel myers long ross foster jimenez
`)

func buildSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// IsCommonSurname reports whether surname is among the most frequent US surnames.
func IsCommonSurname(surname string) bool {
	return commonSurnames[Normalize(surname)]
}

// SharedRareSurname reports whether a and b share a surname that is not common.
func SharedRareSurname(a, b string) bool {
	la, lb := LastName(a), LastName(b)
	return la != "" && la == lb && !IsCommonSurname(la)
}
