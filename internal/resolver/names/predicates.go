package names

import (
	"regexp"
	"strings"
)

// Predicate classifies a piece of text. Predicates are plain functions so the
// resolver can swap or stub them independently of its control flow.
type Predicate func(text string) bool

// Predicates bundles the text heuristics the resolver consults.
type Predicates struct {
	Deceased     Predicate
	Professional Predicate
	Unsearchable Predicate
}

// DefaultPredicates returns the built-in heuristics.
func DefaultPredicates() Predicates {
	return Predicates{
		Deceased:     IsDeceasedText,
		Professional: IsProfessional,
		Unsearchable: IsUnsearchable,
	}
}

var (
	deceasedPattern     = regexp.MustCompile(`(?i)\b(deceased|in memoriam|died on|passed away)\b`)
	professionalPattern = regexp.MustCompile(`(?i)\b(attorneys?|law firm|law office|law group|esquire|esq|j\.?d|lawyers?|counsel|pllc)\b`)
)

// IsDeceasedText reports whether a profile or snippet marks its subject dead.
func IsDeceasedText(text string) bool {
	return deceasedPattern.MatchString(text)
}

// IsProfessional reports whether text suggests a professional (attorney) PR.
func IsProfessional(text string) bool {
	return professionalPattern.MatchString(text)
}

// IsUnsearchable reports names that are placeholders rather than people:
// empty, "Unknown", or still carrying "dead"/"probate" annotations.
func IsUnsearchable(name string) bool {
	n := Normalize(name)
	if n == "" || n == "unknown" {
		return true
	}
	return strings.Contains(n, "dead") || strings.Contains(n, "probate")
}

// nicknames maps a formal given name to its common short forms.
var nicknames = map[string][]string{
	"robert":      {"bob", "bobby", "rob", "robbie", "bert"},
	"william":     {"bill", "billy", "will", "willie", "liam"},
	"richard":     {"rick", "ricky", "dick", "rich", "richie"},
	"james":       {"jim", "jimmy", "jamie"},
	"john":        {"jack", "johnny", "jon"},
	"joseph":      {"joe", "joey"},
	"thomas":      {"tom", "tommy"},
	"charles":     {"charlie", "chuck", "chas"},
	"michael":     {"mike", "mikey", "mick"},
	"david":       {"dave", "davey"},
	"daniel":      {"dan", "danny"},
	"edward":      {"ed", "eddie", "ted", "ned"},
	"anthony":     {"tony"},
	"christopher": {"chris", "kit"},
	"steven":      {"steve"},
	"stephen":     {"steve"},
	"kenneth":     {"ken", "kenny"},
	"ronald":      {"ron", "ronnie"},
	"donald":      {"don", "donnie"},
	"gerald":      {"jerry", "gerry"},
	"lawrence":    {"larry"},
	"leonard":     {"len", "lenny", "leo"},
	"patrick":     {"pat", "paddy"},
	"peter":       {"pete"},
	"raymond":     {"ray"},
	"samuel":      {"sam", "sammy"},
	"timothy":     {"tim", "timmy"},
	"gregory":     {"greg"},
	"andrew":      {"andy", "drew"},
	"benjamin":    {"ben", "benny"},
	"frederick":   {"fred", "freddie"},
	"douglas":     {"doug"},
	"eugene":      {"gene"},
	"harold":      {"hal", "harry"},
	"henry":       {"hank", "harry"},
	"margaret":    {"maggie", "meg", "peggy", "marge", "margie"},
	"elizabeth":   {"liz", "beth", "betty", "betsy", "eliza", "lizzie"},
	"katherine":   {"kathy", "kate", "katie", "kay", "kitty"},
	"catherine":   {"cathy", "cate", "katie"},
	"patricia":    {"pat", "patty", "trish", "tricia"},
	"jennifer":    {"jen", "jenny"},
	"susan":       {"sue", "susie"},
	"deborah":     {"deb", "debbie"},
	"rebecca":     {"becky", "becca"},
	"barbara":     {"barb", "barbie"},
	"dorothy":     {"dot", "dottie"},
	"kimberly":    {"kim"},
	"christine":   {"chris", "chrissy", "tina"},
	"cynthia":     {"cindy"},
	"pamela":      {"pam"},
	"theresa":     {"terry", "tess"},
	"victoria":    {"vicky", "tori"},
	"alexander":   {"alex", "al", "sandy"},
	"albert":      {"al", "bert"},
	"allen":       {"al"},
	"judith":      {"judy"},
	"carolyn":     {"carol"},
	"virginia":    {"ginny", "ginger"},
	"nancy":       {"nan"},
}

var nicknameIndex = buildNicknameIndex()

func buildNicknameIndex() map[string][]string {
	idx := make(map[string][]string)
	for formal, shorts := range nicknames {
		idx[formal] = append(idx[formal], formal)
		for _, s := range shorts {
			idx[s] = append(idx[s], formal)
		}
	}
	return idx
}

// SameGivenName reports whether two given names are equal or share a formal
// form through the nickname table ("bob" and "robert", "bill" and "will").
func SameGivenName(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	for _, fa := range nicknameIndex[a] {
		for _, fb := range nicknameIndex[b] {
			if fa == fb {
				return true
			}
		}
	}
	return false
}
