package names

import "strings"

// Variations returns the search spellings of a name: the full name, "First
// Last" when middle names are present, and "First Part" for each part of a
// hyphenated surname longer than two characters. Duplicates are dropped and
// the full name always comes first.
func Variations(name string) []string {
	full := strings.Join(strings.Fields(name), " ")
	if full == "" {
		return nil
	}
	out := []string{full}
	seen := map[string]bool{Normalize(full): true}
	add := func(v string) {
		if k := Normalize(v); k != "" && !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}

	parts := strings.Fields(full)
	for len(parts) > 2 && suffixes[Normalize(parts[len(parts)-1])] {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 2 {
		add(parts[0] + " " + parts[len(parts)-1])
	}

	last := parts[len(parts)-1]
	if len(parts) > 1 && strings.Contains(last, "-") {
		for _, hp := range strings.Split(last, "-") {
			if len(hp) > 2 {
				add(parts[0] + " " + hp)
			}
		}
	}
	return out
}
