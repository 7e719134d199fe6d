package foamcase

import (
	"regexp"
	"sort"
	"strconv"
)

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render replaces every ${name} whose name is in vars. Unknown placeholders and OpenFOAM
// $variable references are left untouched.
func Render(text string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the distinct ${name} references of a template, sorted.
func Placeholders(text string) []string {
	seen := map[string]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SpeciesVariables returns the 0/Y_temp placeholders for one species.
func SpeciesVariables(molecule string, fraction float64) map[string]string {
	value := strconv.FormatFloat(fraction, 'f', 6, 64)
	return map[string]string{
		"MOLECULE":              molecule,
		"INITIAL_CONCENTRATION": value,
		"OUTPUT_CONCENTRATION":  value,
	}
}
