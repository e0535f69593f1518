package normalize

import "strings"

// nameAliases expands common shorthand inside normalized names so later
// matching compares like with like. Keys must already be lower case.
var nameAliases = map[string]string{
	"f-1":     "formula 1",
	"f1":      "formula 1",
	"f-2":     "formula 2",
	"f2":      "formula 2",
	"f-3":     "formula 3",
	"f3":      "formula 3",
	"gp":      "grand prix",
	"moto-gp": "motogp",
	"indy":    "indycar",
}

// categoryAliases maps raw category labels onto canonical display strings.
// This is the static table that feeds the confidence-scored detector; an
// unlisted label passes through cleaned but unchanged.
var categoryAliases = map[string]string{
	"f1":             "Formula 1",
	"f-1":            "Formula 1",
	"formula1":       "Formula 1",
	"formula one":    "Formula 1",
	"f2":             "Formula 2",
	"formula2":       "Formula 2",
	"f3":             "Formula 3",
	"formula3":       "Formula 3",
	"fe":             "Formula E",
	"formula-e":      "Formula E",
	"motogp":         "MotoGP",
	"moto gp":        "MotoGP",
	"moto2":          "Moto2",
	"moto3":          "Moto3",
	"indy":           "IndyCar",
	"indycar series": "IndyCar",
	"nascar cup":     "NASCAR",
	"wec":            "WEC",
	"wrc":            "WRC",
	"imsa":           "IMSA",
	"dtm":            "DTM",
	"wsbk":           "World Superbike",
	"sbk":            "World Superbike",
}

// expandAliases rewrites whole tokens of an already lower-cased name.
func expandAliases(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if alias, ok := nameAliases[f]; ok {
			fields[i] = alias
		}
	}
	return strings.Join(fields, " ")
}

// CategoryAlias resolves a raw category label to its canonical display
// string when the static table knows it.
func CategoryAlias(raw string) string {
	cleaned := collapseSpace(raw)
	key := strings.ToLower(stripDiacritics(cleaned))
	if canonical, ok := categoryAliases[key]; ok {
		return canonical
	}
	return cleaned
}
