package category

// Unknown is the category reported when no variant scores above threshold.
const Unknown = "Unknown"

// DefaultTaxonomy returns a fresh copy of the built-in canonical category ->
// known variants table. Variants are matched case- and diacritic-insensitively;
// the canonical name itself always counts as a variant.
func DefaultTaxonomy() map[string][]string {
	base := map[string][]string{
		"Formula 1": {
			"f1", "formula one", "formula1", "f-1", "grand prix", "gp", "formula 1 world championship",
		},
		"Formula 2": {"f2", "formula2", "f-2", "fia formula 2"},
		"Formula 3": {"f3", "formula3", "f-3", "fia formula 3"},
		"Formula E": {"fe", "formula-e", "formula e world championship", "e-prix"},
		"MotoGP":    {"moto gp", "motogp world championship", "grand prix motorcycle racing"},
		"Moto2":     {"moto 2"},
		"Moto3":     {"moto 3"},
		"IndyCar":   {"indy", "indycar series", "indy car", "ntt indycar series"},
		"NASCAR":    {"nascar cup", "nascar cup series", "nascar xfinity", "stock car"},
		"WEC": {
			"world endurance championship", "fia wec", "le mans", "24 hours of le mans", "endurance",
		},
		"WRC":             {"world rally championship", "rally", "fia wrc"},
		"IMSA":            {"imsa sportscar championship", "weathertech sportscar"},
		"DTM":             {"deutsche tourenwagen masters"},
		"Super Formula":   {"super formula championship", "sf"},
		"World Superbike": {"wsbk", "sbk", "superbike world championship", "superbikes"},
	}
	out := make(map[string][]string, len(base))
	for canonical, variants := range base {
		out[canonical] = append([]string(nil), variants...)
	}
	return out
}
