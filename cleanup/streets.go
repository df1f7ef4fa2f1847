package cleanup

import "regexp"

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

func word(repl string, words ...string) rewrite {
	return rewrite{re: CleanWords(words...), repl: repl}
}

var streetTypes = []rewrite{
	word("Ave", "avenue"),
	word("Blvd", "boulevard"),
	word("Cir", "circle"),
	word("Crt", "court"),
	word("Cres", "crescent"),
	word("Ctr", "centre", "center"),
	word("Dr", "drive"),
	word("Gt", "gate"),
	word("Hts", "heights"),
	word("Hwy", "highway"),
	word("Ln", "lane"),
	word("Pkwy", "parkway"),
	word("Pl", "place"),
	word("Rd", "road"),
	word("Sq", "square"),
	word("St", "street"),
	word("Terr", "terrace"),
	word("Trl", "trail"),
}

// CleanStreetTypes abbreviates street type words.
func CleanStreetTypes(s string) string {
	for _, rw := range streetTypes {
		s = rw.re.ReplaceAllString(s, rw.repl)
	}
	return s
}

var bounds = []rewrite{
	word("EB", "eastbound"),
	word("WB", "westbound"),
	word("NB", "northbound"),
	word("SB", "southbound"),
}

// CleanBounds abbreviates eastbound/westbound/northbound/southbound.
func CleanBounds(s string) string {
	for _, rw := range bounds {
		s = rw.re.ReplaceAllString(s, rw.repl)
	}
	return s
}
