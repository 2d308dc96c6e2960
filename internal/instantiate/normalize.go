package instantiate

import "golang.org/x/text/unicode/norm"

// normalizeName applies Unicode NFC normalization to an identifier before
// it is compared against another, so two assemblies built from sources
// using different (but canonically equivalent) encodings of the same name
// still resolve against each other — export/import names, subtype names,
// and trait member names all go through this before comparison.
func normalizeName(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// namesEqual compares two identifiers under NFC normalization.
func namesEqual(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}
