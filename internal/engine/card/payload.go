package card

import "strings"

// BuildPayload returns the string encoded in both codes and printed under
// them.
func BuildPayload(institutionTag, year, identifier string) string {
	return institutionTag + year + strings.ToUpper(identifier)
}
