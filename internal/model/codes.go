package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeCode canonicalises entity, account and currency codes: NFC,
// trimmed, upper case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFC.String(code)))
}
