package cli

import (
	"fmt"
	"unicode"
)

// IsPrintable determines if a code point is visible when printed. Letters,
// numbers, punctuation and symbols are; marks, separators and control
// characters are not.
func IsPrintable(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// MakePrintable returns a printable representation of a code point: the
// code point itself when visible, its hex value for control and surrogate
// characters, and U+ notation for everything else.
func MakePrintable(r rune) string {
	if IsPrintable(r) {
		return string(r)
	}
	if unicode.In(r, unicode.Cc, unicode.Cs, unicode.Co) {
		return fmt.Sprintf("0x%x", r)
	}
	return fmt.Sprintf("U+%04X", r)
}
