// Package ean generates and validates EAN-13 badge barcodes.
package ean

import (
	"math/rand/v2"
	"regexp"
)

// Length is the number of digits in an EAN-13 code.
const Length = 13

var pattern = regexp.MustCompile(`^[0-9]{13}$`)

// ValidFormat reports whether s is exactly 13 ASCII digits. Existing
// badges are accepted on format alone; the checksum is only enforced
// for codes this package generates.
func ValidFormat(s string) bool {
	return pattern.MatchString(s)
}

// CheckDigit computes the EAN-13 check digit for 12 leading digits.
// Counting positions from the left starting at 1, odd positions weigh 1
// and even positions weigh 3.
func CheckDigit(digits [12]int) int {
	total := 0
	for i, d := range digits {
		if i%2 == 0 {
			total += d
		} else {
			total += d * 3
		}
	}
	return (10 - total%10) % 10
}

// New returns a random EAN-13 code with a valid check digit.
func New() string {
	var digits [12]int
	buf := make([]byte, 0, Length)
	for i := range digits {
		digits[i] = rand.IntN(10)
		buf = append(buf, byte('0'+digits[i]))
	}
	buf = append(buf, byte('0'+CheckDigit(digits)))
	return string(buf)
}
