package domain

import "strings"

const maskedPlaceholder = "****"

// MaskCard keeps the first 6 and last 4 characters of a card number.
func MaskCard(pan string) string {
	if len(pan) < 10 {
		return maskedPlaceholder
	}
	return pan[:6] + strings.Repeat("*", len(pan)-10) + pan[len(pan)-4:]
}
