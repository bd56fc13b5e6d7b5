// Package textscan recovers human-readable strings from binary data.
package textscan

import "strings"

// MinRunLength is the shortest printable run kept by ExtractReadable.
const MinRunLength = 4

func printable(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

// ExtractReadable returns every maximal run of printable ASCII bytes
// (0x20-0x7E) of at least MinRunLength bytes, joined by newlines in the order
// they appear. Applying it to its own output returns the same string.
func ExtractReadable(data []byte) string {
	var sb strings.Builder
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= MinRunLength {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.Write(data[start:end])
		}
		start = -1
	}

	for i, b := range data {
		if printable(b) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))

	return sb.String()
}

// Runs splits recovered text back into its individual runs.
func Runs(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
