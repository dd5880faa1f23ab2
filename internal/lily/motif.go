package lily

import (
	"regexp"
	"strings"
)

var (
	keyRe  = regexp.MustCompile(`\\key\s+([a-g](?:is|es|#|b)?)\s+\\(major|minor)`)
	timeRe = regexp.MustCompile(`\\time\s+(\d+/\d+)`)
)

// ExtractKeyAndTime performs a best-effort extraction of the key and time
// signature from a LilyPond motif, with sensible defaults when absent.
func ExtractKeyAndTime(motif string) (keyDesc, timeSig string) {
	keyDesc = "g major"
	timeSig = "2/4"

	if m := keyRe.FindStringSubmatch(motif); m != nil {
		tonic, mode := m[1], m[2]
		keyDesc = strings.NewReplacer("is", "#", "es", "b").Replace(tonic + " " + mode)
	}
	if m := timeRe.FindStringSubmatch(motif); m != nil {
		timeSig = m[1]
	}
	return keyDesc, timeSig
}
