package banks

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultMaxDistance is the largest edit distance still offered as a
// suggestion. Anything further from the directory is rejected outright.
const DefaultMaxDistance = 3

// Match is the closest directory entry for a piece of free text.
type Match struct {
	Bank     Bank
	Distance int
}

// Exact reports whether the input matched a directory name verbatim
// (ignoring case and surrounding whitespace).
func (m Match) Exact() bool {
	return m.Distance == 0
}

// Resolve finds the directory entry closest to freeText by Levenshtein
// distance over lower-cased names. The lowest distance wins; ties keep
// the earlier directory entry. The boolean is false only for blank input.
// Threshold policy (auto-accept, suggest, reject) is the caller's.
func Resolve(freeText string) (Match, bool) {
	needle := strings.ToLower(strings.TrimSpace(freeText))
	if needle == "" {
		return Match{}, false
	}

	best := Match{Distance: -1}
	for _, b := range directory {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(b.Name))
		if best.Distance < 0 || d < best.Distance {
			best = Match{Bank: b, Distance: d}
			if d == 0 {
				break
			}
		}
	}
	return best, true
}
