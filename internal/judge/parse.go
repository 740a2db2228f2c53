package judge

import (
	"regexp"
	"strings"

	"github.com/planjudge/planjudge/internal/result"
)

// The judge is instructed to end its reply with a line of the form
// "VERDICT: WIN|LOSE|TIE". Models restate the tokens while reasoning, so the
// last occurrence is the verdict; earlier matches are discarded.
var verdictRe = regexp.MustCompile(`(?i)\bVERDICT:\s*(WIN|LOSE|TIE)\b`)

// ParseVerdict extracts the verdict category from raw judge output. The
// second return is false when no verdict token is present; callers record
// CategoryError and retain the raw text instead of guessing.
func ParseVerdict(raw string) (result.Category, bool) {
	matches := verdictRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return result.CategoryError, false
	}
	switch strings.ToUpper(matches[len(matches)-1][1]) {
	case "WIN":
		return result.CategoryWin, true
	case "LOSE":
		return result.CategoryLose, true
	default:
		return result.CategoryTie, true
	}
}
