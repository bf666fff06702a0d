package engine

import "strings"

const (
	// MaxTurnLines is the contribution normalization contract: every turn is
	// trimmed to at most this many non-blank lines. Downstream quota and
	// round logic assumes short, line-delimited turns, so this cap is applied
	// identically to every generated contribution, summaries included.
	MaxTurnLines = 3

	// FillerContent substitutes a contribution that normalized to nothing.
	FillerContent = "placeholder: no content produced"
)

// NormalizeContribution trims raw model output to its non-blank lines, keeps
// at most the first MaxTurnLines, and substitutes FillerContent when nothing
// remains. Idempotent: normalizing already-normalized text is a no-op.
func NormalizeContribution(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == MaxTurnLines {
			break
		}
	}

	if len(lines) == 0 {
		return FillerContent
	}
	return strings.Join(lines, "\n")
}
