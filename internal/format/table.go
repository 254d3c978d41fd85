// Package format renders knowledge-search hook results as a fixed-width
// markdown table.
package format

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SearchTool is the only tool whose results get formatted.
const SearchTool = "mcp__bluera-knowledge__search"

// Column content widths, not counting the separators.
const (
	ScoreWidth   = 6
	StoreWidth   = 12
	FileWidth    = 45
	PurposeWidth = 48
)

type Result struct {
	Score   float64 `json:"score"`
	Summary Summary `json:"summary"`
}

type Summary struct {
	StoreName *string `json:"storeName"`
	Location  string  `json:"location"`
	RepoRoot  string  `json:"repoRoot"`
	Purpose   string  `json:"purpose"`
}

// Table renders results for query. The output has no trailing newline.
func Table(results []Result, query string) string {
	lines := []string{
		fmt.Sprintf("## Search Results for \"%s\"", query),
		"",
	}

	if len(results) == 0 {
		lines = append(lines,
			fmt.Sprintf("No results found for \"%s\"", query),
			"",
			"Try:",
			"- Broadening your search terms",
			"- Checking if the relevant stores are indexed",
			"- Using /bluera-knowledge:stores to see available stores",
		)
		return strings.Join(lines, "\n")
	}

	lines = append(lines,
		fmt.Sprintf("| %s | %s | %s | %s |",
			padLeft("Score", ScoreWidth), padRight("Store", StoreWidth),
			padRight("File", FileWidth), padRight("Purpose", PurposeWidth)),
		fmt.Sprintf("|%s:|%s|%s|%s|",
			strings.Repeat("-", ScoreWidth+1), strings.Repeat("-", StoreWidth+2),
			strings.Repeat("-", FileWidth+2), strings.Repeat("-", PurposeWidth+2)),
	)

	for _, r := range results {
		store := "unknown"
		if r.Summary.StoreName != nil {
			store = *r.Summary.StoreName
		}
		lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |",
			Score(r.Score),
			padRight(Truncate(store, StoreWidth), StoreWidth),
			padRight(Truncate(RelativePath(r.Summary.Location, r.Summary.RepoRoot), FileWidth), FileWidth),
			padRight(Truncate(CleanPurpose(r.Summary.Purpose), PurposeWidth), PurposeWidth),
		))
	}

	lines = append(lines, "", fmt.Sprintf("**Found**: %d results", len(results)))
	return strings.Join(lines, "\n")
}

// Score renders a score with two decimals, right-aligned to ScoreWidth.
func Score(score float64) string {
	return padLeft(fmt.Sprintf("%5.2f", score), ScoreWidth)
}

// Truncate shortens text to max characters, ending in "..." when cut.
func Truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-3]) + "..."
}

// RelativePath strips repoRoot and any leading slashes from location.
func RelativePath(location, repoRoot string) string {
	if repoRoot != "" && strings.HasPrefix(location, repoRoot) {
		return strings.TrimLeft(location[len(repoRoot):], "/")
	}
	return location
}

func CleanPurpose(purpose string) string {
	return strings.TrimSpace(strings.ReplaceAll(purpose, "\n", " "))
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func padLeft(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}
