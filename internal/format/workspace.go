package format

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// WorkspaceDir returns the directory name for a workspace on branch.
// Pull request workspaces get a "_pr_<n>" suffix; pr <= 0 means none.
func WorkspaceDir(branch string, pr int) string {
	dir := SanitizeForPath(branch)
	if pr > 0 {
		dir += "_pr_" + strconv.Itoa(pr)
	}
	return dir
}

// SanitizeForPath replaces characters that are problematic in file paths
// Replaces: / \ : * ? " < > | with -
func SanitizeForPath(name string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"\"", "-",
		"<", "-",
		">", "-",
		"|", "-",
	)
	return replacer.Replace(name)
}

// Capitalize upper-cases the first rune of text unless suppress is set.
func Capitalize(text string, suppress bool) string {
	if suppress || text == "" {
		return text
	}
	r, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToUpper(r)) + text[size:]
}
