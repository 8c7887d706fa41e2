package format

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultBranchFormat is the default format for branch names
const DefaultBranchFormat = "{type}-{id}-{slug}"

// MaxSlugLength caps the title part of a branch name.
const MaxSlugLength = 40

// ValidPlaceholders lists all supported placeholders
var ValidPlaceholders = []string{"{type}", "{id}", "{slug}"}

// BranchParams contains the values for placeholder substitution
type BranchParams struct {
	Type  string // "issue" or "pr"
	ID    string // issue key or number
	Title string // raw title, slugified on render
}

// placeholderRegex matches {placeholder-name} patterns
var placeholderRegex = regexp.MustCompile(`\{[a-z-]+\}`)

// ValidateFormat checks if a format string is valid
// Returns error if format contains unknown placeholders
func ValidateFormat(format string) error {
	matches := placeholderRegex.FindAllString(format, -1)
	for _, match := range matches {
		if !isValidPlaceholder(match) {
			return fmt.Errorf("unknown placeholder %q in format %q (valid: %s)",
				match, format, strings.Join(ValidPlaceholders, ", "))
		}
	}

	// {id} keeps branch names unique per issue
	if !strings.Contains(format, "{id}") {
		return fmt.Errorf("format %q must contain the {id} placeholder", format)
	}

	return nil
}

// isValidPlaceholder checks if a placeholder is in the valid list
func isValidPlaceholder(placeholder string) bool {
	for _, valid := range ValidPlaceholders {
		if placeholder == valid {
			return true
		}
	}
	return false
}

var dashRuns = regexp.MustCompile(`-{2,}`)

// BranchName applies the format template to generate a branch name.
// An empty format uses DefaultBranchFormat.
func BranchName(format string, params BranchParams) string {
	if format == "" {
		format = DefaultBranchFormat
	}
	result := format
	result = strings.ReplaceAll(result, "{type}", SanitizeForBranch(params.Type))
	result = strings.ReplaceAll(result, "{id}", SanitizeForBranch(params.ID))
	result = strings.ReplaceAll(result, "{slug}", Slug(params.Title))
	result = dashRuns.ReplaceAllString(result, "-")
	return strings.Trim(result, "-_/")
}

// Slug lowercases s and joins its alphanumeric runs with dashes, cut to
// MaxSlugLength without leaving a trailing dash.
func Slug(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	slug := b.String()
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	return slug
}

// SanitizeForBranch replaces characters outside the branch name set
// [a-zA-Z0-9/_-] with -
func SanitizeForBranch(name string) string {
	return strings.Map(func(r rune) rune {
		if isBranchRune(r) {
			return r
		}
		return '-'
	}, name)
}

func isBranchRune(r rune) bool {
	if r >= utf8.RuneSelf {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/' || r == '_' || r == '-'
}
