package styles

import (
	"strconv"

	"github.com/charmbracelet/x/ansi"

	"github.com/raphi011/loom/internal/tracker"
)

// Symbols holds the icon/symbol set based on nerdfont configuration
type Symbols struct {
	IssueOpen   string
	IssueClosed string
	PROpen      string
	PRClosed    string
}

// Default symbols (ASCII-safe)
var defaultSymbols = Symbols{
	IssueOpen:   "○",
	IssueClosed: "●",
	PROpen:      "◇",
	PRClosed:    "◆",
}

// Nerd font symbols
var nerdfontSymbols = Symbols{
	IssueOpen:   "\uf41b", // nf-oct-issue_opened
	IssueClosed: "\uf41d", // nf-oct-issue_closed
	PROpen:      "\uea64", // nf-oct-git_pull_request
	PRClosed:    "\uebda", // nf-oct-git_pull_request_closed
}

var currentSymbols = defaultSymbols

// SetNerdfont enables or disables nerd font symbols
func SetNerdfont(enabled bool) {
	if enabled {
		currentSymbols = nerdfontSymbols
	} else {
		currentSymbols = defaultSymbols
	}
}

// CurrentSymbols returns the current symbol set
func CurrentSymbols() Symbols {
	return currentSymbols
}

// ItemSymbol returns the symbol for an issue or pull request in state.
func ItemSymbol(t tracker.ItemType, state tracker.State) string {
	closed := state == tracker.StateClosed
	switch {
	case t == tracker.TypePR && closed:
		return currentSymbols.PRClosed
	case t == tracker.TypePR:
		return currentSymbols.PROpen
	case closed:
		return currentSymbols.IssueClosed
	default:
		return currentSymbols.IssueOpen
	}
}

// FormatState returns a colored "open" or "closed".
func FormatState(state tracker.State) string {
	if state == tracker.StateClosed {
		return MutedStyle.Render(string(state))
	}
	return SuccessStyle.Render(string(state))
}

// Ref returns how an identifier is shown: "#87" for numbers, keys as is.
func Ref(id string) string {
	if _, err := strconv.Atoi(id); err == nil {
		return "#" + id
	}
	return id
}

// FormatRef returns a colored Ref with an OSC 8 hyperlink to url.
func FormatRef(id, url string) string {
	text := Ref(id)
	if url == "" {
		return AccentStyle.Render(text)
	}
	styled := AccentStyle.Underline(true).Render(text)
	return ansi.SetHyperlink(url) + styled + ansi.ResetHyperlink()
}
