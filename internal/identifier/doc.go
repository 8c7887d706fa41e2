// Package identifier classifies the token a user types into an issue,
// pull request, branch or free-text description.
//
// # Classification order
//
// The first matching rule wins, on the trimmed input:
//
//  1. empty: ValidationError "missing identifier"
//  2. longer than 15 characters and containing a space: description
//  3. pr/45, PR-45: pull request
//  4. project key (ENG-123): issue, after the tracker confirms it exists
//  5. bare number (87, #87): issue or pull request, see below
//  6. branch name characters only: branch, else ValidationError
//
// Bare numbers are ambiguous. Trackers with native pull requests decide
// themselves. For trackers without them (Linear, Jira) the VCS host is asked
// whether the number is a PR first; otherwise the number is an issue.
//
// # Auto-detection
//
// [Detect] derives the same result from the working directory and current
// branch when no identifier is given.
package identifier
