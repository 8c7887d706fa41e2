package identifier

import "regexp"

var (
	prRe         = regexp.MustCompile(`(?i)^pr[/-](\d+)$`)
	projectKeyRe = regexp.MustCompile(`^[A-Za-z]{2,}-\d+$`)
	numericRe    = regexp.MustCompile(`^#?(\d+)$`)
	branchRe     = regexp.MustCompile(`^[a-zA-Z0-9/_-]+$`)

	// Auto-detection patterns.
	prDirRe    = regexp.MustCompile(`_pr_(\d+)$`)
	issueRefRe = regexp.MustCompile(`(?i)(?:^|[/_-])issue[-_]([a-z]{2,}-\d+|\d+)(?:$|[/_-])`)
)
