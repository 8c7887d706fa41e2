// Package tracker defines the common contract over issue trackers.
//
// GitHub, Linear, Jira and BitBucket each ship an adapter in a subpackage
// that implements [Tracker]. Adapters normalize what differs upstream:
//
//   - state collapses to "open" or "closed" through a [StateTable]
//   - authors become an [Author] via the adapter's normalizeAuthor
//   - ids are always strings
//
// Backend-specific detail (labels, milestone, assignees, raw extras) rides
// along on [Issue] as optional fields instead of being dropped.
//
// Trackers with native pull requests also implement [PullRequestResolver],
// which the identifier classifier uses to disambiguate bare numbers.
package tracker
