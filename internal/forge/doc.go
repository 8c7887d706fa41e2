// Package forge provides an abstraction layer for git hosting services.
//
// A forge answers pull request questions for the repository, independent
// of which issue tracker the project uses: a project may keep issues in
// Linear while its code and pull requests live on GitHub.
//
// # Forge Interface
//
// The [Forge] interface defines operations for:
//
//   - Listing open pull requests, optionally only the user's own
//   - Checking whether a number is a pull request
//
// # Platforms
//
// GitHub is reached through the gh CLI, BitBucket through its REST API.
// Use [ParseProvider] to validate the configured name; an empty name means
// GitHub.
//
// Never call gh directly outside this package and the GitHub tracker.
package forge
