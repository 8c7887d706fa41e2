// Package cmd provides helpers for executing external programs with proper error handling.
//
// This package wraps [os/exec.Cmd] to capture stderr and surface it as the
// error message, making CLI failures (gh, git) readable and classifiable.
//
// # Usage
//
//	out, err := cmd.OutputContext(ctx, "", "gh", "issue", "list", "--json", "number")
//	if err != nil {
//	    // err is a *cmd.Error whose message is gh's stderr
//	}
//
// Code that must be testable without the real binaries depends on [Runner]
// and receives [ExecRunner] in production.
//
// # Design Notes
//
// loom shells out to the gh CLI for GitHub rather than using an API client,
// so it reuses the user's existing gh authentication.
package cmd
