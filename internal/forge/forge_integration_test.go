//go:build integration

package forge

import (
	"context"
	"os"
	"testing"

	gh "github.com/raphi011/loom/internal/github"
)

// LOOM_TEST_GITHUB_CHECKOUT points at a local clone of a GitHub repository
// that gh can access.
func testCheckout(t *testing.T) string {
	dir := os.Getenv("LOOM_TEST_GITHUB_CHECKOUT")
	if dir == "" {
		t.Skip("LOOM_TEST_GITHUB_CHECKOUT not set")
	}
	return dir
}

func TestGitHub_Integration_ListPullRequests(t *testing.T) {
	cli := gh.NewCLI(testCheckout(t))
	if err := cli.Check(context.Background()); err != nil {
		t.Skipf("gh unavailable: %v", err)
	}

	items, err := NewGitHub(cli).ListPullRequests(context.Background(), ListOptions{Limit: 5})
	if err != nil {
		t.Fatalf("ListPullRequests: %v", err)
	}
	if len(items) > 5 {
		t.Errorf("got %d items, want at most 5", len(items))
	}
	for _, it := range items {
		if it.Type != "pr" {
			t.Errorf("item %s type = %q, want pr", it.ID, it.Type)
		}
	}
}

func TestGitHub_Integration_IsPullRequest(t *testing.T) {
	cli := gh.NewCLI(testCheckout(t))
	if err := cli.Check(context.Background()); err != nil {
		t.Skipf("gh unavailable: %v", err)
	}

	ok, err := NewGitHub(cli).IsPullRequest(context.Background(), 999999)
	if err != nil {
		t.Fatalf("IsPullRequest: %v", err)
	}
	if ok {
		t.Error("IsPullRequest(999999) = true, want false")
	}
}
