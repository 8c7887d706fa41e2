package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/format"
	"github.com/raphi011/loom/internal/output"
	"github.com/raphi011/loom/internal/tracker"
	trgithub "github.com/raphi011/loom/internal/tracker/github"
)

func newCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comment",
		Short:   "Read, add and edit issue comments",
		GroupID: GroupIssues,
		Long: `Read, add and edit issue comments.

Comment ids are the ones shown by "loom issue view". A GitHub comment URL
(...#issuecomment-123) is accepted in place of the id. A body of "-" is
read from stdin.`,
		Example: `  loom comment get 87 1234567
  loom comment add ENG-123 "Fixed in #88"
  echo "Updated" | loom comment edit 87 1234567 -`,
	}

	cmd.AddCommand(newCommentGetCmd())
	cmd.AddCommand(newCommentAddCmd())
	cmd.AddCommand(newCommentEditCmd())

	return cmd
}

func newCommentGetCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <issue> <comment>",
		Short: "Show one comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tr, err := currentTracker(cmd)
			if err != nil {
				return err
			}
			cid, err := commentID(args[1])
			if err != nil {
				return err
			}

			c, err := tr.GetComment(ctx, issueID(args[0]), cid)
			if err != nil {
				return err
			}
			return printComment(cmd, c, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newCommentAddCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "add <issue> <body>",
		Short: "Add a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tr, err := currentTracker(cmd)
			if err != nil {
				return err
			}
			body, err := commentBody(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}

			c, err := tr.CreateComment(ctx, issueID(args[0]), body)
			if err != nil {
				return err
			}
			return printComment(cmd, c, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newCommentEditCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "edit <issue> <comment> <body>",
		Short: "Replace a comment's body",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tr, err := currentTracker(cmd)
			if err != nil {
				return err
			}
			cid, err := commentID(args[1])
			if err != nil {
				return err
			}
			body, err := commentBody(args[2], cmd.InOrStdin())
			if err != nil {
				return err
			}

			c, err := tr.UpdateComment(ctx, issueID(args[0]), cid, body)
			if err != nil {
				return err
			}
			return printComment(cmd, c, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func currentTracker(cmd *cobra.Command) (tracker.Tracker, error) {
	p, err := currentProject(cmd.Context())
	if err != nil {
		return nil, err
	}
	return p.readyTracker(cmd.Context())
}

// commentID accepts a plain id or a GitHub comment URL.
func commentID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		id, err := trgithub.CommentIDFromURL(raw)
		if err != nil {
			return "", errs.Validation("%v", err)
		}
		return id, nil
	}
	if raw == "" {
		return "", errs.Validation("missing comment id")
	}
	return raw, nil
}

// commentBody returns arg, or stdin when arg is "-".
func commentBody(arg string, stdin io.Reader) (string, error) {
	body := arg
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read comment from stdin: %w", err)
		}
		body = string(data)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", errs.Validation("comment body is empty")
	}
	return body, nil
}

func printComment(cmd *cobra.Command, c *tracker.Comment, jsonOutput bool) error {
	out := output.FromContext(cmd.Context())
	if jsonOutput {
		return out.JSON(c)
	}

	who := "unknown"
	if c.Author != nil {
		who = c.Author.DisplayName
		if who == "" {
			who = c.Author.Login
		}
	}
	when := c.UpdatedAt
	if when == "" {
		when = c.CreatedAt
	}
	out.Printf("%s (%s) %s\n", c.ID, who, format.ISOTime(when))
	if c.URL != "" {
		out.Println(c.URL)
	}
	out.Println()
	out.Println(c.Body)
	return nil
}
