package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewPostsCmd creates the posts command group
func NewPostsCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List and create posts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List posts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListPosts(cmd.Context(), rt)
		},
	})

	var content string
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreatePost(cmd.Context(), rt, args[0], content)
		},
	}
	create.Flags().StringVar(&content, "content", "", "Post body")
	cmd.AddCommand(create)

	return cmd
}

func runListPosts(ctx context.Context, rt *Runtime) error {
	s, _, err := rt.openStartedSession(ctx)
	if err != nil {
		return err
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		return s.finish(err)
	}

	if len(posts) == 0 {
		rt.printf("No posts found\n")
		return s.finish(nil)
	}

	w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tTITLE")
	for _, p := range posts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Owner, p.Title)
	}
	if err := w.Flush(); err != nil {
		return s.finish(err)
	}

	return s.finish(nil)
}

func runCreatePost(ctx context.Context, rt *Runtime, title, content string) error {
	s, _, err := rt.openStartedSession(ctx)
	if err != nil {
		return err
	}

	post, err := s.CreatePost(ctx, title, content)
	if err != nil {
		return s.finish(err)
	}

	rt.printf("✓ Created post %s\n", post.ID)
	return s.finish(nil)
}
