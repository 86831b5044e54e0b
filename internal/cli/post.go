package cli

import (
	"github.com/leandroluk/larago/core"
	"github.com/leandroluk/larago/internal/database"
	"github.com/spf13/cobra"
)

func newPostCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage posts",
	}
	cmd.AddCommand(newPostCreateCommand(), newPostListCommand(), newPostPublishCommand())
	return cmd
}

func newPostCreateCommand() *cobra.Command {
	var userID, title, body string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			post, err := s.app.Posts.Create(cmd.Context(), map[string]any{
				"user_id": database.ParseKey(s.cfg.Database.Driver, userID),
				"title":   title,
				"body":    body,
			})
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), postColumns, []*core.Record{post})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Author id")
	cmd.Flags().StringVar(&title, "title", "", "Post title")
	cmd.Flags().StringVar(&body, "body", "", "Post body")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newPostListCommand() *cobra.Command {
	var userID string
	var published, drafts, trashed bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			query := s.app.Posts.Query().OrderBy(s.app.Posts.KeyName(), 1)
			if trashed {
				query = query.WithTrashed()
			}
			if userID != "" {
				query = query.Scope("by", database.ParseKey(s.cfg.Database.Driver, userID))
			}
			switch {
			case published:
				query = query.Scope("published")
			case drafts:
				query = query.Scope("draft")
			}
			posts, err := query.Get(cmd.Context())
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), postColumns, posts)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Only posts by this author")
	cmd.Flags().BoolVar(&published, "published", false, "Only published posts")
	cmd.Flags().BoolVar(&drafts, "drafts", false, "Only drafts")
	cmd.Flags().BoolVar(&trashed, "trashed", false, "Include soft-deleted posts")
	cmd.MarkFlagsMutuallyExclusive("published", "drafts")
	return cmd
}

func newPostPublishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			post, err := s.app.Posts.FindOrFail(cmd.Context(), database.ParseKey(s.cfg.Database.Driver, args[0]))
			if err != nil {
				return err
			}
			if err := s.app.Publish(cmd.Context(), post); err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), postColumns, []*core.Record{post})
		},
	}
}
