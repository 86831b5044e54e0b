package cli

import (
	"errors"
	"fmt"

	"github.com/leandroluk/larago/core"
	"github.com/leandroluk/larago/internal/database"
	"github.com/spf13/cobra"
)

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(
		newUserCreateCommand(),
		newUserListCommand(),
		newUserShowCommand(),
		newUserUpdateCommand(),
		newUserDeleteCommand(),
		newUserRestoreCommand(),
		newUserForceDeleteCommand(),
		newUserVerifyCommand(),
	)
	return cmd
}

// findUser loads a user by its command-line key. Trashed users are included
// when withTrashed is set.
func (s *session) findUser(cmd *cobra.Command, raw string, withTrashed bool) (*core.Record, error) {
	query := s.app.Users.Query()
	if withTrashed {
		query = query.WithTrashed()
	}
	return query.FindOrFail(cmd.Context(), database.ParseKey(s.cfg.Database.Driver, raw))
}

func (s *session) parseKeys(args []string) []any {
	keys := make([]any, len(args))
	for i, arg := range args {
		keys[i] = database.ParseKey(s.cfg.Database.Driver, arg)
	}
	return keys
}

func newUserCreateCommand() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a user",
		Example: `  larago user create --name Ann --email ann@example.com --password secret`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			values := map[string]any{"name": name, "email": email}
			if password != "" {
				values["password"] = password
			}
			user, err := s.app.Users.Create(cmd.Context(), values)
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), userColumns, []*core.Record{user})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "User name")
	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&password, "password", "", "Plain password, stored as a bcrypt hash")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserListCommand() *cobra.Command {
	var trashed, onlyTrashed, active, verified bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Long: `List users ordered by id. Soft-deleted users are hidden unless
--trashed or --only-trashed is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			query := s.app.Users.Query().OrderBy(s.app.Users.KeyName(), 1)
			switch {
			case onlyTrashed:
				query = query.OnlyTrashed()
			case trashed:
				query = query.WithTrashed()
			}
			if active {
				query = query.Scope("active")
			}
			if verified {
				query = query.Scope("verified")
			}
			users, err := query.Get(cmd.Context())
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), userColumns, users)
		},
	}
	cmd.Flags().BoolVar(&trashed, "trashed", false, "Include soft-deleted users")
	cmd.Flags().BoolVar(&onlyTrashed, "only-trashed", false, "Only soft-deleted users")
	cmd.Flags().BoolVar(&active, "active", false, "Only active users")
	cmd.Flags().BoolVar(&verified, "verified", false, "Only users with a verified email")
	cmd.MarkFlagsMutuallyExclusive("trashed", "only-trashed")
	return cmd
}

func newUserShowCommand() *cobra.Command {
	var trashed bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a user and their posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			user, err := s.findUser(cmd, args[0], trashed)
			if err != nil {
				return err
			}
			if err := s.render(cmd.OutOrStdout(), userColumns, []*core.Record{user}); err != nil {
				return err
			}
			posts, err := s.app.UserPosts.Get(cmd.Context(), user)
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), postColumns, posts)
		},
	}
	cmd.Flags().BoolVar(&trashed, "trashed", false, "Also find soft-deleted users")
	return cmd
}

func newUserUpdateCommand() *cobra.Command {
	var name, email, password string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user",
		Long:  `Update the given fields of a user. Changing the email drops its verification.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			values := map[string]any{}
			if cmd.Flags().Changed("name") {
				values["name"] = name
			}
			if cmd.Flags().Changed("email") {
				values["email"] = email
			}
			if cmd.Flags().Changed("password") {
				values["password"] = password
			}
			if cmd.Flags().Changed("active") {
				values["active"] = active
			}
			if len(values) == 0 {
				return errors.New("nothing to update")
			}
			user, err := s.findUser(cmd, args[0], false)
			if err != nil {
				return err
			}
			if err := user.Update(cmd.Context(), values); err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), userColumns, []*core.Record{user})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	cmd.Flags().StringVar(&password, "password", "", "New plain password")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the user is active")
	return cmd
}

func newUserDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a user and their posts in one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			user, err := s.findUser(cmd, args[0], false)
			if err != nil {
				return err
			}
			if err := s.app.DeleteUser(cmd.Context(), user); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %v deleted\n", user.Key())
			return nil
		},
	}
}

func newUserRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>...",
		Short: "Restore soft-deleted users",
		Long: `Restore every given user. Failures are reported together after all
users were tried.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			restored, err := s.app.Users.RestoreAll(cmd.Context(), s.parseKeys(args)...)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d users restored\n", restored, len(args))
			return err
		},
	}
}

func newUserForceDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "force-delete <id>...",
		Short: "Permanently delete users and their posts",
		Long: `Permanently delete every given user with their posts, one transaction
per user. Failures are reported together after all users were tried.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			deleted, err := s.app.ForceDeleteUsers(cmd.Context(), s.parseKeys(args)...)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d users deleted\n", deleted, len(args))
			return err
		},
	}
}

func newUserVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Mark a user's email as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			user, err := s.findUser(cmd, args[0], false)
			if err != nil {
				return err
			}
			if err := s.app.Verify(cmd.Context(), user); err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), userColumns, []*core.Record{user})
		},
	}
}
