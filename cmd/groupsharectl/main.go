package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kraimerman/groupsharelinksQA/internal/config"
	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/docstore/memstore"
	"github.com/kraimerman/groupsharelinksQA/internal/docstore/postgres"
	redistore "github.com/kraimerman/groupsharelinksQA/internal/docstore/redis"
	"github.com/kraimerman/groupsharelinksQA/internal/docstore/reststore"
	"github.com/kraimerman/groupsharelinksQA/internal/docstore/sqlite"
	"github.com/kraimerman/groupsharelinksQA/internal/engine"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
	"github.com/kraimerman/groupsharelinksQA/internal/platform/logger"
	"github.com/kraimerman/groupsharelinksQA/internal/session"
	"github.com/kraimerman/groupsharelinksQA/internal/state"
)

var backend string
var principal string
var debug bool

const opTimeout = 15 * time.Second

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "groupsharectl",
		Short: "groupsharectl manages link-sharing groups from the command line",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
			log.Logger = logger.Console("groupsharectl", debug)
			if debug {
				log.Debug().Msg("debug logging enabled")
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Document store backend (memory, sqlite, postgres, redis, rest); overrides GROUPSHARE_STORE_BACKEND")
	rootCmd.PersistentFlags().StringVar(&principal, "as", "", "Act as this email; overrides GROUPSHARE_PRINCIPAL")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")

	rootCmd.AddCommand(newSignupCmd())
	rootCmd.AddCommand(newUpdateProfileCmd())
	rootCmd.AddCommand(newSearchUsersCmd())
	rootCmd.AddCommand(newCreateGroupCmd())
	rootCmd.AddCommand(newListGroupsCmd())
	rootCmd.AddCommand(newRenameGroupCmd())
	rootCmd.AddCommand(newAddMemberCmd())
	rootCmd.AddCommand(newAddMembersCmd())
	rootCmd.AddCommand(newRemoveMemberCmd())
	rootCmd.AddCommand(newShareLinkCmd())
	rootCmd.AddCommand(newUpdateLinkCmd())
	rootCmd.AddCommand(newVoteCmd())
	rootCmd.AddCommand(newCommentCmd())

	return rootCmd
}

// newClient assembles configuration, store, session and engine, hydrating
// for the configured principal. The returned closer releases the backend
// connection.
func newClient(ctx context.Context) (*engine.Engine, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	if backend != "" {
		cfg.StoreBackend = backend
		if err := cfg.ResolveDefaults(); err != nil {
			return nil, nil, err
		}
	}
	if principal != "" {
		cfg.Principal = principal
	}

	var store docstore.Store
	closer := func() {}
	switch cfg.StoreBackend {
	case "memory":
		store = memstore.New()
	case "sqlite":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, closer = s, func() { _ = s.Close() }
	case "postgres":
		s, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store, closer = s, func() { _ = s.Close() }
	case "redis":
		s, err := redistore.Open(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store, closer = s, func() { _ = s.Close() }
	case "rest":
		store = reststore.New(cfg.RestBaseURL)
	default:
		return nil, nil, fmt.Errorf("unsupported backend: %s", cfg.StoreBackend)
	}

	sess := session.NewStatic()
	if cfg.Principal != "" {
		sess.SignIn(cfg.Principal)
	}

	eng := engine.New(store, sess, state.New(), log.Logger)
	if cfg.Principal != "" {
		if err := eng.Hydrate(ctx); err != nil {
			closer()
			return nil, nil, err
		}
	}
	return eng, closer, nil
}

func newSignupCmd() *cobra.Command {
	var email, nickname string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a user profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			p, err := eng.CreateProfile(ctx, email, nickname)
			if err != nil {
				return err
			}
			fmt.Printf("Profile created: %s (%s)\n", p.Email, p.Nickname)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&nickname, "nickname", "", "Display nickname (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("nickname")
	return cmd
}

func newUpdateProfileCmd() *cobra.Command {
	var nickname string

	cmd := &cobra.Command{
		Use:   "update-profile",
		Short: "Change your nickname everywhere it appears",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.UpdateProfile(ctx, nickname); err != nil {
				return err
			}
			fmt.Printf("Nickname updated to %s\n", strings.TrimSpace(nickname))
			return nil
		},
	}

	cmd.Flags().StringVar(&nickname, "nickname", "", "New nickname (required)")
	_ = cmd.MarkFlagRequired("nickname")
	return cmd
}

func newSearchUsersCmd() *cobra.Command {
	var term string

	cmd := &cobra.Command{
		Use:   "search-users",
		Short: "Search profiles by email or nickname prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			results := eng.SearchUsers(ctx, term)
			printUsers(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().StringVar(&term, "term", "", "Search term, at least 2 characters (required)")
	_ = cmd.MarkFlagRequired("term")
	return cmd
}

func newCreateGroupCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-group",
		Short: "Create a group owned by you",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			g, err := eng.CreateGroup(ctx, name)
			if err != nil {
				return err
			}
			fmt.Printf("Group created: %s - %s\n", g.ID, g.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Group name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newListGroupsCmd() *cobra.Command {
	var links, asJSON bool

	cmd := &cobra.Command{
		Use:   "list-groups",
		Short: "List the groups you belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			snap := eng.State().Snapshot()
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(snap.Groups)
			}
			for _, g := range snap.Groups {
				fmt.Fprintf(w, "%s  %s  owner=%s  members=%d  links=%d\n",
					g.ID, g.Name, g.CreatedBy, len(g.MemberEmails), len(g.Links))
				if !links {
					continue
				}
				for _, l := range g.Links {
					fmt.Fprintf(w, "  %s  %s  %s  by %s  +%d/-%d  comments=%d\n",
						l.ID, l.Title, l.URL, l.AuthorNickname,
						len(l.Votes.Up), len(l.Votes.Down), len(l.Comments))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&links, "links", false, "Also list each group's links")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw group documents as JSON")
	return cmd
}

func newRenameGroupCmd() *cobra.Command {
	var groupID, name string

	cmd := &cobra.Command{
		Use:   "rename-group",
		Short: "Rename a group you own",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.RenameGroup(ctx, groupID, name); err != nil {
				return err
			}
			fmt.Printf("Group %s renamed to %s\n", groupID, strings.TrimSpace(name))
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group-id", "", "Group ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "New group name (required)")
	_ = cmd.MarkFlagRequired("group-id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAddMemberCmd() *cobra.Command {
	var groupID, email string

	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Add a single member to a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.AddMember(ctx, groupID, email); err != nil {
				return err
			}
			fmt.Printf("Added %s to %s\n", email, groupID)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group-id", "", "Group ID (required)")
	cmd.Flags().StringVar(&email, "email", "", "Member email (required)")
	_ = cmd.MarkFlagRequired("group-id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAddMembersCmd() *cobra.Command {
	var groupID string
	var emails []string

	cmd := &cobra.Command{
		Use:   "add-members",
		Short: "Add members to a group; all listed users must exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			added, err := eng.AddMembers(ctx, groupID, emails)
			if err != nil {
				return err
			}
			fmt.Printf("Added %d member(s): %s\n", len(added), strings.Join(added, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group-id", "", "Group ID (required)")
	cmd.Flags().StringSliceVar(&emails, "email", nil, "Member email, repeatable (required)")
	_ = cmd.MarkFlagRequired("group-id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRemoveMemberCmd() *cobra.Command {
	var groupID, email string

	cmd := &cobra.Command{
		Use:   "remove-member",
		Short: "Remove a member from a group you own",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.RemoveMember(ctx, groupID, email); err != nil {
				return err
			}
			fmt.Printf("Removed %s from %s\n", email, groupID)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group-id", "", "Group ID (required)")
	cmd.Flags().StringVar(&email, "email", "", "Member email (required)")
	_ = cmd.MarkFlagRequired("group-id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newShareLinkCmd() *cobra.Command {
	var groupID, linkURL, title, description string

	cmd := &cobra.Command{
		Use:   "share-link",
		Short: "Share a link with a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			l, err := eng.ShareLink(ctx, groupID, linkURL, title, description)
			if err != nil {
				return err
			}
			fmt.Printf("Link shared: %s - %s\n", l.ID, l.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group-id", "", "Group ID (required)")
	cmd.Flags().StringVar(&linkURL, "url", "", "Link URL (required)")
	cmd.Flags().StringVar(&title, "title", "", "Link title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description (optional)")
	_ = cmd.MarkFlagRequired("group-id")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newUpdateLinkCmd() *cobra.Command {
	var groupID, linkID string
	var title, linkURL, description string

	cmd := &cobra.Command{
		Use:   "update-link",
		Short: "Edit a link you authored",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			var upd engine.LinkUpdate
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("url") {
				upd.URL = &linkURL
			}
			if cmd.Flags().Changed("description") {
				upd.Description = &description
			}

			if err := eng.UpdateLink(ctx, groupID, linkID, upd); err != nil {
				return err
			}
			fmt.Printf("Link %s updated\n", linkID)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group-id", "", "Group ID (required)")
	cmd.Flags().StringVar(&linkID, "link-id", "", "Link ID (required)")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&linkURL, "url", "", "New URL")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	_ = cmd.MarkFlagRequired("group-id")
	_ = cmd.MarkFlagRequired("link-id")
	return cmd
}

func newVoteCmd() *cobra.Command {
	var groupID, linkID, direction string

	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Toggle your vote on a link (up or down)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.ToggleVote(ctx, groupID, linkID, engine.VoteDirection(direction)); err != nil {
				return err
			}
			fmt.Printf("Vote %s toggled on %s\n", direction, linkID)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group-id", "", "Group ID (required)")
	cmd.Flags().StringVar(&linkID, "link-id", "", "Link ID (required)")
	cmd.Flags().StringVar(&direction, "direction", "up", "Vote direction: up or down")
	_ = cmd.MarkFlagRequired("group-id")
	_ = cmd.MarkFlagRequired("link-id")
	return cmd
}

func newCommentCmd() *cobra.Command {
	var groupID, linkID, content string

	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Comment on a link",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			eng, closer, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.AddComment(ctx, groupID, linkID, content); err != nil {
				return err
			}
			fmt.Printf("Comment added to %s\n", linkID)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group-id", "", "Group ID (required)")
	cmd.Flags().StringVar(&linkID, "link-id", "", "Link ID (required)")
	cmd.Flags().StringVar(&content, "content", "", "Comment text (required)")
	_ = cmd.MarkFlagRequired("group-id")
	_ = cmd.MarkFlagRequired("link-id")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func printUsers(w io.Writer, users []*model.UserProfile) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found")
		return
	}
	for _, u := range users {
		fmt.Fprintf(w, "%s  %s\n", u.Email, u.Nickname)
	}
}
