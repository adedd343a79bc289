package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gd-practice/gd-coach/internal/app"
	"github.com/gd-practice/gd-coach/internal/application/command"
	"github.com/gd-practice/gd-coach/internal/application/query"
	"github.com/gd-practice/gd-coach/internal/domain/gamification"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

func newProgressCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show level, streak and this week's activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app.App) error {
				s := a.Progress.Summary()
				out := cmd.OutOrStdout()
				r := s.Record

				_, _ = fmt.Fprintf(out, "level %d %s  %d/%d XP (%.0f%%)\n",
					s.Level.Level, s.Title, s.Level.CurrentXP, s.Level.XPForNext, s.Level.Progress*100)
				_, _ = fmt.Fprintf(out, "total XP: %d\n", r.XP)
				_, _ = fmt.Fprintf(out, "streak: %d days (longest %d)\n", r.CurrentStreak, r.LongestStreak)
				_, _ = fmt.Fprintf(out, "responses: %d (%d voice)  sessions: %d  badges: %d\n",
					r.TotalResponses, r.VoiceResponses, r.TotalSessions, len(s.EarnedBadges))

				var week []string
				for _, d := range s.Weekly {
					week = append(week, fmt.Sprintf("%s:%d", d.Label, d.Count))
				}
				_, _ = fmt.Fprintf(out, "this week: %s  (%d active days)\n", strings.Join(week, " "), s.WeeklyCount)

				if s.PendingBadge != nil {
					_, _ = fmt.Fprintf(out, "new badge: %s %s\n", s.PendingBadge.Emoji, s.PendingBadge.Title)
					a.Progress.DismissBadge()
				}
				return nil
			})
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPOND
// ══════════════════════════════════════════════════════════════════════════════

func newRespondCmd(opts *rootOptions) *cobra.Command {
	var voice bool

	respond := &cobra.Command{
		Use:   "respond <session-id> <text...>",
		Short: "Record a practice response and print feedback",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := shared.InputText
			if voice {
				mode = shared.InputVoice
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := a.SubmitResponse.Handle(ctx, command.SubmitResponseCommand{
					SessionID: args[0],
					Text:      strings.Join(args[1:], " "),
					InputMode: mode,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "entry %s: %d words, +%d XP\n", res.Entry.ID, res.Entry.WordCount, res.Award.XPGained)
				printAward(out, res.Award.Award)
				if res.Entry.Analysis != nil {
					_, _ = fmt.Fprintf(out, "\n%s\n", *res.Entry.Analysis)
				}
				return nil
			})
		},
	}
	respond.Flags().BoolVar(&voice, "voice", false, "count the response as spoken")
	return respond
}

func printAward(out io.Writer, a gamification.Award) {
	for _, b := range a.NewBadges {
		_, _ = fmt.Fprintf(out, "badge unlocked: %s %s\n", b.Emoji, b.Title)
	}
	if a.LeveledUp() {
		_, _ = fmt.Fprintf(out, "level up: %d -> %d %s\n", a.LevelBefore, a.LevelAfter, a.LevelAfter.Title())
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

func newSessionCmd(opts *rootOptions) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Practice session commands"}

	var title, description, category, topic, customTopic string
	create := &cobra.Command{
		Use:   "create --title <title> --category <category>",
		Short: "Create a practice session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				res, err := a.CreateSession.Handle(ctx, command.CreateSessionCommand{
					Title:         title,
					Description:   description,
					Category:      practice.Category(category),
					SelectedTopic: topic,
					CustomTopic:   customTopic,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "session created: %s\ntopic: %s\n+%d XP\n", res.Session.ID, res.Session.Topic, res.Award.XPGained)
				printAward(out, res.Award)
				return nil
			})
		},
	}
	create.Flags().StringVar(&title, "title", "", "session title")
	create.Flags().StringVar(&description, "description", "", "session description")
	create.Flags().StringVar(&category, "category", "", "topic category, see `gdctl topic list`")
	create.Flags().StringVar(&topic, "topic", "", "one of the category's suggested topics")
	create.Flags().StringVar(&customTopic, "custom-topic", "", "your own topic, wins over --topic")

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				sessions := a.Sessions.List()
				if len(sessions) == 0 {
					_, _ = fmt.Fprintln(out, "no sessions")
					return nil
				}
				for _, s := range sessions {
					_, _ = fmt.Fprintf(out, "%s\t%s\t%s\t%d entries\t%d words\n",
						s.ID, s.Category, s.Title, len(s.Entries), s.TotalWords())
				}
				return nil
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session with its responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app.App) error {
				s, err := a.Sessions.Get(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "%s\ncategory: %s\ntopic: %s\n", s.Title, s.Category.Label(), s.Topic)
				for _, e := range s.Entries {
					_, _ = fmt.Fprintf(out, "\n[%s] %s (%d words, %s)\n%s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.WordCount, e.InputMode, e.Text)
					if e.Analysis != nil {
						_, _ = fmt.Fprintf(out, "feedback: %s\n", *e.Analysis)
					}
				}
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if err := a.Delete.DeleteSession(ctx, command.DeleteSessionCommand{SessionID: args[0]}); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session deleted: %s\n", args[0])
				return nil
			})
		},
	}

	session.AddCommand(create, list, show, del)
	return session
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES & TOPICS
// ══════════════════════════════════════════════════════════════════════════════

func newBadgesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "List every badge, earned ones first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				record := a.Progress.Snapshot()
				all := a.Progress.Catalog().All()

				for _, earned := range []bool{true, false} {
					for _, b := range all {
						if record.HasBadge(b.ID) != earned {
							continue
						}
						mark := " "
						if earned {
							mark = "x"
						}
						_, _ = fmt.Fprintf(out, "[%s] %s %-20s %s\n", mark, b.Emoji, b.Title, b.Description)
					}
				}
				return nil
			})
		},
	}
}

func newTopicCmd(opts *rootOptions) *cobra.Command {
	topic := &cobra.Command{Use: "topic", Short: "Browse discussion topics"}

	topic.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories and their topics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, c := range query.NewTopicsHandler(nil).Categories() {
				_, _ = fmt.Fprintf(out, "%s %s (%s)\n", c.Emoji, c.Label, c.ID)
				for _, t := range c.Topics {
					_, _ = fmt.Fprintf(out, "  - %s\n", t)
				}
			}
			return nil
		},
	})

	var current string
	random := &cobra.Command{
		Use:   "random <category>",
		Short: "Pick a random topic from a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := query.NewTopicsHandler(nil).RandomTopic(query.RandomTopicQuery{
				Category: practice.Category(args[0]),
				Current:  current,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
	random.Flags().StringVar(&current, "not", "", "topic to avoid repeating")

	topic.AddCommand(random)
	return topic
}

// ══════════════════════════════════════════════════════════════════════════════
// RESET
// ══════════════════════════════════════════════════════════════════════════════

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	reset := &cobra.Command{
		Use:   "reset --yes",
		Short: "Erase all XP, streaks and badges",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset progress without --yes")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				a.Progress.Reset(ctx)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "progress reset")
				return nil
			})
		},
	}
	reset.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return reset
}
