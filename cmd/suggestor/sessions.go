package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/cli"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage processing sessions",
	}

	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())
	cmd.AddCommand(sessionsExtendCmd())
	cmd.AddCommand(sessionsRequeueCmd())
	cmd.AddCommand(sessionsDeleteCmd())
	cmd.AddCommand(sessionsSweepCmd())

	return cmd
}

func sessionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()
			limit, _ := c.Flags().GetInt("limit")

			rt, err := buildRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			sessions, err := rt.store.ListSessions(ctx, limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println(cli.FormatInfo("No sessions."))
				return nil
			}

			for i := range sessions {
				s := &sessions[i]
				fmt.Printf("%-38s %-14s %4d%%  %s\n",
					s.Token, s.Status, s.Progress, formatAge(s.CreatedAt))
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum sessions to list")
	return cmd
}

func sessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-token>",
		Short: "Show one session's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()

			rt, err := buildRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.app.GetSessionStatus(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(cli.RenderSession(sess))
			return nil
		},
	}
}

func sessionsExtendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extend <session-token>",
		Short: "Push a session's expiry out",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			hours, _ := c.Flags().GetInt("hours")

			rt, err := buildRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.machine.ResolveToken(ctx, args[0])
			if err != nil {
				return err
			}
			if err := rt.machine.Extend(ctx, sess.ID, hours); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Extended by %dh", hours)))
			return nil
		},
	}
	cmd.Flags().Int("hours", 24, "hours to extend by")
	return cmd
}

func sessionsRequeueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <session-token>",
		Short: "Queue a failed session for another attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()

			rt, err := buildRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.machine.ResolveToken(ctx, args[0])
			if err != nil {
				return err
			}
			if err := rt.machine.Requeue(ctx, sess.ID); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Session requeued. Retry with: suggestor process --session %s <statement-file>", sess.Token)))
			return nil
		},
	}
}

func sessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-token>",
		Short: "Delete a session and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()

			rt, err := buildRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.app.DeleteSession(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Session deleted."))
			return nil
		},
	}
}

func sessionsSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove all expired sessions",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()

			rt, err := buildRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			removed, err := rt.machine.SweepExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed %d expired sessions", removed)))
			return nil
		},
	}
}
