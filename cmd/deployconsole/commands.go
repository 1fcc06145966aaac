package main

import (
	"fmt"

	"deployconsole/internal/mgmt"
	"deployconsole/internal/poll"
	"deployconsole/internal/server"
	"deployconsole/internal/ui"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd(opts *options) *cobra.Command {
	var (
		rollouts bool
		actionID int64
	)
	cmd := &cobra.Command{
		Use:   "watch [target]",
		Short: "Open the interactive timeline for a target's actions (or --rollouts)",
		Args:  cobra.MaximumNArgs(1),
		RunE: opts.run(true, func(cmd *cobra.Command, args []string) error {
			var (
				f     poll.Fetcher
				title string
				err   error
			)
			switch {
			case rollouts:
				var c *mgmt.Client
				if c, err = opts.client(); err == nil {
					f = &mgmt.RolloutsFetcher{Client: c, Limit: opts.cfg.Server.PageLimit}
				}
				title = "Rollouts"
			case len(args) == 1:
				f, err = opts.actionsFetcher(args[0], actionID)
				title = targetTitle(args[0], actionID)
			default:
				return fmt.Errorf("watch needs a target ID or --rollouts")
			}
			if err != nil {
				return err
			}
			return ui.Run(cmd.Context(), title, poll.NewScheduler(f, opts.policy()))
		}),
	}
	cmd.Flags().BoolVar(&rollouts, "rollouts", false, "Watch rollouts instead of a single target")
	cmd.Flags().Int64Var(&actionID, "action", 0, "Watch only this action of the target")
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	var actionID int64
	cmd := &cobra.Command{
		Use:   "status <target>",
		Short: "Print the current timeline of a target's actions",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(false, func(cmd *cobra.Command, args []string) error {
			f, err := opts.actionsFetcher(args[0], actionID)
			if err != nil {
				return err
			}
			res := poll.NewScheduler(f, opts.policy()).Once(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderReport(targetTitle(args[0], actionID), res, 120))
			return res.Err
		}),
	}
	cmd.Flags().Int64Var(&actionID, "action", 0, "Print only this action of the target")
	return cmd
}

func newRolloutsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rollouts",
		Short: "Print the phase of recent rollouts",
		Args:  cobra.NoArgs,
		RunE: opts.run(false, func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			f := &mgmt.RolloutsFetcher{Client: c, Limit: opts.cfg.Server.PageLimit}
			res := poll.NewScheduler(f, opts.policy()).Once(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderReport("Rollouts", res, 120))
			return res.Err
		}),
	}
}

func newServeCmd(opts *options) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve <target>",
		Short: "Poll a target and serve its resolved timeline over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(false, func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = opts.cfg.Listen
			}
			f, err := opts.actionsFetcher(args[0], 0)
			if err != nil {
				return err
			}
			// Serving stops polling only when the process does.
			p := opts.policy()
			p.StopWhenSettled = false
			sched := poll.NewScheduler(f, p)
			srv := server.New(sched)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return sched.Run(ctx, srv.Record) })
			g.Go(func() error { return srv.ListenAndServe(ctx, listen) })
			err = g.Wait()
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		}),
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (default from config)")
	return cmd
}
