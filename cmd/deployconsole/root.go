package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"deployconsole/internal/config"
	"deployconsole/internal/log"
	"deployconsole/internal/mgmt"
	"deployconsole/internal/poll"
	"deployconsole/internal/telemetry"

	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	debug      bool
	logFile    string
	url        string

	cfg      config.Config
	logSink  io.Closer
	shutdown telemetry.ShutdownFunc
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "deployconsole",
		Short:         "Watch deployment actions and rollouts from the terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to the YAML config file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Write logs to this file (the interactive console defaults to a state file)")
	root.PersistentFlags().StringVar(&opts.url, "url", "", "Management server base URL (overrides config)")

	watch := newWatchCmd(opts)
	root.Args = cobra.MaximumNArgs(1)
	root.RunE = watch.RunE

	root.AddCommand(watch)
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newRolloutsCmd(opts))
	root.AddCommand(newServeCmd(opts))
	return root
}

// setup loads configuration and configures logging and tracing. Interactive
// commands must not log to the terminal, so they pass interactive=true.
func (o *options) setup(ctx context.Context, interactive bool) error {
	explicit := o.configPath != config.DefaultPath()
	cfg, err := config.Load(o.configPath, explicit)
	if err != nil {
		return err
	}
	if o.url != "" {
		cfg.Server.URL = o.url
	}
	if o.debug {
		cfg.Log.Level = "debug"
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	o.cfg = cfg

	var out io.Writer = os.Stderr
	if cfg.Log.File == "" && interactive {
		cfg.Log.File = log.DefaultFile()
	}
	if cfg.Log.File != "" {
		f, err := log.OpenFile(cfg.Log.File)
		if err != nil {
			return err
		}
		o.logSink = f
		out = f
	}
	log.Configure(log.Config{Level: cfg.Log.Level, Output: out})

	shutdown, err := telemetry.Setup(ctx, "deployconsole")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	o.shutdown = shutdown
	return nil
}

// run wraps a command body with setup and teardown.
func (o *options) run(interactive bool, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := o.setup(cmd.Context(), interactive); err != nil {
			return err
		}
		defer func() {
			if cerr := o.close(cmd.Context()); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (o *options) close(ctx context.Context) error {
	if o.shutdown != nil {
		if err := o.shutdown(context.WithoutCancel(ctx)); err != nil {
			l := log.WithComponent("cli")
			l.Warn().Err(err).Msg("flush traces")
		}
	}
	if o.logSink != nil {
		return o.logSink.Close()
	}
	return nil
}

func (o *options) client() (*mgmt.Client, error) {
	s := o.cfg.Server
	return mgmt.NewClient(s.URL,
		mgmt.WithTimeout(s.Timeout),
		mgmt.WithCredentials(s.Tenant, s.Username, s.Password),
	)
}

func (o *options) policy() poll.Policy {
	return poll.Policy{
		Active:          o.cfg.Poll.Active,
		Idle:            o.cfg.Poll.Idle,
		StopWhenSettled: o.cfg.Poll.StopWhenSettled,
	}
}

// actionsFetcher builds the fetcher for one target's actions, or for a
// single action when actionID is set.
func (o *options) actionsFetcher(targetID string, actionID int64) (poll.Fetcher, error) {
	c, err := o.client()
	if err != nil {
		return nil, err
	}
	if actionID > 0 {
		return &mgmt.ActionFetcher{
			Client:       c,
			TargetID:     targetID,
			ActionID:     actionID,
			WithMessages: true,
			MessageLimit: o.cfg.Server.PageLimit,
		}, nil
	}
	return &mgmt.ActionsFetcher{
		Client:       c,
		TargetID:     targetID,
		Limit:        o.cfg.Server.PageLimit,
		WithMessages: true,
		MessageLimit: o.cfg.Server.PageLimit,
	}, nil
}

func targetTitle(targetID string, actionID int64) string {
	if actionID > 0 {
		return fmt.Sprintf("Target %s action #%d", targetID, actionID)
	}
	return "Target " + targetID
}
