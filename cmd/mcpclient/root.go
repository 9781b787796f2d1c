package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/app"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/config"
)

type cliOptions struct {
	configPath string
	logLevel   string
	logger     *zap.Logger
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "mcpclient",
		Short:         "MCP tool aggregator with order and logistics cards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := app.NewBaseLogger(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to config file (empty for defaults)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newToolsCmd(opts),
		newChatCmd(opts),
	)
	return root
}

func (o *cliOptions) application(cmd *cobra.Command) *app.App {
	return app.New(o.logger).WithFlags(cmd.Flags())
}

func newServeCmd(opts *cliOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the registry poller and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			return opts.application(cmd).Serve(ctx, app.ServeConfig{
				ConfigPath: opts.configPath,
				Watch:      watch,
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "reload target domains and static services when the config file changes")
	return cmd
}

func newValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration without starting anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.application(cmd).ValidateConfig(cmd.Context(), app.ValidateConfig{
				ConfigPath: opts.configPath,
			})
		},
	}
}

func newToolsCmd(opts *cliOptions) *cobra.Command {
	var (
		domainName string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Poll the registry once and print the discovered tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			services, err := opts.application(cmd).ListTools(ctx, app.ListToolsConfig{
				ConfigPath: opts.configPath,
				Domain:     domainName,
			})
			if err != nil {
				return err
			}
			return printServices(cmd.OutOrStdout(), services, format)
		},
	}
	cmd.Flags().StringVar(&domainName, "domain", "", "only print tools of this domain")
	cmd.Flags().StringVarP(&output, "output", "o", string(outputText), "output format (text|json|yaml)")
	return cmd
}

func newChatCmd(opts *cliOptions) *cobra.Command {
	var (
		sessionID  string
		domainName string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Answer one chat message and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.New("message is required")
			}
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			reply, err := opts.application(cmd).Chat(ctx, app.ChatConfig{
				ConfigPath: opts.configPath,
				SessionID:  sessionID,
				Domain:     domainName,
				Message:    message,
			})
			if err != nil {
				return err
			}
			if err := printReply(cmd.OutOrStdout(), reply, format); err != nil {
				return err
			}
			if !reply.Success {
				return errors.New("chat failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "conversation session id")
	cmd.Flags().StringVar(&domainName, "domain", "", "business domain to focus on")
	cmd.Flags().StringVarP(&output, "output", "o", string(outputText), "output format (text|json|yaml)")
	return cmd
}
