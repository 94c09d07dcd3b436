package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/omochice/chat-session/internal/cli"
	"github.com/omochice/chat-session/internal/config"
	"github.com/omochice/chat-session/internal/log"
	"github.com/omochice/chat-session/internal/metrics"
	"github.com/omochice/chat-session/internal/render"
	"github.com/omochice/chat-session/internal/session"
	"github.com/omochice/chat-session/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "chat-session",
		Short: "Terminal chat client with live edits, deletes and typing indicators",
		Long: `chat-session joins a broadcast chat over WebSocket or TCP.

Type a line to send it. Commands:

` + cli.Help,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default ./chat-session.yaml)")
	flags.String("server", "", "server URL, e.g. ws://localhost:8080/ws or tcp://localhost:8080")
	flags.String("username", "", "name to chat as (prompted when empty)")
	flags.String("driver", "", "transport driver: "+strings.Join(config.Drivers, ", "))
	flags.String("metrics-addr", "", "listen address for /metrics, disabled when empty")

	bindFlags(v, cmd, map[string]string{
		"server.url":       "server",
		"username":         "username",
		"transport.driver": "driver",
		"metrics.addr":     "metrics-addr",
	})
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	log.Init(cfg.Log, os.Stderr)
	logger := log.Component("main")

	dialer, err := cli.NewDialer(cfg.Transport.Driver)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
	}

	term := render.NewTerminal(out)
	transportLogger := log.Component("transport").With().Str(log.FieldDriver, cfg.Transport.Driver).Logger()

	s := session.New(func(h transport.Handler) transport.Transport {
		return transport.NewClient(cfg.Server.URL, dialer, h,
			transport.WithDialTimeout(cfg.Transport.DialTimeout),
			transport.WithWriteTimeout(cfg.Transport.WriteTimeout),
			transport.WithLogger(transportLogger),
			transport.WithQueueSize(cfg.Transport.QueueSize),
			transport.WithDropHook(func(reason string) {
				m.FramesDropped.WithLabelValues(reason).Inc()
			}),
		)
	},
		session.WithRenderer(term),
		session.WithMetrics(m),
		session.WithReconnectDelay(cfg.Session.ReconnectDelay),
		session.WithTypingTimeout(cfg.Session.TypingTimeout),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx)
	}()
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close session")
		}
		<-runErr
	}()

	lines := cli.ScanLines(in)
	accept := func(name string) error {
		term.SetIdentity(name)
		return s.SetIdentity(name)
	}

	name := strings.TrimSpace(cfg.Username)
	if name == "" || accept(name) != nil {
		if name, err = cli.PromptIdentity(ctx, lines, term, accept); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
	logger.Info().Str(log.FieldUsername, name).Str(log.FieldURL, cfg.Server.URL).Msg("joining chat")

	return cli.Run(ctx, lines, s, term)
}
