package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventrelay/internal/config"
	"github.com/alfredjeanlab/eventrelay/internal/events"
	"github.com/alfredjeanlab/eventrelay/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [topic]",
	Short: "Stream relay events from NATS",
	Long: `Stream the events the relay fans out to NATS: students published,
students processed and drain cycle summaries. The optional topic is a
NATS subject filter relative to the configured prefix (default ">").`,
	GroupID: "client",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		url, _ := cmd.Flags().GetString("nats-url")
		if url == "" {
			url = cfg.NATS.URL
		}
		if url == "" {
			return fmt.Errorf("no NATS URL: set --nats-url or RELAY_NATS_URL")
		}

		topic := events.TopicAll
		if len(args) == 1 {
			topic = args[0]
		}
		topic = cfg.NATS.Prefix + topic

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sub, err := events.NewNATSSubscriber(url,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					slog.Warn("NATS disconnected", "err", err)
				}
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()

		if !jsonOutput {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderMuted("watching "+topic+" on "+url+" (Ctrl-C to stop)"))
		}
		return streamEvents(ctx.Done(), ch, cmd.OutOrStdout(), time.Now)
	},
}

// streamEvents prints messages until done is closed or ch is closed.
func streamEvents(done <-chan struct{}, ch <-chan events.Message, w io.Writer, now func() time.Time) error {
	for {
		select {
		case <-done:
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := printEvent(w, msg, now()); err != nil {
				return err
			}
		}
	}
}

func init() {
	watchCmd.Flags().String("nats-url", "", "NATS server URL (default from config)")
}
