package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ariefcatur/go-kiosk-pos/internal/config"
	"github.com/ariefcatur/go-kiosk-pos/internal/domain"
	kafkax "github.com/ariefcatur/go-kiosk-pos/internal/kafka"
	"github.com/ariefcatur/go-kiosk-pos/internal/sales"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// tailEvents prints sale events until interrupted.
func tailEvents(ctx context.Context, cfg config.Config, log *zap.Logger) int {
	if len(cfg.KafkaBrokers) == 0 {
		fmt.Fprintln(os.Stderr, "events: KAFKA_BROKERS is not set")
		return exitFailure
	}
	group := cfg.ServiceName + "-tail"
	topics := []string{sales.TopicSaleCommitted, sales.TopicSaleReversed}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topics, log.Named("consumer"))

	log.Info("tailing sale events", zap.String("group", group), zap.Strings("topics", topics))
	if err := cons.Start(ctx, printEvent(os.Stdout)); err != nil {
		log.Error("consumer exit", zap.Error(err))
		return exitFailure
	}
	return exitOK
}

// printEvent writes one line per event. Undecodable messages are skipped, not retried.
func printEvent(w io.Writer) kafkax.Handler {
	return func(_ context.Context, m kafka.Message) error {
		var env sales.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			fmt.Fprintf(w, "%s@%d: undecodable event: %v\n", m.Topic, m.Offset, err)
			return nil
		}
		at := env.OccurredAt.Local().Format("2006-01-02 15:04:05")
		switch env.EventType {
		case sales.EventSaleCommitted:
			p, err := kafkax.UnwrapPayload[sales.SaleCommittedPayload](env.Payload)
			if err != nil {
				fmt.Fprintf(w, "%s %s: bad payload: %v\n", at, env.EventType, err)
				return nil
			}
			fmt.Fprintf(w, "%s sale %d committed: %d item(s), total %s\n", at, p.SaleID, len(p.Items), domain.FormatMoney(p.Total))
		case sales.EventSaleReversed:
			p, err := kafkax.UnwrapPayload[sales.SaleReversedPayload](env.Payload)
			if err != nil {
				fmt.Fprintf(w, "%s %s: bad payload: %v\n", at, env.EventType, err)
				return nil
			}
			fmt.Fprintf(w, "%s sale %d reversed: %d line(s) restocked\n", at, p.SaleID, len(p.Restocked))
		default:
			fmt.Fprintf(w, "%s %s (event %s)\n", at, env.EventType, env.EventID)
		}
		return nil
	}
}
