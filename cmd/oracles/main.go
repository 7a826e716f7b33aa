package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/twmb/franz-go/pkg/kgo"

	jwttoken "flightsurety/internal/jwt_token"
	"flightsurety/internal/oracle/client"
	"flightsurety/internal/platform/config"
	"flightsurety/internal/platform/logger"
	"flightsurety/internal/relay"
)

const defaultFleetSize = 20

// main runs a simulated oracle fleet out of process: it follows OracleRequest
// events on Kafka and answers through the ledger's HTTP API.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("oracles exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	ledger := client.New(cfg.LedgerURL, tokens)

	fee, err := ledger.RegistrationFee(ctx)
	if err != nil {
		return fmt.Errorf("read registration fee: %w", err)
	}
	size := cfg.SimulatedOracles
	if size <= 0 {
		size = defaultFleetSize
	}
	members, err := relay.ProvisionFleet(ctx, ledger, ledger, cfg.AdminAddress, size, fee)
	if err != nil {
		return fmt.Errorf("provision fleet: %w", err)
	}
	fleet := relay.NewFleet(ledger, members, relay.WithFleetLogger(log))

	consumer, err := relay.NewKafkaClient(cfg.Kafka,
		kgo.ConsumerGroup(cfg.Kafka.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Kafka.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return err
	}
	defer consumer.Close()

	log.Info("oracle fleet listening",
		"size", fleet.Size(),
		"topic", cfg.Kafka.Topic,
		"group", cfg.Kafka.ConsumerGroup,
		"ledger", cfg.LedgerURL,
	)
	err = relay.ConsumeEvents(ctx, consumer, fleet.Handle, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
