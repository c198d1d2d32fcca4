package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caiomathol/weatherwatch/internal/config"
	"github.com/caiomathol/weatherwatch/internal/live"
	"github.com/caiomathol/weatherwatch/internal/notify"
	"github.com/caiomathol/weatherwatch/internal/pipeline"
	"github.com/caiomathol/weatherwatch/internal/session"
	"github.com/caiomathol/weatherwatch/internal/store"
	"github.com/caiomathol/weatherwatch/internal/transport"
	"github.com/caiomathol/weatherwatch/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx := context.Background()

	readings, rules, cleanup, err := buildStores(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("store setup failed")
	}
	defer cleanup()

	hub := live.NewHub()
	sess := session.NewStatic(config.OwnerID())

	pipe := pipeline.New(hub, readings, rules, sess)
	if arn := config.SNSTopicArn(); arn != "" {
		notifier, err := notify.NewSNSNotifier(ctx, config.AWSRegion(), arn)
		if err != nil {
			log.Fatal().Err(err).Msg("sns setup failed")
		}
		pipe.WithNotifier(notifier)
	}

	bridge := ws.NewBridge()
	bridge.Bind(hub)
	go bridge.Run()
	go serveFeed(bridge)

	sub, err := transport.Connect(config.MQTTBroker(), config.MQTTTopic(), func(topic string, payload []byte) {
		pipe.OnMessage(ctx, topic, payload)
	}, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect failed")
	}
	defer sub.Disconnect()

	log.Info().Str("broker", config.MQTTBroker()).Str("topic", config.MQTTTopic()).Msg("ingestor running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
}

// buildStores follows the cloud toggle: DynamoDB when cloud services
// are enabled, Postgres otherwise. Postgres backs both interfaces so
// the ingestor and API processes see the same rules and triggers.
func buildStores(ctx context.Context) (store.ReadingStore, store.RuleStore, func(), error) {
	if config.UseCloudServices() {
		dyn, err := store.NewDynamo(ctx, config.AWSRegion(), store.DynamoTables{
			Readings: config.ReadingsTable(),
			Rules:    config.RulesTable(),
			Triggers: config.TriggersTable(),
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return dyn, dyn, func() {}, nil
	}

	pg, err := store.ConnectPostgres(config.DBDSN())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := pg.InitSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, nil, err
	}
	return pg, pg, func() { pg.Close() }, nil
}

func serveFeed(bridge *ws.Bridge) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", bridge.Serve)
	mux.HandleFunc("/metrics", pipeline.HandleMetrics)

	addr := config.WSAddr()
	log.Info().Str("addr", addr).Msg("live feed listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("live feed server exit")
	}
}
