package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caiomathol/weatherwatch/internal/config"
	"github.com/caiomathol/weatherwatch/internal/httpapi"
	"github.com/caiomathol/weatherwatch/internal/session"
	"github.com/caiomathol/weatherwatch/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx := context.Background()

	var readings store.ReadingStore
	var rules store.RuleStore
	if config.UseCloudServices() {
		dyn, err := store.NewDynamo(ctx, config.AWSRegion(), store.DynamoTables{
			Readings: config.ReadingsTable(),
			Rules:    config.RulesTable(),
			Triggers: config.TriggersTable(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("dynamodb setup failed")
		}
		readings, rules = dyn, dyn
	} else {
		pg, err := store.ConnectPostgres(config.DBDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("db connect failed")
		}
		defer pg.Close()
		if err := pg.InitSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema init failed")
		}
		readings, rules = pg, pg
	}

	sess := session.NewStatic(config.OwnerID())

	app := fiber.New()
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	httpapi.Register(app, rules, readings, sess)

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Msg("api listening")
	log.Fatal().Err(app.Listen(addr)).Msg("server exit")
}
