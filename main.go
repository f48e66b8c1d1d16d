package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/socialgossip/gossipd/config"
	"github.com/socialgossip/gossipd/room"
	"github.com/socialgossip/gossipd/server"
	"github.com/socialgossip/gossipd/session"
	"github.com/socialgossip/gossipd/social"
	"github.com/socialgossip/gossipd/translate"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load configuration")
	}

	graph := social.NewGraph()
	sessions := session.NewTable()

	publisher, err := room.NewUDPPublisher(cfg.Multicast.Port, cfg.Multicast.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open multicast publisher")
	}
	defer publisher.Close()

	rooms, err := room.NewRegistry(cfg.Multicast.BaseAddr, sessions, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot build room registry")
	}

	var translator translate.Translator = translate.Noop{}
	if cfg.Translate.Enabled {
		translator = translate.NewClient(cfg.Translate.BaseURL)
	}

	handler := server.NewHandler(graph, rooms, sessions, translator, cfg.Server.AckTimeout)
	srv := server.New(server.Options{
		ListenAddr:       cfg.Server.ListenAddr,
		Workers:          cfg.Server.Workers,
		QueueSize:        cfg.Server.QueueSize,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		ReadTimeout:      cfg.Server.ReadTimeout,
	}, handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
