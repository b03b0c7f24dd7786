package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/bot"
)

func main() {
	url := flag.String("url", "http://localhost:8009", "server base URL (must run with DEV_AUTH=true)")
	seatCfg := flag.String("seats", "medium,easy", "seat difficulties in turn order (e.g. hard,2*easy)")
	maxTurns := flag.Int("max-turns", 0, "stop after this turn (0 = play to the end)")
	pace := flag.Bool("pace", true, "wait between phases like server-side bots")
	eventTimeout := flag.Duration("event-timeout", 10*time.Second, "how long to wait for each turn broadcast")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	seats, err := bot.ParseSeatConfig(*seatCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid seat config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	match := &bot.RemoteMatch{
		BaseURL:      *url,
		Difficulties: seats,
		MaxTurns:     *maxTurns,
		EventTimeout: *eventTimeout,
		Pace:         *pace,
	}
	final, err := match.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Remote match failed")
	}
	log.Info().Str("matchId", final.MatchID).Str("winner", final.WinnerID).Int("turn", final.TurnNumber).Msg("Remote match completed")
}
