package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/bot"
	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/internal/repository/memory"
	"github.com/freeeve/conquest/api/internal/repository/postgres"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		seatCfg  string
		numGames int
		workers  int
		dbURL    string
		maxTurns int
		seed     uint64
		dryRun   bool
		jsonOut  bool
	)

	flag.StringVar(&seatCfg, "seats", "hard,medium,easy", "Seat difficulties in turn order (e.g. hard,2*easy)")
	flag.IntVar(&numGames, "n", 1, "Number of matches to run")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel matches)")
	flag.StringVar(&dbURL, "db", "", "Postgres URL to persist matches (default: in-memory store)")
	flag.IntVar(&maxTurns, "max-turns", 600, "Max turns before a draw")
	flag.Uint64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip store writes")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	seats, err := bot.ParseSeatConfig(seatCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid seat config")
	}
	if workers < 1 {
		workers = 1
	}
	label := buildLabel(seats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var (
		rooms repository.RoomRepository
		store repository.MatchStore
	)
	switch {
	case dryRun:
	case dbURL != "":
		db, err := postgres.Connect(dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		rooms, store = postgres.NewRoomRepo(db), postgres.NewMatchStore(db)
	default:
		mem := memory.NewStore()
		rooms, store = mem, mem
	}

	results := make([]*bot.ArenaResult, numGames)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCount := 0

	for i := 0; i < numGames; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			matchSeed := seed
			if seed != 0 {
				matchSeed = seed + uint64(idx)
			}
			cfg := bot.ArenaConfig{
				Name:         fmt.Sprintf("%s #%d", label, idx+1),
				Difficulties: seats,
				MaxTurns:     maxTurns,
				Seed:         matchSeed,
				DryRun:       dryRun,
			}

			result, err := bot.RunMatch(ctx, cfg, rooms, store)
			if err != nil {
				log.Error().Err(err).Int("match", idx+1).Msg("Match failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().Int("match", idx+1).Str("winner", result.Winner).Int("turns", result.Turns).Int("actions", result.Actions).Msg("Match completed")
		}(i)
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, numGames, errCount)
	} else {
		printSummary(results, seats, maxTurns, errCount, label, dbURL != "" && !dryRun)
	}
}

// buildLabel names a lineup by its difficulty counts, e.g. "1 hard vs 2 easys".
func buildLabel(seats []string) string {
	counts := make(map[string]int)
	for _, d := range seats {
		counts[d]++
	}
	if len(counts) == 1 {
		return fmt.Sprintf("botmatch: all-%s", seats[0])
	}
	var parts []string
	for d, c := range counts {
		name := d
		if c > 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", c, name))
	}
	sort.Strings(parts)
	return strings.Join(parts, " vs ")
}

func printSummary(results []*bot.ArenaResult, seats []string, maxTurns, errCount int, label string, persisted bool) {
	type stats struct {
		wins        int
		eliminated  int
		territories int
	}

	bySeat := make([]stats, len(seats))
	completed, draws, turns := 0, 0, 0
	for _, r := range results {
		if r == nil {
			continue
		}
		completed++
		turns += r.Turns
		if r.Winner == "" {
			draws++
		}
		for i := range seats {
			id := fmt.Sprintf("bot-%d", i+1)
			s := &bySeat[i]
			s.territories += r.Territories[id]
			if r.Winner == id {
				s.wins++
			}
			for _, e := range r.Eliminated {
				if e == id {
					s.eliminated++
				}
			}
		}
	}

	fmt.Printf("\nResults (%d matches, max %d turns):\n", completed, maxTurns)
	if errCount > 0 {
		fmt.Printf("  (%d matches failed)\n", errCount)
	}
	if completed == 0 {
		return
	}
	fmt.Printf("  %d draws, avg %.1f turns\n", draws, float64(turns)/float64(completed))

	for i, d := range seats {
		s := bySeat[i]
		fmt.Printf("  bot-%d (%-6s):  %d wins, %d eliminated  -- avg territories: %.1f\n",
			i+1, d, s.wins, s.eliminated, float64(s.territories)/float64(completed))
	}

	if persisted {
		fmt.Printf("\n%s: matches saved to database:\n", label)
		for _, r := range results {
			if r != nil {
				fmt.Printf("  %s\n", r.MatchID)
			}
		}
	}
}

func printJSON(results []*bot.ArenaResult, total, errCount int) {
	out := struct {
		Total   int                `json:"total"`
		Errors  int                `json:"errors"`
		Results []*bot.ArenaResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
