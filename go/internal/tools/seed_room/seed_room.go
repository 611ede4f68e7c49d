package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/scoreboard/go/internal/broadcast"
	"github.com/mcdev12/scoreboard/go/internal/countdown"
	"github.com/mcdev12/scoreboard/go/internal/dbconfig"
	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/room"
	"github.com/mcdev12/scoreboard/go/internal/schedule"
	"github.com/mcdev12/scoreboard/go/internal/stats"
	"github.com/mcdev12/scoreboard/go/internal/store/pgstore"
)

const upsertDocument = `
INSERT INTO room_documents (path, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

// document is one row to write.
type document struct {
	Path  string
	Value json.RawMessage
}

func main() {
	code := getEnv("SEED_ROOM_CODE", "1234")
	pin := getEnv("SEED_ROOM_PIN", "admin")
	count, err := strconv.Atoi(getEnv("SEED_ROOM_PLAYERS", "8"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid SEED_ROOM_PLAYERS: %v\n", err)
		os.Exit(1)
	}

	// 1) Build the demo room
	seed := uint64(time.Now().UnixNano())
	docs, err := buildRoom(code, pin, count, gofakeit.New(seed), schedule.NewGenerator(rand.New(rand.NewPCG(seed, seed))), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "build room: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	ctx := context.Background()
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, pgstore.Schema); err != nil {
		fmt.Fprintf(os.Stderr, "create schema: %v\n", err)
		os.Exit(1)
	}

	// 3) Upsert every document and notify live clients in one transaction
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, d := range docs {
			if _, err := tx.Exec(ctx, upsertDocument, d.Path, string(d.Value)); err != nil {
				return fmt.Errorf("upsert %s: %w", d.Path, err)
			}
			if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", pgstore.DefaultNotifyChannel, d.Path); err != nil {
				return fmt.Errorf("notify %s: %w", d.Path, err)
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed room: %v\n", err)
		os.Exit(1)
	}

	// 4) Print summary
	fmt.Printf("Room seed complete: room %s, %d players, %d documents\n", code, count, len(docs))
}

// buildRoom creates a room mid-tournament: a round-robin schedule with the
// first half of the matches played, a paused timer and a welcome message.
func buildRoom(input, pin string, count int, faker *gofakeit.Faker, gen *schedule.Generator, now time.Time) ([]document, error) {
	code, err := room.NormalizeCode(input)
	if err != nil {
		return nil, err
	}

	players := make([]models.Player, count)
	for i := range players {
		players[i] = models.NewPlayer(faker.FirstName())
	}

	matches, err := gen.Generate(players, schedule.FormatRoundRobin, now.UnixMilli())
	if err != nil {
		return nil, err
	}
	for i := range matches[:len(matches)/2] {
		m := &matches[i]
		m.ScoreP1 = faker.IntRange(0, 21)
		m.ScoreP2 = faker.IntRange(0, 21)
		m.WinnerID = stats.Winner(*m, m.ScoreP1, m.ScoreP2)
		m.Status = models.MatchStatusCompleted
	}
	players = stats.Recompute(players, matches)

	timer, err := countdown.Reset(10)
	if err != nil {
		return nil, err
	}

	welcome, err := broadcast.NewMessage("Welcome! Check the standings for your next match.", []string{models.TargetAll}, nil, now)
	if err != nil {
		return nil, err
	}

	values := []struct {
		path  string
		value any
	}{
		{models.MetaPath(code), room.Meta{CreatedAt: now.UnixMilli()}},
		{models.ScorerPinPath(code), pin},
		{models.SlicePath(code, models.SlicePlayers), players},
		{models.SlicePath(code, models.SliceMatches), matches},
		{models.SlicePath(code, models.SliceTimer), timer},
		{models.SlicePath(code, models.SliceMessages), []models.BroadcastMessage{welcome}},
	}

	docs := make([]document, 0, len(values))
	for _, v := range values {
		raw, err := json.Marshal(v.value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", v.path, err)
		}
		docs = append(docs, document{Path: v.path, Value: raw})
	}
	return docs, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
