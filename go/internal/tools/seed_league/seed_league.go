package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/draftroom/go/internal/dbconfig"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML layout of a league seed file.
type Fixture struct {
	Divisions []struct {
		Name         string   `yaml:"name"`
		Participants []string `yaml:"participants"`
	} `yaml:"divisions"`
	Players []struct {
		Name     string `yaml:"name"`
		Position string `yaml:"position"`
		NFLTeam  string `yaml:"nfl_team"`
	} `yaml:"players"`
}

func main() {
	ctx := context.Background()

	path := "go/internal/assets/league.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the fixture
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal fixture: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Seed divisions and their participants
	divisions, participants, errs := 0, 0, 0
	for _, d := range fixture.Divisions {
		divisionID := uuid.New()
		_, err := pool.Exec(ctx, `
            INSERT INTO divisions (id, name)
            VALUES ($1, $2)
            ON CONFLICT (name) DO NOTHING
        `, divisionID, d.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert division %q: %v\n", d.Name, err)
			errs++
			continue
		}
		divisions++

		for _, p := range d.Participants {
			_, err := pool.Exec(ctx, `
                INSERT INTO participants (id, division_id, name)
                SELECT $1, id, $2 FROM divisions WHERE name = $3
                ON CONFLICT DO NOTHING
            `, uuid.New(), p, d.Name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "insert participant %q: %v\n", p, err)
				errs++
				continue
			}
			participants++
		}
	}

	// 4) Seed players
	players := 0
	for _, p := range fixture.Players {
		_, err := pool.Exec(ctx, `
            INSERT INTO players (id, name, position, nfl_team)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (name, position) DO NOTHING
        `, uuid.New(), p.Name, p.Position, p.NFLTeam)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert player %q: %v\n", p.Name, err)
			errs++
			continue
		}
		players++
	}

	// 5) Print summary
	fmt.Printf(
		"League seed complete: %d divisions, %d participants, %d players, %d errors\n",
		divisions, participants, players, errs,
	)
}
