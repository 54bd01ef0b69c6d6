package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/sqlutil"
)

const pgUniqueViolation = "23505"

// Postgres implements Repository on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed repository.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Repository = (*Postgres)(nil)

func (r *Postgres) ReadDivisions(ctx context.Context) ([]models.Division, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM divisions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("read divisions: %w", err)
	}
	defer rows.Close()

	var divisions []models.Division
	for rows.Next() {
		var d models.Division
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan division: %w", err)
		}
		divisions = append(divisions, d)
	}
	return divisions, rows.Err()
}

func (r *Postgres) ReadParticipants(ctx context.Context, divisionID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, division_id, name FROM participants WHERE division_id = $1 ORDER BY name`,
		divisionID)
	if err != nil {
		return nil, fmt.Errorf("read participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.DivisionID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *Postgres) ReadPlayers(ctx context.Context) ([]models.Player, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, position, nfl_team FROM players ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("read players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Position, &p.NFLTeam); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *Postgres) ReadDraftOrder(ctx context.Context, divisionID uuid.UUID) ([]models.DraftOrderEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT position, participant_id, generated_at FROM draft_order
		 WHERE division_id = $1 ORDER BY position`,
		divisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft order: %w", err)
	}
	defer rows.Close()

	var order []models.DraftOrderEntry
	for rows.Next() {
		var e models.DraftOrderEntry
		if err := rows.Scan(&e.Position, &e.ParticipantID, &e.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan order entry: %w", err)
		}
		order = append(order, e)
	}
	return order, rows.Err()
}

func (r *Postgres) WriteDraftOrder(ctx context.Context, divisionID uuid.UUID, order []models.DraftOrderEntry) error {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM draft_order WHERE division_id = $1`, divisionID); err != nil {
			return fmt.Errorf("clear previous order: %w", err)
		}
		for _, e := range order {
			_, err := tx.Exec(ctx,
				`INSERT INTO draft_order (division_id, position, participant_id, generated_at)
				 VALUES ($1, $2, $3, $4)`,
				divisionID, e.Position, e.ParticipantID, e.GeneratedAt)
			if err != nil {
				return fmt.Errorf("insert order entry: %w", err)
			}
		}
		return nil
	})
}

func (r *Postgres) ClearDraftOrder(ctx context.Context, divisionID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM draft_order WHERE division_id = $1`, divisionID); err != nil {
		return fmt.Errorf("clear draft order: %w", err)
	}
	return nil
}

func (r *Postgres) ReadDraftState(ctx context.Context, divisionID uuid.UUID) (*models.DraftState, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT division_id, is_active, current_pick_number, current_participant_id,
		        picks_per_participant, order_mode, started_at, completed_at, last_update
		 FROM draft_state WHERE division_id = $1`,
		divisionID)

	var s models.DraftState
	err := row.Scan(&s.DivisionID, &s.IsActive, &s.CurrentPickNumber, &s.CurrentParticipantID,
		&s.PicksPerParticipant, &s.OrderMode, &s.StartedAt, &s.CompletedAt, &s.LastUpdate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read draft state: %w", err)
	}
	return &s, nil
}

func (r *Postgres) WriteDraftState(ctx context.Context, state models.DraftState) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO draft_state (division_id, is_active, current_pick_number, current_participant_id,
		                          picks_per_participant, order_mode, started_at, completed_at, last_update)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (division_id) DO UPDATE SET
		   is_active = EXCLUDED.is_active,
		   current_pick_number = EXCLUDED.current_pick_number,
		   current_participant_id = EXCLUDED.current_participant_id,
		   picks_per_participant = EXCLUDED.picks_per_participant,
		   order_mode = EXCLUDED.order_mode,
		   started_at = EXCLUDED.started_at,
		   completed_at = EXCLUDED.completed_at,
		   last_update = EXCLUDED.last_update`,
		state.DivisionID, state.IsActive, state.CurrentPickNumber, state.CurrentParticipantID,
		state.PicksPerParticipant, state.OrderMode, state.StartedAt, state.CompletedAt, state.LastUpdate)
	if err != nil {
		return fmt.Errorf("write draft state: %w", err)
	}
	return nil
}

func (r *Postgres) ReadActiveDivision(ctx context.Context) (uuid.UUID, error) {
	row := r.pool.QueryRow(ctx, `SELECT division_id FROM draft_state WHERE is_active LIMIT 1`)
	var id uuid.UUID
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("read active division: %w", err)
	}
	return id, nil
}

func (r *Postgres) ReadDraftPicks(ctx context.Context, divisionID uuid.UUID) ([]models.DraftPick, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT division_id, pick_number, participant_id, player_id, picked_at
		 FROM draft_picks WHERE division_id = $1 ORDER BY pick_number`,
		divisionID)
	if err != nil {
		return nil, fmt.Errorf("read draft picks: %w", err)
	}
	defer rows.Close()

	var picks []models.DraftPick
	for rows.Next() {
		var p models.DraftPick
		if err := rows.Scan(&p.DivisionID, &p.PickNumber, &p.ParticipantID, &p.PlayerID, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan draft pick: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

func (r *Postgres) AppendDraftPick(ctx context.Context, pick models.DraftPick) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO draft_picks (division_id, pick_number, participant_id, player_id, picked_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		pick.DivisionID, pick.PickNumber, pick.ParticipantID, pick.PlayerID, pick.Timestamp)
	return mapPickErr(err)
}

func (r *Postgres) ClearDraftPicks(ctx context.Context, divisionID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM draft_picks WHERE division_id = $1`, divisionID); err != nil {
		return fmt.Errorf("clear draft picks: %w", err)
	}
	return nil
}

func (r *Postgres) CommitPick(ctx context.Context, pick models.DraftPick, state models.DraftState) error {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO draft_picks (division_id, pick_number, participant_id, player_id, picked_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			pick.DivisionID, pick.PickNumber, pick.ParticipantID, pick.PlayerID, pick.Timestamp)
		if err != nil {
			return mapPickErr(err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE draft_state SET
			   is_active = $2, current_pick_number = $3, current_participant_id = $4,
			   completed_at = $5, last_update = $6
			 WHERE division_id = $1`,
			state.DivisionID, state.IsActive, state.CurrentPickNumber, state.CurrentParticipantID,
			state.CompletedAt, state.LastUpdate)
		if err != nil {
			return fmt.Errorf("advance draft state: %w", err)
		}
		return nil
	})
}

func mapPickErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicatePick
	}
	return fmt.Errorf("append draft pick: %w", err)
}
