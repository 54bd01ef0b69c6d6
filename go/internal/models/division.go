package models

import (
	"github.com/google/uuid"
)

// Division represents a league sub-group. Each division runs an
// independent draft cycle.
type Division struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Participant is a league member eligible to draft within a division.
type Participant struct {
	ID         uuid.UUID `json:"id"`
	DivisionID uuid.UUID `json:"division_id"`
	Name       string    `json:"name"`
}

// Player is a draftable player. Players are shared across divisions;
// uniqueness of a drafted player is enforced per division.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Position string    `json:"position"`
	NFLTeam  string    `json:"nfl_team"`
}
