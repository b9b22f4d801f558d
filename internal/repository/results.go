package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tricktake/tricktake-server-go/internal/game"
)

const createResultsTable = `
CREATE TABLE IF NOT EXISTS game_results (
    id            BIGSERIAL PRIMARY KEY,
    lobby_code    TEXT        NOT NULL,
    winner_id     TEXT        NOT NULL,
    winner_name   TEXT        NOT NULL,
    winner_score  INT         NOT NULL,
    rounds_played INT         NOT NULL,
    num_players   INT         NOT NULL,
    final_scores  JSONB       NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertResult = `
INSERT INTO game_results
    (lobby_code, winner_id, winner_name, winner_score, rounds_played, num_players, final_scores, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// finalScore is one player's line in the archived score sheet.
type finalScore struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// ResultRepository archives finished games. A nil repository is valid and
// drops every record, so callers never need to branch on whether the
// archive is configured.
type ResultRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewResultRepository creates the repository and ensures its table exists.
func NewResultRepository(ctx context.Context, db *DB, logger *zap.Logger) (*ResultRepository, error) {
	if _, err := db.Pool.Exec(ctx, createResultsTable); err != nil {
		return nil, fmt.Errorf("create game_results table: %w", err)
	}
	return &ResultRepository{db: db, logger: logger}, nil
}

// RecordResult stores the outcome of a finished game. The state must be in
// the gameOver phase with a winner recorded.
func (r *ResultRepository) RecordResult(ctx context.Context, state *game.State) error {
	if r == nil {
		return nil
	}
	if state.Phase != game.PhaseGameOver || state.Winner == nil {
		return fmt.Errorf("game %s is not finished", state.LobbyCode)
	}

	scores := make([]finalScore, len(state.Players))
	for i, p := range state.Players {
		scores[i] = finalScore{PlayerID: p.ID, Name: p.Name, Score: p.Score}
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("marshal final scores: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, insertResult,
		state.LobbyCode,
		state.Winner.ID,
		state.Winner.Name,
		state.Winner.Score,
		state.Round,
		len(state.Players),
		scoresJSON,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}

	r.logger.Info("game result archived",
		zap.String("lobby_code", state.LobbyCode),
		zap.String("winner", state.Winner.Name),
		zap.Int("winner_score", state.Winner.Score),
	)
	return nil
}
