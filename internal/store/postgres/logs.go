package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/player-auction/internal/model"
)

// LogRepo implements store.LogRepository against Postgres.
type LogRepo struct {
	db *sqlx.DB
}

// NewLogRepo creates the repository.
func NewLogRepo(db *sqlx.DB) *LogRepo {
	return &LogRepo{db: db}
}

type logRow struct {
	ID           string        `db:"id"`
	Type         string        `db:"type"`
	PlayerID     string        `db:"player_id"`
	PlayerName   string        `db:"player_name"`
	Amount       int64         `db:"amount"`
	TeamID       string        `db:"team_id"`
	TeamName     string        `db:"team_name"`
	WalletBefore sql.NullInt64 `db:"wallet_before"`
	WalletAfter  sql.NullInt64 `db:"wallet_after"`
	AdminName    string        `db:"admin_name"`
	CardLabel    string        `db:"card_label"`
	CardID       string        `db:"card_id"`
	CreatedAt    sql.NullTime  `db:"created_at"`
}

// Append stores one log entry.
func (r *LogRepo) Append(ctx context.Context, e model.LogEntry) error {
	var before, after *int64
	if e.WalletBefore != nil {
		v := int64(*e.WalletBefore)
		before = &v
	}
	if e.WalletAfter != nil {
		v := int64(*e.WalletAfter)
		after = &v
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auction_logs (
			id, type, player_id, player_name, amount, team_id, team_name,
			wallet_before, wallet_after, admin_name, card_label, card_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, string(e.Type), e.PlayerID, e.PlayerName, int64(e.Amount),
		e.TeamID, e.TeamName, before, after, e.AdminName, e.CardLabel, e.CardID,
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("appending auction log: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (r *LogRepo) ListRecent(ctx context.Context, limit int) ([]model.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []logRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, type, player_id, player_name, amount, team_id, team_name,
			wallet_before, wallet_after, admin_name, card_label, card_id, created_at
		FROM auction_logs
		ORDER BY created_at DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing auction logs: %w", err)
	}
	entries := make([]model.LogEntry, 0, len(rows))
	for _, row := range rows {
		e := model.LogEntry{
			ID:         row.ID,
			Type:       model.LogType(row.Type),
			PlayerID:   row.PlayerID,
			PlayerName: row.PlayerName,
			Amount:     model.Money(row.Amount),
			TeamID:     row.TeamID,
			TeamName:   row.TeamName,
			AdminName:  row.AdminName,
			CardLabel:  row.CardLabel,
			CardID:     row.CardID,
		}
		if row.WalletBefore.Valid {
			v := model.Money(row.WalletBefore.Int64)
			e.WalletBefore = &v
		}
		if row.WalletAfter.Valid {
			v := model.Money(row.WalletAfter.Int64)
			e.WalletAfter = &v
		}
		if row.CreatedAt.Valid {
			e.Timestamp = row.CreatedAt.Time
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DeleteAll clears the log. Only an explicit reset calls this.
func (r *LogRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auction_logs`); err != nil {
		return fmt.Errorf("clearing auction logs: %w", err)
	}
	return nil
}
