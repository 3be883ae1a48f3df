package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// TeamRepo implements store.TeamRepository against Postgres.
type TeamRepo struct {
	db *sqlx.DB
}

// NewTeamRepo creates the repository.
func NewTeamRepo(db *sqlx.DB) *TeamRepo {
	return &TeamRepo{db: db}
}

type teamRow struct {
	ID           string      `db:"id"`
	Code         string      `db:"code"`
	Name         string      `db:"name"`
	Color        string      `db:"color"`
	Funds        model.Money `db:"purse_balance"`
	InitialFunds model.Money `db:"initial_purse"`
}

func (r teamRow) toModel() model.Team {
	return model.Team{
		ID:           r.ID,
		Code:         r.Code,
		Name:         r.Name,
		Color:        r.Color,
		Funds:        r.Funds,
		InitialFunds: r.InitialFunds,
	}
}

// List returns all teams with their rosters, in ingestion order.
func (r *TeamRepo) List(ctx context.Context) ([]model.Team, error) {
	var rows []teamRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, code, name, color, purse_balance, initial_purse FROM teams ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	teams := make([]model.Team, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		index[row.ID] = len(teams)
		teams = append(teams, row.toModel())
	}

	type rosterRow struct {
		TeamID string `db:"team_id"`
		playerRow
	}
	var roster []rosterRow
	err = r.db.SelectContext(ctx, &roster, `
		SELECT tr.team_id, `+prefixedPlayerColumns("p")+`
		FROM team_roster tr
		JOIN players p ON p.id = tr.player_id
		ORDER BY tr.seq`)
	if err != nil {
		return nil, fmt.Errorf("listing rosters: %w", err)
	}
	for _, rr := range roster {
		i, ok := index[rr.TeamID]
		if !ok {
			continue
		}
		p, err := rr.playerRow.toModel()
		if err != nil {
			return nil, err
		}
		teams[i].Roster = append(teams[i].Roster, p)
	}
	return teams, nil
}

// Get returns one team with its roster.
func (r *TeamRepo) Get(ctx context.Context, id string) (*model.Team, error) {
	var row teamRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, code, name, color, purse_balance, initial_purse FROM teams WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("loading team %s: %w", id, err)
	}
	team := row.toModel()

	var roster []playerRow
	err = r.db.SelectContext(ctx, &roster, `
		SELECT `+prefixedPlayerColumns("p")+`
		FROM team_roster tr
		JOIN players p ON p.id = tr.player_id
		WHERE tr.team_id = $1
		ORDER BY tr.seq`, id)
	if err != nil {
		return nil, fmt.Errorf("loading roster for %s: %w", id, err)
	}
	for _, pr := range roster {
		p, err := pr.toModel()
		if err != nil {
			return nil, err
		}
		team.Roster = append(team.Roster, p)
	}
	return &team, nil
}

// Sell debits the purse, appends the player to the roster and stamps the
// player's sale columns in one transaction.
func (r *TeamRepo) Sell(ctx context.Context, sale store.SellTx) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sale: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var funds int64
	err = tx.GetContext(ctx, &funds,
		`SELECT purse_balance FROM teams WHERE id = $1 FOR UPDATE`, sale.TeamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("team %s: %w", sale.TeamID, store.ErrNotFound)
		}
		return fmt.Errorf("locking team %s: %w", sale.TeamID, err)
	}
	if model.Money(funds) < sale.Price {
		return store.ErrInsufficientPurse
	}

	var rosterSize int
	err = tx.GetContext(ctx, &rosterSize,
		`SELECT COUNT(*) FROM team_roster WHERE team_id = $1`, sale.TeamID)
	if err != nil {
		return fmt.Errorf("counting roster for %s: %w", sale.TeamID, err)
	}
	if rosterSize >= model.DefaultRosterCap {
		return store.ErrRosterFull
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE players SET
			sold_status = 'SOLD',
			sold_to = $2,
			sold_price = $3,
			sold_at = COALESCE(sold_at, NOW()),
			is_closed = TRUE
		WHERE id = $1`,
		sale.PlayerID, sale.TeamID, int64(sale.Price))
	if err != nil {
		return fmt.Errorf("marking player %s sold: %w", sale.PlayerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("player %s: %w", sale.PlayerID, store.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO team_roster (team_id, player_id, sold_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id) DO UPDATE
		SET team_id = EXCLUDED.team_id, sold_price = EXCLUDED.sold_price`,
		sale.TeamID, sale.PlayerID, int64(sale.Price))
	if err != nil {
		return fmt.Errorf("adding %s to roster of %s: %w", sale.PlayerID, sale.TeamID, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE teams SET purse_balance = purse_balance - $2 WHERE id = $1`,
		sale.TeamID, int64(sale.Price))
	if err != nil {
		return fmt.Errorf("debiting purse of %s: %w", sale.TeamID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sale: %w", err)
	}
	return nil
}

// UndoSell refunds the purse, removes the roster entry and clears the
// player's sale columns in one transaction.
func (r *TeamRepo) UndoSell(ctx context.Context, sale store.SellTx) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning undo: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var funds int64
	err = tx.GetContext(ctx, &funds,
		`SELECT purse_balance FROM teams WHERE id = $1 FOR UPDATE`, sale.TeamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("team %s: %w", sale.TeamID, store.ErrNotFound)
		}
		return fmt.Errorf("locking team %s: %w", sale.TeamID, err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM team_roster WHERE team_id = $1 AND player_id = $2`,
		sale.TeamID, sale.PlayerID)
	if err != nil {
		return fmt.Errorf("removing %s from roster of %s: %w", sale.PlayerID, sale.TeamID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("player %s on team %s: %w", sale.PlayerID, sale.TeamID, store.ErrNotSold)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE players SET
			sold_status = 'OPEN',
			sold_to = '',
			sold_price = NULL,
			sold_at = NULL,
			assigned_card = NULL,
			is_closed = FALSE
		WHERE id = $1`, sale.PlayerID)
	if err != nil {
		return fmt.Errorf("reopening player %s: %w", sale.PlayerID, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE teams SET purse_balance = purse_balance + $2 WHERE id = $1`,
		sale.TeamID, int64(sale.Price))
	if err != nil {
		return fmt.Errorf("refunding purse of %s: %w", sale.TeamID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing undo: %w", err)
	}
	return nil
}

// ResetAll restores every purse to its initial amount and clears all rosters.
func (r *TeamRepo) ResetAll(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning team reset: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM team_roster`); err != nil {
		return fmt.Errorf("clearing rosters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE teams SET purse_balance = initial_purse`); err != nil {
		return fmt.Errorf("resetting purses: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing team reset: %w", err)
	}
	return nil
}

// Seed replaces the franchise list. Insert order defines List order.
func (r *TeamRepo) Seed(ctx context.Context, teams []model.Team) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning team seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM teams`); err != nil {
		return fmt.Errorf("clearing teams: %w", err)
	}
	for _, t := range teams {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO teams (id, code, name, color, purse_balance, initial_purse)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.Code, t.Name, t.Color, int64(t.Funds), int64(t.InitialFunds))
		if err != nil {
			return fmt.Errorf("seeding team %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing team seed: %w", err)
	}
	return nil
}
