package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dyike/CortexSwing/internal/storage"
	"github.com/dyike/CortexSwing/models"
	"github.com/dyike/CortexSwing/pkg/sqlite"
)

// Store persists open positions in a sqlite file so they survive restarts
// and can be shared between concurrent invocations.
type Store struct {
	db *sql.DB
}

var _ storage.PositionStore = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS open_positions (
    ticker TEXT PRIMARY KEY,
    id TEXT NOT NULL,
    entry_price REAL NOT NULL,
    stop_loss REAL NOT NULL,
    take_profit REAL NOT NULL,
    opened_at TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*models.OpenPosition, error) {
	var (
		p        models.OpenPosition
		openedAt string
	)
	if err := row.Scan(&p.Ticker, &p.ID, &p.EntryPrice, &p.StopLoss, &p.TakeProfit, &openedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, openedAt)
	if err != nil {
		return nil, fmt.Errorf("parse opened_at for %s: %w", p.Ticker, err)
	}
	p.OpenedAt = t
	return &p, nil
}

const selectColumns = `SELECT ticker, id, entry_price, stop_loss, take_profit, opened_at FROM open_positions`

func (s *Store) List(ctx context.Context) ([]models.OpenPosition, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []models.OpenPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, ticker string) (*models.OpenPosition, error) {
	p, err := scanPosition(s.db.QueryRowContext(ctx, selectColumns+` WHERE ticker = ?`, ticker))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", ticker, err)
	}
	return p, nil
}

// Update runs fn inside one immediate transaction, so the row fn sees is
// the row that gets replaced.
func (s *Store) Update(ctx context.Context, ticker string, fn storage.UpdateFunc) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update %s: %w", ticker, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := scanPosition(tx.QueryRowContext(ctx, selectColumns+` WHERE ticker = ?`, ticker))
	if errors.Is(err, sql.ErrNoRows) {
		cur, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("read position %s: %w", ticker, err)
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}

	switch {
	case next == cur:
	case next == nil:
		if _, err = tx.ExecContext(ctx, `DELETE FROM open_positions WHERE ticker = ?`, ticker); err != nil {
			return fmt.Errorf("delete position %s: %w", ticker, err)
		}
	default:
		_, err = tx.ExecContext(ctx, `
INSERT INTO open_positions (ticker, id, entry_price, stop_loss, take_profit, opened_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(ticker) DO UPDATE SET
    id=excluded.id,
    entry_price=excluded.entry_price,
    stop_loss=excluded.stop_loss,
    take_profit=excluded.take_profit,
    opened_at=excluded.opened_at,
    updated_at=CURRENT_TIMESTAMP
`, ticker, next.ID, next.EntryPrice, next.StopLoss, next.TakeProfit, next.OpenedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("upsert position %s: %w", ticker, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit position %s: %w", ticker, err)
	}
	return nil
}
