// Package sqlite is the embedded single-node store backend.
//
// Decimal amounts are persisted as exact text to keep the fixed-precision
// guarantees of the core; timestamps are stored as RFC 3339 UTC so the
// month window can be expressed as a lexicographic range.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"plata/internal/core"
	"plata/internal/store"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New opens (creating if needed) the database at dbPath and applies
// pending migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored decimal %q: %w", raw, err)
	}
	return d, nil
}

func decimalMapToJSON(m map[string]decimal.Decimal) (string, error) {
	strs := make(map[string]string, len(m))
	for k, v := range m {
		strs[k] = v.String()
	}
	raw, err := json.Marshal(strs)
	if err != nil {
		return "", fmt.Errorf("marshal decimal map: %w", err)
	}
	return string(raw), nil
}

func decimalMapFromJSON(raw string) (map[string]decimal.Decimal, error) {
	strs := make(map[string]string)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &strs); err != nil {
			return nil, fmt.Errorf("unmarshal decimal map: %w", err)
		}
	}
	out := make(map[string]decimal.Decimal, len(strs))
	for k, v := range strs {
		d, err := parseDecimal(v)
		if err != nil {
			return nil, err
		}
		out[k] = d
	}
	return out, nil
}

func (s *Store) LoadProfile(ctx context.Context, userID string) (store.Profile, error) {
	var goal, pctJSON, tipsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT goal, percentages, shown_tip_ids FROM profiles WHERE user_id = ?`, userID).
		Scan(&goal, &pctJSON, &tipsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Profile{}, store.ErrNotFound
	}
	if err != nil {
		return store.Profile{}, fmt.Errorf("load profile: %w", err)
	}

	percentages, err := decimalMapFromJSON(pctJSON)
	if err != nil {
		return store.Profile{}, err
	}
	var shownTipIDs []string
	if tipsJSON != "" {
		if err := json.Unmarshal([]byte(tipsJSON), &shownTipIDs); err != nil {
			return store.Profile{}, fmt.Errorf("unmarshal shown tip ids: %w", err)
		}
	}

	pending := make(map[string]decimal.Decimal)
	rows, err := s.db.QueryContext(ctx,
		`SELECT spend_type, amount FROM pending_overspends WHERE user_id = ?`, userID)
	if err != nil {
		return store.Profile{}, fmt.Errorf("load pending overspends: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var spendType, amount string
		if err := rows.Scan(&spendType, &amount); err != nil {
			return store.Profile{}, fmt.Errorf("scan pending overspend: %w", err)
		}
		d, err := parseDecimal(amount)
		if err != nil {
			return store.Profile{}, err
		}
		pending[spendType] = d
	}
	if err := rows.Err(); err != nil {
		return store.Profile{}, fmt.Errorf("iterate pending overspends: %w", err)
	}

	return store.Profile{
		Goal:              goal,
		Percentages:       percentages,
		PendingOverspends: pending,
		ShownTipIDs:       shownTipIDs,
	}, nil
}

func (s *Store) SaveProfile(ctx context.Context, userID string, p store.Profile) error {
	pctJSON, err := decimalMapToJSON(p.Percentages)
	if err != nil {
		return err
	}
	tipsJSON, err := json.Marshal(p.ShownTipIDs)
	if err != nil {
		return fmt.Errorf("marshal shown tip ids: %w", err)
	}
	if p.ShownTipIDs == nil {
		tipsJSON = []byte("[]")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save profile: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, goal, percentages, shown_tip_ids)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			goal = excluded.goal,
			percentages = excluded.percentages,
			shown_tip_ids = excluded.shown_tip_ids`,
		userID, p.Goal, pctJSON, string(tipsJSON))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pending_overspends WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("reset pending overspends: %w", err)
	}
	for spendType, amount := range p.PendingOverspends {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending_overspends (user_id, spend_type, amount) VALUES (?, ?, ?)`,
			userID, spendType, amount.String()); err != nil {
			return fmt.Errorf("insert pending overspend: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListIncomes(ctx context.Context, userID string) ([]core.Income, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, monthly FROM incomes WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var inc core.Income
		var monthly string
		if err := rows.Scan(&inc.ID, &inc.Name, &monthly); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if inc.Monthly, err = parseDecimal(monthly); err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

func (s *Store) SaveIncome(ctx context.Context, userID string, inc core.Income) (string, error) {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incomes (id, user_id, name, monthly) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, monthly = excluded.monthly`,
		inc.ID, userID, inc.Name, inc.Monthly.String())
	if err != nil {
		return "", fmt.Errorf("save income: %w", err)
	}
	return inc.ID, nil
}

func (s *Store) DeleteIncome(ctx context.Context, userID, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM incomes WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, year int, month time.Month) ([]core.Transaction, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, category, spend_type, description, date
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date`,
		userID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var amount, date string
		if err := rows.Scan(&tx.ID, &amount, &tx.Category, (*string)(&tx.SpendType), &tx.Description, &date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if tx.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) SaveTransaction(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, category, spend_type, description, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, userID, tx.Amount.String(), tx.Category, string(tx.SpendType),
		tx.Description, tx.Date.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	return tx.ID, nil
}

func (s *Store) ListDebts(ctx context.Context, userID string) ([]core.Debt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, balance, annual_rate, min_payment
		FROM debts WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var out []core.Debt
	for rows.Next() {
		var d core.Debt
		var balance, rate, minPayment string
		if err := rows.Scan(&d.ID, &d.Name, &balance, &rate, &minPayment); err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		if d.Balance, err = parseDecimal(balance); err != nil {
			return nil, err
		}
		if d.AnnualRate, err = parseDecimal(rate); err != nil {
			return nil, err
		}
		if d.MinPayment, err = parseDecimal(minPayment); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SaveDebt(ctx context.Context, userID string, d core.Debt) (string, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO debts (id, user_id, name, balance, annual_rate, min_payment)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			balance = excluded.balance,
			annual_rate = excluded.annual_rate,
			min_payment = excluded.min_payment`,
		d.ID, userID, d.Name, d.Balance.String(), d.AnnualRate.String(), d.MinPayment.String())
	if err != nil {
		return "", fmt.Errorf("save debt: %w", err)
	}
	return d.ID, nil
}

func (s *Store) DeleteDebt(ctx context.Context, userID, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM debts WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return nil
}

func (s *Store) ListShortcuts(ctx context.Context, userID string) ([]core.Shortcut, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, amount, category, spend_type
		FROM shortcuts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list shortcuts: %w", err)
	}
	defer rows.Close()

	var out []core.Shortcut
	for rows.Next() {
		var sc core.Shortcut
		var amount string
		if err := rows.Scan(&sc.ID, &sc.Name, &amount, &sc.Category, (*string)(&sc.SpendType)); err != nil {
			return nil, fmt.Errorf("scan shortcut: %w", err)
		}
		if sc.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) SaveShortcut(ctx context.Context, userID string, sc core.Shortcut) (string, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shortcuts (id, user_id, name, amount, category, spend_type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			amount = excluded.amount,
			category = excluded.category,
			spend_type = excluded.spend_type`,
		sc.ID, userID, sc.Name, sc.Amount.String(), sc.Category, string(sc.SpendType))
	if err != nil {
		return "", fmt.Errorf("save shortcut: %w", err)
	}
	return sc.ID, nil
}

func (s *Store) DeleteShortcut(ctx context.Context, userID, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM shortcuts WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete shortcut: %w", err)
	}
	return nil
}

func (s *Store) UpdateBudgetPercentages(ctx context.Context, userID string, percentages map[string]decimal.Decimal) error {
	pctJSON, err := decimalMapToJSON(percentages)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, percentages) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET percentages = excluded.percentages`,
		userID, pctJSON)
	if err != nil {
		return fmt.Errorf("update budget percentages: %w", err)
	}
	return nil
}

func (s *Store) SetPendingOverspend(ctx context.Context, userID, spendType string, amount decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_overspends (user_id, spend_type, amount) VALUES (?, ?, ?)
		ON CONFLICT (user_id, spend_type) DO UPDATE SET amount = excluded.amount`,
		userID, spendType, amount.String())
	if err != nil {
		return fmt.Errorf("set pending overspend: %w", err)
	}
	return nil
}

func (s *Store) ClearPendingOverspend(ctx context.Context, userID, spendType string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_overspends WHERE user_id = ? AND spend_type = ?`,
		userID, spendType); err != nil {
		return fmt.Errorf("clear pending overspend: %w", err)
	}
	return nil
}

func (s *Store) SetShownTipIDs(ctx context.Context, userID string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal shown tip ids: %w", err)
	}
	if ids == nil {
		raw = []byte("[]")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, shown_tip_ids) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET shown_tip_ids = excluded.shown_tip_ids`,
		userID, string(raw))
	if err != nil {
		return fmt.Errorf("set shown tip ids: %w", err)
	}
	return nil
}

func (s *Store) IncrementMonthlySummary(ctx context.Context, userID, monthKey, spendType string, delta decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summary increment: %w", err)
	}
	defer tx.Rollback()

	// Totals are stored as exact decimal text, so the addition happens
	// here rather than in SQL.
	var current string
	err = tx.QueryRowContext(ctx, `
		SELECT total FROM monthly_summaries
		WHERE user_id = ? AND month_key = ? AND spend_type = ?`,
		userID, monthKey, spendType).Scan(&current)
	total := delta
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read summary total: %w", err)
	default:
		d, perr := parseDecimal(current)
		if perr != nil {
			return perr
		}
		total = d.Add(delta)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO monthly_summaries (user_id, month_key, spend_type, total) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, month_key, spend_type) DO UPDATE SET total = excluded.total`,
		userID, monthKey, spendType, total.String())
	if err != nil {
		return fmt.Errorf("write summary total: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListTips(ctx context.Context) ([]core.Tip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, explanation, income_levels, conditions FROM tips ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tips: %w", err)
	}
	defer rows.Close()

	var out []core.Tip
	for rows.Next() {
		var tip core.Tip
		var levels, conditions string
		if err := rows.Scan(&tip.ID, &tip.Title, &tip.Explanation, &levels, &conditions); err != nil {
			return nil, fmt.Errorf("scan tip: %w", err)
		}
		if err := json.Unmarshal([]byte(levels), &tip.IncomeLevels); err != nil {
			return nil, fmt.Errorf("unmarshal tip levels: %w", err)
		}
		if err := json.Unmarshal([]byte(conditions), &tip.Conditions); err != nil {
			return nil, fmt.Errorf("unmarshal tip conditions: %w", err)
		}
		out = append(out, tip)
	}
	return out, rows.Err()
}

func (s *Store) SeedTips(ctx context.Context, tips []core.Tip) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tips`).Scan(&count); err != nil {
		return fmt.Errorf("count tips: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tip seed: %w", err)
	}
	defer tx.Rollback()

	for _, tip := range tips {
		levels, err := json.Marshal(tip.IncomeLevels)
		if err != nil {
			return fmt.Errorf("marshal tip levels: %w", err)
		}
		conditions, err := json.Marshal(tip.Conditions)
		if err != nil {
			return fmt.Errorf("marshal tip conditions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tips (id, title, explanation, income_levels, conditions)
			VALUES (?, ?, ?, ?, ?)`,
			tip.ID, tip.Title, tip.Explanation, string(levels), string(conditions)); err != nil {
			return fmt.Errorf("insert tip: %w", err)
		}
	}
	return tx.Commit()
}
