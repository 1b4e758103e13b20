package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kasumkm/backend/internal/domain"
	"kasumkm/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates the four ledger tables when absent. Schema changes
// beyond first bootstrap are out of scope and handled operationally.
func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			price BIGINT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			stock INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'Tersedia'
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			type TEXT NOT NULL,
			category TEXT NOT NULL,
			amount BIGINT NOT NULL,
			date TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'Selesai',
			note TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id BIGINT PRIMARY KEY,
			store_name TEXT NOT NULL,
			address TEXT NOT NULL,
			phone TEXT NOT NULL,
			currency TEXT NOT NULL,
			logo_url TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, category, stock, status
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Stock, &p.Status); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.Status == "" {
		product.Status = domain.ProductStatusAvailable
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, price, category, stock, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, product.Name, product.Price, product.Category, product.Stock, product.Status).Scan(&product.ID)
	if err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, category, stock, status
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Stock, &p.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID < 1 || product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, category = $4, stock = $5, status = $6
		WHERE id = $1
	`, product.ID, product.Name, product.Price, product.Category, product.Stock, product.Status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

// DeleteProduct is idempotent: deleting an id that no longer exists is a
// benign no-op.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name
		FROM categories
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}

	var c domain.Category
	c.Name = name
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name)
		VALUES ($1)
		RETURNING id
	`, name).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateName
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return err
}

func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, category, amount, date, occurred_at, status, note
		FROM transactions
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, 128)
	for rows.Next() {
		var tx domain.Transaction
		var note sql.NullString
		if err := rows.Scan(&tx.ID, &tx.Type, &tx.Category, &tx.Amount, &tx.Date, &tx.OccurredAt, &tx.Status, &note); err != nil {
			return nil, err
		}
		tx.OccurredAt = tx.OccurredAt.UTC()
		if note.Valid {
			tx.Note = note.String
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

// CreateCheckout inserts one ledger row and applies one relative stock
// decrement per cart line inside a single database transaction. The
// decrement is conditional (stock >= qty), so a short line aborts the whole
// batch and nothing is persisted. The decrement is evaluated by the engine,
// never computed from a prior read, so concurrent checkouts of the same
// product cannot lose updates.
func (s *Store) CreateCheckout(ctx context.Context, tx domain.Transaction, lines []domain.CartItem) (*domain.Transaction, error) {
	if tx.Type != domain.TxTypeIncome && tx.Type != domain.TxTypeExpense {
		return nil, store.ErrInvalidInput
	}
	if tx.Amount < 0 {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO transactions (type, category, amount, date, occurred_at, status, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, tx.Type, tx.Category, tx.Amount, tx.Date, tx.OccurredAt, tx.Status, nullIfEmpty(tx.Note)).Scan(&tx.ID)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}

		res, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1
			WHERE id = $2 AND stock >= $1
		`, line.Quantity, line.ProductID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// Distinguish a missing product from a short one; either way
			// the rollback discards the inserted ledger row.
			var stock int
			err := pgTx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, line.ProductID).Scan(&stock)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("product %d: %w", line.ProductID, store.ErrNotFound)
			}
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("product %d: %w", line.ProductID, store.ErrInsufficientStock)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := tx
	return &created, nil
}

func (s *Store) ResetTransactions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	var settings domain.Settings
	var logoURL sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_name, address, phone, currency, logo_url
		FROM settings
		WHERE id = 1
	`).Scan(&settings.ID, &settings.StoreName, &settings.Address, &settings.Phone, &settings.Currency, &logoURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}
	if logoURL.Valid {
		settings.LogoURL = logoURL.String
	}
	return settings, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings domain.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, store_name, address, phone, currency, logo_url)
		VALUES (1,$1,$2,$3,$4,$5)
		ON CONFLICT (id)
		DO UPDATE SET store_name = EXCLUDED.store_name, address = EXCLUDED.address,
			phone = EXCLUDED.phone, currency = EXCLUDED.currency, logo_url = EXCLUDED.logo_url
	`, settings.StoreName, settings.Address, settings.Phone, settings.Currency, nullIfEmpty(settings.LogoURL))
	return err
}

// GetStats computes all four running totals from one statement so they
// reflect a single snapshot of the ledger.
func (s *Store) GetStats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = $1 THEN amount ELSE 0 END),0)::bigint,
			COALESCE(SUM(CASE WHEN type = $2 THEN amount ELSE 0 END),0)::bigint,
			COUNT(*)::bigint
		FROM transactions
	`, domain.TxTypeIncome, domain.TxTypeExpense).Scan(&stats.Income, &stats.Expense, &stats.TransactionCount)
	if err != nil {
		return domain.Stats{}, err
	}
	stats.Balance = stats.Income - stats.Expense
	return stats, nil
}

// GetMonthlyReport groups by the calendar month of the canonical
// occurred_at timestamp, returning the most recent months in chronological
// order.
func (s *Store) GetMonthlyReport(ctx context.Context, months int) ([]domain.MonthlyReportRow, error) {
	if months < 1 {
		months = 6
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT month, income, expense
		FROM (
			SELECT
				to_char(occurred_at AT TIME ZONE 'UTC', 'YYYY-MM') AS month,
				COALESCE(SUM(CASE WHEN type = $1 THEN amount ELSE 0 END),0)::bigint AS income,
				COALESCE(SUM(CASE WHEN type = $2 THEN amount ELSE 0 END),0)::bigint AS expense
			FROM transactions
			GROUP BY 1
			ORDER BY 1 DESC
			LIMIT $3
		) recent
		ORDER BY month
	`, domain.TxTypeIncome, domain.TxTypeExpense, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := make([]domain.MonthlyReportRow, 0, months)
	for rows.Next() {
		var row domain.MonthlyReportRow
		if err := rows.Scan(&row.Month, &row.Income, &row.Expense); err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return report, nil
}

func (s *Store) GetCategoryBreakdown(ctx context.Context) ([]domain.CategoryReportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount),0)::bigint
		FROM transactions
		WHERE type = $1
		GROUP BY category
		ORDER BY 2 DESC
	`, domain.TxTypeIncome)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := make([]domain.CategoryReportRow, 0, 16)
	for rows.Next() {
		var row domain.CategoryReportRow
		if err := rows.Scan(&row.Name, &row.Value); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return breakdown, nil
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
