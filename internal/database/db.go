package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"github.com/spendlens/engine/models"
)

// DB is the read-side collaborator over the platform's Postgres tables. The
// engine never writes here; result persistence belongs to the platform.
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New opens and verifies a database connection.
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{db}, nil
}

// LoadPriceHistory returns an item/vendor pair's price observations, oldest
// first, capped at limit rows.
func (db *DB) LoadPriceHistory(ctx context.Context, itemID, vendorID string, limit int) ([]models.PriceObservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT observed_on, unit_price, COALESCE(quantity, 0)
		FROM price_observations
		WHERE item_id = $1 AND vendor_id = $2
		ORDER BY observed_on ASC
		LIMIT $3
	`, itemID, vendorID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying price observations: %w", err)
	}
	defer rows.Close()

	var history []models.PriceObservation
	for rows.Next() {
		var obs models.PriceObservation
		if err := rows.Scan(&obs.Date, &obs.Price, &obs.Volume); err != nil {
			return nil, fmt.Errorf("scanning price observation: %w", err)
		}
		history = append(history, obs)
	}
	return history, rows.Err()
}

// LoadInvoiceLines assembles a DataPoint batch from recent invoice lines.
// Feature layout follows the platform convention: unit price first,
// quantity second.
func (db *DB) LoadInvoiceLines(ctx context.Context, since time.Time, limit int) ([]models.DataPoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, vendor_id, unit_price, quantity
		FROM invoice_lines
		WHERE invoiced_on >= $1
		ORDER BY invoiced_on ASC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("querying invoice lines: %w", err)
	}
	defer rows.Close()

	var points []models.DataPoint
	for rows.Next() {
		var (
			id       int64
			vendorID string
			price    float64
			quantity float64
		)
		if err := rows.Scan(&id, &vendorID, &price, &quantity); err != nil {
			return nil, fmt.Errorf("scanning invoice line: %w", err)
		}
		points = append(points, models.DataPoint{
			ID:       strconv.FormatInt(id, 10),
			Features: []float64{price, quantity},
			Metadata: map[string]interface{}{"vendor_id": vendorID},
		})
	}
	return points, rows.Err()
}

// LoadTransactions assembles a TransactionNode batch from recent vendor
// payments for the graph analyzer.
func (db *DB) LoadTransactions(ctx context.Context, since time.Time, limit int) ([]models.TransactionNode, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, vendor_id, amount, bank_account, target_vendor_id, paid_on
		FROM vendor_payments
		WHERE paid_on >= $1
		ORDER BY paid_on ASC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("querying vendor payments: %w", err)
	}
	defer rows.Close()

	var transactions []models.TransactionNode
	for rows.Next() {
		var (
			tx           models.TransactionNode
			bankAccount  sql.NullString
			targetVendor sql.NullString
		)
		if err := rows.Scan(&tx.ID, &tx.VendorID, &tx.Amount, &bankAccount, &targetVendor, &tx.Date); err != nil {
			return nil, fmt.Errorf("scanning vendor payment: %w", err)
		}
		tx.BankAccount = bankAccount.String
		tx.TargetVendorID = targetVendor.String
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
