// Package store is the durable order and match repository. It is the
// single source of truth: the in-memory book is a cache rebuilt from
// it at startup, and every status transition is written here before
// the book reflects it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lemonmarkets/matching-engine/internal/models"
	"github.com/shopspring/decimal"
)

const mysqlDupEntry = 1062

// Store is the order/match repository contract consumed by the
// facade (InsertOrder), the processor (BeginPass), and startup
// recovery in cmd/server (LoadRestorableOrders).
type Store interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	LoadRestorableOrders(ctx context.Context) ([]*models.Order, error)
	BeginPass(ctx context.Context) (Pass, error)
}

// Pass scopes every read/write of one processor dequeue to a single
// transaction: all match inserts and order updates commit together,
// or none do. It is an interface so the processor's tests can supply
// an in-memory fake instead of a live database.
type Pass interface {
	LoadOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	InsertMatch(ctx context.Context, match *models.Match, buyInternalID, sellInternalID int64) error
	Commit() error
	Rollback() error
}

// MySQLStore is the MySQL-backed Store implementation.
type MySQLStore struct {
	db *sql.DB

	insertOrderStmt      *sql.Stmt
	selectByOrderIDStmt  *sql.Stmt
	updateOrderStmt      *sql.Stmt
	insertMatchStmt      *sql.Stmt
	selectRestorableStmt *sql.Stmt
}

// New prepares statements against db and returns a MySQLStore.
func New(db *sql.DB) (*MySQLStore, error) {
	s := &MySQLStore{db: db}
	if err := s.prepare(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) prepare() error {
	var err error

	s.insertOrderStmt, err = s.db.Prepare(`
		INSERT INTO orders (order_id, created_at, type, side, instrument, limit_price, quantity, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert order: %w", err)
	}

	s.selectByOrderIDStmt, err = s.db.Prepare(`
		SELECT id, order_id, created_at, type, side, instrument, limit_price, quantity, status
		FROM orders WHERE order_id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare select order: %w", err)
	}

	s.updateOrderStmt, err = s.db.Prepare(`
		UPDATE orders SET quantity = ?, status = ? WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare update order: %w", err)
	}

	s.insertMatchStmt, err = s.db.Prepare(`
		INSERT INTO matches (buy_order_id, sell_order_id, matched_quantity, matched_at, instrument)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert match: %w", err)
	}

	s.selectRestorableStmt, err = s.db.Prepare(`
		SELECT id, order_id, created_at, type, side, instrument, limit_price, quantity, status
		FROM orders WHERE status IN ('OPEN', 'SUBMITTED', 'PARTIAL')
		ORDER BY created_at ASC, order_id ASC
	`)
	if err != nil {
		return fmt.Errorf("prepare select restorable: %w", err)
	}

	return nil
}

// Close releases the prepared statements.
func (s *MySQLStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertOrderStmt, s.selectByOrderIDStmt, s.updateOrderStmt, s.insertMatchStmt, s.selectRestorableStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}

// InsertOrder persists a new order outside of a pass transaction; it
// is a single atomic write used by the submission facade.
func (s *MySQLStore) InsertOrder(ctx context.Context, order *models.Order) error {
	var priceVal interface{}
	if order.LimitPrice != nil {
		priceVal = order.LimitPrice.StringFixed(2)
	}

	res, err := s.insertOrderStmt.ExecContext(ctx,
		order.ID, order.CreatedAt, string(order.Type), string(order.Side),
		order.Instrument, priceVal, order.Quantity, string(order.Status),
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDupEntry {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read inserted order id: %w", err)
	}
	order.InternalID = id
	return nil
}

// LoadByID reads the current durable state of id outside of any pass,
// for the read-only HTTP lookup path. It performs no locking beyond
// whatever the database's default read isolation provides.
func (s *MySQLStore) LoadByID(ctx context.Context, id string) (*models.Order, error) {
	row := s.selectByOrderIDStmt.QueryRowContext(ctx, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	return order, nil
}

// LoadRestorableOrders returns every non-terminal order, oldest first,
// used once at startup to rebuild the in-memory book.
func (s *MySQLStore) LoadRestorableOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.selectRestorableStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query restorable orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// BeginPass opens the single logical transaction wrapping one
// processor dequeue.
func (s *MySQLStore) BeginPass(ctx context.Context) (Pass, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin pass transaction: %w", err)
	}
	return &sqlPass{tx: tx, s: s}, nil
}

// sqlPass is the MySQL-backed implementation of Pass.
type sqlPass struct {
	tx *sql.Tx
	s  *MySQLStore
}

// LoadOrder returns the current durable state of id within this pass's
// transaction, or ErrNotFound.
func (p *sqlPass) LoadOrder(ctx context.Context, id string) (*models.Order, error) {
	row := p.tx.StmtContext(ctx, p.s.selectByOrderIDStmt).QueryRowContext(ctx, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	return order, nil
}

// UpdateOrder persists order's mutated quantity and status.
func (p *sqlPass) UpdateOrder(ctx context.Context, order *models.Order) error {
	_, err := p.tx.StmtContext(ctx, p.s.updateOrderStmt).ExecContext(ctx, order.Quantity, string(order.Status), order.InternalID)
	if err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}
	return nil
}

// InsertMatch appends an immutable match row. buyInternalID and
// sellInternalID are the surrogate keys of the two orders involved,
// satisfying the matches table's foreign keys.
func (p *sqlPass) InsertMatch(ctx context.Context, match *models.Match, buyInternalID, sellInternalID int64) error {
	_, err := p.tx.StmtContext(ctx, p.s.insertMatchStmt).ExecContext(ctx,
		buyInternalID, sellInternalID, match.MatchedQuantity, match.MatchedAt, match.Instrument,
	)
	if err != nil {
		return fmt.Errorf("insert match %s/%s: %w", match.BuyOrderID, match.SellOrderID, err)
	}
	return nil
}

// Commit commits every mutation made during the pass.
func (p *sqlPass) Commit() error {
	if err := p.tx.Commit(); err != nil {
		return fmt.Errorf("commit pass: %w", err)
	}
	return nil
}

// Rollback discards every mutation made during the pass.
func (p *sqlPass) Rollback() error {
	if err := p.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback pass: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scanner) (*models.Order, error) {
	var o models.Order
	var typ, side, status string
	var limitPrice sql.NullString

	if err := row.Scan(&o.InternalID, &o.ID, &o.CreatedAt, &typ, &side, &o.Instrument, &limitPrice, &o.Quantity, &status); err != nil {
		return nil, err
	}
	o.Type = models.Type(typ)
	o.Side = models.Side(side)
	o.Status = models.Status(status)
	if limitPrice.Valid {
		d, err := decimal.NewFromString(limitPrice.String)
		if err != nil {
			return nil, fmt.Errorf("parse limit_price: %w", err)
		}
		o.LimitPrice = &d
	}
	return &o, nil
}

func scanOrders(rows *sql.Rows) ([]*models.Order, error) {
	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}
