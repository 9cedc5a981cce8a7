package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

const (
	uniqueViolation = "23505"
	// tokens are millisecond based, so a collision means a concurrent
	// checkout in the same millisecond; bumping by one resolves it. Ids are
	// MAX(id)+1 so they stay gapless, and two concurrent inserts that read
	// the same MAX surface as the same unique violation.
	maxTokenAttempts = 5
)

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresRepository(db *sql.DB, opts ...Option) *PostgresRepository {
	o := buildOptions(opts)
	return &PostgresRepository{db: db, now: o.now}
}

func (r *PostgresRepository) Create(ctx context.Context, input domain.OrderInput) (domain.Order, error) {
	// timestamptz keeps microseconds
	now := r.now().UTC().Truncate(time.Microsecond)
	order := newOrder(input, now)

	millis := now.UnixMilli()
	for attempt := range maxTokenAttempts {
		order.OrderID = orderToken(millis + int64(attempt))

		err := r.insert(ctx, &order)
		if err == nil {
			return order, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			continue
		}
		return domain.Order{}, err
	}

	return domain.Order{}, fmt.Errorf("allocate order id: %d attempts collided", maxTokenAttempts)
}

func (r *PostgresRepository) insert(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	addr := order.ShippingAddress
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders.orders (id, order_id, status, total, name, email, phone, address, city, state, pincode,
		                           order_date, estimated_delivery, updated_at)
		VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM orders.orders),
		        $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $11)
		RETURNING id
	`, order.OrderID, order.Status, order.Total,
		addr.Name, addr.Email, addr.Phone, addr.Address, addr.City, addr.State, addr.Pincode,
		order.OrderDate, order.EstimatedDelivery,
	).Scan(&order.ID)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders.order_items (id, order_id, position, product_id, name, price, image, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New().String(), order.ID, i, item.ProductID, item.Name, item.Price, item.Image, item.Quantity)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", item.ProductID, err)
		}
	}

	return tx.Commit()
}

const orderColumns = `
	id, order_id, status, total, name, email, phone, address, city, state, pincode,
	order_date, estimated_delivery`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	a := &o.ShippingAddress
	err := row.Scan(&o.ID, &o.OrderID, &o.Status, &o.Total,
		&a.Name, &a.Email, &a.Phone, &a.Address, &a.City, &a.State, &a.Pincode,
		&o.OrderDate, &o.EstimatedDelivery)
	o.OrderDate = o.OrderDate.UTC()
	o.EstimatedDelivery = o.EstimatedDelivery.UTC()
	o.Items = []domain.LineItem{}
	return o, err
}

func (r *PostgresRepository) Get(ctx context.Context, ref string) (domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders.orders WHERE order_id = $1`
	var arg any = ref
	if id, err := strconv.Atoi(ref); err == nil {
		query = `SELECT` + orderColumns + ` FROM orders.orders WHERE id = $1`
		arg = id
	}

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, ref)
		}
		return domain.Order{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, price, image, quantity
		FROM orders.order_items
		WHERE order_id = $1
		ORDER BY position
	`, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Image, &item.Quantity); err != nil {
			return domain.Order{}, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT`+orderColumns+`
		FROM orders.orders
		ORDER BY order_date DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[int]*domain.Order)
	var orderIDs []int64

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, int64(order.ID))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, price, image, quantity
		FROM orders.order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID int
		var item domain.LineItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Image, &item.Quantity); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[int(id)])
	}

	return orders, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE orders.orders SET status = $1, updated_at = NOW()
		WHERE order_id = $2
	`, status, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.Order{}, err
	}

	if rowsAffected == 0 {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	return r.Get(ctx, orderID)
}
