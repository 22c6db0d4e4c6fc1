package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
)

// --- OrderStorer Implementation ---

const orderSelect = `
		SELECT o.id, o.user_id, o.product_id, o.size, o.quantity, o.address, o.payment_method,
			o.paid, o.delivered, o.status, o.transaction_id, o.payment_id, o.unit_price, o.created_at,
			p.id, p.name, p.description, p.category_id, p.price, p.sale_price, p.image, p.available, p.quantity, p.available_sizes
		FROM shop.orders o
		LEFT JOIN shop.products p ON p.id = o.product_id
`

// scanOrder reads an orderSelect row. Product columns are NULL when the product was deleted.
func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o         domain.Order
		method    string
		status    string
		pID       sql.NullInt64
		pName     sql.NullString
		pDesc     *string
		pCategory *int64
		pPrice    decimal.NullDecimal
		pSale     decimal.NullDecimal
		pImage    *string
		pAvail    sql.NullBool
		pQuantity sql.NullInt32
		pSizes    sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.ProductID, &o.Size, &o.Quantity, &o.Address, &method,
		&o.Paid, &o.Delivered, &status, &o.TransactionID, &o.PaymentID, &o.UnitPrice, &o.CreatedAt,
		&pID, &pName, &pDesc, &pCategory, &pPrice, &pSale, &pImage, &pAvail, &pQuantity, &pSizes,
	)
	if err != nil {
		return o, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.Status = domain.OrderStatus(status)
	if pID.Valid {
		o.Product = &domain.Product{
			ID:             pID.Int64,
			Name:           pName.String,
			Description:    pDesc,
			CategoryID:     pCategory,
			Price:          pPrice.Decimal,
			SalePrice:      pSale,
			Image:          pImage,
			Available:      pAvail.Bool,
			Quantity:       pQuantity.Int32,
			AvailableSizes: pSizes.String,
		}
	}
	return o, nil
}

func (s *PostgresStore) queryOrders(ctx context.Context, op, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: %s failed to query orders: %w", op, err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("store: %s failed to scan order row: %w", op, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %s iteration error: %w", op, err)
	}
	return orders, nil
}

// CreateOrdersFromCart inserts one order per element of orders and deletes the
// cart lines they were built from. Either everything commits or nothing does;
// ErrCartChanged is returned when any of those lines is already gone.
func (s *PostgresStore) CreateOrdersFromCart(ctx context.Context, userID int64, cartItemIDs []int64, orders []domain.Order) ([]domain.Order, error) {
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: CreateOrdersFromCart failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO shop.orders (user_id, product_id, size, quantity, address, payment_method, paid, status, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at;
	`
	created := make([]domain.Order, len(orders))
	for i, o := range orders {
		o.UserID = userID
		err := tx.QueryRowContext(ctx, insert,
			userID, o.ProductID, o.Size, o.Quantity, o.Address, string(o.PaymentMethod), o.Paid, string(o.Status), o.UnitPrice,
		).Scan(&o.ID, &o.CreatedAt)
		if err != nil {
			if isPQError(err, pqForeignKeyViolation) {
				return nil, ErrProductNotFound
			}
			return nil, fmt.Errorf("store: CreateOrdersFromCart failed to insert order: %w", err)
		}
		created[i] = o
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM shop.cart_items WHERE user_id = $1 AND id = ANY($2);`,
		userID, pq.Array(cartItemIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("store: CreateOrdersFromCart failed to clear cart: %w", err)
	}
	cleared, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("store: CreateOrdersFromCart failed to get rows affected: %w", err)
	}
	// A concurrent checkout or cart edit already consumed some of these lines.
	if cleared != int64(len(cartItemIDs)) {
		return nil, ErrCartChanged
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: CreateOrdersFromCart failed to commit: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	query := orderSelect + ` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC;`
	return s.queryOrders(ctx, "ListOrdersByUser", query, userID)
}

func (s *PostgresStore) ListOrdersByIDs(ctx context.Context, userID int64, ids []int64) ([]domain.Order, error) {
	if len(ids) == 0 {
		return []domain.Order{}, nil
	}
	query := orderSelect + ` WHERE o.user_id = $1 AND o.id = ANY($2) ORDER BY o.id ASC;`
	return s.queryOrders(ctx, "ListOrdersByIDs", query, userID, pq.Array(ids))
}

// AttachTransactionID stamps transactionID onto those orders that are still
// pending, unpaid and unstamped, and returns how many it stamped. If the provider's
// callback for that id already arrived, its outcome is applied in the same transaction.
func (s *PostgresStore) AttachTransactionID(ctx context.Context, orderIDs []int64, transactionID string) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, ErrNoOrders
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: AttachTransactionID failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Orders already carrying an outstanding push keep their id.
	result, err := tx.ExecContext(ctx,
		`UPDATE shop.orders SET transaction_id = $1 WHERE id = ANY($2) AND transaction_id IS NULL AND paid = FALSE AND status = $3;`,
		transactionID, pq.Array(orderIDs), string(domain.OrderStatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("store: AttachTransactionID failed to update orders: %w", err)
	}
	stamped, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: AttachTransactionID failed to get rows affected: %w", err)
	}
	if stamped == 0 {
		return 0, nil
	}

	var payment domain.Payment
	err = scanPayment(tx.QueryRowContext(ctx, paymentSelect+` WHERE transaction_id = $1;`, transactionID), &payment)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, fmt.Errorf("store: AttachTransactionID failed to look up payment: %w", err)
	default:
		s.logger.Warn("Payment callback arrived before transaction id was attached; applying it now")
		if _, err := applyPayment(ctx, tx, &payment); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: AttachTransactionID failed to commit: %w", err)
	}
	return stamped, nil
}

type orderRef struct {
	id     int64
	userID int64
}

// applyPayment settles every order carrying the payment's transaction id and
// links the payment back to the first of them.
func applyPayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) (int, error) {
	paid, status := payment.OrderOutcome()
	rows, err := tx.QueryContext(ctx,
		`UPDATE shop.orders SET paid = $1, status = $2, payment_id = $3 WHERE transaction_id = $4 RETURNING id, user_id;`,
		paid, string(status), payment.ID, payment.TransactionID,
	)
	if err != nil {
		return 0, fmt.Errorf("store: failed to settle orders: %w", err)
	}
	var refs []orderRef
	for rows.Next() {
		var ref orderRef
		if err := rows.Scan(&ref.id, &ref.userID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: failed to scan settled order: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("store: settled orders iteration error: %w", err)
	}
	rows.Close()
	if len(refs) == 0 {
		return 0, nil
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].id < refs[j].id })
	first := refs[0]
	if _, err := tx.ExecContext(ctx,
		`UPDATE shop.payments SET order_id = $1, user_id = $2 WHERE id = $3 AND order_id IS NULL;`,
		first.id, first.userID, payment.ID,
	); err != nil {
		return 0, fmt.Errorf("store: failed to link payment to order: %w", err)
	}
	if payment.OrderID == nil {
		payment.OrderID = &first.id
		payment.UserID = &first.userID
	}
	return len(refs), nil
}
