package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

// --- CartStorer Implementation ---

// AddCartItem creates a line for (user, product, size) or bumps its quantity by one.
func (s *PostgresStore) AddCartItem(ctx context.Context, userID, productID int64, size string) (*domain.CartItem, error) {
	query := `
		INSERT INTO shop.cart_items (user_id, product_id, size, quantity)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, product_id, size)
		DO UPDATE SET quantity = shop.cart_items.quantity + 1
		RETURNING id, user_id, product_id, size, quantity, added_at;
	`
	var item domain.CartItem
	err := s.db.QueryRowContext(ctx, query, userID, productID, size).Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Size, &item.Quantity, &item.AddedAt,
	)
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: AddCartItem failed to scan row: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) ListCartItems(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.size, c.quantity, c.added_at,
			p.id, p.name, p.description, p.category_id, p.price, p.sale_price, p.image, p.available, p.quantity, p.available_sizes
		FROM shop.cart_items c
		JOIN shop.products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.added_at ASC, c.id ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("store: ListCartItems failed to query cart: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var c domain.CartItem
		p := &c.Product
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.ProductID, &c.Size, &c.Quantity, &c.AddedAt,
			&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.Price, &p.SalePrice,
			&p.Image, &p.Available, &p.Quantity, &p.AvailableSizes,
		); err != nil {
			return nil, fmt.Errorf("store: ListCartItems failed to scan cart row: %w", err)
		}
		items = append(items, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCartItems iteration error: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateCartItemQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	query := `UPDATE shop.cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3;`
	result, err := s.db.ExecContext(ctx, query, quantity, itemID, userID)
	if err != nil {
		return fmt.Errorf("store: UpdateCartItemQuantity failed to execute update: %w", err)
	}
	return expectAffected(result, ErrCartItemNotFound)
}

// UpdateCartItemSize changes a line's size. When the user already has the
// product in the new size the two lines are merged.
func (s *PostgresStore) UpdateCartItemSize(ctx context.Context, userID, itemID int64, size string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: UpdateCartItemSize failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var productID int64
	var quantity int
	err = tx.QueryRowContext(ctx,
		`SELECT product_id, quantity FROM shop.cart_items WHERE id = $1 AND user_id = $2 FOR UPDATE;`,
		itemID, userID,
	).Scan(&productID, &quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("store: UpdateCartItemSize failed to load item: %w", err)
	}

	var siblingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM shop.cart_items WHERE user_id = $1 AND product_id = $2 AND size = $3 AND id <> $4 FOR UPDATE;`,
		userID, productID, size, itemID,
	).Scan(&siblingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `UPDATE shop.cart_items SET size = $1 WHERE id = $2;`, size, itemID); err != nil {
			return fmt.Errorf("store: UpdateCartItemSize failed to update size: %w", err)
		}
	case err != nil:
		return fmt.Errorf("store: UpdateCartItemSize failed to look up sibling line: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE shop.cart_items SET quantity = quantity + $1 WHERE id = $2;`, quantity, siblingID); err != nil {
			return fmt.Errorf("store: UpdateCartItemSize failed to merge quantity: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM shop.cart_items WHERE id = $1;`, itemID); err != nil {
			return fmt.Errorf("store: UpdateCartItemSize failed to delete merged line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: UpdateCartItemSize failed to commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCartItem(ctx context.Context, userID, itemID int64) error {
	query := `DELETE FROM shop.cart_items WHERE id = $1 AND user_id = $2;`
	result, err := s.db.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		return fmt.Errorf("store: DeleteCartItem failed to execute delete: %w", err)
	}
	return expectAffected(result, ErrCartItemNotFound)
}

// expectAffected returns notFound when result touched no rows.
func expectAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
