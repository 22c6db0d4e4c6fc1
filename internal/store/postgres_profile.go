package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

// --- ProfileStorer Implementation ---

// GetOrCreateProfile returns the user's profile, creating an empty one on first access.
func (s *PostgresStore) GetOrCreateProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO shop.profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING;`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("store: GetOrCreateProfile failed to ensure profile: %w", err)
	}

	var profile domain.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, phone_number FROM shop.profiles WHERE user_id = $1;`,
		userID,
	).Scan(&profile.UserID, &profile.PhoneNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("store: GetOrCreateProfile failed to scan row: %w", err)
	}
	return &profile, nil
}

func (s *PostgresStore) SetPhoneNumber(ctx context.Context, userID int64, phone string) error {
	query := `
		INSERT INTO shop.profiles (user_id, phone_number)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET phone_number = EXCLUDED.phone_number;
	`
	if _, err := s.db.ExecContext(ctx, query, userID, phone); err != nil {
		return fmt.Errorf("store: SetPhoneNumber failed to upsert profile: %w", err)
	}
	return nil
}
