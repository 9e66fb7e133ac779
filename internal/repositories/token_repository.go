package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/models"
)

type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, rec *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RemoveRefreshToken(ctx context.Context, token string) error
	RemoveAllForCustomer(ctx context.Context, customerID int64) error
	CleanupExpired(ctx context.Context) error
}

type tokenRepository struct {
	db DB
}

func NewTokenRepository(db DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateRefreshToken(ctx context.Context, rec *models.RefreshToken) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	q := `
        INSERT INTO refresh_tokens (id, customer_id, customer_ids, token, ip_address, expires_at, revoked, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
    `
	_, err := r.db.Exec(ctx, q,
		rec.ID, rec.CustomerID, rec.CustomerIDs, rec.Token, rec.IPAddress, rec.ExpiresAt,
	)
	return err
}

func (r *tokenRepository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	q := `
        SELECT id, customer_id, customer_ids, token, ip_address, expires_at, revoked, created_at
        FROM refresh_tokens
        WHERE token = $1 AND revoked = FALSE
    `
	row := r.db.QueryRow(ctx, q, token)
	var rec models.RefreshToken
	err := row.Scan(
		&rec.ID,
		&rec.CustomerID,
		&rec.CustomerIDs,
		&rec.Token,
		&rec.IPAddress,
		&rec.ExpiresAt,
		&rec.Revoked,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *tokenRepository) RemoveRefreshToken(ctx context.Context, token string) error {
	q := `DELETE FROM refresh_tokens WHERE token = $1`
	_, err := r.db.Exec(ctx, q, token)
	return err
}

func (r *tokenRepository) RemoveAllForCustomer(ctx context.Context, customerID int64) error {
	q := `DELETE FROM refresh_tokens WHERE customer_id = $1`
	_, err := r.db.Exec(ctx, q, customerID)
	return err
}

func (r *tokenRepository) CleanupExpired(ctx context.Context) error {
	q := `DELETE FROM refresh_tokens WHERE expires_at < NOW() OR revoked = TRUE`
	_, err := r.db.Exec(ctx, q)
	return err
}
