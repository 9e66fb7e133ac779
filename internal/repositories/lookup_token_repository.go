package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/models"
)

type LookupTokenRepository interface {
	Create(ctx context.Context, tok *models.LookupToken) error
	Get(ctx context.Context, token uuid.UUID) (*models.LookupToken, error)
	MarkConsumed(ctx context.Context, token uuid.UUID) error
	Delete(ctx context.Context, token uuid.UUID) error
	CleanupExpired(ctx context.Context) error
}

type lookupTokenRepository struct {
	db DB
}

func NewLookupTokenRepository(db DB) LookupTokenRepository {
	return &lookupTokenRepository{db: db}
}

func (r *lookupTokenRepository) Create(ctx context.Context, tok *models.LookupToken) error {
	if tok.Token == uuid.Nil {
		tok.Token = uuid.New()
	}
	q := `
        INSERT INTO lookup_tokens (token, phone, customer_ids, emails, expires_at, consumed, created_at)
        VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
    `
	_, err := r.db.Exec(ctx, q, tok.Token, tok.Phone, tok.CustomerIDs, tok.Emails, tok.ExpiresAt)
	return err
}

func (r *lookupTokenRepository) Get(ctx context.Context, token uuid.UUID) (*models.LookupToken, error) {
	q := `
        SELECT token, phone, customer_ids, emails, expires_at, consumed, created_at
        FROM lookup_tokens
        WHERE token = $1
    `
	row := r.db.QueryRow(ctx, q, token)
	var rec models.LookupToken
	err := row.Scan(
		&rec.Token,
		&rec.Phone,
		&rec.CustomerIDs,
		&rec.Emails,
		&rec.ExpiresAt,
		&rec.Consumed,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *lookupTokenRepository) MarkConsumed(ctx context.Context, token uuid.UUID) error {
	q := `UPDATE lookup_tokens SET consumed = TRUE WHERE token = $1`
	_, err := r.db.Exec(ctx, q, token)
	return err
}

func (r *lookupTokenRepository) Delete(ctx context.Context, token uuid.UUID) error {
	q := `DELETE FROM lookup_tokens WHERE token = $1`
	_, err := r.db.Exec(ctx, q, token)
	return err
}

func (r *lookupTokenRepository) CleanupExpired(ctx context.Context) error {
	q := `DELETE FROM lookup_tokens WHERE expires_at < NOW() OR consumed = TRUE`
	_, err := r.db.Exec(ctx, q)
	return err
}
