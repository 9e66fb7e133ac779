package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/models"
)

type VerificationRepository interface {
	CreateCode(ctx context.Context, rec *models.VerificationCode) error
	GetCode(ctx context.Context, contact string) (*models.VerificationCode, error)
	GetCodeByMagicToken(ctx context.Context, token string) (*models.VerificationCode, error)
	DeleteCode(ctx context.Context, id uuid.UUID) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	MarkVerified(ctx context.Context, id uuid.UUID, clientID string) error
	CleanupExpired(ctx context.Context) error
}

type verificationRepository struct {
	db DB
}

func NewVerificationRepository(db DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) CreateCode(ctx context.Context, rec *models.VerificationCode) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	q := `
        INSERT INTO verification_codes
            (id, contact, channel, verification_code, magic_token, customer_ids, expires_at, created_at, attempts)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), 0)
    `
	_, err := r.db.Exec(ctx, q,
		rec.ID, rec.Contact, string(rec.Channel), rec.VerificationCode,
		rec.MagicToken, rec.CustomerIDs, rec.ExpiresAt,
	)
	return err
}

func (r *verificationRepository) GetCode(ctx context.Context, contact string) (*models.VerificationCode, error) {
	q := `
        SELECT id, contact, channel, verification_code, magic_token, customer_ids,
               expires_at, attempts, verified, verified_at, verified_by, created_at
        FROM verification_codes
        WHERE contact = $1
        ORDER BY created_at DESC
        LIMIT 1
    `
	return r.scanOne(r.db.QueryRow(ctx, q, contact))
}

func (r *verificationRepository) GetCodeByMagicToken(ctx context.Context, token string) (*models.VerificationCode, error) {
	q := `
        SELECT id, contact, channel, verification_code, magic_token, customer_ids,
               expires_at, attempts, verified, verified_at, verified_by, created_at
        FROM verification_codes
        WHERE magic_token = $1
        ORDER BY created_at DESC
        LIMIT 1
    `
	return r.scanOne(r.db.QueryRow(ctx, q, token))
}

func (r *verificationRepository) scanOne(row pgx.Row) (*models.VerificationCode, error) {
	var rec models.VerificationCode
	var channel string
	err := row.Scan(
		&rec.ID,
		&rec.Contact,
		&channel,
		&rec.VerificationCode,
		&rec.MagicToken,
		&rec.CustomerIDs,
		&rec.ExpiresAt,
		&rec.Attempts,
		&rec.Verified,
		&rec.VerifiedAt,
		&rec.VerifiedBy,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Channel = models.VerificationChannel(channel)
	return &rec, nil
}

func (r *verificationRepository) DeleteCode(ctx context.Context, id uuid.UUID) error {
	q := `DELETE FROM verification_codes WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *verificationRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	q := `UPDATE verification_codes SET attempts = attempts + 1 WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *verificationRepository) MarkVerified(ctx context.Context, id uuid.UUID, clientID string) error {
	q := `
        UPDATE verification_codes
        SET verified = TRUE,
            verified_at = NOW(),
            verified_by = $2
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, q, id, clientID)
	return err
}

func (r *verificationRepository) CleanupExpired(ctx context.Context) error {
	q := `
        DELETE FROM verification_codes
        WHERE
          (verified = FALSE AND expires_at < NOW())
          OR
          (verified = TRUE AND verified_at + INTERVAL '15 minutes' < NOW())
    `
	_, err := r.db.Exec(ctx, q)
	return err
}
