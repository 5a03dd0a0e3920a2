package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/artpar/botgate/domain/token"
	"github.com/artpar/botgate/ports"
)

// GetToken returns the user's stored token record.
func (s *HistoryStore) GetToken(ctx context.Context, userID string) (token.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, token_hash, token_salt, expires_at, used, created_at
		FROM access_tokens
		WHERE user_id = ?
	`, userID)

	var rec token.Record
	err := row.Scan(&rec.UserID, &rec.Hash, &rec.Salt, &rec.ExpiresAt, &rec.Used, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return token.Record{}, ports.ErrNotFound
	}
	if err != nil {
		return token.Record{}, err
	}
	return rec, nil
}

// PutToken stores the user's token record, replacing any prior one.
// A schema without the access_tokens table (older deployments) maps to
// ports.ErrUnsupported instead of an error.
func (s *HistoryStore) PutToken(ctx context.Context, userID string, rec token.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_tokens (user_id, token_hash, token_salt, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			token_hash = excluded.token_hash,
			token_salt = excluded.token_salt,
			expires_at = excluded.expires_at,
			used = excluded.used,
			created_at = excluded.created_at
	`, userID, rec.Hash, rec.Salt, rec.ExpiresAt, rec.Used, rec.CreatedAt)
	if err != nil && isMissingTable(err) {
		return ports.ErrUnsupported
	}
	return err
}

// MarkTokenUsed marks the user's stored token as used. Idempotent.
func (s *HistoryStore) MarkTokenUsed(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE access_tokens SET used = 1 WHERE user_id = ?
	`, userID)
	if err != nil && isMissingTable(err) {
		return nil
	}
	return err
}

// SQLite reports a missing table only through the error text.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
