package repo

import (
	"context"
	"database/sql"
	"errors"
)

// WebhookCursor returns the last delivered sequence for a webhook URL. ok is false
// when the webhook has never delivered.
func (r Repo) WebhookCursor(ctx context.Context, url string) (seq int64, ok bool, err error) {
	err = r.q(ctx).QueryRowContext(ctx, `SELECT last_seq FROM webhook_cursors WHERE url=?`, url).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return seq, true, nil
}

func (r Repo) SetWebhookCursor(ctx context.Context, url string, seq int64) error {
	_, err := r.q(ctx).ExecContext(ctx, `INSERT INTO webhook_cursors(url,last_seq,updated_at) VALUES (?,?,?)
ON CONFLICT(url) DO UPDATE SET last_seq=excluded.last_seq, updated_at=excluded.updated_at`, url, seq, r.now())
	return err
}
