package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/persistence/models"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

const (
	blacklistColumns     = `id, external_id, handle, reason, expires_at, created_by, created_at`
	blacklistSelectQuery = `SELECT ` + blacklistColumns + ` FROM recruitment_blacklist`

	blacklistMatchQuery = blacklistSelectQuery + `
		WHERE ($1 <> '' AND external_id = $1)
		   OR ($2 <> '' AND handle <> '' AND lower(handle) = lower($2))
		ORDER BY id`

	blacklistInsertQuery = `
		INSERT INTO recruitment_blacklist (external_id, handle, reason, expires_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
		RETURNING ` + blacklistColumns

	blacklistByExternalIDQuery = blacklistSelectQuery + ` WHERE external_id = $1`
	blacklistByHandleQuery     = blacklistSelectQuery + ` WHERE external_id = '' AND lower(handle) = lower($1)`
	blacklistDeleteQuery       = `DELETE FROM recruitment_blacklist WHERE id = $1`
)

type BlacklistRepository struct{}

func NewBlacklistRepository() blacklist.Repository {
	return &BlacklistRepository{}
}

func (r *BlacklistRepository) FindMatching(ctx context.Context, externalID, handle string) ([]blacklist.Entry, error) {
	if externalID == "" && handle == "" {
		return nil, nil
	}
	return r.queryEntries(ctx, blacklistMatchQuery, externalID, handle)
}

// CreateIfAbsent leans on the partial unique indexes: a conflicting insert
// returns no row and the existing entry is read back instead.
func (r *BlacklistRepository) CreateIfAbsent(ctx context.Context, e blacklist.Entry) (blacklist.Entry, bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return blacklist.Entry{}, false, err
	}
	m := ToDBBlacklistEntry(e)
	created, err := scanBlacklistEntry(tx.QueryRow(
		ctx,
		blacklistInsertQuery,
		m.ExternalID,
		m.Handle,
		m.Reason,
		m.ExpiresAt,
		m.CreatedBy,
		m.CreatedAt,
	))
	if err == nil {
		return ToDomainBlacklistEntry(created), true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return blacklist.Entry{}, false, errors.Wrap(err, "failed to insert blacklist entry")
	}

	var existing []blacklist.Entry
	if e.ExternalID != "" {
		existing, err = r.queryEntries(ctx, blacklistByExternalIDQuery, e.ExternalID)
	} else {
		existing, err = r.queryEntries(ctx, blacklistByHandleQuery, e.Handle)
	}
	if err != nil {
		return blacklist.Entry{}, false, err
	}
	if len(existing) == 0 {
		return blacklist.Entry{}, false, errors.New("blacklist insert conflicted but no entry was found")
	}
	return existing[0], false, nil
}

func (r *BlacklistRepository) Delete(ctx context.Context, id uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, blacklistDeleteQuery, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete blacklist entry")
	}
	if tag.RowsAffected() == 0 {
		return blacklist.ErrNotFound
	}
	return nil
}

func (r *BlacklistRepository) List(ctx context.Context) ([]blacklist.Entry, error) {
	return r.queryEntries(ctx, blacklistSelectQuery+" ORDER BY created_at DESC, id DESC")
}

func (r *BlacklistRepository) queryEntries(ctx context.Context, query string, args ...any) ([]blacklist.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var out []blacklist.Entry
	for rows.Next() {
		m, err := scanBlacklistEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan blacklist entry")
		}
		out = append(out, ToDomainBlacklistEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return out, nil
}

func scanBlacklistEntry(row pgx.Row) (models.BlacklistEntry, error) {
	var m models.BlacklistEntry
	err := row.Scan(&m.ID, &m.ExternalID, &m.Handle, &m.Reason, &m.ExpiresAt, &m.CreatedBy, &m.CreatedAt)
	return m, err
}
