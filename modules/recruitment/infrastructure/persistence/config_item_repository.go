package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/persistence/models"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

const (
	configItemSelectQuery = `SELECT id, kind, label, is_active, sort_order, created_at, updated_at FROM recruitment_config_items`
	configItemOrder       = ` ORDER BY sort_order, id`

	configItemInsertQuery = `
		INSERT INTO recruitment_config_items (kind, label, is_active, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, created_at, updated_at`

	configItemUpdateQuery = `
		UPDATE recruitment_config_items
		SET label = $1, is_active = $2, sort_order = $3, updated_at = now()
		WHERE id = $4`

	configItemDeleteQuery = `DELETE FROM recruitment_config_items WHERE id = $1`
)

type ConfigItemRepository struct{}

func NewConfigItemRepository() configitem.Repository {
	return &ConfigItemRepository{}
}

func (r *ConfigItemRepository) ListActive(ctx context.Context, kind configitem.Kind) ([]configitem.Item, error) {
	return r.queryItems(ctx, configItemSelectQuery+" WHERE kind = $1 AND is_active"+configItemOrder, string(kind))
}

func (r *ConfigItemRepository) List(ctx context.Context, kind configitem.Kind) ([]configitem.Item, error) {
	return r.queryItems(ctx, configItemSelectQuery+" WHERE kind = $1"+configItemOrder, string(kind))
}

func (r *ConfigItemRepository) GetByID(ctx context.Context, id uint) (configitem.Item, error) {
	items, err := r.queryItems(ctx, configItemSelectQuery+" WHERE id = $1", id)
	if err != nil {
		return configitem.Item{}, err
	}
	if len(items) == 0 {
		return configitem.Item{}, configitem.ErrNotFound
	}
	return items[0], nil
}

func (r *ConfigItemRepository) Create(ctx context.Context, item configitem.Item) (configitem.Item, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return configitem.Item{}, err
	}
	m := models.ConfigItem{
		Kind:      string(item.Kind()),
		Label:     item.Label(),
		IsActive:  item.IsActive(),
		SortOrder: item.SortOrder(),
	}
	if err := tx.QueryRow(ctx, configItemInsertQuery, m.Kind, m.Label, m.IsActive, m.SortOrder).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return configitem.Item{}, errors.Wrap(err, "failed to insert config item")
	}
	return ToDomainConfigItem(m), nil
}

func (r *ConfigItemRepository) Update(ctx context.Context, item configitem.Item) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, configItemUpdateQuery, item.Label(), item.IsActive(), item.SortOrder(), item.ID())
	if err != nil {
		return errors.Wrap(err, "failed to update config item")
	}
	if tag.RowsAffected() == 0 {
		return configitem.ErrNotFound
	}
	return nil
}

func (r *ConfigItemRepository) Delete(ctx context.Context, id uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, configItemDeleteQuery, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete config item")
	}
	if tag.RowsAffected() == 0 {
		return configitem.ErrNotFound
	}
	return nil
}

func (r *ConfigItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]configitem.Item, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var items []configitem.Item
	for rows.Next() {
		var m models.ConfigItem
		if err := rows.Scan(&m.ID, &m.Kind, &m.Label, &m.IsActive, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan config item")
		}
		items = append(items, ToDomainConfigItem(m))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return items, nil
}
