package services

import (
	"context"
	"strings"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/eventbus"
)

type ConfigItemChangedEvent struct {
	Kind    configitem.Kind
	ItemID  uint
	Action  string
	Deleted bool
}

// ConfigItemService administers criteria, questions and checklist items.
// Every mutation invalidates the cached list of the affected kind.
type ConfigItemService struct {
	repo      configitem.Repository
	cache     ConfigInvalidator
	publisher eventbus.EventBus
	tx        Transactor
}

func NewConfigItemService(repo configitem.Repository, cache ConfigInvalidator, publisher eventbus.EventBus, tx Transactor) *ConfigItemService {
	if tx == nil {
		tx = NewPoolTransactor()
	}
	return &ConfigItemService{repo: repo, cache: cache, publisher: publisher, tx: tx}
}

type ConfigItemInput struct {
	Kind      configitem.Kind
	Label     string
	SortOrder int
}

func (s *ConfigItemService) List(ctx context.Context, kind configitem.Kind) ([]configitem.Item, error) {
	if _, err := configitem.ParseKind(string(kind)); err != nil {
		return nil, mapDomainError(err)
	}
	items, err := s.repo.List(ctx, kind)
	return items, mapDomainError(err)
}

func (s *ConfigItemService) Create(ctx context.Context, in ConfigItemInput) (configitem.Item, error) {
	kind, err := configitem.ParseKind(string(in.Kind))
	if err != nil {
		return configitem.Item{}, mapDomainError(err)
	}
	if strings.TrimSpace(in.Label) == "" {
		return configitem.Item{}, validationError("label is required")
	}
	created, err := inTx(ctx, s.tx, func(txCtx context.Context) (configitem.Item, error) {
		return s.repo.Create(txCtx, configitem.New(kind, in.Label, in.SortOrder))
	})
	if err != nil {
		return configitem.Item{}, mapDomainError(err)
	}
	s.changed(created, "created")
	return created, nil
}

func (s *ConfigItemService) Update(ctx context.Context, id uint, label string, sortOrder int) (configitem.Item, error) {
	if strings.TrimSpace(label) == "" {
		return configitem.Item{}, validationError("label is required")
	}
	updated, err := s.mutate(ctx, id, func(it configitem.Item) configitem.Item {
		return it.WithLabel(label).WithSortOrder(sortOrder)
	})
	if err != nil {
		return configitem.Item{}, err
	}
	s.changed(updated, "updated")
	return updated, nil
}

// Toggle flips the item's active flag.
func (s *ConfigItemService) Toggle(ctx context.Context, id uint) (configitem.Item, error) {
	toggled, err := s.mutate(ctx, id, func(it configitem.Item) configitem.Item {
		return it.WithActive(!it.IsActive())
	})
	if err != nil {
		return configitem.Item{}, err
	}
	s.changed(toggled, "toggled")
	return toggled, nil
}

func (s *ConfigItemService) Delete(ctx context.Context, id uint) (configitem.Item, error) {
	deleted, err := inTx(ctx, s.tx, func(txCtx context.Context) (configitem.Item, error) {
		it, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return configitem.Item{}, err
		}
		return it, s.repo.Delete(txCtx, id)
	})
	if err != nil {
		return configitem.Item{}, mapDomainError(err)
	}
	s.changed(deleted, "deleted")
	return deleted, nil
}

func (s *ConfigItemService) mutate(ctx context.Context, id uint, fn func(configitem.Item) configitem.Item) (configitem.Item, error) {
	out, err := inTx(ctx, s.tx, func(txCtx context.Context) (configitem.Item, error) {
		it, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return configitem.Item{}, err
		}
		next := fn(it)
		return next, s.repo.Update(txCtx, next)
	})
	return out, mapDomainError(err)
}

func (s *ConfigItemService) changed(it configitem.Item, action string) {
	s.cache.Invalidate(it.Kind())
	if s.publisher != nil {
		s.publisher.Publish(&ConfigItemChangedEvent{
			Kind:    it.Kind(),
			ItemID:  it.ID(),
			Action:  action,
			Deleted: action == "deleted",
		})
	}
}
