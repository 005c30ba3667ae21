package configitem

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/serrors"
)

type Kind string

const (
	KindCriteria   Kind = "criteria"
	KindQuestions  Kind = "questions"
	KindOnboarding Kind = "onboarding"
)

var Kinds = []Kind{KindCriteria, KindQuestions, KindOnboarding}

func ParseKind(v string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(v)))
	switch k {
	case KindCriteria, KindQuestions, KindOnboarding:
		return k, nil
	default:
		return "", ErrUnknownKind.Wrap("%q", v)
	}
}

var (
	ErrNotFound    = serrors.NewError("CONFIG_ITEM_NOT_FOUND", "configuration item not found", "")
	ErrUnknownKind = serrors.NewError("CONFIG_ITEM_UNKNOWN_KIND", "unknown configuration kind", "")
)

type Item struct {
	id        uint
	kind      Kind
	label     string
	isActive  bool
	sortOrder int
	createdAt time.Time
	updatedAt time.Time
}

func New(kind Kind, label string, sortOrder int) Item {
	return Item{
		kind:      kind,
		label:     strings.TrimSpace(label),
		isActive:  true,
		sortOrder: sortOrder,
	}
}

func Hydrate(id uint, kind Kind, label string, isActive bool, sortOrder int, createdAt, updatedAt time.Time) Item {
	return Item{
		id:        id,
		kind:      kind,
		label:     label,
		isActive:  isActive,
		sortOrder: sortOrder,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (i Item) ID() uint             { return i.id }
func (i Item) Kind() Kind           { return i.kind }
func (i Item) Label() string        { return i.label }
func (i Item) IsActive() bool       { return i.isActive }
func (i Item) SortOrder() int       { return i.sortOrder }
func (i Item) CreatedAt() time.Time { return i.createdAt }
func (i Item) UpdatedAt() time.Time { return i.updatedAt }

// Key is the identifier progress snapshots use for this item.
func (i Item) Key() string { return strconv.FormatUint(uint64(i.id), 10) }

func (i Item) WithLabel(label string) Item {
	i.label = strings.TrimSpace(label)
	return i
}

func (i Item) WithSortOrder(order int) Item {
	i.sortOrder = order
	return i
}

func (i Item) WithActive(active bool) Item {
	i.isActive = active
	return i
}

// Entry is the read model a pipeline step evaluates against.
type Entry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s:%s", e.ID, e.Label)
}

func Entries(items []Item) []Entry {
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, Entry{ID: it.Key(), Label: it.Label()})
	}
	return out
}

func EntryIDs(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

type Repository interface {
	// ListActive returns the active items of kind ordered by sort order, then id.
	ListActive(ctx context.Context, kind Kind) ([]Item, error)
	List(ctx context.Context, kind Kind) ([]Item, error)
	GetByID(ctx context.Context, id uint) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, item Item) error
	Delete(ctx context.Context, id uint) error
}
