package services

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/ranks"
)

const DefaultBadgeClaimAttempts = 25

// BadgeAllocator hands out the lowest free badge of a range. Each attempt reads
// the numbers in use once and then claims a candidate with the repository's
// conditional write; a lost claim is retried with the next candidate.
type BadgeAllocator struct {
	repo     employee.Repository
	attempts int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewBadgeAllocator(repo employee.Repository, attempts int) *BadgeAllocator {
	if attempts <= 0 {
		attempts = DefaultBadgeClaimAttempts
	}
	return &BadgeAllocator{
		repo:     repo,
		attempts: attempts,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (a *BadgeAllocator) rangeLock(r ranks.BadgeRange) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := r.String()
	l, ok := a.locks[key]
	if !ok {
		l = &sync.Mutex{}
		a.locks[key] = l
	}
	return l
}

// Peek returns the badge Allocate would currently try first without claiming it.
func (a *BadgeAllocator) Peek(ctx context.Context, r ranks.BadgeRange) (string, bool, error) {
	used, err := a.inUse(ctx, r)
	if err != nil {
		return "", false, err
	}
	n, ok := lowestFree(r, used)
	if !ok {
		return "", false, nil
	}
	return r.Format(n), true, nil
}

// Allocate claims a badge from r for employeeID. It returns
// ErrBadgeRangeExhausted when no number could be claimed.
func (a *BadgeAllocator) Allocate(ctx context.Context, employeeID uint, r ranks.BadgeRange) (string, error) {
	lock := a.rangeLock(r)
	lock.Lock()
	defer lock.Unlock()

	lost := make(map[int]struct{})
	for attempt := 0; attempt < a.attempts; attempt++ {
		used, err := a.inUse(ctx, r)
		if err != nil {
			return "", err
		}
		for n := range lost {
			used[n] = struct{}{}
		}
		n, ok := lowestFree(r, used)
		if !ok {
			break
		}

		badge := r.Format(n)
		claimed, err := a.repo.ClaimBadge(ctx, employeeID, badge)
		if err != nil {
			return "", errors.Wrapf(err, "claim badge %s", badge)
		}
		if claimed {
			recordBadgeAllocation(r.Prefix, true)
			return badge, nil
		}
		recordBadgeConflict(r.Prefix)
		logWithFields(ctx, logrus.DebugLevel, "badge claim lost, retrying", logrus.Fields{
			"badge":   badge,
			"attempt": attempt + 1,
		})
		lost[n] = struct{}{}
	}

	recordBadgeAllocation(r.Prefix, false)
	return "", ErrBadgeRangeExhausted.Wrap("%s", r)
}

func (a *BadgeAllocator) inUse(ctx context.Context, r ranks.BadgeRange) (map[int]struct{}, error) {
	badges, err := a.repo.ListBadgeNumbers(ctx, r.Prefix)
	if err != nil {
		return nil, errors.Wrap(err, "list badge numbers")
	}
	used := make(map[int]struct{}, len(badges))
	for _, b := range badges {
		prefix, n, ok := ranks.ParseBadge(b)
		if !ok || prefix != r.Prefix || !r.Contains(n) {
			continue
		}
		used[n] = struct{}{}
	}
	return used, nil
}

func lowestFree(r ranks.BadgeRange, used map[int]struct{}) (int, bool) {
	for n := r.Min; n <= r.Max; n++ {
		if _, taken := used[n]; !taken {
			return n, true
		}
	}
	return 0, false
}
