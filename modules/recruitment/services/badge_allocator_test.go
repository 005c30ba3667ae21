package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/ranks"
)

var testRange = ranks.BadgeRange{Prefix: "TS", Min: 1, Max: 5}

func seedEmployees(t *testing.T, repo *fakeEmployeeRepo, badges ...string) []uint {
	t.Helper()
	tier, _ := ranks.Lookup(1)
	ids := make([]uint, 0, len(badges))
	for i, b := range badges {
		e := employee.NewHire(fmt.Sprintf("seed-%d", i), "Seed", tier, time.Now())
		if b != "" {
			e = e.WithBadge(b)
		}
		ids = append(ids, repo.seed(e, 0).ID())
	}
	return ids
}

func TestBadgeAllocator_PicksLowestFree(t *testing.T) {
	repo := newFakeEmployeeRepo()
	seedEmployees(t, repo, "TS-001", "TS-003", "XX-002")
	ids := seedEmployees(t, repo, "")
	alloc := NewBadgeAllocator(repo, DefaultBadgeClaimAttempts)

	peek, ok, err := alloc.Peek(context.Background(), testRange)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "TS-002", peek)

	badge, err := alloc.Allocate(context.Background(), ids[0], testRange)
	require.NoError(t, err)
	assert.Equal(t, "TS-002", badge)

	stored, err := repo.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "TS-002", stored.Badge())
}

func TestBadgeAllocator_Exhausted(t *testing.T) {
	repo := newFakeEmployeeRepo()
	seedEmployees(t, repo, "TS-001", "TS-002", "TS-003", "TS-004", "TS-005")
	ids := seedEmployees(t, repo, "")
	alloc := NewBadgeAllocator(repo, DefaultBadgeClaimAttempts)

	_, ok, err := alloc.Peek(context.Background(), testRange)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = alloc.Allocate(context.Background(), ids[0], testRange)
	assert.ErrorIs(t, err, ErrBadgeRangeExhausted)
}

// racingRepo lets a concurrent writer take the first candidate between the
// read and the claim.
type racingRepo struct {
	*fakeEmployeeRepo
	thief uint
	once  sync.Once
}

func (r *racingRepo) ClaimBadge(ctx context.Context, employeeID uint, badge string) (bool, error) {
	r.once.Do(func() {
		_, _ = r.fakeEmployeeRepo.ClaimBadge(ctx, r.thief, badge)
	})
	return r.fakeEmployeeRepo.ClaimBadge(ctx, employeeID, badge)
}

func TestBadgeAllocator_RetriesAfterLostClaim(t *testing.T) {
	base := newFakeEmployeeRepo()
	ids := seedEmployees(t, base, "", "")
	repo := &racingRepo{fakeEmployeeRepo: base, thief: ids[1]}

	badge, err := NewBadgeAllocator(repo, DefaultBadgeClaimAttempts).Allocate(context.Background(), ids[0], testRange)
	require.NoError(t, err)
	assert.Equal(t, "TS-002", badge)

	thief, err := base.GetByID(context.Background(), ids[1])
	require.NoError(t, err)
	assert.Equal(t, "TS-001", thief.Badge())
}

func TestBadgeAllocator_ConcurrentAllocationsAreUnique(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := newFakeEmployeeRepo()
	blank := make([]string, 8)
	ids := seedEmployees(t, repo, blank...)
	alloc := NewBadgeAllocator(repo, DefaultBadgeClaimAttempts)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		badges    []string
		exhausted int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			b, err := alloc.Allocate(context.Background(), id, testRange)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, ErrBadgeRangeExhausted)
				exhausted++
				return
			}
			badges = append(badges, b)
		}(id)
	}
	wg.Wait()

	assert.ElementsMatch(t, []string{"TS-001", "TS-002", "TS-003", "TS-004", "TS-005"}, badges)
	assert.Equal(t, 3, exhausted)
}
