package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/ranks"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/eventbus"
)

type EmployeeService struct {
	repo      employee.Repository
	badges    *BadgeAllocator
	publisher eventbus.EventBus
	outbox    EventOutbox
	tx        Transactor
	now       func() time.Time
}

func NewEmployeeService(repo employee.Repository, badges *BadgeAllocator, publisher eventbus.EventBus, outbox EventOutbox, tx Transactor) *EmployeeService {
	if tx == nil {
		tx = NewPoolTransactor()
	}
	return &EmployeeService{repo: repo, badges: badges, publisher: publisher, outbox: outbox, tx: tx, now: time.Now}
}

func (s *EmployeeService) GetByID(ctx context.Context, id uint) (employee.Employee, error) {
	e, err := s.repo.GetByID(ctx, id)
	return e, mapDomainError(err)
}

func (s *EmployeeService) GetPaginated(ctx context.Context, params *employee.FindParams) ([]employee.Employee, int64, error) {
	items, total, err := s.repo.GetPaginated(ctx, params)
	return items, total, mapDomainError(err)
}

// HistoryCounter is implemented by repositories that can report how many
// absence and evaluation rows an employee has accumulated.
type HistoryCounter interface {
	HistoryCount(ctx context.Context, employeeID uint) (int, error)
}

// HistoryCount returns 0 when the repository keeps no history.
func (s *EmployeeService) HistoryCount(ctx context.Context, id uint) (int, error) {
	counter, ok := s.repo.(HistoryCounter)
	if !ok {
		return 0, nil
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return 0, mapDomainError(err)
	}
	n, err := counter.HistoryCount(ctx, id)
	return n, mapDomainError(err)
}

// Terminate marks the employee inactive. The row and its history are kept so
// a later hire of the same identity reactivates it.
func (s *EmployeeService) Terminate(ctx context.Context, id uint, reason string) (employee.Employee, error) {
	operator, _ := composables.UseOperator(ctx)
	var event *employee.TerminatedEvent
	terminated, err := inTx(ctx, s.tx, func(txCtx context.Context) (employee.Employee, error) {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return employee.Employee{}, err
		}
		next, err := current.Terminate(reason, s.now())
		if err != nil {
			return employee.Employee{}, err
		}
		if err := s.repo.Update(txCtx, next); err != nil {
			return employee.Employee{}, err
		}
		event = employee.NewTerminatedEvent(next, operator)
		return next, enqueueTerminated(txCtx, s.outbox, event)
	})
	if err != nil {
		return employee.Employee{}, mapDomainError(err)
	}

	logWithFields(ctx, logrus.InfoLevel, "employee terminated", logrus.Fields{
		"employee_id": id,
		"reason":      terminated.TerminationReason(),
	})
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
	return terminated, nil
}

// NextBadge reports the badge the allocator would try first for a rank level.
func (s *EmployeeService) NextBadge(ctx context.Context, rankLevel int) (string, bool, error) {
	tier, ok := ranks.Lookup(rankLevel)
	if !ok {
		return "", false, validationError("unknown rank level")
	}
	return s.badges.Peek(ctx, tier.Badge)
}
