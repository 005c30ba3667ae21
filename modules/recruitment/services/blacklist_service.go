package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

type BlacklistService struct {
	repo blacklist.Repository
	gate *BlacklistGate
	tx   Transactor
	now  func() time.Time
}

func NewBlacklistService(repo blacklist.Repository, gate *BlacklistGate, tx Transactor) *BlacklistService {
	if tx == nil {
		tx = NewPoolTransactor()
	}
	return &BlacklistService{repo: repo, gate: gate, tx: tx, now: time.Now}
}

type BlacklistInput struct {
	ExternalID string
	Handle     string
	Reason     string
	ExpiresAt  *time.Time
}

// Add is idempotent per identity: the existing entry is returned when one is
// already stored, with created=false.
func (s *BlacklistService) Add(ctx context.Context, in BlacklistInput) (blacklist.Entry, bool, error) {
	operator, _ := composables.UseOperator(ctx)
	entry, err := blacklist.New(in.ExternalID, in.Handle, in.Reason, in.ExpiresAt, operator, s.now())
	if err != nil {
		return blacklist.Entry{}, false, mapDomainError(err)
	}

	var created bool
	stored, err := inTx(ctx, s.tx, func(txCtx context.Context) (blacklist.Entry, error) {
		out, ok, err := s.repo.CreateIfAbsent(txCtx, entry)
		created = ok
		return out, err
	})
	if err != nil {
		return blacklist.Entry{}, false, mapDomainError(err)
	}
	if created {
		logWithFields(ctx, logrus.InfoLevel, "identity blacklisted", logrus.Fields{
			"entry_id":    stored.ID,
			"external_id": stored.ExternalID,
			"handle":      stored.Handle,
		})
	}
	return stored, created, nil
}

func (s *BlacklistService) Remove(ctx context.Context, id uint) error {
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
	return mapDomainError(err)
}

func (s *BlacklistService) List(ctx context.Context) ([]blacklist.Entry, error) {
	entries, err := s.repo.List(ctx)
	return entries, mapDomainError(err)
}

func (s *BlacklistService) Check(ctx context.Context, externalID, handle string) (BlacklistCheck, error) {
	return s.gate.Check(ctx, externalID, handle)
}
