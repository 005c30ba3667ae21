package employee

import "context"

type FindParams struct {
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	GetByID(ctx context.Context, id uint) (Employee, error)
	GetByExternalID(ctx context.Context, externalID string) (Employee, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]Employee, int64, error)
	Create(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, e Employee) error
	// ListBadgeNumbers returns every badge under prefix held by active or
	// inactive employees.
	ListBadgeNumbers(ctx context.Context, prefix string) ([]string, error)
	// ClaimBadge assigns badge to the employee unless another employee already
	// holds it, in which case it reports false and changes nothing.
	ClaimBadge(ctx context.Context, employeeID uint, badge string) (bool, error)
	ClearBadge(ctx context.Context, employeeID uint) error
}
