package applicant

import "context"

type FindParams struct {
	Status Status
	Query  string
	Limit  int
	Offset int
}

type Repository interface {
	GetByID(ctx context.Context, id uint) (Applicant, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]Applicant, int64, error)
	Create(ctx context.Context, a Applicant) (Applicant, error)
	Update(ctx context.Context, a Applicant) error
	// Transition writes a only while the stored status is still from and
	// returns ErrStatusChanged otherwise.
	Transition(ctx context.Context, a Applicant, from Status) error
	MarkIdentityRolesAssigned(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}
