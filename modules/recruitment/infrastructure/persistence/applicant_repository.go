package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/applicant"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/persistence/models"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

const (
	applicantColumns = `id, external_id, handle, name, status, criteria, questions, onboarding,
		identity_roles_assigned, rejection_reason, processed_by, processed_at, notes, created_at, updated_at`

	applicantSelectQuery = `SELECT ` + applicantColumns + ` FROM recruitment_applicants`
	applicantCountQuery  = `SELECT COUNT(*) FROM recruitment_applicants`

	applicantInsertQuery = `
		INSERT INTO recruitment_applicants (external_id, handle, name, status, criteria, questions, onboarding,
			identity_roles_assigned, rejection_reason, processed_by, processed_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	applicantUpdateQuery = `
		UPDATE recruitment_applicants
		SET external_id = $1, handle = $2, name = $3, status = $4, criteria = $5, questions = $6, onboarding = $7,
			identity_roles_assigned = $8, rejection_reason = $9, processed_by = $10, processed_at = $11,
			notes = $12, updated_at = $13
		WHERE id = $14`

	applicantTransitionQuery = applicantUpdateQuery + ` AND status = $15`

	applicantMarkRolesQuery = `
		UPDATE recruitment_applicants SET identity_roles_assigned = true, updated_at = now() WHERE id = $1`

	applicantExistsQuery = `SELECT EXISTS (SELECT 1 FROM recruitment_applicants WHERE id = $1)`

	applicantDeleteQuery = `DELETE FROM recruitment_applicants WHERE id = $1`
)

type ApplicantRepository struct{}

func NewApplicantRepository() applicant.Repository {
	return &ApplicantRepository{}
}

func (r *ApplicantRepository) GetByID(ctx context.Context, id uint) (applicant.Applicant, error) {
	found, err := r.queryApplicants(ctx, applicantSelectQuery+" WHERE id = $1", id)
	if err != nil {
		return applicant.Applicant{}, err
	}
	if len(found) == 0 {
		return applicant.Applicant{}, applicant.ErrNotFound
	}
	return found[0], nil
}

func (r *ApplicantRepository) GetPaginated(ctx context.Context, params *applicant.FindParams) ([]applicant.Applicant, int64, error) {
	if params == nil {
		params = &applicant.FindParams{}
	}
	var (
		where []string
		args  []any
	)
	if params.Status != "" {
		args = append(args, string(params.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(params.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR handle ILIKE $%d OR external_id ILIKE $%d)", n, n, n))
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := tx.QueryRow(ctx, applicantCountQuery+filter, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count applicants")
	}

	query := applicantSelectQuery + filter + " ORDER BY created_at DESC, id DESC"
	if params.Limit > 0 {
		args = append(args, params.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	found, err := r.queryApplicants(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return found, total, nil
}

func (r *ApplicantRepository) Create(ctx context.Context, a applicant.Applicant) (applicant.Applicant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return applicant.Applicant{}, err
	}
	m, err := ToDBApplicant(a)
	if err != nil {
		return applicant.Applicant{}, errors.Wrap(err, "failed to encode applicant")
	}
	var id uint
	if err := tx.QueryRow(
		ctx,
		applicantInsertQuery,
		m.ExternalID,
		m.Handle,
		m.Name,
		m.Status,
		m.Criteria,
		m.Questions,
		m.Onboarding,
		m.IdentityRolesAssigned,
		m.RejectionReason,
		m.ProcessedBy,
		m.ProcessedAt,
		m.Notes,
		m.CreatedAt,
		m.UpdatedAt,
	).Scan(&id); err != nil {
		return applicant.Applicant{}, errors.Wrap(err, "failed to insert applicant")
	}
	return a.WithID(id), nil
}

func (r *ApplicantRepository) Update(ctx context.Context, a applicant.Applicant) error {
	affected, err := r.update(ctx, applicantUpdateQuery, a)
	if err != nil {
		return err
	}
	if affected == 0 {
		return applicant.ErrNotFound
	}
	return nil
}

func (r *ApplicantRepository) Transition(ctx context.Context, a applicant.Applicant, from applicant.Status) error {
	affected, err := r.update(ctx, applicantTransitionQuery, a, string(from))
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.missingOrChanged(ctx, a.ID())
	}
	return nil
}

// MarkIdentityRolesAssigned touches the flag column only.
func (r *ApplicantRepository) MarkIdentityRolesAssigned(ctx context.Context, id uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, applicantMarkRolesQuery, id)
	if err != nil {
		return errors.Wrap(err, "failed to mark identity roles assigned")
	}
	if tag.RowsAffected() == 0 {
		return applicant.ErrNotFound
	}
	return nil
}

func (r *ApplicantRepository) update(ctx context.Context, query string, a applicant.Applicant, extra ...any) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	m, err := ToDBApplicant(a)
	if err != nil {
		return 0, errors.Wrap(err, "failed to encode applicant")
	}
	args := []any{
		m.ExternalID,
		m.Handle,
		m.Name,
		m.Status,
		m.Criteria,
		m.Questions,
		m.Onboarding,
		m.IdentityRolesAssigned,
		m.RejectionReason,
		m.ProcessedBy,
		m.ProcessedAt,
		m.Notes,
		m.UpdatedAt,
		m.ID,
	}
	tag, err := tx.Exec(ctx, query, append(args, extra...)...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to update applicant")
	}
	return tag.RowsAffected(), nil
}

func (r *ApplicantRepository) missingOrChanged(ctx context.Context, id uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var exists bool
	if err := tx.QueryRow(ctx, applicantExistsQuery, id).Scan(&exists); err != nil {
		return errors.Wrap(err, "failed to check applicant")
	}
	if !exists {
		return applicant.ErrNotFound
	}
	return applicant.ErrStatusChanged
}

func (r *ApplicantRepository) Delete(ctx context.Context, id uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, applicantDeleteQuery, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete applicant")
	}
	if tag.RowsAffected() == 0 {
		return applicant.ErrNotFound
	}
	return nil
}

func (r *ApplicantRepository) queryApplicants(ctx context.Context, query string, args ...any) ([]applicant.Applicant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var out []applicant.Applicant
	for rows.Next() {
		m, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		a, err := ToDomainApplicant(m)
		if err != nil {
			return nil, errors.Wrapf(err, "applicant %d", m.ID)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return out, nil
}

func scanApplicant(row pgx.Row) (models.Applicant, error) {
	var m models.Applicant
	if err := row.Scan(
		&m.ID,
		&m.ExternalID,
		&m.Handle,
		&m.Name,
		&m.Status,
		&m.Criteria,
		&m.Questions,
		&m.Onboarding,
		&m.IdentityRolesAssigned,
		&m.RejectionReason,
		&m.ProcessedBy,
		&m.ProcessedAt,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return models.Applicant{}, errors.Wrap(err, "failed to scan applicant")
	}
	return m, nil
}
