package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/persistence/models"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

const (
	employeeColumns = `id, external_id, name, rank, rank_level, badge_number, department, status, hire_date,
		terminated_at, termination_reason, notes, created_at, updated_at`

	employeeSelectQuery = `SELECT ` + employeeColumns + ` FROM recruitment_employees`
	employeeCountQuery  = `SELECT COUNT(*) FROM recruitment_employees`

	employeeInsertQuery = `
		INSERT INTO recruitment_employees (external_id, name, rank, rank_level, badge_number, department, status,
			hire_date, terminated_at, termination_reason, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	employeeUpdateQuery = `
		UPDATE recruitment_employees
		SET name = $1, rank = $2, rank_level = $3, badge_number = $4, department = $5, status = $6, hire_date = $7,
			terminated_at = $8, termination_reason = $9, notes = $10, updated_at = $11
		WHERE id = $12`

	employeeBadgesQuery = `SELECT badge_number FROM recruitment_employees WHERE starts_with(badge_number, $1)`

	// The NOT EXISTS guard settles the common case without raising; the unique
	// index still catches two claims racing past it.
	employeeClaimBadgeQuery = `
		UPDATE recruitment_employees
		SET badge_number = $2, updated_at = now()
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM recruitment_employees WHERE badge_number = $2 AND id <> $1)`

	employeeExistsQuery     = `SELECT EXISTS (SELECT 1 FROM recruitment_employees WHERE id = $1)`
	employeeClearBadgeQuery = `UPDATE recruitment_employees SET badge_number = NULL, updated_at = now() WHERE id = $1`

	employeeHistoryQuery = `
		SELECT (SELECT COUNT(*) FROM recruitment_employee_absences WHERE employee_id = $1)
		     + (SELECT COUNT(*) FROM recruitment_employee_evaluations WHERE employee_id = $1)`
)

type EmployeeRepository struct{}

func NewEmployeeRepository() *EmployeeRepository {
	return &EmployeeRepository{}
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id uint) (employee.Employee, error) {
	return r.getOne(ctx, employeeSelectQuery+" WHERE id = $1", id)
}

func (r *EmployeeRepository) GetByExternalID(ctx context.Context, externalID string) (employee.Employee, error) {
	return r.getOne(ctx, employeeSelectQuery+" WHERE external_id = $1", externalID)
}

func (r *EmployeeRepository) GetPaginated(ctx context.Context, params *employee.FindParams) ([]employee.Employee, int64, error) {
	if params == nil {
		params = &employee.FindParams{}
	}
	var (
		filter string
		args   []any
	)
	if params.Status != "" {
		args = append(args, string(params.Status))
		filter = " WHERE status = $1"
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := tx.QueryRow(ctx, employeeCountQuery+filter, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count employees")
	}

	query := employeeSelectQuery + filter + " ORDER BY rank_level DESC, name, id"
	if params.Limit > 0 {
		args = append(args, params.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	found, err := r.queryEmployees(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return found, total, nil
}

func (r *EmployeeRepository) Create(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return employee.Employee{}, err
	}
	m := ToDBEmployee(e)
	var id uint
	if err := tx.QueryRow(
		ctx,
		employeeInsertQuery,
		m.ExternalID,
		m.Name,
		m.Rank,
		m.RankLevel,
		m.BadgeNumber,
		m.Department,
		m.Status,
		m.HireDate,
		m.TerminatedAt,
		m.TerminationReason,
		m.Notes,
		m.CreatedAt,
		m.UpdatedAt,
	).Scan(&id); err != nil {
		return employee.Employee{}, mapEmployeeWriteError(errors.Wrap(err, "failed to insert employee"))
	}
	return e.WithID(id), nil
}

func (r *EmployeeRepository) Update(ctx context.Context, e employee.Employee) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	m := ToDBEmployee(e)
	tag, err := tx.Exec(
		ctx,
		employeeUpdateQuery,
		m.Name,
		m.Rank,
		m.RankLevel,
		m.BadgeNumber,
		m.Department,
		m.Status,
		m.HireDate,
		m.TerminatedAt,
		m.TerminationReason,
		m.Notes,
		m.UpdatedAt,
		m.ID,
	)
	if err != nil {
		return mapEmployeeWriteError(errors.Wrap(err, "failed to update employee"))
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrNotFound
	}
	return nil
}

func (r *EmployeeRepository) ListBadgeNumbers(ctx context.Context, prefix string) ([]string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, employeeBadgesQuery, prefix+"-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list badge numbers")
	}
	defer rows.Close()

	var badges []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, errors.Wrap(err, "failed to scan badge number")
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// ClaimBadge runs inside a savepoint when ctx carries a transaction, so a lost
// race on the unique index reports false without aborting the caller's work.
func (r *EmployeeRepository) ClaimBadge(ctx context.Context, employeeID uint, badge string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to open badge savepoint")
	}
	defer func() { _ = sp.Rollback(ctx) }()

	tag, err := sp.Exec(ctx, employeeClaimBadgeQuery, employeeID, badge)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == employeesBadgeKey {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to claim badge")
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := sp.QueryRow(ctx, employeeExistsQuery, employeeID).Scan(&exists); err != nil {
			return false, errors.Wrap(err, "failed to check employee")
		}
		if !exists {
			return false, employee.ErrNotFound
		}
		return false, nil
	}
	if err := sp.Commit(ctx); err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == employeesBadgeKey {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to release badge savepoint")
	}
	return true, nil
}

func (r *EmployeeRepository) ClearBadge(ctx context.Context, employeeID uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, employeeClearBadgeQuery, employeeID)
	if err != nil {
		return errors.Wrap(err, "failed to clear badge")
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrNotFound
	}
	return nil
}

// HistoryCount returns how many absence and evaluation rows reference the
// employee.
func (r *EmployeeRepository) HistoryCount(ctx context.Context, employeeID uint) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := tx.QueryRow(ctx, employeeHistoryQuery, employeeID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count employee history")
	}
	return n, nil
}

func (r *EmployeeRepository) getOne(ctx context.Context, query string, args ...any) (employee.Employee, error) {
	found, err := r.queryEmployees(ctx, query, args...)
	if err != nil {
		return employee.Employee{}, err
	}
	if len(found) == 0 {
		return employee.Employee{}, employee.ErrNotFound
	}
	return found[0], nil
}

func (r *EmployeeRepository) queryEmployees(ctx context.Context, query string, args ...any) ([]employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var out []employee.Employee
	for rows.Next() {
		m, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ToDomainEmployee(m))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return out, nil
}

func scanEmployee(row pgx.Row) (models.Employee, error) {
	var m models.Employee
	if err := row.Scan(
		&m.ID,
		&m.ExternalID,
		&m.Name,
		&m.Rank,
		&m.RankLevel,
		&m.BadgeNumber,
		&m.Department,
		&m.Status,
		&m.HireDate,
		&m.TerminatedAt,
		&m.TerminationReason,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return models.Employee{}, errors.Wrap(err, "failed to scan employee")
	}
	return m, nil
}

var _ employee.Repository = (*EmployeeRepository)(nil)
