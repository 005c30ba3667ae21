package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
)

const (
	pgUniqueViolation = "23505"

	employeesExternalIDKey = "recruitment_employees_external_id_key"
	employeesBadgeKey      = "recruitment_employees_badge_number_key"
)

func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return "", false
	}
	return pgErr.ConstraintName, true
}

// mapEmployeeWriteError turns constraint violations on recruitment_employees
// into domain errors and leaves everything else untouched.
func mapEmployeeWriteError(err error) error {
	if err == nil {
		return nil
	}
	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case employeesExternalIDKey:
		return employee.ErrDuplicateIdentity.Wrap("%v", err)
	case employeesBadgeKey:
		return employee.ErrBadgeTaken.Wrap("%v", err)
	default:
		return err
	}
}
