package composables

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestUseOperator(t *testing.T) {
	_, err := UseOperator(context.Background())
	require.ErrorIs(t, err, ErrNoOperator)

	_, err = UseOperator(WithOperator(context.Background(), 0))
	require.ErrorIs(t, err, ErrNoOperator)

	id, err := UseOperator(WithOperator(context.Background(), 42))
	require.NoError(t, err)
	require.Equal(t, uint(42), id)
}

func TestUseLogger_FallsBackToStandardLogger(t *testing.T) {
	entry := UseLogger(context.Background())
	require.NotNil(t, entry)

	scoped := logrus.NewEntry(logrus.New()).WithField("request-id", "abc")
	got := UseLogger(WithLogger(context.Background(), scoped))
	require.Equal(t, "abc", got.Data["request-id"])
}

func TestUsePaginated(t *testing.T) {
	r := httptest.NewRequest("GET", "/recruitment/api/applicants?limit=50&offset=10", nil)
	require.Equal(t, PaginationParams{Limit: 50, Offset: 10}, UsePaginated(r))

	r = httptest.NewRequest("GET", "/recruitment/api/applicants?limit=500&offset=-1", nil)
	require.Equal(t, PaginationParams{Limit: 20, Offset: 0}, UsePaginated(r))
}

func TestUseTx_WithoutPool(t *testing.T) {
	_, err := UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}
