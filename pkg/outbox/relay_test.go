package outbox

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicFields(t *testing.T) {
	cases := map[string]logrus.Fields{
		"recruitment.employee.hired.v1": {
			"topic":         "recruitment.employee.hired.v1",
			"module":        "recruitment",
			"event":         "employee.hired",
			"event_version": "v1",
		},
		"recruitment.applicant.rejected": {
			"topic":  "recruitment.applicant.rejected",
			"module": "recruitment",
			"event":  "applicant.rejected",
		},
		"billing.invoice.values": {
			"topic":  "billing.invoice.values",
			"module": "billing",
			"event":  "invoice.values",
		},
		"hired.v2": {"topic": "hired.v2"},
		"plain":    {"topic": "plain"},
	}
	for topic, want := range cases {
		t.Run(topic, func(t *testing.T) {
			assert.Equal(t, want, topicFields(topic))
		})
	}
}

func TestRelay_MessageLogCarriesEventFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := &Relay{tableLabel: "public.recruitment_outbox", opts: RelayOptions{Logger: logrus.NewEntry(logger)}}
	eventID := uuid.New()

	r.messageLog(claimed{
		Topic:    "recruitment.employee.terminated.v1",
		EventID:  eventID,
		Sequence: 42,
		Attempts: 3,
	}).Error("outbox: message is dead")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "public.recruitment_outbox", entry.Data["table"])
	assert.Equal(t, "employee.terminated", entry.Data["event"])
	assert.Equal(t, "recruitment", entry.Data["module"])
	assert.Equal(t, eventID.String(), entry.Data["event_id"])
	assert.Equal(t, int64(42), entry.Data["sequence"])
	assert.Equal(t, 3, entry.Data["attempts"])
}

func TestNewRelayQueries_QuoteTable(t *testing.T) {
	q := newRelayQueries(pgx.Identifier{"public", "recruitment_outbox"})
	for _, stmt := range []string{q.claim, q.lock, q.ack, q.retry, q.dead, q.depth} {
		assert.True(t, strings.Contains(stmt, `"public"."recruitment_outbox"`), stmt)
	}
	assert.Contains(t, q.claim, "FOR UPDATE SKIP LOCKED")
}
