package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	payloads []string
}

func (p *fakePublisher) PublishMessage(_ context.Context, _, _ string, message []byte, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, string(message))
	return nil
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{SkipDefaultTransaction: true, Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

var outboxColumns = []string{"id", "aggregate_id", "event_type", "payload", "target_exchange", "target_routing_key", "status", "retry_count", "created_at"}

func TestProcessPendingMessages_Publishes(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &fakePublisher{}
	relay := NewMessageRelay(db, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `outbox_messages` WHERE status = \\?.*FOR UPDATE SKIP LOCKED").
		WillReturnRows(sqlmock.NewRows(outboxColumns).
			AddRow(1, "b-1", "score.job.requested", `{"batch_id":"b-1"}`, "ex", "rk", "PENDING", 0, time.Now()).
			AddRow(2, "b-2", "score.job.requested", `{"batch_id":"b-2"}`, "ex", "rk", "PENDING", 0, time.Now()))
	mock.ExpectExec("UPDATE `outbox_messages` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `outbox_messages` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sent, err := relay.processPendingMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{`{"batch_id":"b-1"}`, `{"batch_id":"b-2"}`}, pub.payloads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPendingMessages_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	relay := NewMessageRelay(db, &fakePublisher{})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `outbox_messages`").WillReturnRows(sqlmock.NewRows(outboxColumns))
	mock.ExpectCommit()

	sent, err := relay.processPendingMessages(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessPendingMessages_PublishFailureMarksFailedAtLimit(t *testing.T) {
	db, mock := newMockDB(t)
	relay := NewMessageRelay(db, &fakePublisher{err: errors.New("broker down")}, WithMaxRetries(3))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `outbox_messages`").
		WillReturnRows(sqlmock.NewRows(outboxColumns).
			AddRow(9, "b-9", "score.job.requested", "{}", "ex", "rk", "PENDING", 2, time.Now()))
	mock.ExpectExec("UPDATE `outbox_messages` SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"FAILED", 3, sqlmock.AnyArg(), sqlmock.AnyArg(), "broker down", 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sent, err := relay.processPendingMessages(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartStop(t *testing.T) {
	db, _ := newMockDB(t)
	relay := NewMessageRelay(db, &fakePublisher{}, WithPollingInterval(time.Hour))
	relay.Start(context.Background())
	relay.Stop()
	relay.Stop()
}
