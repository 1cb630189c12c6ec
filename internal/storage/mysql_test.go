package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resume-matcher/internal/config"
	"resume-matcher/internal/constants"
	"resume-matcher/internal/storage/models"
)

func newMockMySQL(t *testing.T) (*MySQL, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	m, err := NewMySQLWithDB(gdb, &config.MySQLConfig{Database: "resume_matcher_test"})
	require.NoError(t, err)
	return m, mock
}

func TestCreatePendingBatch(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `scoring_batches`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `outbox_messages`").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	batch := &models.ScoringBatch{BatchID: "b-1", JobDescription: "Go engineer", TotalResumes: 2}
	msg := &models.OutboxMessage{
		EventType:        ScoreJobRequestedEvent,
		Payload:          `{"batch_id":"b-1"}`,
		TargetExchange:   "resume.score.exchange",
		TargetRoutingKey: "resume.score.requested",
	}
	require.NoError(t, m.CreatePendingBatch(context.Background(), batch, msg))

	assert.Equal(t, constants.BatchStatusPending, batch.Status)
	assert.Equal(t, "b-1", msg.AggregateID)
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	assert.Equal(t, uint64(7), msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePendingBatch_RollbackOnOutboxFailure(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `scoring_batches`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `outbox_messages`").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := m.CreatePendingBatch(context.Background(),
		&models.ScoringBatch{BatchID: "b-2", JobDescription: "jd"},
		&models.OutboxMessage{EventType: ScoreJobRequestedEvent, Payload: "{}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBatchStatus(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectExec("UPDATE `scoring_batches` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, m.UpdateBatchStatus(context.Background(), "b-1", constants.BatchStatusProcessing))

	mock.ExpectExec("UPDATE `scoring_batches` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	err := m.UpdateBatchStatus(context.Background(), "missing", constants.BatchStatusProcessing)
	assert.ErrorIs(t, err, ErrBatchNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkBatchFailed(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectExec("UPDATE `scoring_batches` SET .*`error_message`=").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, m.MarkBatchFailed(context.Background(), "b-1", "extraction failed"))

	mock.ExpectExec("UPDATE `scoring_batches` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, m.MarkBatchFailed(context.Background(), "gone", "x"), ErrBatchNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatchResult(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `scoring_batches` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `resume_scores` WHERE batch_id = ?").
		WithArgs("b-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `resume_scores`").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	now := time.Now()
	batch := &models.ScoringBatch{
		BatchID:        "b-1",
		JobDescription: "jd",
		Status:         constants.BatchStatusCompleted,
		CompletedAt:    &now,
		Scores: []models.ResumeScore{
			{Rank: 1, ResumeID: "r2", FinalScore: 81.5},
			{Rank: 2, ResumeID: "r1", FinalScore: 40},
		},
	}
	require.NoError(t, m.SaveBatchResult(context.Background(), batch))
	for _, s := range batch.Scores {
		assert.Equal(t, "b-1", s.BatchID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBatch(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectQuery("SELECT \\* FROM `scoring_batches` WHERE batch_id = ?").
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "job_description", "status", "total_resumes"}).
			AddRow("b-1", "Go engineer", constants.BatchStatusCompleted, 2))
	mock.ExpectQuery("SELECT \\* FROM `resume_scores` WHERE `resume_scores`.`batch_id` = \\? ORDER BY rank_no ASC").
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "batch_id", "rank_no", "resume_id", "final_score"}).
			AddRow(1, "b-1", 1, "r2", 81.5).
			AddRow(2, "b-1", 2, "r1", 40.0))

	batch, err := m.GetBatch(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, constants.BatchStatusCompleted, batch.Status)
	require.Len(t, batch.Scores, 2)
	assert.Equal(t, "r2", batch.Scores[0].ResumeID)
	assert.Equal(t, 2, batch.Scores[1].Rank)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBatch_NotFound(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectQuery("SELECT \\* FROM `scoring_batches` WHERE batch_id = ?").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}))

	_, err := m.GetBatch(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrBatchNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
