package questions

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/mcdev12/classroom/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL for the questions and answers tables
func Schema() string {
	return schema
}

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure
const uniqueViolation = pq.ErrorCode("23505")

// PostgresRepository implements question data access on Postgres
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new Postgres-backed questions repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the questions and answers tables if they do not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateQuestion inserts a new question
func (r *PostgresRepository) CreateQuestion(ctx context.Context, prompt string, settings models.QuestionSettings) (*models.Question, error) {
	raw, err := sqlutil.ToNullRawMessage(settings)
	if err != nil {
		return nil, err
	}

	q := &models.Question{
		ID:       uuid.New(),
		Prompt:   prompt,
		Duration: settings.DurationSec,
		Answers:  []models.Answer{},
	}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO questions (id, prompt, settings) VALUES ($1, $2, $3) RETURNING created_at`,
		q.ID, q.Prompt, raw,
	).Scan(&q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert question: %w", err)
	}
	return q, nil
}

// GetQuestion retrieves a question and its answers by ID
func (r *PostgresRepository) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	var (
		q   models.Question
		raw pqtype.NullRawMessage
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, prompt, settings, created_at FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Prompt, &raw, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if err := applySettings(&q, raw); err != nil {
		return nil, err
	}

	answers, err := r.answersFor(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	q.Answers = answers
	q.AnswerCount = len(answers)
	return &q, nil
}

// ListQuestions returns every question with its answers, oldest first
func (r *PostgresRepository) ListQuestions(ctx context.Context) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, prompt, settings, created_at FROM questions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var (
		list  []models.Question
		index = make(map[uuid.UUID]int)
	)
	for rows.Next() {
		var (
			q   models.Question
			raw pqtype.NullRawMessage
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &raw, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := applySettings(&q, raw); err != nil {
			return nil, err
		}
		q.Answers = []models.Answer{}
		index[q.ID] = len(list)
		list = append(list, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}

	answerRows, err := r.db.QueryContext(ctx,
		`SELECT question_id, student_email, code, submitted_at FROM answers ORDER BY submitted_at, student_email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer answerRows.Close()

	for answerRows.Next() {
		var (
			questionID uuid.UUID
			a          models.Answer
		)
		if err := answerRows.Scan(&questionID, &a.StudentID, &a.Code, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		if i, ok := index[questionID]; ok {
			list[i].Answers = append(list[i].Answers, a)
			list[i].AnswerCount++
		}
	}
	if err := answerRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate answers: %w", err)
	}
	return list, nil
}

// DeleteQuestion deletes a question; answers cascade
func (r *PostgresRepository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// AddAnswer inserts an answer and returns the updated question in one transaction
func (r *PostgresRepository) AddAnswer(ctx context.Context, questionID uuid.UUID, answer models.Answer) (*models.Question, error) {
	var out *models.Question
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var (
			q   models.Question
			raw pqtype.NullRawMessage
		)
		err := tx.QueryRowContext(ctx,
			`SELECT id, prompt, settings, created_at FROM questions WHERE id = $1 FOR UPDATE`, questionID,
		).Scan(&q.ID, &q.Prompt, &raw, &q.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to lock question: %w", err)
		}
		if err := applySettings(&q, raw); err != nil {
			return err
		}

		submittedAt := answer.SubmittedAt
		if submittedAt.IsZero() {
			submittedAt = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO answers (question_id, student_email, code, submitted_at) VALUES ($1, $2, $3, $4)`,
			questionID, answer.StudentID, answer.Code, submittedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return ErrDuplicateAnswer
			}
			return fmt.Errorf("failed to insert answer: %w", err)
		}

		answers, err := r.answersFor(ctx, tx, questionID)
		if err != nil {
			return err
		}
		q.Answers = answers
		q.AnswerCount = len(answers)
		out = &q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *PostgresRepository) answersFor(ctx context.Context, q queryer, questionID uuid.UUID) ([]models.Answer, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT student_email, code, submitted_at FROM answers WHERE question_id = $1 ORDER BY submitted_at, student_email`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	defer rows.Close()

	answers := []models.Answer{}
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.StudentID, &a.Code, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// applySettings copies the JSONB settings column onto the question
func applySettings(q *models.Question, raw pqtype.NullRawMessage) error {
	var settings models.QuestionSettings
	if err := sqlutil.FromNullRawMessage(raw, &settings); err != nil {
		return err
	}
	q.Duration = settings.DurationSec
	return nil
}
