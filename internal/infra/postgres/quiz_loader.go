package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-engine/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader reads quizzes and their questions from Postgres. Options are
// stored as a JSON array per question.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx,
		`SELECT id, title, COALESCE(description, ''), time_limit_seconds FROM quizzes WHERE id=$1`,
		quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.TimeLimitSeconds)
	if err == pgx.ErrNoRows {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, quiz_id, question_number, question_text, options, correct_answer, points
		 FROM questions WHERE quiz_id=$1 ORDER BY question_number`,
		quizID,
	)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}

func (l *QuizLoader) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, title, COALESCE(description, ''), time_limit_seconds FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	index := make(map[string]int)
	for rows.Next() {
		var quiz domain.Quiz
		if err := rows.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.TimeLimitSeconds); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		index[quiz.ID] = len(quizzes)
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	qrows, err := l.pool.Query(ctx,
		`SELECT id, quiz_id, question_number, question_text, options, correct_answer, points
		 FROM questions ORDER BY quiz_id, question_number`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		question, err := scanQuestion(qrows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[question.QuizID]; ok {
			quizzes[i].Questions = append(quizzes[i].Questions, question)
		}
	}
	if err := qrows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return quizzes, nil
}

func scanQuestion(rows pgx.Rows) (domain.Question, error) {
	var question domain.Question
	var rawOptions []byte
	if err := rows.Scan(&question.ID, &question.QuizID, &question.Number, &question.Text,
		&rawOptions, &question.CorrectAnswer, &question.Points); err != nil {
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	if len(rawOptions) > 0 {
		if err := json.Unmarshal(rawOptions, &question.Options); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
		}
	}
	return question, nil
}
