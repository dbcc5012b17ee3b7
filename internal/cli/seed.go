package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"quiz-engine/internal/config"
	"quiz-engine/internal/domain"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

// NewSeedCmd inserts the demo quiz so a fresh database is playable.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the demo quiz into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			db := openBunDB(cfg.Postgres.URL)
			defer db.Close()

			for _, quiz := range demoQuizzes() {
				if err := seedQuiz(cmd.Context(), db, quiz); err != nil {
					return err
				}
				log.Printf("seeded quiz %s (%d questions)", quiz.ID, len(quiz.Questions))
			}
			return nil
		},
	}
}

func seedQuiz(ctx context.Context, db *bun.DB, quiz domain.Quiz) error {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO quizzes (id, title, description, time_limit_seconds) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
		 time_limit_seconds=EXCLUDED.time_limit_seconds`,
		quiz.ID, quiz.Title, quiz.Description, quiz.TimeLimitSeconds); err != nil {
		return fmt.Errorf("insert quiz %s: %w", quiz.ID, err)
	}

	for _, q := range quiz.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO questions (id, quiz_id, question_number, question_text, options, correct_answer, points)
			 VALUES (?, ?, ?, ?, ?::jsonb, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET question_text=EXCLUDED.question_text,
			 options=EXCLUDED.options, correct_answer=EXCLUDED.correct_answer, points=EXCLUDED.points`,
			q.ID, quiz.ID, q.Number, q.Text, string(options), q.CorrectAnswer, q.Points); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return nil
}
