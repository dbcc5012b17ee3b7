package app

import "quiz-engine/internal/domain"

// ScoreQuiz grades a session's recorded responses against the quiz. It is a
// pure function: same inputs, same output. Possible points sum over every
// question in the quiz, answered or not, so incompleteness is penalized
// rather than excluded.
func ScoreQuiz(quiz domain.Quiz, responses []domain.Response) (domain.Score, []domain.QuestionResult) {
	byQuestion := make(map[string]domain.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	score := domain.Score{}
	results := make([]domain.QuestionResult, 0, len(quiz.Questions))

	for _, q := range quiz.Questions {
		points := q.Points
		if points == 0 {
			points = 1
		}
		score.Possible += points

		result := domain.QuestionResult{
			QuestionNumber: q.Number,
			QuestionText:   q.Text,
			CorrectAnswer:  q.CorrectAnswer,
		}
		if r, ok := byQuestion[q.ID]; ok {
			answer := r.Answer
			result.YourAnswer = &answer
			result.TimeSpent = r.TimeSpentSeconds
			score.Answered++
			if answer == q.CorrectAnswer {
				result.IsCorrect = true
				score.Correct++
				score.Earned += points
			}
		}
		results = append(results, result)
	}

	if score.Possible > 0 {
		score.Percentage = float64(score.Earned) / float64(score.Possible) * 100
	}
	score.Grade = letterGrade(score.Percentage)
	return score, results
}

func letterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}
