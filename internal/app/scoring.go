package app

import (
	"fmt"

	"lms-exam-service/internal/domain"
)

// evaluate grades answers against the position-ordered question set.
//
// Answers carrying a questionId are matched by id; answers without one are
// matched by position. Unanswered questions, blank selections and options that
// do not belong to the question all score as incorrect.
func evaluate(questions []domain.BoundQuestion, answers []domain.Answer) (domain.Outcome, error) {
	if len(questions) == 0 {
		return domain.Outcome{}, domain.ErrNoQuestions
	}
	if len(answers) > len(questions) {
		return domain.Outcome{}, domain.ErrTooManyAnswers
	}

	selected, err := pairAnswers(questions, answers)
	if err != nil {
		return domain.Outcome{}, err
	}

	out := domain.Outcome{Results: make([]domain.QuestionResult, 0, len(questions))}
	for i, q := range questions {
		weight := q.EffectiveWeight()
		choice := selected[i]
		correct := choice != "" && q.HasOption(choice) && choice == q.CorrectOptionID

		out.TotalScore += weight
		if correct {
			out.ObtainedScore += weight
		}
		out.Results = append(out.Results, domain.QuestionResult{
			QuestionID: q.ID,
			Question:   q.Text,
			Selected:   choice,
			Correct:    q.CorrectOptionID,
			IsCorrect:  correct,
			Weight:     weight,
		})
	}
	out.Percentage = domain.Percentage(out.ObtainedScore, out.TotalScore)
	return out, nil
}

// pairAnswers returns the selected option for every question index.
func pairAnswers(questions []domain.BoundQuestion, answers []domain.Answer) ([]string, error) {
	selected := make([]string, len(questions))
	if len(answers) == 0 {
		return selected, nil
	}

	byID := answers[0].QuestionID != ""
	for _, a := range answers[1:] {
		if (a.QuestionID != "") != byID {
			return nil, domain.ErrMixedAnswerModes
		}
	}

	if !byID {
		for i, a := range answers {
			selected[i] = a.OptionID
		}
		return selected, nil
	}

	index := make(map[string]int, len(questions))
	for i, q := range questions {
		index[q.ID] = i
	}
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		i, ok := index[a.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownQuestion, a.QuestionID)
		}
		if _, dup := seen[a.QuestionID]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateAnswer, a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
		selected[i] = a.OptionID
	}
	return selected, nil
}
