package domain

import "strings"

// Validate checks the authoring rules of an exam.
func (e Exam) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return invalidExam("title is required")
	}
	switch e.Status {
	case ExamDraft, ExamPublished, ExamArchived:
	default:
		return invalidExam("status must be one of: draft, published, archived")
	}
	switch e.Complexity {
	case "", ComplexityEasy, ComplexityMedium, ComplexityHard:
	default:
		return invalidExam("complexity must be one of: easy, medium, hard")
	}
	if e.EstimatedMinutes < 0 {
		return invalidExam("estimated time to complete must be a positive number of minutes")
	}
	return nil
}

// Validate checks that the question has a usable option set and a single correct option.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return invalidQuestion("text is required")
	}
	if len(q.Options) < 2 {
		return invalidQuestion("at least two options are required")
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if opt.ID == "" {
			return invalidQuestion("option id is required")
		}
		if _, dup := seen[opt.ID]; dup {
			return invalidQuestion("duplicate option id " + opt.ID)
		}
		seen[opt.ID] = struct{}{}
	}
	if _, ok := seen[q.CorrectOptionID]; !ok {
		return invalidQuestion("correct option must be one of the options")
	}
	if q.Weight < 0 {
		return invalidQuestion("weight must not be negative")
	}
	return nil
}
