package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation classifies malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound classifies absent exams, questions and submissions.
	ErrNotFound = errors.New("not found")
	// ErrForbidden classifies changes to resources owned by someone else.
	ErrForbidden = errors.New("forbidden")
)

var (
	// ErrNoQuestions is returned when an exam has no bound questions to grade against.
	ErrNoQuestions = fmt.Errorf("%w: no questions found for this exam", ErrValidation)
	// ErrTooManyAnswers is returned when more answers than questions are submitted.
	ErrTooManyAnswers = fmt.Errorf("%w: submitted answers exceed the number of questions in the exam", ErrValidation)
	// ErrInvalidAnswers indicates the answer set is not in the canonical shape.
	ErrInvalidAnswers = fmt.Errorf("%w: answers must be an array of {questionId, optionId} objects", ErrValidation)
	// ErrMixedAnswerModes indicates some answers name their question and some do not.
	ErrMixedAnswerModes = fmt.Errorf("%w: either every answer carries questionId or none does", ErrValidation)
	// ErrUnknownQuestion indicates an answer names a question that is not part of the exam.
	ErrUnknownQuestion = fmt.Errorf("%w: answer references a question outside this exam", ErrValidation)
	// ErrDuplicateAnswer indicates two answers name the same question.
	ErrDuplicateAnswer = fmt.Errorf("%w: question answered more than once", ErrValidation)
	// ErrExamArchived is returned when submitting to an archived exam.
	ErrExamArchived = fmt.Errorf("%w: exam is archived", ErrValidation)
	// ErrQuestionInUse is returned when deleting a question still bound to an exam.
	ErrQuestionInUse = fmt.Errorf("%w: question is bound to an exam", ErrValidation)
	// ErrInvalidExam wraps exam field validation failures.
	ErrInvalidExam = fmt.Errorf("%w: invalid exam", ErrValidation)
	// ErrInvalidQuestion wraps question field validation failures.
	ErrInvalidQuestion = fmt.Errorf("%w: invalid question", ErrValidation)
)

var (
	// ErrExamNotFound indicates the exam does not exist.
	ErrExamNotFound = fmt.Errorf("exam %w", ErrNotFound)
	// ErrQuestionNotFound indicates a referenced question does not exist.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrSubmissionNotFound indicates the user has not submitted the exam yet.
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
)

// ErrNotOwner is returned when a teacher changes an exam or question another teacher authored.
var ErrNotOwner = fmt.Errorf("%w: only the author or an admin may change this", ErrForbidden)

// StoreError reports a failure of the underlying persistence layer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore wraps err as a StoreError unless it is nil or already classified.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func invalidExam(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidExam, reason)
}

func invalidQuestion(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuestion, reason)
}
