package applicant

import "strings"

type Status string

const (
	StatusCriteria   Status = "CRITERIA"
	StatusQuestions  Status = "QUESTIONS"
	StatusOnboarding Status = "ONBOARDING"
	StatusCompleted  Status = "COMPLETED"
	StatusRejected   Status = "REJECTED"
)

// Ordered forward path. REJECTED sits outside it.
var pipeline = []Status{StatusCriteria, StatusQuestions, StatusOnboarding, StatusCompleted}

// Step is the 1-based position of s on the forward path. REJECTED keeps no
// step of its own and reports 0.
func (s Status) Step() int {
	for i, st := range pipeline {
		if st == s {
			return i + 1
		}
	}
	return 0
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

func (s Status) IsValid() bool {
	return s == StatusRejected || s.Step() > 0
}

// Next returns the status following s on the forward path.
func (s Status) Next() (Status, bool) {
	step := s.Step()
	if step == 0 || step >= len(pipeline) {
		return "", false
	}
	return pipeline[step], true
}

func StatusForStep(step int) (Status, bool) {
	if step < 1 || step > len(pipeline) {
		return "", false
	}
	return pipeline[step-1], true
}

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.IsValid() {
		return "", ErrUnknownStatus.Wrap("%q", v)
	}
	return s, nil
}
