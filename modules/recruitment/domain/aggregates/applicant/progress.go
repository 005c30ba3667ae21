package applicant

// Progress is a per-step snapshot keyed by configuration item id. It is stored
// verbatim, so keys for items that were since removed survive but are ignored
// when thresholds are evaluated.
type Progress map[string]bool

func (p Progress) Satisfied(id string) bool {
	return p[id]
}

// Count returns how many of ids are marked satisfied.
func (p Progress) Count(ids []string) int {
	n := 0
	for _, id := range ids {
		if p[id] {
			n++
		}
	}
	return n
}

func (p Progress) Clone() Progress {
	out := make(Progress, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// CriteriaMet reports whether every active criterion is satisfied.
func CriteriaMet(p Progress, active []string) bool {
	return p.Count(active) == len(active)
}

// QuestionsThreshold is ceil(0.7 * n) in integer arithmetic.
func QuestionsThreshold(n int) int {
	if n <= 0 {
		return 0
	}
	return (7*n + 9) / 10
}

func QuestionsMet(p Progress, active []string) bool {
	return p.Count(active) >= QuestionsThreshold(len(active))
}

func OnboardingMet(p Progress, active []string) bool {
	return p.Count(active) >= len(active)
}
