package configitem

// Compiled-in lists used while an administrator has configured nothing for a
// kind. Their ids are stable strings so stored progress snapshots keep matching.
var fallbacks = map[Kind][]Entry{
	KindCriteria: {
		{ID: "fallback-criteria-age", Label: "Applicant meets the minimum age"},
		{ID: "fallback-criteria-microphone", Label: "Working microphone"},
		{ID: "fallback-criteria-rules", Label: "Server and department rules read"},
		{ID: "fallback-criteria-no-bans", Label: "No active server bans"},
		{ID: "fallback-criteria-playtime", Label: "Minimum playtime reached"},
	},
	KindQuestions: {
		{ID: "fallback-questions-radio", Label: "Explains the radio code for a traffic stop"},
		{ID: "fallback-questions-miranda", Label: "Recites the Miranda warning"},
		{ID: "fallback-questions-force", Label: "Describes the use-of-force continuum"},
		{ID: "fallback-questions-pursuit", Label: "Knows when a pursuit must be terminated"},
		{ID: "fallback-questions-chain", Label: "Names the chain of command"},
		{ID: "fallback-questions-powergaming", Label: "Defines powergaming and metagaming"},
		{ID: "fallback-questions-evidence", Label: "Explains evidence handling"},
		{ID: "fallback-questions-backup", Label: "Knows how to request backup"},
		{ID: "fallback-questions-offduty", Label: "Knows off-duty conduct rules"},
		{ID: "fallback-questions-reports", Label: "Knows when a report must be filed"},
	},
	KindOnboarding: {
		{ID: "fallback-onboarding-uniform", Label: "Uniform and equipment issued"},
		{ID: "fallback-onboarding-radio", Label: "Radio frequencies explained"},
		{ID: "fallback-onboarding-roster", Label: "Duty roster introduced"},
		{ID: "fallback-onboarding-discord", Label: "Joined the department Discord"},
		{ID: "fallback-onboarding-mentor", Label: "Field training officer assigned"},
	},
}

// Fallback returns a copy of the compiled-in list for kind.
func Fallback(kind Kind) []Entry {
	src := fallbacks[kind]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}
