package severity

// Feedback is the guidance shown to the citizen for a label.
type Feedback struct {
	Icon     string `json:"icon" yaml:"icon"`
	Message  string `json:"message" yaml:"message"`
	Deadline string `json:"deadline" yaml:"deadline"`
}

var feedbackTable = map[Level]Feedback{
	LevelLow: {
		Icon:     "🟢",
		Message:  "Low severity: surface wear with no immediate risk to traffic.",
		Deadline: "Schedule routine maintenance within 30 days.",
	},
	LevelMedium: {
		Icon:     "🟡",
		Message:  "Moderate severity: the defect can grow and damage vehicles.",
		Deadline: "Repair within 15 days.",
	},
	LevelHigh: {
		Icon:     "🟠",
		Message:  "High severity: real risk of accidents and vehicle damage.",
		Deadline: "Repair within 7 days and signal the area.",
	},
	LevelCritical: {
		Icon:     "🔴",
		Message:  "Critical severity: imminent danger to drivers, cyclists and pedestrians.",
		Deadline: "Isolate the area now and repair within 24 to 48 hours.",
	},
}

var neutralFeedback = Feedback{
	Icon:     "⚪",
	Message:  "Severity could not be determined from the analysis.",
	Deadline: "Request an on-site inspection by a technician.",
}

// FeedbackFor returns the table entry for the label's level, or the neutral
// entry for UNDEFINED and unrecognised labels.
func FeedbackFor(label Label) Feedback {
	if fb, ok := feedbackTable[label.Level()]; ok {
		return fb
	}
	return neutralFeedback
}
