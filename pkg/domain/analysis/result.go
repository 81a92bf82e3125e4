package analysis

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the outcome of one analysis call. On error, Text carries a
// diagnostic ready for display.
type Result struct {
	Status Status `json:"status" yaml:"status"`
	Text   string `json:"analysis" yaml:"analysis"`
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}
