package apperr

// Status 描述尽力而为副作用的执行结果。
type Status string

const (
	StatusApplied  Status = "applied"
	StatusSkipped  Status = "skipped"
	StatusDegraded Status = "degraded"
)

// Outcome 记录非关键路径（历史写入、行为记录、个性化等）的结果，
// 失败不会向调用方传播，但可被断言。
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

func Applied() Outcome { return Outcome{Status: StatusApplied} }

func Skipped(reason string) Outcome { return Outcome{Status: StatusSkipped, Reason: reason} }

func Degraded(err error) Outcome {
	o := Outcome{Status: StatusDegraded, Err: err}
	if err != nil {
		o.Reason = err.Error()
	}
	return o
}

func (o Outcome) IsApplied() bool  { return o.Status == StatusApplied }
func (o Outcome) IsDegraded() bool { return o.Status == StatusDegraded }
