package structs

const (
	queryLimitDefault = 1000
	queryLimitMax     = 10000
)

type Query struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Filters
	JobIDs   []string `json:"job_ids,omitempty"`
	Ops      []string `json:"ops,omitempty"`
	Statuses []Status `json:"statuses,omitempty"`
}

func (q *Query) Sanitize() {
	if q.Limit <= 0 {
		q.Limit = queryLimitDefault
	}
	if q.Limit > queryLimitMax {
		q.Limit = queryLimitMax
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.JobIDs == nil || len(q.JobIDs) == 0 {
		q.JobIDs = nil
	}
	if q.Ops == nil || len(q.Ops) == 0 {
		q.Ops = nil
	}
	if q.Statuses == nil || len(q.Statuses) == 0 {
		q.Statuses = nil
	}
}
