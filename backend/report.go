package backend

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolproxy/invocation"
)

// MaxReportID is the first report id that cannot be generated.
const MaxReportID = 5

// Report generates a report by id. Ids below MaxReportID succeed.
//
// Arguments: report_id (integer).
type Report struct {
	base
}

// NewReport creates a Report backend.
func NewReport(cfg Config) *Report {
	return &Report{base{cfg: cfg.withDefaults()}}
}

// Invoke generates the report.
func (r *Report) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	raw, ok := arg(args, "report_id", 0)
	if !ok {
		return invocation.Result{}, invalid("report needs a report_id")
	}
	f, ok := toFloat(raw)
	if !ok || f != float64(int64(f)) {
		return invocation.Result{}, invalid("report_id %v is not an integer", raw)
	}
	id := int64(f)

	if err := r.begin(ctx); err != nil {
		return invocation.Result{}, err
	}
	if id >= MaxReportID {
		return invocation.Result{}, fmt.Errorf("%w: id %d", ErrReportFailed, id)
	}
	return invocation.Value(fmt.Sprintf("report %d generated", id)), nil
}

var _ invocation.Invoker = (*Report)(nil)
