package probe

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Querier runs short-lived external queries (driver tools, runtime version
// checks). Implementations must honor the context deadline.
type Querier interface {
	Query(ctx context.Context, name string, args ...string) (string, error)
}

// DefaultQueryTimeout bounds each individual probe query.
const DefaultQueryTimeout = 5 * time.Second

// ExecQuerier shells out to the named tool with a per-query timeout.
type ExecQuerier struct {
	Timeout time.Duration
}

func (q ExecQuerier) Query(ctx context.Context, name string, args ...string) (string, error) {
	t := q.Timeout
	if t <= 0 {
		t = DefaultQueryTimeout
	}
	qctx, cancel := context.WithTimeout(ctx, t)
	defer cancel()
	out, err := exec.CommandContext(qctx, name, args...).CombinedOutput()
	if qctx.Err() != nil {
		return "", qctx.Err()
	}
	return strings.TrimSpace(string(out)), err
}
