package agent

import "sync"

// IterationGrant is a mailbox the request_more_iterations tool writes into
// and the loop drains once per iteration, extending maxIterations without
// either side needing a back-reference to the other.
type IterationGrant struct {
	mu    sync.Mutex
	extra int
}

// Grant adds n additional iterations to the pending grant.
func (g *IterationGrant) Grant(n int) {
	if g == nil || n <= 0 {
		return
	}
	g.mu.Lock()
	g.extra += n
	g.mu.Unlock()
}

// Take returns and clears the accumulated grant.
func (g *IterationGrant) Take() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	n := g.extra
	g.extra = 0
	g.mu.Unlock()
	return n
}
