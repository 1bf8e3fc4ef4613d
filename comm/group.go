package comm

import (
	"fmt"
	"sync"
)

// Group hosts N ranks inside one process, one goroutine per rank. Ranks meet
// at a shared exchange board guarded by a cyclic barrier, so every collective
// has the same ordering semantics as a message-passing implementation: all
// ranks complete collective k before any rank starts collective k+1.
type Group struct {
	n int

	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation int

	// slots holds one contribution per rank for reduction/gather ops.
	slots []int
	// board is the n x n all-to-all matrix: board[src][dst].
	board [][]any
}

// NewGroup creates an in-process group of n ranks.
func NewGroup(n int) (*Group, error) {
	if n < 1 {
		return nil, fmt.Errorf("group size must be positive, got %d", n)
	}
	g := &Group{
		n:     n,
		slots: make([]int, n),
		board: make([][]any, n),
	}
	for i := range g.board {
		g.board[i] = make([]any, n)
	}
	g.cond = sync.NewCond(&g.mu)
	return g, nil
}

// Size returns the number of ranks in the group.
func (g *Group) Size() int { return g.n }

// Comm returns the communicator for one rank of the group.
func (g *Group) Comm(rank int) (Communicator, error) {
	if rank < 0 || rank >= g.n {
		return nil, fmt.Errorf("rank %d out of range [0,%d)", rank, g.n)
	}
	return &groupRank{g: g, rank: rank}, nil
}

// Run executes f once per rank, each on its own goroutine, and waits for all
// of them. The first non-nil error (by rank order) is returned. Collective
// algorithms must make failure decisions identically on every rank; a rank
// that returns early while peers wait inside a collective would deadlock the
// group, so f must either complete the same collectives everywhere or fail
// before the first one.
func (g *Group) Run(f func(c Communicator) error) error {
	errs := make([]error, g.n)
	var wg sync.WaitGroup
	wg.Add(g.n)
	for r := 0; r < g.n; r++ {
		c := &groupRank{g: g, rank: r}
		go func(rank int, c Communicator) {
			defer wg.Done()
			errs[rank] = f(c)
		}(r, c)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// barrier blocks until all n ranks have arrived, then releases them together.
// Reusable across rounds via the generation counter.
func (g *Group) barrier() {
	g.mu.Lock()
	defer g.mu.Unlock()
	gen := g.generation
	g.arrived++
	if g.arrived == g.n {
		g.arrived = 0
		g.generation++
		g.cond.Broadcast()
		return
	}
	for gen == g.generation {
		g.cond.Wait()
	}
}

type groupRank struct {
	g    *Group
	rank int
}

func (r *groupRank) Rank() int { return r.rank }

func (r *groupRank) Size() int { return r.g.n }

func (r *groupRank) SumInt(v int) int {
	g := r.g
	g.slots[r.rank] = v
	g.barrier()
	sum := 0
	for i := 0; i < g.n; i++ {
		sum += g.slots[i]
	}
	g.barrier()
	return sum
}

func (r *groupRank) AllGatherInt(v int) []int {
	g := r.g
	g.slots[r.rank] = v
	g.barrier()
	out := make([]int, g.n)
	copy(out, g.slots)
	g.barrier()
	return out
}

func (r *groupRank) Exchange(send []any) []any {
	g := r.g
	for dst := 0; dst < g.n; dst++ {
		var p any
		if dst < len(send) {
			p = send[dst]
		}
		g.board[r.rank][dst] = p
	}
	g.barrier()
	recv := make([]any, g.n)
	for src := 0; src < g.n; src++ {
		recv[src] = g.board[src][r.rank]
	}
	g.barrier()
	return recv
}
