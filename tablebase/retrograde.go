package tablebase

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/store"
)

const none = -1

// rnode is a position in the in-memory game graph.
type rnode struct {
	hash      uint64
	maximizer bool
	terminal  bool
	// already in the store before this build
	stored bool

	children []int32
	parents  []int32
	// children not resolved yet
	remaining int

	resolved bool
	value    game.Value
	depth    int
	best     int32

	drawChild int32
	drawDepth int
	lossChild int32
	lossDepth int
}

// BuildRetrograde solves every position reachable from root by working
// backwards from the finished games over the whole game graph, which it
// keeps in memory. Unlike BuildComplete its values do not depend on the
// order positions are visited in: a position is won if some move wins, lost
// if every move loses, and drawn otherwise, including when best play
// repeats forever. Positions already stored are taken as solved.
func (b *Builder) BuildRetrograde(ctx context.Context, root game.State) (Report, error) {
	start := time.Now()
	log.Info().Uint64("root", root.Hash()).Msg("tablebase-build-retrograde-start")
	b.threadMode(false)
	stop := b.watch()
	defer stop()

	var rep Report
	nodes, err := b.enumerate(ctx, root, &rep)
	if err == nil {
		b.propagate(nodes, &rep)
		err = b.persist(ctx, nodes, &rep)
	}
	if err == nil {
		rep.setRoot(store.Record{Value: nodes[0].value, DepthToTerminal: nodes[0].depth})
		err = b.flush(ctx)
	}
	rep.finish(start)
	b.logReport("tablebase-build-retrograde-done", &rep, err)
	return rep, err
}

// enumerate walks the graph reachable from root. Node 0 is root. Stored
// positions and finished games are resolved on sight and not expanded.
func (b *Builder) enumerate(ctx context.Context, root game.State, rep *Report) ([]*rnode, error) {
	ids := map[uint64]int32{}
	var nodes []*rnode
	var pending []game.State

	add := func(st game.State) (int32, error) {
		h := st.Hash()
		if id, ok := ids[h]; ok {
			return id, nil
		}
		id := int32(len(nodes))
		n := &rnode{hash: h, maximizer: st.IsMaximizerToMove(), best: none,
			drawChild: none, lossChild: none}
		nodes = append(nodes, n)
		ids[h] = id

		rec, ok, err := b.lookup(ctx, h)
		if err != nil {
			return 0, err
		}
		if !ok {
			rec, ok, err = b.leafRecord(st)
			if err != nil {
				return 0, err
			}
		} else {
			n.stored = true
		}
		if ok {
			n.resolved, n.value, n.depth, n.terminal = true, rec.Value, rec.DepthToTerminal, rec.IsTerminal
			return id, nil
		}
		pending = append(pending, st)
		return id, nil
	}

	if _, err := add(root); err != nil {
		return nil, err
	}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		id := ids[st.Hash()]
		moves := st.LegalMoves()
		rep.Expanded++
		rep.branching.Push(float64(len(moves)))
		b.nodes.Add(1)

		seen := make(map[int32]bool, len(moves))
		for _, m := range moves {
			cid, err := add(st.ApplyMove(m))
			if err != nil {
				return nil, err
			}
			if seen[cid] {
				continue
			}
			seen[cid] = true
			nodes[id].children = append(nodes[id].children, cid)
			nodes[cid].parents = append(nodes[cid].parents, id)
		}
		nodes[id].remaining = len(nodes[id].children)
	}
	log.Debug().Int("positions", len(nodes)).Msg("retrograde-graph-built")
	return nodes, nil
}

// propagate resolves positions from their children, shortest distances
// first, and marks whatever is left as drawn by endless play.
func (b *Builder) propagate(nodes []*rnode, rep *Report) {
	var buckets [][]int32
	enqueue := func(id int32, d int) {
		for len(buckets) <= d {
			buckets = append(buckets, nil)
		}
		buckets[d] = append(buckets[d], id)
	}
	for id, n := range nodes {
		if n.resolved {
			enqueue(int32(id), n.depth)
		}
	}

	for d := 0; d < len(buckets); d++ {
		for i := 0; i < len(buckets[d]); i++ {
			cid := buckets[d][i]
			c := nodes[cid]
			for _, pid := range c.parents {
				p := nodes[pid]
				if p.resolved {
					continue
				}
				if c.value == game.WinFor(p.maximizer) {
					p.resolved, p.value, p.depth, p.best = true, c.value, c.depth+1, cid
					enqueue(pid, p.depth)
					continue
				}
				p.remaining--
				if c.value == game.Draw {
					if p.drawChild == none || c.depth < p.drawDepth {
						p.drawChild, p.drawDepth = cid, c.depth
					}
				} else if p.lossChild == none || c.depth > p.lossDepth {
					p.lossChild, p.lossDepth = cid, c.depth
				}
				if p.remaining > 0 {
					continue
				}
				p.resolved = true
				if p.drawChild != none {
					p.value, p.depth, p.best = game.Draw, p.drawDepth+1, p.drawChild
				} else {
					p.value, p.depth, p.best = game.WinFor(!p.maximizer), p.lossDepth+1, p.lossChild
				}
				enqueue(pid, max(p.depth, d))
			}
		}
	}

	var endless []*rnode
	for _, n := range nodes {
		if n.resolved {
			continue
		}
		endless = append(endless, n)
		for _, cid := range n.children {
			c := nodes[cid]
			if !c.resolved || c.value == game.Draw {
				n.best = cid
				break
			}
		}
	}
	for _, n := range endless {
		n.resolved, n.value, n.depth = true, game.Draw, 0
	}
	rep.Endless += len(endless)
}

func (b *Builder) persist(ctx context.Context, nodes []*rnode, rep *Report) error {
	for _, n := range nodes {
		if n.stored {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := store.Record{
			Hash:            n.hash,
			Value:           n.value,
			DepthToTerminal: n.depth,
			IsTerminal:      n.terminal,
		}
		if n.best != none {
			rec.BestNext, rec.HasBest = nodes[n.best].hash, true
		}
		if _, err := b.insert(ctx, rec, rep); err != nil {
			return err
		}
	}
	return nil
}
