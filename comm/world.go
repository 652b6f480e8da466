package comm

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/plasmamesh/utils"
)

const DefaultTimeout = 10 * time.Second

// World is an in-process transport: each rank is a goroutine and messages
// travel through a shared tag-matched mailbox
type World struct {
	NP      int
	Timeout time.Duration
	mb      *utils.MailBox[[]float64]
}

func NewWorld(NP int) *World {
	if NP < 1 {
		panic(fmt.Errorf("world size must be positive, have %d", NP))
	}
	return &World{
		NP:      NP,
		Timeout: DefaultTimeout,
		mb:      utils.NewMailBox[[]float64](),
	}
}

// Endpoint returns the transport seen by one rank
func (w *World) Endpoint(rank int) Transport {
	if rank < 0 || rank >= w.NP {
		panic(fmt.Errorf("rank %d: %w", rank, ErrBadRank))
	}
	return &endpoint{w: w, rank: rank}
}

// Run executes fn once per rank concurrently and returns the first error
func (w *World) Run(fn func(t Transport) error) error {
	var g errgroup.Group
	for rank := 0; rank < w.NP; rank++ {
		t := w.Endpoint(rank)
		g.Go(func() error {
			if err := fn(t); err != nil {
				return fmt.Errorf("rank %d: %w", t.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

type endpoint struct {
	w    *World
	rank int
}

func (e *endpoint) Rank() int { return e.rank }
func (e *endpoint) Size() int { return e.w.NP }

func (e *endpoint) Isend(dst, tag int, buf []float64) Request {
	if dst < 0 || dst >= e.w.NP {
		return &Completed{Err: fmt.Errorf("send to %d: %w", dst, ErrBadRank)}
	}
	msg := make([]float64, len(buf))
	copy(msg, buf)
	e.w.mb.PostMessage(utils.MailKey{From: e.rank, To: dst, Tag: tag}, msg)
	return &Completed{}
}

func (e *endpoint) Irecv(src, tag int, buf []float64) Request {
	if src < 0 || src >= e.w.NP {
		return &Completed{Err: fmt.Errorf("receive from %d: %w", src, ErrBadRank)}
	}
	key := utils.MailKey{From: src, To: e.rank, Tag: tag}
	return &recvRequest{e: e, key: key, seq: e.w.mb.Claim(key), buf: buf}
}

// recvRequest is bound to its message when posted, seq orders it among the
// receives on the same key
type recvRequest struct {
	e    *endpoint
	key  utils.MailKey
	seq  int
	buf  []float64
	done bool
}

func (r *recvRequest) Wait() error {
	if r.done {
		return ErrRequestConsumed
	}
	r.done = true
	w := r.e.w
	msg, ok := w.mb.ReceiveClaimed(r.key, r.seq, w.Timeout)
	if !ok {
		return fmt.Errorf("rank %d waiting on tag %d from rank %d (pending tags %v): %w",
			r.e.rank, r.key.Tag, r.key.From, w.mb.PendingTags(r.key.From, r.e.rank), ErrTimeout)
	}
	if len(msg) != len(r.buf) {
		return fmt.Errorf("rank %d tag %d from rank %d, expected %d values, received %d: %w",
			r.e.rank, r.key.Tag, r.key.From, len(r.buf), len(msg), ErrSizeMismatch)
	}
	copy(r.buf, msg)
	return nil
}
