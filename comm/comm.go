// Package comm is the point to point transport consumed by the mesh halo
// exchange: ranks, non-blocking tagged sends and receives, and communicators
// scoped to a row or column of the processor grid.
package comm

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout         = errors.New("no matching message arrived")
	ErrSizeMismatch    = errors.New("message size mismatch")
	ErrRequestConsumed = errors.New("request already waited on")
	ErrBadRank         = errors.New("rank out of range")
)

// Request is an in-flight send or receive. Wait must be called exactly once.
type Request interface {
	Wait() error
}

// Transport connects this process to its peers. Messages between a pair of
// ranks are matched by tag and delivered in posting order.
type Transport interface {
	Rank() int
	Size() int
	// Isend posts a copy of buf to rank dst
	Isend(dst, tag int, buf []float64) Request
	// Irecv fills buf from the next message from src with tag, the message
	// length must equal len(buf)
	Irecv(src, tag int, buf []float64) Request
}

// Completed is a Request that has already finished with err
type Completed struct {
	Err  error
	done bool
}

func (c *Completed) Wait() error {
	if c.done {
		return ErrRequestConsumed
	}
	c.done = true
	return c.Err
}

// WaitAll waits on every request and returns the first failure
func WaitAll(reqs ...Request) (err error) {
	for _, r := range reqs {
		if r == nil {
			continue
		}
		if e := r.Wait(); e != nil && err == nil {
			err = e
		}
	}
	return
}

// Communicator is a subset of ranks, such as one row of the processor grid
type Communicator struct {
	t     Transport
	ranks []int
}

func NewCommunicator(t Transport, ranks []int) (c *Communicator, err error) {
	var found bool
	for _, r := range ranks {
		if r < 0 || r >= t.Size() {
			return nil, fmt.Errorf("communicator rank %d: %w", r, ErrBadRank)
		}
		if r == t.Rank() {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("rank %d is not a member of communicator %v", t.Rank(), ranks)
	}
	c = &Communicator{t: t, ranks: append([]int(nil), ranks...)}
	return
}

func (c *Communicator) Size() int {
	return len(c.ranks)
}

// Rank is this process' position within the communicator
func (c *Communicator) Rank() int {
	for i, r := range c.ranks {
		if r == c.t.Rank() {
			return i
		}
	}
	return -1
}

func (c *Communicator) Ranks() []int {
	return append([]int(nil), c.ranks...)
}

// AllReduceSum returns the element-wise sum of vals over all members. Every
// member must call it with the same tag and length.
func (c *Communicator) AllReduceSum(vals []float64, tag int) (sum []float64, err error) {
	var (
		me    = c.t.Rank()
		bufs  = make([][]float64, len(c.ranks))
		sends []Request
		recvs []Request
	)
	for i, r := range c.ranks {
		if r == me {
			continue
		}
		sends = append(sends, c.t.Isend(r, tag, vals))
		bufs[i] = make([]float64, len(vals))
		recvs = append(recvs, c.t.Irecv(r, tag, bufs[i]))
	}
	if err = WaitAll(append(recvs, sends...)...); err != nil {
		return nil, fmt.Errorf("all-reduce over %v: %w", c.ranks, err)
	}
	// Sum in communicator order so every member gets bit-identical results
	sum = c.orderedSum(vals, bufs)
	return
}

func (c *Communicator) orderedSum(vals []float64, bufs [][]float64) (sum []float64) {
	sum = make([]float64, len(vals))
	for i, r := range c.ranks {
		src := bufs[i]
		if r == c.t.Rank() {
			src = vals
		}
		for j, v := range src {
			sum[j] += v
		}
	}
	return
}
