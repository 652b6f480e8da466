package utils

import (
	"sort"
	"sync"
	"time"
)

// MailKey addresses a queue of messages from one sender to one receiver with
// a matching tag
type MailKey struct {
	From, To, Tag int
}

// mailSlot numbers posts and claims independently, the n-th claim receives
// the n-th post however the claims are later waited on
type mailSlot[T any] struct {
	mu              sync.Mutex
	posted, claimed int
	boxes           map[int]chan T
}

func (s *mailSlot[T]) box(n int) (ch chan T) {
	var ok bool
	if ch, ok = s.boxes[n]; !ok {
		ch = make(chan T, 1)
		s.boxes[n] = ch
	}
	return
}

// MailBox holds unbounded FIFO queues keyed by (sender, receiver, tag).
// Posting never blocks; receiving blocks until a message with the key
// arrives or the timeout expires.
type MailBox[T any] struct {
	mu    sync.Mutex
	slots map[MailKey]*mailSlot[T]
}

func NewMailBox[T any]() *MailBox[T] {
	return &MailBox[T]{
		slots: make(map[MailKey]*mailSlot[T]),
	}
}

func (mb *MailBox[T]) slot(key MailKey) (s *mailSlot[T]) {
	var ok bool
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if s, ok = mb.slots[key]; !ok {
		s = &mailSlot[T]{boxes: make(map[int]chan T)}
		mb.slots[key] = s
	}
	return
}

func (mb *MailBox[T]) PostMessage(key MailKey, msg T) {
	s := mb.slot(key)
	s.mu.Lock()
	ch := s.box(s.posted)
	s.posted++
	s.mu.Unlock()
	ch <- msg
}

// Claim reserves the next message in posting order for key and returns its
// sequence number, to be collected later with ReceiveClaimed
func (mb *MailBox[T]) Claim(key MailKey) (n int) {
	s := mb.slot(key)
	s.mu.Lock()
	n = s.claimed
	s.claimed++
	s.mu.Unlock()
	return
}

// ReceiveClaimed blocks for message n of key, ok is false on timeout
func (mb *MailBox[T]) ReceiveClaimed(key MailKey, n int, timeout time.Duration) (msg T, ok bool) {
	var (
		s     = mb.slot(key)
		timer = time.NewTimer(timeout)
	)
	defer timer.Stop()
	s.mu.Lock()
	ch := s.box(n)
	s.mu.Unlock()
	select {
	case msg = <-ch:
		s.mu.Lock()
		delete(s.boxes, n)
		s.mu.Unlock()
		return msg, true
	case <-timer.C:
		return
	}
}

// ReceiveMessage claims and waits for the oldest unclaimed message for key
func (mb *MailBox[T]) ReceiveMessage(key MailKey, timeout time.Duration) (msg T, ok bool) {
	return mb.ReceiveClaimed(key, mb.Claim(key), timeout)
}

// PendingTags lists the tags with undelivered messages from one sender to one
// receiver, used to diagnose mismatched exchanges
func (mb *MailBox[T]) PendingTags(from, to int) (tags []int) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for key, s := range mb.slots {
		if key.From != from || key.To != to {
			continue
		}
		s.mu.Lock()
		for _, ch := range s.boxes {
			if len(ch) != 0 {
				tags = append(tags, key.Tag)
				break
			}
		}
		s.mu.Unlock()
	}
	sort.Ints(tags)
	return
}
