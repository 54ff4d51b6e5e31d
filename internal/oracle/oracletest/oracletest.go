// SPDX-License-Identifier: Apache-2.0

// Package oracletest provides oracle doubles for tests.
package oracletest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gemaraproj/docdiff/internal/oracle"
)

// Stub answers from a fixed table keyed by the text pair. Pairs not in the
// table get Default, or Err when it is set.
type Stub struct {
	Answers map[[2]string]oracle.Result
	Default oracle.Result
	Err     error

	mu    sync.Mutex
	calls [][2]string
}

func (s *Stub) Score(ctx context.Context, a, b string) (oracle.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, [2]string{a, b})
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return oracle.Result{}, err
	}
	if res, ok := s.Answers[[2]string{a, b}]; ok {
		return res, nil
	}
	if s.Err != nil {
		return oracle.Result{}, s.Err
	}
	return s.Default, nil
}

// Calls returns the pairs scored so far.
func (s *Stub) Calls() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]string(nil), s.calls...)
}

// Flaky fails the first Failures calls with Err, then delegates to Next.
type Flaky struct {
	Failures int32
	Err      error
	Next     oracle.Oracle

	count atomic.Int32
}

func (f *Flaky) Score(ctx context.Context, a, b string) (oracle.Result, error) {
	if f.count.Add(1) <= f.Failures {
		return oracle.Result{}, f.Err
	}
	return f.Next.Score(ctx, a, b)
}

// Count returns the number of calls made.
func (f *Flaky) Count() int {
	return int(f.count.Load())
}

// Blocking never answers; it returns once ctx is done. Started is closed on
// the first call.
type Blocking struct {
	Started chan struct{}

	once     sync.Once
	inFlight atomic.Int32
	peak     atomic.Int32
}

// NewBlocking creates a Blocking oracle.
func NewBlocking() *Blocking {
	return &Blocking{Started: make(chan struct{})}
}

func (b *Blocking) Score(ctx context.Context, _, _ string) (oracle.Result, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	b.once.Do(func() { close(b.Started) })
	<-ctx.Done()
	return oracle.Result{}, ctx.Err()
}

// Peak returns the highest number of concurrent calls observed.
func (b *Blocking) Peak() int {
	return int(b.peak.Load())
}

var (
	_ oracle.Oracle = (*Stub)(nil)
	_ oracle.Oracle = (*Flaky)(nil)
	_ oracle.Oracle = (*Blocking)(nil)
)
