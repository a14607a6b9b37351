// Package pow implements the hashcash-style puzzle that gates creation
// token issuance: find a counter such that SHA256(prefix||nonce||counter)
// has the required number of leading zero bits.
package pow

import (
	"context"
	"crypto/sha256"
	"strconv"
)

// solveBatch is how many counters a Solve call tries between cancellation
// checks. The solver never holds the goroutine for more than one batch.
const solveBatch = 1000

// Challenge is immutable once issued. Difficulty is the required count of
// leading zero bits in the solution hash.
type Challenge struct {
	Prefix     string `json:"prefix"`
	Nonce      string `json:"nonce"`
	Difficulty int    `json:"difficulty"`
}

// Solver is a resumable solve in progress. It holds the next counter to
// try; Step picks up exactly where the previous Step left off, so a host
// that schedules cooperatively can interleave other work between steps
// without losing or redoing hashes.
type Solver struct {
	challenge Challenge
	counter   uint64
}

func NewSolver(ch Challenge) *Solver {
	return &Solver{challenge: ch}
}

// Counter reports the next counter the solver will try.
func (s *Solver) Counter() uint64 {
	return s.counter
}

// Step tries at most n counters. It returns the solution and true if one
// was found, otherwise (0, false) with the position saved for the next
// call.
func (s *Solver) Step(n int) (uint64, bool) {
	for i := 0; i < n; i++ {
		c := s.counter
		s.counter++
		if check(s.challenge, c) {
			return c, true
		}
	}
	return 0, false
}

// Solve runs the counter search to completion, checking ctx between
// batches of solveBatch iterations. An abandoned solve has no side
// effects and produces no solution.
func Solve(ctx context.Context, ch Challenge) (uint64, error) {
	s := NewSolver(ch)
	for {
		if c, found := s.Step(solveBatch); found {
			return c, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
	}
}

// Verify recomputes the hash for the given counter once. It uses the
// exact check Solve uses, so a solution valid to the client is valid to
// the server.
func Verify(ch Challenge, counter uint64) bool {
	return check(ch, counter)
}

func check(ch Challenge, counter uint64) bool {
	h := sha256.New()
	h.Write([]byte(ch.Prefix))
	h.Write([]byte(ch.Nonce))
	h.Write(strconv.AppendUint(nil, counter, 10))
	var sum [sha256.Size]byte
	return leadingZeroBits(h.Sum(sum[:0])) >= ch.Difficulty
}

// leadingZeroBits counts zero bits from the most significant bit of the
// first byte onward, spanning byte boundaries.
func leadingZeroBits(sum []byte) int {
	bits := 0
	for _, b := range sum {
		if b == 0 {
			bits += 8
			continue
		}
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if b&mask != 0 {
				return bits
			}
			bits++
		}
	}
	return bits
}
