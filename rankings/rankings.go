// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package rankings holds the immutable per-ballot ranking structure: which
// candidates a voter marked at which rank. Modeled as a plain value type —
// all the interesting logic that walks these structures lives in the
// tabulator package, not here.
package rankings

import (
	"sort"
)

// CandidatesAtRanking is the set of candidate IDs marked at a single rank
// on one ballot. Order is irrelevant and duplicates collapse by
// construction (it is backed by a set, not a slice).
type CandidatesAtRanking struct {
	set map[string]struct{}
}

// NewCandidatesAtRanking builds a CandidatesAtRanking from a list of
// candidate IDs, deduplicating as it goes.
func NewCandidatesAtRanking(candidateIDs ...string) CandidatesAtRanking {
	set := make(map[string]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		set[id] = struct{}{}
	}
	return CandidatesAtRanking{set: set}
}

// Count returns the number of distinct candidates at this ranking.
func (c CandidatesAtRanking) Count() int {
	return len(c.set)
}

// Contains reports whether candidateID was marked at this ranking.
func (c CandidatesAtRanking) Contains(candidateID string) bool {
	_, ok := c.set[candidateID]
	return ok
}

// Candidates returns the marked candidate IDs in sorted order, so that
// iteration over a ranking is always deterministic.
func (c CandidatesAtRanking) Candidates() []string {
	out := make([]string, 0, len(c.set))
	for id := range c.set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// rankEntry is one (rank, candidates-at-that-rank) pair.
type rankEntry struct {
	rank       int
	candidates CandidatesAtRanking
}

// CandidateRankings is the immutable, ascending-rank, sparse sequence of
// rankings on one ballot.
type CandidateRankings struct {
	entries  []rankEntry
	maxRank  int
	byRank   map[int]CandidatesAtRanking
}

// Builder accumulates rankings for one ballot before freezing them into a
// CandidateRankings. CVR parsing, which is out of scope for this engine,
// is expected to use this to assemble each ballot's rankings in whatever
// order its source format yields them.
type Builder struct {
	byRank map[int]CandidatesAtRanking
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{byRank: make(map[int]CandidatesAtRanking)}
}

// Add records that candidateIDs were marked at rank. rank must be a
// positive integer; Add panics otherwise, since a non-positive rank is a
// CVR-parsing bug, not a tabulation-time condition this engine should
// recover from.
func (b *Builder) Add(rank int, candidateIDs ...string) *Builder {
	if rank <= 0 {
		panic("rankings: rank must be a positive integer")
	}
	existing, ok := b.byRank[rank]
	if !ok {
		b.byRank[rank] = NewCandidatesAtRanking(candidateIDs...)
		return b
	}
	merged := make([]string, 0, len(candidateIDs))
	merged = append(merged, existing.Candidates()...)
	merged = append(merged, candidateIDs...)
	b.byRank[rank] = NewCandidatesAtRanking(merged...)
	return b
}

// Build freezes the accumulated rankings into an immutable
// CandidateRankings, sorted ascending by rank.
func (b *Builder) Build() CandidateRankings {
	ranks := make([]int, 0, len(b.byRank))
	for r := range b.byRank {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)

	entries := make([]rankEntry, 0, len(ranks))
	maxRank := 0
	for _, r := range ranks {
		entries = append(entries, rankEntry{rank: r, candidates: b.byRank[r]})
		if r > maxRank {
			maxRank = r
		}
	}

	byRank := make(map[int]CandidatesAtRanking, len(b.byRank))
	for r, c := range b.byRank {
		byRank[r] = c
	}

	return CandidateRankings{entries: entries, maxRank: maxRank, byRank: byRank}
}

// NumRankings returns the number of distinct ranks with at least one
// candidate marked (gaps in the rank sequence are not counted).
func (c CandidateRankings) NumRankings() int {
	return len(c.entries)
}

// MaxRank returns the highest rank with any candidate marked, or 0 for a
// ballot with no rankings at all (an undervote ballot).
func (c CandidateRankings) MaxRank() int {
	return c.maxRank
}

// HasRank reports whether rank has at least one candidate marked.
func (c CandidateRankings) HasRank(rank int) bool {
	_, ok := c.byRank[rank]
	return ok
}

// AtRank returns the CandidatesAtRanking for rank, or the zero value (an
// empty set) if nothing was marked there.
func (c CandidateRankings) AtRank(rank int) CandidatesAtRanking {
	if ranking, ok := c.byRank[rank]; ok {
		return ranking
	}
	return CandidatesAtRanking{set: map[string]struct{}{}}
}

// Entry is one (rank, CandidatesAtRanking) pair, returned by Walk.
type Entry struct {
	Rank       int
	Candidates CandidatesAtRanking
}

// Walk returns every populated ranking in ascending rank order.
func (c CandidateRankings) Walk() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, Entry{Rank: e.rank, Candidates: e.candidates})
	}
	return out
}
