package types

// QueryResult is the ranked answer to one or more query texts.
// The outer index is the query; inner slices are ordered by ascending distance.
type QueryResult struct {
	IDs       [][]string
	Documents [][]string
	Metadatas [][]Metadata
	Distances [][]float64
}

// Match is a single ranked chunk of a query result
type Match struct {
	ID       string
	Document string
	Metadata Metadata
	Distance float64
}

// NewQueryResult builds a single-query result from ranked matches
func NewQueryResult(matches []Match) *QueryResult {
	ids := make([]string, len(matches))
	docs := make([]string, len(matches))
	metas := make([]Metadata, len(matches))
	dists := make([]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		docs[i] = m.Document
		metas[i] = m.Metadata
		dists[i] = m.Distance
	}
	return &QueryResult{
		IDs:       [][]string{ids},
		Documents: [][]string{docs},
		Metadatas: [][]Metadata{metas},
		Distances: [][]float64{dists},
	}
}

// Matches returns the ranked matches for the query at index q
func (r *QueryResult) Matches(q int) []Match {
	if r == nil || q < 0 || q >= len(r.IDs) {
		return nil
	}
	matches := make([]Match, len(r.IDs[q]))
	for i := range r.IDs[q] {
		matches[i] = Match{
			ID:       r.IDs[q][i],
			Document: r.Documents[q][i],
			Metadata: r.Metadatas[q][i],
			Distance: r.Distances[q][i],
		}
	}
	return matches
}

// Len returns the number of matches for the first query
func (r *QueryResult) Len() int {
	if r == nil || len(r.IDs) == 0 {
		return 0
	}
	return len(r.IDs[0])
}

// AnyDistanceAbove reports whether any returned distance exceeds threshold
func (r *QueryResult) AnyDistanceAbove(threshold float64) bool {
	if r == nil {
		return false
	}
	for _, dists := range r.Distances {
		for _, d := range dists {
			if d > threshold {
				return true
			}
		}
	}
	return false
}

// WithinDistance returns a copy of the result keeping only matches with
// distance <= maxDistance
func (r *QueryResult) WithinDistance(maxDistance float64) *QueryResult {
	if r == nil {
		return nil
	}
	kept := make([]Match, 0)
	for _, m := range r.Matches(0) {
		if m.Distance <= maxDistance {
			kept = append(kept, m)
		}
	}
	return NewQueryResult(kept)
}
