package trace

// Summary aggregates event counts of a fragment or a whole document.
type Summary struct {
	Total    int
	Metadata int
	ByPhase  map[Phase]int
}

// Timed returns the number of events that sit on the time axis.
func (s *Summary) Timed() int {
	return s.Total - s.Metadata
}

// Merge adds the counts of other into s. Safe for nil other.
func (s *Summary) Merge(other *Summary) {
	if other == nil {
		return
	}
	if s.ByPhase == nil {
		s.ByPhase = make(map[Phase]int)
	}
	for ph, n := range other.ByPhase {
		s.ByPhase[ph] += n
	}
	s.Total += other.Total
	s.Metadata += other.Metadata
}

func summarize(counts map[Phase]int) *Summary {
	summary := &Summary{ByPhase: make(map[Phase]int, len(counts))}
	for ph, n := range counts {
		summary.ByPhase[ph] = n
		summary.Total += n
		if ph == PhaseMetadata {
			summary.Metadata += n
		}
	}
	return summary
}
