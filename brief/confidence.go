package brief

// recalcConfidenceLocked recomputes the brief's overall confidence as the
// mean confidence of populated fields. An empty brief scores zero. The
// result is always within [0,1] because every member already is.
func (s *Store) recalcConfidenceLocked() {
	total := 0.0
	count := 0
	add := func(conf float64, set bool) {
		if !set {
			return
		}
		total += clamp01(conf)
		count++
	}
	add(s.state.Name.Confidence, s.state.Name.Source != "")
	add(s.state.Type.Confidence, s.state.Type.Source != "")
	add(s.state.Description.Confidence, s.state.Description.Source != "")
	add(s.state.Objective.Confidence, s.state.Objective.Source != "")
	add(s.state.KeyDeliverables.Confidence, s.state.KeyDeliverables.Source != "")
	add(s.state.Roadmap.Confidence, s.state.Roadmap.Value != nil)
	if count == 0 {
		s.state.OverallConfidence = 0
		return
	}
	s.state.OverallConfidence = clamp01(total / float64(count))
}
