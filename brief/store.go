package brief

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// ValidationError reports a field-level problem with an attempted mutation.
// It is returned only for structural problems (unknown field, wrong value
// type); semantically invalid values are stored and flagged on the field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("brief: field %q: %s", e.Field, e.Message)
}

// Store owns the brief state for one wizard session. All mutation goes
// through its operations; Snapshot returns deep copies so no external code
// holds a live reference into the store.
type Store struct {
	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewStore creates an empty brief store.
func NewStore() *Store {
	return &Store{
		subs: make(map[int]func(State)),
		now:  time.Now,
	}
}

// Subscribe registers fn to be called with a state snapshot after every
// mutation. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// notifyLocked collects subscribers and a snapshot under the lock, then
// invokes them after release so a subscriber may call back into the store.
func (s *Store) notifyLocked() func() {
	snap := s.state.clone()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}

// UpdateField applies a direct user edit. The value is stored even when
// semantically invalid; only a wrong Go type or unknown field name is
// rejected. User edits carry confidence 1.0: a user statement is ground
// truth for its own field.
func (s *Store) UpdateField(field FieldName, value any) error {
	s.mu.Lock()
	switch field {
	case FieldProjectName, FieldProjectType, FieldDescription, FieldObjective:
		v, ok := value.(string)
		if !ok {
			s.mu.Unlock()
			return &ValidationError{Field: string(field), Message: fmt.Sprintf("expected string, got %T", value)}
		}
		valid, errMsg := validateString(field, v)
		f := Field[string]{Value: v, Confidence: 1.0, Source: SourceUserEdited, Valid: valid, Error: errMsg}
		switch field {
		case FieldProjectName:
			s.state.Name = f
		case FieldProjectType:
			s.state.Type = f
		case FieldDescription:
			s.state.Description = f
		case FieldObjective:
			s.state.Objective = f
		}
	case FieldDeliverables:
		v, ok := value.([]string)
		if !ok {
			s.mu.Unlock()
			return &ValidationError{Field: string(field), Message: fmt.Sprintf("expected []string, got %T", value)}
		}
		s.state.KeyDeliverables = Field[[]string]{
			Value: append([]string(nil), v...), Confidence: 1.0,
			Source: SourceUserEdited, Valid: true,
		}
	case FieldRoadmap:
		v, ok := value.(*Roadmap)
		if !ok {
			s.mu.Unlock()
			return &ValidationError{Field: string(field), Message: fmt.Sprintf("expected *Roadmap, got %T", value)}
		}
		s.state.Roadmap = Field[*Roadmap]{Value: v.clone(), Confidence: 1.0, Source: SourceUserEdited, Valid: true}
	default:
		s.mu.Unlock()
		return &ValidationError{Field: string(field), Message: "unknown field"}
	}
	s.state.UserModified = true
	s.state.LastUpdated = s.now()
	s.recalcConfidenceLocked()
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
	return nil
}

// MergeAnalysis folds a conversation analysis into the brief. Only fields
// the analysis actually produced are replaced; omitted fields keep their
// current value regardless of who set it. A field the user previously
// edited becomes hybrid when the analysis overwrites it.
func (s *Store) MergeAnalysis(a *ConversationAnalysis) {
	if a == nil {
		return
	}
	s.mu.Lock()
	conf := clamp01(a.Confidence)

	if a.ProjectName != "" {
		s.state.Name = mergeString(s.state.Name, FieldProjectName, a.ProjectName, conf)
	}
	if a.ProjectType != "" {
		s.state.Type = mergeString(s.state.Type, FieldProjectType, a.ProjectType, conf)
	}
	if a.Description != "" {
		s.state.Description = mergeString(s.state.Description, FieldDescription, a.Description, conf)
	}
	if a.Objective != "" {
		s.state.Objective = mergeString(s.state.Objective, FieldObjective, a.Objective, conf)
	}
	if len(a.Deliverables) > 0 {
		src := SourceAIGenerated
		if s.state.KeyDeliverables.Source == SourceUserEdited {
			src = SourceHybrid
		}
		s.state.KeyDeliverables = Field[[]string]{
			Value: append([]string(nil), a.Deliverables...), Confidence: conf,
			Source: src, Valid: true,
		}
	}
	s.state.LastUpdated = s.now()
	s.recalcConfidenceLocked()
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

func mergeString(prev Field[string], field FieldName, value string, conf float64) Field[string] {
	src := SourceAIGenerated
	if prev.Source == SourceUserEdited {
		src = SourceHybrid
	}
	valid, errMsg := validateString(field, value)
	return Field[string]{Value: value, Confidence: conf, Source: src, Valid: valid, Error: errMsg}
}

// SetRoadmap installs a generated roadmap with ai-generated provenance.
func (s *Store) SetRoadmap(r *Roadmap) {
	s.mu.Lock()
	conf := 0.0
	if r != nil {
		conf = clamp01(r.AIConfidence)
	}
	s.state.Roadmap = Field[*Roadmap]{Value: r.clone(), Confidence: conf, Source: SourceAIGenerated, Valid: r != nil}
	s.state.LastUpdated = s.now()
	s.recalcConfidenceLocked()
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// PhaseUpdate carries the editable attributes of a roadmap phase. Nil
// pointers leave the attribute unchanged.
type PhaseUpdate struct {
	Title         *string
	Goal          *string
	EstimatedDays *int
}

// UpdateRoadmapPhase applies a direct edit to one roadmap phase and marks
// the roadmap user-modified.
func (s *Store) UpdateRoadmapPhase(phaseID string, update PhaseUpdate) error {
	s.mu.Lock()
	rm := s.state.Roadmap.Value
	if rm == nil {
		s.mu.Unlock()
		return &ValidationError{Field: string(FieldRoadmap), Message: "no roadmap to update"}
	}
	idx := -1
	for i := range rm.Phases {
		if rm.Phases[i].ID == phaseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return &ValidationError{Field: string(FieldRoadmap), Message: "unknown phase id: " + phaseID}
	}
	if update.Title != nil {
		rm.Phases[idx].Title = *update.Title
	}
	if update.Goal != nil {
		rm.Phases[idx].Goal = *update.Goal
	}
	if update.EstimatedDays != nil {
		rm.Phases[idx].EstimatedDays = *update.EstimatedDays
	}
	rm.UserModified = true
	s.state.Roadmap.Source = SourceHybrid
	s.state.UserModified = true
	s.state.LastUpdated = s.now()
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
	return nil
}

// ReorderRoadmapPhases rearranges the roadmap into the given phase ID order.
// Every existing phase must appear exactly once.
func (s *Store) ReorderRoadmapPhases(orderedIDs []string) error {
	s.mu.Lock()
	rm := s.state.Roadmap.Value
	if rm == nil {
		s.mu.Unlock()
		return &ValidationError{Field: string(FieldRoadmap), Message: "no roadmap to reorder"}
	}
	if len(orderedIDs) != len(rm.Phases) {
		s.mu.Unlock()
		return &ValidationError{Field: string(FieldRoadmap), Message: "reorder must list every phase exactly once"}
	}
	byID := make(map[string]RoadmapPhase, len(rm.Phases))
	for _, p := range rm.Phases {
		byID[p.ID] = p
	}
	reordered := make([]RoadmapPhase, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		p, ok := byID[id]
		if !ok {
			s.mu.Unlock()
			return &ValidationError{Field: string(FieldRoadmap), Message: "unknown phase id: " + id}
		}
		delete(byID, id)
		p.Order = i
		reordered = append(reordered, p)
	}
	rm.Phases = reordered
	rm.UserModified = true
	s.state.Roadmap.Source = SourceHybrid
	s.state.UserModified = true
	s.state.LastUpdated = s.now()
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
	return nil
}

// AddUploadedFiles appends pipeline-approved attachments. Count limits are
// the ingestion pipeline's responsibility; the store only records results.
func (s *Store) AddUploadedFiles(files []UploadedFile) {
	if len(files) == 0 {
		return
	}
	s.mu.Lock()
	s.state.UploadedFiles = append(s.state.UploadedFiles, files...)
	s.state.LastUpdated = s.now()
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// SetUpdating flags every field as having an analysis in flight (or clears
// the flag). Consumers use it to show that current values may be superseded.
func (s *Store) SetUpdating(on bool) {
	s.mu.Lock()
	s.state.Name.Updating = on
	s.state.Type.Updating = on
	s.state.Description.Updating = on
	s.state.Objective.Updating = on
	s.state.KeyDeliverables.Updating = on
	s.state.Roadmap.Updating = on
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// MarkFilesProcessed clears the processing flag on every uploaded file, once
// the analysis that consumed them has finished.
func (s *Store) MarkFilesProcessed() {
	s.mu.Lock()
	for i := range s.state.UploadedFiles {
		s.state.UploadedFiles[i].Processing = false
	}
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Reset restores the pristine empty state. Two consecutive resets produce
// identical states, including the zero LastUpdated stamp.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = State{}
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
