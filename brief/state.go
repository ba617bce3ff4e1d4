package brief

import "time"

// RoadmapPhase is a single phase of the project roadmap.
type RoadmapPhase struct {
	// ID uniquely identifies the phase within its roadmap.
	ID string `json:"id"`

	// Title is the short phase name.
	Title string `json:"title"`

	// Goal describes what the phase delivers.
	Goal string `json:"goal"`

	// Order is the 0-based position within the roadmap.
	Order int `json:"order"`

	// Current marks the phase the project is presently in.
	Current bool `json:"is_current"`

	// EstimatedDays is the rough effort estimate; 0 means unestimated.
	EstimatedDays int `json:"estimated_days,omitempty"`
}

// Roadmap is the phased delivery plan attached to a brief.
type Roadmap struct {
	Phases         []RoadmapPhase `json:"phases"`
	CurrentPhaseID string         `json:"current_phase_id"`
	AIConfidence   float64        `json:"ai_confidence"`
	GeneratedAt    time.Time      `json:"generated_at"`
	UserModified   bool           `json:"user_modified"`
}

// clone deep-copies the roadmap so no caller shares phase slices with the store.
func (r *Roadmap) clone() *Roadmap {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Phases = make([]RoadmapPhase, len(r.Phases))
	copy(cp.Phases, r.Phases)
	return &cp
}

// UploadedFile is an attachment that has passed the ingestion pipeline.
type UploadedFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	Content    string    `json:"content,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
	Processing bool      `json:"is_processing"`
}

// State is the full structured brief. Values obtained from Store.Snapshot
// are deep copies; mutation happens only through Store operations.
type State struct {
	Name              Field[string]   `json:"name"`
	Type              Field[string]   `json:"type"`
	Description       Field[string]   `json:"description"`
	Objective         Field[string]   `json:"objective"`
	KeyDeliverables   Field[[]string] `json:"key_deliverables"`
	Roadmap           Field[*Roadmap] `json:"roadmap"`
	OverallConfidence float64         `json:"overall_confidence"`
	UserModified      bool            `json:"user_modified"`
	LastUpdated       time.Time       `json:"last_updated"`
	UploadedFiles     []UploadedFile  `json:"uploaded_files"`
}

// clone deep-copies the state, including deliverables, files and roadmap.
func (s State) clone() State {
	cp := s
	if s.KeyDeliverables.Value != nil {
		cp.KeyDeliverables.Value = append([]string(nil), s.KeyDeliverables.Value...)
	}
	if s.UploadedFiles != nil {
		cp.UploadedFiles = append([]UploadedFile(nil), s.UploadedFiles...)
	}
	cp.Roadmap.Value = s.Roadmap.Value.clone()
	return cp
}

// SuggestedPhase is a roadmap phase proposed by conversation analysis.
type SuggestedPhase struct {
	Title         string `json:"title"`
	Goal          string `json:"goal"`
	EstimatedDays int    `json:"estimated_days,omitempty"`
}

// ConversationAnalysis is the structured output of the external analysis
// collaborator for one conversation turn. Empty string fields mean the
// analysis had nothing to say about that field.
type ConversationAnalysis struct {
	ProjectName        string           `json:"project_name,omitempty"`
	ProjectType        string           `json:"project_type,omitempty"`
	Description        string           `json:"description,omitempty"`
	Objective          string           `json:"objective,omitempty"`
	Deliverables       []string         `json:"deliverables,omitempty"`
	SuggestedPhases    []SuggestedPhase `json:"suggested_phases,omitempty"`
	Confidence         float64          `json:"confidence"`
	MissingInformation []string         `json:"missing_information,omitempty"`
}
