package brief

import (
	"reflect"
	"testing"
	"time"
)

func testStore() *Store {
	s := NewStore()
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestStore_UpdateField_MarksUserEdited(t *testing.T) {
	s := testStore()
	if err := s.UpdateField(FieldObjective, "ship an MVP"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	got := s.Snapshot()
	if got.Objective.Value != "ship an MVP" {
		t.Errorf("value = %q", got.Objective.Value)
	}
	if got.Objective.Source != SourceUserEdited {
		t.Errorf("source = %q, want user-edited", got.Objective.Source)
	}
	if !got.UserModified {
		t.Error("UserModified not set")
	}
	if got.LastUpdated.IsZero() {
		t.Error("LastUpdated not stamped")
	}
}

func TestStore_UpdateField_InvalidValueStoredAndFlagged(t *testing.T) {
	s := testStore()
	if err := s.UpdateField(FieldProjectType, "spaceship"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	got := s.Snapshot().Type
	if got.Value != "spaceship" {
		t.Errorf("attempted value not preserved, got %q", got.Value)
	}
	if got.Valid {
		t.Error("unknown project type should be flagged invalid")
	}
	if got.Error == "" {
		t.Error("expected an error message on the field")
	}
}

func TestStore_UpdateField_WrongType(t *testing.T) {
	s := testStore()
	err := s.UpdateField(FieldDeliverables, "not a slice")
	if err == nil {
		t.Fatal("expected error for wrong value type")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("expected *ValidationError, got %T", err)
	}
}

func TestStore_MergeAnalysis_ReplacesPresentKeepsOmitted(t *testing.T) {
	s := testStore()
	if err := s.UpdateField(FieldDescription, "a task tracker"); err != nil {
		t.Fatal(err)
	}
	s.MergeAnalysis(&ConversationAnalysis{
		ProjectName: "Task Management App",
		Objective:   "ship an MVP",
		Confidence:  0.85,
	})
	got := s.Snapshot()
	if got.Name.Value != "Task Management App" || got.Name.Source != SourceAIGenerated {
		t.Errorf("name = %+v", got.Name)
	}
	if got.Name.Confidence != 0.85 {
		t.Errorf("name confidence = %v", got.Name.Confidence)
	}
	// Description was omitted from the analysis; the user's value survives.
	if got.Description.Value != "a task tracker" || got.Description.Source != SourceUserEdited {
		t.Errorf("description overwritten: %+v", got.Description)
	}
}

func TestStore_MergeAnalysis_UserEditedBecomesHybrid(t *testing.T) {
	s := testStore()
	if err := s.UpdateField(FieldObjective, "ship fast"); err != nil {
		t.Fatal(err)
	}
	s.MergeAnalysis(&ConversationAnalysis{Objective: "ship an MVP by June", Confidence: 0.7})
	got := s.Snapshot().Objective
	if got.Source != SourceHybrid {
		t.Errorf("source = %q, want hybrid", got.Source)
	}
}

func TestStore_OverallConfidence_AlwaysInRange(t *testing.T) {
	s := testStore()
	merges := []*ConversationAnalysis{
		{ProjectName: "A", Confidence: 1.7},  // out-of-range input gets clamped
		{Objective: "B", Confidence: -0.4},
		{Description: "C", Confidence: 0.5},
		{Deliverables: []string{"docs"}, Confidence: 0.9},
	}
	for i, a := range merges {
		s.MergeAnalysis(a)
		got := s.Snapshot().OverallConfidence
		if got < 0 || got > 1 {
			t.Fatalf("after merge %d: overall confidence %v out of range", i, got)
		}
	}
	if err := s.UpdateField(FieldProjectName, "Final"); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().OverallConfidence; got < 0 || got > 1 {
		t.Fatalf("after edit: overall confidence %v out of range", got)
	}
}

func TestStore_SetUpdatingFlagsAllFields(t *testing.T) {
	s := testStore()
	if err := s.UpdateField(FieldProjectName, "Something"); err != nil {
		t.Fatal(err)
	}
	s.SetUpdating(true)
	got := s.Snapshot()
	if !got.Name.Updating || !got.Objective.Updating || !got.Roadmap.Updating {
		t.Errorf("updating flags not set: %+v", got)
	}
	s.SetUpdating(false)
	got = s.Snapshot()
	if got.Name.Updating || got.Objective.Updating || got.Roadmap.Updating {
		t.Errorf("updating flags not cleared: %+v", got)
	}
	if got.Name.Value != "Something" {
		t.Errorf("flag toggling touched the value: %q", got.Name.Value)
	}
}

func TestStore_MarkFilesProcessed(t *testing.T) {
	s := testStore()
	s.AddUploadedFiles([]UploadedFile{
		{ID: "f1", Name: "a.txt", Processing: true},
		{ID: "f2", Name: "b.txt", Processing: true},
	})
	s.MarkFilesProcessed()
	for _, f := range s.Snapshot().UploadedFiles {
		if f.Processing {
			t.Errorf("file %s still marked processing", f.Name)
		}
	}
}

func TestStore_Reset_TwiceIdentical(t *testing.T) {
	s := testStore()
	if err := s.UpdateField(FieldProjectName, "Something"); err != nil {
		t.Fatal(err)
	}
	s.AddUploadedFiles([]UploadedFile{{ID: "f1", Name: "notes.txt"}})
	s.Reset()
	first := s.Snapshot()
	s.Reset()
	second := s.Snapshot()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resets differ:\nfirst  %+v\nsecond %+v", first, second)
	}
	if !reflect.DeepEqual(first, State{}) {
		t.Errorf("reset state is not pristine: %+v", first)
	}
}

func TestStore_ReorderRoadmapPhases(t *testing.T) {
	s := testStore()
	s.SetRoadmap(&Roadmap{
		AIConfidence: 0.8,
		Phases: []RoadmapPhase{
			{ID: "p1", Title: "Discover", Order: 0},
			{ID: "p2", Title: "Build", Order: 1},
			{ID: "p3", Title: "Launch", Order: 2},
		},
	})
	if err := s.ReorderRoadmapPhases([]string{"p2", "p1", "p3"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got := s.Snapshot().Roadmap.Value
	if got.Phases[0].ID != "p2" || got.Phases[0].Order != 0 {
		t.Errorf("phase 0 = %+v", got.Phases[0])
	}
	if got.Phases[1].ID != "p1" || got.Phases[1].Order != 1 {
		t.Errorf("phase 1 = %+v", got.Phases[1])
	}
	if !got.UserModified {
		t.Error("roadmap not marked user-modified")
	}

	if err := s.ReorderRoadmapPhases([]string{"p1", "p1", "p3"}); err == nil {
		t.Error("expected error for duplicate phase id")
	}
	if err := s.ReorderRoadmapPhases([]string{"p1"}); err == nil {
		t.Error("expected error for incomplete phase list")
	}
}

func TestStore_UpdateRoadmapPhase(t *testing.T) {
	s := testStore()
	s.SetRoadmap(&Roadmap{Phases: []RoadmapPhase{{ID: "p1", Title: "Discover"}}})
	title := "Research"
	days := 5
	if err := s.UpdateRoadmapPhase("p1", PhaseUpdate{Title: &title, EstimatedDays: &days}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := s.Snapshot().Roadmap
	if got.Value.Phases[0].Title != "Research" || got.Value.Phases[0].EstimatedDays != 5 {
		t.Errorf("phase = %+v", got.Value.Phases[0])
	}
	if got.Source != SourceHybrid {
		t.Errorf("roadmap source = %q, want hybrid", got.Source)
	}
	if err := s.UpdateRoadmapPhase("missing", PhaseUpdate{}); err == nil {
		t.Error("expected error for unknown phase id")
	}
}

func TestStore_SubscribeNotify(t *testing.T) {
	s := testStore()
	var seen []State
	unsub := s.Subscribe(func(st State) { seen = append(seen, st) })
	if err := s.UpdateField(FieldProjectName, "Notify Me"); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0].Name.Value != "Notify Me" {
		t.Fatalf("subscriber saw %d notifications: %+v", len(seen), seen)
	}
	unsub()
	s.Reset()
	if len(seen) != 1 {
		t.Errorf("unsubscribed listener still notified, %d total", len(seen))
	}
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s := testStore()
	if err := s.UpdateField(FieldDeliverables, []string{"api", "docs"}); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	snap.KeyDeliverables.Value[0] = "mutated"
	if s.Snapshot().KeyDeliverables.Value[0] != "api" {
		t.Error("snapshot shares backing array with store")
	}
}
