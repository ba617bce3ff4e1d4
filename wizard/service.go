// Package wizard is the orchestration service of the brief engine: it owns
// the conversation, routes user messages and uploads through the external
// collaborators, merges results into the brief store, and drives the phase
// controller and the active-response trigger analyzer.
package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/briefwizard/analysis"
	"github.com/c360studio/briefwizard/brief"
	"github.com/c360studio/briefwizard/config"
	"github.com/c360studio/briefwizard/ingest"
	"github.com/c360studio/briefwizard/phase"
	"github.com/c360studio/briefwizard/project"
	"github.com/c360studio/briefwizard/trigger"
)

// roadmapConfidenceThreshold gates automatic roadmap generation: below it
// the analysis is too vague to plan phases from.
const roadmapConfidenceThreshold = 0.8

// defaultCommentTimeout bounds the collaborator call behind an unsolicited
// comment; the user never waits on it, so it gets its own deadline.
const defaultCommentTimeout = 30 * time.Second

const defaultGreeting = "Tell me about the project you have in mind. " +
	"I will draft a structured brief as we talk, and you can edit any field directly."

// Greeter optionally produces the session-opening assistant message.
type Greeter interface {
	Greet(ctx context.Context) (string, error)
}

// Collaborators are the external AI and persistence dependencies. Analyzer
// is required; the others degrade gracefully when nil.
type Collaborators struct {
	Analyzer  analysis.Analyzer
	Roadmaps  analysis.RoadmapGenerator
	Commenter analysis.Commenter
	Projects  project.Creator
	Greeter   Greeter
}

// Config bundles the engine tunables.
type Config struct {
	Triggers trigger.Config
	Uploads  config.UploadConfig
}

// State is the composed read-only view the presentation layer consumes.
type State struct {
	Conversation     []ConversationMessage `json:"conversation"`
	Brief            brief.State           `json:"brief"`
	Responses        []AIResponse          `json:"ai_responses"`
	Phase            phase.Phase           `json:"phase"`
	CanCreateProject bool                  `json:"can_create_project"`
	Error            string                `json:"error,omitempty"`
}

// Service coordinates one wizard session. It is a long-lived singleton per
// session, constructed with New and torn down with Dispose; ResetWizard
// restores it to the pristine state without reconstruction.
type Service struct {
	logger *slog.Logger
	collab Collaborators

	briefStore *brief.Store
	pipeline   *ingest.Pipeline
	triggers   *trigger.Analyzer
	phases     *phase.Controller

	mu              sync.Mutex
	messages        []ConversationMessage
	responses       []AIResponse
	convErr         string
	lastAnalysis    *brief.ConversationAnalysis
	lastUserMessage string
	disposed        bool
	subs            map[int]func(State)
	nextSub         int

	// Fencing tokens per operation class: a completion is applied only
	// while its token is still the latest.
	analyzeFence fence
	uploadFence  fence
	sessionFence fence

	commentTimeout time.Duration
	now            func() time.Time
}

// New constructs the session singleton.
func New(collab Collaborators, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:         logger,
		collab:         collab,
		briefStore:     brief.NewStore(),
		pipeline:       ingest.NewPipeline(cfg.Uploads, logger),
		triggers:       trigger.NewAnalyzer(cfg.Triggers, logger),
		phases:         phase.NewController(),
		subs:           make(map[int]func(State)),
		commentTimeout: defaultCommentTimeout,
		now:            time.Now,
	}
}

// Brief exposes the session's brief store for direct observation.
func (s *Service) Brief() *brief.Store { return s.briefStore }

// Subscribe registers fn for composed-state notifications after every
// mutation. The returned function unsubscribes.
func (s *Service) Subscribe(fn func(State)) func() {
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

// State assembles the composed state snapshot.
func (s *Service) State() State {
	snap := s.briefStore.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(snap)
}

func (s *Service) stateLocked(snap brief.State) State {
	return State{
		Conversation:     append([]ConversationMessage(nil), s.messages...),
		Brief:            snap,
		Responses:        append([]AIResponse(nil), s.responses...),
		Phase:            s.phases.Current(),
		CanCreateProject: s.canCreateLocked(snap),
		Error:            s.convErr,
	}
}

func (s *Service) canCreateLocked(snap brief.State) bool {
	if phase.CanCreateProject(s.lastAnalysis) {
		return true
	}
	// A fully hand-edited brief qualifies even without a strong analysis.
	return snap.Name.Value != "" && snap.Name.Valid &&
		snap.Type.Value != "" && snap.Type.Valid &&
		snap.Objective.Value != "" && snap.Objective.Valid &&
		snap.OverallConfidence > 0.6
}

func (s *Service) notify() {
	snap := s.briefStore.Snapshot()
	s.mu.Lock()
	state := s.stateLocked(snap)
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}

func (s *Service) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// StartSession posts the opening assistant message. The call is fenced so
// an aborted or superseded start never lands its greeting late.
func (s *Service) StartSession(ctx context.Context) error {
	if s.isDisposed() {
		return ErrDisposed
	}
	token := s.sessionFence.issue()
	greeting := defaultGreeting
	if s.collab.Greeter != nil {
		g, err := s.collab.Greeter.Greet(ctx)
		if err != nil {
			s.logger.Warn("greeter failed, using default greeting", slog.String("error", err.Error()))
		} else if g != "" {
			greeting = g
		}
	}
	if !s.sessionFence.current(token) {
		s.logger.Debug("stale session start discarded")
		return nil
	}
	s.appendMessage(ConversationMessage{Role: RoleAssistant, Content: greeting, Stage: string(s.phases.Current())})
	s.notify()
	return nil
}

func (s *Service) appendMessage(m ConversationMessage) {
	m.ID = uuid.NewString()
	m.Timestamp = s.now()
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

// SubmitMessage sends a user message through the analysis collaborator and
// merges the result into the brief. Collaborator failures are stored as
// the top-level conversation error and returned tagged as *AnalysisError;
// they never panic through this boundary.
func (s *Service) SubmitMessage(ctx context.Context, content string) error {
	if s.isDisposed() {
		return ErrDisposed
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("wizard: message is empty")
	}
	s.appendMessage(ConversationMessage{Role: RoleUser, Content: content})
	s.mu.Lock()
	s.lastUserMessage = content
	history := s.historyLocked()
	prev := s.lastAnalysis
	s.mu.Unlock()
	s.briefStore.SetUpdating(true)
	s.notify()

	token := s.analyzeFence.issue()
	result, err := s.collab.Analyzer.Analyze(ctx, analysis.AnalyzeRequest{
		Message:       content,
		History:       history[:len(history)-1], // the new message goes in Message
		UploadedFiles: s.briefStore.Snapshot().UploadedFiles,
		Previous:      prev,
	})
	return s.applyAnalysis(ctx, token, "analyze message", result, err)
}

// applyAnalysis lands an analysis completion behind the fence: stale
// results are dropped silently, failures become the retryable top-level
// error, and successes merge into the brief and advance the phase.
func (s *Service) applyAnalysis(ctx context.Context, token uint64, op string, result *brief.ConversationAnalysis, err error) error {
	if !s.analyzeFence.current(token) {
		// A newer operation owns the in-flight flags now.
		s.logger.Debug("stale analysis discarded", slog.String("op", op))
		return nil
	}
	s.briefStore.SetUpdating(false)
	s.briefStore.MarkFilesProcessed()
	if err != nil {
		aerr := &AnalysisError{Op: op, Err: err}
		s.mu.Lock()
		s.convErr = aerr.Error()
		s.mu.Unlock()
		s.logger.Warn("analysis failed", slog.String("op", op), slog.String("error", err.Error()))
		s.notify()
		return aerr
	}

	s.mu.Lock()
	s.convErr = ""
	s.lastAnalysis = result
	s.mu.Unlock()

	s.briefStore.MergeAnalysis(result)
	ph := s.phases.Recompute(result, s.briefStore.Snapshot())
	s.appendMessage(ConversationMessage{
		Role:       RoleAssistant,
		Content:    assistantReply(result),
		Confidence: result.Confidence,
		Stage:      string(ph),
	})
	s.maybeGenerateRoadmap(ctx, result)
	s.notify()
	return nil
}

// assistantReply phrases the conversational acknowledgement for a merged
// analysis, steering toward whatever the analysis still lacks.
func assistantReply(a *brief.ConversationAnalysis) string {
	if len(a.MissingInformation) > 0 {
		return fmt.Sprintf("I've updated the brief. Could you tell me more about %s?", a.MissingInformation[0])
	}
	if a.Confidence > roadmapConfidenceThreshold {
		return "The brief is shaping up well. Review the fields on the right and adjust anything I got wrong."
	}
	return "I've updated the brief with what I understood so far. Keep going, or edit any field directly."
}

// maybeGenerateRoadmap asks the roadmap collaborator for a phased plan once
// the analysis is confident enough and no roadmap exists yet. Failures are
// logged and dropped; a roadmap is an enhancement, not a requirement.
func (s *Service) maybeGenerateRoadmap(ctx context.Context, a *brief.ConversationAnalysis) {
	if s.collab.Roadmaps == nil || a.Confidence <= roadmapConfidenceThreshold {
		return
	}
	if s.briefStore.Snapshot().Roadmap.Value != nil {
		return
	}
	rm, err := s.collab.Roadmaps.Generate(ctx, a, a.ProjectType)
	if err != nil {
		s.logger.Warn("roadmap generation failed", slog.String("error", err.Error()))
		return
	}
	s.briefStore.SetRoadmap(rm)
}

func (s *Service) historyLocked() []analysis.Message {
	history := make([]analysis.Message, 0, len(s.messages))
	for _, m := range s.messages {
		history = append(history, analysis.Message{Role: string(m.Role), Content: m.Content})
	}
	return history
}

// UploadFiles runs a batch through the ingestion pipeline, appends the
// approved files to the brief, and folds the new file context into the
// cached analysis. A batch over the session file cap is rejected whole;
// per-file failures are reported in the results and never abort siblings.
func (s *Service) UploadFiles(ctx context.Context, files []ingest.File, progress ingest.ProgressFunc) ([]ingest.Result, error) {
	if s.isDisposed() {
		return nil, ErrDisposed
	}
	token := s.uploadFence.issue()
	results, err := s.pipeline.Upload(ctx, files, progress)
	if err != nil {
		return nil, err
	}
	if !s.uploadFence.current(token) {
		s.logger.Debug("stale upload batch discarded", slog.Int("files", len(files)))
		return nil, nil
	}

	s.mu.Lock()
	willReanalyze := s.lastAnalysis != nil
	s.mu.Unlock()

	accepted := make([]brief.UploadedFile, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			f := *r.Uploaded
			// The file stays marked processing until the follow-up
			// analysis has digested it.
			f.Processing = willReanalyze
			accepted = append(accepted, f)
		}
	}
	s.briefStore.AddUploadedFiles(accepted)
	s.notify()

	if len(accepted) > 0 {
		s.analyzeFileUpload(ctx)
	}
	return results, nil
}

// analyzeFileUpload re-invokes the analysis collaborator with the enlarged
// file context. Files alone cannot seed a brief: without a cached analysis
// from actual conversation the re-analysis is skipped.
func (s *Service) analyzeFileUpload(ctx context.Context) {
	s.mu.Lock()
	prev := s.lastAnalysis
	history := s.historyLocked()
	s.mu.Unlock()
	if prev == nil {
		s.logger.Debug("skipping file re-analysis: no prior conversation analysis")
		return
	}
	s.briefStore.SetUpdating(true)
	token := s.analyzeFence.issue()
	result, err := s.collab.Analyzer.Analyze(ctx, analysis.AnalyzeRequest{
		History:       history,
		UploadedFiles: s.briefStore.Snapshot().UploadedFiles,
		Previous:      prev,
	})
	// The tagged error is already stored in state; upload callers have
	// their per-file results and do not consume this one.
	_ = s.applyAnalysis(ctx, token, "analyze file upload", result, err)
}

// UpdateBriefField applies a direct user edit and hands the change to the
// trigger analyzer, which may asynchronously produce an unsolicited AI
// comment after the debounce window.
func (s *Service) UpdateBriefField(field brief.FieldName, value any) error {
	if s.isDisposed() {
		return ErrDisposed
	}
	if err := s.briefStore.UpdateField(field, value); err != nil {
		return err
	}
	s.afterDirectEdit(field)
	return nil
}

// UpdateRoadmapPhase edits one roadmap phase in place.
func (s *Service) UpdateRoadmapPhase(phaseID string, update brief.PhaseUpdate) error {
	if s.isDisposed() {
		return ErrDisposed
	}
	if err := s.briefStore.UpdateRoadmapPhase(phaseID, update); err != nil {
		return err
	}
	s.afterDirectEdit(brief.FieldRoadmap)
	return nil
}

// ReorderRoadmapPhases rearranges the roadmap phases.
func (s *Service) ReorderRoadmapPhases(orderedIDs []string) error {
	if s.isDisposed() {
		return ErrDisposed
	}
	if err := s.briefStore.ReorderRoadmapPhases(orderedIDs); err != nil {
		return err
	}
	s.afterDirectEdit(brief.FieldRoadmap)
	return nil
}

func (s *Service) afterDirectEdit(field brief.FieldName) {
	snap := s.briefStore.Snapshot()
	s.mu.Lock()
	last := s.lastAnalysis
	s.mu.Unlock()
	s.phases.Recompute(last, snap)
	if s.collab.Commenter != nil {
		s.triggers.AnalyzeChange(snap, field, s.generateActiveResponse)
	}
	s.notify()
}

// generateActiveResponse runs on the debounce timer goroutine once the
// trigger analyzer decides a change deserves a comment.
func (s *Service) generateActiveResponse(t trigger.Trigger) {
	ctx, cancel := context.WithTimeout(context.Background(), s.commentTimeout)
	defer cancel()
	msg, err := s.collab.Commenter.Comment(ctx, t)
	if err != nil {
		// An unsolicited comment that fails is simply never shown.
		s.logger.Warn("active response generation failed",
			slog.String("type", string(t.Type)), slog.String("error", err.Error()))
		return
	}
	resp := AIResponse{
		ID:        uuid.NewString(),
		Trigger:   t,
		Message:   msg,
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	s.responses = append(s.responses, resp)
	s.mu.Unlock()
	s.logger.Info("active response emitted",
		slog.String("type", string(t.Type)),
		slog.String("priority", string(t.Priority)))
	s.notify()
}

// DismissResponse marks a response dismissed and teaches the trigger
// analyzer to stop producing that trigger type this session.
func (s *Service) DismissResponse(id string) error {
	if s.isDisposed() {
		return ErrDisposed
	}
	s.mu.Lock()
	var dismissed *AIResponse
	for i := range s.responses {
		if s.responses[i].ID == id {
			s.responses[i].Dismissed = true
			dismissed = &s.responses[i]
			break
		}
	}
	s.mu.Unlock()
	if dismissed == nil {
		return fmt.Errorf("wizard: unknown response id %q", id)
	}
	s.triggers.LearnFromDismissal(dismissed.Trigger.Type)
	s.notify()
	return nil
}

// RetryAnalysis re-runs the analysis for the most recent user message
// after a collaborator failure, with a fresh fencing token.
func (s *Service) RetryAnalysis(ctx context.Context) error {
	if s.isDisposed() {
		return ErrDisposed
	}
	s.mu.Lock()
	if s.lastUserMessage == "" {
		s.mu.Unlock()
		return fmt.Errorf("wizard: nothing to retry")
	}
	s.convErr = ""
	history := s.historyLocked()
	prev := s.lastAnalysis
	s.mu.Unlock()
	s.briefStore.SetUpdating(true)

	token := s.analyzeFence.issue()
	result, err := s.collab.Analyzer.Analyze(ctx, analysis.AnalyzeRequest{
		History:       history,
		UploadedFiles: s.briefStore.Snapshot().UploadedFiles,
		Previous:      prev,
	})
	return s.applyAnalysis(ctx, token, "retry analysis", result, err)
}

// CreateProject assembles the final project data from the brief, falling
// back to the cached analysis for fields the brief never populated, and
// persists it. Success completes the wizard; failure drops the phase back
// to refining with the error surfaced in state.
func (s *Service) CreateProject(ctx context.Context) (*project.Project, error) {
	if s.isDisposed() {
		return nil, ErrDisposed
	}
	if s.collab.Projects == nil {
		return nil, fmt.Errorf("wizard: no project persistence configured")
	}
	snap := s.briefStore.Snapshot()
	s.mu.Lock()
	last := s.lastAnalysis
	ready := s.canCreateLocked(snap)
	s.mu.Unlock()
	if !ready {
		return nil, ErrNotReady
	}

	data := assembleProjectData(snap, last)
	p, err := s.collab.Projects.CreateProject(ctx, data)
	if err != nil {
		_ = s.phases.Set(phase.Refining)
		s.mu.Lock()
		s.convErr = fmt.Sprintf("create project: %v", err)
		s.mu.Unlock()
		s.notify()
		return nil, err
	}
	_ = s.phases.Set(phase.Complete)
	s.appendMessage(ConversationMessage{
		Role:    RoleAssistant,
		Content: fmt.Sprintf("Project %q is created. Good luck out there!", p.Name),
		Stage:   string(phase.Complete),
	})
	s.notify()
	return p, nil
}

// assembleProjectData prefers brief fields and falls back to the raw
// analysis for anything the brief never populated.
func assembleProjectData(snap brief.State, last *brief.ConversationAnalysis) project.Data {
	pick := func(briefVal string, set bool, analysisVal string) string {
		if set && briefVal != "" {
			return briefVal
		}
		return analysisVal
	}
	a := last
	if a == nil {
		a = &brief.ConversationAnalysis{}
	}
	data := project.Data{
		Name:        pick(snap.Name.Value, snap.Name.Source != "", a.ProjectName),
		Type:        pick(snap.Type.Value, snap.Type.Source != "", a.ProjectType),
		Description: pick(snap.Description.Value, snap.Description.Source != "", a.Description),
		Objective:   pick(snap.Objective.Value, snap.Objective.Source != "", a.Objective),
		Roadmap:     snap.Roadmap.Value,
	}
	if snap.KeyDeliverables.Source != "" && len(snap.KeyDeliverables.Value) > 0 {
		data.Deliverables = snap.KeyDeliverables.Value
	} else {
		data.Deliverables = a.Deliverables
	}
	for _, f := range snap.UploadedFiles {
		data.Attachments = append(data.Attachments, f.Name)
	}
	return data
}

// ResetWizard restores the pristine session state: empty stores, cleared
// counters and caches, and invalidated fences so any in-flight completion
// from before the reset is discarded on arrival.
func (s *Service) ResetWizard() {
	s.analyzeFence.invalidate()
	s.uploadFence.invalidate()
	s.sessionFence.invalidate()
	s.triggers.ResetSession()
	s.pipeline.ResetSession()
	s.briefStore.Reset()
	s.phases.Reset()
	s.mu.Lock()
	s.messages = nil
	s.responses = nil
	s.convErr = ""
	s.lastAnalysis = nil
	s.lastUserMessage = ""
	s.mu.Unlock()
	s.notify()
}

// Dispose tears the session down. All subsequent operations return
// ErrDisposed; pending debounce work is cancelled and in-flight
// completions are fenced out.
func (s *Service) Dispose() {
	s.triggers.CancelPending()
	s.analyzeFence.invalidate()
	s.uploadFence.invalidate()
	s.sessionFence.invalidate()
	s.mu.Lock()
	s.disposed = true
	s.subs = make(map[int]func(State))
	s.mu.Unlock()
}
