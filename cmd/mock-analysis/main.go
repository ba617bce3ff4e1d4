// Package main implements a mock analysis server for offline development.
// It serves OpenAI-compatible /chat/completions responses so briefwizard can
// run without a real model: fast, deterministic, and offline-capable.
//
// Usage:
//
//	mock-analysis -fixtures /path/to/fixtures -port 11434
//
// Requests are routed by the system prompt into one of three kinds: "analysis"
// (brief extraction), "roadmap" (phase planning) and "comment" (active
// responses). Each kind answers from fixture files named after it; without a
// fixture directory, built-in canned responses are used.
//
// Sequential fixtures: if numbered files exist (e.g. "analysis.1.json",
// "analysis.2.json"), the Nth call of that kind returns the Nth fixture, and
// the base "analysis.json" repeats once the numbered ones are exhausted. This
// lets a scripted conversation grow the brief turn by turn.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// --- OpenAI-compatible types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// --- Request kinds ---

// Kind names double as fixture base names.
const (
	kindAnalysis = "analysis"
	kindRoadmap  = "roadmap"
	kindComment  = "comment"
)

// kindOf classifies a request by its system prompt. The three collaborator
// prompts have distinct vocabularies; "roadmap" must win over "analysis"
// because both mention phases.
func kindOf(req chatRequest) string {
	var system string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			break
		}
	}
	switch {
	case strings.Contains(system, "phased roadmap"):
		return kindRoadmap
	case strings.Contains(system, "edit their project brief"):
		return kindComment
	default:
		return kindAnalysis
	}
}

// defaultResponses answer when no fixture directory is configured. The
// analysis is confident enough to exercise roadmap generation and project
// creation end to end.
var defaultResponses = map[string][]string{
	kindAnalysis: {`{
  "project_name": "Sample Project",
  "project_type": "web-app",
  "description": "A demonstration project produced by the mock analysis server.",
  "objective": "exercise the wizard end to end without a real model",
  "deliverables": ["working demo"],
  "confidence": 0.85,
  "missing_information": ["target audience"]
}`},
	kindRoadmap: {`{
  "phases": [
    {"title": "Foundation", "goal": "Project setup and core data model", "estimated_days": 5},
    {"title": "Features", "goal": "Implement the main user flows", "estimated_days": 10},
    {"title": "Launch", "goal": "Polish, test and release", "estimated_days": 5}
  ],
  "confidence": 0.8
}`},
	kindComment: {
		"That looks like a meaningful change of direction. Does the rest of the brief still hold?",
	},
}

// --- Server ---

type server struct {
	fixtures map[string][]string // kind -> ordered response sequence
	calls    atomic.Int64

	countersMu sync.Mutex
	counters   map[string]*atomic.Int64 // per-kind call counters
}

func newServer(fixtures map[string][]string) *server {
	return &server{
		fixtures: fixtures,
		counters: make(map[string]*atomic.Int64),
	}
}

func (s *server) counter(kind string) *atomic.Int64 {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()
	if c, ok := s.counters[kind]; ok {
		return c
	}
	c := &atomic.Int64{}
	s.counters[kind] = c
	return c
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	if envDir := os.Getenv("MOCK_ANALYSIS_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}

	fixtures := defaultResponses
	if *fixtureDir != "" {
		loaded, err := loadFixtures(*fixtureDir)
		if err != nil {
			log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
		}
		fixtures = loaded
		for kind, seq := range fixtures {
			log.Printf("  kind: %s (%d fixture(s))", kind, len(seq))
		}
	} else {
		log.Printf("No fixture directory, serving built-in responses")
	}

	s := newServer(fixtures)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/stats", s.handleStats)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock analysis server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	kind := kindOf(req)
	callNum := s.calls.Add(1)

	seq, ok := s.fixtures[kind]
	if !ok {
		log.Printf("[call %d] WARNING: no fixture for kind=%q", callNum, kind)
		http.Error(w, fmt.Sprintf("no fixture for kind %q", kind), http.StatusNotFound)
		return
	}

	// Select the fixture by per-kind call count, repeating the last one.
	callIndex := int(s.counter(kind).Add(1) - 1)
	content := seq[len(seq)-1]
	if callIndex < len(seq) {
		content = seq[callIndex]
	}

	log.Printf("[call %d] kind=%s call_index=%d/%d messages=%d",
		callNum, kind, callIndex+1, len(seq), len(req.Messages))

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleStats returns call counts for scripted-session assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.countersMu.Lock()
	callsByKind := make(map[string]int64, len(s.counters))
	for kind, counter := range s.counters {
		callsByKind[kind] = counter.Load()
	}
	s.countersMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":   s.calls.Load(),
		"calls_by_kind": callsByKind,
	})
}

// numberedFileRe matches files like "analysis.1.json", "comment.2.txt".
var numberedFileRe = regexp.MustCompile(`^(analysis|roadmap|comment)\.(\d+)\.(json|txt)$`)

// baseFileRe matches files like "analysis.json" or "comment.txt".
var baseFileRe = regexp.MustCompile(`^(analysis|roadmap|comment)\.(json|txt)$`)

// loadFixtures reads fixture files from dir and returns per-kind response
// sequences: numbered files in numeric order, then the base file as the
// repeating fallback.
func loadFixtures(dir string) (map[string][]string, error) {
	baseFiles := make(map[string]string)
	numberedFiles := make(map[string]map[int]string)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		var kind string
		var index int
		if m := numberedFileRe.FindStringSubmatch(info.Name()); m != nil {
			kind = m[1]
			index, _ = strconv.Atoi(m[2])
		} else if m := baseFileRe.FindStringSubmatch(info.Name()); m != nil {
			kind = m[1]
			index = -1
		} else {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if strings.HasSuffix(info.Name(), ".json") && !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", path)
		}

		if index < 0 {
			baseFiles[kind] = string(data)
		} else {
			if numberedFiles[kind] == nil {
				numberedFiles[kind] = make(map[int]string)
			}
			numberedFiles[kind][index] = string(data)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]string)
	for kind := range defaultResponses {
		var seq []string
		if numbered, ok := numberedFiles[kind]; ok {
			indices := make([]int, 0, len(numbered))
			for idx := range numbered {
				indices = append(indices, idx)
			}
			sort.Ints(indices)
			for _, idx := range indices {
				seq = append(seq, numbered[idx])
			}
		}
		if base, ok := baseFiles[kind]; ok {
			seq = append(seq, base)
		}
		if len(seq) > 0 {
			fixtures[kind] = seq
		}
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
