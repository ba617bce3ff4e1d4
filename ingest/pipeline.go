package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/c360studio/briefwizard/brief"
	"github.com/c360studio/briefwizard/config"
)

// File is an incoming attachment before any processing.
type File struct {
	Name string
	Size int64
	Type string
	Data []byte
}

// ValidationResult is the outcome of Validate. Validation never throws;
// a rejected file carries its reason here.
type ValidationResult struct {
	Valid bool
	Error string
}

// ScanResult is the outcome of the threat scan.
type ScanResult struct {
	Safe    bool
	Threats []string
}

// Result is the per-file outcome of an upload batch. Exactly one of
// Uploaded or Err is meaningful.
type Result struct {
	Name     string
	Uploaded *brief.UploadedFile
	Err      error
}

// ProgressFunc receives per-file progress milestones (25, 50, 75, 100).
type ProgressFunc func(name string, percent int)

// deniedPatterns are doublestar globs for executable and script filenames.
var deniedPatterns = []string{
	"*.exe", "*.bat", "*.cmd", "*.com", "*.scr", "*.msi",
	"*.dll", "*.sh", "*.ps1", "*.jar", "*.app", "*.vbs",
}

// invalidNameChars matches path traversal and characters that have no
// business in an uploaded filename.
var invalidNameChars = regexp.MustCompile(`(\.\.)|[/\\<>:"|?*\x00-\x1f]`)

// suspiciousNameVocab flags filenames a scanner would blacklist on sight.
var suspiciousNameVocab = regexp.MustCompile(`(?i)(virus|malware|trojan|payload|exploit|keylog|ransom)`)

// Plausibility bounds used by the scan step.
const (
	minPlausiblePDF  = 128             // a PDF header plus xref cannot fit below this
	maxPlausibleText = 5 * 1024 * 1024 // a "text" file beyond this is suspect
)

// Pipeline runs validate, scan, and extract for upload batches and tracks
// the session-wide attachment count.
type Pipeline struct {
	cfg    config.UploadConfig
	logger *slog.Logger

	mu           sync.Mutex
	sessionCount int

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewPipeline creates a pipeline with the given upload limits.
func NewPipeline(cfg config.UploadConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, logger: logger, now: time.Now}
}

// Validate checks size, MIME type and filename. It never returns an error;
// rejection reasons are carried in the result.
func (p *Pipeline) Validate(f File) ValidationResult {
	if f.Size <= 0 {
		return ValidationResult{Error: "file is empty"}
	}
	if f.Size > p.cfg.MaxFileSize {
		return ValidationResult{Error: fmt.Sprintf("file exceeds the %d byte size limit", p.cfg.MaxFileSize)}
	}
	if !p.typeAllowed(f.Type) {
		return ValidationResult{Error: fmt.Sprintf("file type %q is not allowed", f.Type)}
	}
	lower := strings.ToLower(f.Name)
	for _, pattern := range deniedPatterns {
		if ok, _ := doublestar.Match(pattern, lower); ok {
			return ValidationResult{Error: fmt.Sprintf("filename matches denied pattern %q", pattern)}
		}
	}
	if invalidNameChars.MatchString(f.Name) {
		return ValidationResult{Error: "filename contains path traversal or invalid characters"}
	}
	return ValidationResult{Valid: true}
}

func (p *Pipeline) typeAllowed(mimeType string) bool {
	// Strip parameters like "; charset=utf-8" before matching.
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	for _, allowed := range p.cfg.AllowedTypes {
		if strings.EqualFold(base, allowed) {
			return true
		}
	}
	return false
}

// Scan runs threat heuristics over a file that already passed validation.
func (p *Pipeline) Scan(f File) ScanResult {
	var threats []string
	if suspiciousNameVocab.MatchString(f.Name) {
		threats = append(threats, "suspicious filename")
	}
	if strings.EqualFold(f.Type, "application/pdf") && f.Size < minPlausiblePDF {
		threats = append(threats, "implausibly small for a PDF")
	}
	if (strings.HasPrefix(f.Type, "text/") || strings.EqualFold(f.Type, "application/json")) &&
		f.Size > maxPlausibleText {
		threats = append(threats, "implausibly large for a text file")
	}
	return ScanResult{Safe: len(threats) == 0, Threats: threats}
}

// Upload runs the full pipeline over a batch. The session file cap is
// enforced up front and fails the whole call; after that, each file is
// processed independently so one bad file never aborts its siblings.
// Progress lands at 25 after validation, 50 after the scan, 75 after
// extraction and 100 when the file is accepted. Cancelling ctx stops
// further local processing; remaining files report the context error.
func (p *Pipeline) Upload(ctx context.Context, files []File, progress ProgressFunc) ([]Result, error) {
	if progress == nil {
		progress = func(string, int) {}
	}
	p.mu.Lock()
	existing := p.sessionCount
	p.mu.Unlock()
	if existing+len(files) > p.cfg.MaxFiles {
		return nil, &LimitExceededError{Limit: p.cfg.MaxFiles, Requested: len(files), Existing: existing}
	}

	results := make([]Result, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			for _, rest := range files[i:] {
				results = append(results, Result{Name: rest.Name, Err: err})
			}
			break
		}
		results = append(results, p.processOne(f, progress))
	}

	accepted := 0
	for _, r := range results {
		if r.Err == nil {
			accepted++
		}
	}
	p.mu.Lock()
	p.sessionCount += accepted
	p.mu.Unlock()
	p.logger.Info("upload batch processed",
		slog.Int("files", len(files)),
		slog.Int("accepted", accepted))
	return results, nil
}

func (p *Pipeline) processOne(f File, progress ProgressFunc) Result {
	if v := p.Validate(f); !v.Valid {
		p.logger.Warn("upload rejected by validation",
			slog.String("file", f.Name), slog.String("reason", v.Error))
		return Result{Name: f.Name, Err: &ValidationError{File: f.Name, Reason: v.Error}}
	}
	progress(f.Name, 25)

	if s := p.Scan(f); !s.Safe {
		p.logger.Warn("upload rejected by scan",
			slog.String("file", f.Name), slog.Any("threats", s.Threats))
		return Result{Name: f.Name, Err: &SecurityError{File: f.Name, Threats: s.Threats}}
	}
	progress(f.Name, 50)

	content, err := extractContent(f)
	if err != nil {
		return Result{Name: f.Name, Err: &ValidationError{File: f.Name, Reason: err.Error()}}
	}
	progress(f.Name, 75)

	uploaded := &brief.UploadedFile{
		ID:         uuid.NewString(),
		Name:       f.Name,
		Size:       f.Size,
		Type:       f.Type,
		Content:    content,
		UploadedAt: p.now(),
	}
	progress(f.Name, 100)
	return Result{Name: f.Name, Uploaded: uploaded}
}

// SessionCount returns how many attachments this session has accepted.
func (p *Pipeline) SessionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionCount
}

// ResetSession clears the session attachment count.
func (p *Pipeline) ResetSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionCount = 0
}
