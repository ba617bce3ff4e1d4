package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/c360studio/briefwizard/brief"
	"github.com/c360studio/briefwizard/ingest"
	"github.com/c360studio/briefwizard/wizard"
)

// replMIMETypes maps /upload file extensions to MIME types.
var replMIMETypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".json": "application/json",
	".pdf":  "application/pdf",
}

const replHelp = `Commands:
  /brief                     show the current brief
  /set <field> <value>       edit a brief field (name, type, description, objective)
  /upload <path> [path...]   attach files
  /responses                 list AI comments
  /dismiss <id>              dismiss an AI comment
  /retry                     retry a failed analysis
  /create                    create the project from the brief
  /reset                     start over
  /help                      this message
  /quit                      exit
Anything else is sent to the wizard as conversation.`

// runREPL drives the interactive session until EOF, /quit or a signal.
func runREPL(ctx context.Context, svc *wizard.Service) error {
	// Print unsolicited AI comments and assistant replies as they land.
	var printMu sync.Mutex
	seenResponses := map[string]bool{}
	seenMessages := map[string]bool{}
	unsubscribe := svc.Subscribe(func(st wizard.State) {
		printMu.Lock()
		defer printMu.Unlock()
		for _, m := range st.Conversation {
			if m.Role == wizard.RoleAssistant && !seenMessages[m.ID] {
				seenMessages[m.ID] = true
				fmt.Printf("\nwizard> %s\n", m.Content)
			}
		}
		for _, r := range st.Responses {
			if !r.Dismissed && !seenResponses[r.ID] {
				seenResponses[r.ID] = true
				fmt.Printf("\n[%s] wizard (%s): %s\n  (dismiss with /dismiss %s)\n",
					r.Trigger.Priority, r.Trigger.Type, r.Message, r.ID)
			}
		}
	})
	defer unsubscribe()

	// Flush the greeting posted by StartSession.
	printState(svc.State(), seenMessages, &printMu)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if ctx.Err() != nil {
			fmt.Println()
			return nil
		}
		fmt.Printf("\n[%s] you> ", svc.State().Phase)
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if err := svc.SubmitMessage(ctx, line); err != nil {
				var aerr *wizard.AnalysisError
				if errors.As(err, &aerr) {
					fmt.Printf("analysis failed: %v (try /retry)\n", aerr.Err)
					continue
				}
				return err
			}
			continue
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Println(replHelp)
		case "/brief":
			printBrief(svc.State().Brief)
		case "/set":
			if len(args) < 2 {
				fmt.Println("usage: /set <field> <value>")
				continue
			}
			field := brief.FieldName(args[0])
			value := strings.Join(args[1:], " ")
			if err := svc.UpdateBriefField(field, value); err != nil {
				fmt.Printf("edit rejected: %v\n", err)
			}
		case "/upload":
			if len(args) == 0 {
				fmt.Println("usage: /upload <path> [path...]")
				continue
			}
			uploadPaths(ctx, svc, args)
		case "/responses":
			printResponses(svc.State().Responses)
		case "/dismiss":
			if len(args) != 1 {
				fmt.Println("usage: /dismiss <id>")
				continue
			}
			if err := svc.DismissResponse(args[0]); err != nil {
				fmt.Println(err)
			}
		case "/retry":
			if err := svc.RetryAnalysis(ctx); err != nil {
				fmt.Printf("retry failed: %v\n", err)
			}
		case "/create":
			p, err := svc.CreateProject(ctx)
			if err != nil {
				fmt.Printf("cannot create project: %v\n", err)
				continue
			}
			fmt.Printf("Project %q created (id %s).\n", p.Name, p.ID)
		case "/reset":
			svc.ResetWizard()
			printMu.Lock()
			seenResponses = map[string]bool{}
			seenMessages = map[string]bool{}
			printMu.Unlock()
			if err := svc.StartSession(ctx); err != nil {
				return err
			}
		default:
			fmt.Printf("unknown command %s (try /help)\n", cmd)
		}
	}
}

func printState(st wizard.State, seenMessages map[string]bool, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	for _, m := range st.Conversation {
		if m.Role == wizard.RoleAssistant && !seenMessages[m.ID] {
			seenMessages[m.ID] = true
			fmt.Printf("\nwizard> %s\n", m.Content)
		}
	}
}

func uploadPaths(ctx context.Context, svc *wizard.Service, paths []string) {
	var files []ingest.File
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("read %s: %v\n", path, err)
			return
		}
		mime, ok := replMIMETypes[strings.ToLower(filepath.Ext(path))]
		if !ok {
			mime = "text/plain"
		}
		files = append(files, ingest.File{
			Name: filepath.Base(path),
			Size: int64(len(data)),
			Type: mime,
			Data: data,
		})
	}
	results, err := svc.UploadFiles(ctx, files, func(name string, percent int) {
		if percent == 100 {
			fmt.Printf("  %s processed\n", name)
		}
	})
	if err != nil {
		fmt.Printf("batch rejected: %v\n", err)
		return
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("  %s rejected: %v\n", r.Name, r.Err)
		}
	}
}

func printBrief(b brief.State) {
	printField := func(label, value string, f confidenceSource) {
		if value == "" {
			fmt.Printf("  %-15s (empty)\n", label)
			return
		}
		fmt.Printf("  %-15s %s  [%.0f%% %s]\n", label, value, f.conf*100, f.source)
	}
	printField("Name:", b.Name.Value, cs(b.Name.Confidence, string(b.Name.Source)))
	printField("Type:", b.Type.Value, cs(b.Type.Confidence, string(b.Type.Source)))
	printField("Description:", b.Description.Value, cs(b.Description.Confidence, string(b.Description.Source)))
	printField("Objective:", b.Objective.Value, cs(b.Objective.Confidence, string(b.Objective.Source)))
	if len(b.KeyDeliverables.Value) > 0 {
		fmt.Printf("  %-15s %s\n", "Deliverables:", strings.Join(b.KeyDeliverables.Value, "; "))
	}
	if rm := b.Roadmap.Value; rm != nil {
		fmt.Println("  Roadmap:")
		for _, p := range rm.Phases {
			marker := " "
			if p.Current {
				marker = "*"
			}
			fmt.Printf("   %s %d. %s: %s\n", marker, p.Order+1, p.Title, p.Goal)
		}
	}
	for _, f := range b.UploadedFiles {
		fmt.Printf("  %-15s %s (%d bytes)\n", "Attachment:", f.Name, f.Size)
	}
	fmt.Printf("  %-15s %.0f%%\n", "Confidence:", b.OverallConfidence*100)
}

type confidenceSource struct {
	conf   float64
	source string
}

func cs(conf float64, source string) confidenceSource {
	if source == "" {
		source = "unset"
	}
	return confidenceSource{conf: conf, source: source}
}

func printResponses(responses []wizard.AIResponse) {
	if len(responses) == 0 {
		fmt.Println("no AI comments yet")
		return
	}
	for _, r := range responses {
		status := "active"
		if r.Dismissed {
			status = "dismissed"
		}
		fmt.Printf("  %s [%s/%s] %s (%s)\n", r.ID, r.Trigger.Priority, r.Trigger.Type, r.Message, status)
	}
}
