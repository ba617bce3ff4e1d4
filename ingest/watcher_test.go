package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_BatchesDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("drop one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte(`{"k":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	// Files ignored by extension never join a batch.
	if err := os.WriteFile(filepath.Join(dir, "binary.bin"), []byte{0x00}, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-w.Batches():
		if len(batch) != 2 {
			t.Fatalf("batch size = %d, want 2: %+v", len(batch), batch)
		}
		types := map[string]string{}
		for _, f := range batch {
			types[f.Name] = f.Type
		}
		if types["notes.txt"] != "text/plain" || types["data.json"] != "application/json" {
			t.Errorf("types = %v", types)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
}
