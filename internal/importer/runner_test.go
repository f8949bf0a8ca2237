package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
	"github.com/MikeSquared-Agency/comanda/internal/processor"
)

type fakeIngester struct {
	parsed   []string
	ingested []string
}

func fakeResult(msg orderparse.RawMessage) (*orderparse.Result, error) {
	if strings.Contains(msg.Text, "boom") {
		return nil, errors.New("boom")
	}
	res := &orderparse.Result{CustomerName: "Acme", LineItems: []orderparse.LineItem{}}
	if strings.Contains(strings.ToUpper(msg.Text), "W807") {
		res.LineItems = append(res.LineItems, orderparse.LineItem{SequenceIndex: 1, Code: "W807 B"})
	}
	return res, nil
}

func (f *fakeIngester) Parse(_ context.Context, msg orderparse.RawMessage) (*orderparse.Result, error) {
	f.parsed = append(f.parsed, msg.ID)
	return fakeResult(msg)
}

func (f *fakeIngester) Ingest(_ context.Context, msg orderparse.RawMessage) (*processor.Outcome, error) {
	f.ingested = append(f.ingested, msg.ID)
	res, err := fakeResult(msg)
	if err != nil {
		return nil, err
	}
	out := &processor.Outcome{Result: res}
	if len(res.LineItems) > 0 {
		out.OrderID = uuid.New()
	}
	return out, nil
}

const runnerExport = "[2/3/26, 14:05:12] Acme: W807 B\nRojo 3\n" +
	"[2/3/26, 14:06:00] Acme: hola\n" +
	"[2/3/26, 14:07:00] Acme: w807   b\nROJO 3\n" +
	"[2/3/26, 14:08:00] Acme: boom\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_ImportsAndDedups(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chat.txt", runnerExport)
	writeFile(t, dir, "notes.md", "ignored")
	statePath := filepath.Join(t.TempDir(), "state.json")

	ing := &fakeIngester{}
	r := NewRunner(Config{Dir: dir, StatePath: statePath}, ing, testLogger())
	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(sum.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(sum.Files))
	}
	if sum.OrdersStored != 1 || sum.OrdersEmpty != 1 || sum.Duplicates != 1 || sum.Errors != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(ing.ingested) != 3 {
		t.Errorf("expected 3 ingest calls, got %v", ing.ingested)
	}
	if sum.Files[0].Date != "2026-03-02" {
		t.Errorf("date = %q", sum.Files[0].Date)
	}

	state, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if state.OrdersStored != 1 || state.Duplicates != 1 || len(state.Errors) != 1 {
		t.Errorf("state = %+v", state)
	}
}

func TestRunner_ResumeSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chat.txt", runnerExport)
	statePath := filepath.Join(t.TempDir(), "state.json")

	if _, err := NewRunner(Config{Dir: dir, StatePath: statePath}, &fakeIngester{}, testLogger()).Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	ing := &fakeIngester{}
	sum, err := NewRunner(Config{Dir: dir, StatePath: statePath}, ing, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if sum.FilesSkipped != 1 || len(ing.ingested) != 0 {
		t.Errorf("expected unchanged file skipped, summary %+v, ingested %v", sum, ing.ingested)
	}

	// An appended file is re-read: ingested messages are duplicates, the
	// failed one is retried.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("[3/3/26, 09:00:00] Acme: W807 C\nAzul 1\n")
	f.Close()

	ing = &fakeIngester{}
	sum, err = NewRunner(Config{Dir: dir, StatePath: statePath}, ing, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	if sum.OrdersStored != 1 || sum.Duplicates != 3 || len(ing.ingested) != 2 {
		t.Errorf("expected the failed and new messages ingested, summary %+v, ingested %v", sum, ing.ingested)
	}
}

func TestRunner_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chat.txt", runnerExport)
	writeFile(t, dir, "events.jsonl", `{"message_id":"m1","source":"chat-web","text":"W807 D\nVerde 2","received_at":"2026-03-04T10:00:00Z"}`+"\n")
	statePath := filepath.Join(t.TempDir(), "state.json")

	ing := &fakeIngester{}
	sum, err := NewRunner(Config{Dir: dir, StatePath: statePath, DryRun: true}, ing, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ing.ingested) != 0 {
		t.Errorf("dry run must not ingest, got %v", ing.ingested)
	}
	if len(ing.parsed) != 4 {
		t.Errorf("expected 4 parse calls, got %v", ing.parsed)
	}
	if sum.OrdersStored != 2 || !sum.DryRun {
		t.Errorf("summary = %+v", sum)
	}
	if _, err := os.Stat(statePath); !os.IsNotExist(err) {
		t.Errorf("dry run must not write state, stat err = %v", err)
	}
	if !strings.Contains(sum.Format(), "DRY RUN") {
		t.Error("formatted summary should flag the dry run")
	}
}

func TestRunner_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "events.jsonl", `{"message_id":"m1","source":"chat-web","text":"W807 D","received_at":"2026-03-04T10:00:00Z"}`+"\n")
	writeFile(t, dir, "other.txt", runnerExport)

	ing := &fakeIngester{}
	cfg := Config{SingleFile: path, StatePath: filepath.Join(t.TempDir(), "state.json")}
	if _, err := NewRunner(cfg, ing, testLogger()).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ing.ingested) != 1 || ing.ingested[0] != "m1" {
		t.Errorf("ingested = %v", ing.ingested)
	}

	cfg.SingleFile = filepath.Join(dir, "missing.txt")
	if _, err := NewRunner(cfg, ing, testLogger()).Run(context.Background()); err == nil {
		t.Error("expected error for missing single file")
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chat.txt", runnerExport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ing := &fakeIngester{}
	_, err := NewRunner(Config{Dir: dir, StatePath: filepath.Join(t.TempDir(), "state.json")}, ing, testLogger()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(ing.ingested) != 0 {
		t.Errorf("nothing should be ingested after cancel, got %v", ing.ingested)
	}
}

func TestState_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if s.IsProcessed("a.txt", "h1") {
		t.Error("fresh state should have nothing processed")
	}
	s.MarkProcessed("a.txt", "h1")
	if s.HasMessage("m") {
		t.Error("fresh state should have no messages")
	}
	s.MarkMessage("m")
	s.AddError("bad")
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !loaded.IsProcessed("a.txt", "h1") || loaded.IsProcessed("a.txt", "h2") {
		t.Error("processed file hash not restored")
	}
	if !loaded.HasMessage("m") || len(loaded.Errors) != 1 {
		t.Errorf("state not restored: %+v", loaded)
	}
}

func TestState_Corrupt(t *testing.T) {
	path := writeFile(t, t.TempDir(), "state.json", "{not json")
	if _, err := LoadState(path); err == nil {
		t.Error("expected error for corrupt state")
	}
}
