package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
	"github.com/MikeSquared-Agency/comanda/internal/processor"
)

// Config holds the import command configuration.
type Config struct {
	Dir        string
	SingleFile string
	StatePath  string
	DryRun     bool
	// Source labels messages read from chat exports.
	Source orderparse.Source
}

type Ingester interface {
	Parse(ctx context.Context, msg orderparse.RawMessage) (*orderparse.Result, error)
	Ingest(ctx context.Context, msg orderparse.RawMessage) (*processor.Outcome, error)
}

// Runner orchestrates an import.
type Runner struct {
	cfg    Config
	ingest Ingester
	logger *slog.Logger
}

func NewRunner(cfg Config, ingest Ingester, logger *slog.Logger) *Runner {
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}
	if cfg.Source == "" {
		cfg.Source = orderparse.SourceChatMobile
	}
	return &Runner{cfg: cfg, ingest: ingest, logger: logger}
}

// Run imports every pending file. Progress is saved after each file, so an
// interrupted run resumes where it stopped.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("files discovered", "files", len(files), "state", state.Path())

	sum := &Summary{DryRun: r.cfg.DryRun, StatePath: state.Path()}
	for _, path := range files {
		select {
		case <-ctx.Done():
			r.logger.Info("import interrupted, saving state")
			if !r.cfg.DryRun {
				_ = state.Save()
			}
			return sum, ctx.Err()
		default:
		}

		hash, err := fileHash(path)
		if err != nil {
			r.logger.Warn("failed to hash file", "path", path, "error", err)
			state.AddError(fmt.Sprintf("hash %s: %v", path, err))
			continue
		}
		if state.IsProcessed(path, hash) {
			sum.FilesSkipped++
			continue
		}

		fsum, err := r.importFile(ctx, path, state)
		if err != nil {
			// Only context errors reach here; the file is retried next run.
			r.logger.Warn("file import stopped", "path", path, "error", err)
			if !r.cfg.DryRun {
				_ = state.Save()
			}
			return sum, err
		}
		sum.add(fsum)

		if !r.cfg.DryRun {
			state.MarkProcessed(path, hash)
			if err := state.Save(); err != nil {
				return sum, fmt.Errorf("save state: %w", err)
			}
		}
	}

	r.logger.Info("import complete",
		"files", len(sum.Files),
		"orders_stored", sum.OrdersStored,
		"orders_empty", sum.OrdersEmpty,
		"duplicates", sum.Duplicates,
		"errors", sum.Errors,
		"dry_run", r.cfg.DryRun,
	)
	return sum, nil
}

func (r *Runner) importFile(ctx context.Context, path string, state *State) (FileSummary, error) {
	fsum := FileSummary{Path: path}

	msgs, err := r.readMessages(path)
	if err != nil {
		r.logger.Warn("failed to read file", "path", path, "error", err)
		state.AddError(fmt.Sprintf("read %s: %v", path, err))
		fsum.Errors++
		return fsum, nil
	}
	r.logger.Info("processing file", "path", path, "messages", len(msgs))

	for _, msg := range msgs {
		if fsum.Date == "" && !msg.ReceivedAt.IsZero() {
			fsum.Date = msg.ReceivedAt.Format("2006-01-02")
		}
		hash := messageHash(msg.Text)
		if state.HasMessage(hash) {
			fsum.Duplicates++
			state.Duplicates++
			continue
		}

		if r.cfg.DryRun {
			res, err := r.ingest.Parse(ctx, msg)
			if err != nil {
				if ctx.Err() != nil {
					return fsum, err
				}
				fsum.Errors++
				continue
			}
			state.MarkMessage(hash)
			if len(res.LineItems) == 0 {
				fsum.OrdersEmpty++
			} else {
				fsum.Orders++
				fsum.Items += len(res.LineItems)
			}
			continue
		}

		out, err := r.ingest.Ingest(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				return fsum, err
			}
			r.logger.Warn("ingest failed", "path", path, "message_id", msg.ID, "error", err)
			state.AddError(fmt.Sprintf("ingest %s: %v", msg.ID, err))
			fsum.Errors++
			continue
		}
		state.MarkMessage(hash)
		if out.OrderID == uuid.Nil {
			fsum.OrdersEmpty++
			state.OrdersEmpty++
			continue
		}
		fsum.Orders++
		fsum.Items += len(out.Result.LineItems)
		state.OrdersStored++
	}
	return fsum, nil
}

func (r *Runner) readMessages(path string) ([]orderparse.RawMessage, error) {
	if strings.HasSuffix(path, ".jsonl") {
		return ParseEventFile(path)
	}
	return ParseExportFile(path, r.cfg.Source)
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		path := expandHome(r.cfg.SingleFile)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("single file not found: %s", path)
		}
		return []string{path}, nil
	}

	dir := expandHome(r.cfg.Dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Warn("error walking import dir", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".txt" || ext == ".jsonl" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
