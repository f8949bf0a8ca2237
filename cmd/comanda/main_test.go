package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/comanda/internal/catalog"
	"github.com/MikeSquared-Agency/comanda/internal/config"
	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
)

const cliOrder = `Cliente: Acme
Detalle del pedido:
COD1 – Widget
- Red: 3
- Blue: 2
COD9 – Gadget
- Green: 1
Comentario final: rush order`

func writePriceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.yaml")
	content := "products:\n  - code: COD1\n    description: Widget\n    unit_price: 1500\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testFlags() parseFlags {
	return parseFlags{dialect: "auto", source: string(orderparse.SourceChatWeb), fallbackPrice: 9900}
}

func TestRunParse_Stdin(t *testing.T) {
	flags := testFlags()
	flags.prices = writePriceFile(t)

	var out bytes.Buffer
	err := runParse(context.Background(), strings.NewReader(cliOrder), &out, "-", config.Config{LogLevel: "error"}, flags)
	if err != nil {
		t.Fatalf("runParse failed: %v", err)
	}

	var res orderparse.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("output is not a result: %v\n%s", err, out.String())
	}
	if res.CustomerName != "Acme" || res.FinalComment != "rush order" {
		t.Errorf("header = %q / %q", res.CustomerName, res.FinalComment)
	}
	if len(res.LineItems) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.LineItems))
	}
	if got := res.LineItems[0]; got.UnitPrice != 1500 || got.PriceIsEstimated {
		t.Errorf("COD1 price = %v estimated=%v", got.UnitPrice, got.PriceIsEstimated)
	}
	if got := res.LineItems[1]; got.UnitPrice != 9900 || !got.PriceIsEstimated {
		t.Errorf("COD9 price = %v estimated=%v", got.UnitPrice, got.PriceIsEstimated)
	}
}

func TestRunParse_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.txt")
	if err := os.WriteFile(path, []byte(cliOrder), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runParse(context.Background(), strings.NewReader(""), &out, path, config.Config{LogLevel: "error"}, testFlags()); err != nil {
		t.Fatalf("runParse failed: %v", err)
	}
	if !strings.Contains(out.String(), `"code": "COD9"`) {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunParse_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		flags func(f *parseFlags)
	}{
		{"bad dialect", "-", func(f *parseFlags) { f.dialect = "klingon" }},
		{"missing file", "/nonexistent/order.txt", func(f *parseFlags) {}},
		{"missing price file", "-", func(f *parseFlags) { f.prices = "/nonexistent/prices.yaml" }},
		{"negative fallback", "-", func(f *parseFlags) { f.fallbackPrice = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := testFlags()
			tt.flags(&flags)
			err := runParse(context.Background(), strings.NewReader(cliOrder), &bytes.Buffer{}, tt.path, config.Config{LogLevel: "error"}, flags)
			var ee *exitErr
			if !errors.As(err, &ee) || ee.code != 3 {
				t.Errorf("expected exit code 3, got %v", err)
			}
		})
	}
}

func TestBuildLookup_PriceFileOnly(t *testing.T) {
	cfg := config.Config{PriceFile: writePriceFile(t)}
	lookup, cleanup, err := buildLookup(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("buildLookup failed: %v", err)
	}
	defer cleanup()

	p, err := lookup.Lookup(context.Background(), "cod1")
	if err != nil || p.UnitPrice != 1500 {
		t.Errorf("lookup = %+v, %v", p, err)
	}
}

func TestBuildLookup_ChainsPrimaryBeforePriceFile(t *testing.T) {
	primary := catalog.NewStatic(catalog.Product{Code: "COD1", UnitPrice: 1200})
	cfg := config.Config{PriceFile: writePriceFile(t)}
	lookup, cleanup, err := buildLookup(context.Background(), cfg, primary)
	if err != nil {
		t.Fatalf("buildLookup failed: %v", err)
	}
	defer cleanup()

	p, err := lookup.Lookup(context.Background(), "COD1")
	if err != nil || p.UnitPrice != 1200 {
		t.Errorf("primary should win, got %+v, %v", p, err)
	}
	if _, err := lookup.Lookup(context.Background(), "NOPE"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildLookup_NoSources(t *testing.T) {
	lookup, cleanup, err := buildLookup(context.Background(), config.Config{}, nil)
	if err != nil {
		t.Fatalf("buildLookup failed: %v", err)
	}
	defer cleanup()
	if lookup != nil {
		t.Errorf("expected nil lookup, got %T", lookup)
	}
}

func TestRunImport_RequiresInput(t *testing.T) {
	err := runImport(config.Config{LogLevel: "error"}, importFlags{})
	var ee *exitErr
	if !errors.As(err, &ee) || ee.code != 3 {
		t.Errorf("expected exit code 3, got %v", err)
	}
}

func TestRunImport_RequiresDatabaseUnlessDryRun(t *testing.T) {
	err := runImport(config.Config{LogLevel: "error"}, importFlags{dir: t.TempDir()})
	var ee *exitErr
	if !errors.As(err, &ee) || ee.code != 3 {
		t.Errorf("expected exit code 3, got %v", err)
	}
}
