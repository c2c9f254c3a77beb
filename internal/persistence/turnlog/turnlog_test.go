package turnlog

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/civ-diplomacy/internal/engine"
	"github.com/talgya/civ-diplomacy/internal/tuning"
)

func writeRun(t *testing.T, path string, seed int64, turns int) *engine.Outcome {
	t.Helper()
	cfg := tuning.Default()
	cfg.Seed = seed
	cfg.MaxTurns = turns

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	sim := engine.New(cfg)
	var out *engine.Outcome
	for out == nil {
		var sum engine.TurnSummary
		sum, out = sim.Step()
		if err := w.WriteTurn(sum); err != nil {
			t.Fatalf("WriteTurn: %v", err)
		}
	}
	if err := w.WriteEnd(*out); err != nil {
		t.Fatalf("WriteEnd: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return out
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "run-1"+Extension)
	out := writeRun(t, path, 11, 25)

	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(recs) != out.Turn+1 {
		t.Fatalf("records = %d, want %d turns plus end", len(recs), out.Turn)
	}
	for i, r := range recs[:len(recs)-1] {
		if r.Kind != KindTurn || r.Turn != i+1 {
			t.Fatalf("record %d = %s turn %d", i, r.Kind, r.Turn)
		}
		if len(r.CivData) != 15 {
			t.Fatalf("turn %d: civ rows = %d, want 15", r.Turn, len(r.CivData))
		}
	}
	end := recs[len(recs)-1]
	if end.Kind != KindEnd || end.EndType != out.End || end.Turn != out.Turn {
		t.Fatalf("end record = %+v, want %+v", end, out)
	}
}

func TestWriter_ClosedRejectsWrites(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "x"+Extension))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := w.WriteEnd(engine.Outcome{End: engine.EndStalemate}); !errors.Is(err, ErrClosed) {
		t.Fatalf("write after close: %v, want ErrClosed", err)
	}
}

func TestFiles_SortedByName(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, filepath.Join(dir, "b"+Extension), 2, 2)
	writeRun(t, filepath.Join(dir, "a"+Extension), 1, 2)

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a"+Extension {
		t.Fatalf("files = %v", files)
	}
}

func TestRecords_MatchSchema(t *testing.T) {
	schema, err := jsonschema.Compile(filepath.Join("..", "..", "..", "schemas", "turn.schema.json"))
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	path := filepath.Join(t.TempDir(), "run"+Extension)
	writeRun(t, path, 5, 30)

	err = Scan(path, func(r Record) error {
		b, err := json.Marshal(r)
		if err != nil {
			return err
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("turn %d (%s): %v", r.Turn, r.Kind, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
}
