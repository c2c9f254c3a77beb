// Package turnlog writes and reads the per-run turn log: one JSON record per
// turn in a zstd-compressed JSONL file, closed by a single end record.
package turnlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/civ-diplomacy/internal/engine"
)

// Extension is the file suffix of turn logs.
const Extension = ".jsonl.zst"

// Record kinds.
const (
	KindTurn = "turn"
	KindEnd  = "end"
)

// ErrClosed is returned when writing to a closed log.
var ErrClosed = errors.New("turn log closed")

// CivRecord is one civilization's row in a turn record.
type CivRecord struct {
	ID                 uint64  `json:"id"`
	Status             string  `json:"status"`
	Tech               float64 `json:"tech"`
	Culture            float64 `json:"culture"`
	Military           float64 `json:"military"`
	Friendliness       float64 `json:"friendliness"`
	Population         float64 `json:"population"`
	PopulationPressure float64 `json:"population_pressure"`
	DesperationValue   float64 `json:"desperation_value"`
	WarInitiations     int     `json:"war_initiations"`
	Victories          int     `json:"victories"`
	IsAtWar            bool    `json:"is_at_war"`
	NumTradePartners   int     `json:"num_trade_partners"`
	NumPlanets         int     `json:"num_planets"`

	EnergyStock   float64 `json:"energy_stock"`
	FoodStock     float64 `json:"food_stock"`
	MineralsStock float64 `json:"minerals_stock"`

	EnergyDeficit   float64 `json:"energy_deficit"`
	FoodDeficit     float64 `json:"food_deficit"`
	MineralsDeficit float64 `json:"minerals_deficit"`

	EnergyPressure   float64 `json:"energy_pressure"`
	FoodPressure     float64 `json:"food_pressure"`
	MineralsPressure float64 `json:"minerals_pressure"`
}

// RelationRecord describes a pair that interacted during the turn.
type RelationRecord struct {
	CivA               uint64  `json:"civ_a"`
	CivB               uint64  `json:"civ_b"`
	Type               string  `json:"type"`
	Relation           string  `json:"relation"`
	CulturalSimilarity float64 `json:"cultural_similarity"`
}

// Record is one line of the log.
type Record struct {
	Kind string `json:"kind"`
	Turn int    `json:"turn"`

	CivData       []CivRecord            `json:"civ_data,omitempty"`
	RelationsData []RelationRecord       `json:"relations_data,omitempty"`
	Interactions  []engine.Interaction   `json:"interactions,omitempty"`
	Conquests     []engine.ConquestEvent `json:"conquests,omitempty"`

	EndType  engine.EndType `json:"end_type,omitempty"`
	WinnerID *uint64        `json:"winner_id,omitempty"`
}

// FromSummary converts a turn summary into its log record.
func FromSummary(sum engine.TurnSummary) Record {
	rec := Record{
		Kind:         KindTurn,
		Turn:         sum.Turn,
		CivData:      make([]CivRecord, 0, len(sum.Civs)),
		Interactions: sum.Interactions,
		Conquests:    sum.Conquests,
	}
	for _, c := range sum.Civs {
		rec.CivData = append(rec.CivData, CivRecord{
			ID:                 c.ID,
			Status:             c.Status,
			Tech:               c.Tech,
			Culture:            c.Culture,
			Military:           c.Military,
			Friendliness:       c.Friendliness,
			Population:         c.Population,
			PopulationPressure: c.PopulationPressure,
			DesperationValue:   c.Desperation,
			WarInitiations:     c.WarInitiations,
			Victories:          c.Victories,
			IsAtWar:            c.AtWar,
			NumTradePartners:   c.TradePartners,
			NumPlanets:         c.Planets,
			EnergyStock:        c.Stock.Energy,
			FoodStock:          c.Stock.Food,
			MineralsStock:      c.Stock.Minerals,
			EnergyDeficit:      c.Deficit.Energy,
			FoodDeficit:        c.Deficit.Food,
			MineralsDeficit:    c.Deficit.Minerals,
			EnergyPressure:     c.ResourcePressure.Energy,
			FoodPressure:       c.ResourcePressure.Food,
			MineralsPressure:   c.ResourcePressure.Minerals,
		})
	}
	for _, r := range sum.Relations {
		rec.RelationsData = append(rec.RelationsData, RelationRecord{
			CivA:               r.CivA,
			CivB:               r.CivB,
			Type:               string(r.Type),
			Relation:           r.Relation,
			CulturalSimilarity: r.CulturalSimilarity,
		})
	}
	return rec
}

// Writer appends records to a compressed log file.
type Writer struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewWriter creates (or truncates) the log at path, making parent
// directories as needed.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open turn log: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return &Writer{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Path returns the file being written.
func (w *Writer) Path() string { return w.path }

// WriteTurn appends one turn record.
func (w *Writer) WriteTurn(sum engine.TurnSummary) error {
	return w.write(FromSummary(sum))
}

// WriteEnd appends the closing record.
func (w *Writer) WriteEnd(out engine.Outcome) error {
	return w.write(Record{
		Kind:     KindEnd,
		Turn:     out.Turn,
		EndType:  out.End,
		WinnerID: out.WinnerID,
	})
}

func (w *Writer) write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return ErrClosed
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal turn %d: %w", rec.Turn, err)
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes and closes the log. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}

	flushErr := w.w.Flush()
	encErr := w.enc.Close()
	fileErr := w.f.Close()
	w.w, w.enc, w.f = nil, nil, nil
	return errors.Join(flushErr, encErr, fileErr)
}

// Scan streams every record of a log file to fn, stopping at the first error.
func Scan(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return fmt.Errorf("%s:%d: unmarshal: %w", filepath.Base(path), line, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadFile returns every record of a log file.
func ReadFile(path string) ([]Record, error) {
	var out []Record
	err := Scan(path, func(r Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// Files lists the turn logs in a directory, sorted by name.
func Files(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+Extension))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
