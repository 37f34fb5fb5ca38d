package insight

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"finvoice/internal/core"
	"finvoice/internal/log"
)

// Config tunes the engine. The emergency fund and debt figures have no
// dedicated collection yet and are supplied by the host.
type Config struct {
	// EmergencyFund is the user's liquid reserve, used for the coverage
	// warning.
	EmergencyFund float64
	// MonthlyDebtPayments feeds the debt-to-income check.
	MonthlyDebtPayments float64
	// InteractionLogPath enables the append-only interaction log when
	// non-empty.
	InteractionLogPath string
}

// Report is the full output of one evaluation.
type Report struct {
	Patterns    []SpendingPattern `json:"patterns"`
	Insights    []Insight         `json:"insights"`
	Health      HealthScore       `json:"health"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// Engine evaluates snapshots. It is safe for concurrent use; the only
// guarded state is the interaction log writer.
type Engine struct {
	cfg    Config
	logger *log.Logger
	now    func() time.Time

	logMu sync.Mutex
}

func NewEngine(cfg Config, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentInsight),
		now:    time.Now,
	}
}

// SetClock overrides the engine clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Evaluate produces the full report for a snapshot. It never fails: empty
// collections degrade to empty patterns, an empty insight list and the
// default score components.
func (e *Engine) Evaluate(snap core.Snapshot) Report {
	patterns := AnalyzeSpendingPatterns(snap.Expenses)
	return Report{
		Patterns:    patterns,
		Insights:    e.generateInsights(snap, patterns),
		Health:      healthScore(snap, e.now()),
		GeneratedAt: e.now(),
	}
}

// Outcome records how the user received a suggestion.
type Outcome string

const (
	OutcomePositive Outcome = "positive"
	OutcomeNegative Outcome = "negative"
)

// Interaction is one logged user reaction, serialized as a JSON line.
type Interaction struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	Outcome   Outcome   `json:"outcome"`
}

// RecordInteraction appends the interaction to the log file. The log is
// advisory: it does not change current rule weighting, and logging failures
// never fail the caller.
func (e *Engine) RecordInteraction(action, category string, outcome Outcome) {
	if e.cfg.InteractionLogPath == "" {
		return
	}
	entry := Interaction{
		Timestamp: e.now().UTC(),
		Action:    action,
		Category:  category,
		Outcome:   outcome,
	}
	if err := e.appendInteraction(entry); err != nil {
		e.logger.Warn("interaction log write failed", log.FieldError, err)
	}
}

func (e *Engine) appendInteraction(entry Interaction) error {
	e.logMu.Lock()
	defer e.logMu.Unlock()

	f, err := os.OpenFile(e.cfg.InteractionLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open interaction log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// Interactions reads the full interaction log back, skipping lines that do
// not parse.
func (e *Engine) Interactions() ([]Interaction, error) {
	if e.cfg.InteractionLogPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(e.cfg.InteractionLogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read interaction log: %w", err)
	}

	var out []Interaction
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var entry Interaction
		if err := dec.Decode(&entry); err != nil {
			break
		}
		out = append(out, entry)
	}
	return out, nil
}
