// Package factledger accumulates success/failure/solution records
// across runs so the Router can tie-break agent choice. The
// Orchestrator records each task's outcome here; the Agent Runtime does
// not read the ledger, and its repeat avoidance is limited to one run.
package factledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/sentry/internal/sanitize"
	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// Config bounds the ledger file's size and location.
type Config struct {
	Path        string
	MaxFileSize int64 // bytes; oldest records are dropped once exceeded
}

// DefaultConfig matches internal/config's FactLedgerConfig defaults.
func DefaultConfig() Config {
	return Config{Path: "./data/facts.json", MaxFileSize: 10 << 20}
}

type ledgerFile struct {
	Entries []orchtypes.FactEntry `json:"entries"`
}

// Ledger is the append-only fact store. Safe for concurrent use.
type Ledger struct {
	mu  sync.Mutex
	cfg Config
	san *sanitize.Sanitizer
}

// New builds a Ledger backed by cfg.Path, creating the file lazily on
// first write. san sanitizes any free-text fields before persistence.
func New(cfg Config, san *sanitize.Sanitizer) *Ledger {
	if cfg.Path == "" {
		cfg = DefaultConfig()
	}
	if san == nil {
		san = sanitize.New(sanitize.DefaultConfig())
	}
	return &Ledger{cfg: cfg, san: san}
}

func (l *Ledger) read() (ledgerFile, error) {
	var f ledgerFile
	b, err := os.ReadFile(l.cfg.Path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return f, err
	}
	if len(b) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return f, err
	}
	return f, nil
}

func (l *Ledger) write(f ledgerFile) error {
	if err := os.MkdirAll(filepath.Dir(l.cfg.Path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := l.cfg.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, l.cfg.Path)
}

// append adds entry, rotating the oldest records out once the
// serialized file would exceed cfg.MaxFileSize.
func (l *Ledger) append(entry orchtypes.FactEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.read()
	if err != nil {
		return err
	}
	f.Entries = append(f.Entries, entry)

	for l.cfg.MaxFileSize > 0 {
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if int64(len(b)) <= l.cfg.MaxFileSize || len(f.Entries) <= 1 {
			break
		}
		f.Entries = f.Entries[1:]
	}

	return l.write(f)
}

// RecordSuccess logs an agent's successful action for future
// success-rate and similarity lookups.
func (l *Ledger) RecordSuccess(agentID, actionType, pattern string) error {
	return l.append(orchtypes.FactEntry{
		ID: uuid.NewString(), Kind: orchtypes.FactSuccess, RecordedAt: time.Now(),
		AgentID: agentID, ActionType: l.san.Sanitize(actionType).Text, Pattern: l.san.Sanitize(pattern).Text, N: 1,
	})
}

// RecordFailure logs a failed action and its error signature, plus any
// suggested fixes a human or the runtime already identified.
func (l *Ledger) RecordFailure(agentID, actionType string, sig orchtypes.ErrorSignature, suggestedFixes []string) error {
	sanitizedFixes := make([]string, len(suggestedFixes))
	for i, f := range suggestedFixes {
		sanitizedFixes[i] = l.san.Sanitize(f).Text
	}
	sig.Prefix = l.san.Sanitize(sig.Prefix).Text
	return l.append(orchtypes.FactEntry{
		ID: uuid.NewString(), Kind: orchtypes.FactFailure, RecordedAt: time.Now(),
		AgentID: agentID, ActionType: l.san.Sanitize(actionType).Text,
		ErrorSignature: sig, SuggestedFixes: sanitizedFixes, N: 1,
	})
}

// RecordSolution logs a successful end-to-end resolution, keyed by a
// fingerprint of the originating task so FindSimilar can surface it
// for a later, similar task.
func (l *Ledger) RecordSolution(taskFingerprint, summary string) error {
	return l.append(orchtypes.FactEntry{
		ID: uuid.NewString(), Kind: orchtypes.FactSolution, RecordedAt: time.Now(),
		TaskFingerprint: Fingerprint(taskFingerprint), Summary: l.san.Sanitize(summary).Text,
	})
}

// Fingerprint reduces free text to a stable bag-of-tokens key: lowercased,
// sorted, deduplicated words. Exactness isn't required — only enough
// overlap for FindSimilar's cheap scan to find related tasks.
func Fingerprint(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	seen := make(map[string]bool, len(fields))
	var tokens []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			tokens = append(tokens, f)
		}
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

func overlapScore(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if b[t] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// FindSimilar returns FactSolution entries whose task fingerprint
// shares tokens with taskFingerprint, best match first. It is a linear
// scan with a bag-of-tokens Jaccard score; exactness is not the goal.
func (l *Ledger) FindSimilar(taskFingerprint string) []orchtypes.FactEntry {
	l.mu.Lock()
	f, err := l.read()
	l.mu.Unlock()
	if err != nil {
		return nil
	}

	query := tokenSet(Fingerprint(taskFingerprint))
	type scored struct {
		entry orchtypes.FactEntry
		score float64
	}
	var candidates []scored
	for _, e := range f.Entries {
		if e.Kind != orchtypes.FactSolution {
			continue
		}
		score := overlapScore(query, tokenSet(e.TaskFingerprint))
		if score > 0 {
			candidates = append(candidates, scored{e, score})
		}
	}
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && candidates[j-1].score < candidates[j].score {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
			j--
		}
	}
	out := make([]orchtypes.FactEntry, len(candidates))
	for i, c := range candidates {
		out[i] = c.entry
	}
	return out
}

// AgentSuccessRate returns the fraction of recorded success/failure
// entries for agentID that were successes, or 0 if none are recorded.
func (l *Ledger) AgentSuccessRate(agentID string) float64 {
	l.mu.Lock()
	f, err := l.read()
	l.mu.Unlock()
	if err != nil {
		return 0
	}

	var success, total int
	for _, e := range f.Entries {
		if e.AgentID != agentID {
			continue
		}
		switch e.Kind {
		case orchtypes.FactSuccess:
			success++
			total++
		case orchtypes.FactFailure:
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(success) / float64(total)
}
