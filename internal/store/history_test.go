package store

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.DB.Close() })
	return h
}

func TestMessagesRoundTrip(t *testing.T) {
	h := newTestStore(t)

	if err := h.AddMessage("chat-1", "human", "What is AAPL revenue?"); err != nil {
		t.Fatal(err)
	}
	if err := h.AddMessage("chat-1", "ai", "Apple reported $383B."); err != nil {
		t.Fatal(err)
	}
	if err := h.AddMessage("chat-2", "human", "unrelated chat"); err != nil {
		t.Fatal(err)
	}

	history, err := h.GetHistory("chat-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %+v", history)
	}
	roles := map[llms.ChatMessageType]bool{}
	var contents []string
	for _, m := range history {
		roles[m.Role] = true
		if text, ok := m.Parts[0].(llms.TextContent); ok {
			contents = append(contents, text.Text)
		}
	}
	if !roles[llms.ChatMessageTypeHuman] || !roles[llms.ChatMessageTypeAI] {
		t.Errorf("roles = %v", roles)
	}
	joined := strings.Join(contents, "|")
	if !strings.Contains(joined, "AAPL revenue") || !strings.Contains(joined, "$383B") {
		t.Errorf("contents = %v", contents)
	}
}

func TestSaveRunAndRecentRuns(t *testing.T) {
	h := newTestStore(t)

	trace := map[string]any{"steps": []string{"resolve company", "fetch revenue"}}
	if err := h.SaveRun("chat-1", "AAPL revenue 2023", trace, "Apple reported $383B.", false); err != nil {
		t.Fatal(err)
	}
	if err := h.SaveRun("chat-1", "TSLA filings", map[string]any{}, "partial answer", true); err != nil {
		t.Fatal(err)
	}

	runs, err := h.RecentRuns("chat-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %+v", runs)
	}

	var full, partial *Run
	for i := range runs {
		if runs[i].Partial {
			partial = &runs[i]
		} else {
			full = &runs[i]
		}
	}
	if full == nil || partial == nil {
		t.Fatalf("runs = %+v", runs)
	}
	if full.Query != "AAPL revenue 2023" || full.Answer != "Apple reported $383B." {
		t.Errorf("run = %+v", full)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(full.Trace), &decoded); err != nil {
		t.Fatalf("trace is not JSON: %v", err)
	}
	if _, ok := decoded["steps"]; !ok {
		t.Errorf("trace = %s", full.Trace)
	}
}

func TestWatchLifecycle(t *testing.T) {
	h := newTestStore(t)

	// last_run is seeded a year back, so a fresh watch is due immediately.
	if err := h.AddWatch("chat-1", "new 10-K filings for AAPL", 3600, false); err != nil {
		t.Fatal(err)
	}
	if err := h.AddWatch("chat-1", "one-off TSLA check", 60, true); err != nil {
		t.Fatal(err)
	}

	pending, err := h.GetPendingWatches()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %+v", pending)
	}

	// After a run, a watch with an unelapsed interval is no longer due.
	for _, w := range pending {
		if err := h.UpdateWatchLastRun(w.ID); err != nil {
			t.Fatal(err)
		}
	}
	pending, err = h.GetPendingWatches()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after run = %+v", pending)
	}

	watches, err := h.ListWatches("chat-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(watches) != 2 {
		t.Fatalf("watches = %+v", watches)
	}

	var oneTime Watch
	for _, w := range watches {
		if w.OneTime {
			oneTime = w
		}
	}
	if err := h.DeleteWatch(oneTime.ID); err != nil {
		t.Fatal(err)
	}
	watches, _ = h.ListWatches("chat-1")
	if len(watches) != 1 || watches[0].OneTime {
		t.Errorf("watches after delete = %+v", watches)
	}

	if err := h.ClearWatches("chat-1"); err != nil {
		t.Fatal(err)
	}
	watches, _ = h.ListWatches("chat-1")
	if len(watches) != 0 {
		t.Errorf("watches after clear = %+v", watches)
	}
}
