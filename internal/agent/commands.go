package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/secagent/internal/store"
)

// WatchManager is the slice of the history store the chat commands drive.
type WatchManager interface {
	AddWatch(chatID, query string, intervalSeconds int, oneTime bool) error
	ListWatches(chatID string) ([]store.Watch, error)
	ClearWatches(chatID string) error
	RecentRuns(chatID string, limit int) ([]store.Run, error)
}

var watchIntervals = map[string]int{
	"hourly": 3600,
	"daily":  86400,
	"weekly": 604800,
}

const helpText = `I answer questions about public companies using SEC filings.

Commands:
/watch [once] [hourly|daily|weekly] <query> - re-run a query on a schedule
/watches - list your active watches
/unwatch - remove all your watches
/runs - show your recent queries
/help - this message

Anything else is treated as a question.`

// CommandRouter intercepts slash commands before queries reach the agent.
type CommandRouter struct {
	Agent   Brain
	Watches WatchManager
}

func NewCommandRouter(agent Brain, watches WatchManager) *CommandRouter {
	return &CommandRouter{Agent: agent, Watches: watches}
}

func (r *CommandRouter) Think(ctx context.Context, chatID string, input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return r.Agent.Think(ctx, chatID, input)
	}

	fields := strings.Fields(trimmed)
	switch strings.ToLower(fields[0]) {
	case "/watch":
		return r.addWatch(chatID, fields[1:]), nil
	case "/watches":
		return r.listWatches(chatID), nil
	case "/unwatch":
		return r.clearWatches(chatID), nil
	case "/runs":
		return r.recentRuns(chatID), nil
	case "/help", "/start":
		return helpText, nil
	default:
		return fmt.Sprintf("Unknown command %s. Try /help.", fields[0]), nil
	}
}

func (r *CommandRouter) addWatch(chatID string, args []string) string {
	oneTime := false
	interval := watchIntervals["daily"]

	for len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "once":
			oneTime = true
			args = args[1:]
			continue
		}
		if secs, ok := watchIntervals[strings.ToLower(args[0])]; ok {
			interval = secs
			args = args[1:]
			continue
		}
		break
	}

	watchQuery := strings.Join(args, " ")
	if watchQuery == "" {
		return "Usage: /watch [once] [hourly|daily|weekly] <query>"
	}
	if err := r.Watches.AddWatch(chatID, watchQuery, interval, oneTime); err != nil {
		return fmt.Sprintf("Failed to save watch: %v", err)
	}
	return fmt.Sprintf("Watch saved. I'll run %q and message you with the result.", watchQuery)
}

func (r *CommandRouter) listWatches(chatID string) string {
	watches, err := r.Watches.ListWatches(chatID)
	if err != nil {
		return fmt.Sprintf("Failed to list watches: %v", err)
	}
	if len(watches) == 0 {
		return "You have no active watches. Add one with /watch."
	}
	var b strings.Builder
	b.WriteString("Active watches:\n")
	for _, w := range watches {
		fmt.Fprintf(&b, "- [%d] %s (every %s)", w.ID, w.Query, intervalLabel(w.IntervalSeconds))
		if w.OneTime {
			b.WriteString(" [once]")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func (r *CommandRouter) clearWatches(chatID string) string {
	if err := r.Watches.ClearWatches(chatID); err != nil {
		return fmt.Sprintf("Failed to clear watches: %v", err)
	}
	return "All your watches have been removed."
}

func (r *CommandRouter) recentRuns(chatID string) string {
	runs, err := r.Watches.RecentRuns(chatID, 5)
	if err != nil {
		return fmt.Sprintf("Failed to load run history: %v", err)
	}
	if len(runs) == 0 {
		return "No queries on record for this chat yet."
	}
	var b strings.Builder
	b.WriteString("Recent queries:\n")
	for _, run := range runs {
		marker := ""
		if run.Partial {
			marker = " (partial)"
		}
		fmt.Fprintf(&b, "- %s%s\n", run.Query, marker)
	}
	return strings.TrimSpace(b.String())
}

func intervalLabel(seconds int) string {
	switch seconds {
	case 3600:
		return "hour"
	case 86400:
		return "day"
	case 604800:
		return "week"
	}
	return fmt.Sprintf("%ds", seconds)
}
