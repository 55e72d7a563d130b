package app

import (
	"slices"

	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

// LogRepairer is used when no interactive repair flow is attached. It
// reports every erroring filter and dismisses the session, so the tabs keep
// their last good catalog and stay listed as erroring.
type LogRepairer struct {
	logger logger.StyledLogger
}

func NewLogRepairer(logger logger.StyledLogger) *LogRepairer {
	return &LogRepairer{logger: logger}
}

func (r *LogRepairer) Present(session ports.RepairSession) {
	tabs := session.Tabs()
	report := session.Report()
	ids := report.TabIDs()
	slices.Sort(ids)
	for _, id := range ids {
		for _, fe := range report[id] {
			r.logger.WarnWithTab("Filter needs repair", tabs[id].Title,
				"tab_id", id, "filter", fe.FilterIndex, "errors", fe.Errors, "nested", len(fe.Nested))
		}
	}
	session.Dismiss()
}

// LogNotifier reports a configuration reset through the logger
type LogNotifier struct {
	logger logger.StyledLogger
}

func NewLogNotifier(logger logger.StyledLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyConfigReset(backupKey string, cause error) {
	n.logger.Warn("Saved tabs were unreadable and have been reset", "backup", backupKey, "cause", cause)
}
