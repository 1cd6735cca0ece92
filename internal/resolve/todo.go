package resolve

import (
	"strings"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/model"
)

// Todo selects the rows a resolution pass still has to handle: URL empty
// and status not resolved. no_yt rows are skipped by default, since a
// source that confirmed "nothing there" should not be re-queried every
// run; retrySoftTerminal forces a re-scan of them. error and pending rows
// are always retried.
func Todo(l *ledger.Ledger, retrySoftTerminal bool) []int {
	var rows []int
	for i := 0; i < l.Len(); i++ {
		t := l.Track(i)
		if strings.TrimSpace(t.URL) != "" || t.Status == model.ResolutionDone {
			continue
		}
		if t.Status.SoftTerminal() && !retrySoftTerminal {
			continue
		}
		rows = append(rows, i)
	}
	return rows
}
