package report

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tonearm/libsync/internal/merge"
)

func newTable(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	return tw
}

// RenderResolution renders a resolution breakdown as a table.
func RenderResolution(b ResolutionBreakdown) string {
	tw := newTable("Resolution")
	tw.AppendHeader(table.Row{"", "Rows", "Share"})
	tw.AppendRow(table.Row{"total", b.Total, ""})
	tw.AppendRow(table.Row{"resolved", b.Resolved, fmt.Sprintf("%.1f%%", b.Coverage())})
	tw.AppendSeparator()

	for _, k := range sortedKeys(b.ByStatus) {
		label := string(k)
		if label == "" {
			label = "(pending)"
		}
		tw.AppendRow(table.Row{"status " + label, b.ByStatus[k], share(b.ByStatus[k], b.Total)})
	}
	tw.AppendSeparator()
	for _, k := range sortedKeys(b.ByOrigin) {
		tw.AppendRow(table.Row{"origin " + string(k), b.ByOrigin[k], share(b.ByOrigin[k], b.Total)})
	}
	return tw.Render()
}

// RenderDownloads renders a download breakdown as a table.
func RenderDownloads(b DownloadBreakdown) string {
	tw := newTable("Downloads")
	tw.AppendHeader(table.Row{"", "Rows", "Share"})
	tw.AppendRow(table.Row{"total", b.Total, ""})
	tw.AppendRow(table.Row{"downloaded", b.Downloaded, share(b.Downloaded, b.Total)})
	tw.AppendRow(table.Row{"tagged", b.Tagged, share(b.Tagged, b.Total)})
	tw.AppendSeparator()
	for _, k := range sortedKeys(b.ByStatus) {
		tw.AppendRow(table.Row{string(k), b.ByStatus[k], share(b.ByStatus[k], b.Total)})
	}
	return tw.Render()
}

// RenderAccounting renders merge accounting as a table.
func RenderAccounting(acc merge.Accounting) string {
	tw := newTable("Merge")
	tw.AppendHeader(table.Row{"", "Rows"})
	tw.AppendRow(table.Row{"total", acc.Total})
	tw.AppendRow(table.Row{"native", acc.Native})
	tw.AppendRow(table.Row{"adopted", acc.Adopted})
	tw.AppendRow(table.Row{"unresolved", acc.Unresolved})
	verdict := "reconciles"
	if !acc.Reconciles() {
		verdict = "DOES NOT RECONCILE"
	}
	tw.AppendFooter(table.Row{verdict, ""})
	return tw.Render()
}

// RenderVerify renders the verification checks as a table.
func RenderVerify(v VerifyResult) string {
	tw := newTable("Verification")
	tw.AppendHeader(table.Row{"Check", "Result", "Detail"})
	for _, c := range v.Checks {
		result := "ok"
		if !c.OK {
			result = "FAIL"
		}
		tw.AppendRow(table.Row{c.Name, result, c.Detail})
	}
	return tw.Render()
}

func share(n, total int) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

func sortedKeys[K ~string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
