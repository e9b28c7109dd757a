package compare

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// placeholder 用于非 success 行的数值列
const placeholder = "—"

// RenderTable 输出固定列的对比表：Model, Status, Cost, Gen Time, Duration，
// 最后一行为 success 记录的总花费。
func RenderTable(w io.Writer, s *Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Model", "Status", "Cost", "Gen Time", "Duration"})

	for _, r := range s.Results {
		cost, genTime, duration := placeholder, placeholder, placeholder
		if r.Status == StatusSuccess {
			cost = fmt.Sprintf("$%.4f", r.EstimatedCost)
			genTime = fmt.Sprintf("%.1fs", r.GenerationTimeSeconds)
			duration = fmt.Sprintf("%gs", r.DurationSeconds)
		}
		tw.AppendRow(table.Row{r.Model, string(r.Status), cost, genTime, duration})
	}

	tw.AppendFooter(table.Row{"TOTAL", "", fmt.Sprintf("$%.4f", s.TotalEstimatedCost), "", ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	tw.Style().Format.Footer = text.FormatDefault

	tw.Render()
}
