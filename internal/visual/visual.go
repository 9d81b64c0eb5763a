package visual

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"arbiter/internal/decision"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorEnabled       = "#34d399"
	colorDisabled      = "#6b7280"
	colorAccuracy      = "#fbbf24"

	chartWidthPx  = 1200
	chartHeightPx = 420
)

// RenderMetrics 生成包含策略使用次数与准确率两张柱状图的 HTML 页面。
// strategies 决定横轴顺序，停用的策略以灰色显示。
func RenderMetrics(m decision.Metrics, strategies []decision.Strategy) ([]byte, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no strategies to chart")
	}
	xAxis := make([]string, len(strategies))
	for i, st := range strategies {
		xAxis[i] = st.ID
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)

	subtitle := fmt.Sprintf("decisions=%d failed=%d success=%.1f%% avg=%s",
		m.TotalDecisions, m.FailedDecisions, m.SuccessRate*100, m.AverageDecisionTime)
	usage := newBar("Strategy usage", subtitle)
	usageData := make([]opts.BarData, len(strategies))
	for i, st := range strategies {
		usageData[i] = opts.BarData{
			Value:     m.StrategyUsage[st.ID],
			ItemStyle: &opts.ItemStyle{Color: statusColor(st.Enabled)},
		}
	}
	usage.SetXAxis(xAxis)
	usage.AddSeries("usage", usageData)

	accuracy := newBar("Strategy accuracy", fmt.Sprintf("active %d of %d", m.ActiveStrategies, m.TotalStrategies))
	accuracy.SetGlobalOptions(charts.WithYAxisOpts(opts.YAxis{
		Min:       0,
		Max:       1,
		AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
	}))
	accData := make([]opts.BarData, len(strategies))
	for i, st := range strategies {
		acc, ok := m.StrategyAccuracy[st.ID]
		if !ok {
			acc = st.Accuracy
		}
		style := &opts.ItemStyle{Color: colorAccuracy}
		if !st.Enabled {
			style.Opacity = opts.Float(0.4)
		}
		accData[i] = opts.BarData{Value: round(acc, 3), ItemStyle: style}
	}
	accuracy.SetXAxis(xAxis)
	accuracy.AddSeries("accuracy", accData)

	page.AddCharts(usage, accuracy)
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newBar(title, subtitle string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         title,
			Subtitle:      subtitle,
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	return bar
}

func statusColor(enabled bool) string {
	if enabled {
		return colorEnabled
	}
	return colorDisabled
}

func round(val float64, decimals int) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
