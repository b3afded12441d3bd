package cli

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/pipeline"
)

var printer = message.NewPrinter(language.English)

// RenderSummary renders the headline numbers of a run.
func RenderSummary(res *pipeline.Result) string {
	s := res.Summary
	lines := []string{
		field("Run", s.ID),
		field("Entities", printer.Sprintf("%d", s.TotalEntities)),
		field("Total revenue", printer.Sprintf("%.2f", s.TotalRevenue)),
		field("Average CLV", printer.Sprintf("%.2f", s.AvgCLV)),
		field("Median CLV", printer.Sprintf("%.2f", s.MedianCLV)),
		field("Average recency", printer.Sprintf("%.1f days", s.AvgRecency)),
		field("Segments", fmt.Sprintf("%d (%s)", s.Clusters, s.SegmentMethod)),
	}
	lines = appendMetric(lines, "RFM correlation", s.RFMCorr, "%.3f")
	lines = appendMetric(lines, "Activity correlation", s.ActivityCorr, "%.3f")
	lines = appendMetric(lines, "Churn AUC", s.ChurnAUC, "%.3f")
	lines = appendMetric(lines, "Avg churn prob", s.AvgChurnProb, "%.3f")
	lines = appendMetric(lines, "ML CLV R²", s.MLCLVR2, "%.3f")
	lines = appendMetric(lines, "ML CLV MAE", s.MLCLVMAE, "%.2f")

	if res.Uplift != nil {
		lines = append(lines, field("Uplift top vs random", printer.Sprintf("%.3f vs %.3f", res.Uplift.TopSum, res.Uplift.RandomSum)))
	}

	var notes []string
	if s.Degraded {
		notes = append(notes, FormatWarning("Value models did not converge; affected columns fell back to zero"))
	}
	for _, issue := range res.LTV.Issues {
		notes = append(notes, SubtleStyle.Render("  "+issue))
	}
	for _, f := range res.ScorerFailures {
		notes = append(notes, FormatWarning(fmt.Sprintf("Scorer %s skipped: %v", f.Scorer, f.Err)))
	}
	if len(notes) > 0 {
		lines = append(lines, "")
		lines = append(lines, notes...)
	}

	return RenderBox(ChartIcon+" Run summary", strings.Join(lines, "\n"))
}

func field(label, value string) string {
	return BoldStyle.Render(fmt.Sprintf("%-22s", label)) + value
}

func appendMetric(lines []string, label string, v *float64, format string) []string {
	if v == nil {
		return lines
	}
	return append(lines, field(label, printer.Sprintf(format, *v)))
}

// RenderHistory renders stored runs, newest first.
func RenderHistory(runs []model.RunSummary) string {
	if len(runs) == 0 {
		return FormatInfo("No runs recorded yet")
	}

	header := fmt.Sprintf("%-36s  %-16s  %8s  %12s  %12s  %8s  %s",
		"ID", "RAN AT", "ENTITIES", "AVG CLV", "MEDIAN CLV", "CLUSTERS", "FLAGS")
	rows := []string{TableHeaderStyle.Render(header)}
	for _, r := range runs {
		var flags []string
		if r.Degraded {
			flags = append(flags, "degraded")
		}
		if r.ScorerFailures > 0 {
			flags = append(flags, fmt.Sprintf("%d scorer failures", r.ScorerFailures))
		}
		rows = append(rows, TableCellStyle.Render(fmt.Sprintf("%-36s  %-16s  %8d  %12s  %12s  %8d  %s",
			r.ID, r.RanAt.Local().Format("2006-01-02 15:04"), r.TotalEntities,
			printer.Sprintf("%.2f", r.AvgCLV), printer.Sprintf("%.2f", r.MedianCLV),
			r.Clusters, strings.Join(flags, ", "))))
	}
	return strings.Join(rows, "\n")
}

// RenderElbow renders the inertia for each k starting at kMin as a bar chart.
func RenderElbow(kMin int, inertia []float64) string {
	const width = 40
	peak := 0.0
	for _, v := range inertia {
		peak = math.Max(peak, v)
	}

	lines := make([]string, 0, len(inertia))
	for i, v := range inertia {
		n := 0
		if peak > 0 {
			n = int(math.Round(v / peak * width))
		}
		lines = append(lines, fmt.Sprintf("k=%-3d %14s  %s", kMin+i, printer.Sprintf("%.2f", v),
			InfoStyle.Render(strings.Repeat("█", n))))
	}
	return RenderBox("Elbow curve", strings.Join(lines, "\n"))
}
