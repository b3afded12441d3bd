package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/pipeline"
)

// StageProgress shows pipeline stages on a progress bar.
type StageProgress struct {
	bar    *progressbar.ProgressBar
	writer io.Writer
}

// NewStageProgress creates a bar sized for every pipeline stage.
func NewStageProgress(writer io.Writer) *StageProgress {
	p := &StageProgress{writer: writer}
	p.bar = progressbar.NewOptions(len(pipeline.Stages),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][bold]Starting...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Stage is a pipeline.ProgressFunc.
func (p *StageProgress) Stage(stage pipeline.Stage, index, _ int) {
	p.bar.Describe(fmt.Sprintf("[cyan][bold]%s...[reset]", stage))
	if err := p.bar.Set(index); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish fills the bar.
func (p *StageProgress) Finish() {
	p.bar.Describe("[cyan][bold]done[reset]")
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
