package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// Writer writes report tables to a spreadsheet, one tab per table.
type Writer struct {
	api    API
	logger *slog.Logger
	config Config
}

// NewWriter creates a writer backed by the Google Sheets API.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tokenSource, err := TokenSource(ctx, config)
	if err != nil {
		return nil, err
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return NewWriterWithAPI(&googleAPI{service: srv}, config, logger), nil
}

// NewWriterWithAPI creates a writer over an existing API client.
func NewWriterWithAPI(api API, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = common.Discard()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &Writer{api: api, config: config, logger: logger}
}

// SpreadsheetID returns the spreadsheet the last write went to.
func (w *Writer) SpreadsheetID() string {
	return w.config.SpreadsheetID
}

// WriteTables implements service.TableSink.
func (w *Writer) WriteTables(ctx context.Context, tables []model.Table) error {
	w.logger.Info("starting sheets export", "tables", len(tables))

	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}

	tabs, err := w.prepareTabs(ctx, names)
	if err != nil {
		return fmt.Errorf("failed to prepare spreadsheet: %w", err)
	}

	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeTable(ctx, t); err != nil {
			return err
		}
	}

	if w.config.EnableFormatting {
		err := w.retry(ctx, func() error {
			return w.api.BatchUpdate(ctx, w.config.SpreadsheetID, formatRequests(tabs, names))
		})
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("sheets export completed", "spreadsheet_id", w.config.SpreadsheetID, "tables", len(tables))
	return nil
}

// prepareTabs makes sure the spreadsheet exists and has a tab per name.
func (w *Writer) prepareTabs(ctx context.Context, names []string) (map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		var id string
		err := w.retry(ctx, func() error {
			var cerr error
			id, cerr = w.api.Create(ctx, w.config.SpreadsheetName, w.config.TimeZone, names)
			return cerr
		})
		if err != nil {
			return nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}
		w.config.SpreadsheetID = id
		w.logger.Info("created new spreadsheet", "id", id)
	}

	tabs, err := w.tabs(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	var missing []string
	for _, n := range names {
		if _, ok := tabs[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return tabs, nil
	}

	if err := w.retry(ctx, func() error { return w.api.AddTabs(ctx, w.config.SpreadsheetID, missing) }); err != nil {
		return nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	w.logger.Debug("added tabs", "tabs", missing)
	return w.tabs(ctx)
}

func (w *Writer) tabs(ctx context.Context) (map[string]int64, error) {
	var tabs map[string]int64
	err := w.retry(ctx, func() error {
		var terr error
		tabs, terr = w.api.Tabs(ctx, w.config.SpreadsheetID)
		return terr
	})
	return tabs, err
}

// writeTable replaces a tab's contents with the header and rows, written
// in batches of BatchSize rows.
func (w *Writer) writeTable(ctx context.Context, t model.Table) error {
	id := w.config.SpreadsheetID
	if err := w.retry(ctx, func() error { return w.api.Clear(ctx, id, fmt.Sprintf("'%s'", t.Name)) }); err != nil {
		return fmt.Errorf("failed to clear %s: %w", t.Name, err)
	}

	values := make([][]any, 0, len(t.Rows)+1)
	values = append(values, cells(t.Header))
	for _, r := range t.Rows {
		values = append(values, cells(r))
	}

	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		rng := fmt.Sprintf("'%s'!A%d", t.Name, i+1)
		batch := values[i:end]
		if err := w.retry(ctx, func() error { return w.api.Update(ctx, id, rng, batch) }); err != nil {
			return fmt.Errorf("failed to write batch starting at row %d of %s: %w", i+1, t.Name, err)
		}
		w.logger.Debug("wrote batch", "table", t.Name, "start_row", i+1, "rows", len(batch))
	}
	return nil
}

func (w *Writer) retry(ctx context.Context, op func() error) error {
	return common.WithRetry(ctx, op, common.RetryOptions{
		MaxAttempts:  max(w.config.RetryAttempts, 1),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     w.config.MaxRetryDelay,
		Multiplier:   2.0,
		Logger:       w.logger,
	})
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

// formatRequests bolds and freezes the header row of every written tab.
func formatRequests(tabs map[string]int64, names []string) []*sheets.Request {
	requests := make([]*sheets.Request, 0, 2*len(names))
	for _, n := range names {
		sheetID, ok := tabs[n]
		if !ok {
			continue
		}
		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}},
					},
					Fields: "userEnteredFormat.textFormat.bold",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        sheetID,
						GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		)
	}
	return requests
}
