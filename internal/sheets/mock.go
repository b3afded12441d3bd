package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/sheets/v4"
)

// MockAPI is an in-memory API for tests. Each spreadsheet is a set of tabs
// holding written rows.
type MockAPI struct {
	Spreadsheets map[string]map[string][][]any
	sheetIDs     map[string]map[string]int64
	// UpdateErrs are returned, in order, by the next Update calls.
	UpdateErrs []error
	// BatchErr is returned by every BatchUpdate call.
	BatchErr     error
	UpdateRanges []string
	BatchCalls   int
	nextID       int
	mu           sync.Mutex
}

// NewMockAPI creates an empty mock.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		Spreadsheets: make(map[string]map[string][][]any),
		sheetIDs:     make(map[string]map[string]int64),
	}
}

// AddSpreadsheet registers an existing spreadsheet with the given tabs.
func (m *MockAPI) AddSpreadsheet(id string, tabs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Spreadsheets[id] = make(map[string][][]any)
	m.sheetIDs[id] = make(map[string]int64)
	m.addTabs(id, tabs)
}

// Rows returns a copy of what was written to a tab.
func (m *MockAPI) Rows(spreadsheetID, tab string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.Spreadsheets[spreadsheetID][tab]
	out := make([][]any, len(rows))
	copy(out, rows)
	return out
}

func (m *MockAPI) addTabs(id string, tabs []string) {
	for _, t := range tabs {
		m.nextID++
		m.sheetIDs[id][t] = int64(m.nextID)
		m.Spreadsheets[id][t] = nil
	}
}

// Tabs implements API.
func (m *MockAPI) Tabs(_ context.Context, spreadsheetID string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.sheetIDs[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	out := make(map[string]int64, len(ids))
	for k, v := range ids {
		out[k] = v
	}
	return out, nil
}

// Create implements API.
func (m *MockAPI) Create(_ context.Context, _, _ string, tabs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("mock-%d", len(m.Spreadsheets)+1)
	m.Spreadsheets[id] = make(map[string][][]any)
	m.sheetIDs[id] = make(map[string]int64)
	m.addTabs(id, tabs)
	return id, nil
}

// AddTabs implements API.
func (m *MockAPI) AddTabs(_ context.Context, spreadsheetID string, tabs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheetIDs[spreadsheetID]; !ok {
		return fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	m.addTabs(spreadsheetID, tabs)
	return nil
}

// Clear implements API.
func (m *MockAPI) Clear(_ context.Context, spreadsheetID, rng string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab, _ := parseRange(rng)
	if _, ok := m.Spreadsheets[spreadsheetID][tab]; !ok {
		return fmt.Errorf("tab %s not found", tab)
	}
	m.Spreadsheets[spreadsheetID][tab] = nil
	return nil
}

// Update implements API. Rows land at the range's starting row.
func (m *MockAPI) Update(_ context.Context, spreadsheetID, rng string, values [][]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateRanges = append(m.UpdateRanges, rng)
	if len(m.UpdateErrs) > 0 {
		err := m.UpdateErrs[0]
		m.UpdateErrs = m.UpdateErrs[1:]
		if err != nil {
			return err
		}
	}

	tab, row := parseRange(rng)
	rows, ok := m.Spreadsheets[spreadsheetID][tab]
	if !ok {
		return fmt.Errorf("tab %s not found", tab)
	}
	for len(rows) < row-1+len(values) {
		rows = append(rows, nil)
	}
	copy(rows[row-1:], values)
	m.Spreadsheets[spreadsheetID][tab] = rows
	return nil
}

// BatchUpdate implements API.
func (m *MockAPI) BatchUpdate(_ context.Context, _ string, _ []*sheets.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchCalls++
	return m.BatchErr
}

// parseRange splits "'tab'!A12" into tab and row 12; a bare tab is row 1.
func parseRange(rng string) (string, int) {
	tab, cell, _ := strings.Cut(rng, "!")
	tab = strings.Trim(tab, "'")
	row, err := strconv.Atoi(strings.TrimLeft(cell, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	if err != nil || row < 1 {
		row = 1
	}
	return tab, row
}
