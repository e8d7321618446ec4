package sheets

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/api/sheets/v4"
)

// Table is one tab read into memory: the header row plus every data
// row below it, padded to header width.
type Table struct {
	Header []string
	Rows   [][]string
	// HeaderRow is the 1-based sheet row the header was read from, so
	// callers can map a data row index back to its sheet row number.
	HeaderRow int
}

// SheetRow converts a data row index into the 1-based sheet row number.
func (t *Table) SheetRow(dataIdx int) int {
	return t.HeaderRow + 1 + dataIdx
}

// Col returns the index of a header column by case-insensitive,
// whitespace-collapsed name, or -1.
func (t *Table) Col(name string) int {
	want := normHeader(name)
	for i, h := range t.Header {
		if normHeader(h) == want {
			return i
		}
	}
	return -1
}

// Cell returns a trimmed cell from a data row, tolerating ragged rows.
func (t *Table) Cell(dataIdx, col int) string {
	if dataIdx < 0 || dataIdx >= len(t.Rows) || col < 0 {
		return ""
	}
	row := t.Rows[dataIdx]
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func normHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " "))
}

// renderOption picks the value render mode: formatted strings for
// human-maintained tabs, raw values for the raw data tabs so serial
// dates and unrounded amounts come through as numbers.
func renderOption(unformatted bool) string {
	if unformatted {
		return "UNFORMATTED_VALUE"
	}
	return "FORMATTED_VALUE"
}

// ReadTable reads a whole tab. A missing tab or an empty tab yields an
// empty table, not an error.
func (c *Client) ReadTable(ctx context.Context, sheetID, tab string, headerRow int, unformatted bool) (*Table, error) {
	if headerRow < 1 {
		headerRow = 1
	}
	var resp *sheets.ValueRange
	err := c.withBackoff(ctx, "read "+tab, func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(sheetID, quoteTab(tab)).
			ValueRenderOption(renderOption(unformatted)).Context(ctx).Do()
		return err
	})
	if err != nil {
		if isMissingTab(err) {
			c.logger.Warn("tab not found", "sheet", sheetID, "tab", tab)
			return &Table{HeaderRow: headerRow}, nil
		}
		return nil, err
	}

	if len(resp.Values) < headerRow {
		return &Table{HeaderRow: headerRow}, nil
	}

	header := toStrings(resp.Values[headerRow-1])
	t := &Table{Header: header, HeaderRow: headerRow}
	for _, raw := range resp.Values[headerRow:] {
		row := toStrings(raw)
		if allEmpty(row) {
			continue
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isMissingTab(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unable to parse range") || strings.Contains(msg, "not found")
}

func toStrings(raw []any) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func allEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// TemplateRef names a tab in another spreadsheet to clone when the
// target tab is missing, so output tabs keep their formatting.
type TemplateRef struct {
	SpreadsheetID string
	Tab           string
}

// AppendRows appends below the existing data, creating the tab first if
// needed. When a template is given the tab is cloned from it; otherwise
// a blank tab is created and the header row written.
func (c *Client) AppendRows(ctx context.Context, sheetID, tab string, header []string, rows [][]any, template *TemplateRef) error {
	if len(rows) == 0 {
		return nil
	}

	id, err := c.tabID(ctx, sheetID, tab)
	if err != nil {
		return err
	}
	if id < 0 {
		if err := c.createTab(ctx, sheetID, tab, header, template); err != nil {
			return err
		}
	}

	values := make([][]any, len(rows))
	copy(values, rows)
	return c.withBackoff(ctx, "append "+tab, func() error {
		_, err := c.svc.Spreadsheets.Values.Append(sheetID, quoteTab(tab), &sheets.ValueRange{
			Values: values,
		}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
}

func (c *Client) createTab(ctx context.Context, sheetID, tab string, header []string, template *TemplateRef) error {
	if template != nil {
		srcID, err := c.tabID(ctx, template.SpreadsheetID, template.Tab)
		if err == nil && srcID >= 0 {
			var copied *sheets.SheetProperties
			err = c.withBackoff(ctx, "copy template tab", func() error {
				var err error
				copied, err = c.svc.Spreadsheets.Sheets.CopyTo(template.SpreadsheetID, srcID,
					&sheets.CopySheetToAnotherSpreadsheetRequest{DestinationSpreadsheetId: sheetID}).
					Context(ctx).Do()
				return err
			})
			if err == nil {
				return c.withBackoff(ctx, "rename tab", func() error {
					_, err := c.svc.Spreadsheets.BatchUpdate(sheetID, &sheets.BatchUpdateSpreadsheetRequest{
						Requests: []*sheets.Request{{
							UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
								Properties: &sheets.SheetProperties{SheetId: copied.SheetId, Title: tab},
								Fields:     "title",
							},
						}},
					}).Context(ctx).Do()
					return err
				})
			}
			c.logger.Warn("template clone failed, creating blank tab", "tab", tab, "err", err)
		}
	}

	err := c.withBackoff(ctx, "add tab", func() error {
		_, err := c.svc.Spreadsheets.BatchUpdate(sheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: tab},
				},
			}},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create tab %q: %w", tab, err)
	}
	if len(header) == 0 {
		return nil
	}
	headerVals := make([]any, len(header))
	for i, h := range header {
		headerVals[i] = h
	}
	return c.withBackoff(ctx, "write header", func() error {
		_, err := c.svc.Spreadsheets.Values.Update(sheetID, quoteTab(tab)+"!A1", &sheets.ValueRange{
			Values: [][]any{headerVals},
		}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
}

// CellUpdate is one cell write, addressed by 1-based row and column.
type CellUpdate struct {
	Row   int
	Col   int
	Value any
}

// UpdateCells writes scattered cells in one batched call.
func (c *Client) UpdateCells(ctx context.Context, sheetID, tab string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", quoteTab(tab), colLetter(u.Col), u.Row),
			Values: [][]any{{u.Value}},
		})
	}
	return c.withBackoff(ctx, "update cells "+tab, func() error {
		_, err := c.svc.Spreadsheets.Values.BatchUpdate(sheetID, &sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data:             data,
		}).Context(ctx).Do()
		return err
	})
}

// DeleteRows removes sheet rows by 1-based number, highest first so
// earlier deletes do not shift later indices.
func (c *Client) DeleteRows(ctx context.Context, sheetID, tab string, rowNums []int) error {
	if len(rowNums) == 0 {
		return nil
	}
	id, err := c.tabID(ctx, sheetID, tab)
	if err != nil {
		return err
	}
	if id < 0 {
		return nil
	}

	uniq := map[int]bool{}
	var ordered []int
	for _, n := range rowNums {
		if !uniq[n] {
			uniq[n] = true
			ordered = append(ordered, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))

	requests := make([]*sheets.Request, 0, len(ordered))
	for _, n := range ordered {
		requests = append(requests, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: int64(n - 1),
					EndIndex:   int64(n),
				},
			},
		})
	}
	return c.withBackoff(ctx, "delete rows "+tab, func() error {
		_, err := c.svc.Spreadsheets.BatchUpdate(sheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		return err
	})
}
