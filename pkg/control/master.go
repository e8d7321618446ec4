// Package control reads and writes the two coordination spreadsheets:
// the master sheet listing clients and the per-client control board
// that drives the job state machine. Cells are addressed by header
// name so clients can reorder columns without breaking the runners.
package control

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/sheets"
)

// Master sheet column names.
const (
	MasterColClient       = "Client Name"
	MasterColSheetID      = "Spreadsheet ID"
	MasterColRealmID      = "Realm ID"
	MasterColStatus       = "Status"
	MasterColOutputFolder = "Output Folder"
	MasterColRefreshToken = "Refresh Token"
)

// Master is the repository over the master client sheet.
type Master struct {
	logger  *log.Logger
	sheets  *sheets.Client
	sheetID string
	tab     string
}

// NewMaster builds a Master repository.
func NewMaster(logger *log.Logger, sc *sheets.Client, sheetID, tab string) *Master {
	return &Master{logger: logger.With("component", "master"), sheets: sc, sheetID: sheetID, tab: tab}
}

// Clients returns every client row, active or not.
func (m *Master) Clients(ctx context.Context) ([]models.ClientRow, error) {
	t, err := m.sheets.ReadTable(ctx, m.sheetID, m.tab, 1, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read master sheet: %w", err)
	}

	nameCol := t.Col(MasterColClient)
	sheetCol := t.Col(MasterColSheetID)
	realmCol := t.Col(MasterColRealmID)
	statusCol := t.Col(MasterColStatus)
	tokenCol := t.Col(MasterColRefreshToken)
	folderCol := t.Col(MasterColOutputFolder)

	clients := make([]models.ClientRow, 0, len(t.Rows))
	for i := range t.Rows {
		clients = append(clients, models.ClientRow{
			RowNum:         t.SheetRow(i),
			Name:           t.Cell(i, nameCol),
			ControlSheetID: t.Cell(i, sheetCol),
			RealmID:        t.Cell(i, realmCol),
			Status:         t.Cell(i, statusCol),
			RefreshToken:   t.Cell(i, tokenCol),
			OutputFolder:   t.Cell(i, folderCol),
		})
	}
	return clients, nil
}

// ActiveClients returns clients eligible for processing: active status
// plus a control sheet and realm id.
func (m *Master) ActiveClients(ctx context.Context) ([]models.ClientRow, error) {
	all, err := m.Clients(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, c := range all {
		if !c.Active() {
			continue
		}
		if c.ControlSheetID == "" || c.RealmID == "" {
			m.logger.Warn("skipping client with missing ids", "client", c.Name)
			continue
		}
		active = append(active, c)
	}
	return active, nil
}

// SaveRefreshToken persists a rotated refresh token onto the client's
// master row. This write must land before the next QBO call for the
// realm, otherwise a later run starts from a dead token.
func (m *Master) SaveRefreshToken(ctx context.Context, realmID, token string) error {
	t, err := m.sheets.ReadTable(ctx, m.sheetID, m.tab, 1, false)
	if err != nil {
		return fmt.Errorf("failed to read master sheet: %w", err)
	}
	realmCol := t.Col(MasterColRealmID)
	tokenCol := t.Col(MasterColRefreshToken)
	if realmCol < 0 || tokenCol < 0 {
		return fmt.Errorf("master sheet is missing the %q or %q column", MasterColRealmID, MasterColRefreshToken)
	}

	for i := range t.Rows {
		if strings.TrimSpace(t.Cell(i, realmCol)) != realmID {
			continue
		}
		m.logger.Info("persisting rotated refresh token", "realm", realmID)
		return m.sheets.UpdateCells(ctx, m.sheetID, m.tab, []sheets.CellUpdate{
			{Row: t.SheetRow(i), Col: tokenCol + 1, Value: token},
		})
	}
	return fmt.Errorf("realm %s not found on master sheet", realmID)
}

// UpsertClient writes a client row, updating in place when the realm
// already exists. Used by company onboarding.
func (m *Master) UpsertClient(ctx context.Context, client models.ClientRow) error {
	t, err := m.sheets.ReadTable(ctx, m.sheetID, m.tab, 1, false)
	if err != nil {
		return fmt.Errorf("failed to read master sheet: %w", err)
	}
	realmCol := t.Col(MasterColRealmID)

	values := map[string]any{
		MasterColClient:       client.Name,
		MasterColSheetID:      client.ControlSheetID,
		MasterColRealmID:      client.RealmID,
		MasterColStatus:       client.Status,
		MasterColRefreshToken: client.RefreshToken,
		MasterColOutputFolder: client.OutputFolder,
	}

	for i := range t.Rows {
		if t.Cell(i, realmCol) != client.RealmID {
			continue
		}
		var updates []sheets.CellUpdate
		for col, v := range values {
			if idx := t.Col(col); idx >= 0 {
				updates = append(updates, sheets.CellUpdate{Row: t.SheetRow(i), Col: idx + 1, Value: v})
			}
		}
		return m.sheets.UpdateCells(ctx, m.sheetID, m.tab, updates)
	}

	row := make([]any, len(t.Header))
	for i, h := range t.Header {
		if v, ok := values[h]; ok {
			row[i] = v
		} else {
			row[i] = ""
		}
	}
	return m.sheets.AppendRows(ctx, m.sheetID, m.tab, t.Header, [][]any{row}, nil)
}
