package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"juicestand/internal/core"
)

// LoadCredentials returns service account JSON from the inline value or,
// failing that, the file.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inlineJSON) != "":
		return []byte(inlineJSON), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// SheetsExporter overwrites one sheet of a spreadsheet with the latest
// report.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ ReportExporter = (*SheetsExporter)(nil)

// NewSheetsExporter authenticates with service account credentials. Extra
// client options are appended after the credentials.
func NewSheetsExporter(ctx context.Context, spreadsheetID, sheet string, credentialsJSON []byte, opts ...goption.ClientOption) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	all := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	if credentialsJSON != nil {
		all = append(all, goption.WithCredentialsJSON(credentialsJSON))
	}
	all = append(all, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsExporter{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func (e *SheetsExporter) ExportReport(ctx context.Context, r core.PeriodReport) error {
	rows := ReportRows(r)
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	// Clear first so a shorter report leaves no rows from the previous one.
	all := fmt.Sprintf("%s!A:E", e.sheet)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, all, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", e.sheet, err)
	}
	vr := &gsheet.ValueRange{Values: values}
	_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, fmt.Sprintf("%s!A1", e.sheet), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet %s: %w", e.sheet, err)
	}
	return nil
}
