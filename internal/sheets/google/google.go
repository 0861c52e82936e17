// Package google publishes monthly finance summaries to a Google Sheet with a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"arwaeduc/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var (
	_ sheets.SummaryPublisher = (*Client)(nil)
	_ sheets.SummaryReader    = (*Client)(nil)
)

// Options configures New. CredentialsJSON wins over CredentialsFile; with
// neither, GOOGLE_APPLICATION_CREDENTIALS is read.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(opts.SheetName) == "" {
		opts.SheetName = "Reports"
	}
	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets publisher ready", "sheet", opts.SheetName)
	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, sheetName: opts.SheetName}, nil
}

func credentials(opts Options) ([]byte, error) {
	if s := strings.TrimSpace(opts.CredentialsJSON); s != "" {
		return []byte(s), nil
	}
	path := strings.TrimSpace(opts.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:I", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// PublishSummary writes the header on an empty sheet, then updates the row
// of row.Month or appends a new one.
func (c *Client) PublishSummary(ctx context.Context, row sheets.SummaryRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		if err := c.update(ctx, 1, summaryHeader); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		values = [][]any{summaryHeader}
	}
	target := findMonthRow(values, row.Month)
	if target == 0 {
		target = len(values) + 1
	}
	if err := c.update(ctx, target, rowValues(row)); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("%s!A%d:I%d", c.sheetName, target, target)
	slog.InfoContext(ctx, "Published month summary", "month", row.Month, "ref", ref)
	return ref, nil
}

func (c *Client) update(ctx context.Context, rowNum int, cells []any) error {
	rng := fmt.Sprintf("%s!A%d:I%d", c.sheetName, rowNum, rowNum)
	vr := &gsheet.ValueRange{Values: [][]any{cells}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ListSummaries(ctx context.Context) ([]sheets.SummaryRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return parseSummaries(values)
}
