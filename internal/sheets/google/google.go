// Package google exports owner snapshots to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	ports "expensetracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Expenses"

// Config selects the spreadsheet and the credentials used to reach it.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var (
	_ ports.SnapshotExporter = (*Client)(nil)
	_ ports.SnapshotReader   = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Default(log.ComponentSheets)
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = defaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		logger:        logger,
	}, nil
}

// newSheetsService falls back to GOOGLE_APPLICATION_CREDENTIALS when cfg names no credentials.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		credentialsJSON = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	logger.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) tableRange() string {
	return fmt.Sprintf("%s!A:F", c.sheetName)
}

func (c *Client) readTable(ctx context.Context) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.tableRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", c.sheetName, err)
	}
	return toStrings(resp.Values), nil
}

// ExportSnapshot rewrites the owner's rows, leaving other owners' rows in place.
// The returned reference is the updated A1 range.
func (c *Client) ExportSnapshot(ctx context.Context, ownerID string, records []core.Expense) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", core.ErrEmptyOwner
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	existing, err := c.readTable(ctx)
	if err != nil {
		return "", err
	}
	rows := mergeRows(existing, ownerID, records)

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.tableRange(), &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", c.sheetName, err)
	}

	vr := &gsheet.ValueRange{Values: toCells(rows)}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.sheetName+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("update sheet %s: %w", c.sheetName, err)
	}

	c.logger.InfoContext(ctx, "Snapshot exported",
		log.FieldOwnerID, ownerID,
		log.FieldRecords, len(records),
		"range", resp.UpdatedRange)
	return resp.UpdatedRange, nil
}

// ReadSnapshot returns the rows currently exported for ownerID.
func (c *Client) ReadSnapshot(ctx context.Context, ownerID string) ([]core.Expense, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	table, err := c.readTable(ctx)
	if err != nil {
		return nil, err
	}
	return parseRows(table, ownerID), nil
}

func toStrings(in [][]interface{}) [][]string {
	out := make([][]string, 0, len(in))
	for _, row := range in {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strings.TrimSpace(fmt.Sprint(v))
		}
		out = append(out, cells)
	}
	return out
}

func toCells(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
