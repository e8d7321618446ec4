// Package sheets wraps the Google Sheets and Drive APIs for the
// pipeline's tables: raw tabs, output tabs and the control boards.
// Every call goes through a bounded exponential backoff because the
// Sheets API rate limit is the most common failure in a long run.
package sheets

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	maxRetries   = 5
	initialDelay = 2 * time.Second
)

var sheetURLRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// ExtractID accepts either a bare spreadsheet id or a full Sheets URL.
func ExtractID(urlOrID string) (string, error) {
	s := strings.TrimSpace(urlOrID)
	if !strings.Contains(s, "docs.google.com") {
		return s, nil
	}
	m := sheetURLRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("cannot parse spreadsheet id from %q", urlOrID)
	}
	return m[1], nil
}

// Client talks to the Sheets and Drive APIs.
type Client struct {
	logger *log.Logger
	svc    *sheets.Service
	drive  *drive.Service
}

// New builds a Client from a credentials file (service account JSON or
// an authorized-user token file).
func New(ctx context.Context, logger *log.Logger, credentialsFile string) (*Client, error) {
	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &Client{logger: logger.With("component", "sheets"), svc: svc, drive: driveSvc}, nil
}

// withBackoff retries fn on rate-limit and transient server errors.
// 429/500/502/503 and message text mentioning quota or rate limit are
// retryable; everything else fails immediately.
func (c *Client) withBackoff(ctx context.Context, op string, fn func() error) error {
	delay := initialDelay
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == maxRetries-1 {
			break
		}
		jitter := time.Duration(rand.Int63n(int64(time.Second)))
		c.logger.Warn("retrying after transient error", "op", op, "attempt", attempt+1, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, maxRetries, err)
}

func retryable(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 429, 500, 502, 503:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}

// tabID resolves a tab name to its numeric sheet id, or -1 when the tab
// does not exist.
func (c *Client) tabID(ctx context.Context, sheetID, tab string) (int64, error) {
	var meta *sheets.Spreadsheet
	err := c.withBackoff(ctx, "get spreadsheet", func() error {
		var err error
		meta, err = c.svc.Spreadsheets.Get(sheetID).Fields("sheets.properties").Context(ctx).Do()
		return err
	})
	if err != nil {
		return -1, err
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return s.Properties.SheetId, nil
		}
	}
	return -1, nil
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// colLetter converts a 1-based column number to its A1 letter form.
func colLetter(col int) string {
	s := ""
	for col > 0 {
		col--
		s = string(rune('A'+col%26)) + s
		col /= 26
	}
	return s
}

// CreateSpreadsheet makes a new spreadsheet and returns its id.
func (c *Client) CreateSpreadsheet(ctx context.Context, title string) (string, error) {
	var created *sheets.Spreadsheet
	err := c.withBackoff(ctx, "create spreadsheet", func() error {
		var err error
		created, err = c.svc.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{Title: title},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create spreadsheet %q: %w", title, err)
	}
	return created.SpreadsheetId, nil
}

// CopyPermissions shares the target with everyone who can see the
// source, except service accounts. Owners become writers; individual
// share failures are logged and skipped.
func (c *Client) CopyPermissions(ctx context.Context, sourceID, targetID string) {
	var perms *drive.PermissionList
	err := c.withBackoff(ctx, "list permissions", func() error {
		var err error
		perms, err = c.drive.Permissions.List(sourceID).
			Fields("permissions(emailAddress,role,type)").Context(ctx).Do()
		return err
	})
	if err != nil {
		c.logger.Warn("failed to list source permissions", "source", sourceID, "err", err)
		return
	}
	for _, p := range perms.Permissions {
		if p.EmailAddress == "" || strings.Contains(p.EmailAddress, "iam.gserviceaccount.com") {
			continue
		}
		role := p.Role
		if role == "owner" {
			role = "writer"
		}
		err := c.withBackoff(ctx, "share", func() error {
			_, err := c.drive.Permissions.Create(targetID, &drive.Permission{
				Type:         "user",
				Role:         role,
				EmailAddress: p.EmailAddress,
			}).SendNotificationEmail(false).Context(ctx).Do()
			return err
		})
		if err != nil {
			c.logger.Warn("failed to copy permission", "email", p.EmailAddress, "err", err)
		}
	}
}
