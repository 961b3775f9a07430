package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const cursorExportURL = "https://cursor.com/api/dashboard/export-usage-events-csv"

// CursorSyncClient downloads usage exports from the Cursor dashboard API
// into the local CSV cache that ParseCursorFile reads.
type CursorSyncClient struct {
	sessionToken string
	cacheDir     string
	httpClient   *http.Client
}

// NewCursorSyncClient creates a sync client for one Cursor account.
func NewCursorSyncClient(sessionToken, cacheDir string) *CursorSyncClient {
	return &CursorSyncClient{
		sessionToken: sessionToken,
		cacheDir:     cacheDir,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Sync fetches the account's usage export and replaces the cached CSV.
// The write is atomic so a failed download never clobbers a good cache.
func (c *CursorSyncClient) Sync(ctx context.Context) error {
	if c.sessionToken == "" {
		return fmt.Errorf("cursor session token not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cursorExportURL, nil)
	if err != nil {
		return err
	}
	req.AddCookie(&http.Cookie{Name: "WorkosCursorSessionToken", Value: c.sessionToken})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cursor usage export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("cursor session token rejected (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cursor usage export returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read cursor usage export: %w", err)
	}

	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return err
	}

	target := filepath.Join(c.cacheDir, "usage.csv")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
