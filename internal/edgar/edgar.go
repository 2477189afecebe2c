// Package edgar downloads 10-K filings from SEC EDGAR. The SEC requires a
// descriptive User-Agent and asks automated clients to stay well under their
// rate limits, so every outbound request goes through a shared pacing gate.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filingrag/internal/registry"
)

const (
	submissionsURL = "https://data.sec.gov/submissions/CIK%s.json"
	archivesURL    = "https://www.sec.gov/Archives/edgar/data/%s/%s/%s"

	// Minimum spacing between requests to SEC hosts.
	politenessDelay = 10 * time.Second

	maxAttempts = 3
)

// Client is a paced SEC EDGAR client.
type Client struct {
	http      *http.Client
	userAgent string
	log       *slog.Logger

	mu   sync.Mutex
	last time.Time
}

func NewClient(userAgent string, log *slog.Logger) *Client {
	return &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: userAgent,
		log:       log.With("component", "edgar"),
	}
}

// Submissions is the subset of the EDGAR submissions response this client
// uses. Filing attributes come back as parallel arrays.
type Submissions struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent RecentFilings `json:"recent"`
	} `json:"filings"`
}

type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// Filing is one selected 10-K, denormalized from the parallel arrays and
// carrying the local filename it will be saved under.
type Filing struct {
	Symbol          string
	Year            string
	AccessionNumber string
	PrimaryDocument string
	URL             string
	Filename        string
}

// Submissions fetches the filing history for one CIK.
func (c *Client) Submissions(ctx context.Context, cik string) (*Submissions, error) {
	cik = fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))
	body, err := c.get(ctx, fmt.Sprintf(submissionsURL, cik))
	if err != nil {
		return nil, fmt.Errorf("fetch submissions for CIK %s: %w", cik, err)
	}

	var sub Submissions
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("parse submissions for CIK %s: %w", cik, err)
	}
	return &sub, nil
}

// Select10K filters the submission history down to 10-K filings for the
// requested fiscal years. Years are matched against the report date (fiscal
// period end), falling back to the filing date when absent.
func Select10K(sub *Submissions, symbol, cik string, years []string) []Filing {
	wanted := make(map[string]bool, len(years))
	for _, y := range years {
		wanted[y] = true
	}

	recent := sub.Filings.Recent
	var out []Filing
	for i := range recent.AccessionNumber {
		if recent.Form[i] != "10-K" {
			continue
		}
		year := yearOf(recent.ReportDate[i])
		if year == "" {
			year = yearOf(recent.FilingDate[i])
		}
		if len(wanted) > 0 && !wanted[year] {
			continue
		}

		accession := recent.AccessionNumber[i]
		accessionFlat := strings.ReplaceAll(accession, "-", "")
		out = append(out, Filing{
			Symbol:          symbol,
			Year:            year,
			AccessionNumber: accession,
			PrimaryDocument: recent.PrimaryDocument[i],
			URL:             fmt.Sprintf(archivesURL, strings.TrimLeft(cik, "0"), accessionFlat, recent.PrimaryDocument[i]),
			Filename:        fmt.Sprintf("%s_10-K_%s_%s.htm", strings.ToUpper(symbol), year, accessionFlat),
		})
	}
	return out
}

func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// Download fetches one filing document and writes it under outDir using the
// filename convention the metadata tagger parses.
func (c *Client) Download(ctx context.Context, f Filing, outDir string) (string, error) {
	body, err := c.get(ctx, f.URL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", f.Filename, err)
	}

	path := filepath.Join(outDir, f.Filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w", f.Filename, err)
	}
	c.log.Info("filing saved", "symbol", f.Symbol, "year", f.Year, "path", path)
	return path, nil
}

// Scrape downloads the requested fiscal years of 10-Ks for each symbol into
// outDir and returns the saved paths. Failures on individual filings are
// logged and skipped; an unknown symbol or an unreachable submissions feed
// fails that symbol only.
func (c *Client) Scrape(ctx context.Context, reg registry.Registry, symbols, years []string, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var saved []string
	for _, symbol := range symbols {
		company, ok := reg.Get(symbol)
		if !ok {
			c.log.Warn("symbol not in registry, skipping", "symbol", symbol)
			continue
		}

		sub, err := c.Submissions(ctx, company.CIK)
		if err != nil {
			c.log.Error("submissions fetch failed", "symbol", symbol, "error", err)
			continue
		}

		filings := Select10K(sub, symbol, company.CIK, years)
		if len(filings) == 0 {
			c.log.Warn("no matching 10-K filings", "symbol", symbol, "years", years)
			continue
		}

		for _, f := range filings {
			path, err := c.Download(ctx, f, outDir)
			if err != nil {
				c.log.Error("download failed", "symbol", symbol, "year", f.Year, "error", err)
				continue
			}
			saved = append(saved, path)
		}
	}
	return saved, nil
}

// get performs one paced, retried GET against an SEC host.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.Warn("retryable request failure", "url", url, "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}

// pace blocks until the politeness window since the previous request has
// elapsed. The first request goes through immediately.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	wait := politenessDelay - time.Since(c.last)
	if c.last.IsZero() || wait <= 0 {
		c.last = time.Now()
		c.mu.Unlock()
		return nil
	}
	c.last = time.Now().Add(wait)
	c.mu.Unlock()

	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
