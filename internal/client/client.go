// Package client is the Go consumer of the records API. It keeps the
// session cookie across calls and satisfies calendar.Fetcher, so the
// calendar window manager can run directly against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"droptrack/internal/core"
)

// ErrUnauthorized marks a request rejected for a missing or stale session.
var ErrUnauthorized = errors.New("not authenticated")

type Client struct {
	base *url.URL
	http *http.Client
}

func New(baseURL string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		base: base,
		http: &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}, nil
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do sends one request and unwraps the response envelope.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		if env.Message != "" {
			return nil, fmt.Errorf("%s %s: %s", method, path, env.Message)
		}
		return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return env.Data, nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	})
	return err
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/logout", nil)
	return err
}

func (c *Client) CheckAuth(ctx context.Context) (bool, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/check-auth", nil)
	if err != nil {
		return false, err
	}
	var out struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return false, err
	}
	return out.Authenticated, nil
}

// SaveRecord upserts one day. Absent fields take server-side defaults.
func (c *Client) SaveRecord(ctx context.Context, fields map[string]any) (core.DailyRecord, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/records", fields)
	if err != nil {
		return core.DailyRecord{}, err
	}
	var record core.DailyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return core.DailyRecord{}, err
	}
	return record, nil
}

// Record returns one day, or nil when the day has no entry.
func (c *Client) Record(ctx context.Context, d core.Date) (*core.DailyRecord, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/records/"+d.String(), nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var record core.DailyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Records lists every record, newest first.
func (c *Client) Records(ctx context.Context) ([]core.DailyRecord, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/records", nil)
	if err != nil {
		return nil, err
	}
	var records []core.DailyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchMonth implements calendar.Fetcher.
func (c *Client) FetchMonth(ctx context.Context, year, month int) ([]core.DailyRecord, error) {
	path := "/api/stats/" + strconv.Itoa(year) + "/" + strconv.Itoa(month)
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var records []core.DailyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// RecordsByCreation lists records created inside [start, end]. The instants
// are converted to the wire's UTC+8 millisecond convention.
func (c *Client) RecordsByCreation(ctx context.Context, start, end time.Time) ([]core.DailyRecord, error) {
	query := url.Values{}
	query.Set("startTime", strconv.FormatInt(core.WallClockMillis(start), 10))
	query.Set("endTime", strconv.FormatInt(core.WallClockMillis(end), 10))

	data, err := c.do(ctx, http.MethodGet, "/api/records-by-time?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var records []core.DailyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) DeleteRecord(ctx context.Context, d core.Date) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/records/"+d.String(), nil)
	return err
}

// Export downloads the xlsx workbook.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+"/api/export", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
