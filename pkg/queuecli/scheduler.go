package queuecli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tubequeue/tubequeue/common"
)

// SchedulerClient talks to the daemon's schedule CRUD endpoints over
// plain HTTP request/acknowledge calls. It satisfies
// queuesync.ScheduleAPI.
type SchedulerClient struct {
	base   string
	secret string
	hc     *http.Client
}

// NewSchedulerClient returns a scheduler client for the daemon at
// baseURL. hc may be nil to use http.DefaultClient.
func NewSchedulerClient(baseURL, secret string, hc *http.Client) *SchedulerClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &SchedulerClient{base: baseURL, secret: secret, hc: hc}
}

// Scheduler returns a scheduler client sharing this client's endpoint
// and secret.
func (c *Client) Scheduler() *SchedulerClient {
	return NewSchedulerClient(c.baseURL, c.secret, nil)
}

func (sc *SchedulerClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, sc.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sc.secret != "" {
		req.Header.Set("Authorization", "Bearer "+sc.secret)
	}
	resp, err := sc.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: server returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// List fetches all schedules.
func (sc *SchedulerClient) List(ctx context.Context) ([]common.Schedule, error) {
	var out []common.Schedule
	if err := sc.do(ctx, http.MethodGet, "/scheduler/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Add creates a schedule; the server assigns the id and next_run.
func (sc *SchedulerClient) Add(ctx context.Context, p common.ScheduleAddParams) (*common.Schedule, error) {
	var out common.Schedule
	if err := sc.do(ctx, http.MethodPost, "/scheduler/add", &p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update changes the cron expression of the given schedules.
func (sc *SchedulerClient) Update(ctx context.Context, ids []int64, cron string) error {
	return sc.do(ctx, http.MethodPost, "/scheduler/update", &common.ScheduleUpdateParams{IDs: ids, Cron: cron}, nil)
}

// Remove deletes the given schedules.
func (sc *SchedulerClient) Remove(ctx context.Context, ids []int64) error {
	return sc.do(ctx, http.MethodPost, "/scheduler/remove", &common.ScheduleRemoveParams{IDs: ids}, nil)
}
