package queuecli

import (
	"context"

	"github.com/tubequeue/tubequeue/common"
)

// Typed command wrappers. Together they satisfy queuesync.Commander.

// Add submits a new download.
func (c *Client) Add(ctx context.Context, p common.AddParams) (*common.AddResult, error) {
	var res common.AddResult
	if err := c.call(ctx, common.MethodAdd, &p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Start requests the given pending downloads to begin.
func (c *Client) Start(ctx context.Context, ids []string) error {
	var ack common.Ack
	return c.call(ctx, common.MethodStart, &common.StartParams{IDs: ids}, &ack)
}

// Delete requests removal of ids from the given collection. The matching
// canceled/cleared event performs the local removal.
func (c *Client) Delete(ctx context.Context, where string, ids []string) error {
	var ack common.Ack
	return c.call(ctx, common.MethodDelete, &common.DeleteParams{Where: where, IDs: ids}, &ack)
}
