package server

import (
	"context"

	"github.com/creachadair/jrpc2/handler"

	"github.com/tubequeue/tubequeue/common"
)

// methods builds the JSON-RPC handler map served to every client
// connection.
func (s *Server) methods() handler.Map {
	return handler.Map{
		common.MethodAdd:    handler.New(s.handleAdd),
		common.MethodStart:  handler.New(s.handleStart),
		common.MethodDelete: handler.New(s.handleDelete),
	}
}

// handleAdd accepts a new download. Validation failures are returned in
// the result's status field rather than as RPC errors so the client can
// surface the message without special-casing transport failures.
func (s *Server) handleAdd(ctx context.Context, p common.AddParams) (*common.AddResult, error) {
	return s.state.Add(p), nil
}

func (s *Server) handleStart(ctx context.Context, p common.StartParams) (*common.Ack, error) {
	s.state.Start(p.IDs)
	return &common.Ack{Status: "ok"}, nil
}

func (s *Server) handleDelete(ctx context.Context, p common.DeleteParams) (*common.Ack, error) {
	return s.state.Delete(p.Where, p.IDs), nil
}
