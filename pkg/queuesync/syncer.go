package queuesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/logger"
)

// Commander issues user commands to the server. The event channel client
// implements it; tests substitute a recorder.
type Commander interface {
	Add(ctx context.Context, p common.AddParams) (*common.AddResult, error)
	Start(ctx context.Context, ids []string) error
	Delete(ctx context.Context, where string, ids []string) error
}

// ErrNoConfig is returned by flows that need configuration before any
// has been received.
var ErrNoConfig = errors.New("no configuration received yet")

// Syncer owns the queue and done stores, their selection models and the
// configuration cache, and reconciles server push events into them.
//
// Events may arrive more than once and unordered across unrelated ids;
// every application path is idempotent. A record id lives in exactly one
// of Queue and Done at any time; the only crossing is the one-directional
// transfer performed on a completion event.
//
// User commands are pessimistic: AddDownload inserts no tentative row
// and deletions remove rows only when the matching event arrives.
type Syncer struct {
	Queue    *Store
	Done     *Store
	QueueSel *SelectionModel
	DoneSel  *SelectionModel
	Config   *ConfigCache

	cmd Commander
	log logger.Logger
}

// NewSyncer builds the store set with selections bound to structural
// changes.
func NewSyncer(cmd Commander, l logger.Logger) *Syncer {
	if l == nil {
		l = logger.NewNopLogger()
	}
	s := &Syncer{
		Queue:  NewStore(),
		Done:   NewStore(),
		Config: NewConfigCache(),
		cmd:    cmd,
		log:    l,
	}
	s.QueueSel = NewSelectionModel(s.Queue)
	s.QueueSel.Bind(s.Queue)
	s.DoneSel = NewSelectionModel(s.Done)
	s.DoneSel.Bind(s.Done)
	return s
}

// HandleEvent applies one push event. Unknown kinds are logged and
// ignored; malformed payloads are returned as errors without touching
// the stores.
func (s *Syncer) HandleEvent(kind common.EventType, raw json.RawMessage) error {
	switch kind {
	case common.EventConfiguration:
		var cfg common.Config
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("bad configuration payload: %w", err)
		}
		s.Config.Set(cfg)

	case common.EventAll:
		var snap common.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("bad snapshot payload: %w", err)
		}
		s.applySnapshot(&snap)

	case common.EventAdded, common.EventUpdated:
		var d common.Download
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("bad %s payload: %w", kind, err)
		}
		if d.ID == "" {
			return fmt.Errorf("%s event without id", kind)
		}
		// A late update for an already-completed id merges into the done
		// record instead of resurrecting a queue row.
		if s.Done.Has(d.ID) {
			s.Done.Upsert(&d)
			return nil
		}
		s.Queue.Upsert(&d)

	case common.EventCompleted:
		var d common.Download
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("bad completed payload: %w", err)
		}
		if d.ID == "" {
			return errors.New("completed event without id")
		}
		if !s.Queue.TransferTo(s.Done, d.ID, &d) {
			// Second delivery: the id already left the queue. Merge the
			// latest fields if the record is in done, otherwise adopt it.
			s.Done.Upsert(&d)
		}

	case common.EventCanceled:
		ids, err := decodeIDs(raw)
		if err != nil {
			return err
		}
		s.Queue.RemoveMany(ids)

	case common.EventCleared:
		ids, err := decodeIDs(raw)
		if err != nil {
			return err
		}
		s.Done.RemoveMany(ids)

	case common.EventDeleted:
		ids, err := decodeIDs(raw)
		if err != nil {
			return err
		}
		s.Queue.RemoveMany(ids)
		s.Done.RemoveMany(ids)

	default:
		s.log.Warning("ignoring unknown event type %q", kind)
	}
	return nil
}

func decodeIDs(raw json.RawMessage) ([]string, error) {
	var p common.IDsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("bad ids payload: %w", err)
	}
	return p.IDs, nil
}

// applySnapshot reconciles both stores against a full resend: records
// absent from the snapshot are removed, present ones are upserted in
// snapshot order, and ids that moved across collections since the last
// event are transferred by removal-then-upsert.
func (s *Syncer) applySnapshot(snap *common.Snapshot) {
	inQueue := make(map[string]struct{}, len(snap.Queue))
	for _, d := range snap.Queue {
		inQueue[d.ID] = struct{}{}
	}
	inDone := make(map[string]struct{}, len(snap.Done))
	for _, d := range snap.Done {
		inDone[d.ID] = struct{}{}
	}

	var stale []string
	for _, id := range s.Queue.Keys() {
		if _, ok := inQueue[id]; !ok {
			stale = append(stale, id)
		}
	}
	s.Queue.RemoveMany(stale)

	stale = stale[:0]
	for _, id := range s.Done.Keys() {
		if _, ok := inDone[id]; !ok {
			stale = append(stale, id)
		}
	}
	s.Done.RemoveMany(stale)

	for _, d := range snap.Queue {
		s.Queue.Upsert(d)
	}
	for _, d := range snap.Done {
		s.Done.Upsert(d)
	}
}

// AddDownload submits a new download. No tentative row is inserted; the
// row appears when the server's added event arrives. A server-reported
// error status is surfaced as an error with the stores untouched.
func (s *Syncer) AddDownload(ctx context.Context, p common.AddParams) error {
	res, err := s.cmd.Add(ctx, p)
	if err != nil {
		return err
	}
	if res.Status == "error" {
		return fmt.Errorf("error adding url: %s", res.Msg)
	}
	return nil
}

// Start requests the given pending downloads to begin.
func (s *Syncer) Start(ctx context.Context, ids []string) error {
	return s.cmd.Start(ctx, ids)
}

// DeleteSelected requests deletion of the current selection of the given
// collection. Rows are removed only when the corresponding event
// arrives, so a rejected deletion cannot desync local state.
func (s *Syncer) DeleteSelected(ctx context.Context, where string) error {
	sel := s.QueueSel
	if where == common.WhereDone {
		sel = s.DoneSel
	}
	ids := sel.Selected()
	if len(ids) == 0 {
		return nil
	}
	return s.cmd.Delete(ctx, where, ids)
}

// ClearCompleted requests deletion of every finished record in done.
func (s *Syncer) ClearCompleted(ctx context.Context) error {
	return s.deleteDoneByStatus(ctx, common.StatusFinished)
}

// ClearFailed requests deletion of every errored record in done.
func (s *Syncer) ClearFailed(ctx context.Context) error {
	return s.deleteDoneByStatus(ctx, common.StatusError)
}

func (s *Syncer) deleteDoneByStatus(ctx context.Context, status common.Status) error {
	var ids []string
	for _, d := range s.Done.Items() {
		if d.Status == status {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return s.cmd.Delete(ctx, common.WhereDone, ids)
}

// RetryDownload re-submits a done record with its original parameters
// and auto-start enabled, then requests its removal from done.
func (s *Syncer) RetryDownload(ctx context.Context, id string) error {
	d, ok := s.Done.Get(id)
	if !ok {
		return fmt.Errorf("no such done download: %s", id)
	}
	if err := s.AddDownload(ctx, common.AddParams{
		URL:              d.URL,
		Quality:          d.Quality,
		Format:           d.Format,
		Folder:           d.Folder,
		CustomNamePrefix: d.CustomNamePrefix,
		AutoStart:        true,
	}); err != nil {
		return err
	}
	return s.cmd.Delete(ctx, common.WhereDone, []string{id})
}

// RetryFailed retries every errored record in done, one add and one
// delete command per record. Finished records are untouched. The first
// command failure stops the walk.
func (s *Syncer) RetryFailed(ctx context.Context) error {
	for _, d := range s.Done.Items() {
		if d.Status != common.StatusError {
			continue
		}
		if err := s.RetryDownload(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}
