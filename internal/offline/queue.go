package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type ItemType string

const (
	ItemFuelFill ItemType = "fuel_fill"
	ItemCleaning ItemType = "cleaning"
	ItemIncident ItemType = "incident"
)

// QueueItem is one driver submission captured while disconnected. Items drain
// strictly in creation order; Dead items are poisoned entries skipped after
// too many failed attempts.
type QueueItem struct {
	ID            int64     `json:"id"`
	Type          ItemType  `json:"type"`
	Payload       string    `json:"payload"`
	LocalPhotoURI *string   `json:"local_photo_uri,omitempty"`
	StorageBucket *string   `json:"storage_bucket,omitempty"`
	StoragePath   *string   `json:"storage_path,omitempty"`
	Attempts      int       `json:"attempts"`
	Dead          bool      `json:"dead"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store is the durable device-local queue.
type Store interface {
	Enqueue(ctx context.Context, item QueueItem) error
	// Pending returns live items ordered by creation time ascending.
	Pending(ctx context.Context) ([]QueueItem, error)
	Delete(ctx context.Context, id int64) error
	RecordFailure(ctx context.Context, id int64, dead bool) error
	Count(ctx context.Context) (int64, error)
	DeadItems(ctx context.Context) ([]QueueItem, error)
}

// Uploader pushes a local photo into object storage.
type Uploader interface {
	Upload(ctx context.Context, localURI, bucket, path string) error
}

// RecordSink inserts a replayed submission into the record store.
type RecordSink interface {
	InsertRecord(ctx context.Context, itemType ItemType, payload json.RawMessage) error
}

// LocalFiles removes device files once their content is safely persisted.
type LocalFiles interface {
	Remove(uri string) error
}

// Queue replays offline submissions in FIFO order on reconnect. One drain
// runs at a time; the first failure stops the drain so ordering is preserved,
// except that items failing MaxAttempts times are marked dead and skipped.
type Queue struct {
	store       Store
	uploader    Uploader
	sink        RecordSink
	files       LocalFiles
	log         zerolog.Logger
	maxAttempts int
	onSynced    func(count int)
}

const DefaultMaxAttempts = 5

func NewQueue(store Store, uploader Uploader, sink RecordSink, files LocalFiles, log zerolog.Logger) *Queue {
	return &Queue{
		store:       store,
		uploader:    uploader,
		sink:        sink,
		files:       files,
		log:         log,
		maxAttempts: DefaultMaxAttempts,
	}
}

// SetMaxAttempts overrides the dead-letter cutoff.
func (q *Queue) SetMaxAttempts(n int) {
	if n > 0 {
		q.maxAttempts = n
	}
}

// OnSynced registers a callback invoked after a drain that replayed at least
// one item (the mobile client shows a local notification from it).
func (q *Queue) OnSynced(fn func(count int)) {
	q.onSynced = fn
}

// Add captures a submission for later replay.
func (q *Queue) Add(ctx context.Context, itemType ItemType, payload map[string]interface{}, localPhotoURI, storageBucket, storagePath string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	item := QueueItem{
		Type:      itemType,
		Payload:   string(raw),
		CreatedAt: time.Now(),
	}
	if localPhotoURI != "" {
		item.LocalPhotoURI = &localPhotoURI
	}
	if storageBucket != "" {
		item.StorageBucket = &storageBucket
	}
	if storagePath != "" {
		item.StoragePath = &storagePath
	}
	return q.store.Enqueue(ctx, item)
}

// Drain replays pending items oldest first and stops at the first failure.
// Returns the number of items replayed.
func (q *Queue) Drain(ctx context.Context) (int, error) {
	items, err := q.store.Pending(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, item := range items {
		if err := q.process(ctx, item); err != nil {
			dead := item.Attempts+1 >= q.maxAttempts
			q.log.Error().Err(err).
				Int64("item_id", item.ID).
				Str("type", string(item.Type)).
				Bool("dead", dead).
				Msg("queue item failed")
			if recordErr := q.store.RecordFailure(ctx, item.ID, dead); recordErr != nil {
				q.log.Error().Err(recordErr).Int64("item_id", item.ID).Msg("record queue failure")
			}
			break
		}
		processed++
	}

	if processed > 0 && q.onSynced != nil {
		q.onSynced(processed)
	}
	return processed, nil
}

// Run drains the queue whenever a connectivity event reports online. Events
// are handled one at a time, so drains never overlap.
func (q *Queue) Run(ctx context.Context, connected <-chan bool) {
	for {
		select {
		case online, ok := <-connected:
			if !ok {
				return
			}
			if !online {
				continue
			}
			if _, err := q.Drain(ctx); err != nil {
				q.log.Error().Err(err).Msg("queue drain failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// process replays one item: photo upload first, then the record insert, then
// local cleanup and dequeue. The local photo is removed only after the insert
// succeeds so a failed insert never loses data. A crash between upload and
// insert can leave an orphaned object in storage; that costs storage, not
// correctness.
func (q *Queue) process(ctx context.Context, item QueueItem) error {
	payload := json.RawMessage(item.Payload)

	if item.LocalPhotoURI != nil && item.StorageBucket != nil && item.StoragePath != nil {
		if err := q.uploader.Upload(ctx, *item.LocalPhotoURI, *item.StorageBucket, *item.StoragePath); err != nil {
			return fmt.Errorf("upload photo: %w", err)
		}
		patched, err := patchPhotoField(payload, item.Type, *item.StoragePath)
		if err != nil {
			return err
		}
		payload = patched
	}

	if err := q.sink.InsertRecord(ctx, item.Type, payload); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	if item.LocalPhotoURI != nil {
		if err := q.files.Remove(*item.LocalPhotoURI); err != nil {
			q.log.Warn().Err(err).Str("uri", *item.LocalPhotoURI).Msg("remove local photo")
		}
	}

	return q.store.Delete(ctx, item.ID)
}

// patchPhotoField writes the uploaded storage path into the payload field the
// record type expects.
func patchPhotoField(payload json.RawMessage, itemType ItemType, storagePath string) (json.RawMessage, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	switch itemType {
	case ItemFuelFill:
		fields["receipt_photo_url"] = storagePath
	case ItemCleaning:
		if strings.Contains(storagePath, "receipt") {
			fields["receipt_photo_url"] = storagePath
		}
	case ItemIncident:
		fields["photo_url"] = storagePath
	}

	patched, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return patched, nil
}

// Count reports live queue depth (for the offline badge).
func (q *Queue) Count(ctx context.Context) (int64, error) {
	return q.store.Count(ctx)
}

// DeadItems lists poisoned entries so the UI can surface them to the user.
func (q *Queue) DeadItems(ctx context.Context) ([]QueueItem, error) {
	return q.store.DeadItems(ctx)
}
