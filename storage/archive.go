package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Object describes a stored object.
type Object struct {
	Key      string
	Location string
	ETag     string
}

// Uploader stores objects and reports where they can be fetched.
type Uploader interface {
	Upload(ctx context.Context, key string, contentType string, body io.Reader) (*Object, error)
	PublicURL(key string) string
}

// BracketArchive stores JSON snapshots of finished events.
type BracketArchive struct {
	uploader Uploader
	newID    func() string
}

func NewBracketArchive(uploader Uploader) *BracketArchive {
	return &BracketArchive{uploader: uploader, newID: uuid.NewString}
}

// ArchiveKey is the object key used for one snapshot of an event.
func ArchiveKey(eventID int, id string) string {
	return fmt.Sprintf("brackets/event-%d/%s.json", eventID, id)
}

// Archive uploads snapshot as JSON and returns its public location.
func (a *BracketArchive) Archive(ctx context.Context, eventID int, snapshot interface{}) (string, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot for event %d: %w", eventID, err)
	}
	result, err := a.uploader.Upload(ctx, ArchiveKey(eventID, a.newID()), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return result.Location, nil
}
