package manifest

import (
	"context"
	"errors"
	"time"

	"github.com/appcache-hub/appcache-hub/internal/store"
)

// Info summarises a stored manifest for diagnostics.
type Info struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Exists   bool      `json:"exists"`
	Version  int64     `json:"version,omitempty"`
	Entries  int       `json:"entries"`
	ModTime  time.Time `json:"mod_time,omitempty"`
}

// Inspect reads id's manifest without modifying it. A missing manifest is
// reported with Exists=false and no error.
func Inspect(ctx context.Context, st store.Store, namer Namer, id string) (Info, error) {
	info := Info{ID: id, Filename: namer.Filename(id)}
	body, entry, err := store.ReadAll(ctx, st, info.Filename)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return info, nil
		}
		return info, err
	}
	info.Exists = len(body) > 0
	info.ModTime = entry.ModTime
	if v, ok := Version(body); ok {
		info.Version = v
	}
	info.Entries = len(Entries(body))
	return info, nil
}
