package manifest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/appcache-hub/appcache-hub/internal/logging"
	"github.com/appcache-hub/appcache-hub/internal/store"
)

var errEmptyManifest = errors.New("manifest is empty")

// Invalidator bumps the version token of existing manifests.
type Invalidator struct {
	store  store.Store
	namer  Namer
	logger *logrus.Logger
	now    func() time.Time
}

// NewInvalidator returns an Invalidator writing through st.
func NewInvalidator(st store.Store, namer Namer, logger *logrus.Logger) *Invalidator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Invalidator{store: st, namer: namer, logger: logger, now: time.Now}
}

// Invalidate rewrites the version line of id's manifest and reports whether a
// manifest was there. Missing, empty or unreadable manifests are left alone
// and are not an error. Write failures are returned.
func (i *Invalidator) Invalidate(ctx context.Context, id string) (bool, error) {
	filename := i.namer.Filename(id)
	fields := logging.ManifestFields("manifest_invalidate", id, filename)

	var (
		read    bool
		version int64
	)
	_, err := i.store.Update(ctx, filename, func(current []byte) ([]byte, error) {
		read = true
		if len(current) == 0 {
			return nil, errEmptyManifest
		}
		var next []byte
		next, version = bumpVersion(current, i.now().Unix())
		return next, nil
	})

	switch {
	case err == nil:
		Invalidations.WithLabelValues("invalidated").Inc()
		i.logger.WithFields(fields).WithField("version", version).Info("manifest_invalidated")
		return true, nil
	case !read || errors.Is(err, errEmptyManifest):
		Invalidations.WithLabelValues("missing").Inc()
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, errEmptyManifest) {
			i.logger.WithFields(fields).WithError(err).Warn("manifest_read_failed")
		} else {
			i.logger.WithFields(fields).Debug("manifest_missing")
		}
		return false, nil
	default:
		Invalidations.WithLabelValues("failed").Inc()
		i.logger.WithFields(fields).WithError(err).Error("manifest_invalidate_failed")
		return true, fmt.Errorf("invalidate %s: %w", filename, err)
	}
}

// InvalidateAll invalidates every id and returns how many manifests existed.
// All ids are attempted; failures are joined.
func (i *Invalidator) InvalidateAll(ctx context.Context, ids []string) (int, error) {
	var (
		count int
		errs  []error
	)
	for _, id := range ids {
		found, err := i.Invalidate(ctx, id)
		if found && err == nil {
			count++
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return count, errors.Join(errs...)
}
