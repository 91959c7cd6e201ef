package retention

import (
	"context"

	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/pkg/types"
)

// ShouldReclaim decides whether the previous snapshot version is redundant.
// It is redundant only when nothing critical changed and it is a different
// version than the current one.
func ShouldReclaim(changes types.ChangeSet, currentVersionID, previousVersionID string) (string, bool) {
	if !changes.IsEmpty() {
		return "", false
	}
	if previousVersionID == "" || previousVersionID == currentVersionID {
		return "", false
	}
	return previousVersionID, true
}

// Deleter removes one version of a stored object
type Deleter interface {
	Delete(ctx context.Context, bucket, key, versionID string) error
}

// Advisor applies ShouldReclaim and deletes what it selects.
// Deletion failures never fail the caller.
type Advisor struct {
	store    Deleter
	provider vahtierrors.Provider
	log      logger.Logger
}

// New creates an advisor deleting through store
func New(store Deleter, provider vahtierrors.Provider, log logger.Logger) *Advisor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Advisor{
		store:    store,
		provider: provider,
		log:      log,
	}
}

// Reclaim deletes the previous version of bucket/key when it is redundant.
// It returns the deleted version id, or "" when nothing was deleted.
func (a *Advisor) Reclaim(ctx context.Context, bucket, key string, changes types.ChangeSet, currentVersionID, previousVersionID string) string {
	versionID, ok := ShouldReclaim(changes, currentVersionID, previousVersionID)
	if !ok || a.store == nil {
		return ""
	}

	log := a.log.WithFields(map[string]interface{}{
		"bucket":     bucket,
		"key":        key,
		"version_id": versionID,
	})

	if err := a.store.Delete(ctx, bucket, key, versionID); err != nil {
		rerr := vahtierrors.ReclamationError(a.provider, bucket+"/"+key, versionID, err)
		log.WithField("error", rerr.Error()).Warn("could not reclaim redundant snapshot version")
		return ""
	}

	log.Info("reclaimed redundant snapshot version")
	return versionID
}
