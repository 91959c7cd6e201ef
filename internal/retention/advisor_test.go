package retention

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/pkg/types"
)

type MockDeleter struct {
	mock.Mock
}

func (m *MockDeleter) Delete(ctx context.Context, bucket, key, versionID string) error {
	args := m.Called(ctx, bucket, key, versionID)
	return args.Error(0)
}

func TestShouldReclaim(t *testing.T) {
	changed := types.ChangeSet{Modified: []string{"/etc/passwd"}}

	tests := []struct {
		name     string
		changes  types.ChangeSet
		current  string
		previous string
		want     string
		wantOK   bool
	}{
		{"no changes", types.ChangeSet{}, "v2", "v1", "v1", true},
		{"empty non-nil sets", types.ChangeSet{Created: []string{}, Deleted: []string{}, Modified: []string{}}, "v2", "v1", "v1", true},
		{"changes present", changed, "v2", "v1", "", false},
		{"same version", types.ChangeSet{}, "v1", "v1", "", false},
		{"no previous", types.ChangeSet{}, "v1", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ShouldReclaim(tt.changes, tt.current, tt.previous)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvisor_Reclaim(t *testing.T) {
	ctx := context.Background()
	store := new(MockDeleter)
	store.On("Delete", ctx, "bucket", "i-1.json", "v1").Return(nil).Once()

	advisor := New(store, vahtierrors.ProviderAWS, nil)
	got := advisor.Reclaim(ctx, "bucket", "i-1.json", types.ChangeSet{}, "v2", "v1")

	assert.Equal(t, "v1", got)
	store.AssertExpectations(t)
}

func TestAdvisor_ReclaimSkipsWhenChanged(t *testing.T) {
	store := new(MockDeleter)
	advisor := New(store, vahtierrors.ProviderAWS, nil)

	got := advisor.Reclaim(context.Background(), "bucket", "k", types.ChangeSet{Deleted: []string{"/etc/hosts"}}, "v2", "v1")

	assert.Empty(t, got)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvisor_ReclaimSwallowsFailure(t *testing.T) {
	ctx := context.Background()
	store := new(MockDeleter)
	store.On("Delete", ctx, "bucket", "k", "v1").Return(errors.New("AccessDenied"))

	advisor := New(store, vahtierrors.ProviderAWS, nil)

	assert.NotPanics(t, func() {
		assert.Empty(t, advisor.Reclaim(ctx, "bucket", "k", types.ChangeSet{}, "v2", "v1"))
	})
	store.AssertExpectations(t)
}
