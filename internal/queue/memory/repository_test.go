package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/publishq/publishqd/internal/domain"
	"github.com/publishq/publishqd/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(id string) *domain.Item {
	return &domain.Item{
		ID:       id,
		Title:    "title " + id,
		Content:  "content",
		Priority: domain.PriorityMedium,
		Platforms: []domain.PlatformTarget{
			{Platform: domain.PlatformTwitter, Status: domain.TargetStatusPending},
		},
		ScheduledAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRepository_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	item := newItem("a")
	require.NoError(t, repo.Insert(ctx, item))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, item, got)

	// Stored state is isolated from both the inserted value and the snapshot.
	item.Title = "mutated input"
	got.Platforms[0].Status = domain.TargetStatusPublished

	fresh, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "title a", fresh.Title)
	assert.Equal(t, domain.TargetStatusPending, fresh.Platforms[0].Status)
}

func TestRepository_Insert_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.Insert(ctx, newItem("a")))
	err := repo.Insert(ctx, newItem("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRepository_Get_NotFound(t *testing.T) {
	repo := NewRepository()

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, queue.ErrItemNotFound)
}

func TestRepository_List_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Insert(ctx, newItem(id)))
	}

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
	assert.Equal(t, "b", items[2].ID)
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	require.NoError(t, repo.Insert(ctx, newItem("a")))

	updated, err := repo.Update(ctx, "a", func(item *domain.Item) error {
		item.Platforms[0].Status = domain.TargetStatusCancelled
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TargetStatusCancelled, updated.Platforms[0].Status)

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.TargetStatusCancelled, got.Platforms[0].Status)
}

func TestRepository_Update_ErrorLeavesItemUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	require.NoError(t, repo.Insert(ctx, newItem("a")))

	boom := errors.New("boom")
	_, err := repo.Update(ctx, "a", func(item *domain.Item) error {
		item.Title = "half done"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "title a", got.Title)
}

func TestRepository_Update_NotFound(t *testing.T) {
	repo := NewRepository()

	_, err := repo.Update(context.Background(), "missing", func(*domain.Item) error { return nil })
	assert.ErrorIs(t, err, queue.ErrItemNotFound)
}

func TestRepository_ForEach_MutatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	require.NoError(t, repo.Insert(ctx, newItem("a")))
	require.NoError(t, repo.Insert(ctx, newItem("b")))

	err := repo.ForEach(ctx, func(item *domain.Item) {
		item.Platforms[0].Status = domain.TargetStatusPublishing
	})
	require.NoError(t, err)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, domain.TargetStatusPublishing, item.Platforms[0].Status)
	}
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	require.NoError(t, repo.Insert(ctx, newItem("a")))
	require.NoError(t, repo.Insert(ctx, newItem("b")))

	require.NoError(t, repo.Delete(ctx, "a"))

	_, err := repo.Get(ctx, "a")
	assert.ErrorIs(t, err, queue.ErrItemNotFound)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)

	assert.ErrorIs(t, repo.Delete(ctx, "a"), queue.ErrItemNotFound)
}
