package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/memory"
)

func TestTimelineRepository_ChronologicalOrder(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTimelineRepository()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{OrderID: 1, Type: domain.TimelineStatusChanged, Occurred: now.Add(time.Minute)}))
	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{OrderID: 1, Type: domain.TimelineOrderPlaced, Occurred: now}))
	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{OrderID: 2, Type: domain.TimelineOrderPlaced}))

	events, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.TimelineOrderPlaced, events[0].Type)

	events, err = repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.False(t, events[0].Occurred.IsZero())

	events, err = repo.List(ctx, 3)
	require.NoError(t, err)
	require.Empty(t, events)
}
