package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hpungsan/lnfee/internal/channel"
	ferrors "github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/fee"
	"github.com/hpungsan/lnfee/internal/store"
)

// setupTestStore starts a PostgreSQL container and opens a migrated Store.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	s, err := Open(ctx, dsn)
	require.NoError(t, err, "failed to open store")
	t.Cleanup(func() { s.Close() })

	return s
}

func ptr[T any](v T) *T {
	return &v
}

func TestStore(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	t.Run("channels", func(t *testing.T) {
		require.NoError(t, s.UpsertChannel(ctx, channel.Channel{ID: "c2", Name: "bob", Capacity: 10}))
		require.NoError(t, s.UpsertChannel(ctx, channel.Channel{ID: "c1", Name: "alice", ChannelPoint: "aa:1", Capacity: 20}))
		require.NoError(t, s.UpsertChannel(ctx, channel.Channel{ID: "c2", Name: "bobby", Capacity: 30}))

		list, err := s.ListChannels(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "alice", list[0].Name)
		assert.Equal(t, channel.Channel{ID: "c2", Name: "bobby", Capacity: 30}, list[1])

		got, err := s.GetChannel(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "aa:1", got.ChannelPoint)

		_, err = s.GetChannel(ctx, "missing")
		assert.True(t, ferrors.Is(err, ferrors.ErrNotFound))

		err = s.UpsertChannel(ctx, channel.Channel{})
		assert.True(t, ferrors.Is(err, ferrors.ErrInvalidRequest))
	})

	t.Run("snapshots", func(t *testing.T) {
		base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			snap := channel.Snapshot{
				ChannelID: "c1",
				Date:      base.AddDate(0, 0, i),
				LocalFee:  int64(i),
				Active:    i%2 == 0,
			}
			if i == 4 {
				snap.ReferenceFee = ptr(int64(700))
			}
			require.NoError(t, s.InsertSnapshot(ctx, snap))
		}

		window, err := s.RecentSnapshots(ctx, "c1", 3)
		require.NoError(t, err)
		require.Len(t, window, 3)
		assert.Equal(t, []int64{2, 3, 4}, []int64{window[0].LocalFee, window[1].LocalFee, window[2].LocalFee})
		assert.True(t, window[2].Date.Equal(base.AddDate(0, 0, 4)))
		require.NotNil(t, window[2].ReferenceFee)
		assert.Equal(t, int64(700), *window[2].ReferenceFee)
		assert.Nil(t, window[1].ReferenceFee)
		assert.True(t, window[2].Active)
		assert.False(t, window[1].Active)

		n, err := s.PurgeSnapshots(ctx, base.AddDate(0, 0, 2))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		window, err = s.RecentSnapshots(ctx, "c1", 10)
		require.NoError(t, err)
		assert.Len(t, window, 3)
	})

	t.Run("decisions", func(t *testing.T) {
		require.NoError(t, s.RecordDecision(ctx, store.DecisionRecord{
			ID: "d1", RunID: "r1", ChannelID: "c1", Mode: fee.ModeRegular, Class: "managed",
			Reason: fee.ReasonStable, CreatedAt: 1,
		}))
		require.NoError(t, s.RecordDecision(ctx, store.DecisionRecord{
			ID: "d2", RunID: "r1", ChannelID: "c1", Mode: fee.ModeRegular, Class: "managed",
			Reason: fee.ReasonRerate, NewLocalFee: ptr(int64(10)), NewInboundFee: ptr(int64(-1)),
			LocalBalance: ptr(int64(99)), Pushed: true, Error: ptr("x"), CreatedAt: 2,
		}))

		all, err := s.ListDecisions(ctx, store.DecisionFilter{RunID: ptr("r1")})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "d2", all[0].ID)
		assert.Equal(t, fee.ReasonRerate, all[0].Reason)
		require.NotNil(t, all[0].NewLocalFee)
		assert.Equal(t, int64(10), *all[0].NewLocalFee)
		assert.Equal(t, "x", *all[0].Error)
		assert.Nil(t, all[1].NewLocalFee)

		pushes, err := s.ListDecisions(ctx, store.DecisionFilter{ChannelID: ptr("c1"), PushOnly: true})
		require.NoError(t, err)
		require.Len(t, pushes, 1)
		assert.True(t, pushes[0].Pushed)
	})
}
