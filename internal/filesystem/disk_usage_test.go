package filesystem

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUsageBackend struct {
	mock.Mock
}

func (m *mockUsageBackend) Usage(ctx context.Context) (DiskStats, error) {
	args := m.Called(ctx)

	return args.Get(0).(DiskStats), args.Error(1) //nolint:forcetypeassert
}

func TestDiskUsageCacher_CachesFirstResult(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := new(mockUsageBackend)
	backend.On("Usage", mock.Anything).Return(DiskStats{TotalSize: 1000, FreeSpace: 600}, nil).Once()

	cacher := NewDiskUsageCacher(ctx, backend)

	for range 3 {
		stats, err := cacher.GetDiskUsage(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 600, stats.FreeSpace)
	}

	backend.AssertExpectations(t)
}

func TestDiskUsageCacher_InvalidStats(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := new(mockUsageBackend)
	backend.On("Usage", mock.Anything).Return(DiskStats{TotalSize: 0, FreeSpace: 10}, nil)

	cacher := NewDiskUsageCacher(ctx, backend)

	_, err := cacher.GetDiskUsage(ctx)
	require.ErrorIs(t, err, ErrInvalidStats)
}

func TestDiskUsageCacher_HasEnoughFreeSpace(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		free     uint64
		minFree  uint64
		fileSize uint64
		expected bool
	}{
		{"Success_NoMinimum", 600, 0, 100, true},
		{"Success_MinimumBelowFree", 600, 500, 100, true},
		{"Fail_MinimumAboveFree", 600, 700, 100, false},
		{"Fail_FileLargerThanFree", 600, 0, 600, false},
		{"Fail_FileDominatesMinimum", 600, 10, 900, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			backend := new(mockUsageBackend)
			backend.On("Usage", mock.Anything).Return(DiskStats{TotalSize: 1000, FreeSpace: tc.free}, nil)

			cacher := NewDiskUsageCacher(ctx, backend)

			ok, err := cacher.HasEnoughFreeSpace(ctx, tc.minFree, tc.fileSize)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
		})
	}
}

func TestDiskUsageCacher_UpdateDropsCacheOnError(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := new(mockUsageBackend)
	backend.On("Usage", mock.Anything).Return(DiskStats{TotalSize: 1000, FreeSpace: 600}, nil).Once()
	backend.On("Usage", mock.Anything).Return(DiskStats{}, errors.New("namenode down")).Once()

	cacher := NewDiskUsageCacher(ctx, backend)

	_, err := cacher.GetDiskUsage(ctx)
	require.NoError(t, err)

	require.Error(t, cacher.Update(ctx))

	cacher.RLock()
	assert.Nil(t, cacher.stats)
	cacher.RUnlock()
}

func TestDiskUsageCacher_UpdateRejectsInvalidStats(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		stats DiskStats
	}{
		{"Fail_ZeroTotal", DiskStats{TotalSize: 0, FreeSpace: 0}},
		{"Fail_FreeAboveTotal", DiskStats{TotalSize: 1000, FreeSpace: 5000}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			backend := new(mockUsageBackend)
			backend.On("Usage", mock.Anything).Return(DiskStats{TotalSize: 1000, FreeSpace: 600}, nil).Once()
			backend.On("Usage", mock.Anything).Return(tc.stats, nil).Once()
			backend.On("Usage", mock.Anything).Return(DiskStats{TotalSize: 1000, FreeSpace: 10}, nil).Once()

			cacher := NewDiskUsageCacher(ctx, backend)

			_, err := cacher.GetDiskUsage(ctx)
			require.NoError(t, err)

			require.ErrorIs(t, cacher.Update(ctx), ErrInvalidStats)

			cacher.RLock()
			assert.Nil(t, cacher.stats)
			cacher.RUnlock()

			// The next lookup goes back to the store instead of trusting
			// the rejected numbers.
			enough, err := cacher.HasEnoughFreeSpace(ctx, 100, 1)
			require.NoError(t, err)
			assert.False(t, enough)

			backend.AssertExpectations(t)
		})
	}
}
