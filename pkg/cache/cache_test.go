package cache

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetOrComputeHit(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Get", mock.Anything, "k").Return(`{"name":"cached","count":3}`, true, nil)

	calls := 0
	got, err := GetOrCompute(context.Background(), store, "k", time.Minute, func() (payload, error) {
		calls++
		return payload{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "cached", Count: 3}, got)
	assert.Equal(t, 0, calls)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOrComputeReadFailureStillComputes(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Get", mock.Anything, "k").Return("", false, errors.New("connection refused"))
	store.On("Set", mock.Anything, "k", `{"name":"fresh","count":1}`, time.Minute).Return(errors.New("still down"))

	got, err := GetOrCompute(context.Background(), store, "k", time.Minute, func() (payload, error) {
		return payload{Name: "fresh", Count: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "fresh", Count: 1}, got)
	store.AssertCalled(t, "Set", mock.Anything, "k", `{"name":"fresh","count":1}`, time.Minute)
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Get", mock.Anything, "k").Return("", false, nil)

	boom := errors.New("upstream exploded")
	_, err := GetOrCompute(context.Background(), store, "k", time.Minute, func() (payload, error) {
		return payload{}, boom
	})
	assert.Equal(t, boom, err)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOrComputeUndecodableEntryIsMiss(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Get", mock.Anything, "k").Return("{not json", true, nil)
	store.On("Set", mock.Anything, "k", mock.Anything, time.Minute).Return(nil)

	got, err := GetOrCompute(context.Background(), store, "k", time.Minute, func() ([]int, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
	store.AssertExpectations(t)
}

func TestGetOrComputeNilAndNopStore(t *testing.T) {
	t.Parallel()

	for _, store := range []Store{nil, NopStore{}} {
		calls := 0
		for i := 0; i < 2; i++ {
			got, err := GetOrCompute(context.Background(), store, "k", time.Minute, func() (string, error) {
				calls++
				return "v", nil
			})
			require.NoError(t, err)
			assert.Equal(t, "v", got)
		}
		assert.Equal(t, 2, calls)
	}
}

func TestKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "testpulse:runs:42:2025-01-01", Key("runs", "42", "2025-01-01"))
}
