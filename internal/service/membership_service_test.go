package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
)

type mockLifecycleRepo struct {
	graced  int64
	expired int64
	calls   []string
	runs    int

	// block lets a test hold a run open to exercise the overlap guard.
	block chan struct{}
}

func (m *mockLifecycleRepo) MoveActiveToGracePeriod(ctx context.Context, today time.Time) (int64, error) {
	if m.block != nil {
		<-m.block
	}
	m.calls = append(m.calls, "grace")
	m.runs++
	if m.runs > 1 {
		// Predicate-scoped updates match nothing on a repeat run.
		return 0, nil
	}
	return m.graced, nil
}

func (m *mockLifecycleRepo) MoveGracePeriodToExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.calls = append(m.calls, "expire")
	if m.runs > 1 {
		return 0, nil
	}
	return m.expired, nil
}

type mockWaitlistExpirer struct {
	calls int
}

func (m *mockWaitlistExpirer) ExpireEntries(ctx context.Context) (int64, error) {
	m.calls++
	return 0, nil
}

func TestMembershipLifecycleRunOnce(t *testing.T) {
	repo := &mockLifecycleRepo{graced: 3, expired: 2}
	expirer := &mockWaitlistExpirer{}
	svc := NewMembershipLifecycleService(repo, expirer, 7, 24*time.Hour, nil, nil)

	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.MovedToGracePeriod)
	assert.Equal(t, int64(2), result.MovedToExpired)
	// Grace pass runs before the expiry pass, so a member far enough past
	// their end date reaches EXPIRED within a single run.
	assert.Equal(t, []string{"grace", "expire"}, repo.calls)
	assert.Equal(t, 1, expirer.calls)
}

func TestMembershipLifecycleRunOnceIdempotent(t *testing.T) {
	repo := &mockLifecycleRepo{graced: 3, expired: 2}
	svc := NewMembershipLifecycleService(repo, nil, 7, 24*time.Hour, nil, nil)

	first, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.MovedToGracePeriod)

	second, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.MovedToGracePeriod)
	assert.Zero(t, second.MovedToExpired)
}

func TestMembershipLifecycleRejectsOverlappingRuns(t *testing.T) {
	repo := &mockLifecycleRepo{block: make(chan struct{})}
	svc := NewMembershipLifecycleService(repo, nil, 7, 24*time.Hour, nil, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		close(started)
		_, err := svc.RunOnce(context.Background())
		assert.NoError(t, err)
	}()
	<-started
	// Give the goroutine time to take the lock and park on the repo.
	time.Sleep(20 * time.Millisecond)

	_, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	close(repo.block)
	wg.Wait()
}

func TestMembershipLifecycleCutoff(t *testing.T) {
	var gotToday, gotCutoff time.Time
	repo := &cutoffCaptureRepo{today: &gotToday, cutoff: &gotCutoff}
	svc := NewMembershipLifecycleService(repo, nil, 7, 24*time.Hour, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC) }

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), gotToday)
	assert.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), gotCutoff)
}

type cutoffCaptureRepo struct {
	today  *time.Time
	cutoff *time.Time
}

func (m *cutoffCaptureRepo) MoveActiveToGracePeriod(ctx context.Context, today time.Time) (int64, error) {
	*m.today = today
	return 0, nil
}

func (m *cutoffCaptureRepo) MoveGracePeriodToExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	*m.cutoff = cutoff
	return 0, nil
}
