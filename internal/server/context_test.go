package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/archive"
	"github.com/teemow/inboxtriage/internal/demo"
	"github.com/teemow/inboxtriage/internal/triage"
)

func newTestContext(t *testing.T, opts ...Option) (*ServerContext, *demo.Session) {
	t.Helper()
	session := demo.NewSession(demo.Config{Seed: 5, Size: 60, Now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)})
	sc, err := NewServerContext(context.Background(), session, triage.Options{Clusters: 4, Count: 50, Seed: 1, Source: "demo"}, archive.Config{Workers: 2}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, session
}

func TestNewServerContext_RequiresSession(t *testing.T) {
	_, err := NewServerContext(context.Background(), nil, triage.Options{}, archive.Config{})
	assert.ErrorIs(t, err, triage.ErrNoSession)
}

func TestServerContext_TriageStoresRun(t *testing.T) {
	sc, _ := newTestContext(t, WithAccount("work"))
	assert.Equal(t, "demo", sc.Source())
	assert.Equal(t, "work", sc.Account())

	_, err := sc.Run("")
	assert.ErrorIs(t, err, ErrNoRuns)

	res, err := sc.Triage(context.Background(), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Fetched)
	assert.LessOrEqual(t, len(res.Clusters), 3)

	got, err := sc.Run(res.RunID)
	require.NoError(t, err)
	assert.Same(t, res, got)

	latest, err := sc.Run("")
	require.NoError(t, err)
	assert.Same(t, res, latest)

	_, err = sc.Run("nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestServerContext_EvictsOldestRun(t *testing.T) {
	sc, _ := newTestContext(t, WithMaxRuns(2))
	for _, id := range []string{"a", "b", "c"} {
		sc.StoreRun(&triage.Result{RunID: id})
	}
	assert.Equal(t, 2, sc.RunCount())

	_, err := sc.Run("a")
	assert.ErrorIs(t, err, ErrUnknownRun)
	latest, err := sc.Run("")
	require.NoError(t, err)
	assert.Equal(t, "c", latest.RunID)

	// Storing the same run again does not grow the registry.
	sc.StoreRun(&triage.Result{RunID: "c"})
	assert.Equal(t, 2, sc.RunCount())
}

func TestServerContext_ArchiveThroughCoordinator(t *testing.T) {
	sc, session := newTestContext(t)
	res, err := sc.Triage(context.Background(), 0, 0)
	require.NoError(t, err)

	req, err := res.ArchiveRequest(1, sc.Account())
	require.NoError(t, err)
	rep, err := sc.Coordinator().Archive(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, rep.Complete())
	assert.Equal(t, 60-res.Clusters[0].Size(), session.Remaining())
	assert.Equal(t, 2, sc.Coordinator().Config().Workers)
}

func TestServerContext_Shutdown(t *testing.T) {
	sc, _ := newTestContext(t)
	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())

	_, err := sc.Triage(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrShutdown)
}
