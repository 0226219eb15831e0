package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcinsights/bcinsights/internal/filter"
	"github.com/bcinsights/bcinsights/internal/utils"
)

func TestParseView(t *testing.T) {
	cases := map[string]View{
		"home":         ViewHome,
		"Dashboard":    ViewDemographics,
		"DEMOGRAPHICS": ViewDemographics,
		"Tumor":        ViewTumor,
		"survival":     ViewSurvival,
		" Genome ":     ViewGenome,
	}
	for in, want := range cases {
		got, err := ParseView(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseView("Settings")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestNavigateHomeResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sess := New(now)
	assert.Equal(t, ViewHome, sess.Page)
	assert.NotEmpty(t, sess.ID)

	sess = sess.Navigate(ViewTumor, now.Add(time.Minute))
	sess = sess.WithSelection(filter.Selection{AgeGroups: []string{"45-54 yrs"}}, now.Add(2*time.Minute))
	assert.Equal(t, ViewTumor, sess.Page)
	assert.Equal(t, ViewTumor, sess.ActiveTab)

	sess = sess.Navigate(ViewDashboard, now.Add(3*time.Minute))
	assert.Equal(t, ViewDemographics, sess.Page)
	assert.Equal(t, []string{"45-54 yrs"}, sess.Selection.AgeGroups)

	sess = sess.Navigate(ViewHome, now.Add(4*time.Minute))
	assert.Equal(t, ViewHome, sess.Page)
	assert.Empty(t, sess.ActiveTab)
	assert.True(t, sess.Selection.IsEmpty())
	assert.Equal(t, now, sess.CreatedAt)
	assert.Equal(t, now.Add(4*time.Minute), sess.UpdatedAt)
}

func TestStoreSessionsAreIndependent(t *testing.T) {
	store := NewStore(time.Hour)
	ctx := context.Background()

	a, err := store.Create(ctx)
	require.NoError(t, err)
	b, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	_, err = store.Navigate(ctx, a.ID, ViewGenome)
	require.NoError(t, err)

	gotA, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, ViewGenome, gotA.Page)
	assert.Equal(t, ViewHome, gotB.Page)
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore(0)
	ctx := context.Background()
	sess, err := store.Create(ctx)
	require.NoError(t, err)

	sel := filter.Selection{Genes: []string{"BRCA1"}}
	updated, err := store.Select(ctx, sess.ID, sel)
	require.NoError(t, err)
	sel.Genes[0] = "TP53"
	updated.Selection.Genes[0] = "ESR1"

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"BRCA1"}, got.Selection.Genes)
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	store := NewStore(time.Minute)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	stale, err := store.Create(ctx)
	require.NoError(t, err)
	clock = clock.Add(30 * time.Second)
	fresh, err := store.Create(ctx)
	require.NoError(t, err)

	clock = clock.Add(45 * time.Second)
	_, err = store.Get(ctx, stale.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = store.Get(ctx, fresh.ID)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestStoreUnknownSession(t *testing.T) {
	store := NewStore(time.Minute)
	_, err := store.Navigate(context.Background(), "missing", ViewTumor)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore(time.Hour)
	ctx := context.Background()
	sess, err := store.Create(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			view := Views()[i%len(Views())]
			_, _ = store.Navigate(ctx, sess.ID, view)
			_, _ = store.Get(ctx, sess.ID)
		}(i)
	}
	wg.Wait()
	_, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
}
