package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidquest/internal/models"
	"kidquest/internal/testutil"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, defaultActivityLimit},
		{-5, defaultActivityLimit},
		{10, 10},
		{maxActivityLimit, maxActivityLimit},
		{maxActivityLimit + 1, maxActivityLimit},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, clampLimit(tt.in))
		})
	}
}

func TestLogActivity(t *testing.T) {
	f := newFixture(t)
	svc := NewActivityService(f.activities)
	ctx := context.Background()
	kid := testutil.CreateUser(t, f.db, "kid", models.RoleKid)

	a, err := svc.LogActivity(ctx, kid.ID, "game", "Number Ninja", json.RawMessage(`{"level": 3}`))
	require.NoError(t, err)
	assert.Equal(t, kid.ID, a.UserID)
	assert.JSONEq(t, `{"level": 3}`, string(a.Details))

	empty, err := svc.LogActivity(ctx, kid.ID, "lesson", "Fractions", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(empty.Details))

	_, err = svc.LogActivity(ctx, kid.ID, "lesson", "Fractions", json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.LogActivity(ctx, kid.ID, " ", "Fractions", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListActivities(t *testing.T) {
	f := newFixture(t)
	svc := NewActivityService(f.activities)
	ctx := context.Background()
	kid := testutil.CreateUser(t, f.db, "kid", models.RoleKid)
	other := testutil.CreateUser(t, f.db, "other", models.RoleKid)
	parent := testutil.CreateUser(t, f.db, "parent", models.RoleParent)

	for i := 0; i < 3; i++ {
		_, err := svc.LogActivity(ctx, kid.ID, "game", fmt.Sprintf("round %d", i), nil)
		require.NoError(t, err)
	}

	own, err := svc.ListActivities(ctx, identity(kid), kid.ID, 0)
	require.NoError(t, err)
	require.Len(t, own, 3)
	assert.Equal(t, "round 2", own[0].ActivityName)

	limited, err := svc.ListActivities(ctx, identity(parent), kid.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = svc.ListActivities(ctx, identity(other), kid.ID, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}
