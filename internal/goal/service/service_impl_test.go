package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/fincoach/internal/clock"
	"github.com/smallbiznis/fincoach/internal/goal/domain"
	"github.com/smallbiznis/fincoach/internal/goal/repository"
	"github.com/smallbiznis/fincoach/internal/ownercontext"
	"github.com/smallbiznis/fincoach/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    storetest.Open(t),
		Log:   zaptest.NewLogger(t),
		Clock: clk,
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownercontext.WithUserID(context.Background(), uuid.New())

	goal, err := svc.Create(ctx, domain.CreateGoalRequest{
		Title:        "  Buy a house ",
		TargetAmount: floatPtr(400000),
		TargetDate:   strPtr("2030-06-01"),
	})
	require.NoError(t, err)

	assert.NotZero(t, goal.ID)
	assert.Equal(t, "Buy a house", goal.Title)
	assert.Equal(t, domain.PriorityMedium, goal.Priority)
	assert.Equal(t, domain.StatusActive, goal.Status)
	assert.Equal(t, "2030-06-01", goal.TargetDateString())

	got, err := svc.GetByID(ctx, goal.ID.String())
	require.NoError(t, err)
	assert.Equal(t, goal.ID, got.ID)
	assert.Equal(t, "2030-06-01", got.TargetDateString())
	assert.InDelta(t, 400000, *got.TargetAmount, 0.001)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownercontext.WithUserID(context.Background(), uuid.New())

	tests := []struct {
		name string
		req  domain.CreateGoalRequest
		want error
	}{
		{"missing title", domain.CreateGoalRequest{Title: "  "}, domain.ErrInvalidTitle},
		{"unknown priority", domain.CreateGoalRequest{Title: "Save", Priority: strPtr("urgent")}, domain.ErrInvalidPriority},
		{"unknown status", domain.CreateGoalRequest{Title: "Save", Status: strPtr("archived")}, domain.ErrInvalidStatus},
		{"blank priority", domain.CreateGoalRequest{Title: "Save", Priority: strPtr("")}, domain.ErrInvalidPriority},
		{"uppercase priority", domain.CreateGoalRequest{Title: "Save", Priority: strPtr("HIGH")}, domain.ErrInvalidPriority},
		{"mixed case status", domain.CreateGoalRequest{Title: "Save", Status: strPtr("Active")}, domain.ErrInvalidStatus},
		{"negative amount", domain.CreateGoalRequest{Title: "Save", TargetAmount: floatPtr(-5)}, domain.ErrInvalidTargetAmount},
		{"bad date", domain.CreateGoalRequest{Title: "Save", TargetDate: strPtr("06/01/2030")}, domain.ErrInvalidTargetDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	goals, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, goals, "rejected goals must not be stored")
}

func TestListNewestFirst(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := ownercontext.WithUserID(context.Background(), uuid.New())

	first, err := svc.Create(ctx, domain.CreateGoalRequest{Title: "Emergency fund"})
	require.NoError(t, err)
	clk.Advance(time.Minute)
	second, err := svc.Create(ctx, domain.CreateGoalRequest{Title: "Pay off card"})
	require.NoError(t, err)
	third, err := svc.Create(ctx, domain.CreateGoalRequest{Title: "Vacation"})
	require.NoError(t, err)

	goals, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 3)
	assert.Equal(t, third.ID, goals[0].ID, "same timestamp breaks ties by id")
	assert.Equal(t, second.ID, goals[1].ID)
	assert.Equal(t, first.ID, goals[2].ID)
}

func TestUpdateIsPartial(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := ownercontext.WithUserID(context.Background(), uuid.New())

	goal, err := svc.Create(ctx, domain.CreateGoalRequest{
		Title:       "Emergency fund",
		Description: strPtr("Six months of expenses"),
		Priority:    strPtr("high"),
	})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	updated, err := svc.Update(ctx, goal.ID.String(), domain.UpdateGoalRequest{
		Status: strPtr("completed"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)
	assert.Equal(t, "Six months of expenses", *updated.Description)
	assert.True(t, updated.UpdatedAt.After(goal.UpdatedAt))

	_, err = svc.Update(ctx, goal.ID.String(), domain.UpdateGoalRequest{Priority: strPtr("someday")})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)

	got, err := svc.GetByID(ctx, goal.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
}

func TestUpdateRejectsBlankEnums(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ownercontext.WithUserID(context.Background(), uuid.New())

	goal, err := svc.Create(ctx, domain.CreateGoalRequest{
		Title:    "Pay off card",
		Priority: strPtr("high"),
		Status:   strPtr("paused"),
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  domain.UpdateGoalRequest
		want error
	}{
		{"empty priority", domain.UpdateGoalRequest{Priority: strPtr("")}, domain.ErrInvalidPriority},
		{"blank status", domain.UpdateGoalRequest{Status: strPtr("  ")}, domain.ErrInvalidStatus},
		{"uppercase priority", domain.UpdateGoalRequest{Priority: strPtr("LOW")}, domain.ErrInvalidPriority},
		{"padded status", domain.UpdateGoalRequest{Status: strPtr(" active ")}, domain.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, goal.ID.String(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, err := svc.GetByID(ctx, goal.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, domain.StatusPaused, got.Status)
}

func TestDeleteAndOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	owner := ownercontext.WithUserID(context.Background(), uuid.New())
	other := ownercontext.WithUserID(context.Background(), uuid.New())

	goal, err := svc.Create(owner, domain.CreateGoalRequest{Title: "Retire early"})
	require.NoError(t, err)

	_, err = svc.GetByID(other, goal.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(other, goal.ID.String()), domain.ErrNotFound)

	require.NoError(t, svc.Delete(owner, goal.ID.String()))
	assert.ErrorIs(t, svc.Delete(owner, goal.ID.String()), domain.ErrNotFound)
}

func TestInvalidIdentifiers(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)

	ctx := ownercontext.WithUserID(context.Background(), uuid.New())
	_, err = svc.GetByID(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
