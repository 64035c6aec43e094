package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/fincoach/internal/auth"
	"github.com/smallbiznis/fincoach/internal/clock"
	coachdomain "github.com/smallbiznis/fincoach/internal/coach/domain"
	"github.com/smallbiznis/fincoach/internal/config"
	conversationdomain "github.com/smallbiznis/fincoach/internal/conversation/domain"
	creditdomain "github.com/smallbiznis/fincoach/internal/credit/domain"
	goaldomain "github.com/smallbiznis/fincoach/internal/goal/domain"
	"github.com/smallbiznis/fincoach/internal/ownercontext"
	profiledomain "github.com/smallbiznis/fincoach/internal/profile/domain"
	"github.com/smallbiznis/fincoach/internal/ratelimit"
	"github.com/smallbiznis/fincoach/pkg/rls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var testUserID = uuid.MustParse("7d1f6a52-3c1e-4a4f-9b0e-8f8a2b6c1d01")

type fakeCoach struct {
	resp     coachdomain.TurnResponse
	err      error
	calls    int
	lastReq  coachdomain.TurnRequest
	lastUser uuid.UUID
	onTurn   func()
}

func (f *fakeCoach) Turn(ctx context.Context, req coachdomain.TurnRequest) (coachdomain.TurnResponse, error) {
	f.calls++
	f.lastReq = req
	f.lastUser, _ = ownercontext.UserIDFromContext(ctx)
	if f.onTurn != nil {
		f.onTurn()
	}
	return f.resp, f.err
}

type fakeConversation struct {
	messages  []conversationdomain.Message
	err       error
	lastLimit int
}

func (f *fakeConversation) Append(ctx context.Context, scope rls.Scope, text string, isUser bool) error {
	return nil
}

func (f *fakeConversation) History(ctx context.Context, limit int) ([]conversationdomain.Message, error) {
	f.lastLimit = limit
	return f.messages, f.err
}

type fakeProfiles struct {
	profile profiledomain.Profile
	err     error
	lastReq profiledomain.UpsertProfileRequest
}

func (f *fakeProfiles) Get(ctx context.Context) (profiledomain.Profile, error) {
	return f.profile, f.err
}

func (f *fakeProfiles) Upsert(ctx context.Context, req profiledomain.UpsertProfileRequest) (profiledomain.Profile, error) {
	f.lastReq = req
	return f.profile, f.err
}

type fakeCredits struct {
	credit creditdomain.Credit
	err    error
}

func (f *fakeCredits) Get(ctx context.Context) (creditdomain.Credit, error) {
	return f.credit, f.err
}

func (f *fakeCredits) Upsert(ctx context.Context, req creditdomain.UpsertCreditRequest) (creditdomain.Credit, error) {
	return f.credit, f.err
}

type fakeGoals struct {
	goal       goaldomain.Goal
	goals      []goaldomain.Goal
	err        error
	lastCreate goaldomain.CreateGoalRequest
	lastID     string
	deleted    bool
}

func (f *fakeGoals) Create(ctx context.Context, req goaldomain.CreateGoalRequest) (goaldomain.Goal, error) {
	f.lastCreate = req
	return f.goal, f.err
}

func (f *fakeGoals) List(ctx context.Context) ([]goaldomain.Goal, error) {
	return f.goals, f.err
}

func (f *fakeGoals) GetByID(ctx context.Context, id string) (goaldomain.Goal, error) {
	f.lastID = id
	return f.goal, f.err
}

func (f *fakeGoals) Update(ctx context.Context, id string, req goaldomain.UpdateGoalRequest) (goaldomain.Goal, error) {
	f.lastID = id
	return f.goal, f.err
}

func (f *fakeGoals) Delete(ctx context.Context, id string) error {
	f.lastID = id
	f.deleted = f.err == nil
	return f.err
}

type testHarness struct {
	router   *gin.Engine
	verifier *auth.JWTVerifier
	clock    *clock.FakeClock
	coach    *fakeCoach
	history  *fakeConversation
	profiles *fakeProfiles
	credits  *fakeCredits
	goals    *fakeGoals
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	return newTestHarnessWithLimiter(t, nil)
}

func newTestHarnessWithLimiter(t *testing.T, limiter *ratelimit.ChatTurnLimiter) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	verifier, err := auth.NewJWTVerifier(config.Config{AuthJWTSecret: "test-secret"}, clk)
	require.NoError(t, err)

	h := &testHarness{
		router:   gin.New(),
		verifier: verifier,
		clock:    clk,
		coach:    &fakeCoach{},
		history:  &fakeConversation{},
		profiles: &fakeProfiles{},
		credits:  &fakeCredits{},
		goals:    &fakeGoals{},
	}
	h.router.Use(ErrorHandlingMiddleware())

	srv := &Server{
		engine:          h.router,
		verifier:        verifier,
		coachSvc:        h.coach,
		conversationSvc: h.history,
		profileSvc:      h.profiles,
		creditSvc:       h.credits,
		goalSvc:         h.goals,
		chatLimiter:     limiter,
	}
	srv.registerAPIRoutes()
	return h
}

func (h *testHarness) token(t *testing.T) string {
	t.Helper()
	raw, err := h.verifier.Sign(testUserID, time.Hour)
	require.NoError(t, err)
	return raw
}

func (h *testHarness) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.token(t))
	}
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func TestChatReturnsCoachResponse(t *testing.T) {
	h := newTestHarness(t)
	h.coach.resp = coachdomain.TurnResponse{TurnID: "01HZX3K2QJ8G7M4N5P6R7S8T9V", Response: "Start with an emergency fund."}

	resp := h.do(t, http.MethodPost, "/api/chat", `{"message":"How do I save for a house?"}`, true)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Start with an emergency fund.", decodeBody(t, resp)["response"])
	assert.Equal(t, "01HZX3K2QJ8G7M4N5P6R7S8T9V", resp.Header().Get(headerTurnID))
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "How do I save for a house?", h.coach.lastReq.Message)
	assert.Equal(t, testUserID, h.coach.lastUser)
}

func TestChatRequiresBearerToken(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`, false)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "unauthorized", decodeBody(t, resp)["error"])
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, h.coach.calls)
}

func TestChatRejectsExpiredToken(t *testing.T) {
	h := newTestHarness(t)
	raw := h.token(t)
	h.clock.Advance(2 * time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Authorization", "Bearer "+raw)
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "unauthorized", decodeBody(t, resp)["error"])
	assert.Zero(t, h.coach.calls)
}

func TestChatRejectsInvalidBody(t *testing.T) {
	cases := map[string]string{
		"empty object": `{}`,
		"not json":     `hello`,
		"wrong type":   `{"message":42}`,
		"null message": `{"message":null}`,
		"missing body": ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h := newTestHarness(t)

			resp := h.do(t, http.MethodPost, "/api/chat", body, true)

			require.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, "message is required", decodeBody(t, resp)["error"])
			assert.Zero(t, h.coach.calls)
		})
	}
}

func TestChatMapsTurnErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"blank message", coachdomain.ErrInvalidMessage, http.StatusBadRequest, "message is required"},
		{"too long", coachdomain.ErrMessageTooLong, http.StatusBadRequest, "message is too long"},
		{"unauthenticated", coachdomain.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
		{"provider", fmt.Errorf("%w: %w", coachdomain.ErrProvider, errors.New("upstream said 500: quota exhausted")), http.StatusBadGateway, "failed to generate response"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHarness(t)
			h.coach.err = tc.err

			resp := h.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`, true)

			require.Equal(t, tc.status, resp.Code)
			assert.Equal(t, tc.message, decodeBody(t, resp)["error"])
			assert.NotContains(t, resp.Body.String(), "quota")
		})
	}
}

func TestPreflightReturnsNoContent(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(t, http.MethodOptions, "/api/chat", "", false)

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsAllowHeaders, resp.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, corsAllowMethods, resp.Header().Get("Access-Control-Allow-Methods"))
	assert.Empty(t, resp.Body.String())
	assert.Zero(t, h.coach.calls)
}

func TestChatHistory(t *testing.T) {
	h := newTestHarness(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h.history.messages = []conversationdomain.Message{
		{ID: snowflake.ID(1), UserID: testUserID, Message: "hi", IsUser: true, CreatedAt: created},
		{ID: snowflake.ID(2), UserID: testUserID, Message: "hello", IsUser: false, CreatedAt: created.Add(time.Second)},
	}

	resp := h.do(t, http.MethodGet, "/api/chat/history?limit=20", "", true)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 20, h.history.lastLimit)
	data := decodeBody(t, resp)["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	assert.Equal(t, "1", first["id"])
	assert.Equal(t, true, first["is_user"])
}

func TestChatHistoryRejectsBadLimit(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(t, http.MethodGet, "/api/chat/history?limit=abc", "", true)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "limit must be between 1 and 500", decodeBody(t, resp)["error"])
}

func TestUpsertProfileValidation(t *testing.T) {
	h := newTestHarness(t)
	h.profiles.err = profiledomain.ErrInvalidEmail

	resp := h.do(t, http.MethodPut, "/api/profile", `{"first_name":"Ana","email":"nope"}`, true)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "email is invalid", body["error"])
	require.NotNil(t, h.profiles.lastReq.FirstName)
	assert.Equal(t, "Ana", *h.profiles.lastReq.FirstName)
}

func TestGetCreditNotFound(t *testing.T) {
	h := newTestHarness(t)
	h.credits.err = creditdomain.ErrNotFound

	resp := h.do(t, http.MethodGet, "/api/credit", "", true)

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not found", decodeBody(t, resp)["error"])
}

func TestCreateGoal(t *testing.T) {
	h := newTestHarness(t)
	amount := 50000.0
	date := datatypes.Date(time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC))
	h.goals.goal = goaldomain.Goal{
		ID:           snowflake.ID(42),
		UserID:       testUserID,
		Title:        "Buy a house",
		TargetAmount: &amount,
		TargetDate:   &date,
		Priority:     goaldomain.PriorityHigh,
		Status:       goaldomain.StatusActive,
	}

	resp := h.do(t, http.MethodPost, "/api/goals", `{"title":"  Buy a house ","target_amount":50000,"target_date":"2027-06-30","priority":"high"}`, true)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Buy a house", h.goals.lastCreate.Title)
	require.NotNil(t, h.goals.lastCreate.Priority)
	assert.Equal(t, "high", *h.goals.lastCreate.Priority)
	assert.Nil(t, h.goals.lastCreate.Status, "absent status stays unset")
	data := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "42", data["id"])
	assert.Equal(t, "2027-06-30", data["target_date"])
	assert.Equal(t, "high", data["priority"])
}

func TestCreateGoalRejectsUnknownPriority(t *testing.T) {
	h := newTestHarness(t)
	h.goals.err = goaldomain.ErrInvalidPriority

	resp := h.do(t, http.MethodPost, "/api/goals", `{"title":"Trip","priority":"urgent"}`, true)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "priority must be one of high, medium, low", body["error"])
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "priority", errs[0].(map[string]any)["field"])
}

func TestGetGoalNotFound(t *testing.T) {
	h := newTestHarness(t)
	h.goals.err = goaldomain.ErrNotFound

	resp := h.do(t, http.MethodGet, "/api/goals/123", "", true)

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "123", h.goals.lastID)
}

func TestDeleteGoal(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(t, http.MethodDelete, "/api/goals/99", "", true)

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.True(t, h.goals.deleted)
	assert.Equal(t, "99", h.goals.lastID)
}
