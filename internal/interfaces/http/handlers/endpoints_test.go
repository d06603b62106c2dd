package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sablepoint/dealdesk/internal/cache"
	"github.com/sablepoint/dealdesk/internal/evaluator"
	"github.com/sablepoint/dealdesk/internal/models"
)

func TestHealth_ReportsComponents(t *testing.T) {
	env := newTestEnv()

	rec := env.do("GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "configured", resp.Components["evaluator"])
}

func TestHealth_DegradedOnDBFailure(t *testing.T) {
	env := newTestEnv()
	env.handlers.pingDB = func(context.Context) error { return errBoom }

	rec := env.do("GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "boom", resp.Components["database"])
}

func TestCreateDeal(t *testing.T) {
	env := newTestEnv()

	rec := env.do("POST", "/deals", CreateDealRequest{
		Company:   "Quantia",
		Sector:    "devtools",
		CheckSize: 500000,
		Valuation: 8000000,
		Memo:      "Seed round, strong usage growth.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var deal models.Deal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deal))
	assert.Equal(t, int64(1), deal.ID)
	assert.Equal(t, models.StageSourced, deal.Stage)
	assert.Equal(t, models.OutcomePending, deal.Outcome)
	require.Len(t, deal.StageHistory, 1)
	assert.Equal(t, models.StageSourced, deal.StageHistory[0].Stage)
}

func TestCreateDeal_MissingCompany(t *testing.T) {
	env := newTestEnv()

	rec := env.do("POST", "/deals", CreateDealRequest{Sector: "fintech"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_company", decodeError(t, rec).Code)
}

func TestGetDeal_NotFound(t *testing.T) {
	env := newTestEnv()

	rec := env.do("GET", "/deals/42", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "deal_not_found", decodeError(t, rec).Code)
}

func TestDealMemo_SplitsSections(t *testing.T) {
	env := newTestEnv()
	deal := env.seedDeal("Quantia", models.StageDiligence, models.OutcomePending, nil)
	deal.Memo = "Overview line.\n\n## Team\nTwo repeat founders.\n\n## Market\nLarge and growing."
	require.NoError(t, env.deals.Update(context.Background(), deal))

	rec := env.do("GET", "/deals/1/memo", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MemoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Quantia", resp.Company)
	require.Len(t, resp.Sections, 3)
	assert.Equal(t, "", resp.Sections[0].Title)
	assert.Equal(t, "Team", resp.Sections[1].Title)
	assert.Equal(t, "Two repeat founders.", resp.Sections[1].Body)
}

func TestAdvanceStage(t *testing.T) {
	env := newTestEnv()
	deal := env.seedDeal("Quantia", models.StageSourced, models.OutcomePending, nil)

	rec := env.do("POST", "/deals/1/stage", StageRequest{Stage: "screening"})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.deals.GetByID(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageScreening, stored.Stage)
	require.Len(t, stored.StageHistory, 2)
	assert.Equal(t, fixedNow, stored.StageHistory[1].EnteredAt)
}

func TestAdvanceStage_RejectsSkip(t *testing.T) {
	env := newTestEnv()
	env.seedDeal("Quantia", models.StageSourced, models.OutcomePending, nil)

	rec := env.do("POST", "/deals/1/stage", StageRequest{Stage: "diligence"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec).Code)
}

func TestAdvanceStage_CloseRequiresOutcome(t *testing.T) {
	env := newTestEnv()
	env.seedDeal("Quantia", models.StageTermSheet, models.OutcomePending, nil)

	rec := env.do("POST", "/deals/1/stage", StageRequest{Stage: "closed"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do("POST", "/deals/1/stage", StageRequest{Stage: "closed", Outcome: "invested"})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, _ := env.deals.GetByID(context.Background(), 1)
	assert.Equal(t, models.StageClosed, stored.Stage)
	assert.Equal(t, models.OutcomeInvested, stored.Outcome)
}

func TestScoreDeal(t *testing.T) {
	env := newTestEnv()
	env.seedDeal("Quantia", models.StageDiligence, models.OutcomePending, nil)
	env.scorer.result = &evaluator.ScoreResult{
		Total: 82, Team: 25, Market: 27, Traction: 20, Terms: 10,
		Rationale: "Strong team and traction for the stage.",
	}

	rec := env.do("POST", "/deals/1/score", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 82.0, resp.Total)
	assert.Equal(t, "Quantia", resp.Company)

	// Score persists into deal attributes for later backtests
	stored, _ := env.deals.GetByID(context.Background(), 1)
	assert.Equal(t, 82.0, stored.Attributes["ai_score"])
	assert.Equal(t, 1, env.scorer.calls)
}

func TestScoreDeal_Unavailable(t *testing.T) {
	env := newTestEnv()
	env.seedDeal("Quantia", models.StageDiligence, models.OutcomePending, nil)
	env.scorer.err = evaluator.ErrRateLimited

	rec := env.do("POST", "/deals/1/score", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "evaluator_unavailable", decodeError(t, rec).Code)
}

func TestScoreDeal_RequiresMemo(t *testing.T) {
	env := newTestEnv()
	deal := env.seedDeal("Quantia", models.StageDiligence, models.OutcomePending, nil)
	deal.Memo = ""
	require.NoError(t, env.deals.Update(context.Background(), deal))

	rec := env.do("POST", "/deals/1/score", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "missing_memo", decodeError(t, rec).Code)
	assert.Zero(t, env.scorer.calls)
}

func TestCreateContact_SeedsWarmthFloor(t *testing.T) {
	env := newTestEnv()

	rec := env.do("POST", "/contacts", CreateContactRequest{
		Name: "Ben Ruiz", Organization: "Northgate Capital", Tier: "capital_allocator",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var contact models.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contact))
	assert.Equal(t, 2.0, contact.WarmthScore) // decay floor for never-touched allocators
}

func TestCreateContact_InvalidTier(t *testing.T) {
	env := newTestEnv()

	rec := env.do("POST", "/contacts", CreateContactRequest{Name: "Ben", Tier: "vip"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_tier", decodeError(t, rec).Code)
}

func TestCreateTouchpoint_RefreshesWarmth(t *testing.T) {
	env := newTestEnv()
	env.contacts.add(models.Contact{
		ID: 1, Name: "Ava Stone", Organization: "Sablepoint",
		Tier: models.TierConnector, WarmthScore: 1.0,
	})

	rec := env.do("POST", "/contacts/1/touchpoints", TouchpointRequest{
		Channel: "call", Note: "Intro call about the fund.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// A touchpoint today puts the contact back in the fresh window
	assert.Equal(t, 10.0, env.contacts.warmth[1])

	stored, _ := env.contacts.GetByID(context.Background(), 1)
	require.NotNil(t, stored.LastTouchAt)
	assert.Equal(t, fixedNow, *stored.LastTouchAt)
}

func TestCreateTouchpoint_RequiresChannel(t *testing.T) {
	env := newTestEnv()
	env.contacts.add(models.Contact{ID: 1, Name: "Ava Stone", Tier: models.TierConnector})

	rec := env.do("POST", "/contacts/1/touchpoints", TouchpointRequest{Note: "no channel"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_channel", decodeError(t, rec).Code)
}

func seedNetwork(env *testEnv) {
	env.contacts.add(models.Contact{
		ID: 1, Name: "Ava Stone", Organization: "Sablepoint",
		Tier: models.TierConnector, WarmthScore: 9, AccessPaths: []int64{2},
	})
	env.contacts.add(models.Contact{
		ID: 2, Name: "Ben Ruiz", Organization: "Northgate Capital",
		Tier: models.TierCapitalAllocator, WarmthScore: 8, AccessPaths: []int64{3},
	})
	env.contacts.add(models.Contact{
		ID: 3, Name: "Cara Li", Organization: "Quantia",
		Tier: models.TierFounder, WarmthScore: 5,
	})
	env.contacts.add(models.Contact{
		ID: 4, Name: "Dan Iso", Organization: "Isolated LLC",
		Tier: models.TierAdvisor, WarmthScore: 2,
	})
}

func TestNetworkPath_Direct(t *testing.T) {
	env := newTestEnv()
	seedNetwork(env)

	rec := env.do("GET", "/network/path?from=1&to=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Target string `json:"target"`
		Direct bool   `json:"direct"`
		Steps  []struct {
			ContactID int64  `json:"contact_id"`
			Via       string `json:"via"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Direct)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, int64(2), result.Steps[0].ContactID)
}

func TestNetworkPath_TwoHopViaBridge(t *testing.T) {
	env := newTestEnv()
	seedNetwork(env)

	rec := env.do("GET", "/network/path?from=1&to=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Direct bool `json:"direct"`
		Steps  []struct {
			ContactID int64 `json:"contact_id"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Direct)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, int64(2), result.Steps[0].ContactID)
	assert.Equal(t, int64(3), result.Steps[1].ContactID)
}

func TestNetworkPath_FreeTextResolution(t *testing.T) {
	env := newTestEnv()
	seedNetwork(env)

	rec := env.do("GET", "/network/path?from=ava&to=quantia", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "Cara Li"))
}

func TestNetworkPath_NoPathIsExplicit(t *testing.T) {
	env := newTestEnv()
	seedNetwork(env)

	rec := env.do("GET", "/network/path?from=1&to=4", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_path_found", decodeError(t, rec).Code)
}

func TestNetworkPath_UnknownContact(t *testing.T) {
	env := newTestEnv()
	seedNetwork(env)

	rec := env.do("GET", "/network/path?from=1&to=99", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "contact_not_found", decodeError(t, rec).Code)
}

func TestNetworkPath_MissingParams(t *testing.T) {
	env := newTestEnv()

	rec := env.do("GET", "/network/path?from=1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_parameter", decodeError(t, rec).Code)
}

func TestPortfolio_Totals(t *testing.T) {
	env := newTestEnv()
	env.portfolio.positions = []models.PortfolioPosition{
		{DealID: 1, Company: "Quantia", Invested: 1000000, OwnershipPct: 10, CurrentValuation: 20000000},
		{DealID: 2, Company: "Helix", Invested: 500000, OwnershipPct: 5, CurrentValuation: 10000000},
	}

	rec := env.do("GET", "/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PortfolioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Positions, 2)
	assert.Equal(t, 2000000.0, resp.Positions[0].CurrentValue)
	assert.Equal(t, 2.0, resp.Positions[0].MOIC)
	assert.Equal(t, 1500000.0, resp.TotalInvested)
	assert.Equal(t, 2500000.0, resp.TotalValue)
}

func TestCreateContent_ScheduledNeedsTime(t *testing.T) {
	env := newTestEnv()

	rec := env.do("POST", "/content", CreatePostRequest{Title: "Q2 letter", Status: "scheduled"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_schedule", decodeError(t, rec).Code)
}

func TestCreateContent_Draft(t *testing.T) {
	env := newTestEnv()

	rec := env.do("POST", "/content", CreatePostRequest{Title: "Q2 letter", Body: "..."})
	require.Equal(t, http.StatusCreated, rec.Code)

	var post models.InsightPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, models.PostDraft, post.Status)
}

func TestBacktest(t *testing.T) {
	env := newTestEnv()
	env.seedDeal("A", models.StageClosed, models.OutcomeInvested, map[string]interface{}{"ai_score": 80.0})
	env.seedDeal("B", models.StageClosed, models.OutcomeInvested, map[string]interface{}{"ai_score": 60.0})
	env.seedDeal("C", models.StageClosed, models.OutcomePassed, map[string]interface{}{"ai_score": 90.0})
	env.seedDeal("D", models.StageDiligence, models.OutcomePending, map[string]interface{}{"ai_score": 75.0})
	env.seedDeal("E", models.StageClosed, models.OutcomePassed, nil) // never scored

	rec := env.do("GET", "/backtest?threshold=70", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Deals    int     `json:"deals"`
		Flagged  int     `json:"flagged"`
		Hits     int     `json:"hits"`
		Misses   int     `json:"misses"`
		MissRate float64 `json:"miss_rate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 3, result.Deals) // pending and unscored excluded
	assert.Equal(t, 2, result.Flagged)
	assert.Equal(t, 1, result.Hits)
	assert.Equal(t, 1, result.Misses)
	assert.Equal(t, 0.5, result.MissRate) // one of two invested missed
}

func TestBacktest_InvalidThreshold(t *testing.T) {
	env := newTestEnv()

	rec := env.do("GET", "/backtest?threshold=abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do("GET", "/backtest?threshold=250", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPipelineVelocity(t *testing.T) {
	env := newTestEnv()
	env.seedDeal("A", models.StageScreening, models.OutcomePending, nil)

	rec := env.do("GET", "/pipeline/velocity", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		Deals       int              `json:"deals"`
		StageCounts map[string]int64 `json:"stage_counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Deals)
	assert.Equal(t, int64(1), report.StageCounts["screening"])
}

func TestEvents_BroadcastsStageChanges(t *testing.T) {
	env := newTestEnv()
	env.router.HandleFunc("/events", env.handlers.Events).Methods("GET")

	server := httptest.NewServer(env.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.handlers.hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	env.handlers.hub.Broadcast(StageEvent{
		DealID: 7, Company: "Quantia",
		From: models.StageSourced, To: models.StageScreening,
		Outcome: models.OutcomePending, At: fixedNow,
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event StageEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, int64(7), event.DealID)
	assert.Equal(t, models.StageScreening, event.To)
}

func TestListContacts_CachedWarmthWins(t *testing.T) {
	env := newTestEnv()
	client, mock := redismock.NewClientMock()
	env.handlers.cache = cache.NewWarmthCache(client, time.Hour)

	env.contacts.add(models.Contact{
		ID: 1, Name: "Ava Stone", Tier: models.TierConnector, WarmthScore: 1.0,
	})
	mock.ExpectGet("warmth:1").SetVal("9.5")

	rec := env.do("GET", "/contacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var contacts []models.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, 9.5, contacts[0].WarmthScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListContacts_CacheMissRecomputesAndBackfills(t *testing.T) {
	env := newTestEnv()
	client, mock := redismock.NewClientMock()
	env.handlers.cache = cache.NewWarmthCache(client, time.Hour)

	touch := fixedNow.Add(-24 * time.Hour) // within the fresh window
	env.contacts.add(models.Contact{
		ID: 1, Name: "Ava Stone", Tier: models.TierConnector,
		WarmthScore: 1.0, LastTouchAt: &touch,
	})
	mock.ExpectGet("warmth:1").RedisNil()
	mock.ExpectSet("warmth:1", "10.0000", time.Hour).SetVal("OK")

	rec := env.do("GET", "/contacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var contacts []models.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, 10.0, contacts[0].WarmthScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListContacts_DecaysWithoutCache(t *testing.T) {
	env := newTestEnv()
	env.contacts.add(models.Contact{
		ID: 1, Name: "Ava Stone", Tier: models.TierConnector, WarmthScore: 9.0,
	})

	rec := env.do("GET", "/contacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var contacts []models.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	// never touched, so the stored score falls back to the tier floor
	assert.Equal(t, 1.0, contacts[0].WarmthScore)
}

func TestAdvanceStage_InvestedCloseOpensPosition(t *testing.T) {
	env := newTestEnv()
	deal := &models.Deal{
		Company: "Quantia", Stage: models.StageTermSheet, Outcome: models.OutcomePending,
		CheckSize: 500000, Valuation: 10000000,
		StageHistory: []models.StageEntry{{Stage: models.StageSourced, EnteredAt: fixedNow.Add(-30 * 24 * time.Hour)}},
	}
	require.NoError(t, env.deals.Insert(context.Background(), deal))

	rec := env.do("POST", "/deals/1/stage", StageRequest{Stage: "closed", Outcome: "invested"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, env.portfolio.positions, 1)
	pos := env.portfolio.positions[0]
	assert.Equal(t, deal.ID, pos.DealID)
	assert.Equal(t, "Quantia", pos.Company)
	assert.Equal(t, 500000.0, pos.Invested)
	assert.Equal(t, 10000000.0, pos.EntryValuation)
	assert.Equal(t, 5.0, pos.OwnershipPct)
	assert.Equal(t, models.HealthHealthy, pos.Health)
	assert.Equal(t, fixedNow, pos.EnteredAt)
}

func TestAdvanceStage_PassedCloseOpensNoPosition(t *testing.T) {
	env := newTestEnv()
	env.seedDeal("Quantia", models.StageTermSheet, models.OutcomePending, nil)

	rec := env.do("POST", "/deals/1/stage", StageRequest{Stage: "closed", Outcome: "passed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.portfolio.positions)
}

func TestAdvanceStage_ExistingPositionNotDuplicated(t *testing.T) {
	env := newTestEnv()
	env.seedDeal("Quantia", models.StageTermSheet, models.OutcomePending, nil)
	env.portfolio.positions = []models.PortfolioPosition{{ID: 1, DealID: 1, Company: "Quantia"}}

	rec := env.do("POST", "/deals/1/stage", StageRequest{Stage: "closed", Outcome: "invested"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.portfolio.positions, 1)
}

func TestUpdateContact_TierChangeRescoresWarmth(t *testing.T) {
	env := newTestEnv()
	env.contacts.add(models.Contact{
		ID: 1, Name: "Ben Ruiz", Tier: models.TierConnector, WarmthScore: 1.0,
	})

	rec := env.do("PUT", "/contacts/1", UpdateContactRequest{Tier: "capital_allocator"})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, _ := env.contacts.GetByID(context.Background(), 1)
	assert.Equal(t, models.TierCapitalAllocator, stored.Tier)
	assert.Equal(t, 2.0, stored.WarmthScore) // allocator floor, never touched
}

func TestUpdateContact_InvalidTier(t *testing.T) {
	env := newTestEnv()
	env.contacts.add(models.Contact{ID: 1, Name: "Ben Ruiz", Tier: models.TierConnector})

	rec := env.do("PUT", "/contacts/1", UpdateContactRequest{Tier: "vip"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_tier", decodeError(t, rec).Code)
}

func TestScheduleContent_DraftBecomesScheduled(t *testing.T) {
	env := newTestEnv()
	rec := env.do("POST", "/content", CreatePostRequest{Title: "Q2 letter", Body: "..."})
	require.Equal(t, http.StatusCreated, rec.Code)

	at := fixedNow.Add(48 * time.Hour)
	rec = env.do("POST", "/content/1/schedule", SchedulePostRequest{ScheduledAt: at})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, _ := env.content.GetByID(context.Background(), 1)
	assert.Equal(t, models.PostScheduled, stored.Status)
	require.NotNil(t, stored.ScheduledAt)
	assert.Equal(t, at, *stored.ScheduledAt)
}

func TestScheduleContent_PublishedIsFinal(t *testing.T) {
	env := newTestEnv()
	post := &models.InsightPost{Title: "Q1 letter", Status: models.PostPublished}
	require.NoError(t, env.content.Insert(context.Background(), post))

	rec := env.do("POST", "/content/1/schedule", SchedulePostRequest{ScheduledAt: fixedNow.Add(time.Hour)})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_status", decodeError(t, rec).Code)
}

func TestScheduleContent_NotFound(t *testing.T) {
	env := newTestEnv()

	rec := env.do("POST", "/content/9/schedule", SchedulePostRequest{ScheduledAt: fixedNow.Add(time.Hour)})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "post_not_found", decodeError(t, rec).Code)
}

func TestScheduleContent_RequiresTime(t *testing.T) {
	env := newTestEnv()
	rec := env.do("POST", "/content", CreatePostRequest{Title: "Q2 letter"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do("POST", "/content/1/schedule", SchedulePostRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_schedule", decodeError(t, rec).Code)
}
