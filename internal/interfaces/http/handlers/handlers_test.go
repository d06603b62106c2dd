package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/gorilla/mux"

	"github.com/sablepoint/dealdesk/internal/evaluator"
	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/persistence"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// --- in-memory repositories ---

type fakeDeals struct {
	deals  map[int64]*models.Deal
	nextID int64
}

func newFakeDeals() *fakeDeals {
	return &fakeDeals{deals: make(map[int64]*models.Deal), nextID: 1}
}

func (f *fakeDeals) Insert(_ context.Context, deal *models.Deal) error {
	deal.ID = f.nextID
	f.nextID++
	deal.CreatedAt = fixedNow
	deal.UpdatedAt = fixedNow
	clone := *deal
	f.deals[deal.ID] = &clone
	return nil
}

func (f *fakeDeals) Update(_ context.Context, deal *models.Deal) error {
	if _, ok := f.deals[deal.ID]; !ok {
		return fmt.Errorf("deal %d not found", deal.ID)
	}
	clone := *deal
	f.deals[deal.ID] = &clone
	return nil
}

func (f *fakeDeals) GetByID(_ context.Context, id int64) (*models.Deal, error) {
	deal, ok := f.deals[id]
	if !ok {
		return nil, nil
	}
	clone := *deal
	return &clone, nil
}

func (f *fakeDeals) List(_ context.Context, limit int) ([]models.Deal, error) {
	out := make([]models.Deal, 0, len(f.deals))
	for _, d := range f.deals {
		if len(out) >= limit {
			break
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDeals) ListByStage(_ context.Context, stage models.Stage, limit int) ([]models.Deal, error) {
	var out []models.Deal
	for _, d := range f.deals {
		if d.Stage == stage && len(out) < limit {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDeals) CountByStage(_ context.Context) (map[models.Stage]int64, error) {
	counts := make(map[models.Stage]int64)
	for _, d := range f.deals {
		counts[d.Stage]++
	}
	return counts, nil
}

type fakeContacts struct {
	contacts map[int64]*models.Contact
	warmth   map[int64]float64
	nextID   int64
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{
		contacts: make(map[int64]*models.Contact),
		warmth:   make(map[int64]float64),
		nextID:   1,
	}
}

func (f *fakeContacts) add(c models.Contact) {
	if c.ID == 0 {
		c.ID = f.nextID
	}
	if c.ID >= f.nextID {
		f.nextID = c.ID + 1
	}
	f.contacts[c.ID] = &c
}

func (f *fakeContacts) Insert(_ context.Context, contact *models.Contact) error {
	contact.ID = f.nextID
	f.nextID++
	clone := *contact
	f.contacts[contact.ID] = &clone
	return nil
}

func (f *fakeContacts) Update(_ context.Context, contact *models.Contact) error {
	clone := *contact
	f.contacts[contact.ID] = &clone
	return nil
}

func (f *fakeContacts) GetByID(_ context.Context, id int64) (*models.Contact, error) {
	contact, ok := f.contacts[id]
	if !ok {
		return nil, nil
	}
	clone := *contact
	return &clone, nil
}

func (f *fakeContacts) List(_ context.Context, limit int) ([]models.Contact, error) {
	out := make([]models.Contact, 0, len(f.contacts))
	for _, c := range f.contacts {
		if len(out) >= limit {
			break
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeContacts) UpdateWarmth(_ context.Context, id int64, score float64, lastTouch *time.Time) error {
	contact, ok := f.contacts[id]
	if !ok {
		return fmt.Errorf("contact %d not found", id)
	}
	contact.WarmthScore = score
	contact.LastTouchAt = lastTouch
	f.warmth[id] = score
	return nil
}

type fakeTouchpoints struct {
	byContact map[int64][]models.Touchpoint
	nextID    int64
}

func newFakeTouchpoints() *fakeTouchpoints {
	return &fakeTouchpoints{byContact: make(map[int64][]models.Touchpoint), nextID: 1}
}

func (f *fakeTouchpoints) Insert(_ context.Context, tp *models.Touchpoint) error {
	tp.ID = f.nextID
	f.nextID++
	tp.CreatedAt = fixedNow
	f.byContact[tp.ContactID] = append(f.byContact[tp.ContactID], *tp)
	return nil
}

func (f *fakeTouchpoints) ListByContact(_ context.Context, contactID int64, _ persistence.TimeRange, limit int) ([]models.Touchpoint, error) {
	tps := f.byContact[contactID]
	if len(tps) > limit {
		tps = tps[:limit]
	}
	return tps, nil
}

type fakePortfolio struct {
	positions []models.PortfolioPosition
}

func (f *fakePortfolio) Insert(_ context.Context, pos *models.PortfolioPosition) error {
	f.positions = append(f.positions, *pos)
	return nil
}

func (f *fakePortfolio) Update(_ context.Context, _ *models.PortfolioPosition) error { return nil }

func (f *fakePortfolio) GetByDealID(_ context.Context, dealID int64) (*models.PortfolioPosition, error) {
	for i := range f.positions {
		if f.positions[i].DealID == dealID {
			clone := f.positions[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakePortfolio) List(_ context.Context) ([]models.PortfolioPosition, error) {
	return f.positions, nil
}

func (f *fakePortfolio) InsertSnapshot(_ context.Context, _ *models.ValuationSnapshot) error {
	return nil
}

func (f *fakePortfolio) ListSnapshots(_ context.Context, _ int64, _ int) ([]models.ValuationSnapshot, error) {
	return nil, nil
}

type fakeContent struct {
	posts  map[int64]*models.InsightPost
	nextID int64
}

func newFakeContent() *fakeContent {
	return &fakeContent{posts: make(map[int64]*models.InsightPost), nextID: 1}
}

func (f *fakeContent) Insert(_ context.Context, post *models.InsightPost) error {
	post.ID = f.nextID
	f.nextID++
	clone := *post
	f.posts[post.ID] = &clone
	return nil
}

func (f *fakeContent) Update(_ context.Context, post *models.InsightPost) error {
	clone := *post
	f.posts[post.ID] = &clone
	return nil
}

func (f *fakeContent) GetByID(_ context.Context, id int64) (*models.InsightPost, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	clone := *post
	return &clone, nil
}

func (f *fakeContent) List(_ context.Context, limit int) ([]models.InsightPost, error) {
	out := make([]models.InsightPost, 0, len(f.posts))
	for _, p := range f.posts {
		if len(out) >= limit {
			break
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeContent) ListDue(_ context.Context, now time.Time) ([]models.InsightPost, error) {
	var out []models.InsightPost
	for _, p := range f.posts {
		if p.Due(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeContent) MarkPublished(_ context.Context, id int64, at time.Time) error {
	post, ok := f.posts[id]
	if !ok || post.Status != models.PostScheduled {
		return fmt.Errorf("post %d not in scheduled state", id)
	}
	post.Status = models.PostPublished
	post.PublishedAt = &at
	return nil
}

var (
	_ persistence.DealsRepo       = (*fakeDeals)(nil)
	_ persistence.ContactsRepo    = (*fakeContacts)(nil)
	_ persistence.TouchpointsRepo = (*fakeTouchpoints)(nil)
	_ persistence.PortfolioRepo   = (*fakePortfolio)(nil)
	_ persistence.ContentRepo     = (*fakeContent)(nil)
)

type fakeScorer struct {
	result *evaluator.ScoreResult
	err    error
	calls  int
}

func (f *fakeScorer) Score(_ context.Context, _ *models.Deal) (*evaluator.ScoreResult, error) {
	f.calls++
	return f.result, f.err
}

// --- harness ---

type testEnv struct {
	deals       *fakeDeals
	contacts    *fakeContacts
	touchpoints *fakeTouchpoints
	portfolio   *fakePortfolio
	content     *fakeContent
	scorer      *fakeScorer
	handlers    *Handlers
	router      *mux.Router
}

func newTestEnv() *testEnv {
	env := &testEnv{
		deals:       newFakeDeals(),
		contacts:    newFakeContacts(),
		touchpoints: newFakeTouchpoints(),
		portfolio:   &fakePortfolio{},
		content:     newFakeContent(),
		scorer:      &fakeScorer{},
	}
	env.handlers = NewHandlers(Config{
		Repos: persistence.Repository{
			Deals:       env.deals,
			Contacts:    env.contacts,
			Touchpoints: env.touchpoints,
			Portfolio:   env.portfolio,
			Content:     env.content,
		},
		Scorer: env.scorer,
		Hub:    NewHub(),
		Now:    func() time.Time { return fixedNow },
	})

	env.router = mux.NewRouter()
	h := env.handlers
	env.router.HandleFunc("/health", h.Health).Methods("GET")
	env.router.HandleFunc("/deals", h.ListDeals).Methods("GET")
	env.router.HandleFunc("/deals", h.CreateDeal).Methods("POST")
	env.router.HandleFunc("/deals/{id}", h.GetDeal).Methods("GET")
	env.router.HandleFunc("/deals/{id}/memo", h.DealMemo).Methods("GET")
	env.router.HandleFunc("/deals/{id}/stage", h.AdvanceStage).Methods("POST")
	env.router.HandleFunc("/deals/{id}/score", h.ScoreDeal).Methods("POST")
	env.router.HandleFunc("/contacts", h.ListContacts).Methods("GET")
	env.router.HandleFunc("/contacts", h.CreateContact).Methods("POST")
	env.router.HandleFunc("/contacts/{id}", h.UpdateContact).Methods("PUT")
	env.router.HandleFunc("/contacts/{id}/touchpoints", h.ListTouchpoints).Methods("GET")
	env.router.HandleFunc("/contacts/{id}/touchpoints", h.CreateTouchpoint).Methods("POST")
	env.router.HandleFunc("/network/path", h.NetworkPath).Methods("GET")
	env.router.HandleFunc("/portfolio", h.Portfolio).Methods("GET")
	env.router.HandleFunc("/content", h.ListContent).Methods("GET")
	env.router.HandleFunc("/content", h.CreateContent).Methods("POST")
	env.router.HandleFunc("/content/{id}/schedule", h.ScheduleContent).Methods("POST")
	env.router.HandleFunc("/pipeline/velocity", h.PipelineVelocity).Methods("GET")
	env.router.HandleFunc("/backtest", h.Backtest).Methods("GET")
	return env
}

func (env *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) seedDeal(company string, stage models.Stage, outcome models.Outcome, attrs map[string]interface{}) *models.Deal {
	deal := &models.Deal{
		Company:      company,
		Sector:       "fintech",
		Stage:        stage,
		Outcome:      outcome,
		Memo:         "Strong founding team with early revenue.",
		StageHistory: []models.StageEntry{{Stage: models.StageSourced, EnteredAt: fixedNow.Add(-30 * 24 * time.Hour)}},
		Attributes:   attrs,
	}
	if err := env.deals.Insert(context.Background(), deal); err != nil {
		panic(err)
	}
	return deal
}

func decodeError(t interface{ Fatalf(string, ...interface{}) }, rec *httptest.ResponseRecorder) ErrorResponse {
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return er
}

var errBoom = errors.New("boom")
