package shell

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaideas/goodaideas/internal/backend"
	"github.com/goodaideas/goodaideas/internal/backend/backendtest"
	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/id"
	"github.com/goodaideas/goodaideas/internal/metrics"
	"github.com/goodaideas/goodaideas/internal/moderation"
	"github.com/goodaideas/goodaideas/internal/realtime"
	"github.com/goodaideas/goodaideas/internal/search"
	"github.com/goodaideas/goodaideas/internal/service"
	"github.com/goodaideas/goodaideas/internal/sse"
	"github.com/goodaideas/goodaideas/internal/state"
	"github.com/goodaideas/goodaideas/internal/wire"
)

var testNow = time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)

// testServer wraps the API server for testing.
type testServer struct {
	*Server
	api   humatest.TestAPI
	fake  *backendtest.Fake
	store *state.Store
}

// setupTestServer creates a server over a fresh fake collaborator with
// every feature enabled.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	fake := backendtest.New()
	clock := func() time.Time { return testNow }
	store := state.New(state.Options{Backend: fake, Logger: logger, Clock: clock})

	index, err := search.Open(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	challenges := service.NewChallengeService(fake, store, logger)
	achievements := service.NewAchievementService(fake, store, logger)
	searchSvc := service.NewSearchService(index, fake, logger)
	session := service.NewSessionService(fake, store, logger)
	t.Cleanup(session.Close)

	chat := realtime.NewTeamChat(realtime.ChatDeps{
		Rows:    fake,
		Adapter: realtime.NewAdapter(fake, nil, realtime.Options{}),
		Filter:  moderation.New(),
		UserID:  func() string { return store.Snapshot().Session.UserID() },
		Logger:  logger,
	})
	t.Cleanup(chat.Close)

	manager := sse.NewManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)
	t.Cleanup(cancel)

	srv := NewServer(Options{
		Store: store,
		Services: &Services{
			Session:     session,
			Settings:    service.NewSettingsService(fake, store, logger),
			Ideas:       service.NewIdeaService(fake, store, moderation.New(), challenges, achievements, searchSvc, logger),
			Comments:    service.NewCommentService(fake, store, moderation.New(), challenges, achievements, logger),
			Collections: service.NewCollectionService(fake, store, logger),
			Leaderboard: service.NewLeaderboardService(fake, logger),
			Challenges:  challenges,
			Search:      searchSvc,
			Activity:    service.NewActivityService(fake, store, logger),
			Chat:        chat,
		},
		SSE:      manager,
		Gatherer: prometheus.NewRegistry(),
		BaseURL:  "https://goodaideas.example",
		Logger:   logger,
		Now:      clock,
	})

	return &testServer{
		Server: srv,
		api:    humatest.Wrap(t, srv.API()),
		fake:   fake,
		store:  store,
	}
}

// signIn establishes a session for a new user with a users row.
func (ts *testServer) signIn(username string) string {
	uid := id.NewUUID()
	ts.fake.Seed(state.TableUsers, backend.Row{"id": uid, "username": username, "points": 0})
	ts.store.SetSession(&domain.Session{AccessToken: "tok", User: domain.SessionUser{ID: uid, Email: username + "@example.com"}})
	ts.store.SetProfile(&domain.Profile{ID: uid, Username: username})
	return uid
}

func (ts *testServer) seedIdea(userID, title string) string {
	ideaID := id.NewUUID()
	ts.fake.Seed(service.TableIdeas, backend.Row{
		"id":          ideaID,
		"user_id":     userID,
		"title":       title,
		"description": "about " + title,
		"category":    "Productivity",
		"tags":        []any{"ai"},
		"rating":      0,
		"created_at":  wire.Timestamp(testNow),
	})
	return ideaID
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/health")

	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[HealthResponse](t, resp.Body.String())
	assert.Equal(t, "healthy", body.Status)
	assert.False(t, body.Authenticated)
}

func TestGetState_Anonymous(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/state")

	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[StateResponse](t, resp.Body.String())
	assert.False(t, body.Authenticated)
	assert.Nil(t, body.User)
	assert.Equal(t, domain.ThemeSystem, body.Settings.Theme)
}

func TestLogin_Flow(t *testing.T) {
	ts := setupTestServer(t)
	ts.fake.AddAccount("alice@example.com", "hunter22")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email": "alice@example.com", "password": "hunter22",
	})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode[StateResponse](t, resp.Body.String())
	assert.True(t, body.Authenticated)
	require.NotNil(t, body.User)
	assert.Equal(t, "alice@example.com", body.User.Email)
	assert.NotContains(t, resp.Body.String(), "access_token")

	resp = ts.api.Post("/api/v1/auth/logout")
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
	assert.False(t, ts.store.Snapshot().Authenticated())
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := setupTestServer(t)
	ts.fake.AddAccount("alice@example.com", "hunter22")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email": "alice@example.com", "password": "nope",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	body := decode[APIError](t, resp.Body.String())
	assert.Equal(t, "Invalid login credentials", body.Message)
}

func TestSignUp_UsernameIsOptional(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"email": "carol@example.com", "password": "secret1",
	})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode[StateResponse](t, resp.Body.String())
	assert.True(t, body.Authenticated)
	require.NotNil(t, body.Profile)
	assert.Equal(t, "carol", body.Profile.Username)
}

func TestUpdateSettings(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Patch("/api/v1/settings", map[string]any{"theme": "dark"})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, domain.ThemeDark, ts.store.Snapshot().Settings.Theme)
}

func TestUpdateSettings_InvalidTheme(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Patch("/api/v1/settings", map[string]any{"theme": "neon"})

	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, domain.ThemeSystem, ts.store.Snapshot().Settings.Theme)
}

func TestNotifications_MarkRead(t *testing.T) {
	ts := setupTestServer(t)
	n := ts.store.AddNotification(domain.NotifyInfo, "hello")
	ts.store.AddNotification(domain.NotifyInfo, "again")

	resp := ts.api.Post("/api/v1/notifications/" + n.ID + "/read")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decode[ChangedResponse](t, resp.Body.String()).Changed)
	assert.Equal(t, 1, ts.store.Snapshot().Notifications.Unread)

	resp = ts.api.Post("/api/v1/notifications/read-all")
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Zero(t, ts.store.Snapshot().Notifications.Unread)
}

func TestIdeas_GetDetail(t *testing.T) {
	ts := setupTestServer(t)
	ideaID := ts.seedIdea(id.NewUUID(), "Solar kettle")

	resp := ts.api.Get("/api/v1/ideas/" + ideaID)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode[domain.IdeaDetail](t, resp.Body.String())
	assert.Equal(t, "Solar kettle", body.Title)
	assert.Zero(t, body.RatingCount)
}

func TestIdeas_GetErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"missing", "/api/v1/ideas/" + id.NewUUID(), http.StatusNotFound, "NOT_FOUND"},
		{"malformed id", "/api/v1/ideas/not-a-uuid", http.StatusBadRequest, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t)

			resp := ts.api.Get(tt.path)

			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, tt.code, decode[APIError](t, resp.Body.String()).Code)
		})
	}
}

func TestIdeas_CreateRequiresSession(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/ideas", map[string]any{"title": "Solar kettle"})

	assert.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())
	assert.Empty(t, ts.fake.Rows(service.TableIdeas))
}

func TestIdeas_CreateRateAndComment(t *testing.T) {
	ts := setupTestServer(t)
	ts.signIn("alice")

	resp := ts.api.Post("/api/v1/ideas", map[string]any{
		"title": "Solar kettle", "description": "Boils water with sunlight", "category": "Sustainability",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	idea := decode[domain.Idea](t, resp.Body.String())

	resp = ts.api.Post("/api/v1/ideas/"+idea.ID+"/rating", map[string]any{"score": 4})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"average":4`)

	resp = ts.api.Post("/api/v1/ideas/"+idea.ID+"/comments", map[string]any{"content": "<b>Great</b> idea"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "Great idea", decode[domain.Comment](t, resp.Body.String()).Content)

	resp = ts.api.Get("/api/v1/ideas/" + idea.ID + "/comments")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Great idea")
}

func TestIdeas_Share(t *testing.T) {
	ts := setupTestServer(t)
	ideaID := ts.seedIdea(id.NewUUID(), "Solar kettle")

	resp := ts.api.Get("/api/v1/ideas/" + ideaID + "/share")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	share := decode[moderation.Share](t, resp.Body.String())
	link := "https://goodaideas.example/ideas/" + ideaID
	assert.Equal(t, link, share.URL)
	assert.Equal(t, `Check out "Solar kettle" - about Solar kettle`, share.Text)
	assert.Contains(t, share.Markdown, link)
	assert.NotContains(t, share.Text, link)
}

func TestIdeas_Versions(t *testing.T) {
	ts := setupTestServer(t)
	ideaID := ts.seedIdea(id.NewUUID(), "Solar kettle")
	ts.fake.Seed(service.TableVersions,
		backend.Row{"id": "v1", "idea_id": ideaID, "version_number": 1, "title": "Kettle"},
		backend.Row{"id": "v2", "idea_id": ideaID, "version_number": 2, "title": "Solar kettle", "changes": map[string]any{"title": "renamed"}},
	)

	resp := ts.api.Get("/api/v1/ideas/" + ideaID + "/versions")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode[struct {
		Versions []domain.IdeaVersion `json:"versions"`
	}](t, resp.Body.String())
	require.Len(t, body.Versions, 2)
	assert.Equal(t, 2, body.Versions[0].VersionNumber)
	assert.Equal(t, "renamed", body.Versions[0].Changes["title"])
}

func TestActivity(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/activity")
	assert.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())

	uid := ts.signIn("alice")
	ts.fake.Seed(service.TableActivity, backend.Row{
		"id": "a1", "user_id": uid, "type": "idea",
		"content":    map[string]any{"idea_title": "Solar kettle"},
		"created_at": wire.Timestamp(testNow),
	})

	resp = ts.api.Get("/api/v1/activity?limit=5")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"summary":"shared a new idea: \"Solar kettle\""`)
	assert.Contains(t, resp.Body.String(), `"username":"alice"`)
}

func TestCollections_CreateAndAdd(t *testing.T) {
	ts := setupTestServer(t)
	uid := ts.signIn("alice")
	ideaID := ts.seedIdea(uid, "Solar kettle")

	resp := ts.api.Post("/api/v1/collections", map[string]any{"name": "Energy"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	c := decode[domain.Collection](t, resp.Body.String())

	resp = ts.api.Post("/api/v1/collections/"+c.ID+"/ideas", map[string]any{"idea_id": ideaID})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []string{ideaID}, decode[domain.Collection](t, resp.Body.String()).IdeaIDs)

	resp = ts.api.Delete("/api/v1/collections/" + c.ID)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
	assert.Empty(t, ts.store.Snapshot().Collections)
}

func TestChallenges(t *testing.T) {
	ts := setupTestServer(t)
	ts.signIn("alice")

	resp := ts.api.Get("/api/v1/challenges")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body struct {
		Challenges []domain.Challenge `json:"challenges"`
		ResetsIn   string             `json:"resets_in"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Len(t, body.Challenges, 3)
	assert.Equal(t, "09:30:00", body.ResetsIn)
}

func TestSearch(t *testing.T) {
	ts := setupTestServer(t)
	ts.seedIdea(id.NewUUID(), "Solar kettle")
	ts.seedIdea(id.NewUUID(), "Rain barrel")

	resp := ts.api.Get("/api/v1/search?q=kettle")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decode[search.Result](t, resp.Body.String())
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Solar kettle", result.Hits[0].Title)
}

func TestChat_SendRequiresOpenTeam(t *testing.T) {
	ts := setupTestServer(t)
	ts.signIn("alice")

	resp := ts.api.Post("/api/v1/chat/messages", map[string]any{"content": "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = ts.api.Put("/api/v1/chat", map[string]any{"team_id": "t1"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/chat/messages", map[string]any{"content": "hi"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Len(t, ts.fake.Rows(realtime.TableTeamMessages), 1)
}

func TestResolveRoute(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/route?path=/ideas/42")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"view":"idea"`)
}

func TestViewRoutes_Gate(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name     string
		path     string
		signedIn bool
		status   int
		location string
	}{
		{"public", "/ideas", false, http.StatusOK, ""},
		{"protected as guest", "/dashboard", false, http.StatusFound, "/login"},
		{"guest only when signed in", "/login", true, http.StatusFound, "/dashboard"},
		{"unknown", "/nope", false, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.signedIn {
				ts.signIn("alice")
				t.Cleanup(func() { _ = ts.store.Logout(context.Background()) })
			}
			w := httptest.NewRecorder()

			ts.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.ObserveMutation("set_session")

	srv := NewServer(Options{Store: state.New(state.Options{}), Gatherer: reg})
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "store_mutations_total"), w.Body.String())
}

func TestChatRoutesDisabledWithoutChat(t *testing.T) {
	srv := NewServer(Options{Store: state.New(state.Options{})})
	api := humatest.Wrap(t, srv.API())

	resp := api.Get("/api/v1/chat/messages")

	assert.Equal(t, http.StatusNotFound, resp.Code)
}
