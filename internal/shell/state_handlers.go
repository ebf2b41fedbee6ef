package shell

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/router"
	"github.com/goodaideas/goodaideas/internal/service"
	"github.com/goodaideas/goodaideas/internal/state"
)

func (s *Server) registerStateRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)

	huma.Register(s.api, huma.Operation{
		OperationID: "getState",
		Method:      http.MethodGet,
		Path:        "/api/v1/state",
		Summary:     "Get client state",
		Description: "Returns the current store snapshot without credentials",
		Tags:        []string{"State"},
	}, s.handleGetState)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPatch,
		Path:        "/api/v1/settings",
		Summary:     "Update settings",
		Description: "Merges a partial settings update; saved remotely when signed in",
		Tags:        []string{"State"},
	}, s.handleUpdateSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "markNotificationRead",
		Method:      http.MethodPost,
		Path:        "/api/v1/notifications/{id}/read",
		Summary:     "Mark notification read",
		Tags:        []string{"Notifications"},
	}, s.handleMarkNotificationRead)

	huma.Register(s.api, huma.Operation{
		OperationID: "markAllNotificationsRead",
		Method:      http.MethodPost,
		Path:        "/api/v1/notifications/read-all",
		Summary:     "Mark all notifications read",
		Tags:        []string{"Notifications"},
	}, s.handleMarkAllNotificationsRead)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveRoute",
		Method:      http.MethodGet,
		Path:        "/api/v1/route",
		Summary:     "Resolve a view path",
		Description: "Applies the session gate to a path without navigating",
		Tags:        []string{"Routing"},
	}, s.handleResolveRoute)
}

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Sign in",
		Tags:        []string{"Auth"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "signup",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signup",
		Summary:     "Create an account",
		Tags:        []string{"Auth"},
	}, s.handleSignUp)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Sign out",
		Tags:        []string{"Auth"},
	}, s.handleLogout)
}

// === DTOs ===

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status        string `json:"status" doc:"Overall status"`
	Authenticated bool   `json:"authenticated" doc:"Whether a session is present"`
	StreamClients int    `json:"stream_clients" doc:"Connected change-stream clients"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// UserResponse identifies the signed-in account.
type UserResponse struct {
	ID    string `json:"id" doc:"User ID"`
	Email string `json:"email,omitempty" doc:"Account email"`
}

// StateResponse is the store snapshot as the view layer sees it. Tokens are
// never included.
type StateResponse struct {
	Version       uint64                `json:"version" doc:"Increases with every change"`
	Generation    uint64                `json:"generation" doc:"Changes with every session change"`
	Authenticated bool                  `json:"authenticated"`
	User          *UserResponse         `json:"user,omitempty"`
	Profile       *domain.Profile       `json:"profile,omitempty"`
	Settings      domain.Settings       `json:"settings"`
	Notifications domain.Inbox          `json:"notifications"`
	Collections   []domain.Collection   `json:"collections"`
	Routines      []domain.DailyRoutine `json:"daily_routines"`
	Goals         []domain.Goal         `json:"goals"`
}

// StateOutput wraps the state response for Huma.
type StateOutput struct {
	Body StateResponse
}

// UpdateSettingsInput wraps a settings patch for Huma.
type UpdateSettingsInput struct {
	Body domain.SettingsPatch
}

// SettingsOutput wraps settings for Huma.
type SettingsOutput struct {
	Body domain.Settings
}

// NotificationInput identifies a notification.
type NotificationInput struct {
	ID string `path:"id" doc:"Notification ID"`
}

// ChangedResponse reports whether a request changed anything.
type ChangedResponse struct {
	Changed bool `json:"changed"`
}

// ChangedOutput wraps ChangedResponse for Huma.
type ChangedOutput struct {
	Body ChangedResponse
}

// RouteInput carries the path to resolve.
type RouteInput struct {
	Path string `query:"path" required:"true" doc:"View path, e.g. /ideas/123"`
}

// RouteOutput wraps a routing decision for Huma.
type RouteOutput struct {
	Body router.Decision
}

// LoginInput wraps credentials for Huma.
type LoginInput struct {
	Body service.Credentials
}

// SignUpInput wraps a sign-up request for Huma.
type SignUpInput struct {
	Body service.SignUpInput
}

// === Handlers ===

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	resp := HealthResponse{
		Status:        "healthy",
		Authenticated: s.store.Snapshot().Authenticated(),
	}
	if s.sse != nil {
		resp.StreamClients = s.sse.ClientCount()
	}
	return &HealthOutput{Body: resp}, nil
}

func (s *Server) handleGetState(_ context.Context, _ *struct{}) (*StateOutput, error) {
	return &StateOutput{Body: stateResponse(s.store.Snapshot())}, nil
}

func stateResponse(snap state.Snapshot) StateResponse {
	resp := StateResponse{
		Version:       snap.Version,
		Generation:    snap.Generation,
		Authenticated: snap.Authenticated(),
		Profile:       snap.Profile,
		Settings:      snap.Settings,
		Notifications: snap.Notifications,
		Collections:   snap.Collections,
		Routines:      snap.Routines,
		Goals:         snap.Goals,
	}
	if snap.Session != nil {
		resp.User = &UserResponse{ID: snap.Session.User.ID, Email: snap.Session.User.Email}
	}
	return resp
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	if s.services.Settings == nil {
		settings, err := s.store.UpdateSettings(input.Body)
		if err != nil {
			return nil, apiError(err)
		}
		return &SettingsOutput{Body: settings}, nil
	}
	settings, err := s.services.Settings.Save(ctx, input.Body)
	if err != nil {
		return nil, apiError(err)
	}
	return &SettingsOutput{Body: settings}, nil
}

func (s *Server) handleMarkNotificationRead(_ context.Context, input *NotificationInput) (*ChangedOutput, error) {
	changed := s.store.MarkNotificationAsRead(input.ID)
	return &ChangedOutput{Body: ChangedResponse{Changed: changed}}, nil
}

func (s *Server) handleMarkAllNotificationsRead(_ context.Context, _ *struct{}) (*struct{}, error) {
	s.store.MarkAllNotificationsRead()
	return &struct{}{}, nil
}

func (s *Server) handleResolveRoute(_ context.Context, input *RouteInput) (*RouteOutput, error) {
	d := router.Resolve(input.Path, s.store.Snapshot().Authenticated())
	return &RouteOutput{Body: d}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*StateOutput, error) {
	if s.services.Session == nil {
		return nil, apiError(domainerrors.Internal("sign-in is not available"))
	}
	if _, err := s.services.Session.SignIn(ctx, input.Body.Email, input.Body.Password); err != nil {
		return nil, apiError(err)
	}
	return &StateOutput{Body: stateResponse(s.store.Snapshot())}, nil
}

func (s *Server) handleSignUp(ctx context.Context, input *SignUpInput) (*StateOutput, error) {
	if s.services.Session == nil {
		return nil, apiError(domainerrors.Internal("sign-up is not available"))
	}
	if _, err := s.services.Session.SignUp(ctx, input.Body); err != nil {
		return nil, apiError(err)
	}
	return &StateOutput{Body: stateResponse(s.store.Snapshot())}, nil
}

func (s *Server) handleLogout(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if s.services.Session == nil {
		if err := s.store.Logout(ctx); err != nil {
			return nil, apiError(err)
		}
		return &struct{}{}, nil
	}
	if err := s.services.Session.SignOut(ctx); err != nil {
		return nil, apiError(err)
	}
	return &struct{}{}, nil
}
