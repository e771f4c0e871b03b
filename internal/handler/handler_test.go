package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/service"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type HandlerSuite struct {
	suite.Suite
	router    *gin.Engine
	auth      *MockAuthService
	analysis  *MockAnalysisService
	checkout  *MockCheckoutService
	webhook   *MockWebhookService
	dashboard *MockDashboardService
	relay     *MockLoginRelayService
	claims    *domain.TokenClaims
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.auth = new(MockAuthService)
	s.analysis = new(MockAnalysisService)
	s.checkout = new(MockCheckoutService)
	s.webhook = new(MockWebhookService)
	s.dashboard = new(MockDashboardService)
	s.relay = new(MockLoginRelayService)
	s.claims = &domain.TokenClaims{
		UserID:        "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Email:         "owner@example.com",
		EmailVerified: true,
		Exp:           time.Now().Add(time.Hour).Unix(),
	}

	logger := zap.NewNop()
	analyze := NewAnalyzeHandler(s.analysis, logger)
	billing := NewBillingHandler(s.checkout, s.webhook, logger)
	pages := NewDashboardHandler(s.dashboard, logger)
	ext := NewExtensionHandler(s.relay, logger)
	auth := NewAuthHandler(s.auth, logger)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(MethodNotAllowed)
	r.Use(CORSMiddleware(
		[]string{"https://postoptima.com", "chrome-extension://efafmcpoifmcmdlmklojkgnicanegjli"},
		[]string{"GET", "POST", "OPTIONS"},
		[]string{"Content-Type", "Authorization"},
	))

	api := r.Group("/api")
	api.POST("/analyze", analyze.Analyze)
	api.POST("/create-checkout", AuthMiddleware(s.auth), billing.CreateCheckout)
	api.POST("/stripe-webhook", billing.Webhook)
	api.POST("/auth/logout", AuthMiddleware(s.auth), auth.Logout)
	api.GET("/auth/me", AuthMiddleware(s.auth), auth.Me)

	guarded := api.Group("", AuthGuard(s.auth))
	guarded.GET("/dashboard", pages.Dashboard)
	guarded.GET("/profile", pages.Profile)
	guarded.GET("/analytics", pages.Analytics)
	guarded.GET("/results/latest", pages.LatestResult)

	api.POST("/extension/login-attempts", ext.StartLogin)
	api.GET("/extension/login-attempts/:id", ext.PollLogin)
	api.POST("/extension/login-attempts/:id/complete", AuthMiddleware(s.auth), ext.CompleteLogin)

	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.auth.AssertExpectations(s.T())
	s.analysis.AssertExpectations(s.T())
	s.checkout.AssertExpectations(s.T())
	s.webhook.AssertExpectations(s.T())
	s.dashboard.AssertExpectations(s.T())
	s.relay.AssertExpectations(s.T())
}

func (s *HandlerSuite) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (s *HandlerSuite) TestAnalyzeSuccess() {
	req := &dto.AnalyzeRequest{Platform: "twitter", PostContent: "hello world"}
	s.analysis.On("Analyze", mock.Anything, "tok", req).Return(&service.AnalysisOutcome{
		Result: dto.AnalyzeResponse{
			Original:             "hello world",
			OptimizedContent:     "Hello, world! 👋",
			AlgorithmScore:       72,
			EngagementPrediction: 65,
			Suggestions:          []string{"Add emoji", "Ask a question", "Use hashtags"},
		},
		Saved: true,
	}, nil).Once()

	w := s.do(http.MethodPost, "/api/analyze", `{"platform":"twitter","postContent":"hello world"}`, bearer("tok"))
	s.Equal(http.StatusOK, w.Code)
	s.Equal("true", w.Header().Get(SavedHeader))
	s.JSONEq(`{
		"original":"hello world",
		"optimized_content":"Hello, world! 👋",
		"algorithm_score":72,
		"engagement_prediction":65,
		"suggestions":["Add emoji","Ask a question","Use hashtags"]
	}`, w.Body.String())
}

func (s *HandlerSuite) TestAnalyzeUnsavedResultIsFlagged() {
	s.analysis.On("Analyze", mock.Anything, "tok", mock.Anything).
		Return(&service.AnalysisOutcome{Result: dto.AnalyzeResponse{Original: "hi"}}, nil).Once()

	w := s.do(http.MethodPost, "/api/analyze", `{"platform":"twitter","postContent":"hi"}`, bearer("tok"))
	s.Equal(http.StatusOK, w.Code)
	s.Equal("false", w.Header().Get(SavedHeader))
}

func (s *HandlerSuite) TestAnalyzeMissingFields() {
	for _, body := range []string{`{"platform":"twitter"}`, `{"postContent":"hi"}`, `{"platform":"","postContent":""}`, `not json`} {
		w := s.do(http.MethodPost, "/api/analyze", body, bearer("tok"))
		s.Equal(http.StatusBadRequest, w.Code, body)
		s.JSONEq(`{"error":"Missing content or platform"}`, w.Body.String())
	}
	s.analysis.AssertNotCalled(s.T(), "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerSuite) TestAnalyzeMethodNotAllowed() {
	w := s.do(http.MethodGet, "/api/analyze", "", nil)
	s.Equal(http.StatusMethodNotAllowed, w.Code)
	s.JSONEq(`{"error":"Method not allowed"}`, w.Body.String())
}

func (s *HandlerSuite) TestAnalyzeErrorMapping() {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{fmt.Errorf("%w: bad token", service.ErrUnauthorized), http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{&service.MalformedReplyError{Raw: "no json here", Reason: "no JSON object found"}, http.StatusInternalServerError,
			`{"error":"Invalid response from model","raw":"no json here"}`},
		{fmt.Errorf("%w after 30s", service.ErrTimeout), http.StatusGatewayTimeout, `{"error":"Upstream timeout"}`},
		{fmt.Errorf("%w: 503", service.ErrUpstream), http.StatusInternalServerError, `{"error":"Something went wrong"}`},
		{errors.New("boom"), http.StatusInternalServerError, `{"error":"Something went wrong"}`},
	}

	for _, tt := range tests {
		s.analysis.On("Analyze", mock.Anything, "", mock.Anything).Return(nil, tt.err).Once()

		w := s.do(http.MethodPost, "/api/analyze", `{"platform":"twitter","postContent":"hello world"}`, nil)
		s.Equal(tt.status, w.Code, tt.err.Error())
		s.JSONEq(tt.body, w.Body.String())
	}
}

func (s *HandlerSuite) TestCreateCheckoutRequiresToken() {
	w := s.do(http.MethodPost, "/api/create-checkout", `{}`, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.checkout.AssertNotCalled(s.T(), "CreateCheckout", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerSuite) TestCreateCheckout() {
	s.auth.On("Authenticate", mock.Anything, "tok").Return(s.claims, nil).Once()
	s.checkout.On("CreateCheckout", mock.Anything, s.claims, &dto.CheckoutRequest{}, "https://postoptima.com").
		Return(&dto.CheckoutResponse{URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil).Once()

	headers := bearer("tok")
	headers["Origin"] = "https://postoptima.com"
	w := s.do(http.MethodPost, "/api/create-checkout", "", headers)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"url":"https://checkout.stripe.com/c/pay/cs_1"}`, w.Body.String())
}

func (s *HandlerSuite) TestCreateCheckoutForbidden() {
	s.auth.On("Authenticate", mock.Anything, "tok").Return(s.claims, nil).Once()
	s.checkout.On("CreateCheckout", mock.Anything, s.claims, &dto.CheckoutRequest{UserID: "other"}, "").
		Return(nil, fmt.Errorf("%w: checkout for another user", service.ErrForbidden)).Once()

	w := s.do(http.MethodPost, "/api/create-checkout", `{"user_id":"other"}`, bearer("tok"))
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlerSuite) TestCreateCheckoutInvalidEmail() {
	s.auth.On("Authenticate", mock.Anything, "tok").Return(s.claims, nil).Once()
	s.checkout.On("CreateCheckout", mock.Anything, s.claims, &dto.CheckoutRequest{Email: "not-an-email"}, "").
		Return(nil, fmt.Errorf("%w: invalid email format", service.ErrValidation)).Once()

	w := s.do(http.MethodPost, "/api/create-checkout", `{"email":"not-an-email"}`, bearer("tok"))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestWebhook() {
	payload := `{"id":"evt_1"}`
	s.webhook.On("HandleEvent", mock.Anything, []byte(payload), "t=1,v1=abc").Return(nil).Once()

	w := s.do(http.MethodPost, "/api/stripe-webhook", payload, map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"received":true}`, w.Body.String())
}

func (s *HandlerSuite) TestWebhookBadSignature() {
	s.webhook.On("HandleEvent", mock.Anything, mock.Anything, "forged").
		Return(fmt.Errorf("%w: mismatch", service.ErrSignature)).Once()

	w := s.do(http.MethodPost, "/api/stripe-webhook", `{}`, map[string]string{"Stripe-Signature": "forged"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestWebhookStoreFailureAsksForRedelivery() {
	s.webhook.On("HandleEvent", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection refused")).Once()

	w := s.do(http.MethodPost, "/api/stripe-webhook", `{}`, nil)
	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *HandlerSuite) TestWebhookPayloadTooLarge() {
	body := `{"pad":"` + strings.Repeat("a", MaxWebhookBody) + `"}`
	w := s.do(http.MethodPost, "/api/stripe-webhook", body, nil)
	s.Equal(http.StatusRequestEntityTooLarge, w.Code)
	s.webhook.AssertNotCalled(s.T(), "HandleEvent", mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerSuite) TestAuthGuardRedirectsBrowsers() {
	w := s.do(http.MethodGet, "/api/dashboard", "", map[string]string{"Accept": "text/html,application/xhtml+xml"})
	s.Equal(http.StatusFound, w.Code)
	s.Equal(LoginPath, w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/api/dashboard", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerSuite) TestAuthGuardRejectsUnverifiedEmail() {
	unverified := *s.claims
	unverified.EmailVerified = false
	s.auth.On("Authenticate", mock.Anything, "tok").Return(&unverified, nil).Twice()

	w := s.do(http.MethodGet, "/api/dashboard", "", bearer("tok"))
	s.Equal(http.StatusUnauthorized, w.Code)

	headers := bearer("tok")
	headers["Accept"] = "text/html"
	w = s.do(http.MethodGet, "/api/dashboard", "", headers)
	s.Equal(http.StatusFound, w.Code)
}

func (s *HandlerSuite) TestDashboard() {
	s.auth.On("Authenticate", mock.Anything, "tok").Return(s.claims, nil).Once()
	s.dashboard.On("Dashboard", mock.Anything, s.claims.User()).Return(&dto.DashboardResponse{
		User:        dto.UserInfo{ID: s.claims.UserID, Email: s.claims.Email, EmailVerified: true},
		Profile:     dto.ProfileResponse{Plan: "free"},
		ShowAds:     true,
		ShowUpgrade: true,
		History:     []dto.AnalysisItem{},
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/dashboard", "", bearer("tok"))
	s.Equal(http.StatusOK, w.Code)

	var resp dto.DashboardResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(resp.ShowAds)
	s.Equal("free", resp.Profile.Plan)
}

func (s *HandlerSuite) TestLatestResultNotFound() {
	s.auth.On("Authenticate", mock.Anything, "tok").Return(s.claims, nil).Once()
	s.dashboard.On("LatestResult", mock.Anything, s.claims.User()).
		Return(nil, fmt.Errorf("nothing stored: %w", service.ErrNotFound)).Once()

	w := s.do(http.MethodGet, "/api/results/latest", "", bearer("tok"))
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerSuite) TestLogoutAndMe() {
	s.auth.On("Authenticate", mock.Anything, "tok").Return(s.claims, nil).Twice()
	s.auth.On("Logout", mock.Anything, "tok", s.claims).Return(nil).Once()

	w := s.do(http.MethodGet, "/api/auth/me", "", bearer("tok"))
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"id":"7c9e6679-7425-40de-944b-e07fc1f90ae7","email":"owner@example.com","email_verified":true}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/auth/logout", "", bearer("tok"))
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestExtensionLoginRelay() {
	s.relay.On("Start", mock.Anything).Return(&dto.LoginAttemptResponse{
		AttemptID: "a1", State: service.AttemptLoggingIn, LoginURL: "https://postoptima.com/login?attempt=a1", ExpiresIn: 600,
	}, nil).Once()
	s.auth.On("Authenticate", mock.Anything, "web-token").Return(s.claims, nil).Once()
	s.relay.On("Complete", mock.Anything, "a1", "web-token", "refresh", s.claims).Return(nil).Once()
	s.relay.On("Poll", mock.Anything, "a1").Return(&dto.LoginAttemptResponse{
		AttemptID: "a1", State: service.AttemptLoggedIn, Token: "web-token", RefreshToken: "refresh",
	}, nil).Once()

	w := s.do(http.MethodPost, "/api/extension/login-attempts", "", nil)
	s.Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/extension/login-attempts/a1/complete", `{"refresh_token":"refresh"}`, bearer("web-token"))
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/extension/login-attempts/a1", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("no-store", w.Header().Get("Cache-Control"))

	var resp dto.LoginAttemptResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(service.AttemptLoggedIn, resp.State)
	s.Equal("web-token", resp.Token)
}

func (s *HandlerSuite) TestCORS() {
	w := s.do(http.MethodOptions, "/api/analyze", "", map[string]string{"Origin": "chrome-extension://efafmcpoifmcmdlmklojkgnicanegjli"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal("chrome-extension://efafmcpoifmcmdlmklojkgnicanegjli", w.Header().Get("Access-Control-Allow-Origin"))
	s.Equal(SavedHeader, w.Header().Get("Access-Control-Expose-Headers"))
	s.Equal("600", w.Header().Get("Access-Control-Max-Age"))

	w = s.do(http.MethodOptions, "/api/analyze", "", map[string]string{"Origin": "https://evil.example"})
	s.Equal(http.StatusOK, w.Code)
	s.Empty(w.Header().Get("Access-Control-Allow-Origin"))
	s.Empty(w.Header().Get("Access-Control-Allow-Credentials"))
}
