package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stocktracker/internal/dashboard"
	"stocktracker/internal/handlers"
	"stocktracker/internal/logger"
	"stocktracker/internal/market"
	"stocktracker/internal/middleware"
	"stocktracker/internal/services"
	"stocktracker/internal/testutil"
	"stocktracker/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// newFinnhubStub serves quotes and metrics for AAPL and MSFT and fails
// every other symbol with an all-zero quote.
func newFinnhubStub(t *testing.T) *httptest.Server {
	t.Helper()
	quotes := map[string]string{
		"AAPL": `{"c":189.84,"d":1.23,"dp":0.65,"h":190.1,"l":187.5,"o":188,"pc":188.61}`,
		"MSFT": `{"c":415.5,"d":-2.1,"dp":-0.5,"h":418,"l":414,"o":417,"pc":417.6}`,
	}
	metrics := map[string]string{
		"AAPL": `{"metric":{"marketCapitalization":2950000,"peBasicExclExtraTTM":29.4}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		symbol := r.URL.Query().Get("symbol")
		switch r.URL.Path {
		case "/quote":
			if q, ok := quotes[symbol]; ok {
				_, _ = w.Write([]byte(q))
				return
			}
			_, _ = w.Write([]byte(`{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0}`))
		case "/stock/metric":
			if m, ok := metrics[symbol]; ok {
				_, _ = w.Write([]byte(m))
				return
			}
			_, _ = w.Write([]byte(`{"metric":{}}`))
		case "/search":
			_, _ = w.Write([]byte(`{"count":2,"result":[` +
				`{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"},` +
				`{"description":"APPLE HOSPITALITY REIT INC","displaySymbol":"APLE","symbol":"APLE","type":"Common Stock"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite database and a stubbed market data provider.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	// Services
	userService := services.NewUserService(db)
	watchlistService := services.NewWatchlistService(db)
	alertService := services.NewAlertService(db)
	auditService := services.NewAuditService(db)

	stub := newFinnhubStub(t)
	finnhub := market.NewFinnhubClient(stub.Client(), stub.URL, "test-key")
	refresher := dashboard.NewRefresher(finnhub)
	poller := dashboard.NewPoller(5 * time.Second)
	dialogs := dashboard.NewDialogRegistry()

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, time.Hour)
	watchlistHandler := handlers.NewWatchlistHandler(watchlistService, alertService, auditService, dialogs)
	alertHandler := handlers.NewAlertHandler(alertService, auditService, dialogs)
	marketHandler := handlers.NewMarketHandler(handlers.MarketHandlerConfig{
		WatchlistFeed:     dashboard.NewWatchlistFeed(watchlistService, refresher),
		AlertFeed:         dashboard.NewAlertFeed(alertService, refresher),
		Searcher:          dashboard.NewSearcher(finnhub, dashboard.NewSearchCache(time.Minute), dashboard.NewDebouncer(time.Millisecond)),
		WatchlistService:  watchlistService,
		Poller:            poller,
		WatchlistInterval: time.Hour,
		AlertInterval:     time.Hour,
	})

	// Router
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	watchlist := protected.Group("/watchlist")
	watchlist.GET("", watchlistHandler.GetWatchlist)
	watchlist.POST("", watchlistHandler.AddToWatchlist)
	watchlist.DELETE("", watchlistHandler.ClearWatchlist)
	watchlist.GET("/quotes", marketHandler.GetWatchlistQuotes)
	watchlist.GET("/:symbol", watchlistHandler.CheckWatchlist)
	watchlist.DELETE("/:symbol", watchlistHandler.RemoveFromWatchlist)
	watchlist.POST("/:symbol/toggle", watchlistHandler.ToggleWatchlist)
	watchlist.POST("/:symbol/alert", watchlistHandler.CreateAlertFromWatchlist)

	alerts := protected.Group("/alert")
	alerts.GET("", alertHandler.GetAlerts)
	alerts.POST("", alertHandler.CreateAlert)
	alerts.GET("/quotes", marketHandler.GetAlertQuotes)
	alerts.GET("/:id", alertHandler.GetAlert)
	alerts.PUT("/:id", alertHandler.UpdateAlert)
	alerts.DELETE("/:id", alertHandler.DeleteAlert)

	protected.GET("/stocks/search", marketHandler.SearchStocks)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the session token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"fullName":"Test User","country":"US"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}

// loginUser logs in and returns the session token.
func (app *testApp) loginUser(t *testing.T, email, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["token"].(string)
}

// errorCode returns the code of an error response body.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}
