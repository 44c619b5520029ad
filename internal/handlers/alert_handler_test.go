package handlers

import (
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"stocktracker/internal/dashboard"
	apperrors "stocktracker/internal/errors"
	"stocktracker/internal/models"
	"stocktracker/internal/services"
)

// --- mock alert service ---

type mockAlertService struct {
	createAlertFn              func(userID string, input services.AlertInput) (*models.AlertRule, error)
	createAlertFromWatchlistFn func(userID, symbol string, input services.AlertInput) (*models.AlertRule, error)
	getAlertByIDFn             func(userID, alertID string) (*models.AlertRule, error)
	updateAlertFn              func(userID, alertID string, update services.AlertUpdate) (*models.AlertRule, error)
	deleteAlertFn              func(userID, alertID string) error
	getUserAlertsFn            func(userID string) ([]models.AlertRule, error)
	getUserAlertsBySymbolFn    func(userID, symbol string) ([]models.AlertRule, error)
}

func (m *mockAlertService) CreateAlert(userID string, input services.AlertInput) (*models.AlertRule, error) {
	if m.createAlertFn != nil {
		return m.createAlertFn(userID, input)
	}
	return &models.AlertRule{Base: models.Base{ID: "alert-1"}, UserID: userID, Name: input.Name, StockIdentifier: input.StockIdentifier}, nil
}

func (m *mockAlertService) CreateAlertFromWatchlist(userID, symbol string, input services.AlertInput) (*models.AlertRule, error) {
	if m.createAlertFromWatchlistFn != nil {
		return m.createAlertFromWatchlistFn(userID, symbol, input)
	}
	return &models.AlertRule{Base: models.Base{ID: "alert-1"}, UserID: userID, Symbol: symbol}, nil
}

func (m *mockAlertService) GetAlertByID(userID, alertID string) (*models.AlertRule, error) {
	if m.getAlertByIDFn != nil {
		return m.getAlertByIDFn(userID, alertID)
	}
	return nil, apperrors.ErrAlertNotFound
}

func (m *mockAlertService) UpdateAlert(userID, alertID string, update services.AlertUpdate) (*models.AlertRule, error) {
	if m.updateAlertFn != nil {
		return m.updateAlertFn(userID, alertID, update)
	}
	return &models.AlertRule{Base: models.Base{ID: alertID}, UserID: userID}, nil
}

func (m *mockAlertService) DeleteAlert(userID, alertID string) error {
	if m.deleteAlertFn != nil {
		return m.deleteAlertFn(userID, alertID)
	}
	return nil
}

func (m *mockAlertService) GetUserAlerts(userID string) ([]models.AlertRule, error) {
	if m.getUserAlertsFn != nil {
		return m.getUserAlertsFn(userID)
	}
	return []models.AlertRule{}, nil
}

func (m *mockAlertService) GetUserAlertsBySymbol(userID, symbol string) ([]models.AlertRule, error) {
	if m.getUserAlertsBySymbolFn != nil {
		return m.getUserAlertsBySymbolFn(userID, symbol)
	}
	return []models.AlertRule{}, nil
}

// verify interface compliance
var _ services.AlertServicer = (*mockAlertService)(nil)

func setupAlertRouter(handler *AlertHandler) *gin.Engine {
	r := newTestRouter()
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/alert", handler.GetAlerts)
	auth.POST("/alert", handler.CreateAlert)
	auth.GET("/alert/:id", handler.GetAlert)
	auth.PUT("/alert/:id", handler.UpdateAlert)
	auth.DELETE("/alert/:id", handler.DeleteAlert)
	return r
}

const validAlertBody = `{"name":"Apple breakout","stockIdentifier":"Apple Inc. (AAPL)","type":"price","condition":"greater_than","threshold":200.5,"frequency":"once_per_hour"}`

func TestAlertHandler_CreateAlert(t *testing.T) {
	t.Run("returns 201 and passes the typed input", func(t *testing.T) {
		var got services.AlertInput
		alerts := &mockAlertService{
			createAlertFn: func(userID string, input services.AlertInput) (*models.AlertRule, error) {
				got = input
				return &models.AlertRule{Base: models.Base{ID: "alert-1"}, UserID: userID, StockIdentifier: input.StockIdentifier, Symbol: "AAPL"}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupAlertRouter(NewAlertHandler(alerts, audit, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "POST", "/alert", validAlertBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Condition != models.ConditionGreaterThan || got.Frequency != models.FrequencyOncePerHour || got.Threshold != 200.5 {
			t.Errorf("unexpected input %+v", got)
		}
		if got := audit.logged(); len(got) != 1 || got[0] != services.ActionCreateAlert {
			t.Errorf("expected CREATE_ALERT audit, got %v", got)
		}
	})

	t.Run("accepts a zero threshold", func(t *testing.T) {
		r := setupAlertRouter(NewAlertHandler(&mockAlertService{}, &mockAuditService{}, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "POST", "/alert",
			`{"name":"Zero","stockIdentifier":"Apple Inc. (AAPL)","type":"volume","condition":"equal_to","threshold":0,"frequency":"once_per_minute"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	invalid := []struct {
		name string
		body string
	}{
		{"missing threshold", `{"name":"a","stockIdentifier":"Apple Inc. (AAPL)","type":"price","condition":"greater_than","frequency":"once_per_day"}`},
		{"unknown type", `{"name":"a","stockIdentifier":"Apple Inc. (AAPL)","type":"dividend","condition":"greater_than","threshold":1,"frequency":"once_per_day"}`},
		{"unknown condition", `{"name":"a","stockIdentifier":"Apple Inc. (AAPL)","type":"price","condition":"crosses","threshold":1,"frequency":"once_per_day"}`},
		{"identifier without ticker", `{"name":"a","stockIdentifier":"Apple Inc.","type":"price","condition":"greater_than","threshold":1,"frequency":"once_per_day"}`},
		{"missing name", `{"stockIdentifier":"Apple Inc. (AAPL)","type":"price","condition":"greater_than","threshold":1,"frequency":"once_per_day"}`},
	}
	for _, tc := range invalid {
		t.Run("returns 400 on "+tc.name, func(t *testing.T) {
			called := false
			alerts := &mockAlertService{
				createAlertFn: func(string, services.AlertInput) (*models.AlertRule, error) {
					called = true
					return nil, nil
				},
			}
			r := setupAlertRouter(NewAlertHandler(alerts, &mockAuditService{}, dashboard.NewDialogRegistry()))

			rec := doRequest(r, "POST", "/alert", tc.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
			if called {
				t.Error("service must not be called on invalid input")
			}
		})
	}

	// blockingCreate holds the first save open until release is closed;
	// later saves return at once.
	blockingCreate := func(entered, release chan struct{}) *mockAlertService {
		var mu sync.Mutex
		calls := 0
		return &mockAlertService{
			createAlertFn: func(userID string, input services.AlertInput) (*models.AlertRule, error) {
				mu.Lock()
				calls++
				first := calls == 1
				mu.Unlock()
				if first {
					close(entered)
					<-release
				}
				return &models.AlertRule{Base: models.Base{ID: "alert-" + input.StockIdentifier}, UserID: userID}, nil
			},
		}
	}

	t.Run("accepts concurrent alerts from separate tabs", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		r := setupAlertRouter(NewAlertHandler(blockingCreate(entered, release), &mockAuditService{}, dashboard.NewDialogRegistry()))

		var wg sync.WaitGroup
		var firstCode int
		wg.Add(1)
		go func() {
			defer wg.Done()
			firstCode = doRequestWithHeaders(r, "POST", "/alert", validAlertBody, map[string]string{dialogIDHeader: "tab-a"}).Code
		}()
		<-entered

		tsla := `{"name":"Tesla dip","stockIdentifier":"Tesla Inc. (TSLA)","type":"price","condition":"less_than","threshold":150,"frequency":"once_per_day"}`
		withHeader := doRequestWithHeaders(r, "POST", "/alert", tsla, map[string]string{dialogIDHeader: "tab-b"})
		withoutHeader := doRequest(r, "POST", "/alert", tsla)
		close(release)
		wg.Wait()

		if withHeader.Code != http.StatusCreated {
			t.Errorf("expected 201 for the other tab, got %d: %s", withHeader.Code, withHeader.Body.String())
		}
		if withoutHeader.Code != http.StatusCreated {
			t.Errorf("expected 201 without a dialog id, got %d: %s", withoutHeader.Code, withoutHeader.Body.String())
		}
		if firstCode != http.StatusCreated {
			t.Errorf("expected first submit to succeed, got %d", firstCode)
		}
	})

	t.Run("rejects a resubmit of the same form while it is in flight", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		r := setupAlertRouter(NewAlertHandler(blockingCreate(entered, release), &mockAuditService{}, dashboard.NewDialogRegistry()))
		headers := map[string]string{dialogIDHeader: "tab-a"}

		var wg sync.WaitGroup
		var firstCode int
		wg.Add(1)
		go func() {
			defer wg.Done()
			firstCode = doRequestWithHeaders(r, "POST", "/alert", validAlertBody, headers).Code
		}()
		<-entered

		rec := doRequestWithHeaders(r, "POST", "/alert", validAlertBody, headers)
		close(release)
		wg.Wait()

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 for the resubmit, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SUBMIT_IN_PROGRESS")
		if firstCode != http.StatusCreated {
			t.Errorf("expected first submit to succeed, got %d", firstCode)
		}
	})

	t.Run("allows resubmission after a failed save", func(t *testing.T) {
		calls := 0
		alerts := &mockAlertService{
			createAlertFn: func(userID string, input services.AlertInput) (*models.AlertRule, error) {
				calls++
				if calls == 1 {
					return nil, apperrors.ErrInternalServer
				}
				return &models.AlertRule{Base: models.Base{ID: "alert-1"}, UserID: userID}, nil
			},
		}
		r := setupAlertRouter(NewAlertHandler(alerts, &mockAuditService{}, dashboard.NewDialogRegistry()))

		if rec := doRequestWithHeaders(r, "POST", "/alert", validAlertBody, map[string]string{dialogIDHeader: "tab-a"}); rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if rec := doRequestWithHeaders(r, "POST", "/alert", validAlertBody, map[string]string{dialogIDHeader: "tab-a"}); rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 on retry, got %d", rec.Code)
		}
	})
}

func TestAlertHandler_GetAlerts(t *testing.T) {
	t.Run("lists all alerts without a symbol", func(t *testing.T) {
		bySymbolCalled := false
		alerts := &mockAlertService{
			getUserAlertsFn: func(string) ([]models.AlertRule, error) {
				return []models.AlertRule{{Base: models.Base{ID: "a"}}, {Base: models.Base{ID: "b"}}}, nil
			},
			getUserAlertsBySymbolFn: func(_, _ string) ([]models.AlertRule, error) {
				bySymbolCalled = true
				return nil, nil
			},
		}
		r := setupAlertRouter(NewAlertHandler(alerts, &mockAuditService{}, dashboard.NewDialogRegistry()))

		result := parseJSON(t, doRequest(r, "GET", "/alert", ""))

		if result["count"] != float64(2) {
			t.Errorf("expected count 2, got %v", result["count"])
		}
		if bySymbolCalled {
			t.Error("symbol lookup must not be used without a symbol")
		}
	})

	t.Run("filters by symbol", func(t *testing.T) {
		var gotSymbol string
		alerts := &mockAlertService{
			getUserAlertsBySymbolFn: func(_, symbol string) ([]models.AlertRule, error) {
				gotSymbol = symbol
				return []models.AlertRule{{Base: models.Base{ID: "a"}, Symbol: "AAPL"}}, nil
			},
		}
		r := setupAlertRouter(NewAlertHandler(alerts, &mockAuditService{}, dashboard.NewDialogRegistry()))

		result := parseJSON(t, doRequest(r, "GET", "/alert?symbol=aapl", ""))

		if gotSymbol != "aapl" {
			t.Errorf("expected symbol forwarded, got %q", gotSymbol)
		}
		if result["count"] != float64(1) {
			t.Errorf("expected count 1, got %v", result["count"])
		}
	})

	t.Run("returns 400 on empty symbol", func(t *testing.T) {
		alerts := &mockAlertService{
			getUserAlertsBySymbolFn: func(_, _ string) ([]models.AlertRule, error) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Stock symbol is required")
			},
		}
		r := setupAlertRouter(NewAlertHandler(alerts, &mockAuditService{}, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "GET", "/alert?symbol=", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAlertHandler_GetAlert(t *testing.T) {
	t.Run("returns the alert", func(t *testing.T) {
		alerts := &mockAlertService{
			getAlertByIDFn: func(userID, alertID string) (*models.AlertRule, error) {
				return &models.AlertRule{Base: models.Base{ID: alertID}, UserID: userID, Name: "Mine"}, nil
			},
		}
		r := setupAlertRouter(NewAlertHandler(alerts, &mockAuditService{}, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "GET", "/alert/alert-1", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["data"].(map[string]interface{})["name"] != "Mine" {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("returns 404 for another user's alert", func(t *testing.T) {
		r := setupAlertRouter(NewAlertHandler(&mockAlertService{}, &mockAuditService{}, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "GET", "/alert/someone-elses", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ALERT_NOT_FOUND")
	})
}

func TestAlertHandler_UpdateAlert(t *testing.T) {
	t.Run("passes only the provided fields", func(t *testing.T) {
		var got services.AlertUpdate
		alerts := &mockAlertService{
			updateAlertFn: func(userID, alertID string, update services.AlertUpdate) (*models.AlertRule, error) {
				got = update
				return &models.AlertRule{Base: models.Base{ID: alertID}, UserID: userID}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupAlertRouter(NewAlertHandler(alerts, audit, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "PUT", "/alert/alert-1", `{"threshold":150,"condition":"less_than"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Threshold == nil || *got.Threshold != 150 {
			t.Errorf("expected threshold 150, got %v", got.Threshold)
		}
		if got.Condition == nil || *got.Condition != models.ConditionLessThan {
			t.Errorf("expected less_than, got %v", got.Condition)
		}
		if got.Name != nil || got.Type != nil || got.Frequency != nil || got.StockIdentifier != nil {
			t.Errorf("unexpected fields set: %+v", got)
		}
		if got := audit.logged(); len(got) != 1 || got[0] != services.ActionUpdateAlert {
			t.Errorf("expected UPDATE_ALERT audit, got %v", got)
		}
	})

	t.Run("returns 400 on invalid frequency", func(t *testing.T) {
		r := setupAlertRouter(NewAlertHandler(&mockAlertService{}, &mockAuditService{}, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "PUT", "/alert/alert-1", `{"frequency":"hourly"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		alerts := &mockAlertService{
			updateAlertFn: func(_, _ string, _ services.AlertUpdate) (*models.AlertRule, error) {
				return nil, apperrors.ErrAlertNotFound
			},
		}
		r := setupAlertRouter(NewAlertHandler(alerts, &mockAuditService{}, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "PUT", "/alert/missing", `{"name":"x"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestAlertHandler_DeleteAlert(t *testing.T) {
	t.Run("returns 200", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupAlertRouter(NewAlertHandler(&mockAlertService{}, audit, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "DELETE", "/alert/alert-1", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["message"] != "Alert deleted successfully" {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
		if got := audit.logged(); len(got) != 1 || got[0] != services.ActionDeleteAlert {
			t.Errorf("expected DELETE_ALERT audit, got %v", got)
		}
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		alerts := &mockAlertService{
			deleteAlertFn: func(_, _ string) error { return apperrors.ErrAlertNotFound },
		}
		r := setupAlertRouter(NewAlertHandler(alerts, &mockAuditService{}, dashboard.NewDialogRegistry()))

		rec := doRequest(r, "DELETE", "/alert/missing", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
