package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/staybook/internal/database"
	"github.com/MarcoPoloResearchLab/staybook/internal/docstore"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newTestRouter(testContext *testing.T) http.Handler {
	testContext.Helper()
	return newTestRouterWithTokens(testContext, stubTokenValidator{subject: "user-1"})
}

func newTestRouterWithTokens(testContext *testing.T, tokens TokenValidator) http.Handler {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(testContext.TempDir(), "store.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	documents, err := docstore.NewService(docstore.ServiceConfig{
		Database:   db,
		IDProvider: docstore.NewUUIDProvider(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build document store: %v", err)
	}
	handler, err := NewHTTPHandler(Dependencies{
		Tokens:    tokens,
		Documents: documents,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build router: %v", err)
	}
	return handler
}

func serve(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	return serveAs(handler, "token", method, path, body)
}

func serveAs(handler http.Handler, token, method, path, body string) *httptest.ResponseRecorder {
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, path, http.NoBody)
	} else {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestNewHTTPHandlerRequiresDependencies(testContext *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{Documents: &docstore.Service{}}); err != errMissingTokenValidator {
		testContext.Fatalf("expected missing validator error, got %v", err)
	}
	if _, err := NewHTTPHandler(Dependencies{Tokens: stubTokenValidator{}}); err != errMissingDocumentStore {
		testContext.Fatalf("expected missing store error, got %v", err)
	}
}

func TestDocumentLifecycle(testContext *testing.T) {
	router := newTestRouter(testContext)

	created := serve(router, http.MethodPost, "/v1/collections/bookings", `{"placeId":"p1","userId":"user-1"}`)
	if created.Code != http.StatusOK {
		testContext.Fatalf("unexpected create status %d: %s", created.Code, created.Body.String())
	}
	var createResponse createResponsePayload
	if err := json.Unmarshal(created.Body.Bytes(), &createResponse); err != nil || createResponse.Name == "" {
		testContext.Fatalf("unexpected create response %s", created.Body.String())
	}
	documentPath := "/v1/collections/bookings/" + createResponse.Name

	fetched := serve(router, http.MethodGet, documentPath, "")
	if fetched.Code != http.StatusOK || fetched.Body.String() != `{"placeId":"p1","userId":"user-1"}` {
		testContext.Fatalf("unexpected get response %d %s", fetched.Code, fetched.Body.String())
	}

	replaced := serve(router, http.MethodPut, documentPath, `{"placeId":"p2","userId":"user-1"}`)
	if replaced.Code != http.StatusOK || replaced.Body.String() != `{"placeId":"p2","userId":"user-1"}` {
		testContext.Fatalf("unexpected replace response %d %s", replaced.Code, replaced.Body.String())
	}

	listed := serve(router, http.MethodGet, "/v1/collections/bookings", "")
	var documents map[string]json.RawMessage
	if err := json.Unmarshal(listed.Body.Bytes(), &documents); err != nil {
		testContext.Fatalf("list response is not a keyed object: %s", listed.Body.String())
	}
	if len(documents) != 1 || string(documents[createResponse.Name]) != `{"placeId":"p2","userId":"user-1"}` {
		testContext.Fatalf("unexpected list response %s", listed.Body.String())
	}

	deleted := serve(router, http.MethodDelete, documentPath, "")
	if deleted.Code != http.StatusOK || deleted.Body.String() != "null" {
		testContext.Fatalf("unexpected delete response %d %s", deleted.Code, deleted.Body.String())
	}
	deletedAgain := serve(router, http.MethodDelete, documentPath, "")
	if deletedAgain.Code != http.StatusOK {
		testContext.Fatalf("expected idempotent delete, got %d", deletedAgain.Code)
	}

	missing := serve(router, http.MethodGet, documentPath, "")
	if missing.Code != http.StatusNotFound {
		testContext.Fatalf("expected not found, got %d", missing.Code)
	}
	if !strings.Contains(missing.Body.String(), `"error":"document_not_found"`) ||
		!strings.Contains(missing.Body.String(), `"code":"docstore.get.not_found"`) {
		testContext.Fatalf("unexpected not found body %s", missing.Body.String())
	}
}

func TestListAppliesEqualityFilter(testContext *testing.T) {
	router := newTestRouter(testContext)
	for _, body := range []string{
		`{"placeId":"p1","userId":"user-1"}`,
		`{"placeId":"p2","userId":"user-1"}`,
	} {
		if response := serve(router, http.MethodPost, "/v1/collections/bookings", body); response.Code != http.StatusOK {
			testContext.Fatalf("unexpected create status %d", response.Code)
		}
	}

	filtered := serve(router, http.MethodGet, "/v1/collections/bookings?orderBy=placeId&equalTo=p2", "")
	var documents map[string]json.RawMessage
	if err := json.Unmarshal(filtered.Body.Bytes(), &documents); err != nil {
		testContext.Fatalf("unexpected list body %s", filtered.Body.String())
	}
	if len(documents) != 1 {
		testContext.Fatalf("expected one filtered document, got %s", filtered.Body.String())
	}

	empty := serve(router, http.MethodGet, "/v1/collections/reviews", "")
	if empty.Code != http.StatusOK || empty.Body.String() != "{}" {
		testContext.Fatalf("expected empty object for unknown collection, got %d %s", empty.Code, empty.Body.String())
	}
}

func TestRequestValidationErrors(testContext *testing.T) {
	router := newTestRouter(testContext)
	testCases := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "bad-collection", method: http.MethodGet, path: "/v1/collections/Places", wantStatus: http.StatusBadRequest, wantBody: `{"error":"invalid_collection"}`},
		{name: "array-payload", method: http.MethodPost, path: "/v1/collections/places", body: `[1,2]`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"invalid_payload"}`},
		{name: "null-payload", method: http.MethodPut, path: "/v1/collections/places/p1", body: `null`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"invalid_payload"}`},
		{name: "foreign-owner", method: http.MethodPost, path: "/v1/collections/places", body: `{"userId":"user-2"}`, wantStatus: http.StatusForbidden, wantBody: `{"error":"owner_mismatch"}`},
		{name: "missing-owner", method: http.MethodPost, path: "/v1/collections/places", body: `{"title":"A"}`, wantStatus: http.StatusForbidden, wantBody: `{"error":"owner_mismatch"}`},
		{name: "non-string-owner", method: http.MethodPut, path: "/v1/collections/places/p1", body: `{"userId":7}`, wantStatus: http.StatusForbidden, wantBody: `{"error":"owner_mismatch"}`},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(t *testing.T) {
			response := serve(router, testCase.method, testCase.path, testCase.body)
			if response.Code != testCase.wantStatus {
				t.Fatalf("expected status %d, got %d", testCase.wantStatus, response.Code)
			}
			if response.Body.String() != testCase.wantBody {
				t.Fatalf("unexpected body %s", response.Body.String())
			}
		})
	}
}

func TestRoutesRequireAuthorization(testContext *testing.T) {
	router := newTestRouter(testContext)
	request := httptest.NewRequest(http.MethodGet, "/v1/collections/places", http.NoBody)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusUnauthorized {
		testContext.Fatalf("expected unauthorized, got %d", recorder.Code)
	}
}
