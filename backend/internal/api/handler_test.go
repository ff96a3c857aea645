package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookmap/backend/internal/geo"
	"bookmap/backend/internal/graph"
	apperrors "bookmap/backend/pkg/errors"
)

// MockGeoService is a mock implementation of the GeoService interface
type MockGeoService struct {
	mock.Mock
}

func (m *MockGeoService) ResolveOrCreate(ctx context.Context, loc geo.Location) (*graph.Resolution, error) {
	args := m.Called(ctx, loc)
	res, _ := args.Get(0).(*graph.Resolution)
	return res, args.Error(1)
}

func (m *MockGeoService) Attach(ctx context.Context, author graph.Author, loc *geo.Location) (*graph.Country, error) {
	args := m.Called(ctx, author, loc)
	country, _ := args.Get(0).(*graph.Country)
	return country, args.Error(1)
}

func (m *MockGeoService) AncestorOf(ctx context.Context, goodreadsID string, kind geo.Kind) (*graph.Node, error) {
	args := m.Called(ctx, goodreadsID, kind)
	node, _ := args.Get(0).(*graph.Node)
	return node, args.Error(1)
}

func (m *MockGeoService) Exists(ctx context.Context, pair geo.Pair, child, parent string) (bool, error) {
	args := m.Called(ctx, pair, child, parent)
	return args.Bool(0), args.Error(1)
}

func setupRouter(svc GeoService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc, zap.NewNop()).Register(router)
	return router
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandler_ResolveLocation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockResult     *graph.Resolution
		mockError      error
		expectCall     bool
		expectedStatus int
	}{
		{
			name:       "resolved",
			body:       `{"city":"Tel Aviv","country":"Israel"}`,
			expectCall: true,
			mockResult: &graph.Resolution{
				Country:     graph.Country{UID: "c1", Name: "Israel"},
				City:        graph.City{UID: "t1", Name: "Tel Aviv"},
				CityParent:  graph.Node{Kind: geo.KindCountry, UID: "c1", Name: "Israel"},
				CityCreated: true,
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "validation error",
			body:           `{"city":"Tel Aviv"}`,
			expectCall:     true,
			mockError:      apperrors.NewValidation("country", "required"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "storage error",
			body:           `{"city":"Tel Aviv","country":"Israel"}`,
			expectCall:     true,
			mockError:      apperrors.NewTransaction("resolve_location", true, errors.New("unreachable")),
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "malformed body",
			body:           `{"city":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockGeoService)
			if tt.expectCall {
				svc.On("ResolveOrCreate", mock.Anything, mock.AnythingOfType("geo.Location")).
					Return(tt.mockResult, tt.mockError)
			}

			w := perform(setupRouter(svc), http.MethodPost, "/api/locations/resolve", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)

			if tt.expectedStatus == http.StatusOK {
				body := decode(t, w)
				assert.Equal(t, true, body["city_created"])
				parent := body["city_parent"].(map[string]interface{})
				assert.Equal(t, "country", parent["kind"])
			}
			if tt.expectedStatus == http.StatusInternalServerError {
				assert.Equal(t, true, decode(t, w)["retryable"])
			}
		})
	}
}

func TestHandler_AttachAuthor(t *testing.T) {
	svc := new(MockGeoService)
	loc := &geo.Location{City: "Fortaleza", Region: "Ceará", Country: "Brazil"}
	author := graph.Author{GoodreadsID: "2010", Name: "Rachel de Queiroz"}
	svc.On("Attach", mock.Anything, author, loc).
		Return(&graph.Country{UID: "br", Name: "Brazil"}, nil)
	svc.On("Attach", mock.Anything, graph.Author{GoodreadsID: "1"}, (*geo.Location)(nil)).
		Return(nil, apperrors.NewValidation("name", "required"))

	router := setupRouter(svc)

	w := perform(router, http.MethodPost, "/api/authors", `{
		"author": {"goodreads_id": "2010", "name": "Rachel de Queiroz"},
		"birthplace": {"city": "Fortaleza", "region": "Ceará", "country": "Brazil"}
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2010", body["goodreads_id"])
	assert.Equal(t, "Brazil", body["country"].(map[string]interface{})["name"])

	w = perform(router, http.MethodPost, "/api/authors", `{"author": {"goodreads_id": "1"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}

func TestHandler_Ancestor(t *testing.T) {
	svc := new(MockGeoService)
	svc.On("AncestorOf", mock.Anything, "42", geo.KindRegion).
		Return(&graph.Node{Kind: geo.KindRegion, UID: "r1", Name: "Ceará"}, nil)
	svc.On("AncestorOf", mock.Anything, "7", geo.KindRegion).
		Return(nil, nil)

	router := setupRouter(svc)

	w := perform(router, http.MethodGet, "/api/authors/42/ancestors/region", "")
	require.Equal(t, http.StatusOK, w.Code)
	ancestor := decode(t, w)["ancestor"].(map[string]interface{})
	assert.Equal(t, "Ceará", ancestor["name"])
	assert.Equal(t, "region", ancestor["kind"])

	w = perform(router, http.MethodGet, "/api/authors/7/ancestors/region", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["ancestor"], "an unreachable ancestor is not an error")

	w = perform(router, http.MethodGet, "/api/authors/7/ancestors/continent", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}

func TestHandler_Exists(t *testing.T) {
	svc := new(MockGeoService)
	svc.On("Exists", mock.Anything, geo.CityInRegion, "Paris", "Texas").Return(true, nil)

	router := setupRouter(svc)

	w := perform(router, http.MethodGet, "/api/hierarchy/exists?pair=city_in_region&child=Paris&parent=Texas", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["exists"])

	w = perform(router, http.MethodGet, "/api/hierarchy/exists?pair=country_in_city&child=a&parent=b", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}
