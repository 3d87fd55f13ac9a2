package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemindex/internal/application/indexing"
	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/domain/structure"
	"github.com/turtacn/chemindex/internal/interfaces/http/middleware"
	"github.com/turtacn/chemindex/pkg/errors"
	"github.com/turtacn/chemindex/pkg/types/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockService is a testify mock of indexing.Service.
type mockService struct {
	mock.Mock
}

var _ indexing.Service = (*mockService)(nil)

func (m *mockService) Build(kind record.Kind, obj structure.Object, opts ...record.Option) (*record.Record, error) {
	args := m.Called(kind, obj)
	r, _ := args.Get(0).(*record.Record)
	return r, args.Error(1)
}

func (m *mockService) IndexStructure(ctx context.Context, kind record.Kind, obj structure.Object, opts ...record.Option) (*record.Record, error) {
	args := m.Called(ctx, kind, obj)
	r, _ := args.Get(0).(*record.Record)
	return r, args.Error(1)
}

func (m *mockService) IngestBatch(ctx context.Context, kind record.Kind, loaders []indexing.StructureLoader) (*indexing.BatchReport, error) {
	args := m.Called(ctx, kind, loaders)
	r, _ := args.Get(0).(*indexing.BatchReport)
	return r, args.Error(1)
}

func (m *mockService) Get(ctx context.Context, kind record.Kind, id string) (*record.Record, error) {
	args := m.Called(ctx, kind, id)
	r, _ := args.Get(0).(*record.Record)
	return r, args.Error(1)
}

func (m *mockService) FindExact(ctx context.Context, kind record.Kind, obj structure.Object, size int) (common.CursorPage[*record.Record], error) {
	args := m.Called(ctx, kind, obj, size)
	return args.Get(0).(common.CursorPage[*record.Record]), args.Error(1)
}

func (m *mockService) Page(ctx context.Context, kind record.Kind, hashes []int64, after []interface{}, size int) (common.CursorPage[*record.Record], error) {
	args := m.Called(ctx, kind, hashes, after, size)
	return args.Get(0).(common.CursorPage[*record.Record]), args.Error(1)
}

func (m *mockService) Reconstruct(ctx context.Context, kind record.Kind, id string, session structure.Session) (structure.Object, error) {
	args := m.Called(ctx, kind, id, session)
	o, _ := args.Get(0).(structure.Object)
	return o, args.Error(1)
}

func (m *mockService) Count(ctx context.Context, kind record.Kind) (int64, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockService) EnsureIndices(ctx context.Context, kinds ...record.Kind) error {
	return m.Called(ctx, kinds).Error(0)
}

func (m *mockService) DropIndices(ctx context.Context, kinds ...record.Kind) error {
	return m.Called(ctx, kinds).Error(0)
}

func testRecord(t *testing.T, id, name string, hashes ...int64) *record.Record {
	t.Helper()
	m := map[string]interface{}{"record_id": id, "name": name}
	if len(hashes) > 0 {
		m["structural_hash"] = hashes
	}
	r, err := record.FromMapping(record.KindMolecule, m)
	require.NoError(t, err)
	return r
}

func newRecordRouter(svc indexing.Service) *gin.Engine {
	h := NewRecordHandler(svc)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/v1/:kind/records/:id", h.Get)
	r.GET("/v1/:kind/records", h.List)
	r.GET("/v1/:kind/count", h.Count)
	return r
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func get(t *testing.T, r http.Handler, target string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestRecordHandler_Get(t *testing.T) {
	svc := &mockService{}
	svc.On("Get", mock.Anything, record.KindMolecule, "m-1").Return(testRecord(t, "m-1", "ethanol", 7), nil)
	svc.On("Get", mock.Anything, record.KindReaction, "nope").
		Return(nil, record.ErrRecordNotFound.WithDetail("id=nope"))

	code, env := get(t, newRecordRouter(svc), "/v1/mol/records/m-1")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, "m-1", doc["record_id"])
	assert.Equal(t, "ethanol", doc["name"])
	assert.Equal(t, []interface{}{float64(7)}, doc["structural_hash"])

	code, env = get(t, newRecordRouter(svc), "/v1/reaction/records/nope")
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(errors.ErrCodeRecordNotFound), env.Error.Code)

	code, env = get(t, newRecordRouter(svc), "/v1/polymer/records/x")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(errors.CodeInvalidParam), env.Error.Code)
}

func TestRecordHandler_GetHidesServerErrors(t *testing.T) {
	svc := &mockService{}
	svc.On("Get", mock.Anything, record.KindMolecule, "x").
		Return(nil, errors.New(errors.ErrCodeSerialization, "failed to decode get response").WithDetail("secret"))

	code, env := get(t, newRecordRouter(svc), "/v1/molecule/records/x")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "serialization failed", env.Error.Message)
}

func TestRecordHandler_List(t *testing.T) {
	svc := &mockService{}
	svc.On("Page", mock.Anything, record.KindMolecule, []int64{3, -4, 5}, []interface{}{"m-1"}, 2).
		Return(common.CursorPage[*record.Record]{
			Items: []*record.Record{testRecord(t, "m-2", "a"), testRecord(t, "m-3", "b")},
			Total: 9,
			Next:  []interface{}{"m-3"},
		}, nil)

	code, env := get(t, newRecordRouter(svc), "/v1/molecule/records?hash=3,-4&hash=5&after=m-1&size=2")
	require.Equal(t, http.StatusOK, code)

	var page struct {
		Items []map[string]interface{} `json:"items"`
		Total int64                    `json:"total"`
		Next  string                   `json:"next"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(9), page.Total)
	assert.Equal(t, "m-3", page.Next)
	svc.AssertExpectations(t)
}

func TestRecordHandler_ListDefaultsAndEmpty(t *testing.T) {
	svc := &mockService{}
	svc.On("Page", mock.Anything, record.KindReactionTemplate, []int64(nil), []interface{}(nil), DefaultPageSize).
		Return(common.CursorPage[*record.Record]{}, nil)

	code, env := get(t, newRecordRouter(svc), "/v1/template/records")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"items":[],"total":0}`, string(env.Data))
}

func TestRecordHandler_ListBadParams(t *testing.T) {
	svc := &mockService{}
	for _, target := range []string{
		"/v1/molecule/records?hash=abc",
		"/v1/molecule/records?size=0",
		"/v1/molecule/records?size=x",
	} {
		code, env := get(t, newRecordRouter(svc), target)
		assert.Equal(t, http.StatusBadRequest, code, target)
		assert.Equal(t, string(errors.CodeInvalidParam), env.Error.Code, target)
	}
	svc.AssertNotCalled(t, "Page", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestParseSize_Clamps(t *testing.T) {
	n, err := parseSize("5000")
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, n)
}

func TestRecordHandler_Count(t *testing.T) {
	svc := &mockService{}
	svc.On("Count", mock.Anything, record.KindReaction).Return(int64(42), nil)

	code, env := get(t, newRecordRouter(svc), "/v1/rxn/count")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"kind":"reaction","count":42}`, string(env.Data))
}

type staticChecker common.ComponentHealth

func (s staticChecker) Health(context.Context) common.ComponentHealth {
	return common.ComponentHealth(s)
}

func TestHealthHandler(t *testing.T) {
	up := staticChecker{Name: "opensearch", Status: common.HealthUp, Latency: time.Millisecond}
	down := staticChecker{Name: "redis", Status: common.HealthDown, Message: "dial tcp: refused"}

	tests := []struct {
		name     string
		checkers []HealthChecker
		code     int
		status   common.HealthStatus
	}{
		{"no checkers", nil, http.StatusOK, common.HealthUp},
		{"all up", []HealthChecker{up}, http.StatusOK, common.HealthUp},
		{"degraded", []HealthChecker{up, down}, http.StatusOK, common.HealthDegraded},
		{"down", []HealthChecker{down}, http.StatusServiceUnavailable, common.HealthDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("1.2.3", tt.checkers...)
			r := gin.New()
			r.GET("/healthz", h.Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.code, w.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
			assert.Len(t, resp.Components, len(tt.checkers))
			for i, c := range tt.checkers {
				assert.Equal(t, c.(staticChecker).Name, resp.Components[i].Name)
			}
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("dev", staticChecker{Name: "x", Status: common.HealthDown})
	r := gin.New()
	r.GET("/livez", h.Liveness)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"alive"`)
}

//Personal.AI order the ending
