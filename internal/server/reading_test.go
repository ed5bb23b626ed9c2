package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/actorctx"
	readingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/reading/domain"
)

type fakeReadingService struct {
	ingestErr  error
	verifyErr  error
	lastActor  actorctx.Actor
	hadActor   bool
	ingestCall int
}

func (f *fakeReadingService) Ingest(ctx context.Context, req readingdomain.IngestRequest) (*readingdomain.MeterReading, error) {
	f.ingestCall++
	f.lastActor, f.hadActor = actorctx.ActorFromContext(ctx)
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return &readingdomain.MeterReading{ID: snowflake.ID(1)}, nil
}

func (f *fakeReadingService) Verify(ctx context.Context, id snowflake.ID) (*readingdomain.MeterReading, error) {
	_ = ctx
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &readingdomain.MeterReading{ID: id, Verified: true}, nil
}

func (f *fakeReadingService) List(ctx context.Context, req readingdomain.ListRequest) (*readingdomain.ListResponse, error) {
	_ = ctx
	_ = req
	return &readingdomain.ListResponse{}, nil
}

func newTestServer(t *testing.T, readingSvc readingdomain.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ActorMiddleware())
	engine.Use(ErrorHandlingMiddleware())

	svc := &Server{engine: engine, readingSvc: readingSvc}
	svc.registerAPIRoutes()
	return engine
}

func postReading(t *testing.T, engine *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"meter_id":     "1001",
		"reading_type": "MONTHLY",
		"value":        "1250.5",
	})
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/readings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func TestIngestReadingForwardsActor(t *testing.T) {
	fake := &fakeReadingService{}
	engine := newTestServer(t, fake)

	rec := postReading(t, engine, map[string]string{
		"X-Actor-Id":   "7001",
		"X-Actor-Role": "tenant",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, fake.hadActor)
	assert.Equal(t, actorctx.RoleTenant, fake.lastActor.Role)
	assert.Equal(t, "7001", fake.lastActor.ID.String())
}

func TestIngestReadingWithoutActor(t *testing.T) {
	fake := &fakeReadingService{ingestErr: readingdomain.ErrUnauthorized}
	engine := newTestServer(t, fake)

	rec := postReading(t, engine, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
	assert.False(t, fake.hadActor)
}

func TestIngestReadingRegressionEnvelope(t *testing.T) {
	fake := &fakeReadingService{ingestErr: &readingdomain.RegressionError{
		Previous:  decimal.RequireFromString("1250.5"),
		Submitted: decimal.RequireFromString("1100"),
	}}
	engine := newTestServer(t, fake)

	rec := postReading(t, engine, map[string]string{
		"X-Actor-Id":   "7001",
		"X-Actor-Role": "tenant",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "value_regression", payload.Errors[0].Code)
		assert.Contains(t, payload.Errors[0].Message, "1250.5")
	}
}

func TestIngestReadingRateLimitedEnvelope(t *testing.T) {
	fake := &fakeReadingService{ingestErr: readingdomain.ErrRateLimited}
	engine := newTestServer(t, fake)

	rec := postReading(t, engine, map[string]string{
		"X-Actor-Id":   "7001",
		"X-Actor-Role": "tenant",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decodeError(t, rec).Type)
}

func TestVerifyReadingForbiddenEnvelope(t *testing.T) {
	fake := &fakeReadingService{verifyErr: readingdomain.ErrVerifyForbidden}
	engine := newTestServer(t, fake)

	req := httptest.NewRequest(http.MethodPost, "/v1/readings/42/verify", nil)
	req.Header.Set("X-Actor-Id", "7001")
	req.Header.Set("X-Actor-Role", "tenant")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Type)
}

func TestVerifyReadingNotFoundEnvelope(t *testing.T) {
	fake := &fakeReadingService{verifyErr: readingdomain.ErrNotFound}
	engine := newTestServer(t, fake)

	req := httptest.NewRequest(http.MethodPost, "/v1/readings/42/verify", nil)
	req.Header.Set("X-Actor-Id", "8001")
	req.Header.Set("X-Actor-Role", "manager")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestIngestReadingMalformedBody(t *testing.T) {
	fake := &fakeReadingService{}
	engine := newTestServer(t, fake)

	req := httptest.NewRequest(http.MethodPost, "/v1/readings", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)
	assert.Equal(t, 0, fake.ingestCall)
}

func TestActorMiddlewareIgnoresBadHeaders(t *testing.T) {
	fake := &fakeReadingService{ingestErr: readingdomain.ErrUnauthorized}
	engine := newTestServer(t, fake)

	rec := postReading(t, engine, map[string]string{
		"X-Actor-Id":   "not-a-number",
		"X-Actor-Role": "tenant",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, fake.hadActor)
}
