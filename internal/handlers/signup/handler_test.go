package signup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/models"
)

type fakeService struct {
	received models.NewApplicant
	id       string
	err      error
	called   bool
}

func (s *fakeService) Signup(ctx context.Context, in models.NewApplicant) (string, error) {
	s.called = true
	s.received = in
	return s.id, s.err
}

func newTestHandler(svc *fakeService) *Handler {
	log := logger.NewNop()
	return NewHandler(svc, errors.NewErrorHandler(log), log)
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const validBody = `{
	"firstName": "Dana",
	"lastName": "Reeves",
	"company": "Reeves Dermatology",
	"email": "dana@example.com",
	"npi": "1234567890"
}`

func TestSignupCreated(t *testing.T) {
	svc := &fakeService{id: "cust-1"}
	rec := post(newTestHandler(svc), validBody)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Dana", svc.received.FirstName)
	assert.Equal(t, "dana@example.com", svc.received.Email)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "cust-1", resp.CustomerID)
}

func TestSignupMissingRequiredFields(t *testing.T) {
	svc := &fakeService{}
	rec := post(newTestHandler(svc), `{"firstName": "Dana"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, svc.called, "invalid payload must not reach the service")

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.ErrCodeValidationFailed), resp["code"])
}

func TestSignupRejectsUnknownFields(t *testing.T) {
	svc := &fakeService{}
	rec := post(newTestHandler(svc), `{
		"firstName": "Dana", "lastName": "Reeves",
		"email": "dana@example.com", "npi": "1234567890",
		"isAdmin": true
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, svc.called)
}

func TestSignupRejectsNonJSON(t *testing.T) {
	svc := &fakeService{}
	rec := post(newTestHandler(svc), `firstName=Dana`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, svc.called)
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	svc := &fakeService{err: errors.NewDuplicateEmailError("dana@example.com")}
	rec := post(newTestHandler(svc), validBody)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.ErrCodeDuplicateEmail), resp["code"])
}

func TestSignupInvalidNPI(t *testing.T) {
	svc := &fakeService{err: errors.NewNPIInvalidError("12345")}
	rec := post(newTestHandler(svc), validBody)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupUpstreamFailure(t *testing.T) {
	svc := &fakeService{err: errors.NewUpstreamError(assert.AnError)}
	rec := post(newTestHandler(svc), validBody)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
