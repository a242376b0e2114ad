package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provider-verify/internal/common/config"
	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/models"
)

// newTestClient points a Client at an httptest server that also serves the
// OAuth token endpoint.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var tokenFetches int32
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenFetches, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","expires_in":3600}`))
	})
	mux.HandleFunc("/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(config.ShopifyConfig{
		StoreURL:     srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		APIVersion:   "2024-10",
	}, logger.NewNop())
	return client, &tokenFetches
}

func TestCreateApplicant(t *testing.T) {
	var captured map[string]json.RawMessage
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/api/2024-10/customers.json", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"customer":{"id":7001,"email":"dana@example.com","first_name":"Dana","tags":"pending_verification","verified_email":false}}`))
	})

	applicant, err := client.CreateApplicant(context.Background(), models.NewApplicant{
		FirstName: "Dana",
		LastName:  "Reeves",
		Company:   "Reeves Dermatology",
		Email:     "dana@example.com",
		NPI:       "1234567890",
	})
	require.NoError(t, err)
	assert.Equal(t, "7001", applicant.ID)
	assert.True(t, applicant.HasTag(models.TagPendingVerification))
	assert.False(t, applicant.VerifiedEmail)

	var sent struct {
		Tags          string `json:"tags"`
		Note          string `json:"note"`
		VerifiedEmail *bool  `json:"verified_email"`
	}
	require.NoError(t, json.Unmarshal(captured["customer"], &sent))
	assert.Equal(t, models.TagPendingVerification, sent.Tags)
	assert.Contains(t, sent.Note, "NPI: 1234567890")
	require.NotNil(t, sent.VerifiedEmail)
	assert.False(t, *sent.VerifiedEmail)
}

func TestGetApplicantNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetApplicant(context.Background(), "999")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCustomerNotFound, errors.CodeOf(err))
}

func TestGetRetriesTransientServerError(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"customer":{"id":42,"email":"dana@example.com","tags":"verified"}}`))
	})

	applicant, err := client.GetApplicant(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", applicant.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWritesAreNotRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.SetMetafield(context.Background(), "42", models.MetafieldNPI, "1234567890")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstreamFailed, errors.CodeOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a write must go out at most once")
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":{"email":["is invalid"]}}`))
	})

	_, err := client.SearchByEmail(context.Background(), "bad@example")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstreamFailed, errors.CodeOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAddTagsMergesWithExisting(t *testing.T) {
	var written string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"customer":{"id":42,"tags":"wholesale, pending_verification"}}`))
		case http.MethodPut:
			var body struct {
				Customer struct {
					Tags string `json:"tags"`
				} `json:"customer"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			written = body.Customer.Tags
			_, _ = w.Write([]byte(`{"customer":{"id":42}}`))
		}
	})

	require.NoError(t, client.AddTags(context.Background(), "42", models.TagPendingReview))

	// Existing tags survive the read-merge-write; the new tag is appended
	// once.
	assert.Contains(t, written, "wholesale")
	assert.Contains(t, written, models.TagPendingVerification)
	assert.Contains(t, written, models.TagPendingReview)
}

func TestRemoveTagKeepsOthers(t *testing.T) {
	var written string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"customer":{"id":42,"tags":"wholesale, pending_verification"}}`))
		case http.MethodPut:
			var body struct {
				Customer struct {
					Tags string `json:"tags"`
				} `json:"customer"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			written = body.Customer.Tags
			_, _ = w.Write([]byte(`{"customer":{"id":42}}`))
		}
	})

	require.NoError(t, client.RemoveTag(context.Background(), "42", models.TagPendingVerification))
	assert.Contains(t, written, "wholesale")
	assert.NotContains(t, written, models.TagPendingVerification)
}

func TestGetMetafieldsFiltersNamespace(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/customers/42/metafields.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"metafields":[
			{"namespace":"verification","key":"npi","value":"1234567890"},
			{"namespace":"verification","key":"verification_status","value":"pending_review"},
			{"namespace":"loyalty","key":"points","value":"120"}
		]}`))
	})

	fields, err := client.GetMetafields(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"npi":                 "1234567890",
		"verification_status": "pending_review",
	}, fields)
}

func TestSearchByTagBuildsQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/customers/search.json", r.URL.Path)
		assert.Equal(t, "tag:pending_review", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"customers":[{"id":1,"tags":"pending_review"},{"id":2,"tags":"pending_review"}]}`))
	})

	applicants, err := client.SearchByTag(context.Background(), models.TagPendingReview)
	require.NoError(t, err)
	require.Len(t, applicants, 2)
	assert.Equal(t, "1", applicants[0].ID)
}

func TestSendAccountInvite(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/api/2024-10/customers/42/send_invite.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"customer_invite":{}}`))
	})

	assert.NoError(t, client.SendAccountInvite(context.Background(), "42"))
}

func TestAccessTokenIsReusedAcrossRequests(t *testing.T) {
	client, tokenFetches := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"customer":{"id":42,"tags":""}}`))
	})

	ctx := context.Background()
	_, err := client.GetApplicant(ctx, "42")
	require.NoError(t, err)
	_, err = client.GetApplicant(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(tokenFetches))
}

func TestSplitAndJoinTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitTags("a, b"))
	assert.Equal(t, []string{"a", "b"}, splitTags("a,b"))
	assert.Nil(t, splitTags(""))
	assert.Equal(t, []string{"a"}, splitTags(" a , "))
	assert.Equal(t, "a, b", joinTags([]string{"a", "b"}))
}
