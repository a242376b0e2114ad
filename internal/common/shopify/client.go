// Package shopify implements the external attribute-store client backing the
// verification workflow. The store is the only system of record: applicant
// state lives in customer tags and metafields, never in a local database.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"provider-verify/internal/common/config"
	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/models"
)

const (
	requestTimeout = 30 * time.Second

	// GET requests are idempotent against the store and retried with
	// exponential backoff. Writes go out at most once.
	maxGetRetries   = 2
	retryBackoff    = 500 * time.Millisecond
	metafieldType   = "single_line_text_field"
	customerInvPath = "send_invite"
)

type Client struct {
	storeURL   string
	apiVersion string
	tokens     *TokenProvider
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg config.ShopifyConfig, log logger.Logger) *Client {
	return &Client{
		storeURL:   strings.TrimSuffix(cfg.StoreURL, "/"),
		apiVersion: cfg.APIVersion,
		tokens:     NewTokenProvider(cfg),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: log.WithFields(map[string]interface{}{"component": "shopify"}),
	}
}

// --- wire types ---

type customer struct {
	ID            int64     `json:"id,omitempty"`
	Email         string    `json:"email,omitempty"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Tags          string    `json:"tags,omitempty"`
	Note          string    `json:"note,omitempty"`
	VerifiedEmail *bool     `json:"verified_email,omitempty"`
	Addresses     []address `json:"addresses,omitempty"`
}

type address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Company  string `json:"company"`
}

type metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type,omitempty"`
}

func (c customer) toModel() models.Applicant {
	verified := c.VerifiedEmail != nil && *c.VerifiedEmail
	return models.Applicant{
		ID:            strconv.FormatInt(c.ID, 10),
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Email:         c.Email,
		Phone:         c.Phone,
		Tags:          splitTags(c.Tags),
		VerifiedEmail: verified,
	}
}

// splitTags reconstructs the tag set from the store's comma-joined string.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// --- transport ---

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/admin/api/%s%s", c.storeURL, c.apiVersion, path)
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	token, err := c.tokens.CurrentOrRefreshed(ctx, c.httpClient)
	if err != nil {
		return nil, errors.NewUpstreamError(fmt.Errorf("access token: %w", err))
	}

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, errors.NewInternalError(fmt.Errorf("marshal request: %w", err))
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += maxGetRetries
	}

	var lastErr error
	delay := retryBackoff
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, errors.NewUpstreamError(ctx.Err())
			}
			delay *= 2
		}

		respBody, status, err := c.send(ctx, method, path, body, token)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case status == http.StatusNotFound:
			return nil, errors.NewCustomerNotFoundError(path)
		case status >= 200 && status < 300:
			return respBody, nil
		case status >= 500:
			lastErr = fmt.Errorf("store returned status %d: %s", status, truncate(respBody))
			continue
		default:
			return nil, errors.NewUpstreamError(
				fmt.Errorf("store returned status %d: %s", status, truncate(respBody)))
		}
	}

	return nil, errors.NewUpstreamError(lastErr)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// --- customer operations ---

// CreateApplicant creates the customer record that anchors the workflow.
// The record starts tagged pending_verification with an unverified email.
func (c *Client) CreateApplicant(ctx context.Context, in models.NewApplicant) (*models.Applicant, error) {
	unverified := false
	payload := customer{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		Tags:          models.TagPendingVerification,
		VerifiedEmail: &unverified,
		Note:          fmt.Sprintf("NPI: %s | Company: %s", in.NPI, in.Company),
	}
	if strings.TrimSpace(in.Phone) != "" {
		payload.Phone = in.Phone
	}
	if in.Address1 != "" || in.City != "" || in.Province != "" || in.Zip != "" || in.Country != "" {
		country := in.Country
		if country == "" {
			country = "US"
		}
		payload.Addresses = []address{{
			Address1: in.Address1,
			Address2: in.Address2,
			City:     in.City,
			Province: in.Province,
			Zip:      in.Zip,
			Country:  country,
			Company:  in.Company,
		}}
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/customers.json",
		map[string]interface{}{"customer": payload})
	if err != nil {
		return nil, err
	}

	var result struct {
		Customer customer `json:"customer"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errors.NewUpstreamError(fmt.Errorf("decode create response: %w", err))
	}
	if result.Customer.ID == 0 {
		return nil, errors.NewUpstreamError(fmt.Errorf("create returned no customer id"))
	}

	applicant := result.Customer.toModel()
	return &applicant, nil
}

// GetApplicant fetches one customer record by id.
func (c *Client) GetApplicant(ctx context.Context, customerID string) (*models.Applicant, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet,
		fmt.Sprintf("/customers/%s.json", url.PathEscape(customerID)), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Customer customer `json:"customer"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errors.NewUpstreamError(fmt.Errorf("decode customer: %w", err))
	}
	if result.Customer.ID == 0 {
		return nil, errors.NewCustomerNotFoundError(customerID)
	}

	applicant := result.Customer.toModel()
	return &applicant, nil
}

// MarkEmailVerified flips the store-side verified_email flag.
func (c *Client) MarkEmailVerified(ctx context.Context, customerID string) error {
	verified := true
	_, err := c.doRequest(ctx, http.MethodPut,
		fmt.Sprintf("/customers/%s.json", url.PathEscape(customerID)),
		map[string]interface{}{"customer": customer{VerifiedEmail: &verified}})
	return err
}

// searchCustomers runs the store's native query search.
func (c *Client) searchCustomers(ctx context.Context, query string) ([]models.Applicant, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet,
		"/customers/search.json?query="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Customers []customer `json:"customers"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errors.NewUpstreamError(fmt.Errorf("decode search response: %w", err))
	}

	applicants := make([]models.Applicant, 0, len(result.Customers))
	for _, cu := range result.Customers {
		applicants = append(applicants, cu.toModel())
	}
	return applicants, nil
}

// SearchByEmail returns customers registered under the given email.
func (c *Client) SearchByEmail(ctx context.Context, email string) ([]models.Applicant, error) {
	return c.searchCustomers(ctx, "email:"+email)
}

// SearchByTag returns customers carrying the given tag, in the store's
// native result order.
func (c *Client) SearchByTag(ctx context.Context, tag string) ([]models.Applicant, error) {
	return c.searchCustomers(ctx, "tag:"+tag)
}

// --- metafields ---

// SetMetafield writes one key under the verification namespace. The write is
// idempotent: setting the same key twice leaves the latest value.
func (c *Client) SetMetafield(ctx context.Context, customerID, key, value string) error {
	payload := map[string]interface{}{
		"metafield": metafield{
			Namespace: models.MetafieldNamespace,
			Key:       key,
			Value:     value,
			Type:      metafieldType,
		},
	}
	_, err := c.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/customers/%s/metafields.json", url.PathEscape(customerID)), payload)
	return err
}

// GetMetafields returns the verification-namespace metafields as a map.
func (c *Client) GetMetafields(ctx context.Context, customerID string) (map[string]string, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet,
		fmt.Sprintf("/customers/%s/metafields.json", url.PathEscape(customerID)), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Metafields []metafield `json:"metafields"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errors.NewUpstreamError(fmt.Errorf("decode metafields: %w", err))
	}

	fields := make(map[string]string)
	for _, m := range result.Metafields {
		if m.Namespace == models.MetafieldNamespace {
			fields[m.Key] = m.Value
		}
	}
	return fields, nil
}

// --- tags ---

// AddTags merges the given tags into the customer's tag set. The store has
// no tag API; the swap is read-existing → compute set → write-all, so two
// concurrent writers can lose updates (callers serialize per applicant).
func (c *Client) AddTags(ctx context.Context, customerID string, tags ...string) error {
	applicant, err := c.GetApplicant(ctx, customerID)
	if err != nil {
		return err
	}

	merged := append([]string{}, applicant.Tags...)
	for _, tag := range tags {
		if !applicant.HasTag(tag) {
			merged = append(merged, tag)
		}
	}

	return c.writeTags(ctx, customerID, merged)
}

// RemoveTag drops one tag from the customer's tag set.
func (c *Client) RemoveTag(ctx context.Context, customerID, tag string) error {
	applicant, err := c.GetApplicant(ctx, customerID)
	if err != nil {
		return err
	}

	filtered := make([]string, 0, len(applicant.Tags))
	for _, t := range applicant.Tags {
		if t != tag {
			filtered = append(filtered, t)
		}
	}

	return c.writeTags(ctx, customerID, filtered)
}

func (c *Client) writeTags(ctx context.Context, customerID string, tags []string) error {
	payload := map[string]interface{}{
		"customer": map[string]string{"tags": joinTags(tags)},
	}
	_, err := c.doRequest(ctx, http.MethodPut,
		fmt.Sprintf("/customers/%s.json", url.PathEscape(customerID)), payload)
	return err
}

// --- account activation ---

// SendAccountInvite triggers the store's own account-activation email so an
// approved applicant can set a password and log in.
func (c *Client) SendAccountInvite(ctx context.Context, customerID string) error {
	_, err := c.doRequest(ctx, http.MethodPost,
		fmt.Sprintf("/customers/%s/%s.json", url.PathEscape(customerID), customerInvPath),
		map[string]interface{}{"customer_invite": map[string]string{}})
	return err
}
