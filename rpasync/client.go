package rpasync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/docuconta/books_backend/utils"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("books-backend/rpasync")

const (
	tokenScope   = "OR.Jobs.Write OR.Jobs.Read"
	jobsStrategy = "ModernJobsCount"
)

// VendorClient is the outbound surface to the automation vendor. The
// orchestrator and the reconciliation worker both depend on it; tests swap in
// a fake.
type VendorClient interface {
	StartJob(ctx context.Context, releaseKey string, payload JobPayload) (StartJobResult, error)
	JobStatus(ctx context.Context, jobKey string) (string, error)
	ReleaseKey(direction Direction) string
}

// VendorError is a non-2xx vendor response. The body is kept so failed
// submissions can persist the vendor's error payload.
type VendorError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("vendor api error %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

func (e *VendorError) Unwrap() error { return utils.ErrorVendorCommunication }

// uipathClient talks to the UiPath identity and orchestration endpoints.
// Every outbound call carries a bounded timeout; the reconciliation worker's
// liveness depends on these calls completing promptly.
type uipathClient struct {
	identityURL        string
	orchestratorURL    string
	clientId           string
	clientSecret       string
	releaseKeyIncoming string
	releaseKeyOutgoing string
	folderPath         string
	http               *http.Client
	tokens             *tokenProvider
}

// NewUiPathClient builds the vendor client from env:
// UIPATH_IDENTITY_URL, UIPATH_ORCH_URL, UIPATH_CLIENT_ID, UIPATH_CLIENT_SECRET,
// UIPATH_RELEASE_KEY_INCOMING, UIPATH_RELEASE_KEY_OUTGOING, UIPATH_FOLDER_PATH.
func NewUiPathClient() (VendorClient, error) {
	c := &uipathClient{
		identityURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("UIPATH_IDENTITY_URL")), "/"),
		orchestratorURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("UIPATH_ORCH_URL")), "/"),
		clientId:           strings.TrimSpace(os.Getenv("UIPATH_CLIENT_ID")),
		clientSecret:       strings.TrimSpace(os.Getenv("UIPATH_CLIENT_SECRET")),
		releaseKeyIncoming: strings.TrimSpace(os.Getenv("UIPATH_RELEASE_KEY_INCOMING")),
		releaseKeyOutgoing: strings.TrimSpace(os.Getenv("UIPATH_RELEASE_KEY_OUTGOING")),
		folderPath:         strings.TrimSpace(os.Getenv("UIPATH_FOLDER_PATH")),
		http:               &http.Client{Timeout: 30 * time.Second},
	}
	if c.folderPath == "" {
		c.folderPath = "Shared"
	}
	if c.identityURL == "" || c.orchestratorURL == "" {
		return nil, errors.New("UIPATH_IDENTITY_URL/UIPATH_ORCH_URL not set")
	}
	if c.clientId == "" || c.clientSecret == "" {
		return nil, errors.New("UIPATH_CLIENT_ID/UIPATH_CLIENT_SECRET not set")
	}
	if c.releaseKeyIncoming == "" || c.releaseKeyOutgoing == "" {
		return nil, errors.New("UIPATH_RELEASE_KEY_INCOMING/UIPATH_RELEASE_KEY_OUTGOING not set")
	}
	c.tokens = newTokenProvider(c)
	return c, nil
}

func (c *uipathClient) ReleaseKey(direction Direction) string {
	if direction == DirectionIncoming {
		return c.releaseKeyIncoming
	}
	return c.releaseKeyOutgoing
}

// exchangeToken performs the client-credentials exchange. Any non-2xx or
// network failure is a hard error to the caller; there is no retry here.
func (c *uipathClient) exchangeToken(ctx context.Context) (tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientId)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.identityURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, _, err := c.do(req)
	if err != nil {
		return tokenResponse{}, err
	}
	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return tokenResponse{}, fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return tokenResponse{}, fmt.Errorf("token response missing access_token: %w", utils.ErrorVendorCommunication)
	}
	return parsed, nil
}

// StartJob submits one job for the given release key with the fixed one-job
// strategy. The payload travels JSON-stringified inside InputArguments,
// wrapped as {in_JsonInput: payload} — the vendor contract.
func (c *uipathClient) StartJob(ctx context.Context, releaseKey string, payload JobPayload) (StartJobResult, error) {
	ctx, span := tracer.Start(ctx, "uipath.StartJob")
	defer span.End()

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return StartJobResult{}, err
	}

	inputArgs, err := json.Marshal(map[string]JobPayload{"in_JsonInput": payload})
	if err != nil {
		return StartJobResult{}, err
	}
	reqBody, err := json.Marshal(startJobsRequest{StartInfo: startInfo{
		ReleaseKey:     releaseKey,
		Strategy:       jobsStrategy,
		JobsCount:      1,
		InputArguments: string(inputArgs),
	}})
	if err != nil {
		return StartJobResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.orchestratorURL+"/Jobs/StartJobs", bytes.NewReader(reqBody))
	if err != nil {
		return StartJobResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-UIPATH-FolderPath", c.folderPath)

	body, statusCode, err := c.do(req)
	if err != nil {
		return StartJobResult{}, err
	}

	var parsed startJobsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return StartJobResult{}, fmt.Errorf("decode start jobs response: %w", err)
	}
	result := StartJobResult{HTTPStatus: statusCode, Raw: json.RawMessage(body)}
	if len(parsed.Value) > 0 {
		result.JobKey = parsed.Value[0].Key
	}
	return result, nil
}

// JobStatus polls the vendor for one job's current state.
func (c *uipathClient) JobStatus(ctx context.Context, jobKey string) (string, error) {
	ctx, span := tracer.Start(ctx, "uipath.JobStatus")
	defer span.End()

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/Jobs(%s)", c.orchestratorURL, jobKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-UIPATH-FolderPath", c.folderPath)

	body, _, err := c.do(req)
	if err != nil {
		return "", err
	}
	var parsed jobStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode job status response: %w", err)
	}
	return parsed.State, nil
}

func (c *uipathClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", utils.ErrorVendorCommunication, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &VendorError{StatusCode: resp.StatusCode, Body: json.RawMessage(body)}
	}
	return body, resp.StatusCode, nil
}
