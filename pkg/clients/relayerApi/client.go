package relayerApi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader carries a per-request uuid so relayer logs can be correlated.
	RequestIDHeader = "X-Request-Id"

	defaultTimeout = 30 * time.Second
)

// Config configures a RelayerApi client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   *RetryConfig
}

// RelayerApi is a JSON-over-HTTP client for the relayer.
type RelayerApi struct {
	baseURL    string
	httpClient *http.Client
	retry      *RetryConfig
	logger     *zap.Logger
}

// NewRelayerApi creates a relayer client. A nil cfg.Retry disables retries.
func NewRelayerApi(cfg *Config, logger *zap.Logger) (*RelayerApi, error) {
	if cfg == nil {
		return nil, fmt.Errorf("relayer config cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("relayer base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, errors.Wrapf(err, "invalid relayer base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &RelayerApi{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retry:      cfg.Retry,
		logger:     logger,
	}, nil
}

// SetHttpClient replaces the underlying HTTP client.
func (r *RelayerApi) SetHttpClient(client *http.Client) {
	r.httpClient = client
}

// Execute submits a signed message for relaying.
func (r *RelayerApi) Execute(ctx context.Context, message *types.SignedMessage) (common.Hash, error) {
	if message == nil {
		return common.Hash{}, fmt.Errorf("signed message cannot be nil")
	}

	var res statusResponse
	if err := r.doJSON(ctx, http.MethodPost, "/wallet/execution", toSignedMessageJSON(message), &res); err != nil {
		return common.Hash{}, errors.Wrapf(err, "failed to execute message from %s", message.From.Hex())
	}
	if res.Status == nil || res.Status.MessageHash == (common.Hash{}) {
		return common.Hash{}, sdkErrors.NewMissingMessageHash()
	}

	r.logger.Sugar().Debugw("Message submitted to relayer",
		"from", message.From.Hex(),
		"messageHash", res.Status.MessageHash.Hex(),
	)
	return res.Status.MessageHash, nil
}

// GetStatus fetches the status of a submitted message.
func (r *RelayerApi) GetStatus(ctx context.Context, messageHash common.Hash) (*types.MessageStatus, error) {
	var status types.MessageStatus
	if err := r.doJSON(ctx, http.MethodGet, "/wallet/execution/"+messageHash.Hex(), nil, &status); err != nil {
		return nil, errors.Wrapf(err, "failed to get status of message %s", messageHash.Hex())
	}
	if status.MessageHash == (common.Hash{}) {
		return nil, sdkErrors.NewMissingMessageHash()
	}
	return &status, nil
}

// GetConfig fetches the relayer's public configuration.
func (r *RelayerApi) GetConfig(ctx context.Context) (*types.PublicRelayerConfig, error) {
	var res configResponse
	if err := r.doJSON(ctx, http.MethodGet, "/config", nil, &res); err != nil {
		return nil, errors.Wrap(err, "failed to get relayer config")
	}
	if res.Config == nil || res.Config.FactoryAddress == (common.Address{}) {
		return nil, sdkErrors.NewMissingConfiguration()
	}
	return res.Config, nil
}

// Deploy requests deployment of a counterfactual wallet.
func (r *RelayerApi) Deploy(ctx context.Context, args *types.DeployArgs) error {
	if args == nil {
		return fmt.Errorf("deploy args cannot be nil")
	}
	if err := r.doJSON(ctx, http.MethodPost, "/wallet/deploy", args, nil); err != nil {
		return errors.Wrapf(err, "failed to deploy wallet for %s", args.PublicKey.Hex())
	}
	return nil
}

// ConnectDevice requests that key be added to the wallet at contractAddress.
func (r *RelayerApi) ConnectDevice(ctx context.Context, contractAddress, key common.Address) error {
	body := &connectRequest{WalletContractAddress: contractAddress, Key: key}
	if err := r.doJSON(ctx, http.MethodPost, "/authorisation", body, nil); err != nil {
		return errors.Wrapf(err, "failed to connect device %s", key.Hex())
	}
	return nil
}

// GetPendingAuthorisations lists pending connection requests for a wallet.
func (r *RelayerApi) GetPendingAuthorisations(ctx context.Context, request *types.GetAuthorisationRequest) ([]types.Notification, error) {
	if request == nil {
		return nil, fmt.Errorf("authorisation request cannot be nil")
	}

	path := fmt.Sprintf("/authorisation/%s?signature=%s", request.ContractAddress.Hex(), url.QueryEscape(request.Signature))
	var res pendingAuthorisationsResponse
	if err := r.doJSON(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, errors.Wrapf(err, "failed to get pending authorisations for %s", request.ContractAddress.Hex())
	}
	return res.Response, nil
}

// DenyConnection withdraws a pending connection request.
func (r *RelayerApi) DenyConnection(ctx context.Context, request *types.CancelAuthorisationRequest) error {
	if request == nil {
		return fmt.Errorf("cancel authorisation request cannot be nil")
	}

	path := "/authorisation/" + request.ContractAddress.Hex()
	if err := r.doJSON(ctx, http.MethodPost, path, &denyRequest{AuthorisationRequest: request}, nil); err != nil {
		return errors.Wrapf(err, "failed to deny connection of %s", request.Key.Hex())
	}
	return nil
}

// doJSON sends body (if non-nil) as JSON and decodes the reply into out (if
// non-nil), retrying per r.retry.
func (r *RelayerApi) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
	}

	requestID := uuid.New().String()
	onRetry := func(attempt int, err error) {
		r.logger.Sugar().Warnw("Retrying relayer request",
			"method", method,
			"path", path,
			"requestId", requestID,
			"attempt", attempt,
			"error", err,
		)
	}

	return withRetry(ctx, r.retry, onRetry, func() error {
		return r.do(ctx, method, path, requestID, payload, out)
	})
}

func (r *RelayerApi) do(ctx context.Context, method, path, requestID string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		relayerErr := &RelayerError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
		}
		var errRes errorResponse
		if json.Unmarshal(respBody, &errRes) == nil && errRes.Error != "" {
			relayerErr.Message = errRes.Error
		} else {
			relayerErr.Message = strings.TrimSpace(string(respBody))
		}
		return relayerErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "failed to decode response body")
	}
	return nil
}
