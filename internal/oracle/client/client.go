// Package client talks to the ledger's HTTP API on behalf of oracle
// processes. Each call mints a short-lived token for the acting address,
// so one client can drive a whole simulated fleet.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	jwttoken "flightsurety/internal/jwt_token"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/oracle"
	oraclehandler "flightsurety/internal/oracle/handler"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
)

const userAgent = "flightsurety-oracles/1.0"

type Client struct {
	baseURL  string
	http     *http.Client
	tokens   *jwttoken.JWTService
	tokenTTL time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, tokens *jwttoken.JWTService, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		tokens:   tokens,
		tokenTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type amountBody struct {
	Amount string `json:"amount"`
}

func (c *Client) RegisterOracle(ctx context.Context, caller domain.Address, amount *big.Int) (*models.Oracle, error) {
	var resp oraclehandler.OracleResponse
	if err := c.do(ctx, caller, http.MethodPost, "/oracles", amountBody{Amount: amount.String()}, &resp); err != nil {
		return nil, err
	}
	indexes, err := toIndexes(resp.Indexes)
	if err != nil {
		return nil, err
	}
	return &models.Oracle{Address: caller, Indexes: indexes}, nil
}

func (c *Client) GetMyIndexes(ctx context.Context, caller domain.Address) (models.OracleIndexes, error) {
	var resp oraclehandler.OracleResponse
	if err := c.do(ctx, caller, http.MethodGet, "/oracles/me/indexes", nil, &resp); err != nil {
		return models.OracleIndexes{}, err
	}
	return toIndexes(resp.Indexes)
}

func (c *Client) SubmitOracleResponse(ctx context.Context, caller domain.Address, index uint8, code models.FlightCode, timestamp int64, status models.StatusCode) (*oracle.SubmissionResult, error) {
	body := oraclehandler.SubmitResponseRequest{
		Index:     int(index),
		Flight:    code.String(),
		Timestamp: timestamp,
		Status:    int(status),
	}
	var resp oraclehandler.SubmissionResponse
	if err := c.do(ctx, caller, http.MethodPost, "/oracle-responses", body, &resp); err != nil {
		return nil, err
	}
	flightStatus, ok := models.StatusFromName(resp.FlightStatus)
	if !ok {
		return nil, fmt.Errorf("unexpected flight status %q", resp.FlightStatus)
	}
	return &oracle.SubmissionResult{
		Key:          models.RequestKey{Index: resp.Index, Flight: models.FlightCode(resp.Flight), Timestamp: resp.Timestamp},
		Accepted:     resp.Accepted,
		Responses:    resp.Responses,
		Finalized:    resp.Finalized,
		FlightStatus: flightStatus,
	}, nil
}

// Credit funds account through the admin endpoint; caller must be the
// ledger administrator.
func (c *Client) Credit(ctx context.Context, caller, account domain.Address, amount *big.Int) (*big.Int, error) {
	var resp struct {
		Balance string `json:"balance"`
	}
	path := "/admin/accounts/" + account.String() + "/credit"
	if err := c.do(ctx, caller, http.MethodPost, path, amountBody{Amount: amount.String()}, &resp); err != nil {
		return nil, err
	}
	return domain.ParseWei(resp.Balance)
}

// RegistrationFee reads the public oracle fee.
func (c *Client) RegistrationFee(ctx context.Context) (*big.Int, error) {
	var resp oraclehandler.FeeResponse
	if err := c.do(ctx, "", http.MethodGet, "/oracles/fee", nil, &resp); err != nil {
		return nil, err
	}
	return domain.ParseWei(resp.Fee)
}

func (c *Client) do(ctx context.Context, caller domain.Address, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		token, err := c.tokens.GenerateAccessToken(caller, c.tokenTTL)
		if err != nil {
			return fmt.Errorf("mint token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, httputil.MaxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError rebuilds the domain error from the JSON envelope so callers can
// branch on codes exactly as they would in-process.
func decodeError(status int, raw []byte) error {
	var env httputil.ErrorResponse
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == "" {
		return dErrors.Newf(dErrors.CodeInternal, "unexpected status %d", status)
	}
	msg := env.ErrorDescription
	if msg == "" {
		msg = http.StatusText(status)
	}
	return dErrors.New(dErrors.Code(env.Error), msg)
}

func toIndexes(raw []int) (models.OracleIndexes, error) {
	var out models.OracleIndexes
	if len(raw) != len(out) {
		return out, fmt.Errorf("expected %d indexes, got %d", len(out), len(raw))
	}
	for i, v := range raw {
		if v < 0 || v > 255 {
			return out, fmt.Errorf("index %d out of range", v)
		}
		out[i] = uint8(v)
	}
	return out, nil
}
