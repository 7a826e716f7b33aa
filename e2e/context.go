package e2e

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestContext carries one scenario's client state against a running ledger.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	Audience   string
	// AdminAddress is the bootstrap administrator the server was started with.
	AdminAddress string

	client   *http.Client
	runID    string
	actor    string
	response *http.Response
	body     []byte
	parsed   map[string]any
}

// NewTestContext reads the target server from the environment.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:      getEnv("E2E_BASE_URL", "http://localhost:8080"),
		SigningKey:   getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Issuer:       getEnv("JWT_ISSUER", "flightsurety"),
		Audience:     getEnv("JWT_AUDIENCE", "flightsurety-api"),
		AdminAddress: strings.ToLower(getEnv("ADMIN_ADDRESS", "0x627306090abab3a6e1400e9345bc60c78a8bef57")),
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset starts a scenario with a fresh run ID so accounts and flights never
// collide with earlier runs against the same server.
func (tc *TestContext) Reset() {
	var b [4]byte
	_, _ = rand.Read(b[:])
	tc.runID = hex.EncodeToString(b[:])
	tc.actor = ""
	tc.response = nil
	tc.body = nil
	tc.parsed = nil
}

// Address maps a scenario actor name to an account. "admin" is the bootstrap admin.
func (tc *TestContext) Address(name string) string {
	if name == "admin" {
		return tc.AdminAddress
	}
	sum := sha256.Sum256([]byte(tc.runID + ":" + name))
	return "0x" + hex.EncodeToString(sum[:20])
}

// Flight scopes a flight code to the current run.
func (tc *TestContext) Flight(code string) string {
	return code + "-" + tc.runID
}

func (tc *TestContext) ActAs(name string) {
	tc.actor = name
}

func (tc *TestContext) Actor() string {
	return tc.actor
}

func (tc *TestContext) token(name string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   tc.Address(name),
		Issuer:    tc.Issuer,
		Audience:  jwt.ClaimStrings{tc.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.SigningKey))
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.actor != "" {
		token, err := tc.token(tc.actor)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.response = resp
	tc.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.parsed = nil
	if len(tc.body) > 0 && tc.body[0] == '{' {
		if err := json.Unmarshal(tc.body, &tc.parsed); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (tc *TestContext) StatusCode() int {
	if tc.response == nil {
		return 0
	}
	return tc.response.StatusCode
}

func (tc *TestContext) Body() string {
	return string(tc.body)
}

func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.parsed == nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.body)
	}
	v, ok := tc.parsed[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.body)
	}
	return v, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
