package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	templatePath = "/template"
	submitPath   = "/submit_work"

	// maxResponseBytes bounds how much of a coordinator response is read.
	maxResponseBytes = 1 << 20
)

type workRequest struct {
	ID      string `json:"id"`
	Nonce   string `json:"nonce"`
	Address string `json:"address"`
}

type workResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// PoolClient speaks the coordinator's HTTP API. It never retries; callers
// decide what a failure means.
type PoolClient struct {
	baseURL string
	address string
	client  *http.Client

	templateFetches atomic.Uint64
	templateErrors  atomic.Uint64

	lastErrMu sync.RWMutex
	lastErr   error
}

func NewPoolClient(baseURL, address string, timeout time.Duration) *PoolClient {
	// A shared Transport keeps the connection to the coordinator warm
	// between template polls and submissions.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &PoolClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		address: address,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// EndpointLabel returns the coordinator host for log lines, never
// including credentials.
func (c *PoolClient) EndpointLabel() string {
	raw := strings.TrimSpace(c.baseURL)
	if raw == "" {
		return "(unknown)"
	}
	u, err := url.Parse(raw)
	if err == nil && u.Host != "" {
		return u.Host
	}
	if idx := strings.Index(raw, "@"); idx != -1 && idx+1 < len(raw) {
		raw = raw[idx+1:]
	}
	raw = strings.TrimLeft(raw, "/")
	if raw == "" {
		return "(unknown)"
	}
	return raw
}

// FetchTemplate asks the coordinator for its current template.
func (c *PoolClient) FetchTemplate(ctx context.Context) (*Template, error) {
	c.templateFetches.Add(1)
	data, err := c.do(ctx, http.MethodGet, templatePath, nil)
	if err != nil {
		c.templateErrors.Add(1)
		c.recordLastError(err)
		return nil, err
	}
	tpl, err := decodeTemplate(data)
	if err != nil {
		c.templateErrors.Add(1)
		c.recordLastError(err)
		return nil, err
	}
	c.recordLastError(nil)
	return tpl, nil
}

// SubmitWork reports a candidate. A nil error means the coordinator
// accepted it; a rejection comes back as *rejectedSubmissionError.
func (c *PoolClient) SubmitWork(ctx context.Context, cand Candidate) error {
	body, err := fastJSONMarshal(workRequest{
		ID:      cand.TemplateID.Hex(),
		Nonce:   cand.Nonce.Hex(),
		Address: c.address,
	})
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, submitPath, body)
	if err != nil {
		c.recordLastError(err)
		return err
	}
	var resp workResponse
	if err := fastJSONUnmarshal(data, &resp); err != nil {
		err = &decodeError{what: "submission response", err: err}
		c.recordLastError(err)
		return err
	}
	if !resp.Success {
		reason := ""
		if resp.Error != nil {
			reason = *resp.Error
		}
		return &rejectedSubmissionError{Reason: reason}
	}
	c.recordLastError(nil)
	return nil
}

func (c *PoolClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &transportError{op: method + " " + path, err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", minerSoftwareName+"/"+minerVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &transportError{op: method + " " + path, err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &transportError{op: method + " " + path, err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &transportError{
			op:  method + " " + path,
			err: &httpStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bytes.TrimSpace(data))},
		}
	}
	return data, nil
}

func (c *PoolClient) recordLastError(err error) {
	c.lastErrMu.Lock()
	c.lastErr = err
	c.lastErrMu.Unlock()
}

// LastError returns the most recent failure, cleared by the next success.
func (c *PoolClient) LastError() error {
	c.lastErrMu.RLock()
	defer c.lastErrMu.RUnlock()
	return c.lastErr
}

// TemplateFetchStats returns the number of template fetches attempted and
// how many of them failed.
func (c *PoolClient) TemplateFetchStats() (fetches, failures uint64) {
	return c.templateFetches.Load(), c.templateErrors.Load()
}
