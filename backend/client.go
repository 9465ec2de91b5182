// Package backend is the HTTP client for the dbchat backend service.
//
// Design decisions:
//   - Client implements session.Backend, so the session state machine
//     never sees URLs or status codes.
//   - Error bodies of the form {"error": "..."} become *APIError; every
//     other failure (dial, timeout, undecodable body) is a *TransportError.
//     Both expose UserMessage for the transcript.
//   - Numbers in result rows are decoded as json.Number so cells keep
//     the exact literal the backend sent.
package backend

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

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DachengChen/dbchat/session"
)

// Endpoint paths, relative to the base URL.
const (
	pathConnect = "/connect/"
	pathTables  = "/api/tables"
	pathChat    = "/api/chat"
	pathExecute = "/api/execute_query"
)

// Client talks to one backend instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

var _ session.Backend = (*Client)(nil)

// NewClient creates a client for baseURL. A zero timeout leaves
// requests unbounded, like the browser front-end did.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "backend").Logger(),
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Wire shapes.

type connectResponse struct {
	Message string `json:"message"`
}

type tablesResponse struct {
	Tables []string `json:"tables"`
}

type chatRequest struct {
	Message string `json:"message"`
	DBType  string `json:"db_type"`
}

type chatResponse struct {
	Message string      `json:"message"`
	Query   string      `json:"query"`
	Results *resultBody `json:"results"`
}

type executeRequest struct {
	Query  string `json:"query"`
	DBType string `json:"db_type"`
}

type resultBody struct {
	Columns []string `json:"columns"`
	Result  []any    `json:"result"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Connect posts the credentials to /connect/{engine}.
func (c *Client) Connect(ctx context.Context, engine session.EngineKind, creds session.Credentials) (string, error) {
	var out connectResponse
	if err := c.do(ctx, "connect", http.MethodPost, pathConnect+engine.Slug(), creds, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ListTables fetches the table names of db.
func (c *Client) ListTables(ctx context.Context, db string) ([]string, error) {
	var out tablesResponse
	path := pathTables + "?" + url.Values{"db": {db}}.Encode()
	if err := c.do(ctx, "tables", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Tables, nil
}

// Chat sends one utterance for db.
func (c *Client) Chat(ctx context.Context, message, db string) (*session.ChatReply, error) {
	var out chatResponse
	if err := c.do(ctx, "chat", http.MethodPost, pathChat, chatRequest{Message: message, DBType: db}, &out); err != nil {
		return nil, err
	}
	reply := &session.ChatReply{Message: out.Message, Query: out.Query}
	if out.Results != nil {
		reply.Results = out.Results.resultSet()
	}
	return reply, nil
}

// ExecuteQuery runs query against db.
func (c *Client) ExecuteQuery(ctx context.Context, query, db string) (*session.ResultSet, error) {
	var out resultBody
	if err := c.do(ctx, "execute", http.MethodPost, pathExecute, executeRequest{Query: query, DBType: db}, &out); err != nil {
		return nil, err
	}
	return out.resultSet(), nil
}

// resultSet converts the wire rows. A row that is not an array (a
// document store may send objects) becomes a single cell.
func (r *resultBody) resultSet() *session.ResultSet {
	rs := &session.ResultSet{
		Columns: r.Columns,
		Rows:    make([][]any, 0, len(r.Result)),
	}
	for _, row := range r.Result {
		if cells, ok := row.([]any); ok {
			rs.Rows = append(rs.Rows, cells)
			continue
		}
		rs.Rows = append(rs.Rows, []any{row})
	}
	return rs
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	logRequest(c.log, op, reqID, method, path, in)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = &TransportError{Op: op, Err: err}
		logResponse(c.log, op, reqID, 0, time.Since(start), err)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		err = &TransportError{Op: op, Err: err}
		logResponse(c.log, op, reqID, resp.StatusCode, time.Since(start), err)
		return err
	}

	err = decode(op, resp, raw, out)
	logResponse(c.log, op, reqID, resp.StatusCode, time.Since(start), err)
	return err
}

// decode maps a response to either out or an error.
func decode(op string, resp *http.Response, raw []byte, out any) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := eb.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Op: op, Status: resp.StatusCode, Message: msg}
	}
	if eb.Error != "" {
		return &APIError{Op: op, Status: resp.StatusCode, Message: eb.Error}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
