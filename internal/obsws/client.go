// Package obsws implements the autorecord.Backend contract over the
// obs-websocket v5 protocol.
package obsws

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"autorec/internal/autorecord"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// obs-websocket v5 opcodes.
const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opEvent           = 5
	opRequest         = 6
	opRequestResponse = 7
)

// Close code sent by the backend on a rejected credential.
const closeAuthFailed = 4009

const rpcVersion = 1

// Client is an obs-websocket v5 client. The Notifications channel stays
// open across reconnects; requests made without a live connection fail
// with autorecord.ErrNotConnected.
type Client struct {
	log *slog.Logger

	// writeMu serializes writes; gorilla/websocket allows one writer.
	writeMu sync.Mutex

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan response

	notifs chan autorecord.Notification
}

type response struct {
	ok      bool
	code    int
	comment string
	data    json.RawMessage
}

// New returns an unconnected client.
func New(log *slog.Logger) *Client {
	return &Client{
		log:    log,
		notifs: make(chan autorecord.Notification, 64),
	}
}

// Notifications implements autorecord.Backend.
func (c *Client) Notifications() <-chan autorecord.Notification {
	return c.notifs
}

// Connect dials the backend and performs the Hello/Identify handshake.
func (c *Client) Connect(ctx context.Context, address, password string) error {
	u, err := url.Parse(address)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: %q", autorecord.ErrBadAddress, address)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.Host, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	if err := c.handshake(conn, password); err != nil {
		_ = conn.Close()
		return err
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.pending = make(map[string]chan response)
	c.mu.Unlock()

	go c.readLoop(conn)
	c.push(autorecord.Notification{Kind: autorecord.NotifyConnected})
	return nil
}

func (c *Client) handshake(conn *websocket.Conn, password string) error {
	var hello struct {
		Op int `json:"op"`
		D  struct {
			Authentication *struct {
				Challenge string `json:"challenge"`
				Salt      string `json:"salt"`
			} `json:"authentication"`
		} `json:"d"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("unexpected opcode %d before identify", hello.Op)
	}

	d := map[string]any{"rpcVersion": rpcVersion}
	if hello.D.Authentication != nil {
		d["authentication"] = authToken(password, hello.D.Authentication.Salt, hello.D.Authentication.Challenge)
	}
	if err := conn.WriteJSON(map[string]any{"op": opIdentify, "d": d}); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}

	var identified struct {
		Op int `json:"op"`
	}
	if err := conn.ReadJSON(&identified); err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) && ce.Code == closeAuthFailed {
			return autorecord.ErrAuthFailed
		}
		return fmt.Errorf("read identified: %w", err)
	}
	if identified.Op != opIdentified {
		return fmt.Errorf("unexpected opcode %d, want identified", identified.Op)
	}
	return nil
}

// authToken derives the Identify authentication string:
// base64(sha256(base64(sha256(password+salt)) + challenge)).
func authToken(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	encoded := base64.StdEncoding.EncodeToString(secret[:])
	final := sha256.Sum256([]byte(encoded + challenge))
	return base64.StdEncoding.EncodeToString(final[:])
}

// Disconnect implements autorecord.Backend.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.connectionLost(conn)
			return
		}

		var msg struct {
			Op int             `json:"op"`
			D  json.RawMessage `json:"d"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("malformed backend message", slog.String("error", err.Error()))
			continue
		}

		switch msg.Op {
		case opEvent:
			c.handleEvent(msg.D)
		case opRequestResponse:
			c.handleResponse(msg.D)
		}
	}
}

// connectionLost cleans up after a read failure on conn. Stale loops from
// an already-replaced connection must not disturb the current one.
func (c *Client) connectionLost(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	_ = conn.Close()
	c.push(autorecord.Notification{Kind: autorecord.NotifyDisconnected})
}

func (c *Client) handleEvent(d json.RawMessage) {
	var ev struct {
		EventType string          `json:"eventType"`
		EventData json.RawMessage `json:"eventData"`
	}
	if err := json.Unmarshal(d, &ev); err != nil {
		return
	}

	var kind autorecord.NotificationKind
	switch ev.EventType {
	case "RecordStateChanged":
		kind = autorecord.NotifyRecordingState
	case "StreamStateChanged":
		kind = autorecord.NotifyStreamingState
	case "ReplayBufferStateChanged":
		kind = autorecord.NotifyReplayState
	default:
		return
	}

	var data struct {
		OutputState string `json:"outputState"`
	}
	if err := json.Unmarshal(ev.EventData, &data); err != nil {
		return
	}
	state, ok := mapOutputState(data.OutputState)
	if !ok {
		// STARTING/STOPPING transitions carry no settled state.
		return
	}
	c.push(autorecord.Notification{Kind: kind, State: state})
}

func mapOutputState(s string) (autorecord.OutputState, bool) {
	switch s {
	case "OBS_WEBSOCKET_OUTPUT_STARTED", "OBS_WEBSOCKET_OUTPUT_RESUMED":
		return autorecord.OutputStarted, true
	case "OBS_WEBSOCKET_OUTPUT_STOPPED":
		return autorecord.OutputStopped, true
	case "OBS_WEBSOCKET_OUTPUT_PAUSED":
		return autorecord.OutputPaused, true
	default:
		return 0, false
	}
}

func (c *Client) handleResponse(d json.RawMessage) {
	var resp struct {
		RequestID     string `json:"requestId"`
		RequestStatus struct {
			Result  bool   `json:"result"`
			Code    int    `json:"code"`
			Comment string `json:"comment"`
		} `json:"requestStatus"`
		ResponseData json.RawMessage `json:"responseData"`
	}
	if err := json.Unmarshal(d, &resp); err != nil {
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.RequestID]
	if ok {
		delete(c.pending, resp.RequestID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	ch <- response{
		ok:      resp.RequestStatus.Result,
		code:    resp.RequestStatus.Code,
		comment: resp.RequestStatus.Comment,
		data:    resp.ResponseData,
	}
}

func (c *Client) push(n autorecord.Notification) {
	select {
	case c.notifs <- n:
	default:
		c.log.Warn("notification dropped", slog.String("kind", n.Kind.String()))
	}
}

func (c *Client) request(ctx context.Context, reqType string, reqData any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, autorecord.ErrNotConnected
	}
	id := uuid.NewString()
	ch := make(chan response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	d := map[string]any{"requestType": reqType, "requestId": id}
	if reqData != nil {
		d["requestData"] = reqData
	}

	c.writeMu.Lock()
	err := conn.WriteJSON(map[string]any{"op": opRequest, "d": d})
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", reqType, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return nil, autorecord.ErrNotConnected
		}
		if !resp.ok {
			return nil, fmt.Errorf("%s: backend code %d: %s", reqType, resp.code, resp.comment)
		}
		return resp.data, nil
	}
}

// StartRecording implements autorecord.Backend.
func (c *Client) StartRecording(ctx context.Context) error {
	_, err := c.request(ctx, "StartRecord", nil)
	return err
}

// StopRecording implements autorecord.Backend.
func (c *Client) StopRecording(ctx context.Context) error {
	_, err := c.request(ctx, "StopRecord", nil)
	return err
}

// ToggleRecording implements autorecord.Backend.
func (c *Client) ToggleRecording(ctx context.Context) error {
	_, err := c.request(ctx, "ToggleRecord", nil)
	return err
}

// StartReplayBuffer implements autorecord.Backend.
func (c *Client) StartReplayBuffer(ctx context.Context) error {
	_, err := c.request(ctx, "StartReplayBuffer", nil)
	return err
}

// StopReplayBuffer implements autorecord.Backend.
func (c *Client) StopReplayBuffer(ctx context.Context) error {
	_, err := c.request(ctx, "StopReplayBuffer", nil)
	return err
}

// SaveReplayBuffer implements autorecord.Backend.
func (c *Client) SaveReplayBuffer(ctx context.Context) error {
	_, err := c.request(ctx, "SaveReplayBuffer", nil)
	return err
}

// ToggleStreaming implements autorecord.Backend.
func (c *Client) ToggleStreaming(ctx context.Context) error {
	_, err := c.request(ctx, "ToggleStream", nil)
	return err
}

// RecordingFolder implements autorecord.Backend.
func (c *Client) RecordingFolder(ctx context.Context) (string, error) {
	data, err := c.request(ctx, "GetRecordDirectory", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		RecordDirectory string `json:"recordDirectory"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse record directory: %w", err)
	}
	return out.RecordDirectory, nil
}

// SetRecordingFolder implements autorecord.Backend.
func (c *Client) SetRecordingFolder(ctx context.Context, dir string) error {
	_, err := c.request(ctx, "SetRecordDirectory", map[string]any{"recordDirectory": dir})
	return err
}

// FilenameFormat implements autorecord.Backend.
func (c *Client) FilenameFormat(ctx context.Context) (string, error) {
	data, err := c.request(ctx, "GetProfileParameter", map[string]any{
		"parameterCategory": "Output",
		"parameterName":     "FilenameFormatting",
	})
	if err != nil {
		return "", err
	}
	var out struct {
		ParameterValue string `json:"parameterValue"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse filename format: %w", err)
	}
	return out.ParameterValue, nil
}

// SetFilenameFormat implements autorecord.Backend.
func (c *Client) SetFilenameFormat(ctx context.Context, pattern string) error {
	_, err := c.request(ctx, "SetProfileParameter", map[string]any{
		"parameterCategory": "Output",
		"parameterName":     "FilenameFormatting",
		"parameterValue":    pattern,
	})
	return err
}

// SetSourceFilterEnabled implements autorecord.Backend.
func (c *Client) SetSourceFilterEnabled(ctx context.Context, source, filter string, enabled bool) error {
	_, err := c.request(ctx, "SetSourceFilterEnabled", map[string]any{
		"sourceName":    source,
		"filterName":    filter,
		"filterEnabled": enabled,
	})
	return err
}

var _ autorecord.Backend = (*Client)(nil)
