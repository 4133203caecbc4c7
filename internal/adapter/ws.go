package adapter

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gorilla/websocket"
)

// WSAdapter bridges to a remote assistant backend over a WebSocket,
// exchanging JSON frames. The engine is strictly sequential, so a
// single connection with synchronous request/response framing is
// enough; streamed chunks arrive as separate frames before the final
// "done" frame.
type WSAdapter struct {
	URL string

	mu   sync.Mutex
	conn *websocket.Conn
}

func init() {
	// The bridge endpoint is deployment-specific; the adapter is
	// registered unconditionally and errors at Start when unset.
	Register(&WSAdapter{URL: os.Getenv("CONVCTL_WS_URL")})
}

// wsOutgoing is a client-to-backend frame.
type wsOutgoing struct {
	Type      string `json:"type"`
	Model     string `json:"model,omitempty"`
	Streaming bool   `json:"streaming,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Content   string `json:"content,omitempty"`
}

// wsIncoming is a backend-to-client frame.
type wsIncoming struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
}

type wsSession struct {
	id        string
	streaming bool
}

func (s *wsSession) ID() string { return s.id }

// Name returns "ws".
func (a *WSAdapter) Name() string { return "ws" }

// Start dials the backend.
func (a *WSAdapter) Start(ctx context.Context) error {
	if a.URL == "" {
		return fmt.Errorf("ws adapter: no backend URL configured (set CONVCTL_WS_URL)")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.URL, nil)
	if err != nil {
		return fmt.Errorf("ws adapter: dial %s: %w", a.URL, err)
	}
	a.conn = conn
	return nil
}

// Stop closes the connection.
func (a *WSAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

// CreateSession asks the backend for a fresh conversation.
func (a *WSAdapter) CreateSession(ctx context.Context, cfg Config) (Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil, fmt.Errorf("ws adapter: not started")
	}

	req := wsOutgoing{Type: "create_session", Model: cfg.Model, Streaming: cfg.Streaming}
	if err := a.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("ws adapter: create session: %w", err)
	}

	var resp wsIncoming
	if err := a.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("ws adapter: create session: %w", err)
	}
	if resp.Type == "error" {
		return nil, fmt.Errorf("ws adapter: backend refused session: %s", resp.Error)
	}
	if resp.Type != "session_created" || resp.SessionID == "" {
		return nil, fmt.Errorf("ws adapter: unexpected frame %q creating session", resp.Type)
	}
	return &wsSession{id: resp.SessionID, streaming: cfg.Streaming}, nil
}

// Send submits a prompt and accumulates chunk frames until the backend
// signals done.
func (a *WSAdapter) Send(ctx context.Context, sess Session, prompt string, onChunk ChunkFunc) (string, error) {
	ws, ok := sess.(*wsSession)
	if !ok {
		return "", fmt.Errorf("ws adapter: foreign session %T", sess)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return "", fmt.Errorf("ws adapter: not started")
	}

	req := wsOutgoing{Type: "prompt", SessionID: ws.id, Content: prompt}
	if err := a.conn.WriteJSON(req); err != nil {
		return "", fmt.Errorf("ws adapter: send: %w", err)
	}

	var response string
	for {
		var frame wsIncoming
		if err := a.conn.ReadJSON(&frame); err != nil {
			return "", fmt.Errorf("ws adapter: read: %w", err)
		}
		switch frame.Type {
		case "chunk":
			response += frame.Content
			if onChunk != nil && ws.streaming {
				onChunk(frame.Content)
			}
		case "done":
			if frame.Content != "" {
				response = frame.Content
			}
			return response, nil
		case "error":
			return "", fmt.Errorf("ws adapter: backend error: %s", frame.Error)
		default:
			return "", fmt.Errorf("ws adapter: unexpected frame %q", frame.Type)
		}
	}
}

// DestroySession tells the backend to release the conversation.
func (a *WSAdapter) DestroySession(ctx context.Context, sess Session) error {
	ws, ok := sess.(*wsSession)
	if !ok {
		return fmt.Errorf("ws adapter: foreign session %T", sess)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	req := wsOutgoing{Type: "destroy_session", SessionID: ws.id}
	if err := a.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("ws adapter: destroy session: %w", err)
	}
	return nil
}
