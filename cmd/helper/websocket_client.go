package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"gride/internal/mylogger"
	websocketdto "gride/internal/realtime-service/core/domain/websocket_dto"

	"github.com/gorilla/websocket"
)

type WebSocketClient struct {
	conn   *websocket.Conn
	ctx    context.Context
	logger mylogger.Logger
}

func NewWebSocketClient(ctx context.Context, logger mylogger.Logger) *WebSocketClient {
	return &WebSocketClient{
		ctx:    ctx,
		logger: logger,
	}
}

func (w *WebSocketClient) Connect(url, token string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(w.ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connecting to websocket: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("connecting to websocket: %w", err)
	}

	w.conn = conn
	w.logger.Action("websocket_connected").Info("WebSocket connected", "url", url)
	return nil
}

func (w *WebSocketClient) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// Emit sends one {"type","data"} frame.
func (w *WebSocketClient) Emit(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	frame, err := json.Marshal(websocketdto.Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}

	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

func (w *WebSocketClient) ReadEvents(handler func(ev websocketdto.Event)) error {
	for {
		_, payload, err := w.conn.ReadMessage()
		if err != nil {
			if w.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading message: %w", err)
		}

		var ev websocketdto.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			w.logger.Warn("Skipping malformed frame", "payload", string(payload))
			continue
		}
		handler(ev)
	}
}
