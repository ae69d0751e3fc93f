package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"kiosk/internal/changebus"
	"kiosk/internal/logging"
)

// streamWriter delivers one encoded event to a client.
type streamWriter func(ctx context.Context, evt changebus.Event, data []byte) error

// pump forwards bus events to a client until ctx ends, the client write
// fails, or the bus drops the subscriber. A heartbeat is queued on every
// tick so idle connections stay open.
func (s *apiServer) pump(ctx context.Context, transport string, write streamWriter) {
	bus := s.daemon.bus
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	logger := logging.WithContext(ctx, s.logger).With(
		logging.String(logging.FieldSubscriberID, sub.ID()),
		logging.String("transport", transport),
	)
	logger.Debug("change stream opened")

	ticker := time.NewTicker(s.daemon.cfg.HeartbeatInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("change stream closed by client")
			return
		case <-sub.Done():
			logger.Debug("change stream closed by bus")
			return
		case <-ticker.C:
			bus.Heartbeat(sub)
		case evt := <-sub.Events():
			data, err := json.Marshal(evt)
			if err != nil {
				logger.Error("encode stream event failed", logging.Error(err))
				continue
			}
			if err := write(ctx, evt, data); err != nil {
				logger.Debug("change stream write failed", logging.Error(err))
				return
			}
		}
	}
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.pump(r.Context(), "sse", func(_ context.Context, evt changebus.Event, data []byte) error {
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}

func (s *apiServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.daemon.cfg.API.AllowedOrigins,
	})
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their close frames and cancels
	// ctx when they go away.
	ctx := conn.CloseRead(r.Context())
	s.pump(ctx, "websocket", func(ctx context.Context, _ changebus.Event, data []byte) error {
		writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return conn.Write(writeCtx, websocket.MessageText, data)
	})
	_ = conn.Close(websocket.StatusNormalClosure, "closing")
}
