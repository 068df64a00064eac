package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"quest-progression-service/internal/app"
	"quest-progression-service/internal/quest"
)

// WSHandler drives one live quest attempt per connection. The server owns
// the timers; the client only sends answers and receives state.
type WSHandler struct {
	service  *app.QuestService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuestService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	OptionIndex int `json:"optionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, starts an attempt for (topic, level) and
// streams state snapshots until the attempt completes or the socket drops.
// A socket dropped mid-attempt discards the attempt; only completed runs
// are persisted.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	userID := r.URL.Query().Get("userId")
	username := r.URL.Query().Get("name")
	levelRaw := r.URL.Query().Get("level")
	if topic == "" || userID == "" || levelRaw == "" {
		http.Error(w, "missing topic, level, or userId", http.StatusBadRequest)
		return
	}
	level, err := strconv.Atoi(levelRaw)
	if err != nil {
		http.Error(w, "level must be an integer", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	runner, err := h.service.StartQuest(r.Context(), topic, level)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer runner.Dispose()

	updates, cancel := runner.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Error("ws write error", "err", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				msg := outboundMessage[any]{Type: "state", Payload: state}
				if state.Phase == quest.PhaseCompleted.String() {
					result, err := h.service.CompleteQuest(r.Context(), userID, username, runner)
					if err != nil {
						msg = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
					} else {
						msg = outboundMessage[any]{Type: "completed", Payload: result}
					}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if _, err := runner.SelectAnswer(payload.OptionIndex); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
			// Feedback arrives through the state stream.
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
