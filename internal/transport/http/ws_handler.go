package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"character-quiz-service/internal/app"
	"character-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(service *app.SessionService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws_handler").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Slug   string `json:"slug"`
	Season int    `json:"season"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz run per
// connection. The handshake carries identity and quiz selection; the quiz
// content is loaded before the read loop starts, so protocol events never
// see a half-loaded session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = domain.AnonymousPrefix + uuid.NewString()
	}
	displayName := r.URL.Query().Get("name")
	season := 1
	if raw := r.URL.Query().Get("season"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			season = parsed
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	if err := h.service.Connect(r.Context(), userID, displayName, quizID, season); err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer h.service.Disconnect(userID)
	h.log.Info().Str("user_id", userID).Str("quiz_id", quizID).Msg("connected")

	send := make(chan outboundMessage[any], 16)
	ticks := make(chan string, 1)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	ticksDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	// Timer ticks arrive on their own goroutine; this forwarder is the only
	// bridge into send, so send can be closed safely after it stops.
	go func() {
		defer close(ticksDone)
		for {
			select {
			case elapsed := <-ticks:
				select {
				case send <- outboundMessage[any]{Type: "time", Payload: elapsed}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// push drops a tick rather than block the timer behind a slow client.
	push := func(elapsed string) {
		select {
		case ticks <- elapsed:
		default:
		}
	}

	done := false
	for !done {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				reply = errorMessage("invalid start payload")
				break
			}
			view, err := h.service.Start(r.Context(), userID, payload.Slug, payload.Season, push)
			if err != nil {
				reply = errorMessage(err.Error())
				break
			}
			reply = outboundMessage[any]{Type: "question", Payload: view}
		case "question":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				reply = errorMessage("invalid answer payload")
				break
			}
			outcome, err := h.service.Answer(r.Context(), userID, payload.Answer)
			if err != nil {
				reply = errorMessage(err.Error())
				break
			}
			if outcome.Done {
				reply = outboundMessage[any]{Type: "result", Payload: outcome.Result}
				done = true
				break
			}
			reply = outboundMessage[any]{Type: "question", Payload: outcome.Next}
		default:
			reply = errorMessage("unsupported message type")
		}
		if !deliver(send, writerDone, reply) {
			break
		}
	}

	close(closeSignals)
	<-ticksDone
	close(send)
	<-writerDone
	h.log.Info().Str("user_id", userID).Msg("disconnected")
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// deliver queues msg for the writer goroutine. It gives up once the writer
// has exited on a write error, so a dead connection with a full send buffer
// cannot block the read loop.
func deliver(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}
