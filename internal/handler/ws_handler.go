package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prepline/testprep-backend/internal/engine"
	"github.com/prepline/testprep-backend/internal/middleware"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/service"
	ws "github.com/prepline/testprep-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt over WebSocket: navigation, answer
// selection, review marks, integrity events and submission.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/tests/:test_id/stream
// Requires an already-started session; pushes state after every action
// plus asynchronous time warnings and the graded result.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}

	studentID := claims.UserID
	sess, err := h.sessionService.Get(testID.String(), studentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session for this test"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("test_id", testID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	// Warnings and the forced-submit result arrive on the countdown
	// goroutine while the read loop below answers actions; the conn
	// wrapper serializes the writes.
	h.sessionService.Attach(testID.String(), studentID, &service.SessionEvents{
		OnWarning: func(minutesLeft int) {
			conn.WriteTyped(ws.WarningResponse{Event: ws.EventWarning, MinutesLeft: minutesLeft})
		},
		OnGraded: func(sub *model.TestSubmission, result engine.ScoreResult, forced bool) {
			conn.WriteTyped(ws.GradedResponse{
				Event:      ws.EventGraded,
				Forced:     forced,
				Result:     result,
				Submission: sub,
			})
		},
	})
	defer h.sessionService.Detach(testID.String(), studentID)

	// Initial snapshot so a reconnecting client repaints immediately.
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: sess.State()})

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		action := h.dispatch(c.Request.Context(), conn, wsLog, sess, msg)
		if action == ws.ActionSubmit {
			// GradedResponse was pushed by the OnGraded callback.
			return
		}
	}
}

// dispatch decodes one client message, applies it to the session and
// pushes the updated state. Returns the decoded action.
func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, wsLog zerolog.Logger, sess *engine.Session, raw []byte) ws.Action {
	var envelope ws.RequestEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		conn.WriteError("malformed message")
		return ""
	}

	switch envelope.Action {
	case ws.ActionPing:
		conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		return envelope.Action

	case ws.ActionNavigate:
		var req ws.NavigateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			conn.WriteError("malformed navigate message")
			return envelope.Action
		}
		if err := sess.Navigate(req.Index); err != nil {
			conn.WriteError(err.Error())
			return envelope.Action
		}

	case ws.ActionSelect:
		var req ws.SelectRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			conn.WriteError("malformed select message")
			return envelope.Action
		}
		if err := sess.SelectOption(req.Index, req.Option); err != nil {
			conn.WriteError(err.Error())
			return envelope.Action
		}

	case ws.ActionClear:
		var req ws.ClearRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			conn.WriteError("malformed clear message")
			return envelope.Action
		}
		if err := sess.ClearSelection(req.Index); err != nil {
			conn.WriteError(err.Error())
			return envelope.Action
		}

	case ws.ActionReview:
		var req ws.ReviewRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			conn.WriteError("malformed review message")
			return envelope.Action
		}
		if err := sess.MarkForReview(req.Index); err != nil {
			conn.WriteError(err.Error())
			return envelope.Action
		}

	case ws.ActionSubject:
		var req ws.SubjectRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			conn.WriteError("malformed subject message")
			return envelope.Action
		}
		sess.SelectSubject(req.Subject)

	case ws.ActionIntegrity:
		var req ws.IntegrityRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			conn.WriteError("malformed integrity message")
			return envelope.Action
		}
		directive := h.sessionService.ReportIntegrity(ctx, sess, engine.IntegrityEvent(req.Event))
		conn.WriteTyped(ws.DirectiveResponse{Event: ws.EventDirective, Directive: directive})
		return envelope.Action

	case ws.ActionSubmit:
		sess.Submit(ctx, false)
		return envelope.Action

	default:
		wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
		conn.WriteError("unknown action: " + string(envelope.Action))
		return envelope.Action
	}

	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: sess.State()})
	return envelope.Action
}
