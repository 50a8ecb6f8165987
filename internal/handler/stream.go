package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mtlprog/tasktrack/internal/domain"
	"github.com/mtlprog/tasktrack/internal/handler/dto"
	"github.com/mtlprog/tasktrack/internal/middleware"
	"github.com/mtlprog/tasktrack/internal/projection"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamSession is one connected stream client.
type streamSession struct {
	ctx      context.Context
	identity *domain.Identity
	out      chan any
}

// send queues msg for the writer. It gives up when the session ends.
func (s *streamSession) send(msg any) {
	select {
	case s.out <- msg:
	case <-s.ctx.Done():
	}
}

func errorDetail(err error) dto.ErrorDetail {
	_, code, message := dto.MapDomainError(err)
	return dto.ErrorDetail{Code: code, Message: message}
}

// handleStream pushes live task list and history snapshots over a WebSocket.
// @Summary Live task stream
// @Description WebSocket. Pushes {"type":"tasks"} snapshots; send {"select":"<taskId>"} to receive {"type":"history"} snapshots, {"select":""} to stop.
// @Tags stream
// @Param access_token query string false "Bearer token for clients that cannot set headers"
// @Success 101
// @Failure 401 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /stream [get]
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())

	query, err := h.taskService.TaskQuery(identity)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stopOnClose := context.AfterFunc(h.streams, cancel)
	defer stopOnClose()

	session := &streamSession{
		ctx:      ctx,
		identity: identity,
		out:      make(chan any, streamBuffer),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// Closing unblocks the reader when the writer fails first.
		defer conn.Close()
		defer cancel()
		h.streamWriter(ctx, conn, session.out)
	}()

	tasks := projection.WatchTasks(ctx, h.store, h.hub, query, func(snap projection.TaskListSnapshot) {
		msg := dto.StreamTasksMessage{Type: dto.StreamTypeTasks, Tasks: dto.NewTaskResponses(snap.Tasks)}
		if snap.Err != nil {
			detail := errorDetail(snap.Err)
			msg.Error = &detail
		}
		session.send(msg)
	})
	defer tasks.Close()

	history := projection.NewHistory(ctx, h.store, h.hub, func(snap projection.HistorySnapshot) {
		msg := dto.StreamHistoryMessage{
			Type:    dto.StreamTypeHistory,
			TaskID:  snap.TaskID,
			Entries: dto.NewHistoryResponses(snap.Entries),
		}
		if snap.Err != nil {
			detail := errorDetail(snap.Err)
			msg.Error = &detail
		}
		session.send(msg)
	})
	defer history.Close()

	slog.Debug("stream client connected", "actor", identity.Actor())

	h.streamReader(conn, session, history)

	cancel()
	<-writerDone
	slog.Debug("stream client disconnected", "actor", identity.Actor())
}

// streamReader handles client messages until the connection fails.
func (h *Handler) streamReader(conn *websocket.Conn, session *streamSession, history *projection.History) {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		var req dto.StreamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("stream read failed", "error", err)
			}
			return
		}

		if req.Select == nil {
			session.send(dto.StreamErrorMessage{
				Type:  dto.StreamTypeError,
				Error: dto.ErrorDetail{Code: "INVALID_REQUEST", Message: `expected {"select": "<taskId>"}`},
			})
			continue
		}

		taskID := *req.Select
		if taskID == "" {
			history.Clear()
			continue
		}

		if _, err := h.taskService.GetTask(session.ctx, session.identity, taskID); err != nil {
			history.Clear()
			session.send(dto.StreamErrorMessage{Type: dto.StreamTypeError, TaskID: taskID, Error: errorDetail(err)})
			continue
		}
		history.Select(taskID)
	}
}

// streamWriter owns all writes to conn.
func (h *Handler) streamWriter(ctx context.Context, conn *websocket.Conn, out <-chan any) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait))
			return
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
