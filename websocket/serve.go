package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"planhub-api/pkg/events"
	"planhub-api/types"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	authTimeout  = 5 * time.Second
	joinTimeout  = 5 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// joinRequest is the payload of join:workspace / leave:workspace frames.
type joinRequest struct {
	WorkspaceID int `json:"workspaceId"`
}

// ServeWS authenticates the handshake credential, upgrades the connection,
// and runs the read/write pumps. The credential comes from the Authorization
// header or, for browser WebSocket clients that cannot set headers, the
// token query parameter.
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), authTimeout)
		defer cancel()

		conn, err := hub.Authenticate(ctx, token)
		if err != nil {
			var authErr *AuthError
			if errors.As(err, &authErr) {
				c.JSON(http.StatusUnauthorized, types.NewErrorResponse(types.ErrorCodeUnauthorized, authErr.Error()))
				return
			}
			c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, "authentication failed"))
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "err", err)
			return
		}
		slog.Info("connection established", "user", conn.UserID, "conn", conn.ID)

		// Reader goroutine: handles join/leave requests and keepalives.
		go func() {
			defer func() {
				hub.Disconnect(conn)
				_ = ws.Close()
			}()
			ws.SetReadLimit(maxFrameSize)
			_ = ws.SetReadDeadline(time.Now().Add(pongWait))
			ws.SetPongHandler(func(string) error {
				return ws.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				_, msg, err := ws.ReadMessage()
				if err != nil {
					return
				}
				handleRequest(hub, conn, msg)
			}
		}()

		// Writer loop in the handler goroutine, with keepalive pings.
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-conn.send:
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

func handleRequest(hub *Hub, conn *Conn, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		slog.Warn("discarding malformed frame", "user", conn.UserID, "err", err)
		return
	}
	switch env.Event {
	case events.JoinWorkspace:
		var req joinRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		defer cancel()
		if err := hub.Join(ctx, conn, req.WorkspaceID); err != nil {
			slog.Warn("join rejected", "user", conn.UserID, "workspace", req.WorkspaceID, "err", err)
		}
	case events.LeaveWorkspace:
		var req joinRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		hub.Leave(conn, req.WorkspaceID)
	default:
		slog.Warn("unknown request event", "user", conn.UserID, "event", env.Event)
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}
