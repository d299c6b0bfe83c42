package collab

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"PPicture/logger"
	"PPicture/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// CredentialFunc 从握手请求中取凭证
type CredentialFunc func(c *gin.Context) string

func bearerCredential(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

// WSHandler 把 Server 挂到 gin 路由上
type WSHandler struct {
	s           *Server
	upgrader    websocket.Upgrader
	credentials CredentialFunc
}

// NewWSHandler checkOrigin 为 nil 时不校验来源
func NewWSHandler(s *Server, credentials CredentialFunc, checkOrigin func(r *http.Request) bool) *WSHandler {
	if credentials == nil {
		credentials = bearerCredential
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WSHandler{
		s:           s,
		credentials: credentials,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      checkOrigin,
		},
	}
}

// HandleWS 鉴权 -> 升级 -> 读循环；读循环只读，写交给写协程
func (h *WSHandler) HandleWS(c *gin.Context) {
	ctx := c.Request.Context()
	user, pictureID, err := h.s.Authorize(ctx, c.Query("pictureId"), h.credentials(c))
	if err != nil {
		status := errs.HTTPStatus(err)
		logger.Info("[HandleWS] handshake denied",
			zap.String("pictureId", c.Query("pictureId")), zap.Int("status", status), zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"code": errCode(err), "message": errMsg(err)})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写回 HTTP 错误
		logger.Info("[HandleWS] upgrade websocket error", zap.Error(err))
		return
	}

	conf := h.s.conf.Conn
	ws.SetReadLimit(conf.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(conf.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(conf.PongWait))
	})

	conn := newWsConn(ws, conf)
	sess := h.s.Admit(ctx, pictureID, user, conn)
	reason := h.readLoop(c, ws, sess)
	h.s.OnClose(sess, reason)
	<-conn.exited
}

func (h *WSHandler) readLoop(c *gin.Context, ws *websocket.Conn, sess *Session) string {
	conf := h.s.conf.Conn
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			return closeReason(sess, rerr)
		}
		_ = ws.SetReadDeadline(time.Now().Add(conf.PongWait))
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		h.s.OnMessage(c.Request.Context(), sess, data)
	}
}

func closeReason(sess *Session, rerr error) string {
	var ne net.Error
	switch {
	case websocket.IsCloseError(rerr, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		logger.Debug("[WS] peer closed", zap.String("session", sess.ID), zap.Error(rerr))
		return "peer closed"
	case errors.As(rerr, &ne) && ne.Timeout():
		logger.Info("[WS] read timeout", zap.String("session", sess.ID), zap.Error(rerr))
		return "read timeout"
	case !sess.IsOpen():
		return "closed by server"
	default:
		logger.Info("[WS] read err", zap.String("session", sess.ID), zap.Error(rerr))
		return "read error"
	}
}

func errCode(err error) int {
	if ce, ok := errs.AsCode(err); ok {
		return ce.Code
	}
	return errs.ServerInternalError
}

func errMsg(err error) string {
	if ce, ok := errs.AsCode(err); ok {
		return ce.Msg
	}
	return "internal error"
}
