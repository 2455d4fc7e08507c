package messages

import (
	"net/http"
	"strconv"

	"github.com/ageniuscoder/pairchat/backend/internal/auth"
	"github.com/ageniuscoder/pairchat/backend/internal/httpx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handler struct {
	svc *Service
	log *zap.Logger
}

type sendReq struct {
	Text  *string `json:"text" binding:"omitempty,max=4000"`
	Image *string `json:"image" binding:"omitempty,max=2048"`
}

type peerURI struct {
	PeerID string `uri:"peerId" binding:"required"`
}

func Register(rg *gin.RouterGroup, svc *Service, log *zap.Logger) {
	h := handler{
		svc: svc,
		log: log,
	}
	rg.POST("/messages/:peerId", h.send)
	rg.GET("/messages/:peerId", h.list)
	rg.PATCH("/messages/:messageId/hide", h.hide)
	rg.DELETE("/messages/:messageId", h.deleteForEveryone)
	rg.DELETE("/chats/:peerId", h.clear)
}

func messageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Err(c, http.StatusBadRequest, "invalid message id")
		return 0, false
	}
	return id, true
}

func (h handler) send(c *gin.Context) {
	uid := auth.MustUserID(c)
	var uri peerURI
	if err := c.ShouldBindUri(&uri); err != nil {
		httpx.BindFail(c, err)
		return
	}
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BindFail(c, err)
		return
	}

	m, err := h.svc.Send(c.Request.Context(), uid, uri.PeerID, req.Text, req.Image)
	if err != nil {
		httpx.Fail(c, h.log, err)
		return
	}
	httpx.Created(c, m)
}

func (h handler) list(c *gin.Context) {
	uid := auth.MustUserID(c)
	var uri peerURI
	if err := c.ShouldBindUri(&uri); err != nil {
		httpx.BindFail(c, err)
		return
	}

	msgs, err := h.svc.List(c.Request.Context(), uid, uri.PeerID)
	if err != nil {
		httpx.Fail(c, h.log, err)
		return
	}
	httpx.OK(c, gin.H{"messages": msgs})
}

func (h handler) hide(c *gin.Context) {
	uid := auth.MustUserID(c)
	id, ok := messageID(c)
	if !ok {
		return
	}
	if _, err := h.svc.DeleteForMe(c.Request.Context(), id, uid); err != nil {
		httpx.Fail(c, h.log, err)
		return
	}
	httpx.OK(c, gin.H{"ok": true})
}

func (h handler) deleteForEveryone(c *gin.Context) {
	uid := auth.MustUserID(c)
	id, ok := messageID(c)
	if !ok {
		return
	}
	if _, err := h.svc.DeleteForEveryone(c.Request.Context(), id, uid); err != nil {
		httpx.Fail(c, h.log, err)
		return
	}
	httpx.OK(c, gin.H{"ok": true})
}

func (h handler) clear(c *gin.Context) {
	uid := auth.MustUserID(c)
	var uri peerURI
	if err := c.ShouldBindUri(&uri); err != nil {
		httpx.BindFail(c, err)
		return
	}

	n, err := h.svc.ClearChat(c.Request.Context(), uid, uri.PeerID)
	if err != nil {
		httpx.Fail(c, h.log, err)
		return
	}
	httpx.OK(c, gin.H{"ok": true, "deleted": n})
}
