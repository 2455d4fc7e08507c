package conversations

import (
	"github.com/ageniuscoder/pairchat/backend/internal/auth"
	"github.com/ageniuscoder/pairchat/backend/internal/httpx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Service struct {
	Aggregator *Aggregator
	Log        *zap.Logger
}

func Register(rg *gin.RouterGroup, agg *Aggregator, log *zap.Logger) {
	s := Service{
		Aggregator: agg,
		Log:        log,
	}
	rg.GET("/conversations", s.listMine)
}

func (s Service) listMine(c *gin.Context) {
	uid := auth.MustUserID(c)

	list, err := s.Aggregator.List(c.Request.Context(), uid)
	if err != nil {
		httpx.Fail(c, s.Log, err)
		return
	}
	httpx.OK(c, gin.H{"conversations": list})
}
