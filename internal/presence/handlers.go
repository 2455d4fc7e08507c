package presence

import (
	"github.com/ageniuscoder/pairchat/backend/internal/httpx"
	"github.com/gin-gonic/gin"
)

type Service struct {
	Registry *Registry
}

func Register(rg *gin.RouterGroup, reg *Registry) {
	s := Service{
		Registry: reg,
	}
	rg.GET("/users/online", s.listOnline)
	rg.GET("/users/:id/online", s.isOnline)
}

func (s Service) listOnline(c *gin.Context) {
	httpx.OK(c, gin.H{"online": s.Registry.Online()})
}

func (s Service) isOnline(c *gin.Context) {
	uid := c.Param("id")
	httpx.OK(c, gin.H{"userId": uid, "online": s.Registry.IsOnline(uid)})
}
