package users

import (
	"net/http"
	"strings"

	"github.com/ageniuscoder/pairchat/backend/internal/auth"
	"github.com/ageniuscoder/pairchat/backend/internal/httpx"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const searchLimit = 10

type Service struct {
	Directory Directory
	Log       *zap.Logger
}

func Register(rg *gin.RouterGroup, dir Directory, log *zap.Logger) {
	s := Service{
		Directory: dir,
		Log:       log,
	}
	rg.GET("/users/me", s.getMe)
	rg.GET("/users/search", s.searchUsers)
}

func (s Service) getMe(c *gin.Context) {
	uid := auth.MustUserID(c)

	me, err := s.Directory.Get(c.Request.Context(), uid)
	if err != nil {
		httpx.Fail(c, s.Log, err)
		return
	}
	httpx.OK(c, me)
}

func (s Service) searchUsers(c *gin.Context) {
	uid := auth.MustUserID(c)
	query := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if query == "" {
		httpx.Err(c, http.StatusBadRequest, "query parameter is required")
		return
	}

	list, err := s.Directory.List(c.Request.Context())
	if err != nil {
		httpx.Fail(c, s.Log, err)
		return
	}
	found := lo.Filter(list, func(u User, _ int) bool {
		return u.ID != uid && strings.Contains(strings.ToLower(u.Username), query)
	})
	if len(found) > searchLimit {
		found = found[:searchLimit]
	}
	httpx.OK(c, gin.H{"users": found})
}
