package users

import (
	"context"
	"sync"

	"github.com/ageniuscoder/pairchat/backend/internal/auth"
	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/ageniuscoder/pairchat/backend/internal/httpx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Enroller writes authenticated users into the directory the first time they
// show up, so they can be messaged without a separate account sync.
type Enroller struct {
	dir  Directory
	log  *zap.Logger
	seen sync.Map // user id -> username last written
}

func NewEnroller(dir Directory, log *zap.Logger) *Enroller {
	return &Enroller{dir: dir, log: log}
}

func (e *Enroller) Enroll(ctx context.Context, u User) error {
	if u.ID == "" {
		return domain.Validationf("user id is required")
	}
	if name, ok := e.seen.Load(u.ID); ok && (u.Username == "" || name == u.Username) {
		return nil
	}
	if err := e.dir.Upsert(ctx, u); err != nil {
		return err
	}
	e.seen.Store(u.ID, u.Username)
	e.log.Debug("user enrolled", zap.String("user_id", u.ID))
	return nil
}

// Middleware enrolls the caller. It runs after auth.JWTMiddleware.
func (e *Enroller) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := User{ID: auth.MustUserID(c), Username: auth.Username(c)}
		if err := e.Enroll(c.Request.Context(), u); err != nil {
			httpx.Fail(c, e.log, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
