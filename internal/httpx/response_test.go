package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFail_StatusByKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{domain.Validationf("bad"), http.StatusBadRequest, "validation"},
		{domain.NotFoundf("gone"), http.StatusNotFound, "not_found"},
		{domain.PermissionDeniedf("nope"), http.StatusForbidden, "permission_denied"},
		{domain.Expiredf("late"), http.StatusGone, "expired"},
		{domain.Storage("append", errors.New("disk")), http.StatusInternalServerError, "storage"},
		{errors.New("boom"), http.StatusInternalServerError, "storage"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Fail(c, zap.NewNop(), tc.err)
		assert.Equal(t, tc.code, w.Code)
		assert.Contains(t, w.Body.String(), `"kind":"`+tc.kind+`"`)
	}
}

func TestFail_HidesStorageCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, zap.NewNop(), domain.Storage("append", errors.New("password=hunter2")))

	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.Contains(t, w.Body.String(), "internal error")
}

func TestBindFail_ListsFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	type body struct {
		Name string `json:"name" binding:"required"`
		Note string `json:"note" binding:"max=3"`
	}
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			BindFail(c, err)
			return
		}
		OK(c, b)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"note":"toolong"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":[
		{"field":"Name","tag":"required","message":"This field is required."},
		{"field":"Note","tag":"max","message":"Value is too long (max 3)."}
	]}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
