package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	midsec "PPicture/middleware/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestManagerOrderAndAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager()
	var order []string
	m.Add("a", func(*gin.Context) { order = append(order, "a") })
	m.Add("b", func(*gin.Context) { order = append(order, "b") })
	m.Add("a", func(*gin.Context) { order = append(order, "a2") })
	assert.Equal(t, []string{"a", "b"}, m.Names())

	r := gin.New()
	r.Use(m.Use())
	r.GET("/x", func(c *gin.Context) { order = append(order, "h"); c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, []string{"a2", "b", "h"}, order)

	order = nil
	m.Add("stop", func(c *gin.Context) { c.AbortWithStatus(http.StatusTeapot) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, []string{"a2", "b"}, order)

	assert.True(t, m.Remove("stop"))
	assert.False(t, m.Remove("stop"))
}

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"app.example.com", "*.ppicture.io"})
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, check(req("")))
	assert.True(t, check(req("https://app.example.com")))
	assert.True(t, check(req("https://team.ppicture.io")))
	assert.False(t, check(req("https://evil.com")))
	assert.True(t, OriginChecker(nil)(req("https://evil.com")))
	assert.True(t, OriginChecker([]string{"*"})(req("https://evil.com")))
}

func TestRouteAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AccessLog("/healthz"))
	ok := func(c *gin.Context) { c.String(http.StatusOK, midsec.TokenFrom(c)) }
	GET(r, "/open", ok, RouteOpt{})
	GET(r, "/secure", ok, RouteOpt{IsAuth: true, Auth: &midsec.Options{HeaderToken: "authorization", EnableAuthorizationBearer: true, Required: true}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer t1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t1", w.Body.String())
}
