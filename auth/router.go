package auth

import (
	"net/http"
	"server/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HandlerFunc receives the authenticated, pre-loaded user.
type HandlerFunc func(c *gin.Context, user *models.User)

// Router is a wrapper that adds auth checks + user pre-loading
type Router struct {
	Base *gin.Engine
	DB   *gorm.DB
}

func (cr *Router) baseExec(c *gin.Context, handler HandlerFunc, adminOnly bool) {
	session := LoadSession(c)
	user := session.User(cr.DB)
	if user.ID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	if adminOnly && !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	handler(c, &user)
}

func (cr *Router) GET(path string, handler HandlerFunc) {
	cr.Base.GET(path, func(c *gin.Context) {
		cr.baseExec(c, handler, false)
	})
}

func (cr *Router) POST(path string, handler HandlerFunc) {
	cr.Base.POST(path, func(c *gin.Context) {
		cr.baseExec(c, handler, false)
	})
}

func (cr *Router) PUT(path string, handler HandlerFunc) {
	cr.Base.PUT(path, func(c *gin.Context) {
		cr.baseExec(c, handler, false)
	})
}

func (cr *Router) DELETE(path string, handler HandlerFunc) {
	cr.Base.DELETE(path, func(c *gin.Context) {
		cr.baseExec(c, handler, false)
	})
}

func (cr *Router) AdminGET(path string, handler HandlerFunc) {
	cr.Base.GET(path, func(c *gin.Context) {
		cr.baseExec(c, handler, true)
	})
}

func (cr *Router) AdminPOST(path string, handler HandlerFunc) {
	cr.Base.POST(path, func(c *gin.Context) {
		cr.baseExec(c, handler, true)
	})
}
