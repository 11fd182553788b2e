package handlers

import (
	"net/http"
	"server/auth"
	"server/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserHandler struct {
	DB *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserStatusResponse struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	IsGuest bool   `json:"is_guest"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var r RegisterRequest
	if !bindJSON(c, &r) {
		return
	}
	user, err := models.UserCreate(h.DB, r.Name, r.Email, r.Password)
	if err != nil {
		c.JSON(http.StatusConflict, Response{"email is already registered"})
		return
	}
	auth.LoadSession(c).LoginUser(user.ID)
	c.JSON(http.StatusOK, UserStatusResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

func (h *UserHandler) Login(c *gin.Context) {
	var r LoginRequest
	if !bindJSON(c, &r) {
		return
	}
	user, ok := models.UserLogin(h.DB, r.Email, r.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{"wrong email or password"})
		return
	}
	auth.LoadSession(c).LoginUser(user.ID)
	c.JSON(http.StatusOK, UserStatusResponse{
		ID: user.ID, Name: user.Name, Email: user.Email, IsAdmin: user.IsAdmin,
	})
}

func (h *UserHandler) Logout(c *gin.Context, user *models.User) {
	auth.LoadSession(c).LogoutUser()
	c.JSON(http.StatusOK, Response{})
}

func (h *UserHandler) Status(c *gin.Context, user *models.User) {
	c.JSON(http.StatusOK, UserStatusResponse{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		IsGuest: user.IsGuest,
	})
}

// List returns every account, guests included. Registered admin-only.
func (h *UserHandler) List(c *gin.Context, user *models.User) {
	var users []models.User
	if err := h.DB.Order("created_at, id").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	result := make([]UserStatusResponse, 0, len(users))
	for i := range users {
		result = append(result, UserStatusResponse{
			ID:      users[i].ID,
			Name:    users[i].Name,
			Email:   users[i].Email,
			IsAdmin: users[i].IsAdmin,
			IsGuest: users[i].IsGuest,
		})
	}
	c.JSON(http.StatusOK, result)
}

type UserSaveRequest struct {
	ID      uint64 `json:"id" binding:"required"`
	Name    string `json:"name" binding:"required,max=100"`
	IsAdmin *bool  `json:"is_admin"`
}

// Save renames an account or toggles its admin flag. Registered admin-only.
func (h *UserHandler) Save(c *gin.Context, user *models.User) {
	var r UserSaveRequest
	if !bindJSON(c, &r) {
		return
	}
	target := models.User{}
	if h.DB.First(&target, r.ID).Error != nil {
		c.JSON(http.StatusNotFound, Response{"user not found"})
		return
	}
	if r.IsAdmin != nil && *r.IsAdmin && target.IsGuest {
		c.JSON(http.StatusBadRequest, Response{"guest accounts cannot be admins"})
		return
	}
	target.Name = r.Name
	if r.IsAdmin != nil {
		target.IsAdmin = *r.IsAdmin
	}
	if err := h.DB.Save(&target).Error; err != nil {
		c.JSON(http.StatusInternalServerError, Response{"DB error"})
		return
	}
	c.JSON(http.StatusOK, UserStatusResponse{
		ID:      target.ID,
		Name:    target.Name,
		Email:   target.Email,
		IsAdmin: target.IsAdmin,
		IsGuest: target.IsGuest,
	})
}
