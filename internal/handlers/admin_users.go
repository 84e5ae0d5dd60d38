package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lumiere/salon/internal/models"
	"lumiere/salon/internal/repository"
	"lumiere/salon/internal/security"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("admin list users failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}

	c.JSON(http.StatusOK, resp)
}

type adminUserCreateRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender" binding:"omitempty,oneof=male female 'not listed'"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	Suburb    string `json:"suburb"`
	Postcode  string `json:"postcode"`
	State     string `json:"state"`
	Country   string `json:"country"`
	IsAdmin   bool   `json:"isAdmin"`
	IsActive  *bool  `json:"isActive"`
}

func (h HandlerSet) AdminCreateUser(c *gin.Context) {
	var req adminUserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	passwordHash, err := security.HashPassword(req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("hash password failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user := models.User{
		Email:        strings.TrimSpace(strings.ToLower(req.Email)),
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Gender:       models.Gender(req.Gender),
		Phone:        req.Phone,
		Address: models.Address{
			Street:   req.Street,
			Suburb:   req.Suburb,
			Postcode: req.Postcode,
			State:    req.State,
			Country:  req.Country,
		},
		IsAdmin:  req.IsAdmin,
		IsActive: true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.DOB != "" {
		dob, err := time.Parse("2006-01-02", req.DOB)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dob must be in YYYY-MM-DD format"})
			return
		}
		user.DOB = &dob
	}

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
			return
		}
		h.log.Error().Err(err).Msg("admin create user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

type adminUserUpdateRequest struct {
	Password  string `json:"password" binding:"omitempty,min=6"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender" binding:"omitempty,oneof=male female 'not listed'"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	Suburb    string `json:"suburb"`
	Postcode  string `json:"postcode"`
	State     string `json:"state"`
	Country   string `json:"country"`
	IsAdmin   *bool  `json:"isAdmin"`
	IsActive  *bool  `json:"isActive"`
}

// AdminUpdateUser rewrites a user's profile and flags. Flag changes land in
// the user's tokens only at their next refresh or login.
func (h HandlerSet) AdminUpdateUser(c *gin.Context) {
	email := strings.ToLower(c.Param("email"))

	var req adminUserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.log.Error().Err(err).Msg("admin get user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Gender = models.Gender(req.Gender)
	user.Phone = req.Phone
	user.Address = models.Address{
		Street:   req.Street,
		Suburb:   req.Suburb,
		Postcode: req.Postcode,
		State:    req.State,
		Country:  req.Country,
	}
	if req.DOB != "" {
		dob, err := time.Parse("2006-01-02", req.DOB)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dob must be in YYYY-MM-DD format"})
			return
		}
		user.DOB = &dob
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := h.users.Update(c.Request.Context(), user); err != nil {
		h.log.Error().Err(err).Str("email", email).Msg("admin update user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if req.Password != "" {
		newHash, err := security.HashPassword(req.Password)
		if err != nil {
			h.log.Error().Err(err).Msg("hash password failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if err := h.users.UpdatePassword(c.Request.Context(), email, newHash); err != nil {
			h.log.Error().Err(err).Str("email", email).Msg("admin reset password failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	email := strings.ToLower(c.Param("email"))

	if err := h.users.Delete(c.Request.Context(), email); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.log.Error().Err(err).Str("email", email).Msg("admin delete user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}
