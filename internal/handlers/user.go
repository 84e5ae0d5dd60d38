package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lumiere/salon/internal/middleware"
	"lumiere/salon/internal/models"
	"lumiere/salon/internal/repository"
	"lumiere/salon/internal/security"
)

type userResponse struct {
	Email     string          `json:"email"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	DOB       *time.Time      `json:"dob,omitempty"`
	Gender    string          `json:"gender,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Address   addressResponse `json:"address"`
	IsAdmin   bool            `json:"isAdmin"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type addressResponse struct {
	Street   string `json:"street,omitempty"`
	Suburb   string `json:"suburb,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		DOB:       user.DOB,
		Gender:    string(user.Gender),
		Phone:     user.Phone,
		Address: addressResponse{
			Street:   user.Address.Street,
			Suburb:   user.Address.Suburb,
			Postcode: user.Address.Postcode,
			State:    user.Address.State,
			Country:  user.Address.Country,
		},
		IsAdmin:   user.IsAdmin,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (h HandlerSet) GetProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.log.Error().Err(err).Msg("get profile failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

type profileUpdateRequest struct {
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
}

// UpdateProfile mutates profile fields only. The authorization flags stay
// whatever they were; the embedded claims catch up on the next refresh.
func (h HandlerSet) UpdateProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), claims.Email)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
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

	if err := h.users.Update(c.Request.Context(), user); err != nil {
		h.log.Error().Err(err).Str("email", user.Email).Msg("update profile failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req passwordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), claims.Email)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	match, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil || !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	newHash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		h.log.Error().Err(err).Msg("hash password failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if err := h.users.UpdatePassword(c.Request.Context(), user.Email, newHash); err != nil {
		h.log.Error().Err(err).Str("email", user.Email).Msg("update password failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}
