package handlers

import (
	"net/http"

	"busticket/internal/auth"
	"busticket/internal/response"

	"github.com/gin-gonic/gin"
)

type SignupRequest struct {
	Username string `json:"username" binding:"required,max=50" example:"alice"`
	Email    string `json:"email" binding:"required,email,max=100" example:"a@x.com"`
	Password string `json:"password" binding:"required,min=6,max=72" example:"secret1"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"a@x.com"`
	Password string `json:"password" binding:"required" example:"secret1"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Signup godoc
// @Summary		Register a user
// @Description	Creates an account. Email and username must both be unused.
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			user	body		SignupRequest	true	"New user"
// @Success		200		{object}	response.User	"Registered user"
// @Failure		400		{object}	response.Error	"email already registered / username already taken"
// @Failure		422		{object}	response.Error	"Validation error"
// @Failure		500		{object}	response.Error	"Server error"
// @Router			/auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userView(user))
}

// Login godoc
// @Summary		Log in
// @Description	Checks credentials and returns an access and a refresh token
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			user	body		LoginRequest		true	"Credentials"
// @Success		200		{object}	response.Tokens	"Token pair"
// @Failure		401		{object}	response.Error	"Invalid credentials"
// @Failure		422		{object}	response.Error	"Validation error"
// @Failure		500		{object}	response.Error	"Server error"
// @Router			/auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Tokens{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Refresh godoc
// @Summary		Refresh tokens
// @Description	Exchanges a refresh token for a new token pair
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			refresh_token	body		RefreshTokenRequest	true	"Refresh token"
// @Success		200				{object}	response.Tokens		"New token pair"
// @Failure		401				{object}	response.Error		"Invalid or expired refresh token"
// @Failure		422				{object}	response.Error		"Validation error"
// @Router			/auth/refresh [post]
func (h *Handlers) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Tokens{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Me godoc
// @Summary		Current user
// @Tags			auth
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.User
// @Failure		401	{object}	response.Error
// @Router			/auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.auth.User(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userView(user))
}
