package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (s *HTTPServer) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Login answers a missing field the same way as a wrong password.
func (s *HTTPServer) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortUnauthorized(c)
		return
	}

	tokens, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

func (s *HTTPServer) Token(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortUnauthorized(c)
		return
	}

	p, err := s.refresh.Authenticate(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p.Tokens)
}

func (s *HTTPServer) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortUnauthorized(c)
		return
	}

	if err := s.auth.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		s.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, common.ErrorValidation)
		return
	}

	account, err := s.users.Register(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "Registered", "user_id", account.ID)
	c.JSON(http.StatusCreated, account)
}

// Me reads the account again so the response reflects the stored profile
// rather than the copy the guard resolved.
func (s *HTTPServer) Me(c *gin.Context) {
	account, ok := accountFrom(c)
	if !ok {
		abortUnauthorized(c)
		return
	}

	view, err := s.users.Me(c.Request.Context(), account.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			abortUnauthorized(c)
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *HTTPServer) UpdateMe(c *gin.Context) {
	account, ok := accountFrom(c)
	if !ok {
		abortUnauthorized(c)
		return
	}

	var in services.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, common.ErrorValidation)
		return
	}

	updated, err := s.users.Update(c.Request.Context(), account.ID, in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
