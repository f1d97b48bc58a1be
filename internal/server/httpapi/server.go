// Package httpapi exposes the inkpost HTTP API handlers.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/model"
	"github.com/Isma450/inkpost/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth    service.AuthService
	posts   service.PostService
	signKey []byte
	log     *zap.Logger
}

// New constructs a Server with injected services.
func New(auth service.AuthService, posts service.PostService, signKey []byte, log *zap.Logger) *Server {
	return &Server{auth: auth, posts: posts, signKey: signKey, log: log}
}

// Router builds the gin engine with all routes and middleware installed.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(Recover(s.log), Logging(s.log))

	api := r.Group("/api")
	api.POST("/register", s.register)
	api.POST("/login", s.login)
	api.POST("/token/refresh", s.refresh)
	api.POST("/password/reset", s.resetRequest)
	api.POST("/password/reset/:token", s.resetConfirm)
	api.GET("/posts", s.listPosts)
	api.GET("/posts/:id", s.getPost)
	api.GET("/authors/:id", s.aboutAuthor)

	authed := api.Group("", RequireAuth(s.signKey))
	authed.POST("/logout", s.logout)
	authed.POST("/posts", s.createPost)
	authed.POST("/posts/:id/comments", s.addComment)
	authed.POST("/posts/:id/reactions", s.toggleReaction)

	return r
}

// --- auth ---

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the login/register payload the client persists.
type authResponse struct {
	User    model.User `json:"user"`
	Access  string     `json:"access"`
	Refresh string     `json:"refresh"`
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tok, acc, err := s.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeError(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{User: acc.Public(), Access: tok.AccessToken, Refresh: tok.RefreshToken})
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tok, acc, err := s.auth.LoginWithIP(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		s.writeError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, authResponse{User: acc.Public(), Access: tok.AccessToken, Refresh: tok.RefreshToken})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tok, err := s.auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		s.writeError(c, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": tok.AccessToken, "refresh": tok.RefreshToken})
}

func (s *Server) logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req) // body optional; revocation is best-effort
	if err := s.auth.Logout(c.Request.Context(), req.Refresh); err != nil {
		s.log.Warn("logout: revoke failed", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

type resetRequestBody struct {
	Email string `json:"email"`
}

func (s *Server) resetRequest(c *gin.Context) {
	var req resetRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := s.auth.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// do not reveal whether the email exists
			c.JSON(http.StatusOK, gin.H{"detail": "reset email sent"})
			return
		}
		s.writeError(c, "password reset", err)
		return
	}
	// Mail delivery is out of scope; operators read the token from logs.
	s.log.Debug("password reset token minted", zap.String("token", token))
	c.JSON(http.StatusOK, gin.H{"detail": "reset email sent"})
}

type resetConfirmBody struct {
	Password string `json:"password"`
}

func (s *Server) resetConfirm(c *gin.Context) {
	var req resetConfirmBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.auth.ConfirmPasswordReset(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
			return
		}
		s.writeError(c, "password reset confirm", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "password updated"})
}

// --- posts ---

func (s *Server) listPosts(c *gin.Context) {
	posts, err := s.posts.List(c.Request.Context())
	if err != nil {
		s.writeError(c, "list posts", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (s *Server) getPost(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	p, err := s.posts.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, "get post", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) aboutAuthor(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad author id"})
		return
	}
	profile, err := s.posts.AuthorProfile(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, "author profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) createPost(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no auth"})
		return
	}
	// only staff authors publish
	acc, err := s.auth.Account(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, "create post", err)
		return
	}
	if !acc.IsStaff {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := s.posts.Create(c.Request.Context(), userID, req.Title, req.Content)
	if err != nil {
		s.writeError(c, "create post", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type commentRequest struct {
	Content string `json:"content"`
}

func (s *Server) addComment(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no auth"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := s.posts.AddComment(c.Request.Context(), id, userID, req.Content)
	if err != nil {
		s.writeError(c, "add comment", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type reactionRequest struct {
	Emoji model.Emoji `json:"emoji"`
}

func (s *Server) toggleReaction(c *gin.Context) {
	userID, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no auth"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := s.posts.ToggleReaction(c.Request.Context(), id, userID, req.Emoji)
	if err != nil {
		s.writeError(c, "toggle reaction", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// writeError maps sentinel errors to HTTP status codes.
func (s *Server) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad credentials"})
	case errors.Is(err, errs.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, errs.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
	default:
		s.log.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
