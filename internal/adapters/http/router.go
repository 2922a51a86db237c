package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/chatter/internal/adapters/ws"
	"github.com/dkeye/chatter/internal/auth"
	"github.com/dkeye/chatter/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, authSvc *auth.Service, ctrl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.POST("/login", loginHandler(authSvc))

	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleWS(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}

func loginHandler(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid username or password"})
			return
		}

		token, user, err := authSvc.Login(req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid username or password"})
				return
			}
			log.Error().Str("module", "adapters.http").Err(err).Msg("login error")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Login error"})
			return
		}

		var resp LoginResponse
		resp.Token = token
		resp.User.ID = string(user.ID)
		resp.User.Name = user.Name
		resp.User.Email = user.Email
		c.JSON(http.StatusOK, resp)
	}
}
