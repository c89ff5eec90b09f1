// Package handlers exposes the HTTP API on top of the auth and booking
// services.
package handlers

import (
	"context"
	"strconv"
	"sync"

	"busticket/internal/auth"
	"busticket/internal/booking"
	"busticket/internal/errs"
	"busticket/internal/response"
	"busticket/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var bindingNames sync.Once

// useJSONFieldNames makes gin's binding validator report fields the way
// clients spell them.
func useJSONFieldNames() {
	bindingNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(errs.JSONFieldName)
		}
	})
}

// Pinger is anything /healthz can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps lists what the handlers need. DB and Cache are only used by
// /healthz; Cache may be nil when Redis is not configured.
type Deps struct {
	Auth    *auth.Service
	Booking *booking.Service
	Tokens  *auth.TokenIssuer
	Hub     *ws.Hub
	DB      Pinger
	Cache   Pinger
	Log     *zap.Logger
}

type Handlers struct {
	auth    *auth.Service
	booking *booking.Service
	tokens  *auth.TokenIssuer
	hub     *ws.Hub
	db      Pinger
	cache   Pinger
	log     *zap.Logger
}

func New(d Deps) *Handlers {
	useJSONFieldNames()

	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		auth:    d.Auth,
		booking: d.Booking,
		tokens:  d.Tokens,
		hub:     d.Hub,
		db:      d.DB,
		cache:   d.Cache,
		log:     log.Named("http"),
	}
}

// Mount registers every route on r.
func (h *Handlers) Mount(r gin.IRouter) {
	r.GET("/", h.Liveness)
	r.GET("/healthz", h.Healthz)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.GET("/me", auth.Middleware(h.tokens), h.Me)
	}

	buses := r.Group("/buses")
	{
		buses.GET("", h.ListBuses)
		buses.GET("/:id", h.GetBus)
		buses.POST("", auth.Middleware(h.tokens), h.CreateBus)
		buses.GET("/:id/queue", h.GetQueue)
		buses.GET("/:id/ws", h.BusWebSocket)
	}

	protected := r.Group("", auth.Middleware(h.tokens))
	{
		protected.POST("/tickets", h.BookTicket)
		protected.GET("/tickets", h.MyTickets)
		protected.POST("/tickets/:id/cancel", h.CancelTicket)
		protected.POST("/tickets/:id/complete", h.CompleteTicket)
		protected.GET("/history", h.History)
	}
}

// writeError is the single place where errors become HTTP responses.
// Internal causes are logged, never sent.
func (h *Handlers) writeError(c *gin.Context, err error) {
	e := errs.From(err)
	status := e.Status()
	if status >= 500 {
		h.log.Error("request failed",
			zap.Error(err),
			zap.String("kind", e.Kind.String()),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
	}
	c.AbortWithStatusJSON(status, response.Error{Detail: e.Detail, Errors: e.Fields})
}

// bindJSON decodes the body into req, writing a 422 on failure.
func (h *Handlers) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.writeError(c, errs.FromValidation(err))
		return false
	}
	return true
}

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errs.Validation("validation failed",
			errs.FieldError{Field: "id", Error: "must be a positive integer"})
	}
	return uint(id), nil
}

func currentUser(c *gin.Context) (uint, error) {
	id, ok := auth.UserID(c)
	if !ok {
		return 0, errs.Unauthorized("authorization required")
	}
	return id, nil
}
