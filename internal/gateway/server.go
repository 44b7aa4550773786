package gateway

import (
	"crypto/subtle"
	"expvar"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradebridge/saxogw/internal/auth"
	"github.com/tradebridge/saxogw/internal/journal"
	"github.com/tradebridge/saxogw/internal/risk"
)

// Server exposes the gateway over HTTP: the TradingView webhook, the OAuth
// bootstrap callback, and a few operational endpoints.
type Server struct {
	coordinator *Coordinator
	provider    *auth.Provider
	manager     *auth.Manager
	breaker     *risk.CircuitBreaker
	journal     *journal.Journal // optional

	redirectURI   string
	webhookSecret string
}

func NewServer(coordinator *Coordinator, provider *auth.Provider, manager *auth.Manager, breaker *risk.CircuitBreaker, jnl *journal.Journal, redirectURI, webhookSecret string) *Server {
	return &Server{
		coordinator:   coordinator,
		provider:      provider,
		manager:       manager,
		breaker:       breaker,
		journal:       jnl,
		redirectURI:   redirectURI,
		webhookSecret: webhookSecret,
	}
}

// Router builds the gin handler tree.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/debug/vars", gin.WrapH(expvar.Handler()))

	r.GET("/webhook", s.handleWebhookProbe)
	r.POST("/webhook", s.handleWebhook)
	r.GET("/callback", s.handleCallback)
	r.POST("/refresh", s.handleRefresh)
	r.POST("/resume", s.handleResume)
	r.POST("/halt", s.handleHalt)
	r.GET("/executions", s.handleExecutions)

	return r
}

// handleWebhookProbe answers alert-configuration probes without trading.
func (s *Server) handleWebhookProbe(c *gin.Context) {
	c.String(http.StatusOK, "Webhook is alive. Use POST.")
}

func (s *Server) handleWebhook(c *gin.Context) {
	if s.webhookSecret != "" {
		given := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(given), []byte(s.webhookSecret)) != 1 {
			c.JSON(http.StatusUnauthorized, Envelope{Error: "missing or invalid webhook secret"})
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, Envelope{Error: "unreadable request body"})
		return
	}

	status, env := s.coordinator.Handle(c.Request.Context(), body)
	c.JSON(status, env)
}

// handleCallback finishes the interactive login: it redeems the
// authorization code and persists the resulting token pair, after which the
// gateway can refresh on its own.
func (s *Server) handleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "missing authorization code")
		return
	}
	reply, err := s.provider.ExchangeCode(c.Request.Context(), code, s.redirectURI)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	rec := s.manager.Adopt(reply)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "tokens stored",
		"expiresAt": rec.ExpiresAt,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if _, err := s.manager.ForceRefresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleResume(c *gin.Context) {
	s.breaker.Resume()
	c.JSON(http.StatusOK, gin.H{"success": true, "halted": false})
}

func (s *Server) handleHalt(c *gin.Context) {
	s.breaker.Halt()
	c.JSON(http.StatusOK, gin.H{"success": true, "halted": true})
}

func (s *Server) handleExecutions(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "journal disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := s.journal.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": entries})
}
