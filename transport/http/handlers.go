package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sparksclub/walletauth/core"
	"github.com/sparksclub/walletauth/service"
)

const (
	msgInvalidRequest   = "Invalid request"
	msgInvalidNonce     = "Invalid or expired nonce"
	msgInvalidSignature = "Invalid signature"
	msgUnauthorized     = "Unauthorized"
	msgInternal         = "Internal server error"
)

// CookieConfig controls the session cookie set on login
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cookie      CookieConfig
	log         logrus.FieldLogger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookie CookieConfig, log logrus.FieldLogger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookie:      cookie,
		log:         log,
	}
}

type nonceRequest struct {
	WalletAddress string `json:"walletAddress"`
	WalletType    string `json:"walletType"`
}

type nonceResponse struct {
	Nonce     string `json:"nonce"`
	ExpiresIn int    `json:"expiresIn"`
}

type verifyRequest struct {
	WalletAddress string `json:"walletAddress"`
	WalletType    string `json:"walletType"`
	Nonce         string `json:"nonce"`
	Signature     string `json:"signature"`
}

type verifyResponse struct {
	User  core.PublicUser `json:"user"`
	Token string          `json:"token"`
}

// Nonce issues a challenge for a wallet address
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var req nonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		return
	}

	issued, err := h.authService.IssueChallenge(c.Request.Context(), req.WalletAddress, req.WalletType)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonceResponse{
		Nonce:     issued.Message,
		ExpiresIn: issued.ExpiresIn,
	})
}

// Verify checks a signed challenge and starts a session
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
		return
	}

	session, err := h.authService.Login(c.Request.Context(), service.LoginRequest{
		Address:    req.WalletAddress,
		WalletKind: req.WalletType,
		Message:    req.Nonce,
		Signature:  req.Signature,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token, h.authService.SessionTTL())
	c.JSON(http.StatusOK, verifyResponse{
		User:  session.User.Public(),
		Token: session.Token,
	})
}

// Logout revokes the current session and clears the cookie
func (h *AuthHandlers) Logout(c *gin.Context) {
	token := sessionToken(c, h.cookie.Name)

	// Clear the cookie even when the token is already unusable
	h.setSessionCookie(c, "", -time.Second)

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		if core.KindOf(err) == core.KindUnauthenticated {
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	token, _ := c.Get(ctxSessionToken)
	raw, _ := token.(string)

	user, err := h.authService.CurrentUser(c.Request.Context(), raw)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

// Health reports liveness
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AuthHandlers) setSessionCookie(c *gin.Context, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, int(ttl/time.Second), "/", h.cookie.Domain, h.cookie.Secure, true)
}

// writeError maps a classified error onto the status codes and bodies clients rely on
func (h *AuthHandlers) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch core.KindOf(err) {
	case core.KindInvalidRequest:
		var e *core.Error
		msg := msgInvalidRequest
		if errors.As(err, &e) && e.Message != "" {
			msg = e.Message
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
	case core.KindInvalidOrExpiredChallenge:
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidNonce})
	case core.KindInvalidSignature:
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidSignature})
	case core.KindUnauthenticated:
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}
