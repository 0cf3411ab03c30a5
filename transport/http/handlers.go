package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
	"github.com/layer-3/rangda/service"
)

// DefaultAccessTTL is the lifetime of session access tokens minted
// after an accepted handshake.
const DefaultAccessTTL = 5 * time.Minute

// Handlers contains HTTP handlers for the handshake endpoints
type Handlers struct {
	handshake *service.HandshakeService
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	accessTTL time.Duration
}

// NewHandlers creates new handshake handlers
func NewHandlers(handshake *service.HandshakeService, tokenizer ports.Tokenizer, eventPub ports.EventPublisher) *Handlers {
	return &Handlers{
		handshake: handshake,
		tokenizer: tokenizer,
		eventPub:  eventPub,
		accessTTL: DefaultAccessTTL,
	}
}

// Challenge handles the challenge request. A body naming an address
// asks for a full ready-to-sign message; an empty body asks for the
// minimal nonce-and-expiration form.
func (h *Handlers) Challenge(c *gin.Context) {
	var req struct {
		Address     string `json:"address"`
		CallbackURI string `json:"callback_uri"`
		ChainID     int64  `json:"chain_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var chReq core.ChallengeRequest
	if req.Address == "" && req.CallbackURI == "" && req.ChainID == 0 {
		chReq = core.MinimalChallengeRequest{}
	} else {
		chReq = core.FullChallengeRequest{
			Address:     req.Address,
			CallbackURI: req.CallbackURI,
			ChainID:     req.ChainID,
		}
	}

	resp, err := h.handshake.IssueChallenge(c.Request.Context(), chReq)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidRequest):
			// Field-level detail stays in the log, not the response.
			log.Printf("rejected challenge request: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		case errors.Is(err, core.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		}
		return
	}

	body := gin.H{
		"nonce":      resp.Nonce,
		"expires_at": resp.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if resp.Message != "" {
		body["message"] = resp.Message
	}

	c.JSON(http.StatusOK, body)
}

// Verify handles proof submission. On acceptance it mints a session
// access token for the verified address.
func (h *Handlers) Verify(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Nonce     string `json:"nonce" binding:"required"`
		Address   string `json:"address"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	address, err := h.handshake.ValidateHandshake(c.Request.Context(), core.ProofEnvelope{
		Message:   req.Message,
		Signature: req.Signature,
		Nonce:     req.Nonce,
		Address:   req.Address,
	})
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Verification failed"

		switch {
		case errors.Is(err, core.ErrInvalidDomain),
			errors.Is(err, core.ErrInvalidStatement),
			errors.Is(err, core.ErrInvalidVersion):
			statusCode = http.StatusUnprocessableEntity
			errorMsg = "Message does not match server configuration"
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		case errors.Is(err, core.ErrMessageExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Message expired or replayed"
		case errors.Is(err, core.ErrStorageUnavailable):
			statusCode = http.StatusServiceUnavailable
			errorMsg = "Service unavailable"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	now := time.Now()
	session := &core.Session{
		ID:           uuid.New().String(),
		Address:      address,
		IssuedAt:     now,
		AccessExpiry: now.Add(h.accessTTL),
	}

	accessToken, err := h.tokenizer.SessionToAccessToken(session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	if h.eventPub != nil {
		// The handshake already succeeded; event delivery is best effort.
		if err := h.eventPub.PublishAccepted(c.Request.Context(), address, req.Nonce); err != nil {
			log.Printf("failed to publish accepted event: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int(h.accessTTL.Seconds()),
		"address":      address,
	})
}

// Me returns information about the authenticated user
func (h *Handlers) Me(c *gin.Context) {
	address, exists := c.Get("userAddress")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
	})
}

// Authorize checks if a user is authorized
func (h *Handlers) Authorize(c *gin.Context) {
	// The auth middleware has already validated the token.
	address, exists := c.Get("userAddress")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"address":    address,
	})
}
