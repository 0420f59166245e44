package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	generationdomain "github.com/smallbiznis/genstudio/internal/generation/domain"
	"github.com/smallbiznis/genstudio/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	headerAccountState = "X-Account-State"
	accountStateStale  = "stale"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	URL       string                     `json:"url"`
	MediaKind generationdomain.MediaKind `json:"media_kind"`
}

func (s *Server) GenerateMusic(c *gin.Context) {
	s.generate(c, generationdomain.MediaKindAudio)
}

func (s *Server) GenerateVideo(c *gin.Context) {
	s.generate(c, generationdomain.MediaKindVideo)
}

// generate admits the caller, runs the gateway and charges the free tier
// only after a usable asset URL came back.
func (s *Server) generate(c *gin.Context, kind generationdomain.MediaKind) {
	c.Set("media_kind", string(kind))

	caller, ok := callerID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	// Every answer may have changed paid status or the counter.
	c.Header(headerAccountState, accountStateStale)
	defer s.quota.Refresh(caller)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		AbortWithError(c, generationdomain.ErrInvalidPrompt)
		return
	}

	reqCtx := c.Request.Context()
	decision, err := s.quota.Check(reqCtx, caller, kind)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The provider call outlives a disconnected client.
	ctx := context.WithoutCancel(reqCtx)
	genReq := generationdomain.Request{
		ID:        ulid.Make().String(),
		CallerID:  caller,
		Prompt:    req.Prompt,
		MediaKind: kind,
	}
	log := logger.FromContext(ctx).With(zap.String("generation_id", genReq.ID))

	res, err := s.generator.Generate(ctx, genReq)
	if err != nil {
		if !errors.Is(err, generationdomain.ErrInvalidPrompt) {
			log.Error("generation failed", zap.Error(err))
		}
		AbortWithError(c, &generationFailure{kind: kind, err: err})
		return
	}

	if err := s.quota.Charge(ctx, decision, genReq, res); err != nil {
		log.Error("usage increment failed after successful generation", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, generateResponse{URL: res.AssetURL, MediaKind: res.MediaKind})
}

func (s *Server) GetAccountUsage(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	account, err := s.quota.Account(c.Request.Context(), caller)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
