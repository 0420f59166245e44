package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/genstudio/internal/config"
	"github.com/smallbiznis/genstudio/internal/generation/domain"
	"github.com/smallbiznis/genstudio/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/genstudio/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Minute

type GatewayParam struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Profiles *config.GenerationProfilesHolder
	Provider domain.Provider
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Gateway struct {
	log      *zap.Logger
	profiles *config.GenerationProfilesHolder
	provider domain.Provider
	timeout  time.Duration
	metrics  *obsmetrics.Metrics
	tracer   trace.Tracer
}

func NewGateway(p GatewayParam) *Gateway {
	timeout := p.Cfg.Generation.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{
		log:      p.Log.Named("generation.gateway"),
		profiles: p.Profiles,
		provider: p.Provider,
		timeout:  timeout,
		metrics:  p.Metrics,
		tracer:   otel.Tracer("genstudio/generation"),
	}
}

type normalizer func(domain.Output, domain.MediaKind) (string, error)

// Generate runs the media kind's primary model. A failed video generation
// gets exactly one attempt on the fallback model, read with the list rule
// only; if that also fails the primary failure is returned.
func (g *Gateway) Generate(ctx context.Context, req domain.Request) (*domain.Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}
	profile, err := g.profileFor(req.MediaKind)
	if err != nil {
		return nil, err
	}

	ctx, span := g.tracer.Start(ctx, "generation.Generate", trace.WithAttributes(
		attribute.String("genstudio.media_kind", string(req.MediaKind)),
		attribute.String("genstudio.provider", g.provider.Name()),
	))
	defer span.End()

	log := logger.WithContext(ctx, g.log).With(
		zap.String("generation_id", req.ID),
		zap.String("media_kind", string(req.MediaKind)),
	)

	url, primaryErr := g.attempt(ctx, log, req.MediaKind, profile.Model, buildInput(profile.Input, prompt), domain.Normalize)
	if primaryErr == nil {
		g.metrics.RecordGeneration(ctx, string(req.MediaKind), "success")
		return &domain.Result{AssetURL: url, MediaKind: req.MediaKind, Model: profile.Model}, nil
	}

	if req.MediaKind == domain.MediaKindVideo && strings.TrimSpace(profile.FallbackModel) != "" {
		log.Warn("primary model failed, trying fallback",
			zap.String("model", profile.Model),
			zap.String("fallback_model", profile.FallbackModel),
			zap.Error(primaryErr),
		)
		url, fallbackErr := g.attempt(ctx, log, req.MediaKind, profile.FallbackModel, buildInput(profile.FallbackInput, prompt), domain.NormalizeList)
		if fallbackErr == nil {
			g.metrics.RecordFallback(ctx, string(req.MediaKind), "success")
			g.metrics.RecordGeneration(ctx, string(req.MediaKind), "success")
			span.SetAttributes(attribute.Bool("genstudio.fallback", true))
			return &domain.Result{AssetURL: url, MediaKind: req.MediaKind, Model: profile.FallbackModel, Fallback: true}, nil
		}
		g.metrics.RecordFallback(ctx, string(req.MediaKind), "failure")
		log.Error("fallback model failed", zap.String("fallback_model", profile.FallbackModel), zap.Error(fallbackErr))
	}

	g.metrics.RecordGeneration(ctx, string(req.MediaKind), kindLabel(primaryErr))
	span.RecordError(primaryErr)
	span.SetStatus(codes.Error, kindLabel(primaryErr))
	return nil, primaryErr
}

func (g *Gateway) attempt(
	ctx context.Context,
	log *zap.Logger,
	kind domain.MediaKind,
	model string,
	input map[string]any,
	normalize normalizer,
) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	callCtx, span := g.tracer.Start(callCtx, "provider.Run", trace.WithAttributes(
		attribute.String("genstudio.model", model),
	))
	defer span.End()

	start := time.Now()
	out, err := g.provider.Run(callCtx, domain.Invocation{Model: model, MediaKind: kind, Input: input})
	g.metrics.RecordProviderLatency(ctx, g.provider.Name(), time.Since(start))
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			log.Warn("provider call timed out", zap.String("model", model), zap.Duration("timeout", g.timeout))
		}
		g.metrics.RecordProviderFailure(ctx, g.provider.Name(), domain.ErrProviderUnavailable.Error())
		span.SetStatus(codes.Error, domain.ErrProviderUnavailable.Error())
		return "", &domain.GenerationError{Kind: domain.ErrProviderUnavailable, Model: model, Err: err}
	}

	url, err := normalize(out, kind)
	if err != nil {
		kindErr := domain.KindOf(err)
		log.Warn("provider output could not be normalized",
			zap.String("model", model),
			zap.String("output_kind", out.Kind.String()),
			zap.Any("raw_output", out.Raw()),
			zap.Error(err),
		)
		g.metrics.RecordProviderFailure(ctx, g.provider.Name(), kindErr.Error())
		span.SetStatus(codes.Error, kindErr.Error())
		return "", &domain.GenerationError{Kind: kindErr, Model: model, Err: err}
	}

	log.Debug("provider output normalized",
		zap.String("model", model),
		zap.Any("raw_output", out.Raw()),
	)
	return url, nil
}

func (g *Gateway) profileFor(kind domain.MediaKind) (config.ModelProfile, error) {
	profiles := g.profiles.Get()
	switch kind {
	case domain.MediaKindAudio:
		return profiles.Audio, nil
	case domain.MediaKindVideo:
		return profiles.Video, nil
	default:
		return config.ModelProfile{}, domain.ErrUnsupportedMediaKind
	}
}

// buildInput copies the fixed parameters and sets the prompt.
func buildInput(fixed map[string]any, prompt string) map[string]any {
	input := make(map[string]any, len(fixed)+1)
	for k, v := range fixed {
		input[k] = v
	}
	input["prompt"] = prompt
	return input
}

func kindLabel(err error) string {
	if kind := domain.KindOf(err); kind != nil {
		return kind.Error()
	}
	return "error"
}

var _ domain.Service = (*Gateway)(nil)
