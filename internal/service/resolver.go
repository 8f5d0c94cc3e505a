package service

import (
	"context"
	"errors"

	"github.com/SergeiKhy/tinylink/internal/models"
	"go.uber.org/zap"
)

// Resolver превращает входящий код в решение о редиректе
type Resolver interface {
	Resolve(ctx context.Context, code string) (*models.Resolution, error)
}

type resolver struct {
	links  LinkService
	logger *zap.Logger
}

func NewResolver(links LinkService, logger *zap.Logger) Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &resolver{links: links, logger: logger}
}

// Resolve records a hit and returns OutcomeFound with the target URL, or
// OutcomeNotFound when the code is absent. Storage failures are returned as errors.
func (r *resolver) Resolve(ctx context.Context, code string) (*models.Resolution, error) {
	targetURL, err := r.links.RecordHit(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.Debug("Code not found", zap.String("code", code))
			return &models.Resolution{Code: code, Outcome: models.OutcomeNotFound}, nil
		}
		return nil, err
	}

	return &models.Resolution{
		Code:      code,
		Outcome:   models.OutcomeFound,
		TargetURL: targetURL,
	}, nil
}
