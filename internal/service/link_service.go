package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/tinylink/internal/models"
	"github.com/SergeiKhy/tinylink/internal/repository"
	"go.uber.org/zap"
)

// Ошибки сервиса
var (
	ErrInvalidCodeFormat = errors.New("code must be 6-8 alphanumeric characters")
	ErrInvalidURLFormat  = errors.New("url must start with http:// or https://")
	ErrCodeAlreadyExists = errors.New("code already exists")
	ErrNotFound          = errors.New("link not found")
)

// EventPublisher принимает события о завершённых операциях
type EventPublisher interface {
	Publish(ctx context.Context, event *models.LinkEvent) error
}

// LinkService реестр коротких ссылок
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	GetLink(ctx context.Context, code string) (*models.Link, error)
	DeleteLink(ctx context.Context, code string) error
	RecordHit(ctx context.Context, code string) (string, error)
	ListLinks(ctx context.Context) ([]models.Link, error)
}

// linkService реализация реестра поверх LinkRepository
type linkService struct {
	linkRepo repository.LinkRepository
	events   EventPublisher
	logger   *zap.Logger
}

// NewLinkService создаёт новый экземпляр сервиса. events может быть nil.
func NewLinkService(linkRepo repository.LinkRepository, events EventPublisher, logger *zap.Logger) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		linkRepo: linkRepo,
		events:   events,
		logger:   logger,
	}
}

// CreateLink создаёт новую короткую ссылку. Выполняется ровно одна попытка
// вставки: конфликт сгенерированного кода возвращается вызывающему так же,
// как конфликт запрошенного.
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	var code string
	if input.CustomCode != nil && *input.CustomCode != "" {
		if err := ValidateCode(*input.CustomCode); err != nil {
			return nil, err
		}
		code = *input.CustomCode
	} else {
		generated, err := GenerateCode(DefaultCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}
		code = generated
	}

	link := &models.Link{
		Code:      code,
		TargetURL: input.TargetURL,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.linkRepo.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			s.logger.Info("Code already exists", zap.String("code", code))
			return nil, ErrCodeAlreadyExists
		}
		return nil, err
	}

	s.logger.Info("Link created", zap.String("code", link.Code))
	s.publish(ctx, models.EventLinkCreated, link.Code)

	return link, nil
}

// GetLink возвращает ссылку по точному совпадению кода
func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.linkRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return link, nil
}

// DeleteLink удаляет ссылку; отсутствие кода не считается ошибкой
func (s *linkService) DeleteLink(ctx context.Context, code string) error {
	if err := s.linkRepo.Delete(ctx, code); err != nil {
		return err
	}

	s.logger.Info("Link deleted", zap.String("code", code))
	s.publish(ctx, models.EventLinkDeleted, code)
	return nil
}

// RecordHit атомарно увеличивает счётчик кликов и возвращает целевой URL
func (s *linkService) RecordHit(ctx context.Context, code string) (string, error) {
	targetURL, err := s.linkRepo.RecordHit(ctx, code, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	s.publish(ctx, models.EventLinkHit, code)
	return targetURL, nil
}

// ListLinks возвращает все ссылки, новые первыми
func (s *linkService) ListLinks(ctx context.Context) ([]models.Link, error) {
	return s.linkRepo.List(ctx)
}

func (s *linkService) publish(ctx context.Context, eventType models.EventType, code string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, models.NewLinkEvent(eventType, code)); err != nil {
		s.logger.Debug("Failed to publish event (non-blocking)",
			zap.String("type", string(eventType)),
			zap.String("code", code),
			zap.Error(err),
		)
	}
}
