package service_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/tinylink/internal/models"
	"github.com/SergeiKhy/tinylink/internal/service"
	"github.com/SergeiKhy/tinylink/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeRegexp = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// setupTestService создаёт тестовое окружение с моковым репозиторием
func setupTestService() (service.LinkService, *mocks.MockLinkRepository, *mocks.MockEventSink) {
	linkRepo := mocks.NewMockLinkRepository()
	sink := mocks.NewMockEventSink()
	logger, _ := zap.NewDevelopment()
	linkService := service.NewLinkService(linkRepo, sink, logger)
	return linkService, linkRepo, sink
}

func strPtr(s string) *string {
	return &s
}

// TestLinkService_CreateLink_Generated проверяет создание ссылки без кода
func TestLinkService_CreateLink_Generated(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		TargetURL: "https://example.com/test",
	})
	require.NoError(t, err)
	assert.Regexp(t, codeRegexp, link.Code)
	assert.Len(t, link.Code, service.DefaultCodeLength)

	stored, err := linkService.GetLink(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/test", stored.TargetURL)
	assert.Equal(t, int64(0), stored.Clicks)
	assert.Nil(t, stored.LastClicked)
	assert.Equal(t, time.UTC, stored.CreatedAt.Location())
}

// TestLinkService_CreateLink_EmptyCustomCode пустой код означает автогенерацию
func TestLinkService_CreateLink_EmptyCustomCode(t *testing.T) {
	linkService, _, _ := setupTestService()

	link, err := linkService.CreateLink(context.Background(), &models.CreateLinkInput{
		TargetURL:  "https://example.com",
		CustomCode: strPtr(""),
	})
	require.NoError(t, err)
	assert.Regexp(t, codeRegexp, link.Code)
}

// TestLinkService_CreateLink_WithCustomCode проверяет создание ссылки с кастомным кодом
func TestLinkService_CreateLink_WithCustomCode(t *testing.T) {
	linkService, _, _ := setupTestService()

	for _, code := range []string{"abc123", "ABCdef12", "Zz9Zz9z"} {
		link, err := linkService.CreateLink(context.Background(), &models.CreateLinkInput{
			TargetURL:  "https://example.com",
			CustomCode: strPtr(code),
		})
		require.NoError(t, err)
		assert.Equal(t, code, link.Code)
	}
}

// TestLinkService_CreateLink_InvalidCustomCode проверяет валидацию кастомного кода
func TestLinkService_CreateLink_InvalidCustomCode(t *testing.T) {
	linkService, linkRepo, _ := setupTestService()

	invalidCodes := []string{"abc12", "abcdefghi", "abc-123", "abc 123", "абвгде", "abc12_"}

	for _, code := range invalidCodes {
		link, err := linkService.CreateLink(context.Background(), &models.CreateLinkInput{
			TargetURL:  "https://example.com",
			CustomCode: strPtr(code),
		})
		assert.ErrorIs(t, err, service.ErrInvalidCodeFormat, "code %q", code)
		assert.Nil(t, link)
	}

	assert.Equal(t, 0, linkRepo.Len())
}

// TestLinkService_CreateLink_Duplicate повторный код отклоняется, первая запись не меняется
func TestLinkService_CreateLink_Duplicate(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	_, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		TargetURL:  "https://first.example.com",
		CustomCode: strPtr("abc123"),
	})
	require.NoError(t, err)

	link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		TargetURL:  "https://second.example.com",
		CustomCode: strPtr("abc123"),
	})
	assert.ErrorIs(t, err, service.ErrCodeAlreadyExists)
	assert.Nil(t, link)

	stored, err := linkService.GetLink(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://first.example.com", stored.TargetURL)
}

// TestLinkService_CreateLink_GeneratedCollisionNotRetried сервис делает одну попытку вставки
func TestLinkService_CreateLink_GeneratedCollisionNotRetried(t *testing.T) {
	linkRepo := &collidingRepository{MockLinkRepository: mocks.NewMockLinkRepository()}
	linkService := service.NewLinkService(linkRepo, nil, nil)

	_, err := linkService.CreateLink(context.Background(), &models.CreateLinkInput{
		TargetURL: "https://example.com",
	})
	assert.ErrorIs(t, err, service.ErrCodeAlreadyExists)
	assert.Equal(t, 1, linkRepo.attempts)
}

// TestLinkService_CreateLink_StorageError ошибка хранилища пробрасывается
func TestLinkService_CreateLink_StorageError(t *testing.T) {
	linkService, linkRepo, sink := setupTestService()
	storageErr := errors.New("disk I/O error")
	linkRepo.Err = storageErr

	_, err := linkService.CreateLink(context.Background(), &models.CreateLinkInput{
		TargetURL: "https://example.com",
	})
	assert.ErrorIs(t, err, storageErr)
	assert.Empty(t, sink.Events())
}

// TestLinkService_Scenario полный жизненный цикл ссылки
func TestLinkService_Scenario(t *testing.T) {
	linkService, _, sink := setupTestService()
	ctx := context.Background()

	link, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		TargetURL:  "https://example.com",
		CustomCode: strPtr("abc123"),
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", link.Code)

	stored, err := linkService.GetLink(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Clicks)
	assert.Nil(t, stored.LastClicked)

	target, err := linkService.RecordHit(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)

	stored, err = linkService.GetLink(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Clicks)
	require.NotNil(t, stored.LastClicked)

	require.NoError(t, linkService.DeleteLink(ctx, "abc123"))

	_, err = linkService.GetLink(ctx, "abc123")
	assert.ErrorIs(t, err, service.ErrNotFound)

	var types []models.EventType
	for _, e := range sink.Events() {
		types = append(types, e.Type)
		assert.Equal(t, "abc123", e.Code)
	}
	assert.Equal(t, []models.EventType{
		models.EventLinkCreated,
		models.EventLinkHit,
		models.EventLinkDeleted,
	}, types)
}

// TestLinkService_RecordHit_NotFound промах не создаёт запись
func TestLinkService_RecordHit_NotFound(t *testing.T) {
	linkService, linkRepo, sink := setupTestService()

	target, err := linkService.RecordHit(context.Background(), "nothere")
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Empty(t, target)
	assert.Equal(t, 0, linkRepo.Len())
	assert.Empty(t, sink.Events())
}

// TestLinkService_RecordHit_LastClickedMonotonic last_clicked не убывает
func TestLinkService_RecordHit_LastClickedMonotonic(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	_, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		TargetURL:  "https://example.com",
		CustomCode: strPtr("mono123"),
	})
	require.NoError(t, err)

	var previous time.Time
	for i := 1; i <= 5; i++ {
		_, err := linkService.RecordHit(ctx, "mono123")
		require.NoError(t, err)

		stored, err := linkService.GetLink(ctx, "mono123")
		require.NoError(t, err)
		assert.Equal(t, int64(i), stored.Clicks)
		require.NotNil(t, stored.LastClicked)
		assert.False(t, stored.LastClicked.Before(previous))
		previous = *stored.LastClicked
	}
}

// TestLinkService_RecordHit_Concurrent одновременные клики не теряются
func TestLinkService_RecordHit_Concurrent(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	_, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
		TargetURL:  "https://example.com",
		CustomCode: strPtr("conc123"),
	})
	require.NoError(t, err)

	const hits = 50
	var wg sync.WaitGroup
	for i := 0; i < hits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := linkService.RecordHit(ctx, "conc123")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := linkService.GetLink(ctx, "conc123")
	require.NoError(t, err)
	assert.Equal(t, int64(hits), stored.Clicks)
}

// TestLinkService_DeleteLink_NotFound удаление отсутствующего кода не ошибка
func TestLinkService_DeleteLink_NotFound(t *testing.T) {
	linkService, _, _ := setupTestService()

	err := linkService.DeleteLink(context.Background(), "nonexistent")
	assert.NoError(t, err)
}

// TestLinkService_ListLinks новые ссылки первыми
func TestLinkService_ListLinks(t *testing.T) {
	linkService, linkRepo, _ := setupTestService()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	linkRepo.Put(models.Link{Code: "old0001", TargetURL: "https://a.example", CreatedAt: base})
	linkRepo.Put(models.Link{Code: "new0001", TargetURL: "https://b.example", CreatedAt: base.Add(time.Hour)})
	linkRepo.Put(models.Link{Code: "mid0001", TargetURL: "https://c.example", CreatedAt: base.Add(time.Minute)})

	links, err := linkService.ListLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "new0001", links[0].Code)
	assert.Equal(t, "mid0001", links[1].Code)
	assert.Equal(t, "old0001", links[2].Code)
}

// TestLinkService_GenerateCodes_Distinct два создания подряд дают разные коды
func TestLinkService_GenerateCodes_Distinct(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	first, err := linkService.CreateLink(ctx, &models.CreateLinkInput{TargetURL: "https://x.com"})
	require.NoError(t, err)
	second, err := linkService.CreateLink(ctx, &models.CreateLinkInput{TargetURL: "https://x.com"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Code, second.Code)
}

// TestLinkService_ConcurrentCreateSameCode успешно только одно создание
func TestLinkService_ConcurrentCreateSameCode(t *testing.T) {
	linkService, _, _ := setupTestService()
	ctx := context.Background()

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := linkService.CreateLink(ctx, &models.CreateLinkInput{
				TargetURL:  "https://example.com",
				CustomCode: strPtr("same123"),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, service.ErrCodeAlreadyExists) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

// collidingRepository всегда сообщает о конфликте кода
type collidingRepository struct {
	*mocks.MockLinkRepository
	attempts int
}

func (r *collidingRepository) Create(ctx context.Context, link *models.Link) error {
	r.attempts++
	r.Put(*link)
	return r.MockLinkRepository.Create(ctx, link)
}
