package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/tinylink/internal/models"
	"github.com/SergeiKhy/tinylink/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	mu    sync.RWMutex
	links map[string]*models.Link
	// Err, when set, is returned by every operation
	Err error
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links: make(map[string]*models.Link),
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.links[link.Code]; exists {
		return repository.ErrCodeExists
	}

	link.Clicks = 0
	link.LastClicked = nil
	stored := *link
	m.links[link.Code] = &stored
	return nil
}

func (m *MockLinkRepository) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	link, exists := m.links[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return copyLink(link), nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	delete(m.links, code)
	return nil
}

func (m *MockLinkRepository) RecordHit(ctx context.Context, code string, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	link, exists := m.links[code]
	if !exists {
		return "", repository.ErrLinkNotFound
	}

	link.Clicks++
	if link.LastClicked == nil || at.After(*link.LastClicked) {
		t := at
		link.LastClicked = &t
	}
	return link.TargetURL, nil
}

func (m *MockLinkRepository) List(ctx context.Context) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	links := make([]models.Link, 0, len(m.links))
	for _, link := range m.links {
		links = append(links, *copyLink(link))
	}
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}
		return links[i].Code < links[j].Code
	})
	return links, nil
}

// Put stores a link as-is, bypassing uniqueness checks
func (m *MockLinkRepository) Put(link models.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[link.Code] = copyLink(&link)
}

func (m *MockLinkRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}

func (m *MockLinkRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = make(map[string]*models.Link)
	m.Err = nil
}

func copyLink(link *models.Link) *models.Link {
	c := *link
	if link.LastClicked != nil {
		t := *link.LastClicked
		c.LastClicked = &t
	}
	return &c
}

var ErrSinkUnavailable = errors.New("sink unavailable")

// MockEventSink records published events; it fails the first FailTimes calls
type MockEventSink struct {
	mu        sync.Mutex
	events    []*models.LinkEvent
	calls     int
	FailTimes int
}

func NewMockEventSink() *MockEventSink {
	return &MockEventSink{}
}

func (m *MockEventSink) Publish(ctx context.Context, event *models.LinkEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls <= m.FailTimes {
		return ErrSinkUnavailable
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventSink) Events() []*models.LinkEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.LinkEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockEventSink) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
