package auth

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/accswitch/internal/crypto"
	"github.com/iudanet/accswitch/internal/models"
)

// ErrInvalidTransition - переход между стадиями не разрешен
var ErrInvalidTransition = errors.New("invalid stage transition")

// transitions допустимые переходы. FAILED и CANCELLED обрабатываются отдельно.
var transitions = map[models.Stage][]models.Stage{
	models.StageInit:                {models.StageOpenBrowser, models.StageDeviceCodeRequested, models.StageDecrypting},
	models.StageOpenBrowser:         {models.StageCodeReceived},
	models.StageCodeReceived:        {models.StageTokensObtained},
	models.StageDeviceCodeRequested: {models.StagePolling},
	models.StagePolling:             {models.StageTokensObtained},
	models.StageDecrypting:          {models.StageGameAccessToken, models.StageRefreshing},
	models.StageRefreshing:          {models.StageTokensObtained},
	models.StageTokensObtained:      {models.StageXboxToken},
	models.StageXboxToken:           {models.StageXSTSToken},
	models.StageXSTSToken:           {models.StageGameAccessToken},
	models.StageGameAccessToken:     {models.StageProfileObtained, models.StageRefreshing},
	models.StageProfileObtained:     {models.StageEncrypting, models.StageDone},
	models.StageEncrypting:          {models.StageDone},
}

// Session - состояние одной попытки добавления или входа.
// Создается на каждую попытку и не используется повторно.
type Session struct {
	deadline  time.Time
	id        uuid.UUID
	state     string
	stage     models.Stage
	history   []models.Stage
	interval  time.Duration
	mu        sync.Mutex
	cancelled atomic.Bool
}

// NewSession создает сессию с новым anti-CSRF state
func NewSession() (*Session, error) {
	state, err := crypto.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	return &Session{
		id:      uuid.New(),
		state:   state,
		stage:   models.StageInit,
		history: []models.Stage{models.StageInit},
	}, nil
}

// ID идентификатор сессии для логов
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State возвращает anti-CSRF state
func (s *Session) State() string {
	return s.state
}

// Stage возвращает текущую стадию
func (s *Session) Stage() models.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// History возвращает пройденные стадии по порядку, начиная с init
func (s *Session) History() []models.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Advance переводит сессию в следующую стадию
func (s *Session) Advance(next models.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !allowed(s.stage, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.stage, next)
	}
	s.stage = next
	s.history = append(s.history, next)
	return nil
}

func allowed(from, to models.Stage) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case models.StageFailed:
		return true
	case models.StageCancelled:
		return from != models.StageEncrypting
	}
	return slices.Contains(transitions[from], to)
}

// Cancel отмечает сессию отмененной. Шаг, который уже выполняется, доработает,
// но его результат будет отброшен.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled сообщает, была ли сессия отменена
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// SetDeadline запоминает срок действия и интервал опроса device code
func (s *Session) SetDeadline(deadline time.Time, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadline = deadline
	s.interval = interval
}

// Deadline возвращает срок действия device code и интервал опроса
func (s *Session) Deadline() (time.Time, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline, s.interval
}

// String не раскрывает state
func (s *Session) String() string {
	return fmt.Sprintf("Session{id=%s, stage=%s, state=[STATE]}", s.id, s.Stage())
}
