package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/sculptai/posecoach/bodymetrics"
	"github.com/sculptai/posecoach/capture"
	"github.com/sculptai/posecoach/config"
	"github.com/sculptai/posecoach/events"
	"github.com/sculptai/posecoach/functions"
	"github.com/sculptai/posecoach/gemini"
	"github.com/sculptai/posecoach/metrics"
)

// Manager owns every relay, enforces the session cap, mirrors session
// state and transcripts into Redis, and publishes finalized turns.
type Manager struct {
	relays    map[string]*Relay
	mu        sync.RWMutex
	redis     *redis.Client
	config    *config.Config
	publisher *events.Publisher
	profile   bodymetrics.Profile
}

// NewManager creates a session manager. Redis is best-effort: when the
// ping fails the manager runs without the registry.
func NewManager(cfg *config.Config, publisher *events.Publisher) (*Manager, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without session registry")
		redisClient = nil
	}

	return &Manager{
		relays:    make(map[string]*Relay),
		redis:     redisClient,
		config:    cfg,
		publisher: publisher,
		profile:   DefaultProfile,
	}, nil
}

// CreateSession builds a relay for a new client connection: one live
// transport, one push source, one session.
func (m *Manager) CreateSession(ctx context.Context, clientConn *websocket.Conn) (*Relay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.relays) >= m.config.MaxSessions {
		metrics.SessionsRejected.Inc()
		return nil, fmt.Errorf("maximum sessions reached")
	}

	sessionID := uuid.New().String()

	live, err := gemini.NewLive(ctx, m.config.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create live transport: %w", err)
	}
	live.SetToolHandler(m.toolHandler)

	systemPrompt := BuildSystemPrompt(m.profile)
	connect := func(ctx context.Context) error {
		return live.Connect(ctx, systemPrompt, m.config.VoiceName, functions.BuildTools())
	}

	push := capture.NewPushSource(m.config.MaxBufferSize)
	relay := NewRelay(sessionID, clientConn, live, push, connect, func(turns []Turn) {
		m.recordTurns(sessionID, turns)
	})

	m.storeSession(ctx, sessionID, relay)
	return relay, nil
}

// toolHandler resolves model function calls against the athlete profile.
func (m *Manager) toolHandler(calls []*genai.FunctionCall) []*genai.FunctionResponse {
	var responses []*genai.FunctionResponse
	for _, fc := range calls {
		var response map[string]any
		switch fc.Name {
		case "GetAthleteProfile":
			response = functions.AthleteProfileResponse(m.profile)
		default:
			response = map[string]any{"error": fmt.Sprintf("Unknown function: %s", fc.Name)}
			log.Warn().Str("function", fc.Name).Msg("unknown function called")
		}
		responses = append(responses, &genai.FunctionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: response,
		})
	}
	return responses
}

// recordTurns mirrors finalized turns into Redis and publishes them.
func (m *Manager) recordTurns(sessionID string, turns []Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, turn := range turns {
		if m.redis != nil {
			entry := fmt.Sprintf("%s: %s", turn.Speaker, turn.Text)
			m.redis.RPush(ctx, "session:transcript:"+sessionID, entry)
			m.redis.Expire(ctx, "session:transcript:"+sessionID, m.config.SessionTimeout)
		}
		if m.publisher != nil {
			_ = m.publisher.PublishTurn(ctx, events.TurnEvent{
				SessionID: sessionID,
				Speaker:   string(turn.Speaker),
				Text:      turn.Text,
				At:        time.Now(),
			})
		}
	}
}

// storeSession saves a relay to memory and Redis
func (m *Manager) storeSession(ctx context.Context, sessionID string, relay *Relay) {
	m.relays[sessionID] = relay

	if m.redis != nil {
		m.redis.HSet(ctx, "session:"+sessionID, map[string]interface{}{
			"created_at": relay.sess.CreatedAt.Format(time.RFC3339),
			"status":     "active",
		})
		m.redis.SAdd(ctx, "active_sessions", sessionID)
		m.redis.Expire(ctx, "session:"+sessionID, m.config.SessionTimeout)
	}
}

// GetSession retrieves a relay by ID
func (m *Manager) GetSession(sessionID string) (*Relay, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	relay, exists := m.relays[sessionID]
	return relay, exists
}

// RemoveSession cleans up and removes a relay
func (m *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	relay, exists := m.relays[sessionID]
	if !exists {
		return nil
	}

	relay.Close()
	delete(m.relays, sessionID)

	if m.redis != nil {
		m.redis.Del(ctx, "session:"+sessionID)
		m.redis.SRem(ctx, "active_sessions", sessionID)
	}
	return nil
}

// GetActiveSessionCount returns current session count
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.relays)
}

// CleanupInactiveSessions removes sessions past the inactivity timeout
func (m *Manager) CleanupInactiveSessions(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, relay := range m.relays {
		if now.Sub(relay.sess.LastActive()) > m.config.SessionTimeout {
			relay.Close()
			delete(m.relays, id)

			if m.redis != nil {
				m.redis.Del(ctx, "session:"+id)
				m.redis.SRem(ctx, "active_sessions", id)
			}
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions
func (m *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes all relays
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, relay := range m.relays {
		relay.Close()
		delete(m.relays, id)
	}

	if m.redis != nil {
		m.redis.Close()
	}
	if m.publisher != nil {
		m.publisher.Close()
	}
}
