package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"investment-platform/internal/auth"
)

// LimiterStore hands out rate limiters keyed by user id. The in-process
// implementation below serves single-instance deployments; multi-instance
// deployments can plug a shared backing store behind the same interface.
type LimiterStore interface {
	Get(userID uint) *rate.Limiter
}

type memoryStore struct {
	mu      sync.Mutex
	clients map[uint]*client
	limit   rate.Limit
	burst   int
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryStore creates an in-process limiter store and starts its
// idle-entry cleanup loop.
func NewMemoryStore(rps float64, burst int) LimiterStore {
	s := &memoryStore{
		clients: make(map[uint]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
	go s.cleanup()
	return s
}

func (s *memoryStore) Get(userID uint) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[userID]
	if !ok {
		c = &client{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[userID] = c
	}
	c.lastSeen = time.Now()
	return c.limiter
}

func (s *memoryStore) cleanup() {
	for {
		time.Sleep(time.Minute)
		s.mu.Lock()
		for id, c := range s.clients {
			if time.Since(c.lastSeen) > 3*time.Minute {
				delete(s.clients, id)
			}
		}
		s.mu.Unlock()
	}
}

// UserRateLimit limits mutating requests per authenticated user.
// Must run after auth.AuthMiddleware.
func UserRateLimit(store LimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			c.Next()
			return
		}

		if !store.Get(userID).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
