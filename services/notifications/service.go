package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"edumesh/config"
	"edumesh/database"
	"edumesh/models"
)

// WSHub pushes realtime events to connected users. The concrete hub is
// injected from main to avoid an import cycle with the websocket package.
type WSHub interface {
	BroadcastToUser(userID uint, message interface{})
}

var defaultHub WSHub

// SetDefaultWSHub wires the realtime hub used for notification pushes.
func SetDefaultWSHub(h WSHub) { defaultHub = h }

const queueKey = "notifications:queue"

// Payload describes a single notification to deliver.
type Payload struct {
	SchoolID uint        `json:"school_id"`
	UserID   uint        `json:"user_id"`
	Type     string      `json:"type"`
	Title    string      `json:"title"`
	Body     string      `json:"body"`
	Data     models.JSON `json:"data,omitempty"`
}

// Service persists notifications and pushes them over the websocket hub.
// When Redis is available and USE_REDIS_NOTIFICATIONS is enabled, writes go
// through a queue drained by StartWorker; otherwise they hit the DB directly.
type Service struct {
	db *gorm.DB
}

func NewService() *Service {
	return &Service{db: database.DB}
}

// EnqueueOrCreate delivers one notification, via the Redis queue when
// enabled, falling back to a direct insert.
func (s *Service) EnqueueOrCreate(ctx context.Context, p Payload) error {
	if config.AppConfig.UseRedisNotifications && database.RedisClient != nil {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		if err := database.RedisClient.RPush(ctx, queueKey, raw).Err(); err == nil {
			return nil
		}
		// Redis hiccup: fall through to the direct path.
		logrus.Warn("Notification queue unavailable, writing directly")
	}
	return s.createDirect(p)
}

// FanOut delivers the same notification content to every recipient.
// Delivery is best effort: failures are logged and never propagated, so a
// broken fan-out cannot fail the request that triggered it.
func (s *Service) FanOut(ctx context.Context, recipients []uint, p Payload) {
	for _, userID := range recipients {
		rp := p
		rp.UserID = userID
		if err := s.EnqueueOrCreate(ctx, rp); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"type":    p.Type,
			}).WithError(err).Warn("Failed to deliver notification")
		}
	}
}

func (s *Service) createDirect(p Payload) error {
	notification := models.Notification{
		SchoolID: p.SchoolID,
		UserID:   p.UserID,
		Type:     p.Type,
		Title:    p.Title,
		Message:  p.Body,
		Data:     p.Data,
	}
	if err := s.db.Create(&notification).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	s.push(&notification)
	return nil
}

func (s *Service) push(n *models.Notification) {
	if defaultHub == nil {
		return
	}
	defaultHub.BroadcastToUser(n.UserID, map[string]interface{}{
		"event": "notification",
		"data": map[string]interface{}{
			"id":         n.ID,
			"type":       n.Type,
			"title":      n.Title,
			"message":    n.Message,
			"data":       n.Data,
			"created_at": n.CreatedAt,
		},
	})
}

// StartWorker drains the Redis notification queue in batches. It returns
// immediately when queued delivery is disabled or Redis is absent.
func (s *Service) StartWorker(ctx context.Context) {
	if !config.AppConfig.UseRedisNotifications || database.RedisClient == nil {
		logrus.Info("Notification worker disabled, using direct writes")
		return
	}
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.flushBatch(ctx)
			}
		}
	}()
	logrus.Info("Notification worker started")
}

func (s *Service) flushBatch(ctx context.Context) {
	const batchSize = 100
	for i := 0; i < batchSize; i++ {
		raw, err := database.RedisClient.LPop(ctx, queueKey).Result()
		if err != nil {
			return // empty queue or Redis failure; next tick retries
		}
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			logrus.WithError(err).Warn("Dropping malformed queued notification")
			continue
		}
		if err := s.createDirect(p); err != nil {
			logrus.WithError(err).Warn("Failed to persist queued notification")
		}
	}
}
