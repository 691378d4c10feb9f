package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/loopline-app/loopline/backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps the shared in-memory database consistent
	// across goroutines in concurrency tests.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Notification{},
		&models.Chat{},
		&models.ChatParticipant{},
		&models.Message{},
	))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Name:        name,
		DisplayName: name,
		Email:       name + "@example.com",
		FirebaseUID: name + "-uid",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type pushedEvent struct {
	UserID  uint
	Event   string
	Payload interface{}
}

// fakePusher records every emit for assertions.
type fakePusher struct {
	mu     sync.Mutex
	events []pushedEvent
}

func (p *fakePusher) EmitToUser(userID uint, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushedEvent{UserID: userID, Event: event, Payload: payload})
}

func (p *fakePusher) all() []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pushedEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *fakePusher) eventsFor(userID uint, event string) []pushedEvent {
	var out []pushedEvent
	for _, ev := range p.all() {
		if ev.UserID == userID && ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}
