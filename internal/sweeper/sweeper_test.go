package sweeper

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/incidentdesk/incidentdesk/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	s.objects[key] = nil
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) SignedURL(ctx context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func (s *fakeStore) ListKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func TestSweepRemovesOrphanedBlobs(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&models.User{}, &models.Incident{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := models.User{Username: "alice", PasswordHash: "x", Role: "user", IsActive: true}
	if err := database.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	incident := models.Incident{
		UserID:             user.ID,
		Subject:            "s",
		DateOfIncident:     "2024-01-10",
		SourceOfIncident:   "floor",
		MistakeCommitted:   "m",
		DetailsAndFindings: "d",
		Status:             "open",
	}
	if err := database.Create(&incident).Error; err != nil {
		t.Fatalf("seed incident: %v", err)
	}

	store := newFakeStore()
	liveKey := fmt.Sprintf("%d/1-live.png", incident.ID)
	orphanKey := "9999/1-orphan.png"
	malformedKey := "not-an-id/1-weird.png"
	store.objects[liveKey] = nil
	store.objects[orphanKey] = nil
	store.objects[malformedKey] = nil

	s := New(database, store)
	s.sweep()

	if !store.has(liveKey) {
		t.Fatal("blob owned by a live incident must survive the sweep")
	}

	if store.has(orphanKey) {
		t.Fatal("blob of a deleted incident must be removed")
	}

	if store.has(malformedKey) {
		t.Fatal("blob with an unparseable owner segment must be removed")
	}
}

func TestOwnerOf(t *testing.T) {
	if id, ok := ownerOf("42/123-a.png"); !ok || id != 42 {
		t.Fatalf("ownerOf = %d,%v, want 42,true", id, ok)
	}

	if _, ok := ownerOf("no-slash"); ok {
		t.Fatal("keys without a separator have no owner")
	}

	if _, ok := ownerOf("abc/123-a.png"); ok {
		t.Fatal("non-numeric owner segments are not owners")
	}
}
