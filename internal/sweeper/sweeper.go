package sweeper

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/incidentdesk/incidentdesk/internal/models"
	"github.com/incidentdesk/incidentdesk/internal/storage"
)

const defaultInterval = time.Hour

// Sweeper periodically removes blobs whose owning incident no longer
// exists. Incident deletion proceeds even when a blob removal fails, so
// orphans can accumulate; this job mops them up.
type Sweeper struct {
	db       *gorm.DB
	store    storage.ObjectStore
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(db *gorm.DB, store storage.ObjectStore) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		db:       db,
		store:    store,
		interval: defaultInterval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Sweeper) Start() {
	log.Println("Starting orphaned-blob sweeper...")

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	log.Println("Stopping orphaned-blob sweeper...")
	s.cancel()
}

func (s *Sweeper) sweep() {
	keys, err := s.store.ListKeys(s.ctx)

	if err != nil {
		log.Printf("Sweep failed to list storage keys: %v", err)
		return
	}

	if len(keys) == 0 {
		return
	}

	var ids []uint

	if err := s.db.Model(&models.Incident{}).Pluck("id", &ids).Error; err != nil {
		log.Printf("Sweep failed to list incident ids: %v", err)
		return
	}

	live := make(map[uint]bool, len(ids))
	for _, id := range ids {
		live[id] = true
	}

	removed := 0

	for _, key := range keys {
		incidentID, ok := ownerOf(key)
		if ok && live[incidentID] {
			continue
		}

		if err := s.store.Remove(s.ctx, key); err != nil {
			log.Printf("Sweep failed to remove orphaned blob %s: %v", key, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("Sweep removed %d orphaned blobs", removed)
	}
}

// ownerOf parses the leading key segment, which attachment keys always set
// to the owning incident id.
func ownerOf(key string) (uint, bool) {
	segment, _, found := strings.Cut(key, "/")

	if !found {
		return 0, false
	}

	id, err := strconv.ParseUint(segment, 10, 32)

	if err != nil {
		return 0, false
	}

	return uint(id), true
}
