package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ZanzyTHEbar/semantic-memory-go/internal/apptype"
	"github.com/ZanzyTHEbar/semantic-memory-go/internal/metrics"
)

// Start launches the background cleanup and learning loops. Stop (or Close)
// halts them.
func (s *Store) Start() {
	s.wg.Add(2)
	go s.cleanupLoop()
	go s.learningLoop()
}

// Stop halts background maintenance and waits for in-flight sweeps to
// finish. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Store) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CleanupInterval)
			if _, err := s.RunCleanupOnce(ctx); err != nil {
				log.Printf("Warning: retention sweep: %v", err)
			}
			cancel()
		}
	}
}

func (s *Store) learningLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.LearningInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LearningInterval)
			if err := s.RunLearningOnce(ctx); err != nil {
				log.Printf("Warning: learning pass: %v", err)
			}
			cancel()
		}
	}
}

// RunCleanupOnce sweeps every domain for expired entities and removes them.
// ARCHIVAL entities are never swept. The sweep checks for shutdown between
// domains so a stop request doesn't wait out a full pass. It returns the
// number of entities removed.
func (s *Store) RunCleanupOnce(ctx context.Context) (int, error) {
	done := metrics.TimeOp("retention_sweep")
	removed := 0

	for _, domain := range apptype.AllDomains() {
		select {
		case <-s.stopCh:
			done(true)
			return removed, nil
		case <-ctx.Done():
			done(false)
			return removed, ctx.Err()
		default:
		}

		now := s.now()
		var expiredIDs []string
		var policies []apptype.RetentionPolicy
		s.entityMu.RLock()
		for _, id := range s.indexes.Domain.IDs(string(domain)) {
			e, ok := s.entities[id]
			if !ok {
				continue
			}
			if e.RetentionPolicy == apptype.RetentionArchival {
				continue
			}
			if expired(e, now) {
				expiredIDs = append(expiredIDs, id)
				policies = append(policies, e.RetentionPolicy)
			}
		}
		s.entityMu.RUnlock()

		// The lock covers only the in-memory removal; the persistence delete
		// runs after it so the sweep never holds writeMu across an external
		// call.
		for i, id := range expiredIDs {
			s.writeMu.Lock()
			s.removeEntityLocked(id)
			s.writeMu.Unlock()
			removed++
			s.sweepDeleted.Add(1)
			metrics.Default().IncSweepDeleted(string(policies[i]), 1)

			if err := s.db.DeleteEntity(ctx, id); err != nil {
				s.sweepErrors.Add(1)
				metrics.Default().IncMaintenanceError("cleanup")
				log.Printf("Warning: failed to persist sweep of entity %q: %v", id, err)
			}
		}
	}

	done(true)
	return removed, nil
}

// RunLearningOnce applies one reinforcement pass: recently accessed entities
// gain confidence proportionally to how often they were retrieved, and
// entities idle past the staleness window decay toward the confidence floor.
func (s *Store) RunLearningOnce(ctx context.Context) error {
	done := metrics.TimeOp("learning_pass")

	s.accessMu.Lock()
	accessed := s.accessed
	s.accessed = make(map[string]int)
	s.accessMu.Unlock()

	for id, count := range accessed {
		err := s.adjustConfidence(ctx, id, func(current float64) float64 {
			return current + s.cfg.ConfidenceBoost*float64(count)*(1-current)
		})
		if errors.Is(err, apptype.ErrNotFound) {
			// Deleted since it was accessed.
			continue
		}
		if err != nil {
			s.learningErrors.Add(1)
			metrics.Default().IncMaintenanceError("learning")
			log.Printf("Warning: failed to boost confidence for entity %q: %v", id, err)
		}
	}

	now := s.now()
	var stale []string
	s.entityMu.RLock()
	for id, e := range s.entities {
		if _, recent := accessed[id]; recent {
			continue
		}
		if now.Sub(e.LastAccessed) > s.cfg.StalenessWindow && e.ConfidenceScore > s.cfg.ConfidenceFloor {
			stale = append(stale, id)
		}
	}
	s.entityMu.RUnlock()

	for _, id := range stale {
		err := s.adjustConfidence(ctx, id, func(current float64) float64 {
			decayed := current - s.cfg.ConfidenceDecay
			if decayed < s.cfg.ConfidenceFloor {
				decayed = s.cfg.ConfidenceFloor
			}
			return decayed
		})
		if errors.Is(err, apptype.ErrNotFound) {
			continue
		}
		if err != nil {
			s.learningErrors.Add(1)
			metrics.Default().IncMaintenanceError("learning")
			log.Printf("Warning: failed to decay confidence for entity %q: %v", id, err)
		}
	}

	done(true)
	return nil
}

// LearnFromInteraction folds an agent's outcome signal back into the entity
// it acted on: confidence shifts by a tenth of the reward, clamped to [0,1].
func (s *Store) LearnFromInteraction(ctx context.Context, query, selectedID string, reward float64) error {
	done := metrics.TimeOp("learn_from_interaction")
	err := s.learnFromInteraction(ctx, query, selectedID, reward)
	done(err == nil)
	return err
}

func (s *Store) learnFromInteraction(ctx context.Context, query, selectedID string, reward float64) error {
	if selectedID == "" {
		return fmt.Errorf("selected entity id cannot be empty: %w", apptype.ErrInvalidInput)
	}
	if reward < -1 || reward > 1 {
		return fmt.Errorf("reward %f out of [-1,1]: %w", reward, apptype.ErrInvalidInput)
	}

	// The current score is read inside the write critical section so
	// concurrent rewards for the same entity all land.
	return s.adjustConfidence(ctx, selectedID, func(current float64) float64 {
		return current + reward*0.1
	})
}
