package configstore

import (
	"context"

	"kiosk/internal/document"
	"kiosk/internal/logging"
)

// Reload re-reads the document from disk, migrates it and publishes when
// its checksum differs from the cached one. It reports whether anything
// changed. A file that no longer parses leaves the cache in place.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.lock(ctx); err != nil {
		return false, err
	}
	defer s.unlock()

	raw, exists, err := s.readDisk()
	if err != nil {
		logging.WarnWithContext(s.logger, "document on disk could not be reloaded", "config_reload_failed",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the JSON syntax in the document"),
			logging.String(logging.FieldImpact, "kiosk keeps serving the last good configuration"),
		)
		return false, err
	}
	if !exists {
		s.mu.RLock()
		cached := s.current.Clone()
		s.mu.RUnlock()
		s.logger.Info("document missing on disk; rewriting from memory", logging.String("path", s.path))
		return false, s.persist(cached)
	}

	doc, err := s.adopt(ctx, raw)
	if err != nil {
		return false, err
	}
	if !document.Equal(map[string]any(raw), map[string]any(doc)) {
		if err := s.persist(doc); err != nil {
			return false, err
		}
	}
	sum, err := doc.Checksum()
	if err != nil {
		return false, storageFailure("checksum document", err)
	}
	if sum == s.Checksum() {
		return false, nil
	}

	before := s.install(doc, sum)
	groups := document.ChangedGroups(before, doc)
	logging.WithContext(ctx, s.logger).Info("configuration reloaded from disk",
		logging.String(logging.FieldChecksum, sum),
		logging.Strings("changed_groups", groups),
	)
	s.publish(sum, groups)
	return true, nil
}
