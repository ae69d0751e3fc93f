package configstore

import (
	"context"
	"errors"
	"sort"

	"kiosk/internal/changebus"
	"kiosk/internal/document"
	"kiosk/internal/logging"
	"kiosk/internal/secrets"
)

// Replace writes a complete document. Groups omitted from doc fall back to
// defaults; omitted secret fields keep their stored values. Subscribers are
// told that all groups changed.
func (s *Store) Replace(ctx context.Context, doc map[string]any) (Snapshot, error) {
	payload, err := preparePayload(doc)
	if err != nil {
		return s.fail(ctx, "replace", err)
	}
	return s.commit(ctx, "replace", payload, func(document.Document) document.Document {
		return document.Document{}
	}, nil)
}

// Patch merges a partial document over the stored one. Only fields present
// in patch change; every other value keeps its stored state.
func (s *Store) Patch(ctx context.Context, patch map[string]any) (Snapshot, error) {
	payload, err := preparePayload(patch)
	if err != nil {
		return s.fail(ctx, "patch", err)
	}
	var bad []string
	for key, value := range payload {
		if _, ok := value.(map[string]any); !ok {
			bad = append(bad, key)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return s.fail(ctx, "patch", malformed("groups must be JSON objects", bad...))
	}
	groups := make([]string, 0, len(payload))
	for key := range payload {
		groups = append(groups, key)
	}
	sort.Strings(groups)
	return s.commit(ctx, "patch", payload, func(current document.Document) document.Document {
		return current.Clone()
	}, groups)
}

// PatchGroup merges body into a single top-level group.
func (s *Store) PatchGroup(ctx context.Context, group string, body map[string]any) (Snapshot, error) {
	if group == "" || group == document.VersionKey {
		return s.fail(ctx, "patch", malformed("invalid group name", group))
	}
	if body == nil {
		return s.fail(ctx, "patch", malformed("group body must be a JSON object", group))
	}
	return s.Patch(ctx, map[string]any{group: body})
}

// preparePayload deep-copies the payload into a JSON tree and drops the
// version key, which the store owns.
func preparePayload(raw map[string]any) (document.Document, error) {
	if raw == nil {
		return nil, malformed("payload must be a JSON object")
	}
	payload, err := document.Normalize(raw)
	if err != nil {
		return nil, &WriteError{Kind: ErrMalformedInput, Message: "payload must be a JSON object", Err: err}
	}
	delete(payload, document.VersionKey)
	return payload, nil
}

// commit runs the serialized read-merge-validate-persist-publish cycle.
// base picks the document the payload is merged onto; touched lists the
// groups whose requirements are checked (nil means all).
func (s *Store) commit(
	ctx context.Context,
	op string,
	payload document.Document,
	base func(current document.Document) document.Document,
	touched []string,
) (Snapshot, error) {
	ops, err := secrets.Extract(payload, s.resolver)
	if err != nil {
		var bad *secrets.MalformedError
		if errors.As(err, &bad) {
			return s.fail(ctx, op, &WriteError{Kind: ErrMalformedInput, Message: "secret fields must be strings or null", Missing: bad.Paths, Err: err})
		}
		return s.fail(ctx, op, malformed(err.Error()))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.lock(ctx); err != nil {
		return s.fail(ctx, op, err)
	}
	defer s.unlock()

	current, err := s.latest(ctx)
	if err != nil {
		return s.fail(ctx, op, err)
	}

	merged := document.Document(document.Overlay(base(current), payload))
	for _, sop := range ops {
		secrets.Seed(merged, sop.Path)
	}
	next, _ := s.migrator.Migrate(merged)

	if touched == nil {
		touched = s.migrator.Groups()
	}
	if err := s.checkRequirements(ctx, next, touched, ops); err != nil {
		return s.fail(ctx, op, err)
	}

	return s.finish(ctx, op, current, next, ops, touched, op == "replace")
}

// finish applies secret ops, reprojects, persists when the document changed,
// and publishes. Callers hold the write locks.
func (s *Store) finish(
	ctx context.Context,
	op string,
	current, next document.Document,
	ops []secrets.Op,
	touched []string,
	allGroups bool,
) (Snapshot, error) {
	previous, err := s.captureSecrets(ctx, ops)
	if err != nil {
		return s.fail(ctx, op, err)
	}
	if err := s.secrets.Apply(ctx, ops); err != nil {
		return s.fail(ctx, op, storageFailure("store secrets", err))
	}
	if err := secrets.Project(ctx, next, s.secrets, s.resolver); err != nil {
		s.restoreSecrets(ctx, previous)
		return s.fail(ctx, op, storageFailure("project secrets", err))
	}

	sum, err := next.Checksum()
	if err != nil {
		s.restoreSecrets(ctx, previous)
		return s.fail(ctx, op, storageFailure("checksum document", err))
	}
	if document.Equal(map[string]any(current), map[string]any(next)) {
		s.install(next, sum)
		s.record("unchanged")
		s.logger.Debug("configuration write changed nothing", logging.String("operation", op))
		return Snapshot{Document: next.Clone(), Checksum: sum}, nil
	}

	if err := s.persist(next); err != nil {
		s.restoreSecrets(ctx, previous)
		return s.fail(ctx, op, err)
	}
	s.install(next, sum)

	groups := document.ChangedGroups(current, next)
	if allGroups {
		groups = []string{changebus.AllGroups}
	}
	s.record("ok")
	logging.WithContext(ctx, s.logger).Info("configuration saved",
		logging.String("operation", op),
		logging.String(logging.FieldChecksum, sum),
		logging.Strings("changed_groups", groups),
		logging.Strings("touched_groups", touched),
		logging.Int("secret_ops", len(ops)),
	)
	s.publish(sum, groups)
	return Snapshot{Document: next.Clone(), Checksum: sum}, nil
}

// latest re-reads the document so writes from other processes are merged
// rather than overwritten. An unreadable file falls back to the cache.
func (s *Store) latest(ctx context.Context) (document.Document, error) {
	raw, exists, err := s.readDisk()
	if err != nil || !exists {
		var writeErr *WriteError
		if err != nil && (!errors.As(err, &writeErr) || writeErr.Kind != ErrMalformedInput) {
			return nil, err
		}
		s.mu.RLock()
		cached := s.current.Clone()
		s.mu.RUnlock()
		return cached, nil
	}
	return s.adopt(ctx, raw)
}

type secretState struct {
	name  string
	value string
	ok    bool
}

func (s *Store) captureSecrets(ctx context.Context, ops []secrets.Op) ([]secretState, error) {
	states := make([]secretState, 0, len(ops))
	for _, op := range ops {
		value, ok, err := s.secrets.Get(ctx, op.Name)
		if err != nil {
			return nil, storageFailure("read secret", err)
		}
		states = append(states, secretState{name: op.Name, value: value, ok: ok})
	}
	return states, nil
}

func (s *Store) restoreSecrets(ctx context.Context, states []secretState) {
	if len(states) == 0 {
		return
	}
	ops := make([]secrets.Op, 0, len(states))
	for _, st := range states {
		if st.ok {
			ops = append(ops, secrets.Op{Name: st.name, Value: st.value})
			continue
		}
		ops = append(ops, secrets.Op{Name: st.name, Clear: true})
	}
	if err := s.secrets.Apply(context.WithoutCancel(ctx), ops); err != nil {
		logging.ErrorWithContext(s.logger, "secret rollback failed", "config_secret_rollback_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-enter the affected credentials"),
		)
	}
}

func (s *Store) fail(ctx context.Context, op string, err error) (Snapshot, error) {
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		writeErr = storageFailure(op, err)
		err = writeErr
	}
	s.record(writeErr.ErrorKind())
	logger := logging.WithContext(ctx, s.logger)
	attrs := []logging.Attr{
		logging.String("operation", op),
		logging.String("error_kind", writeErr.ErrorKind()),
		logging.Strings("fields", writeErr.Missing),
		logging.Error(err),
	}
	if writeErr.Kind == ErrStorage {
		logging.ErrorWithContext(logger, "configuration write failed", "config_write_failed",
			append(attrs, logging.String(logging.FieldErrorHint, "check disk space and permissions on the state directory"))...)
	} else {
		logging.WarnWithContext(logger, "configuration write rejected", "config_write_rejected",
			append(attrs,
				logging.String(logging.FieldErrorHint, "fix the listed fields and resubmit"),
				logging.String(logging.FieldImpact, "stored configuration left unchanged"),
			)...)
	}
	return Snapshot{}, err
}
