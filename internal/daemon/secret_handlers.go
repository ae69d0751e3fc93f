package daemon

import (
	"encoding/json"
	"io"
	"net/http"

	"kiosk/internal/api"
	"kiosk/internal/configstore"
)

func secretEntry(status configstore.SecretStatus) api.SecretEntry {
	return api.SecretEntry{
		Name:     status.Name,
		Path:     status.Path,
		HasValue: status.HasValue,
		Last4:    status.Last4,
	}
}

func (s *apiServer) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	list, err := s.daemon.store.Secrets(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	entries := make([]api.SecretEntry, 0, len(list))
	for _, status := range list {
		entries = append(entries, secretEntry(status))
	}
	s.writeJSON(w, http.StatusOK, api.SecretListResponse{Secrets: entries})
}

func (s *apiServer) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.store.Secret(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, secretEntry(status))
}

func (s *apiServer) handleSetSecret(w http.ResponseWriter, r *http.Request) {
	var req api.SecretWriteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "body must be {\"value\": string}")
		return
	}
	name := r.PathValue("name")
	snap, err := s.daemon.store.SetSecret(r.Context(), name, req.Value)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeSecretAck(w, r, name, snap.Checksum)
}

func (s *apiServer) handleClearSecret(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	snap, err := s.daemon.store.ClearSecret(r.Context(), name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeSecretAck(w, r, name, snap.Checksum)
}

func (s *apiServer) writeSecretAck(w http.ResponseWriter, r *http.Request, name, checksum string) {
	status, err := s.daemon.store.Secret(r.Context(), name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SecretWriteResponse{
		Secret:   secretEntry(status),
		Checksum: checksum,
	})
}
