package daemon

import (
	"net/http"

	"kiosk/internal/api"
)

func (s *apiServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, configResponse(s.daemon.store.Get(r.Context())))
}

func (s *apiServer) handleReplaceConfig(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.daemon.store.Replace(r.Context(), payload)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, configResponse(snap))
}

func (s *apiServer) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.daemon.store.Patch(r.Context(), payload)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, configResponse(snap))
}

func (s *apiServer) handleChecksum(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.ChecksumResponse{Checksum: s.daemon.store.Checksum()})
}

func (s *apiServer) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("group")
	group, ok := s.daemon.store.Group(r.Context(), name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "configuration group not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.GroupResponse{
		Group:    name,
		Value:    group,
		Checksum: s.daemon.store.Checksum(),
	})
}

func (s *apiServer) handlePatchGroup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("group")
	body, err := decodeObject(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.daemon.store.PatchGroup(r.Context(), name, body)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	group, _ := snap.Document.Group(name)
	s.writeJSON(w, http.StatusOK, api.GroupResponse{
		Group:    name,
		Value:    group,
		Checksum: snap.Checksum,
	})
}
