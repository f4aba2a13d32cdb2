package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/netroomlab/netroom/pkg/logging"
	"github.com/netroomlab/netroom/pkg/publish"
	"github.com/netroomlab/netroom/pkg/room"
)

// handleGetRoom serves the render-ready room derived from the published
// document.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	engine, err := room.LoadRoom(s.store, slug)
	if err != nil {
		s.respondRoomError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, RoomResponse{OK: true, Room: engine})
}

// handleGetSource serves the editable draft document. Design mode only; the
// draft is an editor concern, not a player one.
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	if !s.designMode {
		s.respondError(w, http.StatusForbidden, "source documents are only served in design mode")
		return
	}

	cfg, err := s.store.LoadSource(r.PathValue("slug"))
	if err != nil {
		s.respondRoomError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "source": cfg})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if !s.designMode {
		s.respondError(w, http.StatusForbidden, "publishing is disabled outside design mode")
		return
	}

	var req publish.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Slug = r.PathValue("slug")

	result, err := s.publisher.Publish(req)
	if err != nil {
		s.respondPublishError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, PublishResponse{OK: true, Result: result})
}

func (s *Server) handleListPublishes(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		s.respondJSON(w, http.StatusOK, PublishesResponse{OK: true, Entries: []publish.Entry{}})
		return
	}

	entries, err := s.audit.Entries()
	if err != nil {
		s.log.Error("reading publish log failed", logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "reading publish log failed")
		return
	}
	if entries == nil {
		entries = []publish.Entry{}
	}

	s.respondJSON(w, http.StatusOK, PublishesResponse{OK: true, Entries: entries})
}

func (s *Server) respondRoomError(w http.ResponseWriter, err error) {
	var verr *room.ValidationError
	switch {
	case errors.Is(err, room.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "room not found")
	case errors.As(err, &verr):
		s.respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "room document failed validation",
			Details: verr.Fields,
		})
	default:
		s.log.Error("loading room failed", logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "loading room failed")
	}
}

func (s *Server) respondPublishError(w http.ResponseWriter, err error) {
	var userErr *publish.UserInputError
	var assetErr *publish.AssetMissingError
	var internalErr *publish.InternalError
	var verr *room.ValidationError

	switch {
	case errors.Is(err, room.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "room not found")
	case errors.As(err, &verr):
		s.respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "room document failed validation",
			Details: verr.Fields,
		})
	case errors.As(err, &assetErr):
		s.respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:         "referenced assets are missing",
			MissingAssets: assetErr.Paths,
		})
	case errors.As(err, &userErr):
		s.respondError(w, http.StatusBadRequest, userErr.Reason)
	case errors.As(err, &internalErr):
		s.log.Error("publish failed", logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "publish pipeline failed")
	default:
		s.log.Error("publish failed", logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "publish failed")
	}
}
