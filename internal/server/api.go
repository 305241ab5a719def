package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/inkforge/handbook"
	"github.com/inkforge/handbook/internal/htmlrender"
	"github.com/inkforge/handbook/internal/imagehost"
	"github.com/inkforge/handbook/internal/suggest"
)

// editRequest is the envelope every editing action arrives in. One
// endpoint, action-dispatched, mirrors how the preview client batches all
// edits through a single channel.
type editRequest struct {
	Action    string         `json:"action"`
	ModuleID  string         `json:"moduleId,omitempty"`
	BlockID   string         `json:"blockId,omitempty"`
	BlockType string         `json:"blockType,omitempty"`
	Title     string         `json:"title,omitempty"`
	Direction string         `json:"direction,omitempty"`
	From      int            `json:"from,omitempty"`
	To        int            `json:"to,omitempty"`
	Patch     map[string]any `json:"patch,omitempty"`
}

type editResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	ModuleID string `json:"moduleId,omitempty"`
	BlockID  string `json:"blockId,omitempty"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, editResponse{Error: "malformed request"})
		return
	}

	resp := editResponse{OK: true}
	var err error
	switch req.Action {
	case "addModule":
		var m *handbook.Module
		m, err = s.store.AddModule(req.Title)
		if m != nil {
			resp.ModuleID = m.ID
		}
	case "renameModule":
		err = s.store.RenameModule(req.ModuleID, req.Title)
	case "deleteModule":
		err = s.store.DeleteModule(req.ModuleID)
	case "reorderModules":
		s.store.ReorderModules(req.From, req.To)
	case "addBlock":
		var b *handbook.Block
		b, err = s.store.AddBlock(req.ModuleID, handbook.BlockType(req.BlockType))
		if b != nil {
			resp.BlockID = b.ID
		}
	case "updateBlock":
		err = s.store.UpdateBlockContent(req.BlockID, req.Patch)
	case "moveBlock":
		err = s.store.MoveBlock(req.ModuleID, req.BlockID, req.Direction)
	case "duplicateBlock":
		var b *handbook.Block
		b, err = s.store.DuplicateBlock(req.ModuleID, req.BlockID)
		if b != nil {
			resp.BlockID = b.ID
		}
	case "deleteBlock":
		err = s.store.DeleteBlock(req.ModuleID, req.BlockID)
	case "setActiveModule":
		err = s.store.SetActiveModule(req.ModuleID)
	case "setActiveBlock":
		err = s.store.SetActiveBlock(req.BlockID)
	default:
		writeJSON(w, http.StatusBadRequest, editResponse{Error: fmt.Sprintf("unknown action %q", req.Action)})
		return
	}

	if err != nil {
		resp.OK = false
		resp.Error = err.Error()
		status := http.StatusUnprocessableEntity
		if handbook.IsNotFound(err) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "image host not configured"})
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing image file"})
		return
	}
	defer file.Close()

	url, err := s.images.Upload(r.Context(), header.Filename, file)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, imagehost.ErrNoCredentials) {
			status = http.StatusServiceUnavailable
		}
		log.Printf("[server] image upload: %v", err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// handleSuggestions runs the advisory accessibility analysis over the
// current all-modules rendering. Failures never touch the document model;
// they just come back as this endpoint's error.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "suggestion service not configured"})
		return
	}
	snap := s.store.Snapshot()
	var handler htmlrender.Handler
	var content string
	for _, m := range snap.Modules {
		content += string(htmlrender.Section(handler, m, 2))
	}
	resp, err := s.advisor.Analyze(r.Context(), suggest.Request{
		ContentHTML: content,
		Theme:       snap.Theme.ColorPrimary,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, suggest.ErrRateLimited) {
			status = http.StatusTooManyRequests
		}
		log.Printf("[server] suggestions: %v", err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
