package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Automattic/hdfscm/internal/contents"
	"github.com/Automattic/hdfscm/internal/pathing"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
)

func (s *Server) routes(r *mux.Router) {
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)

	r.HandleFunc(contentsPrefix+"/{path:.*}/checkpoints/{checkpoint_id}", s.handleRestoreCheckpoint).Methods(http.MethodPost)
	r.HandleFunc(contentsPrefix+"/{path:.*}/checkpoints/{checkpoint_id}", s.handleDeleteCheckpoint).Methods(http.MethodDelete)
	r.HandleFunc(contentsPrefix+"/{path:.*}/checkpoints", s.handleListCheckpoints).Methods(http.MethodGet)
	r.HandleFunc(contentsPrefix+"/{path:.*}/checkpoints", s.handleCreateCheckpoint).Methods(http.MethodPost)

	contentsPath := contentsPrefix + "{path:(?:/.*)?}"
	r.HandleFunc(contentsPath, s.handleGet).Methods(http.MethodGet)
	r.HandleFunc(contentsPath, s.handlePatch).Methods(http.MethodPatch)
	r.HandleFunc(contentsPath, s.handlePost).Methods(http.MethodPost)
	r.HandleFunc(contentsPath, s.handlePut).Methods(http.MethodPut)
	r.HandleFunc(contentsPath, s.handleDelete).Methods(http.MethodDelete)
}

func apiPathOf(r *http.Request) string {
	return pathing.Normalize(mux.Vars(r)["path"])
}

func contentsURL(apiPath string, extra ...string) string {
	segs := strings.Split(pathing.Join(append([]string{apiPath}, extra...)...), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}

	return contentsPrefix + "/" + strings.Join(segs, "/")
}

func writeJSON(rw http.ResponseWriter, r *http.Request, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(body); err != nil {
		Log(r.Context()).Warn("Failed to write response", "err", err)
	}
}

func writeModel(rw http.ResponseWriter, r *http.Request, status int, model *contents.Model) {
	rw.Header().Set("Location", contentsURL(model.Path))
	rw.Header().Set("Last-Modified", model.LastModified.UTC().Format(http.TimeFormat))
	writeJSON(rw, r, status, model)
}

// readInput decodes the request body. An empty body yields nil.
func readInput(r *http.Request) (*contents.Input, error) {
	var in contents.Input

	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil //nolint:nilnil
		}

		return nil, badRequest("Invalid JSON in body of request")
	}

	return &in, nil
}

func (s *Server) handleGet(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	content := "1"
	if query.Has("content") {
		content = query.Get("content")
	}
	if content != "0" && content != "1" {
		writeError(rw, r, badRequest("Content "+content+" is invalid"))

		return
	}

	opts := contents.GetOptions{
		Type:    query.Get("type"),
		Format:  query.Get("format"),
		Content: content == "1",
	}

	switch opts.Type {
	case "", contents.TypeFile, contents.TypeNotebook, contents.TypeDirectory:
	default:
		writeError(rw, r, badRequest("Type "+opts.Type+" is invalid"))

		return
	}

	switch opts.Format {
	case "", contents.FormatText, contents.FormatBase64:
	default:
		writeError(rw, r, badRequest("Format "+opts.Format+" is invalid"))

		return
	}

	model, err := s.contentsHandler.Get(r.Context(), apiPathOf(r), opts)
	if err != nil {
		writeError(rw, r, err)

		return
	}

	writeModel(rw, r, http.StatusOK, model)
}

func (s *Server) handlePatch(rw http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		writeError(rw, r, err)

		return
	}
	if in == nil {
		writeError(rw, r, errMissingBody)

		return
	}

	model, err := s.contentsHandler.Update(r.Context(), in, apiPathOf(r))
	if err != nil {
		writeError(rw, r, err)

		return
	}

	writeModel(rw, r, http.StatusOK, model)
}

// handlePost copies a file into the directory at path, or creates a new
// untitled file there.
func (s *Server) handlePost(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiPath := apiPathOf(r)

	if s.contentsHandler.FileExists(ctx, apiPath) {
		writeError(rw, r, badRequest("Cannot POST to files, use PUT instead."))

		return
	}

	if !s.contentsHandler.DirExists(ctx, apiPath) {
		writeError(rw, r, notFound("No such directory: " + apiPath))

		return
	}

	in, err := readInput(r)
	if err != nil {
		writeError(rw, r, err)

		return
	}

	var model *contents.Model
	switch {
	case in != nil && in.CopyFrom != "":
		model, err = s.contentsHandler.Copy(ctx, in.CopyFrom, apiPath)
	case in != nil:
		model, err = s.contentsHandler.NewUntitled(ctx, apiPath, in.Type, in.Ext)
	default:
		model, err = s.contentsHandler.NewUntitled(ctx, apiPath, "", "")
	}
	if err != nil {
		writeError(rw, r, err)

		return
	}

	writeModel(rw, r, http.StatusCreated, model)
}

// handlePut saves the model in the body at path. Saving over an existing
// file answers 200. Anything else is created like a new file, so a model
// without a type gets one from the path's extension, and answers 201.
func (s *Server) handlePut(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiPath := apiPathOf(r)

	in, err := readInput(r)
	if err != nil {
		writeError(rw, r, err)

		return
	}

	if in != nil && in.CopyFrom != "" {
		writeError(rw, r, badRequest("Cannot copy with PUT, only POST"))

		return
	}

	var model *contents.Model

	status := http.StatusCreated
	if in != nil && s.contentsHandler.FileExists(ctx, apiPath) {
		status = http.StatusOK
		model, err = s.contentsHandler.Save(ctx, in, apiPath)
	} else {
		model, err = s.contentsHandler.New(ctx, in, apiPath)
	}
	if err != nil {
		writeError(rw, r, err)

		return
	}

	writeModel(rw, r, status, model)
}

func (s *Server) handleDelete(rw http.ResponseWriter, r *http.Request) {
	if err := s.contentsHandler.Delete(r.Context(), apiPathOf(r)); err != nil {
		writeError(rw, r, err)

		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCheckpoints(rw http.ResponseWriter, r *http.Request) {
	list, err := s.contentsHandler.ListCheckpoints(r.Context(), apiPathOf(r))
	if err != nil {
		writeError(rw, r, err)

		return
	}

	writeJSON(rw, r, http.StatusOK, list)
}

func (s *Server) handleCreateCheckpoint(rw http.ResponseWriter, r *http.Request) {
	apiPath := apiPathOf(r)

	cp, err := s.contentsHandler.CreateCheckpoint(r.Context(), apiPath)
	if err != nil {
		writeError(rw, r, err)

		return
	}

	rw.Header().Set("Location", contentsURL(apiPath, "checkpoints", cp.ID))
	writeJSON(rw, r, http.StatusCreated, cp)
}

func (s *Server) handleRestoreCheckpoint(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["checkpoint_id"]

	if err := s.contentsHandler.RestoreCheckpoint(r.Context(), id, apiPathOf(r)); err != nil {
		writeError(rw, r, err)

		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCheckpoint(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["checkpoint_id"]

	if err := s.contentsHandler.DeleteCheckpoint(r.Context(), id, apiPathOf(r)); err != nil {
		writeError(rw, r, err)

		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

type statusBody struct {
	RootDir    string    `json:"root_dir"`
	SharedDir  string    `json:"shared_dir"`
	Backend    string    `json:"backend"`
	TotalBytes uint64    `json:"total_bytes,omitempty"`
	FreeBytes  uint64    `json:"free_bytes,omitempty"`
	Free       string    `json:"free,omitempty"`
	UsageError string    `json:"usage_error,omitempty"`
	Time       time.Time `json:"time"`
}

func (s *Server) handleStatus(rw http.ResponseWriter, r *http.Request) {
	body := statusBody{
		RootDir:   s.contentsHandler.RootDir(),
		SharedDir: s.contentsHandler.SharedDir(),
		Backend:   s.opts.BackendName,
		Time:      time.Now().UTC(),
	}

	stats, err := s.contentsHandler.Usage(r.Context())
	if err != nil {
		Log(r.Context()).Warn("Failed to get disk usage", "err", err)
		body.UsageError = err.Error()
	} else {
		body.TotalBytes = stats.TotalSize
		body.FreeBytes = stats.FreeSpace
		body.Free = humanize.Bytes(stats.FreeSpace)
	}

	writeJSON(rw, r, http.StatusOK, body)
}
