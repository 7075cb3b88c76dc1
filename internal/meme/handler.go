package meme

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/memeapi/service/internal/response"
	"github.com/memeapi/service/internal/storage"
)

// Handler holds HTTP handlers for meme endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new meme Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListBody is the response body for the list endpoint.
type ListBody struct {
	Memes []Meme `json:"memes"`
	Total int    `json:"total"`
}

// List godoc
//
//	@Summary		List memes
//	@Description	Returns a page of memes in insertion order plus the total count.
//	@Tags			memes
//	@Produce		json
//	@Param			limit	query		int	false	"Page size (minimum 1)"	default(10)
//	@Param			offset	query		int	false	"Records to skip"		default(0)
//	@Success		200		{object}	ListBody
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/memes/ [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil || limit < 1 {
		response.BadRequest(w, "limit must be an integer >= 1")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		response.BadRequest(w, "offset must be an integer >= 0")
		return
	}

	memes, total, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w, "database error")
		return
	}

	response.OK(w, ListBody{Memes: memes, Total: total})
}

// Get godoc
//
//	@Summary		Get a meme
//	@Description	Returns a single meme by its identifier.
//	@Tags			memes
//	@Produce		json
//	@Param			id	path		int	true	"Meme ID"
//	@Success		200	{object}	Meme
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/memes/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "meme not found")
			return
		}
		response.InternalError(w, "database error")
		return
	}

	response.OK(w, m)
}

// Create godoc
//
//	@Summary		Create a meme
//	@Description	Creates a new meme from a title and an uploaded image file.
//	@Tags			memes
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			title	query		string	true	"Meme title"
//	@Param			file	formData	file	true	"Image file"
//	@Success		201		{object}	Meme
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/memes/ [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	title, file, header, ok := uploadInput(w, r)
	if !ok {
		return
	}
	defer file.Close()

	m, err := h.svc.Create(r.Context(), title, uploadFrom(file, header))
	if err != nil {
		writeStorageError(w, err, "error when adding to database")
		return
	}

	response.Created(w, m)
}

// Update godoc
//
//	@Summary		Update a meme
//	@Description	Replaces the title and image of an existing meme. The old image is deleted from storage.
//	@Tags			memes
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		int		true	"Meme ID"
//	@Param			title	query		string	true	"New title"
//	@Param			file	formData	file	true	"New image file"
//	@Success		200		{object}	Meme
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/memes/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	title, file, header, ok := uploadInput(w, r)
	if !ok {
		return
	}
	defer file.Close()

	m, err := h.svc.Update(r.Context(), id, title, uploadFrom(file, header))
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "meme not found")
			return
		}
		writeStorageError(w, err, "error when updating in database")
		return
	}

	response.OK(w, m)
}

// Delete godoc
//
//	@Summary		Delete a meme
//	@Description	Removes a meme and its stored image.
//	@Tags			memes
//	@Produce		json
//	@Param			id	path	int	true	"Meme ID"
//	@Success		204
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/memes/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "meme not found")
			return
		}
		writeStorageError(w, err, "error when deleting from database")
		return
	}

	response.NoContent(w)
}

// pathID parses the {id} path parameter, writing a 404 for non-numeric ids
// (they can never match an existing meme).
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.NotFound(w, "meme not found")
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// uploadInput extracts the title query parameter and the multipart file,
// writing a 400 on missing input. The caller owns closing the file.
func uploadInput(w http.ResponseWriter, r *http.Request) (string, multipart.File, *multipart.FileHeader, bool) {
	title := r.URL.Query().Get("title")
	if title == "" {
		response.BadRequest(w, "title is required")
		return "", nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return "", nil, nil, false
	}

	return title, file, header, true
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) Upload {
	return Upload{
		Reader:      file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}
}

// writeStorageError maps service-layer failures that are not ErrNotFound:
// a bad filename is the client's fault, an integrity violation is the
// database's, everything else is the object store's.
func writeStorageError(w http.ResponseWriter, err error, dbMessage string) {
	switch {
	case errors.Is(err, storage.ErrNoExtension):
		response.BadRequest(w, "filename must have an extension")
	case errors.Is(err, ErrIntegrity):
		response.InternalError(w, dbMessage)
	default:
		response.InternalError(w, "object storage error")
	}
}
