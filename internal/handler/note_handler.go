package handler

import (
	"net/http"

	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	noteService service.NoteService
	auth        *middleware.Auth
}

func NewNoteHandler(noteService service.NoteService, auth *middleware.Auth) *NoteHandler {
	return &NoteHandler{noteService: noteService, auth: auth}
}

func (h *NoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	notes := router.Group("/api/notes", h.auth.Required())
	{
		notes.GET("", h.ListNotes)
		notes.POST("", h.CreateNote)
		notes.DELETE("/:id", h.DeleteNote)
	}
}

// CreateNote attaches a note to a record
// @Summary      Create note
// @Tags         notes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateNoteRequest  true  "Note"
// @Success      201      {object}  response.Response{data=service.NoteResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/notes [post]
func (h *NoteHandler) CreateNote(c *gin.Context) {
	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	note, err := h.noteService.Attach(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, note))
}

// ListNotes lists notes, or the notes on one record when kind and object_id are set
// @Summary      List notes
// @Tags         notes
// @Security     BearerAuth
// @Produce      json
// @Param        kind       query     string  false  "Kind of the record, e.g. invoice"
// @Param        object_id  query     string  false  "ID of the record"
// @Success      200        {object}  response.Response{data=object}
// @Router       /api/notes [get]
func (h *NoteHandler) ListNotes(c *gin.Context) {
	kind, objectID := c.Query("kind"), c.Query("object_id")
	if kind != "" || objectID != "" {
		notes, err := h.noteService.ListFor(c.Request.Context(), principal(c), kind, objectID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
			"notes": notes,
			"total": len(notes),
		}))
		return
	}

	opts := listOptions(c)
	notes, total, err := h.noteService.List(c.Request.Context(), principal(c), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listResponse("notes", notes, total, opts)))
}

// DeleteNote removes a note
// @Summary      Delete note
// @Tags         notes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Note ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/notes/{id} [delete]
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	if err := h.noteService.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Note deleted successfully"))
}
