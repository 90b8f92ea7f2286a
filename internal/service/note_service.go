package service

import (
	"context"
	"fmt"
	"strings"

	"portal/internal/apperror"
	"portal/internal/model"
	"portal/internal/repository"
)

type CreateNoteRequest struct {
	Title string `json:"title" example:"Kick-off call"`
	Body  string `json:"body"`
	// Kind and ObjectID name the record the note attaches to. Both empty
	// leaves the note unattached.
	Kind     string `json:"kind" example:"invoice"`
	ObjectID string `json:"object_id"`
}

type NoteResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Body         string  `json:"body"`
	UserID       *string `json:"user_id"`
	AttachedKind string  `json:"attached_kind,omitempty"`
	AttachedID   *string `json:"attached_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type NoteService interface {
	// Attach creates a note on the record named by (kind, object id) after
	// checking that the record exists.
	Attach(ctx context.Context, p Principal, req CreateNoteRequest) (*NoteResponse, error)
	ListFor(ctx context.Context, p Principal, kind, objectID string) ([]NoteResponse, error)
	List(ctx context.Context, p Principal, opts repository.ListOptions) ([]NoteResponse, int64, error)
	Delete(ctx context.Context, p Principal, id string) error
}

type noteService struct {
	noteRepo repository.NoteRepository
}

func NewNoteService(noteRepo repository.NoteRepository) NoteService {
	return &noteService{noteRepo: noteRepo}
}

func (s *noteService) Attach(ctx context.Context, p Principal, req CreateNoteRequest) (*NoteResponse, error) {
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Body) == "" {
		return nil, apperror.Validation("note", "title or body is required")
	}
	note := &model.Note{Title: strings.TrimSpace(req.Title), Body: req.Body, UserID: p.actorID()}

	if req.Kind != "" || req.ObjectID != "" {
		if !repository.Attachable(req.Kind) {
			return nil, apperror.Validation("note", fmt.Sprintf("cannot attach to %q", req.Kind))
		}
		target, err := parseOptionalID("note", "object_id", &req.ObjectID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, apperror.Validation("note", "object_id is required")
		}
		ok, err := s.noteRepo.TargetExists(ctx, req.Kind, *target)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.Validation("note", "unknown "+req.Kind)
		}
		note.AttachedKind = req.Kind
		note.AttachedID = target
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return toNoteResponse(note), nil
}

func (s *noteService) ListFor(ctx context.Context, p Principal, kind, objectID string) ([]NoteResponse, error) {
	if !repository.Attachable(kind) {
		return nil, apperror.Validation("note", fmt.Sprintf("unknown kind %q", kind))
	}
	target, err := parseID(kind, objectID)
	if err != nil {
		return nil, err
	}
	notes, err := s.noteRepo.ListAttached(ctx, kind, target, p.ownerScope())
	if err != nil {
		return nil, err
	}
	res := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		res = append(res, *toNoteResponse(&notes[i]))
	}
	return res, nil
}

func (s *noteService) List(ctx context.Context, p Principal, opts repository.ListOptions) ([]NoteResponse, int64, error) {
	opts.OwnerID = p.ownerScope()
	notes, total, err := s.noteRepo.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	res := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		res = append(res, *toNoteResponse(&notes[i]))
	}
	return res, total, nil
}

func (s *noteService) Delete(ctx context.Context, p Principal, id string) error {
	noteID, err := parseID("note", id)
	if err != nil {
		return err
	}
	note, err := s.noteRepo.Get(ctx, noteID)
	if err != nil {
		return err
	}
	if !p.IsSuperuser && (note.UserID == nil || *note.UserID != p.ID) {
		return apperror.PermissionDenied("note", "only the author or a superuser may delete it")
	}
	return s.noteRepo.Delete(ctx, noteID)
}

func toNoteResponse(n *model.Note) *NoteResponse {
	return &NoteResponse{
		ID:           n.ID.String(),
		Title:        n.Title,
		Body:         n.Body,
		UserID:       formatID(n.UserID),
		AttachedKind: n.AttachedKind,
		AttachedID:   formatID(n.AttachedID),
		CreatedAt:    formatTimestamp(n.CreatedAt),
	}
}
