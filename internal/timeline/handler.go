package timeline

import (
	"context"
	"net/http"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/transport"
)

type ServiceAPI interface {
	AddComment(ctx context.Context, actor internal.Actor, complaintID int64, dto AddCommentDTO) (*Comment, error)
	ListForActor(ctx context.Context, actor internal.Actor, complaintID int64) ([]*Comment, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

type CommentsResponse struct {
	Comments []*Comment `json:"comments"`
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}
	complaintID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.Service.ListForActor(r.Context(), actor, complaintID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if comments == nil {
		comments = []*Comment{}
	}

	h.WriteJSON(w, http.StatusOK, CommentsResponse{Comments: comments})
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}
	complaintID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	var dto AddCommentDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	comment, err := h.Service.AddComment(r.Context(), actor, complaintID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, comment)
}
