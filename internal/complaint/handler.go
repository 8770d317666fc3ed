package complaint

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/transport"
)

type ServiceAPI interface {
	CreateComplaint(ctx context.Context, actor internal.Actor, dto CreateComplaintDTO) (*Complaint, error)
	GetComplaint(ctx context.Context, actor internal.Actor, id int64) (*ComplaintDetail, error)
	TransitionStatus(ctx context.Context, actor internal.Actor, id int64, dto TransitionDTO) (*Complaint, error)
	AssignComplaint(ctx context.Context, actor internal.Actor, id int64, dto AssignDTO) (*Complaint, error)
	DeleteComplaint(ctx context.Context, actor internal.Actor, id int64) error
	ListForOwner(ctx context.Context, ownerID int64, filter Filter) ([]*Complaint, error)
	ListAll(ctx context.Context, actor internal.Actor, filter Filter) ([]*Complaint, error)
	ComputeStats(ctx context.Context, actor internal.Actor) (*Stats, error)
	ComputeOwnerStats(ctx context.Context, ownerID int64) (*OwnerStats, error)
}

// ImageStore persists the optional photo of a multipart submission.
type ImageStore interface {
	Save(file multipart.File, header *multipart.FileHeader) (string, error)
	Remove(publicPath string) error
	MaxBytes() int64
}

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Images  ImageStore
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, images ImageStore) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Images:      images,
	}
}

func (h *Handler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}

	var (
		dto   CreateComplaintDTO
		saved string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		parsed, err := h.parseMultipart(w, r)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		dto = parsed
		saved = parsed.ImagePath
	} else if !h.DecodeJSON(w, r, &dto) {
		return
	}

	c, err := h.Service.CreateComplaint(r.Context(), actor, dto)
	if err != nil {
		// only files stored by this request; a JSON image_path is never touched
		if saved != "" {
			if rmErr := h.Images.Remove(saved); rmErr != nil {
				h.Logger.Warn("failed to remove orphaned upload", "path", saved, "error", rmErr)
			}
		}
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) (CreateComplaintDTO, error) {
	var maxBytes int64 = 10 << 20
	if h.Images != nil {
		maxBytes = h.Images.MaxBytes()
	}
	// leave room for the text fields around the image
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return CreateComplaintDTO{}, internal.NewValidationFieldError("image", "request body too large", internal.ErrCodeTooLong)
		}
		return CreateComplaintDTO{}, internal.NewValidationError("invalid multipart form", internal.ErrCodeValidationFailed)
	}

	dto := CreateComplaintDTO{
		Title:       r.FormValue("title"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Priority:    r.FormValue("priority"),
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return dto, nil
		}
		return dto, internal.NewValidationFieldError("image", "invalid image upload", internal.ErrCodeValidationFailed)
	}
	defer file.Close()

	if h.Images == nil {
		return dto, internal.NewValidationFieldError("image", "image uploads are disabled", internal.ErrCodeValidationFailed)
	}
	path, err := h.Images.Save(file, header)
	if err != nil {
		return dto, err
	}
	dto.ImagePath = path
	return dto, nil
}

func (h *Handler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.Service.GetComplaint(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, detail)
}

// filterFromQuery reads the list filters. defaultLimit 0 leaves the list unbounded unless the
// caller asks for a page.
func filterFromQuery(r *http.Request, defaultLimit int) Filter {
	q := r.URL.Query()
	return Filter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Limit:    transport.QueryInt(r, "limit", defaultLimit, 1, maxListLimit),
		Offset:   transport.QueryInt(r, "offset", 0, 0, 0),
	}
}

func (h *Handler) writeList(w http.ResponseWriter, complaints []*Complaint) {
	if complaints == nil {
		complaints = []*Complaint{}
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Complaints: complaints, Count: len(complaints)})
}

func (h *Handler) ListMyComplaints(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}

	complaints, err := h.Service.ListForOwner(r.Context(), actor.UserID, filterFromQuery(r, 0))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeList(w, complaints)
}

func (h *Handler) ListUserComplaints(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}
	ownerID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	if !actor.CanAccessOwnedBy(ownerID) {
		h.HandleServiceError(w, internal.ErrAccessDenied)
		return
	}

	complaints, err := h.Service.ListForOwner(r.Context(), ownerID, filterFromQuery(r, 0))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeList(w, complaints)
}

func (h *Handler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}

	complaints, err := h.Service.ListAll(r.Context(), actor, filterFromQuery(r, defaultListLimit))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeList(w, complaints)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	var dto TransitionDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	c, err := h.Service.TransitionStatus(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) AssignComplaint(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	var dto AssignDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	c, err := h.Service.AssignComplaint(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteComplaint(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteComplaint(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.ComputeStats(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.ActorOrUnauthorized(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.ComputeOwnerStats(r.Context(), actor.UserID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}
