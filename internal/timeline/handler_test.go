package timeline_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/timeline"
	"github.com/frahmantamala/civic-complaints/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubService struct {
	comments []*timeline.Comment
	err      error
}

func (s *stubService) AddComment(_ context.Context, actor internal.Actor, complaintID int64, dto timeline.AddCommentDTO) (*timeline.Comment, error) {
	if s.err != nil {
		return nil, s.err
	}
	msg, err := dto.Normalize()
	if err != nil {
		return nil, err
	}
	c := &timeline.Comment{ID: int64(len(s.comments) + 1), ComplaintID: complaintID, UserID: actor.UserID, Message: msg}
	s.comments = append(s.comments, c)
	return c, nil
}

func (s *stubService) ListForActor(_ context.Context, _ internal.Actor, _ int64) ([]*timeline.Comment, error) {
	return s.comments, s.err
}

var _ = Describe("Timeline Handler", func() {
	var (
		stub   *stubService
		router chi.Router
		actor  internal.Actor
	)

	BeforeEach(func() {
		stub = &stubService{}
		actor = internal.Actor{UserID: 7, Name: "Rahul Sharma", Role: internal.RoleCitizen}

		h := timeline.NewHandler(transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil))), stub)
		router = chi.NewRouter()
		router.Get("/complaints/{id}/comments", h.ListComments)
		router.Post("/complaints/{id}/comments", h.AddComment)
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(internal.ContextWithActor(req.Context(), actor))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("returns an empty list as an array", func() {
		w := do(http.MethodGet, "/complaints/3/comments", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"comments":[]`))
	})

	It("creates a comment", func() {
		w := do(http.MethodPost, "/complaints/3/comments", `{"message":"Any update?"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var c timeline.Comment
		Expect(json.NewDecoder(w.Body).Decode(&c)).To(Succeed())
		Expect(c.ComplaintID).To(BeEquivalentTo(3))
		Expect(c.UserID).To(BeEquivalentTo(7))
	})

	It("maps service errors", func() {
		Expect(do(http.MethodPost, "/complaints/3/comments", `{"message":" "}`).Code).To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodPost, "/complaints/zero/comments", `{"message":"x"}`).Code).To(Equal(http.StatusBadRequest))

		stub.err = internal.ErrComplaintNotFound
		Expect(do(http.MethodGet, "/complaints/3/comments", "").Code).To(Equal(http.StatusNotFound))

		stub.err = internal.ErrAccessDenied
		Expect(do(http.MethodPost, "/complaints/3/comments", `{"message":"x"}`).Code).To(Equal(http.StatusForbidden))
	})
})
