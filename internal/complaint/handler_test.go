package complaint_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/complaint"
	"github.com/frahmantamala/civic-complaints/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeImages struct {
	saved   []string
	removed []string
}

func (s *fakeImages) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	s.saved = append(s.saved, header.Filename)
	return "/uploads/" + header.Filename, nil
}

func (s *fakeImages) Remove(publicPath string) error {
	s.removed = append(s.removed, publicPath)
	return nil
}

func (s *fakeImages) MaxBytes() int64 { return 1 << 20 }

func multipartComplaint(fields map[string]string, imageName string) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		Expect(mw.WriteField(k, v)).To(Succeed())
	}
	if imageName != "" {
		part, err := mw.CreateFormFile("image", imageName)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(mw.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, "/complaints", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type errorBody struct {
	Error struct {
		Type string `json:"type"`
		Code string `json:"code"`
	} `json:"error"`
}

var _ = Describe("Complaint Handler", func() {
	var (
		f      *fixture
		images *fakeImages
		router chi.Router
	)

	BeforeEach(func() {
		f = newFixture()
		images = &fakeImages{}

		base := transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
		h := complaint.NewHandler(base, f.service, images)

		router = chi.NewRouter()
		router.Post("/complaints", h.CreateComplaint)
		router.Get("/complaints", h.ListComplaints)
		router.Get("/complaints/mine", h.ListMyComplaints)
		router.Get("/complaints/stats", h.GetStats)
		router.Get("/complaints/{id}", h.GetComplaint)
		router.Patch("/complaints/{id}/status", h.UpdateStatus)
		router.Patch("/complaints/{id}/assign", h.AssignComplaint)
		router.Delete("/complaints/{id}", h.DeleteComplaint)
		router.Get("/users/{id}/complaints", h.ListUserComplaints)
	})

	serve := func(actor *internal.Actor, req *http.Request) *httptest.ResponseRecorder {
		if actor != nil {
			req = req.WithContext(internal.ContextWithActor(req.Context(), *actor))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) errorBody {
		var body errorBody
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		return body
	}

	It("requires an authenticated caller", func() {
		w := serve(nil, httptest.NewRequest(http.MethodGet, "/complaints/mine", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(decodeError(w).Error.Type).To(Equal(string(internal.ErrorTypeUnauthorized)))
	})

	It("creates a complaint from JSON", func() {
		body := `{"title":"Pothole","category":"Roads & Footpaths","description":"Deep","location":"Main Road","priority":"High"}`
		w := serve(&f.citizen, httptest.NewRequest(http.MethodPost, "/complaints", strings.NewReader(body)))

		Expect(w.Code).To(Equal(http.StatusCreated))
		var created complaint.Complaint
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.ComplaintID).To(MatchRegexp(`^CMP-\d{4}-\d{6}$`))
		Expect(created.Status).To(Equal(complaint.StatusSubmitted))
		Expect(created.Priority).To(Equal(complaint.PriorityHigh))
	})

	It("creates a complaint from a multipart form with an image", func() {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		Expect(mw.WriteField("title", "Broken bench")).To(Succeed())
		Expect(mw.WriteField("category", "Parks")).To(Succeed())
		Expect(mw.WriteField("description", "Snapped in half")).To(Succeed())
		Expect(mw.WriteField("location", "City Park")).To(Succeed())
		part, err := mw.CreateFormFile("image", "bench.png")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/complaints", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := serve(&f.citizen, req)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var created complaint.Complaint
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.ImagePath).NotTo(BeNil())
		Expect(*created.ImagePath).To(Equal("/uploads/bench.png"))
		Expect(images.saved).To(Equal([]string{"bench.png"}))
	})

	It("removes the stored image when the submission is rejected", func() {
		req := multipartComplaint(map[string]string{
			"category":    "Parks",
			"description": "Snapped in half",
			"location":    "City Park",
		}, "bench.png")
		w := serve(&f.citizen, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(images.saved).To(Equal([]string{"bench.png"}))
		Expect(images.removed).To(Equal([]string{"/uploads/bench.png"}))
	})

	It("keeps the stored image once the complaint is created", func() {
		req := multipartComplaint(map[string]string{
			"title":       "Broken bench",
			"category":    "Parks",
			"description": "Snapped in half",
			"location":    "City Park",
		}, "bench.png")

		Expect(serve(&f.citizen, req).Code).To(Equal(http.StatusCreated))
		Expect(images.removed).To(BeEmpty())
	})

	It("never removes an image path sent as JSON", func() {
		body := `{"title":"","image_path":"/uploads/existing.png"}`
		w := serve(&f.citizen, httptest.NewRequest(http.MethodPost, "/complaints", strings.NewReader(body)))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(images.removed).To(BeEmpty())
	})

	It("reports validation failures as 400", func() {
		w := serve(&f.citizen, httptest.NewRequest(http.MethodPost, "/complaints", strings.NewReader(`{"title":""}`)))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Error.Type).To(Equal(string(internal.ErrorTypeValidation)))

		w = serve(&f.citizen, httptest.NewRequest(http.MethodPost, "/complaints", strings.NewReader(`not json`)))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns the complaint with its timeline", func() {
		c := f.create(f.citizen, "Pothole", "Roads & Footpaths")

		w := serve(&f.citizen, httptest.NewRequest(http.MethodGet, "/complaints/"+itoa(c.ID), nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		var detail complaint.ComplaintDetail
		Expect(json.NewDecoder(w.Body).Decode(&detail)).To(Succeed())
		Expect(detail.ComplaintID).To(Equal(c.ComplaintID))
		Expect(detail.Comments).To(HaveLen(1))
	})

	It("maps lookups to 400, 403 and 404", func() {
		c := f.create(f.citizen, "Pothole", "Roads & Footpaths")

		Expect(serve(&f.citizen, httptest.NewRequest(http.MethodGet, "/complaints/abc", nil)).Code).To(Equal(http.StatusBadRequest))
		Expect(serve(&f.citizen2, httptest.NewRequest(http.MethodGet, "/complaints/"+itoa(c.ID), nil)).Code).To(Equal(http.StatusForbidden))
		Expect(serve(&f.admin, httptest.NewRequest(http.MethodGet, "/complaints/999", nil)).Code).To(Equal(http.StatusNotFound))
	})

	It("updates the status as an admin", func() {
		c := f.create(f.citizen, "Pothole", "Roads & Footpaths")

		req := httptest.NewRequest(http.MethodPatch, "/complaints/"+itoa(c.ID)+"/status", strings.NewReader(`{"status":"Resolved","note":"Filled"}`))
		w := serve(&f.admin, req)
		Expect(w.Code).To(Equal(http.StatusOK))

		var updated complaint.Complaint
		Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
		Expect(updated.Status).To(Equal(complaint.StatusResolved))
		Expect(updated.ResolvedAt).NotTo(BeNil())
	})

	It("refuses unknown statuses and non-admins", func() {
		c := f.create(f.citizen, "Pothole", "Roads & Footpaths")
		path := "/complaints/" + itoa(c.ID) + "/status"

		w := serve(&f.admin, httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"status":"Done"}`)))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Error.Code).To(Equal(string(internal.ErrCodeInvalidStatus)))

		w = serve(&f.citizen, httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"status":"Resolved"}`)))
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("assigns and deletes", func() {
		c := f.create(f.citizen, "Pothole", "Roads & Footpaths")

		body := `{"assignee_id":` + itoa(f.admin2.UserID) + `}`
		w := serve(&f.admin, httptest.NewRequest(http.MethodPatch, "/complaints/"+itoa(c.ID)+"/assign", strings.NewReader(body)))
		Expect(w.Code).To(Equal(http.StatusOK))

		w = serve(&f.admin, httptest.NewRequest(http.MethodDelete, "/complaints/"+itoa(c.ID), nil))
		Expect(w.Code).To(Equal(http.StatusNoContent))

		w = serve(&f.admin, httptest.NewRequest(http.MethodGet, "/complaints/"+itoa(c.ID), nil))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("lists with query filters", func() {
		f.create(f.citizen, "Pothole", "Roads & Footpaths")
		f.create(f.citizen2, "Dark street", "Electricity")

		w := serve(&f.admin, httptest.NewRequest(http.MethodGet, "/complaints?category=Electricity&status=all", nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		var list complaint.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Count).To(Equal(1))
		Expect(list.Complaints[0].Title).To(Equal("Dark street"))

		w = serve(&f.admin, httptest.NewRequest(http.MethodGet, "/complaints?status=Open", nil))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("lists a user's complaints for the owner or an admin only", func() {
		f.create(f.citizen, "Pothole", "Roads & Footpaths")
		path := "/users/" + itoa(f.citizen.UserID) + "/complaints"

		w := serve(&f.citizen, httptest.NewRequest(http.MethodGet, path, nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		var list complaint.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Count).To(Equal(1))

		Expect(serve(&f.citizen2, httptest.NewRequest(http.MethodGet, path, nil)).Code).To(Equal(http.StatusForbidden))
		Expect(serve(&f.admin, httptest.NewRequest(http.MethodGet, path, nil)).Code).To(Equal(http.StatusOK))
	})

	It("returns every owner complaint unless a page is requested", func() {
		for i := 0; i < 105; i++ {
			f.create(f.citizen, "Pothole "+itoa(int64(i)), "Roads & Footpaths")
		}

		var list complaint.ListResponse
		w := serve(&f.citizen, httptest.NewRequest(http.MethodGet, "/complaints/mine", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Count).To(Equal(105))

		w = serve(&f.admin, httptest.NewRequest(http.MethodGet, "/users/"+itoa(f.citizen.UserID)+"/complaints", nil))
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Count).To(Equal(105))

		w = serve(&f.citizen, httptest.NewRequest(http.MethodGet, "/complaints/mine?limit=10", nil))
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Count).To(Equal(10))

		w = serve(&f.admin, httptest.NewRequest(http.MethodGet, "/complaints", nil))
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Count).To(Equal(100))
	})

	It("returns an empty array rather than null", func() {
		w := serve(&f.citizen, httptest.NewRequest(http.MethodGet, "/complaints/mine", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"complaints":[]`))
	})

	It("serves dashboard stats to admins", func() {
		f.create(f.citizen, "Pothole", "Roads & Footpaths")

		w := serve(&f.admin, httptest.NewRequest(http.MethodGet, "/complaints/stats", nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		var stats complaint.Stats
		Expect(json.NewDecoder(w.Body).Decode(&stats)).To(Succeed())
		Expect(stats.Total).To(BeEquivalentTo(1))

		Expect(serve(&f.citizen, httptest.NewRequest(http.MethodGet, "/complaints/stats", nil)).Code).To(Equal(http.StatusForbidden))
	})
})
