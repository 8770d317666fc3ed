package complaint_test

import (
	"context"
	"errors"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/complaint"
	"github.com/frahmantamala/civic-complaints/internal/timeline"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func titlesOf(complaints []*complaint.Complaint) []string {
	titles := make([]string, len(complaints))
	for i, c := range complaints {
		titles[i] = c.Title
	}
	return titles
}

var _ = Describe("Queries", func() {
	var (
		f   *fixture
		ctx context.Context

		pothole, streetlight, garbage *complaint.Complaint
	)

	BeforeEach(func() {
		f = newFixture()
		ctx = context.Background()

		pothole = f.create(f.citizen, "Pothole on Main Road", "Roads & Footpaths")
		streetlight = f.create(f.citizen, "Streetlight 50% dim", "Electricity")
		garbage = f.create(f.citizen2, "Garbage Not Collected", "Waste Management")
		f.transition(streetlight.ID, complaint.StatusInProgress)
	})

	Describe("ListAll", func() {
		It("returns every complaint newest first", func() {
			all, err := f.service.ListAll(ctx, f.admin, complaint.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(all)).To(Equal([]string{garbage.Title, streetlight.Title, pothole.Title}))
			Expect(all[0].OwnerName).To(Equal("Priya Verma"))
		})

		It("treats all as no filter", func() {
			all, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Status: "all", Category: "all"})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
		})

		It("filters by status", func() {
			submitted, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Status: "Submitted"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(submitted)).To(ConsistOf(pothole.Title, garbage.Title))
		})

		It("filters by category", func() {
			roads, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Category: "Roads & Footpaths"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(roads)).To(Equal([]string{pothole.Title}))
		})

		It("searches title, identifier and location case-insensitively", func() {
			byTitle, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Search: "POTHOLE"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(byTitle)).To(Equal([]string{pothole.Title}))

			byID, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Search: garbage.ComplaintID})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(byID)).To(Equal([]string{garbage.Title}))

			byLocation, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Search: "sector 4"})
			Expect(err).NotTo(HaveOccurred())
			Expect(byLocation).To(HaveLen(3))
		})

		It("folds non-ASCII letters when searching", func() {
			lighting := f.create(f.citizen2, "Éclairage Public cassé", "Electricity")

			lower, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Search: "éclairage"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(lower)).To(Equal([]string{lighting.Title}))

			exact, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Search: "Éclairage Public"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(exact)).To(Equal([]string{lighting.Title}))

			upper, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Search: "CASSÉ"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(upper)).To(Equal([]string{lighting.Title}))
		})

		It("matches wildcard characters literally", func() {
			percent, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Search: "50%"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(percent)).To(Equal([]string{streetlight.Title}))

			underscore, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Search: "_"})
			Expect(err).NotTo(HaveOccurred())
			Expect(underscore).To(BeEmpty())
		})

		It("combines filters with AND", func() {
			none, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Status: "In Progress", Category: "Waste Management"})
			Expect(err).NotTo(HaveOccurred())
			Expect(none).To(BeEmpty())
		})

		It("pages with limit and offset", func() {
			page, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Limit: 1, Offset: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(page)).To(Equal([]string{streetlight.Title}))
		})

		It("rejects unknown status filters", func() {
			_, err := f.service.ListAll(ctx, f.admin, complaint.Filter{Status: "Closed"})
			Expect(internal.IsType(err, internal.ErrorTypeInvalidStatus)).To(BeTrue())
		})

		It("is reserved for admins", func() {
			_, err := f.service.ListAll(ctx, f.citizen, complaint.Filter{})
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
		})
	})

	Describe("ListForOwner", func() {
		It("returns only the owner's complaints newest first", func() {
			mine, err := f.service.ListForOwner(ctx, f.citizen.UserID, complaint.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(mine)).To(Equal([]string{streetlight.Title, pothole.Title}))
		})

		It("applies filters within the owner's complaints", func() {
			mine, err := f.service.ListForOwner(ctx, f.citizen.UserID, complaint.Filter{Status: "In Progress"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titlesOf(mine)).To(Equal([]string{streetlight.Title}))
		})

		It("returns an empty list for owners without complaints", func() {
			none, err := f.service.ListForOwner(ctx, f.admin.UserID, complaint.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(none).To(BeEmpty())
		})
	})

	Describe("ComputeStats", func() {
		It("counts the live state across owners", func() {
			stats, err := f.service.ComputeStats(ctx, f.admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(BeEquivalentTo(3))
			Expect(stats.Submitted).To(BeEquivalentTo(2))
			Expect(stats.Acknowledged).To(BeZero())
			Expect(stats.InProgress).To(BeEquivalentTo(1))
			Expect(stats.Resolved).To(BeZero())
			Expect(stats.Rejected).To(BeZero())
			Expect(stats.Pending).To(BeEquivalentTo(2))
			Expect(stats.Recent).To(HaveLen(3))
			Expect(stats.Recent[0].ID).To(Equal(garbage.ID))
		})

		It("orders the category breakdown by count, then name", func() {
			f.create(f.citizen2, "Another pothole", "Roads & Footpaths")

			stats, err := f.service.ComputeStats(ctx, f.admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.ByCategory).To(Equal([]complaint.CategoryCount{
				{Category: "Roads & Footpaths", Count: 2},
				{Category: "Electricity", Count: 1},
				{Category: "Waste Management", Count: 1},
			}))
		})

		It("recomputes on every call", func() {
			f.transition(pothole.ID, complaint.StatusResolved)
			Expect(f.service.DeleteComplaint(ctx, f.admin, garbage.ID)).To(Succeed())

			stats, err := f.service.ComputeStats(ctx, f.admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(BeEquivalentTo(2))
			Expect(stats.Submitted).To(BeZero())
			Expect(stats.Resolved).To(BeEquivalentTo(1))
		})

		It("is reserved for admins", func() {
			_, err := f.service.ComputeStats(ctx, f.citizen)
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
		})
	})

	Describe("ComputeOwnerStats", func() {
		It("counts only the owner's complaints", func() {
			stats, err := f.service.ComputeOwnerStats(ctx, f.citizen.UserID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*stats).To(Equal(complaint.OwnerStats{Total: 2, Pending: 1, InProgress: 1}))
		})
	})

	Describe("comments", func() {
		It("append in order and touch updated_at", func() {
			before, err := f.service.GetComplaint(ctx, f.admin, pothole.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = f.timeline.AddComment(ctx, f.citizen, pothole.ID, timeline.AddCommentDTO{Message: "Any update?"})
			Expect(err).NotTo(HaveOccurred())
			_, err = f.timeline.AddComment(ctx, f.admin, pothole.ID, timeline.AddCommentDTO{Message: "Crew scheduled for Monday."})
			Expect(err).NotTo(HaveOccurred())

			after, err := f.service.GetComplaint(ctx, f.admin, pothole.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(after.Comments).To(HaveLen(len(before.Comments) + 2))
			Expect(after.Comments[0].Message).To(Equal(complaint.SubmittedComment))
			Expect(after.Comments[1].Message).To(Equal("Any update?"))
			Expect(after.Comments[2].Message).To(Equal("Crew scheduled for Monday."))
			Expect(after.Comments[2].AuthorRole).To(Equal(internal.RoleAdmin))
			Expect(after.UpdatedAt).To(BeTemporally(">", before.UpdatedAt))
			Expect(after.Status).To(Equal(before.Status))
		})

		It("moves updated_at past created_at", func() {
			_, err := f.timeline.AddComment(ctx, f.citizen, pothole.ID, timeline.AddCommentDTO{Message: "Still there"})
			Expect(err).NotTo(HaveOccurred())

			detail, err := f.service.GetComplaint(ctx, f.citizen, pothole.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.UpdatedAt).To(BeTemporally(">", detail.CreatedAt))
		})

		It("refuses other citizens' complaints", func() {
			_, err := f.timeline.AddComment(ctx, f.citizen2, pothole.ID, timeline.AddCommentDTO{Message: "Me too"})
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
		})

		It("refuses unknown complaints", func() {
			_, err := f.timeline.AddComment(ctx, f.admin, 9999, timeline.AddCommentDTO{Message: "Hello"})
			Expect(errors.Is(err, internal.ErrComplaintNotFound)).To(BeTrue())
		})
	})
})
