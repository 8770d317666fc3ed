package complaint_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/complaint"
	complaintDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/complaint"
	"github.com/frahmantamala/civic-complaints/internal/core/events"
	"github.com/frahmantamala/civic-complaints/internal/timeline"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("bus closed")
}

var _ = Describe("Lifecycle", func() {
	var (
		f   *fixture
		ctx context.Context
	)

	BeforeEach(func() {
		f = newFixture()
		ctx = context.Background()
	})

	Describe("CreateComplaint", func() {
		It("creates a submitted complaint with exactly one system comment", func() {
			created := f.create(f.citizen, "Pothole on Main Road", "Roads & Footpaths")
			Expect(created.ComplaintID).To(Equal("CMP-2026-000001"))
			Expect(created.OwnerName).To(Equal("Rahul Sharma"))

			detail, err := f.service.GetComplaint(ctx, f.citizen, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Status).To(Equal(complaint.StatusSubmitted))
			Expect(detail.Priority).To(Equal(complaint.PriorityMedium))
			Expect(detail.ResolvedAt).To(BeNil())
			Expect(detail.OwnerEmail).To(Equal("citizen@demo.com"))
			Expect(detail.OwnerPhone).To(Equal("9876543210"))
			Expect(detail.Comments).To(HaveLen(1))
			Expect(detail.Comments[0].Message).To(Equal(complaint.SubmittedComment))
			Expect(detail.Comments[0].UserID).To(Equal(f.citizen.UserID))
			Expect(detail.Comments[0].AuthorName).To(Equal("Rahul Sharma"))

			Expect(f.published.Types()).To(Equal([]string{events.EventTypeComplaintCreated}))
		})

		It("keeps the priority and the image path verbatim", func() {
			c, err := f.service.CreateComplaint(ctx, f.citizen, complaint.CreateComplaintDTO{
				Title:       "Streetlight Not Working",
				Category:    "Electricity",
				Description: "Dark at night",
				Location:    "Park Street",
				Priority:    "Urgent",
				ImagePath:   "/uploads/4f1c.png",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Priority).To(Equal(complaint.PriorityUrgent))
			Expect(c.ImagePath).NotTo(BeNil())
			Expect(*c.ImagePath).To(Equal("/uploads/4f1c.png"))
		})

		DescribeTable("rejects invalid input with a validation error",
			func(dto complaint.CreateComplaintDTO) {
				_, err := f.service.CreateComplaint(ctx, f.citizen, dto)
				Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue(), "got %v", err)
			},
			Entry("missing title", complaint.CreateComplaintDTO{Category: "Water", Description: "d", Location: "l"}),
			Entry("blank location", complaint.CreateComplaintDTO{Title: "t", Category: "Water", Description: "d", Location: "   "}),
			Entry("missing category", complaint.CreateComplaintDTO{Title: "t", Description: "d", Location: "l"}),
			Entry("unknown priority", complaint.CreateComplaintDTO{Title: "t", Category: "Water", Description: "d", Location: "l", Priority: "Critical"}),
		)

		It("requires an owner", func() {
			_, err := f.service.CreateComplaint(ctx, internal.Actor{}, complaint.CreateComplaintDTO{
				Title: "t", Category: "Water", Description: "d", Location: "l",
			})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("issues distinct identifiers to concurrent submissions", func() {
			const n = 20

			var (
				wg  sync.WaitGroup
				mu  sync.Mutex
				ids = map[string]struct{}{}
			)
			for i := 0; i < n; i++ {
				owner := f.citizen
				if i%2 == 1 {
					owner = f.citizen2
				}

				wg.Add(1)
				go func(owner internal.Actor) {
					defer GinkgoRecover()
					defer wg.Done()

					c, err := f.service.CreateComplaint(ctx, owner, complaint.CreateComplaintDTO{
						Title: "Overflowing drain", Category: "Drainage", Description: "d", Location: "l",
					})
					Expect(err).NotTo(HaveOccurred())

					mu.Lock()
					ids[c.ComplaintID] = struct{}{}
					mu.Unlock()
				}(owner)
			}
			wg.Wait()

			Expect(ids).To(HaveLen(n))
		})
	})

	Describe("GetComplaint", func() {
		It("fails with not found for an unknown id", func() {
			_, err := f.service.GetComplaint(ctx, f.admin, 4242)
			Expect(errors.Is(err, internal.ErrComplaintNotFound)).To(BeTrue())
		})

		It("forbids citizens from reading other owners' complaints", func() {
			c := f.create(f.citizen, "Pothole", "Roads & Footpaths")

			_, err := f.service.GetComplaint(ctx, f.citizen2, c.ID)
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())

			_, err = f.service.GetComplaint(ctx, f.admin, c.ID)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("TransitionStatus", func() {
		var c *complaint.Complaint

		BeforeEach(func() {
			c = f.create(f.citizen, "Garbage Not Collected", "Waste Management")
		})

		It("sets resolved_at only when the target is Resolved", func() {
			updated, err := f.service.TransitionStatus(ctx, f.admin, c.ID, complaint.TransitionDTO{Status: "In Progress"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(complaint.StatusInProgress))
			Expect(updated.ResolvedAt).To(BeNil())
			Expect(updated.UpdatedAt).To(BeTemporally(">", c.UpdatedAt))

			updated, err = f.service.TransitionStatus(ctx, f.admin, c.ID, complaint.TransitionDTO{Status: "Resolved"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.ResolvedAt).NotTo(BeNil())
			Expect(*updated.ResolvedAt).To(BeTemporally("==", updated.UpdatedAt))
		})

		It("appends the default audit comment authored by the admin", func() {
			f.transition(c.ID, complaint.StatusInProgress)

			comments, err := f.timeline.ListTimeline(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(HaveLen(2))
			Expect(comments[1].Message).To(Equal(`Status changed to "In Progress"`))
			Expect(comments[1].UserID).To(Equal(f.admin.UserID))
			Expect(comments[1].AuthorRole).To(Equal(internal.RoleAdmin))
		})

		It("uses the trimmed note as the audit comment when given", func() {
			_, err := f.service.TransitionStatus(ctx, f.admin, c.ID, complaint.TransitionDTO{
				Status: "Acknowledged",
				Note:   "  Our team has been dispatched.  ",
			})
			Expect(err).NotTo(HaveOccurred())

			comments, err := f.timeline.ListTimeline(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments[len(comments)-1].Message).To(Equal("Our team has been dispatched."))
		})

		It("rejects statuses outside the enum", func() {
			_, err := f.service.TransitionStatus(ctx, f.admin, c.ID, complaint.TransitionDTO{Status: "Closed"})
			Expect(internal.IsType(err, internal.ErrorTypeInvalidStatus)).To(BeTrue())

			_, err = f.service.TransitionStatus(ctx, f.admin, c.ID, complaint.TransitionDTO{Status: "in progress"})
			Expect(internal.IsType(err, internal.ErrorTypeInvalidStatus)).To(BeTrue())
		})

		It("fails with not found for an unknown complaint", func() {
			_, err := f.service.TransitionStatus(ctx, f.admin, 999, complaint.TransitionDTO{Status: "Resolved"})
			Expect(errors.Is(err, internal.ErrComplaintNotFound)).To(BeTrue())
		})

		It("is reserved for admins", func() {
			_, err := f.service.TransitionStatus(ctx, f.citizen, c.ID, complaint.TransitionDTO{Status: "Resolved"})
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
		})

		It("allows any move by default and never clears resolved_at", func() {
			f.transition(c.ID, complaint.StatusResolved)

			updated, err := f.service.TransitionStatus(ctx, f.admin, c.ID, complaint.TransitionDTO{Status: "Submitted"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(complaint.StatusSubmitted))
			Expect(updated.ResolvedAt).NotTo(BeNil())
		})

		It("publishes the previous and new status", func() {
			f.transition(c.ID, complaint.StatusAcknowledged)

			var changed *events.ComplaintStatusChangedEvent
			for _, e := range f.published.events {
				if ev, ok := e.(*events.ComplaintStatusChangedEvent); ok {
					changed = ev
				}
			}
			Expect(changed).NotTo(BeNil())
			Expect(changed.From).To(Equal("Submitted"))
			Expect(changed.To).To(Equal("Acknowledged"))
			Expect(changed.PublicID).To(Equal(c.ComplaintID))
		})
	})

	Describe("TransitionStatus with enforced transitions", func() {
		var c *complaint.Complaint

		BeforeEach(func() {
			f = newFixture(complaint.WithEnforcedTransitions(true))
			c = f.create(f.citizen, "Water Leakage", "Water Supply")
		})

		It("allows skipping forward", func() {
			f.transition(c.ID, complaint.StatusInProgress)
			f.transition(c.ID, complaint.StatusResolved)
		})

		It("refuses backwards moves with a conflict", func() {
			f.transition(c.ID, complaint.StatusInProgress)

			_, err := f.service.TransitionStatus(ctx, f.admin, c.ID, complaint.TransitionDTO{Status: "Acknowledged"})
			Expect(errors.Is(err, internal.ErrInvalidTransition)).To(BeTrue())
			Expect(internal.IsType(err, internal.ErrorTypeConflict)).To(BeTrue())

			comments, err := f.timeline.ListTimeline(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(HaveLen(2))
		})

		It("refuses re-applying the current status", func() {
			_, err := f.service.TransitionStatus(ctx, f.admin, c.ID, complaint.TransitionDTO{Status: "Submitted"})
			Expect(errors.Is(err, internal.ErrInvalidTransition)).To(BeTrue())
		})

		It("reaches Rejected from any open state and then stays terminal", func() {
			f.transition(c.ID, complaint.StatusAcknowledged)
			f.transition(c.ID, complaint.StatusRejected)

			for _, st := range complaint.Statuses {
				_, err := f.service.TransitionStatus(ctx, f.admin, c.ID, complaint.TransitionDTO{Status: string(st)})
				Expect(errors.Is(err, internal.ErrInvalidTransition)).To(BeTrue(), "moving to %s", st)
			}
		})

		It("still reports unknown complaints as not found", func() {
			_, err := f.service.TransitionStatus(ctx, f.admin, 999, complaint.TransitionDTO{Status: "Resolved"})
			Expect(errors.Is(err, internal.ErrComplaintNotFound)).To(BeTrue())
		})
	})

	Describe("AssignComplaint", func() {
		var c *complaint.Complaint

		BeforeEach(func() {
			c = f.create(f.citizen, "Broken Footpath", "Roads & Footpaths")
		})

		It("assigns to an admin and records it on the timeline", func() {
			updated, err := f.service.AssignComplaint(ctx, f.admin, c.ID, complaint.AssignDTO{AssigneeID: f.admin2.UserID})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.AssignedTo).NotTo(BeNil())
			Expect(*updated.AssignedTo).To(Equal(f.admin2.UserID))

			detail, err := f.service.GetComplaint(ctx, f.admin, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.AssigneeName).To(Equal("Field Officer"))
			Expect(detail.Comments[len(detail.Comments)-1].Message).To(Equal(`Complaint assigned to "Field Officer"`))
		})

		It("refuses citizens as assignees", func() {
			_, err := f.service.AssignComplaint(ctx, f.admin, c.ID, complaint.AssignDTO{AssigneeID: f.citizen2.UserID})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("reports unknown assignees and complaints", func() {
			_, err := f.service.AssignComplaint(ctx, f.admin, c.ID, complaint.AssignDTO{AssigneeID: 777})
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())

			_, err = f.service.AssignComplaint(ctx, f.admin, 777, complaint.AssignDTO{AssigneeID: f.admin.UserID})
			Expect(errors.Is(err, internal.ErrComplaintNotFound)).To(BeTrue())
		})

		It("is reserved for admins", func() {
			_, err := f.service.AssignComplaint(ctx, f.citizen, c.ID, complaint.AssignDTO{AssigneeID: f.admin.UserID})
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
		})
	})

	Describe("DeleteComplaint", func() {
		It("removes the complaint with its comments", func() {
			c := f.create(f.citizen, "Pothole", "Roads & Footpaths")
			_, err := f.timeline.AddComment(ctx, f.citizen, c.ID, timeline.AddCommentDTO{Message: "Still there"})
			Expect(err).NotTo(HaveOccurred())

			Expect(f.service.DeleteComplaint(ctx, f.admin, c.ID)).To(Succeed())

			_, err = f.service.GetComplaint(ctx, f.admin, c.ID)
			Expect(errors.Is(err, internal.ErrComplaintNotFound)).To(BeTrue())

			var remaining int64
			Expect(f.db.Model(&complaintDatamodel.Comment{}).Where("complaint_id = ?", c.ID).Count(&remaining).Error).To(Succeed())
			Expect(remaining).To(BeZero())

			Expect(f.published.Types()).To(ContainElement(events.EventTypeComplaintDeleted))
		})

		It("is idempotent", func() {
			Expect(f.service.DeleteComplaint(ctx, f.admin, 12345)).To(Succeed())
		})

		It("is reserved for admins", func() {
			c := f.create(f.citizen, "Pothole", "Roads & Footpaths")
			err := f.service.DeleteComplaint(ctx, f.citizen, c.ID)
			Expect(internal.IsType(err, internal.ErrorTypeForbidden)).To(BeTrue())
		})
	})

	Describe("event publishing", func() {
		It("logs failures without failing committed operations", func() {
			var logs bytes.Buffer
			noisy := newFixtureWith(failingPublisher{}, slog.New(slog.NewTextHandler(&logs, nil)))

			c := noisy.create(noisy.citizen, "Pothole", "Roads & Footpaths")
			_, err := noisy.service.TransitionStatus(ctx, noisy.admin, c.ID, complaint.TransitionDTO{Status: "Acknowledged"})
			Expect(err).NotTo(HaveOccurred())
			_, err = noisy.service.AssignComplaint(ctx, noisy.admin, c.ID, complaint.AssignDTO{AssigneeID: noisy.admin2.UserID})
			Expect(err).NotTo(HaveOccurred())
			Expect(noisy.service.DeleteComplaint(ctx, noisy.admin, c.ID)).To(Succeed())

			Expect(strings.Count(logs.String(), "failed to publish event")).To(Equal(4))
			for _, t := range []string{
				events.EventTypeComplaintCreated,
				events.EventTypeComplaintStatusChanged,
				events.EventTypeComplaintAssigned,
				events.EventTypeComplaintDeleted,
			} {
				Expect(logs.String()).To(ContainSubstring(t))
			}
		})
	})
})
