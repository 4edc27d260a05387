package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roadready/drivemis-api/internal/models"
)

func TestDeriveEnrollmentStatus(t *testing.T) {
	cases := []struct {
		name   string
		total  int
		counts models.SessionCounts
		want   models.EnrollmentStatus
	}{
		{"no sessions required", 0, models.SessionCounts{}, models.EnrollmentAwaitingAction},
		{"nothing booked yet", 4, models.SessionCounts{}, models.EnrollmentAwaitingFollowUp},
		{"partially booked", 4, models.SessionCounts{Scheduled: 2}, models.EnrollmentAwaitingFollowUp},
		{"all completed", 4, models.SessionCounts{Completed: 4}, models.EnrollmentCompleted},
		{"some completed", 4, models.SessionCounts{Scheduled: 2, Completed: 2}, models.EnrollmentInProgress},
		{"all scheduled", 4, models.SessionCounts{Scheduled: 4}, models.EnrollmentAllSessionsScheduled},
		{"one completed rest scheduled", 5, models.SessionCounts{Scheduled: 4, Completed: 1}, models.EnrollmentInProgress},
		{"single session course done", 1, models.SessionCounts{Completed: 1}, models.EnrollmentCompleted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveEnrollmentStatus(tc.total, tc.counts))
		})
	}
}

func TestDeriveEnrollmentStatusMissedDoesNotCountAsBooked(t *testing.T) {
	// A missed session frees its slot, so the enrollment drops back to
	// follow-up until the slot is rebooked.
	counts := models.SessionCounts{Scheduled: 2, Completed: 1, Missed: 1}
	assert.Equal(t, models.EnrollmentAwaitingFollowUp, DeriveEnrollmentStatus(4, counts))

	// Cancelled behaves the same way.
	counts = models.SessionCounts{Scheduled: 3, Cancelled: 1}
	assert.Equal(t, models.EnrollmentAwaitingFollowUp, DeriveEnrollmentStatus(4, counts))
}
