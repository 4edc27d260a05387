package service

import "github.com/roadready/drivemis-api/internal/models"

// DeriveEnrollmentStatus computes an enrollment's lifecycle status from its
// live session counts. totalSessions is the number of sessions the purchased
// hours require. Forfeited and Archived are terminal manual states and are
// never produced here.
//
// The rules are ordered; the first match wins:
//  1. no sessions required: nothing to act on
//  2. not all required slots booked: staff must follow up
//  3. every required session completed: done
//  4. some but not all completed: in progress
//  5. every required session merely scheduled: fully booked
//  6. a missed or cancelled session with the rest booked: follow up
func DeriveEnrollmentStatus(totalSessions int, counts models.SessionCounts) models.EnrollmentStatus {
	booked := counts.Booked()
	switch {
	case totalSessions == 0:
		return models.EnrollmentAwaitingAction
	case booked < totalSessions:
		return models.EnrollmentAwaitingFollowUp
	case counts.Completed == totalSessions:
		return models.EnrollmentCompleted
	case counts.Completed > 0 && counts.Completed < totalSessions:
		return models.EnrollmentInProgress
	case counts.Scheduled == totalSessions:
		return models.EnrollmentAllSessionsScheduled
	case counts.Missed > 0 || counts.Cancelled > 0:
		return models.EnrollmentAwaitingFollowUp
	default:
		return models.EnrollmentAwaitingAction
	}
}
