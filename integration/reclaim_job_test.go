//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"

	"careplatform/outbox-relay/integration/http"
	"careplatform/outbox-relay/job"
	"careplatform/outbox-relay/outbox"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReclaimJobReturnsAbandonedRecordsToThePublisher(t *testing.T) {
	Convey("Given there are records whose publisher died while holding them", t, func() {
		purgeTables()
		http.Reset()

		ids := appendRecords([]outbox.AppendRequest{
			prescriptionEvent("rx-40", "PrescriptionIssued", `{"rx": 40}`),
			prescriptionEvent("rx-41", "PrescriptionIssued", `{"rx": 41}`),
		})
		makeStale(ids...)
		fresh := appendRecords([]outbox.AppendRequest{prescriptionEvent("rx-42", "PrescriptionIssued", `{"rx": 42}`)})

		Convey("When the reclaim job runs", func() {
			code := job.RunReclaim(context.Background(), repo, cfg)
			So(code, ShouldEqual, 0)

			Convey("Then the abandoned records should be pending again", func() {
				for _, id := range ids {
					actual := getRecord(id)
					So(actual.Status, ShouldEqual, outbox.StatusPending)
					So(actual.Attempts, ShouldEqual, 1)
					So(actual.LastError.String, ShouldEqual, outbox.ReclaimedReason)
				}
				So(getRecord(fresh[0]).Attempts, ShouldEqual, 0)
				So(http.Received("/quitquitquit"), ShouldBeTrue)

				Convey("And the next tick should publish them", func() {
					res, err := newPublisher(10).Tick(context.Background())
					So(err, ShouldBeNil)
					So(res.Published, ShouldEqual, 3)

					for _, id := range ids {
						actual := getRecord(id)
						So(actual.Status, ShouldEqual, outbox.StatusPublished)
						So(actual.Attempts, ShouldEqual, 2)
					}
				})
			})
		})
	})
}

func TestRetryFailedJobResubmitsParkedRecords(t *testing.T) {
	Convey("Given an undeliverable record was parked as FAILED", t, func() {
		purgeTables()

		id := insertUndeliverableRecord()
		_, err := newPublisher(10).Tick(context.Background())
		So(err, ShouldBeNil)
		So(getRecord(id).Status, ShouldEqual, outbox.StatusFailed)

		Convey("When the retry failed job runs", func() {
			code := job.RunRetryFailed(context.Background(), repo, notifications, cfg)
			So(code, ShouldEqual, 0)

			Convey("Then the record should be pending again", func() {
				So(getRecord(id).Status, ShouldEqual, outbox.StatusPending)
			})
		})
	})
}
