package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/quotient/internal/domain/checkin"
)

func TestLedger(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	Convey("Given a Redis ledger backed by miniredis", t, func() {
		mr := miniredis.RunT(t)
		client := NewClient(Config{Addr: mr.Addr()})
		defer client.Close()
		So(Ping(ctx, client), ShouldBeNil)

		l := NewLedger(client)
		key := checkin.KeyForFID(3)

		Convey("When a key checks in", func() {
			already, err := l.Record(ctx, key, now)
			So(err, ShouldBeNil)
			So(already, ShouldBeFalse)

			Convey("Then the key expires at the next UTC midnight", func() {
				So(mr.TTL("quotient:checkin:fid:3"), ShouldEqual, 6*time.Hour)
				v, _ := mr.Get("quotient:checkin:fid:3")
				So(v, ShouldEqual, "2025-06-01")
			})

			Convey("Then the same day reports already checked in", func() {
				again, err := l.Record(ctx, key, now.Add(time.Hour))
				So(err, ShouldBeNil)
				So(again, ShouldBeTrue)

				st, err := l.Status(ctx, key, now)
				So(err, ShouldBeNil)
				So(st.CheckedIn, ShouldBeTrue)
				So(st.NextEligible, ShouldEqual, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
			})

			Convey("Then a leftover key from yesterday does not block today", func() {
				tomorrow := now.Add(24 * time.Hour)
				st, err := l.Status(ctx, key, tomorrow)
				So(err, ShouldBeNil)
				So(st.CheckedIn, ShouldBeFalse)

				already, err := l.Record(ctx, key, tomorrow)
				So(err, ShouldBeNil)
				So(already, ShouldBeFalse)
			})

			Convey("Then expiry clears it", func() {
				mr.FastForward(6 * time.Hour)
				st, err := l.Status(ctx, key, now.Add(6*time.Hour))
				So(err, ShouldBeNil)
				So(st.CheckedIn, ShouldBeFalse)
			})

			Convey("Then Clear allows another attempt", func() {
				So(l.Clear(ctx, key), ShouldBeNil)
				already, err := l.Record(ctx, key, now)
				So(err, ShouldBeNil)
				So(already, ShouldBeFalse)
			})
		})

		Convey("When several keys check in", func() {
			for _, k := range []string{checkin.KeyForFID(1), checkin.KeyForFID(2), checkin.KeyForAddress("0xAB")} {
				_, err := l.Record(ctx, k, now)
				So(err, ShouldBeNil)
			}
			So(mr.Set("quotient:profile:1", "{}"), ShouldBeNil)

			Convey("Then Size counts only check-in keys", func() {
				n, err := l.Size(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})

		Convey("When the key is empty", func() {
			_, err := l.Record(ctx, "", now)
			Convey("Then ErrInvalidKey is returned", func() {
				So(err, ShouldEqual, checkin.ErrInvalidKey)
			})
		})

		Convey("When the server is gone", func() {
			mr.Close()
			_, err := l.Record(ctx, key, now)
			Convey("Then the error is surfaced", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
