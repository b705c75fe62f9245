package sharestore

import (
	"context"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/quotient/internal/domain/share"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory share store", t, func() {
		s, err := Open(ctx, "")
		So(err, ShouldBeNil)
		defer s.Close()
		So(s.Ping(ctx), ShouldBeNil)

		Convey("Then unknown accounts are enabled", func() {
			on, err := s.Enabled(ctx, 3)
			So(err, ShouldBeNil)
			So(on, ShouldBeTrue)
		})

		Convey("When an account opts out", func() {
			So(s.SetEnabled(ctx, 3, false), ShouldBeNil)

			Convey("Then it reads as disabled", func() {
				on, err := s.Enabled(ctx, 3)
				So(err, ShouldBeNil)
				So(on, ShouldBeFalse)
			})

			Convey("Then opting back in overwrites the row", func() {
				So(s.SetEnabled(ctx, 3, true), ShouldBeNil)
				on, _ := s.Enabled(ctx, 3)
				So(on, ShouldBeTrue)

				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When a second in-memory store is opened", func() {
			So(s.SetEnabled(ctx, 5, false), ShouldBeNil)
			other, err := Open(ctx, MemoryPath)
			So(err, ShouldBeNil)
			defer other.Close()

			Convey("Then it does not see the first store's rows", func() {
				on, err := other.Enabled(ctx, 5)
				So(err, ShouldBeNil)
				So(on, ShouldBeTrue)
				n, err := other.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})

			Convey("Then the first store keeps its rows across queries", func() {
				for range 3 {
					on, err := s.Enabled(ctx, 5)
					So(err, ShouldBeNil)
					So(on, ShouldBeFalse)
				}
			})
		})

		Convey("When the fid is zero", func() {
			Convey("Then ErrInvalidFID is returned", func() {
				So(s.SetEnabled(ctx, 0, false), ShouldEqual, share.ErrInvalidFID)
				_, err := s.Enabled(ctx, 0)
				So(err, ShouldEqual, share.ErrInvalidFID)
			})
		})
	})

	Convey("Given a file-backed share store", t, func() {
		path := filepath.Join(t.TempDir(), "nested", "share.db")
		s, err := Open(ctx, path)
		So(err, ShouldBeNil)
		So(s.SetEnabled(ctx, 42, false), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			s2, err := Open(ctx, path)
			So(err, ShouldBeNil)
			defer s2.Close()

			Convey("Then preferences persist", func() {
				on, err := s2.Enabled(ctx, 42)
				So(err, ShouldBeNil)
				So(on, ShouldBeFalse)
			})
		})
	})
}
