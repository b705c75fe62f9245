package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/quotient/internal/adapters/cache"
	"github.com/okian/quotient/internal/adapters/neynar"
	"github.com/okian/quotient/internal/adapters/redisstore"
	"github.com/okian/quotient/internal/adapters/sharestore"
	service "github.com/okian/quotient/internal/app"
)

const neynarUser = `{
	"fid": %d,
	"username": "user%d",
	"display_name": "User %d",
	"follower_count": %d,
	"following_count": 100,
	"experimental": {"neynar_user_score": 0.5},
	"verified_addresses": {"eth_addresses": ["0x%d"], "sol_addresses": []}
}`

// fakeNeynar serves /v2/farcaster/user/bulk for any fids up to 1000. Followers grow with
// the fid so leaderboard order is predictable.
func fakeNeynar(t *testing.T, hits *atomic.Int64) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var users []string
		for _, raw := range strings.Split(r.URL.Query().Get("fids"), ",") {
			fid, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || fid > 1000 {
				continue
			}
			users = append(users, fmt.Sprintf(neynarUser, fid, fid, fid, fid*100, fid))
		}
		fmt.Fprintf(w, `{"users":[%s]}`, strings.Join(users, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by Neynar, Redis and SQLite", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var hits atomic.Int64
		upstream := fakeNeynar(t, &hits)

		mr := miniredis.RunT(t)
		rdb := redisstore.NewClient(redisstore.Config{Addr: mr.Addr()})
		Reset(func() { _ = rdb.Close() })

		shares, err := sharestore.Open(ctx, sharestore.MemoryPath)
		So(err, ShouldBeNil)
		Reset(func() { _ = shares.Close() })

		svc := service.New(
			service.WithProvider(neynar.New(neynar.WithBaseURL(upstream.URL+"/"), neynar.WithTimeout(2*time.Second))),
			service.WithCache(cache.NewRedis(rdb, cache.WithTTL(time.Minute))),
			service.WithLedger(redisstore.NewLedger(rdb)),
			service.WithShareGate(shares),
			service.WithWorkerCount(4),
			service.WithQueueSize(100),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When a profile is looked up twice", func() {
			first, err1 := svc.Lookup(ctx, "7")
			second, err2 := svc.Lookup(ctx, "7")

			Convey("Then Redis serves the second read", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.Source, ShouldEqual, "upstream")
				So(second.Source, ShouldEqual, "cache")
				So(hits.Load(), ShouldEqual, 1)
				So(mr.Exists("quotient:profile:7"), ShouldBeTrue)
				So(second.Profile.Username, ShouldEqual, "user7")
			})
		})

		Convey("When a batch of refreshes is processed", func() {
			fids := []uint64{1, 2, 3, 4, 5, 20}
			n, err := svc.EnqueueRefresh(ctx, fids)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, len(fids))

			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) && svc.GetStats()["rankedProfiles"] != len(fids) {
				time.Sleep(20 * time.Millisecond)
			}

			Convey("Then the leaderboard orders them by score", func() {
				top, err := svc.TopN(ctx, 3)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 3)
				So(top[0].FID, ShouldEqual, 20)
				So(top[0].Score, ShouldBeGreaterThanOrEqualTo, top[1].Score)

				entry, err := svc.Rank(ctx, 20)
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
			})

			Convey("And the refreshed profiles are cached", func() {
				So(mr.Exists("quotient:profile:20"), ShouldBeTrue)
			})
		})

		Convey("When an account opts out of sharing", func() {
			So(svc.SetShareEnabled(ctx, 7, false), ShouldBeNil)
			_, err := svc.PublicStats(ctx, 7)

			Convey("Then the preference is persisted in SQLite", func() {
				So(err, ShouldEqual, service.ErrShareDisabled)
				count, err := shares.Count(ctx)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When an account checks in", func() {
			_, already, err := svc.RecordCheckIn(ctx, "fid:7")
			So(err, ShouldBeNil)
			So(already, ShouldBeFalse)

			Convey("Then the Redis ledger reports it", func() {
				status, err := svc.CheckInStatus(ctx, "7")
				So(err, ShouldBeNil)
				So(status.CheckedIn, ShouldBeTrue)
				So(mr.Exists("quotient:checkin:fid:7"), ShouldBeTrue)
			})
		})
	})
}
