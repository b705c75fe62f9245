package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/quotient/internal/domain/quotient"
	"github.com/okian/quotient/internal/domain/types"
	"github.com/okian/quotient/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeServer records the requests quotientctl makes.
type fakeServer struct {
	mu       sync.Mutex
	refresh  [][]uint64
	reject   int
	requests atomic.Int64
	board    []types.Entry
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]any{"queueLength": 0, "activeWorkers": 0})
	})
	mux.HandleFunc("GET /api/profile/{ident}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("ident") == "ghost" {
			writeTestJSON(w, http.StatusNotFound, map[string]string{"code": "not_found", "message": "user not found"})
			return
		}
		m := quotient.UserMetrics{FollowerCount: 1500, FollowingCount: 300, EngagementScore: 0.9, HasVerifiedAddress: quotient.Verified(true)}
		rep := types.ProfileReport{Assessment: types.Assess(m), PublicShareEnabled: true, Source: "upstream"}
		rep.Profile.FID = 3
		rep.Profile.Username = r.PathValue("ident")
		writeTestJSON(w, http.StatusOK, rep)
	})
	mux.HandleFunc("POST /api/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if r.Header.Get("X-Request-ID") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var body struct {
			FIDs []uint64 `json:"fids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.refresh = append(f.refresh, body.FIDs)
		f.mu.Unlock()
		if f.reject > 0 {
			writeTestJSON(w, http.StatusTooManyRequests, RefreshAck{Status: "backpressure", Accepted: len(body.FIDs) - f.reject})
			return
		}
		writeTestJSON(w, http.StatusAccepted, RefreshAck{Status: "accepted", Accepted: len(body.FIDs)})
	})
	mux.HandleFunc("GET /leaderboard", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, f.board)
	})
	mux.HandleFunc("GET /rank/{fid}", func(w http.ResponseWriter, r *http.Request) {
		for _, e := range f.board {
			if r.PathValue("fid") == jsonNumber(e.FID) {
				writeTestJSON(w, http.StatusOK, e)
				return
			}
		}
		writeTestJSON(w, http.StatusNotFound, map[string]string{"code": "not_found", "message": "not ranked"})
	})
	mux.HandleFunc("POST /api/checkin/{key}", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusConflict, map[string]any{"key": "fid:" + r.PathValue("key"), "day": "2026-10-17", "checkedIn": true})
	})
	mux.HandleFunc("DELETE /api/checkin/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /api/share/{fid}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Enabled *bool `json:"enabled"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeTestJSON(w, http.StatusOK, SharePreference{FID: 3, Enabled: *body.Enabled})
	})
	return mux
}

func writeTestJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonNumber(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func runCLI(args ...string) (string, error) {
	var out bytes.Buffer
	err := Execute(context.Background(), &out, args)
	return out.String(), err
}

func sampleBoard() []types.Entry {
	return []types.Entry{
		{Rank: 1, FID: 3, Username: "dwr", Score: 580, Tier: quotient.TierB},
		{Rank: 1, FID: 7, Username: "seven", Score: 580, Tier: quotient.TierB},
		{Rank: 2, FID: 9, Username: "nine", Score: 120, Tier: quotient.TierD},
	}
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given the score command", t, func() {
		convey.Convey("When scoring verified metrics as JSON", func() {
			out, err := runCLI("score", "--followers", "1500", "--following", "300",
				"--engagement", "0.9", "--verified", "--format", "json")

			convey.Convey("Then the engine result is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				var a types.Assessment
				convey.So(json.Unmarshal([]byte(out), &a), convey.ShouldBeNil)
				convey.So(a.Quotient.CompositeScore, convey.ShouldEqual, 580)
				convey.So(a.Quotient.Tier, convey.ShouldEqual, quotient.TierB)
				convey.So(a.Influence, convey.ShouldEqual, quotient.InfluenceNotable)
			})
		})

		convey.Convey("When --verified is omitted", func() {
			out, err := runCLI("score", "--followers", "1500", "--following", "300", "--engagement", "0.9", "--format", "json")

			convey.Convey("Then no verification bonus is awarded", func() {
				convey.So(err, convey.ShouldBeNil)
				var a types.Assessment
				convey.So(json.Unmarshal([]byte(out), &a), convey.ShouldBeNil)
				convey.So(a.Quotient.CompositeScore, convey.ShouldEqual, 530)
				convey.So(a.Metrics.HasVerifiedAddress, convey.ShouldBeNil)
			})
		})

		convey.Convey("When printing for humans", func() {
			out, err := runCLI("score", "--followers", "1500", "--following", "300", "--engagement", "0.9", "--verified")

			convey.Convey("Then the summary is readable", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Score:      580 / 1000")
				convey.So(out, convey.ShouldContainSubstring, "B-Tier Active")
				convey.So(out, convey.ShouldContainSubstring, "⭐ Notable")
			})
		})

		convey.Convey("When the format is unknown", func() {
			_, err := runCLI("score", "--format", "xml")

			convey.Convey("Then ErrInvalidFormat is returned", func() {
				convey.So(errors.Is(err, ErrInvalidFormat), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServerCommands(t *testing.T) {
	convey.Convey("Given a quotient server", t, func() {
		fake := &fakeServer{board: sampleBoard()}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		convey.Convey("When looking up a username", func() {
			out, err := runCLI("lookup", "dwr", "--url", srv.URL+"/")

			convey.Convey("Then the profile and assessment are printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "@dwr")
				convey.So(out, convey.ShouldContainSubstring, "580 / 1000")
			})
		})

		convey.Convey("When the account does not exist", func() {
			_, err := runCLI("lookup", "ghost", "--url", srv.URL)

			convey.Convey("Then the API error is surfaced", func() {
				var se *StatusError
				convey.So(errors.As(err, &se), convey.ShouldBeTrue)
				convey.So(se.Code, convey.ShouldEqual, http.StatusNotFound)
				convey.So(se.APICode, convey.ShouldEqual, "not_found")
				convey.So(errors.Is(err, ErrUnexpectedStatus), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When refreshing more fids than one batch holds", func() {
			out, err := runCLI("refresh", "1", "2", "3", "4", "5", "--batch", "2", "--url", srv.URL)

			convey.Convey("Then the fids are split across requests", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "queued 5 of 5 fids in 3 batches")
				convey.So(fake.requests.Load(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When refreshing an invalid fid", func() {
			_, err := runCLI("refresh", "0", "--url", srv.URL)

			convey.Convey("Then no request is made", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(fake.requests.Load(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When showing the top entries", func() {
			out, err := runCLI("top", "--limit", "3", "--url", srv.URL)

			convey.Convey("Then a table is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "RANK")
				convey.So(out, convey.ShouldContainSubstring, "dwr")
				convey.So(out, convey.ShouldContainSubstring, "nine")
			})
		})

		convey.Convey("When asking for one rank", func() {
			out, err := runCLI("rank", "9", "--format", "json", "--url", srv.URL)

			convey.Convey("Then the entry is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				var e types.Entry
				convey.So(json.Unmarshal([]byte(out), &e), convey.ShouldBeNil)
				convey.So(e.Rank, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When checking in twice", func() {
			out, err := runCLI("checkin", "record", "3", "--url", srv.URL)

			convey.Convey("Then the conflict still reports the status", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "fid:3 checked in on 2026-10-17")
			})
		})

		convey.Convey("When clearing a check-in", func() {
			out, err := runCLI("checkin", "clear", "3", "--url", srv.URL)

			convey.Convey("Then the key is reported cleared", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "cleared 3\n")
			})
		})

		convey.Convey("When disabling public share", func() {
			out, err := runCLI("share", "3", "off", "--url", srv.URL)

			convey.Convey("Then the stored preference is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "public share for fid 3 is disabled")
			})
		})

		convey.Convey("When the share switch is garbage", func() {
			_, err := runCLI("share", "3", "maybe", "--url", srv.URL)

			convey.Convey("Then an error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRefreshAll(t *testing.T) {
	convey.Convey("Given a server under backpressure", t, func() {
		fake := &fakeServer{reject: 1}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()
		c := NewClient(srv.URL, time.Second)

		convey.Convey("When refreshing two batches", func() {
			res, err := RefreshAll(context.Background(), c, []uint64{1, 2, 3, 4}, 2, 2)

			convey.Convey("Then rejections are counted, not returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Batches, convey.ShouldEqual, 2)
				convey.So(res.Accepted, convey.ShouldEqual, 2)
				convey.So(res.Rejected, convey.ShouldEqual, 2)
			})
		})
	})

	convey.Convey("Given an unreachable server", t, func() {
		c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)

		convey.Convey("Then the transport error is returned", func() {
			_, err := RefreshAll(context.Background(), c, []uint64{1}, 0, 0)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestVerifyLeaderboard(t *testing.T) {
	convey.Convey("Given leaderboards", t, func() {
		convey.Convey("A dense, tie-broken board passes", func() {
			convey.So(VerifyLeaderboard(sampleBoard(), sampleBoard()), convey.ShouldBeNil)
		})

		convey.Convey("A score inversion fails", func() {
			board := sampleBoard()
			board[2].Score = 900
			convey.So(errors.Is(VerifyLeaderboard(board, nil), ErrLeaderboardOrder), convey.ShouldBeTrue)
		})

		convey.Convey("Ties out of fid order fail", func() {
			board := sampleBoard()
			board[0].FID, board[1].FID = board[1].FID, board[0].FID
			convey.So(errors.Is(VerifyLeaderboard(board, nil), ErrLeaderboardOrder), convey.ShouldBeTrue)
		})

		convey.Convey("A rank gap fails", func() {
			board := sampleBoard()
			board[2].Rank = 3
			convey.So(errors.Is(VerifyLeaderboard(board, nil), ErrLeaderboardOrder), convey.ShouldBeTrue)
		})

		convey.Convey("A rank that disagrees with the board fails", func() {
			ranked := sampleBoard()
			ranked[2].Score = 121
			convey.So(errors.Is(VerifyLeaderboard(sampleBoard(), ranked), ErrLeaderboardOrder), convey.ShouldBeTrue)
		})
	})
}

func TestBench(t *testing.T) {
	convey.Convey("Given a drained server", t, func() {
		fake := &fakeServer{board: sampleBoard()}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		convey.Convey("When benching a handful of profiles", func() {
			stats, err := Bench(context.Background(), NewClient(srv.URL, time.Second), BenchConfig{
				Profiles: 20,
				MaxFID:   10,
				Workers:  4,
				Top:      3,
				Batch:    5,
				Settle:   time.Second,
				Seed:     42,
			})

			convey.Convey("Then every fid is queued and checked", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Accepted, convey.ShouldEqual, 20)
				convey.So(stats.Drained, convey.ShouldBeTrue)
				convey.So(stats.Ranked+stats.Missing, convey.ShouldEqual, 20)
				convey.So(stats.Leaderboard, convey.ShouldEqual, 3)
			})
		})
	})
}

func TestBenchFIDs(t *testing.T) {
	convey.Convey("Given a seed", t, func() {
		a := benchFIDs(50, 100, 7)
		b := benchFIDs(50, 100, 7)

		convey.Convey("Then draws are distinct, bounded and reproducible", func() {
			convey.So(a, convey.ShouldResemble, b)
			seen := map[uint64]bool{}
			for _, fid := range a {
				convey.So(fid >= 1 && fid <= 100, convey.ShouldBeTrue)
				convey.So(seen[fid], convey.ShouldBeFalse)
				seen[fid] = true
			}
		})
	})
}

func TestFormatFlag(t *testing.T) {
	convey.Convey("The help output lists every command", t, func() {
		out, err := runCLI("--help")
		convey.So(err, convey.ShouldBeNil)
		for _, name := range []string{"score", "lookup", "refresh", "top", "rank", "checkin", "share", "bench"} {
			convey.So(strings.Contains(out, name), convey.ShouldBeTrue)
		}
	})
}
