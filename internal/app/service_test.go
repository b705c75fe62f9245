package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/quotient/internal/adapters/neynar"
	service "github.com/okian/quotient/internal/app"
	"github.com/okian/quotient/internal/domain/model"
	"github.com/okian/quotient/internal/domain/quotient"
	"github.com/okian/quotient/internal/domain/share"
	"github.com/okian/quotient/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockProvider struct {
	mu       sync.Mutex
	profiles map[uint64]model.Profile
	channels []model.Channel
	err      error
	calls    int
	limit    int
}

func newMockProvider(profiles ...model.Profile) *mockProvider {
	m := &mockProvider{profiles: make(map[uint64]model.Profile)}
	for _, p := range profiles {
		m.profiles[p.FID] = p
	}
	return m
}

func (m *mockProvider) UserByFID(ctx context.Context, fid uint64) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return model.Profile{}, m.err
	}
	p, ok := m.profiles[fid]
	if !ok {
		return model.Profile{}, neynar.ErrNotFound
	}
	return p, nil
}

func (m *mockProvider) UserByUsername(ctx context.Context, username string) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return model.Profile{}, m.err
	}
	for _, p := range m.profiles {
		if p.Username == username {
			return p, nil
		}
	}
	return model.Profile{}, neynar.ErrNotFound
}

func (m *mockProvider) UserChannels(ctx context.Context, fid uint64, limit int) ([]model.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.channels, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func score(v float64) *float64 { return &v }

var dwr = model.Profile{
	FID:               3,
	Username:          "dwr",
	DisplayName:       "Dan Romero",
	FollowerCount:     1500,
	FollowingCount:    300,
	NeynarScore:       score(0.9),
	VerifiedAddresses: []string{"0xaaa"},
}

var newbie = model.Profile{
	FID:            99,
	Username:       "newbie",
	FollowerCount:  2,
	FollowingCount: 600,
	NeynarScore:    score(0.05),
}

func startedService(p service.Provider, opts ...service.Option) *service.Service {
	opts = append([]service.Option{service.WithProvider(p), service.WithWorkerCount(2)}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without a provider", t, func() {
		svc := service.New()

		Convey("Then it refuses to start", func() {
			So(svc.Start(context.Background()), ShouldEqual, service.ErrNoProvider)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then leaderboard calls report it is not started", func() {
			_, err := svc.TopN(context.Background(), 10)
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.EnqueueRefresh(context.Background(), []uint64{1})
			So(err, ShouldEqual, service.ErrNotStarted)
			_, ok := svc.RankedAt(1)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a started service", t, func() {
		svc := startedService(newMockProvider(dwr))
		Reset(svc.Stop)

		Convey("Then it is marked as started", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["rankedProfiles"], ShouldEqual, 0)
		})

		Convey("When starting it twice", func() {
			err := svc.Start(context.Background())

			Convey("Then it is a no-op", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When stopping it", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Score(t *testing.T) {
	Convey("Given the engine behind the service", t, func() {
		svc := service.New()

		Convey("When scoring verified power-user metrics", func() {
			a := svc.Score(quotient.UserMetrics{
				FollowerCount:        1500,
				FollowingCount:       300,
				EngagementScore:      0.9,
				HasVerifiedAddress:   quotient.Verified(true),
				VerifiedAddressCount: 1,
			})

			Convey("Then every engine output is bundled", func() {
				So(a.Quotient.CompositeScore, ShouldEqual, 580)
				So(a.Quotient.Tier, ShouldEqual, quotient.TierB)
				So(a.Breakdown.Reach, ShouldEqual, 100)
				So(a.Ratio, ShouldEqual, 5)
				So(a.Influence, ShouldEqual, quotient.InfluenceNotable)
				So(a.Spam.IsSpam, ShouldBeFalse)
			})
		})
	})
}

func TestService_Lookup(t *testing.T) {
	Convey("Given a started service with a provider", t, func() {
		provider := newMockProvider(dwr, newbie)
		svc := startedService(provider)
		Reset(svc.Stop)
		ctx := context.Background()

		Convey("When looking up by fid twice", func() {
			first, err1 := svc.Lookup(ctx, "3")
			second, err2 := svc.Lookup(ctx, "3")

			Convey("Then the second read is served from cache", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.Source, ShouldEqual, "upstream")
				So(second.Source, ShouldEqual, "cache")
				So(provider.callCount(), ShouldEqual, 1)
				So(second.Assessment.Quotient.CompositeScore, ShouldEqual, 580)
				So(second.PublicShareEnabled, ShouldBeTrue)
			})

			Convey("And the profile is on the leaderboard", func() {
				entry, err := svc.Rank(ctx, 3)
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.Score, ShouldEqual, 580)
				So(entry.Username, ShouldEqual, "dwr")

				at, ok := svc.RankedAt(3)
				So(ok, ShouldBeTrue)
				So(at.IsZero(), ShouldBeFalse)

				_, ok = svc.RankedAt(999)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When looking up by username with a leading @", func() {
			report, err := svc.Lookup(ctx, "@DWR")

			Convey("Then the username is resolved upstream", func() {
				So(err, ShouldBeNil)
				So(report.Profile.FID, ShouldEqual, 3)
				So(report.Source, ShouldEqual, "upstream")
			})
		})

		Convey("When a spammy account is looked up", func() {
			report, err := svc.Lookup(ctx, "99")

			Convey("Then the spam verdict is attached", func() {
				So(err, ShouldBeNil)
				So(report.Assessment.Spam.IsSpam, ShouldBeTrue)
				So(report.Assessment.Spam.Confidence, ShouldEqual, quotient.SpamHigh)
			})
		})

		Convey("When the identifier is malformed", func() {
			_, err := svc.Lookup(ctx, "  ")

			Convey("Then ErrInvalidIdentifier is returned", func() {
				So(errors.Is(err, service.ErrInvalidIdentifier), ShouldBeTrue)
			})
		})

		Convey("When the profile does not exist", func() {
			_, err := svc.Lookup(ctx, "12345")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the provider is down", func() {
			provider.err = fmt.Errorf("%w: status 503", neynar.ErrUpstream)
			_, err := svc.Lookup(ctx, "3")

			Convey("Then ErrUpstream is returned", func() {
				So(errors.Is(err, service.ErrUpstream), ShouldBeTrue)
			})
		})
	})
}

func TestService_PublicStats(t *testing.T) {
	Convey("Given a service with a share gate", t, func() {
		gate := share.NewMemory()
		svc := service.New(service.WithProvider(newMockProvider(dwr)), service.WithShareGate(gate))
		ctx := context.Background()

		Convey("When the account never opted out", func() {
			stats, err := svc.PublicStats(ctx, 3)

			Convey("Then the public summary is returned", func() {
				So(err, ShouldBeNil)
				So(stats.QuotientScore, ShouldEqual, 580)
				So(stats.QuotientRank, ShouldEqual, "B-Tier Active")
				So(stats.NeynarScore, ShouldEqual, 90)
				So(stats.InfluenceLevel, ShouldEqual, "⭐ Notable")
				So(stats.PublicShareEnabled, ShouldBeTrue)
			})
		})

		Convey("When the account opted out", func() {
			So(svc.SetShareEnabled(ctx, 3, false), ShouldBeNil)
			_, err := svc.PublicStats(ctx, 3)

			Convey("Then ErrShareDisabled is returned", func() {
				So(err, ShouldEqual, service.ErrShareDisabled)
				enabled, err := svc.ShareEnabled(ctx, 3)
				So(err, ShouldBeNil)
				So(enabled, ShouldBeFalse)
			})
		})

		Convey("When the fid is zero", func() {
			_, err := svc.PublicStats(ctx, 0)

			Convey("Then ErrInvalidFID is returned", func() {
				So(err, ShouldEqual, service.ErrInvalidFID)
				So(svc.SetShareEnabled(ctx, 0, true), ShouldEqual, service.ErrInvalidFID)
			})
		})
	})
}

func TestService_Channels(t *testing.T) {
	Convey("Given a provider with channels", t, func() {
		provider := newMockProvider(dwr)
		provider.channels = []model.Channel{{ID: "farcaster", Name: "Farcaster"}}
		svc := service.New(service.WithProvider(provider))
		ctx := context.Background()

		Convey("When no limit is given", func() {
			channels, err := svc.Channels(ctx, 3, 0)

			Convey("Then the default limit is used", func() {
				So(err, ShouldBeNil)
				So(channels, ShouldHaveLength, 1)
				So(provider.limit, ShouldEqual, 25)
			})
		})

		Convey("When the limit is too large", func() {
			_, err := svc.Channels(ctx, 3, 1000)

			Convey("Then it is capped", func() {
				So(err, ShouldBeNil)
				So(provider.limit, ShouldEqual, 100)
			})
		})
	})
}

func TestService_CheckIn(t *testing.T) {
	Convey("Given a service with a fixed clock", t, func() {
		now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
		svc := service.New(service.WithClock(func() time.Time { return now }))
		ctx := context.Background()

		Convey("When a wallet checks in twice", func() {
			_, first, err1 := svc.RecordCheckIn(ctx, "0xABC")
			status, second, err2 := svc.RecordCheckIn(ctx, "0xabc")

			Convey("Then the second is flagged as a repeat", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(status.Key, ShouldEqual, "addr:0xabc")
				So(status.NextEligible, ShouldEqual, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
			})

			Convey("And clearing allows a new check-in", func() {
				So(svc.ClearCheckIn(ctx, "0xabc"), ShouldBeNil)
				status, err := svc.CheckInStatus(ctx, "0xabc")
				So(err, ShouldBeNil)
				So(status.CheckedIn, ShouldBeFalse)
			})
		})

		Convey("When the key is malformed", func() {
			_, err := svc.CheckInStatus(ctx, "not-a-key")

			Convey("Then ErrInvalidKey is returned", func() {
				So(err, ShouldEqual, service.ErrInvalidKey)
			})
		})
	})
}

func TestService_EnqueueRefresh(t *testing.T) {
	Convey("Given a started service", t, func() {
		provider := newMockProvider(dwr, newbie)
		svc := startedService(provider)
		Reset(svc.Stop)
		ctx := context.Background()

		Convey("When refreshes are queued", func() {
			n, err := svc.EnqueueRefresh(ctx, []uint64{3, 99})

			Convey("Then workers rank both profiles", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					if top, _ := svc.TopN(ctx, 10); len(top) == 2 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].FID, ShouldEqual, 3)
			})
		})

		Convey("When a fid is zero", func() {
			n, err := svc.EnqueueRefresh(ctx, []uint64{3, 0})

			Convey("Then nothing is queued", func() {
				So(err, ShouldEqual, service.ErrInvalidFID)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When asking for a non-positive limit", func() {
			_, err := svc.TopN(ctx, 0)

			Convey("Then ErrInvalidLimit is returned", func() {
				So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a started service with a tiny queue and blocked workers", t, func() {
		provider := &blockingProvider{release: make(chan struct{})}
		svc := service.New(
			service.WithProvider(provider),
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		Reset(func() {
			close(provider.release)
			svc.Stop()
		})

		Convey("When more refreshes are queued than fit", func() {
			var (
				accepted int
				err      error
			)
			fids := make([]uint64, 0, 10)
			for fid := uint64(1); fid <= 10; fid++ {
				fids = append(fids, fid)
			}
			accepted, err = svc.EnqueueRefresh(context.Background(), fids)

			Convey("Then ErrBackpressure reports the accepted prefix", func() {
				So(err, ShouldEqual, service.ErrBackpressure)
				So(accepted, ShouldBeLessThan, 10)
			})
		})
	})
}

type blockingProvider struct {
	release chan struct{}
}

func (b *blockingProvider) UserByFID(ctx context.Context, fid uint64) (model.Profile, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return model.Profile{FID: fid}, nil
}

func (b *blockingProvider) UserByUsername(ctx context.Context, username string) (model.Profile, error) {
	return model.Profile{}, neynar.ErrNotFound
}

func (b *blockingProvider) UserChannels(ctx context.Context, fid uint64, limit int) ([]model.Channel, error) {
	return nil, nil
}
