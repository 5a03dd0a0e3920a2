package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/botgate/adapters/clock"
	"github.com/artpar/botgate/adapters/idgen"
	"github.com/artpar/botgate/adapters/memory"
	"github.com/artpar/botgate/adapters/random"
	"github.com/artpar/botgate/app"
	"github.com/artpar/botgate/domain/access"
	"github.com/artpar/botgate/domain/ratelimit"
)

var baseTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type accessFixture struct {
	config  *memory.ConfigStore
	history *memory.HistoryStore
	clock   *clock.Fake
	random  *random.Fake
	service *app.AccessService
}

func newAccessFixture(t *testing.T, rateLimitEnabled bool) *accessFixture {
	t.Helper()
	f := &accessFixture{
		config:  memory.NewConfigStore(),
		history: memory.NewHistoryStore(),
		clock:   clock.NewFake(baseTime),
		random:  random.NewFake(),
	}
	f.service = app.NewAccessService(app.AccessDeps{
		Config:  f.config,
		History: f.history,
		Clock:   f.clock,
		Random:  f.random,
		IDGen:   idgen.NewSequential("req_"),
		Logger:  zerolog.Nop(),
	}, app.AccessConfig{RateLimitEnabled: rateLimitEnabled})
	return f
}

func (f *accessFixture) allowUser(userID string, roles []string, quota *ratelimit.Quota) {
	f.config.SetUser(userID, memory.UserConfig{
		Status: access.StatusAllowed,
		Roles:  roles,
		Quota:  quota,
	})
}

func TestCheck_UnknownUserDenied(t *testing.T) {
	f := newAccessFixture(t, true)

	decision, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "ghost"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Access != access.StatusDenied {
		t.Errorf("access = %v, want denied", decision.Access)
	}
	if decision.Permissions != nil || decision.RateChecked {
		t.Error("strict prefix violated: later fields set after denial")
	}

	// The denial is still logged and the presence recorded.
	events := f.history.Events()
	if len(events) != 1 || events[0].Kind != access.EventAuthentication || events[0].Status != access.StatusDenied {
		t.Errorf("events = %+v", events)
	}
	if u, ok := f.history.User("ghost"); !ok || u.Status != access.StatusDenied {
		t.Errorf("presence record = %+v, %v", u, ok)
	}
}

func TestCheck_DeniedUser(t *testing.T) {
	f := newAccessFixture(t, true)
	f.config.SetUser("user1", memory.UserConfig{Status: access.StatusDenied})

	decision, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1", RoleID: "admin_role"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Access != access.StatusDenied || decision.Permissions != nil {
		t.Errorf("decision = %+v, want access denied only", decision)
	}
}

func TestCheck_UnrecognizedStatusTreatedAsDenied(t *testing.T) {
	f := newAccessFixture(t, true)
	f.config.SetUser("user1", memory.UserConfig{Status: "suspended"})

	decision, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Access != access.StatusDenied {
		t.Errorf("access = %v, want denied", decision.Access)
	}
}

func TestCheck_RoleNotGranted(t *testing.T) {
	f := newAccessFixture(t, true)
	f.allowUser("user1", []string{}, nil)

	decision, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1", RoleID: "financial_role"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Access != access.StatusAllowed {
		t.Errorf("access = %v, want allowed", decision.Access)
	}
	if decision.Permissions == nil || *decision.Permissions != access.StatusDenied {
		t.Errorf("permissions = %v, want denied", decision.Permissions)
	}
	if decision.RateChecked {
		t.Error("rate check ran after authorization denial")
	}

	events := f.history.Events()
	if len(events) != 2 || events[1].Kind != access.EventAuthorization || events[1].Role != "financial_role" {
		t.Errorf("events = %+v", events)
	}
}

func TestCheck_FullPassUnderQuota(t *testing.T) {
	f := newAccessFixture(t, true)
	f.allowUser("user1", []string{"financial_role"},
		&ratelimit.Quota{RequestsPerDay: 10, RequestsPerHour: 5, RandomShiftMinutes: 15})

	decision, err := f.service.Check(context.Background(), app.CheckRequest{
		UserID: "user1", ChatID: "chat1", MessageID: "msg1", RoleID: "financial_role",
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Access != access.StatusAllowed {
		t.Errorf("access = %v", decision.Access)
	}
	if decision.Permissions == nil || *decision.Permissions != access.StatusAllowed {
		t.Errorf("permissions = %v", decision.Permissions)
	}
	if !decision.RateChecked || decision.RateLimit != nil {
		t.Errorf("rate check: checked=%v limit=%v, want checked and unlimited", decision.RateChecked, decision.RateLimit)
	}

	// Counters moved and the consolidated row was written.
	state, _ := f.history.GetRateState(context.Background(), "user1")
	if state.RequestsPerDay != 1 || state.RequestsPerHour != 1 {
		t.Errorf("state = %+v", state)
	}
	requests := f.history.Requests()
	if len(requests) != 1 {
		t.Fatalf("request rows = %d, want 1", len(requests))
	}
	r := requests[0]
	if r.UserID != "user1" || r.ChatID != "chat1" || r.MessageID != "msg1" || r.RateLimit != nil || !r.Timestamp.Equal(baseTime) {
		t.Errorf("request row = %+v", r)
	}
}

func TestCheck_RateLimitDisabled(t *testing.T) {
	f := newAccessFixture(t, false)
	f.allowUser("user1", []string{"financial_role"}, nil)

	decision, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1", RoleID: "financial_role"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Access != access.StatusAllowed || decision.Permissions == nil || *decision.Permissions != access.StatusAllowed {
		t.Errorf("decision = %+v", decision)
	}
	if decision.RateChecked {
		t.Error("rate check ran with the switch off")
	}
}

func TestCheck_NoRoleRequestedSkipsLaterStages(t *testing.T) {
	f := newAccessFixture(t, true)
	f.allowUser("user1", []string{"financial_role"},
		&ratelimit.Quota{RequestsPerDay: 10, RequestsPerHour: 5, RandomShiftMinutes: 15})

	decision, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Access != access.StatusAllowed || decision.Permissions != nil || decision.RateChecked {
		t.Errorf("decision = %+v, want access only", decision)
	}
}

func TestCheck_DayQuotaExceededScenario(t *testing.T) {
	f := newAccessFixture(t, true)
	f.allowUser("user1", []string{"financial_role"},
		&ratelimit.Quota{RequestsPerDay: 3, RequestsPerHour: 1, RandomShiftMinutes: 15})

	// Eleven prior requests within the last day.
	f.history.PutRateState(context.Background(), "user1", ratelimit.State{RequestsPerDay: 11, RequestsPerHour: 0})

	decision, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1", RoleID: "financial_role"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.RateLimit == nil {
		t.Fatal("expected a deadline")
	}
	if want := baseTime.Add(24 * time.Hour); !decision.RateLimit.Equal(want) {
		t.Errorf("deadline = %v, want %v", decision.RateLimit, want)
	}

	// The consolidated row carries the deadline.
	requests := f.history.Requests()
	if len(requests) != 1 || requests[0].RateLimit == nil {
		t.Fatalf("request rows = %+v", requests)
	}
}

func TestCheck_HourQuotaUsesJitterDraw(t *testing.T) {
	f := newAccessFixture(t, true)
	f.random.WithDraws(7)
	f.allowUser("user1", []string{"financial_role"},
		&ratelimit.Quota{RequestsPerDay: 30, RequestsPerHour: 1, RandomShiftMinutes: 15})

	f.history.PutRateState(context.Background(), "user1", ratelimit.State{RequestsPerDay: 2, RequestsPerHour: 1})

	decision, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1", RoleID: "financial_role"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.RateLimit == nil {
		t.Fatal("expected a deadline")
	}
	if want := baseTime.Add(time.Hour + 7*time.Minute); !decision.RateLimit.Equal(want) {
		t.Errorf("deadline = %v, want %v", decision.RateLimit, want)
	}
}

func TestCheck_BlockedThenClears(t *testing.T) {
	f := newAccessFixture(t, true)
	f.allowUser("user1", []string{"financial_role"},
		&ratelimit.Quota{RequestsPerDay: 30, RequestsPerHour: 1, RandomShiftMinutes: 1})

	ctx := context.Background()
	req := app.CheckRequest{UserID: "user1", RoleID: "financial_role"}

	// First call passes, second applies the limit.
	if d, _ := f.service.Check(ctx, req); d.RateLimit != nil {
		t.Fatal("first call limited")
	}
	d, _ := f.service.Check(ctx, req)
	if d.RateLimit == nil {
		t.Fatal("second call not limited")
	}
	deadline := *d.RateLimit

	// Still blocked before the deadline.
	f.clock.Advance(30 * time.Minute)
	if d, _ := f.service.Check(ctx, req); d.RateLimit == nil {
		t.Error("blocked state passed before the deadline")
	}

	// Clears once the deadline elapses.
	f.clock.Set(deadline.Add(time.Second))
	if d, _ := f.service.Check(ctx, req); d.RateLimit != nil {
		t.Error("limit survived its deadline")
	}
}

func TestCheck_MissingQuotaIsConfigurationError(t *testing.T) {
	f := newAccessFixture(t, true)
	f.allowUser("user1", []string{"financial_role"}, nil)

	_, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1", RoleID: "financial_role"})
	if !errors.Is(err, app.ErrWrongUserConfiguration) {
		t.Errorf("err = %v, want ErrWrongUserConfiguration", err)
	}
}

func TestCheck_ZeroShiftIsConfigurationError(t *testing.T) {
	f := newAccessFixture(t, true)
	f.allowUser("user1", []string{"financial_role"},
		&ratelimit.Quota{RequestsPerDay: 10, RequestsPerHour: 5})

	_, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1", RoleID: "financial_role"})
	if !errors.Is(err, app.ErrWrongUserConfiguration) {
		t.Errorf("err = %v, want ErrWrongUserConfiguration", err)
	}
}

func TestCheck_EmptyUserID(t *testing.T) {
	f := newAccessFixture(t, true)

	_, err := f.service.Check(context.Background(), app.CheckRequest{})
	if !errors.Is(err, app.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestCheck_ConcurrentSameUser(t *testing.T) {
	f := newAccessFixture(t, true)
	f.allowUser("user1", []string{"financial_role"},
		&ratelimit.Quota{RequestsPerDay: 1000, RequestsPerHour: 1000, RandomShiftMinutes: 15})

	const calls = 50
	var wg sync.WaitGroup
	wg.Add(calls)
	for i := 0; i < calls; i++ {
		go func() {
			defer wg.Done()
			if _, err := f.service.Check(context.Background(), app.CheckRequest{UserID: "user1", RoleID: "financial_role"}); err != nil {
				t.Errorf("check: %v", err)
			}
		}()
	}
	wg.Wait()

	// Per-user locking makes the read-modify-write atomic: no lost
	// increments.
	state, _ := f.history.GetRateState(context.Background(), "user1")
	if state.RequestsPerDay != calls || state.RequestsPerHour != calls {
		t.Errorf("counters = %d/%d, want %d/%d", state.RequestsPerDay, state.RequestsPerHour, calls, calls)
	}
}
