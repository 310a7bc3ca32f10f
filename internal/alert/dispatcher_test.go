package alert

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/abedinzadeh/dashmon.online/internal/notify"
	"github.com/abedinzadeh/dashmon.online/internal/storage"
)

type fakeConfigs struct {
	configs []*storage.AlertConfig
	err     error
}

func (f *fakeConfigs) GetAlertConfigs(_ context.Context, _ string) ([]*storage.AlertConfig, error) {
	return f.configs, f.err
}

type fakeMailer struct {
	calls int
	to    []string
	err   error
}

func (f *fakeMailer) SendMail(_ context.Context, to []string, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.calls++
	f.to = to
	return nil
}

type fakeSMS struct {
	calls int
	err   error
}

func (f *fakeSMS) SendSMS(_ context.Context, _, _ string) (notify.SMSReceipt, error) {
	if f.err != nil {
		return notify.SMSReceipt{}, f.err
	}
	f.calls++
	return notify.SMSReceipt{Provider: "test", ID: "stub", TestMode: true}, nil
}

func emailConfig(cooldownMinutes int) *storage.AlertConfig {
	return &storage.AlertConfig{
		TenantID:        "t1",
		Channel:         storage.ChannelEmail,
		Enabled:         true,
		Recipients:      []string{"ops@example.com"},
		CooldownMinutes: cooldownMinutes,
	}
}

func testDevice() *storage.Device {
	return &storage.Device{ID: "d1", TenantID: "t1", Name: "web-1", Host: "example.com"}
}

func testDispatcher(configs *fakeConfigs, mailer *fakeMailer, sms *fakeSMS) (*Dispatcher, *MemoryLedger) {
	ledger := NewMemoryLedger()
	d := NewDispatcher(configs, ledger, mailer, sms, slog.New(slog.DiscardHandler))
	return d, ledger
}

func TestSteadyStateSilence(t *testing.T) {
	mailer := &fakeMailer{}
	d, ledger := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{emailConfig(5)}}, mailer, &fakeSMS{})

	now := time.Now()
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusDown, storage.StatusDown, now)

	if mailer.calls != 0 {
		t.Fatal("same status must never notify")
	}
	if last, _ := ledger.LastAlertSent(context.Background(), "t1", "d1", storage.EventNotifyDown); last != nil {
		t.Fatal("same status must never write the ledger")
	}
}

func TestMaintenanceSuppressesAlerts(t *testing.T) {
	now := time.Now()
	start := now.Add(-time.Hour)

	cases := []struct {
		name string
		dev  *storage.Device
		grp  *storage.Group
	}{
		{"device window", &storage.Device{ID: "d1", TenantID: "t1", Host: "h", MaintStart: &start}, nil},
		{"group window", testDevice(), &storage.Group{ID: "g1", MaintStart: &start}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mailer := &fakeMailer{}
			d, ledger := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{emailConfig(0)}}, mailer, &fakeSMS{})

			d.HandleTransition(context.Background(), tc.dev, tc.grp, storage.StatusUp, storage.StatusDown, now)
			d.HandleTransition(context.Background(), tc.dev, tc.grp, storage.StatusDown, storage.StatusUp, now)

			if mailer.calls != 0 {
				t.Fatal("maintenance must silence all alerting")
			}
			for _, event := range []string{storage.EventNotifyDown, storage.EventNotifyUp} {
				if last, _ := ledger.LastAlertSent(context.Background(), "t1", "d1", event); last != nil {
					t.Fatalf("maintenance must prevent %s ledger writes", event)
				}
			}
		})
	}
}

func TestNoConfigIsNoop(t *testing.T) {
	mailer := &fakeMailer{}
	d, ledger := testDispatcher(&fakeConfigs{}, mailer, &fakeSMS{})

	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusDown, time.Now())

	if mailer.calls != 0 {
		t.Fatal("absent config means disabled")
	}
	if last, _ := ledger.LastAlertSent(context.Background(), "t1", "d1", storage.EventNotifyDown); last != nil {
		t.Fatal("no ledger write without a send")
	}
}

func TestDownAlertRecordsLedger(t *testing.T) {
	mailer := &fakeMailer{}
	d, ledger := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{emailConfig(5)}}, mailer, &fakeSMS{})

	now := time.Now()
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusDown, now)

	if mailer.calls != 1 {
		t.Fatalf("expected one delivery, got %d", mailer.calls)
	}
	last, _ := ledger.LastAlertSent(context.Background(), "t1", "d1", storage.EventNotifyDown)
	if last == nil || !last.Equal(now) {
		t.Fatalf("expected ledger row at %v, got %v", now, last)
	}
}

func TestCooldownGating(t *testing.T) {
	mailer := &fakeMailer{}
	d, ledger := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{emailConfig(10)}}, mailer, &fakeSMS{})

	sentAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger.RecordAlertSent(context.Background(), "t1", "d1", storage.EventNotifyDown, sentAt)

	// One minute before the cooldown lapses: blocked.
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusDown, sentAt.Add(9*time.Minute))
	if mailer.calls != 0 {
		t.Fatal("delivery inside the cooldown window must be blocked")
	}

	// One minute after: allowed.
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusDown, sentAt.Add(11*time.Minute))
	if mailer.calls != 1 {
		t.Fatalf("expected delivery after cooldown, got %d calls", mailer.calls)
	}
}

func TestDirectionalCooldownIndependence(t *testing.T) {
	now := time.Now()

	t.Run("down cooldown does not block recovery", func(t *testing.T) {
		mailer := &fakeMailer{}
		d, ledger := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{emailConfig(60)}}, mailer, &fakeSMS{})
		ledger.RecordAlertSent(context.Background(), "t1", "d1", storage.EventNotifyDown, now)

		d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusDown, storage.StatusUp, now)
		if mailer.calls != 1 {
			t.Fatal("up-transition must not be blocked by the down-alert cooldown")
		}
	})

	t.Run("recovery cooldown does not block down", func(t *testing.T) {
		mailer := &fakeMailer{}
		d, ledger := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{emailConfig(60)}}, mailer, &fakeSMS{})
		ledger.RecordAlertSent(context.Background(), "t1", "d1", storage.EventNotifyUp, now)

		d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusDown, now)
		if mailer.calls != 1 {
			t.Fatal("down-transition must not be blocked by the up-alert cooldown")
		}
	})
}

func TestDeliveryFailureLeavesNoLedgerEntry(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp: connection refused")}
	d, ledger := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{emailConfig(60)}}, mailer, &fakeSMS{})

	now := time.Now()
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusDown, now)
	if last, _ := ledger.LastAlertSent(context.Background(), "t1", "d1", storage.EventNotifyDown); last != nil {
		t.Fatal("failed delivery must not start a cooldown")
	}

	// The transport recovers: the next transition-worthy tick may retry
	// immediately despite the long cooldown.
	mailer.err = nil
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusDown, now.Add(time.Second))
	if mailer.calls != 1 {
		t.Fatal("expected an immediate retry after a failed delivery")
	}
}

func TestUnconfiguredTransportSkips(t *testing.T) {
	mailer := &fakeMailer{err: notify.ErrNotConfigured}
	d, ledger := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{emailConfig(5)}}, mailer, &fakeSMS{})

	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusDown, time.Now())
	if last, _ := ledger.LastAlertSent(context.Background(), "t1", "d1", storage.EventNotifyDown); last != nil {
		t.Fatal("an unconfigured transport is a skip, not a send")
	}
}

func TestHealthyTransitionsAreSilent(t *testing.T) {
	mailer := &fakeMailer{}
	d, _ := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{emailConfig(0)}}, mailer, &fakeSMS{})

	now := time.Now()
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusWarning, now)
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusWarning, storage.StatusUp, now)
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUnknown, storage.StatusUp, now)

	if mailer.calls != 0 {
		t.Fatal("transitions between healthy states must not alert")
	}
}

func TestSMSChannelDelivery(t *testing.T) {
	sms := &fakeSMS{}
	cfg := &storage.AlertConfig{
		TenantID:        "t1",
		Channel:         storage.ChannelSMS,
		Enabled:         true,
		Recipients:      []string{"+15550001111", "+15550002222"},
		CooldownMinutes: 5,
	}
	d, ledger := testDispatcher(&fakeConfigs{configs: []*storage.AlertConfig{cfg}}, &fakeMailer{}, sms)

	now := time.Now()
	d.HandleTransition(context.Background(), testDevice(), nil, storage.StatusUp, storage.StatusDown, now)

	if sms.calls != 2 {
		t.Fatalf("expected one SMS per recipient, got %d", sms.calls)
	}
	if last, _ := ledger.LastAlertSent(context.Background(), "t1", "d1", storage.EventNotifyDown); last == nil {
		t.Fatal("expected a ledger row after successful SMS delivery")
	}
}

func TestMemoryLedgerUpsert(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	if last, err := ledger.LastAlertSent(ctx, "t1", "d1", storage.EventNotifyDown); err != nil || last != nil {
		t.Fatalf("expected empty ledger, got %v / %v", last, err)
	}

	first := time.Now()
	second := first.Add(time.Minute)
	ledger.RecordAlertSent(ctx, "t1", "d1", storage.EventNotifyDown, first)
	ledger.RecordAlertSent(ctx, "t1", "d1", storage.EventNotifyDown, second)

	last, err := ledger.LastAlertSent(ctx, "t1", "d1", storage.EventNotifyDown)
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || !last.Equal(second) {
		t.Fatalf("expected the later write to win, got %v", last)
	}
}
