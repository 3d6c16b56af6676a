package simdev

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/ports"
)

// Env implements ports.Environment with settable fields.
type Env struct {
	Mode       string
	Standalone bool
	Ref        string
	UA         string
	Secure     bool
	Framed     bool
	Host       string
	Connected  bool
	EffType    string
	Downlink   float64
	RTT        int
}

// NewEnv returns an environment that looks like a secure standalone-capable
// browsing context on a healthy connection.
func NewEnv() *Env {
	return &Env{
		Mode:      "browser",
		UA:        "Mozilla/5.0 (Linux; Android 14) simdev/1.0",
		Secure:    true,
		Host:      "devicehub.local",
		Connected: true,
		EffType:   "4g",
		Downlink:  10,
		RTT:       50,
	}
}

func (e *Env) DisplayMode() string   { return e.Mode }
func (e *Env) AppleStandalone() bool { return e.Standalone }
func (e *Env) Referrer() string      { return e.Ref }
func (e *Env) UserAgent() string     { return e.UA }
func (e *Env) SecureContext() bool   { return e.Secure }
func (e *Env) Embedded() bool        { return e.Framed }
func (e *Env) Hostname() string      { return e.Host }
func (e *Env) Online() bool          { return e.Connected }

func (e *Env) Connection() (string, float64, int, bool) {
	if e.EffType == "" {
		return "", 0, 0, false
	}
	return e.EffType, e.Downlink, e.RTT, true
}

// Workers implements ports.WorkerHost. Registrations succeed and record
// update checks.
type Workers struct{}

func (w *Workers) Supported() bool { return true }

func (w *Workers) Register(ctx context.Context, script, scope string) (ports.WorkerRegistration, error) {
	slog.Debug("sim worker registered", "script", script, "scope", scope)
	return &Registration{scope: scope}, nil
}

// Registration is a simulated worker registration.
type Registration struct {
	scope   string
	updates atomic.Int64
	subSeq  atomic.Int64
}

func (r *Registration) Scope() string { return r.scope }

func (r *Registration) Update(ctx context.Context) error {
	r.updates.Add(1)
	return nil
}

// Updates reports how many update checks have run.
func (r *Registration) Updates() int64 { return r.updates.Load() }

func (r *Registration) SubscribePush(ctx context.Context, applicationServerKey []byte, userVisibleOnly bool) (*domain.PushSubscription, error) {
	n := r.subSeq.Add(1)
	return &domain.PushSubscription{
		Endpoint: fmt.Sprintf("https://push.devicehub.local/sub/%d", n),
		Keys:     map[string]string{"auth": "sim", "p256dh": "sim"},
	}, nil
}

func (r *Registration) RegisterSync(ctx context.Context, tag string) error {
	slog.Debug("sim background sync registered", "tag", tag)
	return nil
}

// Notifications implements ports.NotificationGateway and always grants.
type Notifications struct{}

func (n *Notifications) Supported() bool { return true }

func (n *Notifications) RequestPermission(ctx context.Context) (domain.NotificationPermission, error) {
	return domain.PermissionGranted, nil
}

// Storage implements ports.StorageManager with fixed figures.
type Storage struct {
	UsageBytes uint64
	QuotaBytes uint64
	persisted  atomic.Bool
}

func NewStorage() *Storage {
	return &Storage{UsageBytes: 64 << 20, QuotaBytes: 512 << 20}
}

func (s *Storage) Supported() bool { return true }

func (s *Storage) Persist(ctx context.Context) (bool, error) {
	s.persisted.Store(true)
	return true, nil
}

func (s *Storage) Estimate(ctx context.Context) (domain.StorageEstimate, error) {
	return domain.StorageEstimate{Usage: s.UsageBytes, Quota: s.QuotaBytes}, nil
}

// Share implements ports.ShareSheet by logging the payload.
type Share struct{}

func (s *Share) Supported() bool { return true }

func (s *Share) Share(ctx context.Context, payload domain.SharePayload) error {
	slog.Info("sim share", "title", payload.Title, "url", payload.URL)
	return nil
}

// Haptics implements ports.Haptics as a no-op.
type Haptics struct{}

func (h *Haptics) Supported() bool { return true }

func (h *Haptics) Vibrate(pattern []int) {
	slog.Debug("sim vibrate", "pattern", pattern)
}

// WakeLocker implements ports.WakeLocker.
type WakeLocker struct{}

func (w *WakeLocker) Supported() bool { return true }

func (w *WakeLocker) Acquire(ctx context.Context) (ports.WakeLock, error) {
	return wakeLock{}, nil
}

type wakeLock struct{}

func (wakeLock) Release() error { return nil }

// Prompt implements ports.InstallPrompt with a fixed outcome.
type Prompt struct {
	Outcome domain.InstallOutcome
}

func (p *Prompt) Platforms() []string { return []string{"web"} }

func (p *Prompt) Show(ctx context.Context) (domain.InstallOutcome, string, error) {
	outcome := p.Outcome
	if outcome == "" {
		outcome = domain.OutcomeAccepted
	}
	return outcome, "web", nil
}
