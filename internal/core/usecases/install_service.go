package usecases

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/ports"
)

// InstallPlatform bundles the capability ports the installability layer
// sits on. Any field may be nil, meaning the capability is absent.
type InstallPlatform struct {
	Env      ports.Environment
	Workers  ports.WorkerHost
	Notifs   ports.NotificationGateway
	Storage  ports.StorageManager
	Share    ports.ShareSheet
	Haptics  ports.Haptics
	WakeLock ports.WakeLocker
}

// WorkerConfig describes the background worker registration.
type WorkerConfig struct {
	Script         string
	Scope          string
	PreviewHosts   []string
	UpdateInterval time.Duration // 0 means hourly
}

// InstallService owns the "add to home screen" lifecycle and the
// service-worker-gated capabilities. It replaces the platform's
// module-global deferred prompt with an injectable controller: construct
// one at composition time and hand it to whoever needs it.
type InstallService struct {
	platform InstallPlatform
	worker   WorkerConfig
	flags    ports.LocationStore

	// Update loops started by RegisterWorker outlive the request that
	// triggered them; they run on this context until Close.
	loopCtx  context.Context
	stopLoop context.CancelFunc

	mu     sync.Mutex
	prompt ports.InstallPrompt // nil = NoSignal
}

// NewInstallService creates a new InstallService. flags may be nil when
// the "prompt seen" marker is not wanted.
func NewInstallService(platform InstallPlatform, worker WorkerConfig, flags ports.LocationStore) *InstallService {
	if worker.UpdateInterval <= 0 {
		worker.UpdateInterval = time.Hour
	}
	loopCtx, stopLoop := context.WithCancel(context.Background())
	return &InstallService{
		platform: platform,
		worker:   worker,
		flags:    flags,
		loopCtx:  loopCtx,
		stopLoop: stopLoop,
	}
}

// Close stops the worker update loops. The service remains usable for
// everything else afterwards.
func (s *InstallService) Close() {
	s.stopLoop()
}

// HandleInstallAvailable captures the platform's "available for install"
// signal, replacing any previous one.
func (s *InstallService) HandleInstallAvailable(prompt ports.InstallPrompt) {
	s.mu.Lock()
	s.prompt = prompt
	s.mu.Unlock()
	slog.Debug("install signal captured", "platforms", prompt.Platforms())
}

// HandleAppInstalled clears the deferred signal unconditionally.
func (s *InstallService) HandleAppInstalled() {
	s.mu.Lock()
	s.prompt = nil
	s.mu.Unlock()
	slog.Info("app was installed")
}

// CanInstall reports whether an install signal is currently held. It does
// not mutate state.
func (s *InstallService) CanInstall() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt != nil
}

// ShowInstallPrompt consumes the deferred signal, shows the native
// affordance, and reports whether the user accepted. With no signal held
// it returns false. Concurrent callers race for the single signal; the
// first to take it wins.
func (s *InstallService) ShowInstallPrompt(ctx context.Context) bool {
	s.mu.Lock()
	prompt := s.prompt
	s.prompt = nil
	s.mu.Unlock()

	if prompt == nil {
		return false
	}

	outcome, platform, err := prompt.Show(ctx)
	if err != nil {
		slog.Warn("install prompt failed", "error", err)
		return false
	}
	slog.Info("install prompt answered", "outcome", outcome, "platform", platform)
	return outcome == domain.OutcomeAccepted
}

// MarkPromptSeen records that the install prompt was offered to the user.
func (s *InstallService) MarkPromptSeen() {
	if s.flags == nil {
		return
	}
	if err := s.flags.SetInstallPromptSeen(true); err != nil {
		slog.Warn("persist prompt-seen flag", "error", err)
	}
}

// PromptSeen reports whether the install prompt was already offered.
func (s *InstallService) PromptSeen() bool {
	return s.flags != nil && s.flags.InstallPromptSeen()
}

// RegisterWorker registers the background worker at the configured scope
// and starts an update check on the configured interval, running until
// Close. ctx bounds the registration call only, so a request-scoped
// context does not kill the loop when the request ends.
// Registration is skipped (nil, logged, no error) inside nested
// frames, on preview hosts, and in non-secure contexts; registration
// failures are likewise swallowed.
func (s *InstallService) RegisterWorker(ctx context.Context) ports.WorkerRegistration {
	host := s.platform.Workers
	if host == nil || !host.Supported() {
		return nil
	}

	if env := s.platform.Env; env != nil {
		if env.Embedded() || s.previewHost(env.Hostname()) {
			slog.Info("worker registration skipped in preview environment",
				"hostname", env.Hostname())
			return nil
		}
		if !env.SecureContext() {
			slog.Info("worker registration requires a secure context")
			return nil
		}
	}

	reg, err := host.Register(ctx, s.worker.Script, s.worker.Scope)
	if err != nil {
		slog.Info("worker registration skipped", "error", err)
		return nil
	}
	slog.Info("worker registered", "scope", reg.Scope())

	go s.updateLoop(reg)
	return reg
}

func (s *InstallService) previewHost(hostname string) bool {
	for _, h := range s.worker.PreviewHosts {
		if strings.Contains(hostname, h) {
			return true
		}
	}
	return false
}

func (s *InstallService) updateLoop(reg ports.WorkerRegistration) {
	ticker := time.NewTicker(s.worker.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.loopCtx.Done():
			return
		case <-ticker.C:
			if err := reg.Update(s.loopCtx); err != nil {
				slog.Debug("worker update check failed", "error", err)
			}
		}
	}
}

// RequestNotificationPermission delegates to the platform permission
// dialog, returning "denied" when the capability is absent.
func (s *InstallService) RequestNotificationPermission(ctx context.Context) domain.NotificationPermission {
	gw := s.platform.Notifs
	if gw == nil || !gw.Supported() {
		return domain.PermissionDenied
	}
	perm, err := gw.RequestPermission(ctx)
	if err != nil {
		slog.Warn("notification permission request failed", "error", err)
		return domain.PermissionDenied
	}
	return perm
}

// SubscribeToPush converts the base64url VAPID key and subscribes the
// worker registration to push with userVisibleOnly required. Failures
// degrade to nil, logged.
func (s *InstallService) SubscribeToPush(ctx context.Context, reg ports.WorkerRegistration, vapidPublicKey string) *domain.PushSubscription {
	if reg == nil {
		return nil
	}
	key, err := DecodeVAPIDKey(vapidPublicKey)
	if err != nil {
		slog.Error("failed to subscribe to push notifications", "error", err)
		return nil
	}
	sub, err := reg.SubscribePush(ctx, key, true)
	if err != nil {
		slog.Error("failed to subscribe to push notifications", "error", err)
		return nil
	}
	return sub
}

// DecodeVAPIDKey converts a base64url-encoded VAPID public key into its
// raw bytes, applying standard padding and character substitution.
func DecodeVAPIDKey(key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("empty VAPID key")
	}
	padded := key + strings.Repeat("=", (4-len(key)%4)%4)
	std := strings.NewReplacer("-", "+", "_", "/").Replace(padded)
	raw, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return nil, fmt.Errorf("decode VAPID key: %w", err)
	}
	return raw, nil
}

// IsStandalone reports whether the app runs installed rather than in a
// browser tab: standalone display mode, the iOS flag, or an android-app
// referrer all count.
func (s *InstallService) IsStandalone() bool {
	env := s.platform.Env
	if env == nil {
		return false
	}
	return env.DisplayMode() == "standalone" ||
		env.AppleStandalone() ||
		strings.Contains(env.Referrer(), "android-app://")
}

// IsIOS probes the user agent for an Apple mobile device.
func (s *InstallService) IsIOS() bool {
	env := s.platform.Env
	if env == nil {
		return false
	}
	ua := env.UserAgent()
	return strings.Contains(ua, "iPad") ||
		strings.Contains(ua, "iPhone") ||
		strings.Contains(ua, "iPod")
}

// IsAndroid probes the user agent for Android.
func (s *InstallService) IsAndroid() bool {
	env := s.platform.Env
	return env != nil && strings.Contains(env.UserAgent(), "Android")
}

// RequestPersistentStorage asks the platform to pin local storage.
func (s *InstallService) RequestPersistentStorage(ctx context.Context) bool {
	mgr := s.platform.Storage
	if mgr == nil || !mgr.Supported() {
		return false
	}
	persisted, err := mgr.Persist(ctx)
	if err != nil {
		slog.Warn("persistent storage request failed", "error", err)
		return false
	}
	slog.Info("persistent storage request", "granted", persisted)
	return persisted
}

// StorageQuota returns a usage snapshot, or nil when the capability is
// missing.
func (s *InstallService) StorageQuota(ctx context.Context) *domain.StorageEstimate {
	mgr := s.platform.Storage
	if mgr == nil || !mgr.Supported() {
		return nil
	}
	est, err := mgr.Estimate(ctx)
	if err != nil {
		slog.Warn("storage estimate failed", "error", err)
		return nil
	}
	if est.Quota > 0 {
		est.PercentUsed = float64(est.Usage) / float64(est.Quota) * 100
	}
	return &est
}

// RegisterBackgroundSync registers a sync tag, best-effort.
func (s *InstallService) RegisterBackgroundSync(ctx context.Context, reg ports.WorkerRegistration, tag string) {
	if reg == nil {
		return
	}
	if err := reg.RegisterSync(ctx, tag); err != nil {
		slog.Error("background sync registration failed", "tag", tag, "error", err)
		return
	}
	slog.Info("background sync registered", "tag", tag)
}

// CanShare reports whether the native share sheet exists.
func (s *InstallService) CanShare() bool {
	return s.platform.Share != nil && s.platform.Share.Supported()
}

// ShareContent hands a payload to the native share sheet. A user abort is
// a non-error "did not share"; any other failure is logged. The result is
// always a plain boolean.
func (s *InstallService) ShareContent(ctx context.Context, payload domain.SharePayload) bool {
	if !s.CanShare() {
		return false
	}
	if err := s.platform.Share.Share(ctx, payload); err != nil {
		if !errors.Is(err, ports.ErrShareAborted) {
			slog.Error("share failed", "error", err)
		}
		return false
	}
	return true
}

// Vibrate triggers the given vibration pattern, reporting support.
func (s *InstallService) Vibrate(pattern []int) bool {
	h := s.platform.Haptics
	if h == nil || !h.Supported() {
		return false
	}
	h.Vibrate(pattern)
	return true
}

// AcquireWakeLock keeps the screen on; nil when unsupported or refused.
func (s *InstallService) AcquireWakeLock(ctx context.Context) ports.WakeLock {
	locker := s.platform.WakeLock
	if locker == nil || !locker.Supported() {
		return nil
	}
	lock, err := locker.Acquire(ctx)
	if err != nil {
		slog.Error("wake lock request failed", "error", err)
		return nil
	}
	slog.Info("wake lock acquired")
	return lock
}

// NetworkStatus snapshots connectivity plus best-effort quality hints.
func (s *InstallService) NetworkStatus() domain.NetworkStatus {
	env := s.platform.Env
	if env == nil {
		return domain.NetworkStatus{}
	}
	status := domain.NetworkStatus{Online: env.Online()}
	if et, down, rtt, ok := env.Connection(); ok {
		status.EffectiveType = et
		status.DownlinkMbps = down
		status.RTTMillis = rtt
	}
	return status
}
