package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/florapix/devicehub/internal/adapters/localstore"
	"github.com/florapix/devicehub/internal/adapters/platform/simdev"
	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/usecases"
)

type stubGeocoder struct {
	name string
	err  error
}

func (g *stubGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	return g.name, g.err
}

type memCache struct {
	data map[string][]byte
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, context.Canceled // any error reads as a miss
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

type stubFixes struct {
	fixes []domain.PositionFix
}

func (r *stubFixes) Insert(ctx context.Context, fix *domain.PositionFix) error {
	r.fixes = append(r.fixes, *fix)
	return nil
}

func (r *stubFixes) Latest(ctx context.Context, deviceID string, limit int) ([]domain.PositionFix, error) {
	if limit > len(r.fixes) {
		limit = len(r.fixes)
	}
	return r.fixes[:limit], nil
}

func (r *stubFixes) List(ctx context.Context, deviceID string, offset, limit int) ([]domain.PositionFix, int, error) {
	total := len(r.fixes)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return r.fixes[offset:end], total, nil
}

func newTestApp(t *testing.T) (*fiber.App, *Dependencies) {
	t.Helper()

	store, err := localstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("localstore: %v", err)
	}

	env := simdev.NewEnv()
	install := usecases.NewInstallService(usecases.InstallPlatform{
		Env:      env,
		Workers:  &simdev.Workers{},
		Notifs:   &simdev.Notifications{},
		Storage:  simdev.NewStorage(),
		Share:    &simdev.Share{},
		Haptics:  &simdev.Haptics{},
		WakeLock: &simdev.WakeLocker{},
	}, usecases.WorkerConfig{
		Script:       "/service-worker.js",
		Scope:        "/",
		PreviewHosts: []string{"figma.site", "localhost"},
	}, store)
	t.Cleanup(install.Close)

	deps := &Dependencies{
		Camera: usecases.NewCameraService(simdev.NewCamera(0), &simdev.Gallery{Dir: t.TempDir()}),
		Location: usecases.NewLocationService(
			simdev.NewSensor(43.263, -2.935, time.Second),
			&stubGeocoder{name: "Bilbao"},
			store,
			&memCache{},
			3600,
		),
		Install: install,
		Fixes:   &stubFixes{fixes: []domain.PositionFix{{DeviceID: "dev-1", Coordinates: domain.Coordinates{Latitude: 1, Longitude: 2}}}},
	}

	app := fiber.New()
	SetupRoutes(app, deps)
	return app, deps
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var m map[string]interface{}
	if len(data) > 0 && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("decode body %q: %v", data, err)
		}
	}
	return resp.StatusCode, m
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/v1/health", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "healthy" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestCameraStatus(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/v1/camera", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["available"] != true {
		t.Error("expected camera available")
	}
	if body["has_multiple"] != true {
		t.Error("expected two simulated cameras")
	}
}

func TestCapture(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "POST", "/v1/camera/capture",
		map[string]interface{}{"width": 64, "height": 48})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["captured"] != true {
		t.Fatalf("expected a capture, got %v", body)
	}
	dataURL, _ := body["data_url"].(string)
	if !strings.HasPrefix(dataURL, "data:image/jpeg;base64,") {
		t.Errorf("expected a JPEG data URL, got %.40s", dataURL)
	}
	if body["facing"] != "environment" {
		t.Errorf("expected default rear facing, got %v", body["facing"])
	}
}

func TestResize_RequiresDataURL(t *testing.T) {
	app, _ := newTestApp(t)
	status, _ := doJSON(t, app, "POST", "/v1/camera/resize",
		map[string]interface{}{"max_width": 100})
	if status != 400 {
		t.Errorf("expected 400 for missing data_url, got %d", status)
	}
}

func TestGallery_EmptyDirIsCancel(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "POST", "/v1/camera/gallery", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["selected"] != false {
		t.Errorf("expected selected=false for empty gallery, got %v", body)
	}
}

func TestCurrentPosition(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/v1/location/current", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	lat, _ := body["latitude"].(float64)
	if lat < 43.2 || lat > 43.3 {
		t.Errorf("unexpected latitude: %v", body["latitude"])
	}
}

func TestCurrentPosition_Timeout(t *testing.T) {
	app, deps := newTestApp(t)
	// Swap in a sensor that cannot answer within the requested timeout.
	slow := simdev.NewSensor(0, 0, time.Second)
	slow.SetLatency(200 * time.Millisecond)
	deps.Location = usecases.NewLocationService(slow, &stubGeocoder{}, nil, nil, 0)

	status, body := doJSON(t, app, "GET", "/v1/location/current?timeout_ms=1", nil)
	if status != 504 {
		t.Fatalf("expected 504, got %d", status)
	}
	errObj, _ := body["error"].(map[string]interface{})
	if errObj == nil || errObj["code"] != float64(domain.LocErrTimeout) {
		t.Errorf("expected timeout code in body, got %v", body)
	}
}

func TestPlaceName(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/v1/location/place?lat=43.263&lon=-2.935", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["name"] != "Bilbao" {
		t.Errorf("expected Bilbao, got %v", body["name"])
	}
}

func TestPlaceName_MissingParams(t *testing.T) {
	app, _ := newTestApp(t)
	status, _ := doJSON(t, app, "GET", "/v1/location/place", nil)
	if status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestDistance(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET",
		"/v1/location/distance?from_lat=48.8566&from_lon=2.3522&to_lat=51.5074&to_lon=-0.1278", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	km, _ := body["kilometers"].(float64)
	if km < 342 || km > 346 {
		t.Errorf("Paris-London distance off: %v km", km)
	}
}

func TestSavedLocation_Lifecycle(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := doJSON(t, app, "GET", "/v1/location/saved", nil)
	if status != 404 {
		t.Fatalf("expected 404 before save, got %d", status)
	}

	status, _ = doJSON(t, app, "PUT", "/v1/location/saved",
		domain.Coordinates{Latitude: 43.263, Longitude: -2.935})
	if status != 204 {
		t.Fatalf("expected 204, got %d", status)
	}

	status, body := doJSON(t, app, "GET", "/v1/location/saved", nil)
	if status != 200 {
		t.Fatalf("expected 200 after save, got %d", status)
	}
	if body["latitude"] != 43.263 {
		t.Errorf("round trip mismatch: %v", body)
	}

	status, _ = doJSON(t, app, "DELETE", "/v1/location/saved", nil)
	if status != 204 {
		t.Fatalf("expected 204, got %d", status)
	}
	status, _ = doJSON(t, app, "GET", "/v1/location/saved", nil)
	if status != 404 {
		t.Errorf("expected 404 after delete, got %d", status)
	}
}

func TestSavedLocation_RejectsOutOfRange(t *testing.T) {
	app, _ := newTestApp(t)
	status, _ := doJSON(t, app, "PUT", "/v1/location/saved",
		domain.Coordinates{Latitude: 91, Longitude: 0})
	if status != 400 {
		t.Errorf("expected 400 for out-of-range latitude, got %d", status)
	}
}

func TestDeviceFixes_Paginated(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/v1/devices/dev-1/fixes?limit=10", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	pg, _ := body["pagination"].(map[string]interface{})
	if pg == nil || pg["total"] != float64(1) {
		t.Errorf("unexpected pagination: %v", body)
	}
}

func TestInstallStatus(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/v1/install", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["can_install"] != false {
		t.Error("no install signal captured yet, can_install must be false")
	}
	if body["standalone"] != false {
		t.Error("browser display mode must not read as standalone")
	}
}

func TestInstallPrompt_Flow(t *testing.T) {
	app, deps := newTestApp(t)
	deps.Install.HandleInstallAvailable(&simdev.Prompt{Outcome: domain.OutcomeAccepted})

	status, body := doJSON(t, app, "POST", "/v1/install/prompt", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["accepted"] != true {
		t.Errorf("expected acceptance, got %v", body)
	}

	// The signal is consumed; a second prompt has nothing to show.
	status, body = doJSON(t, app, "POST", "/v1/install/prompt", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["accepted"] != false {
		t.Errorf("expected no second prompt, got %v", body)
	}
}

func TestWorkerAndPush(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, "POST", "/v1/install/worker", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["registered"] != true {
		t.Fatalf("expected registration, got %v", body)
	}
	if body["scope"] != "/" {
		t.Errorf("unexpected scope: %v", body["scope"])
	}

	status, body = doJSON(t, app, "POST", "/v1/push/subscribe",
		map[string]string{"vapid_key": "BNcRdreALRFXTkOOUHK1EtK2wtaz5Ry4YfYCA_0QTpQtUbVlUls0VJXg7A8u-Ts1XbjhazAkj7I99e8QcYP7DkM"})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["subscribed"] != true {
		t.Errorf("expected subscription, got %v", body)
	}
}

func TestWorkerRegister_UpdateChecksContinue(t *testing.T) {
	app, deps := newTestApp(t)

	// Fast update cadence so the loop ticks within the test window.
	install := usecases.NewInstallService(usecases.InstallPlatform{
		Env:     simdev.NewEnv(),
		Workers: &simdev.Workers{},
	}, usecases.WorkerConfig{
		Script:         "/service-worker.js",
		Scope:          "/",
		UpdateInterval: 10 * time.Millisecond,
	}, nil)
	t.Cleanup(install.Close)
	deps.Install = install

	status, body := doJSON(t, app, "POST", "/v1/install/worker", nil)
	if status != 200 || body["registered"] != true {
		t.Fatalf("register: %d %v", status, body)
	}

	reg, ok := deps.worker().(*simdev.Registration)
	if !ok {
		t.Fatalf("unexpected registration type %T", deps.worker())
	}

	// The registration request has long returned; the update loop must
	// keep running on the service's own lifetime.
	time.Sleep(80 * time.Millisecond)
	if reg.Updates() == 0 {
		t.Error("expected update checks after the registration request returned")
	}
}

func TestPush_WithoutWorker(t *testing.T) {
	app, _ := newTestApp(t)
	status, _ := doJSON(t, app, "POST", "/v1/push/subscribe",
		map[string]string{"vapid_key": "abc"})
	if status != 400 {
		t.Errorf("expected 400 without a worker registration, got %d", status)
	}
}

func TestNetworkStatus(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/v1/platform/network", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["online"] != true {
		t.Errorf("expected online, got %v", body)
	}
	if body["effective_type"] != "4g" {
		t.Errorf("expected 4g hint, got %v", body)
	}
}

func TestStorage(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/v1/platform/storage", nil)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["supported"] != true {
		t.Fatalf("expected storage support, got %v", body)
	}
	est, _ := body["estimate"].(map[string]interface{})
	if est == nil || est["percent_used"] != 12.5 {
		t.Errorf("expected 12.5 percent used, got %v", est)
	}
}

func TestShare(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "POST", "/v1/platform/share",
		domain.SharePayload{Title: "Look at this plant", URL: "https://florapix.example/p/1"})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["shared"] != true {
		t.Errorf("expected shared=true, got %v", body)
	}
}

func TestGraphQL_Distance(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "POST", "/graphql", map[string]interface{}{
		"query": `{ distance(from_lat: 48.8566, from_lon: 2.3522, to_lat: 51.5074, to_lon: -0.1278) }`,
	})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	data, _ := body["data"].(map[string]interface{})
	km, _ := data["distance"].(float64)
	if km < 342 || km > 346 {
		t.Errorf("GraphQL distance off: %v", body)
	}
}

func TestGraphQL_InstallStatus(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "POST", "/graphql", map[string]interface{}{
		"query": `{ installStatus { can_install standalone } }`,
	})
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	data, _ := body["data"].(map[string]interface{})
	is, _ := data["installStatus"].(map[string]interface{})
	if is == nil || is["can_install"] != false {
		t.Errorf("unexpected installStatus: %v", body)
	}
}
