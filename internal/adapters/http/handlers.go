package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/florapix/devicehub/internal/core/domain"
	"github.com/florapix/devicehub/internal/core/usecases"
	"github.com/florapix/devicehub/internal/pkg/metrics"
)

// CameraStatusHandler reports camera availability and the attached devices.
func CameraStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cameras := deps.Camera.AvailableCameras(c.UserContext())
		return c.JSON(fiber.Map{
			"available":    deps.Camera.Available(),
			"cameras":      cameras,
			"has_multiple": len(cameras) > 1,
		})
	}
}

type captureRequest struct {
	Facing      domain.FacingMode `json:"facing"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	AspectRatio float64           `json:"aspect_ratio"`
}

type captureResponse struct {
	Captured bool   `json:"captured"`
	DataURL  string `json:"data_url,omitempty"`
	Facing   string `json:"facing,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// CaptureHandler opens a stream, takes one photo, and releases the
// stream. Missing hardware or a dead stream degrade to captured=false
// rather than an error status.
func CaptureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req captureRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid capture options")
			}
		}
		opts := domain.CaptureOptions{
			Facing:      req.Facing,
			Width:       req.Width,
			Height:      req.Height,
			AspectRatio: req.AspectRatio,
		}.WithDefaults()

		ctx := c.UserContext()
		stream := deps.Camera.AcquireStream(ctx, opts)
		if stream == nil {
			metrics.CaptureFailures.WithLabelValues("unavailable").Inc()
			return c.JSON(captureResponse{Captured: false, Reason: "camera_unavailable"})
		}
		defer deps.Camera.ReleaseStream(stream)

		dataURL, err := deps.Camera.CapturePhoto(ctx, stream)
		if err != nil {
			reason := "encode_failed"
			if errors.Is(err, usecases.ErrNoFrame) {
				reason = "no_frame"
			}
			metrics.CaptureFailures.WithLabelValues(reason).Inc()
			return c.JSON(captureResponse{Captured: false, Reason: reason})
		}

		metrics.PhotosCaptured.WithLabelValues(string(stream.Facing())).Inc()
		return c.JSON(captureResponse{
			Captured: true,
			DataURL:  dataURL,
			Facing:   string(stream.Facing()),
		})
	}
}

type resizeRequest struct {
	DataURL  string  `json:"data_url"`
	MaxWidth int     `json:"max_width"`
	Quality  float64 `json:"quality"`
}

// ResizeHandler downscales a data-URL image. Images already within
// bounds, and images that fail to decode, come back unchanged.
func ResizeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req resizeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid resize request")
		}
		if req.DataURL == "" {
			return errBadRequest(c, "data_url is required")
		}
		resized := deps.Camera.ResizeImage(req.DataURL, req.MaxWidth, req.Quality)
		return c.JSON(fiber.Map{"data_url": resized})
	}
}

type dimensionsRequest struct {
	DataURL string `json:"data_url"`
}

// DimensionsHandler reports the pixel dimensions of a data-URL image.
func DimensionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dimensionsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		w, h, err := deps.Camera.ImageDimensions(req.DataURL)
		if err != nil {
			return errBadRequest(c, "could not read image dimensions")
		}
		return c.JSON(fiber.Map{"width": w, "height": h})
	}
}

// GalleryHandler opens the gallery picker. A cancelled pick is
// selected=false, not an error.
func GalleryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := deps.Camera.SelectFromGallery(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		if file == nil {
			return c.JSON(fiber.Map{"selected": false})
		}
		dataURL, err := deps.Camera.FileToDataURL(file)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{
			"selected": true,
			"name":     file.Name,
			"mime":     file.MIME,
			"data_url": dataURL,
		})
	}
}

// CurrentPositionHandler resolves one position fix. Sensor failures come
// back with the numeric error taxonomy preserved in the body.
func CurrentPositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var opts *domain.PositionOptions
		if c.Request().URI().QueryArgs().Len() > 0 {
			o := domain.PositionOptions{
				HighAccuracy: c.QueryBool("high_accuracy", true),
				Timeout:      time.Duration(c.QueryInt("timeout_ms", 0)) * time.Millisecond,
				MaximumAge:   time.Duration(c.QueryInt("maximum_age_ms", 0)) * time.Millisecond,
			}
			opts = &o
		}

		coords, err := deps.Location.CurrentPosition(c.UserContext(), opts)
		if err != nil {
			var locErr *domain.LocationError
			if errors.As(err, &locErr) {
				return errLocation(c, locErr)
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(coords)
	}
}

// PlaceNameHandler reverse-geocodes a coordinate pair to a human place
// name, falling back to a fixed label when the lookup yields nothing.
func PlaceNameHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
		lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
		if latErr != nil || lonErr != nil {
			return errBadRequest(c, "lat and lon are required")
		}
		coords := domain.Coordinates{Latitude: lat, Longitude: lon}
		if !deps.Location.ValidCoordinates(coords) {
			return errBadRequest(c, "coordinates out of range")
		}
		name := deps.Location.PlaceName(c.UserContext(), coords)
		return c.JSON(fiber.Map{
			"name":      name,
			"formatted": deps.Location.FormatCoordinates(coords),
		})
	}
}

// DistanceHandler computes the great-circle distance between two points.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fromLat, e1 := strconv.ParseFloat(c.Query("from_lat"), 64)
		fromLon, e2 := strconv.ParseFloat(c.Query("from_lon"), 64)
		toLat, e3 := strconv.ParseFloat(c.Query("to_lat"), 64)
		toLon, e4 := strconv.ParseFloat(c.Query("to_lon"), 64)
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return errBadRequest(c, "from_lat, from_lon, to_lat and to_lon are required")
		}
		from := domain.Coordinates{Latitude: fromLat, Longitude: fromLon}
		to := domain.Coordinates{Latitude: toLat, Longitude: toLon}
		if !deps.Location.ValidCoordinates(from) || !deps.Location.ValidCoordinates(to) {
			return errBadRequest(c, "coordinates out of range")
		}
		return c.JSON(fiber.Map{"kilometers": deps.Location.Distance(from, to)})
	}
}

// SavedLocationGetHandler returns the saved user location.
func SavedLocationGetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		coords := deps.Location.SavedLocation()
		if coords == nil {
			return errNotFound(c, "no saved location")
		}
		return c.JSON(coords)
	}
}

// SavedLocationPutHandler stores the user location.
func SavedLocationPutHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var coords domain.Coordinates
		if err := c.BodyParser(&coords); err != nil {
			return errBadRequest(c, "invalid coordinates")
		}
		if err := deps.Location.SaveLocation(coords); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(204).Send(nil)
	}
}

// SavedLocationDeleteHandler clears the saved user location.
func SavedLocationDeleteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Location.ClearSavedLocation(); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(204).Send(nil)
	}
}

// DeviceFixesHandler pages through the fix history for a device.
func DeviceFixesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Fixes == nil {
			return errInternal(c, "fix history not available")
		}
		deviceID := c.Params("id")
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		fixes, total, err := deps.Fixes.List(c.UserContext(), deviceID, offset, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: fixes, Pagination: pg})
	}
}

// LatestFixesHandler returns the most recent fixes for a device.
func LatestFixesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Fixes == nil {
			return errInternal(c, "fix history not available")
		}
		deviceID := c.Params("id")
		limit := c.QueryInt("limit", 1)
		if limit <= 0 || limit > 100 {
			limit = 1
		}
		fixes, err := deps.Fixes.Latest(c.UserContext(), deviceID, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fixes)
	}
}

// InstallStatusHandler reports the app install and platform probes.
func InstallStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"can_install": deps.Install.CanInstall(),
			"standalone":  deps.Install.IsStandalone(),
			"ios":         deps.Install.IsIOS(),
			"android":     deps.Install.IsAndroid(),
			"prompt_seen": deps.Install.PromptSeen(),
		})
	}
}

// InstallPromptHandler shows the deferred install prompt if one is held.
func InstallPromptHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accepted := deps.Install.ShowInstallPrompt(c.UserContext())
		deps.Install.MarkPromptSeen()
		outcome := "dismissed"
		if accepted {
			outcome = "accepted"
		}
		metrics.InstallPrompts.WithLabelValues(outcome).Inc()
		return c.JSON(fiber.Map{"accepted": accepted})
	}
}

// WorkerRegisterHandler registers the background worker. Guarded
// environments (nested frames, preview hosts, insecure contexts) come
// back as registered=false.
func WorkerRegisterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reg := deps.Install.RegisterWorker(c.UserContext())
		if reg == nil {
			return c.JSON(fiber.Map{"registered": false})
		}
		deps.setWorker(reg)
		return c.JSON(fiber.Map{"registered": true, "scope": reg.Scope()})
	}
}

type pushSubscribeRequest struct {
	VAPIDKey string `json:"vapid_key"`
}

// PushSubscribeHandler negotiates a push subscription against the
// registered worker.
func PushSubscribeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pushSubscribeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.VAPIDKey == "" {
			return errBadRequest(c, "vapid_key is required")
		}
		reg := deps.worker()
		if reg == nil {
			return errBadRequest(c, "no worker registration, register one first")
		}
		sub := deps.Install.SubscribeToPush(c.UserContext(), reg, req.VAPIDKey)
		if sub == nil {
			return c.JSON(fiber.Map{"subscribed": false})
		}
		return c.JSON(fiber.Map{"subscribed": true, "subscription": sub})
	}
}

// NotificationPermissionHandler asks the user for notification permission.
func NotificationPermissionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		perm := deps.Install.RequestNotificationPermission(c.UserContext())
		return c.JSON(fiber.Map{"permission": perm})
	}
}

// NetworkStatusHandler reports connectivity and quality hints.
func NetworkStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Install.NetworkStatus())
	}
}

// StorageHandler reports the persistent storage estimate.
func StorageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		est := deps.Install.StorageQuota(c.UserContext())
		if est == nil {
			return c.JSON(fiber.Map{"supported": false})
		}
		return c.JSON(fiber.Map{"supported": true, "estimate": est})
	}
}

// PersistStorageHandler requests persistent storage.
func PersistStorageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"persisted": deps.Install.RequestPersistentStorage(c.UserContext()),
		})
	}
}

// ShareHandler hands content to the native share sheet. A user aborting
// the sheet is shared=false, not an error.
func ShareHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload domain.SharePayload
		if err := c.BodyParser(&payload); err != nil {
			return errBadRequest(c, "invalid share payload")
		}
		return c.JSON(fiber.Map{
			"shared": deps.Install.ShareContent(c.UserContext(), payload),
		})
	}
}

type vibrateRequest struct {
	Pattern []int `json:"pattern"`
}

// VibrateHandler triggers device vibration.
func VibrateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req vibrateRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Pattern) == 0 {
			req.Pattern = []int{200}
		}
		return c.JSON(fiber.Map{"vibrated": deps.Install.Vibrate(req.Pattern)})
	}
}

type syncRequest struct {
	Tag string `json:"tag"`
}

// BackgroundSyncHandler registers a background sync tag on the worker.
func BackgroundSyncHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req syncRequest
		if err := c.BodyParser(&req); err != nil || req.Tag == "" {
			return errBadRequest(c, "tag is required")
		}
		reg := deps.worker()
		if reg == nil {
			return errBadRequest(c, "no worker registration, register one first")
		}
		deps.Install.RegisterBackgroundSync(c.UserContext(), reg, req.Tag)
		return c.Status(204).Send(nil)
	}
}
