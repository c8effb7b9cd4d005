package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/repository"
	"github.com/gin-gonic/gin"
)

const deviceContextKey = "access_device"

type DeviceCache interface {
	GetDevice(ctx context.Context, token string) (*domain.AccessDevice, error)
	SetDevice(ctx context.Context, token string, device *domain.AccessDevice) error
}

// DeviceAuth resolves the X-Device-Token header to a registered AccessDevice
// before any scan endpoint runs. The ledger requires the device identity on
// every row, so unauthenticated scans stop here.
type DeviceAuth struct {
	devices repository.DeviceRepository
	cache   DeviceCache
	logger  *slog.Logger
}

func NewDeviceAuth(devices repository.DeviceRepository, cache DeviceCache, logger *slog.Logger) *DeviceAuth {
	return &DeviceAuth{devices: devices, cache: cache, logger: logger}
}

func (a *DeviceAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Device-Token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing device token"})
			return
		}

		device, err := a.resolve(c.Request.Context(), token)
		if errors.Is(err, repository.ErrDeviceNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown device token"})
			return
		}
		if err != nil {
			a.logger.Error("device auth failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "device authentication unavailable"})
			return
		}

		c.Set(deviceContextKey, device)
		c.Next()
	}
}

func (a *DeviceAuth) resolve(ctx context.Context, token string) (*domain.AccessDevice, error) {
	if a.cache != nil {
		device, err := a.cache.GetDevice(ctx, token)
		if err != nil {
			a.logger.Warn("device cache read failed", "error", err)
		} else if device != nil {
			return device, nil
		}
	}

	device, err := a.devices.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.SetDevice(ctx, token, device); err != nil {
			a.logger.Warn("device cache write failed", "error", err)
		}
	}
	return device, nil
}

func deviceFromContext(c *gin.Context) *domain.AccessDevice {
	if v, ok := c.Get(deviceContextKey); ok {
		if device, ok := v.(*domain.AccessDevice); ok {
			return device
		}
	}
	return nil
}
