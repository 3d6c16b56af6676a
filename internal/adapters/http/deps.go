package http

import (
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/florapix/devicehub/internal/adapters/postgres"
	"github.com/florapix/devicehub/internal/adapters/valkey"
	"github.com/florapix/devicehub/internal/core/ports"
	"github.com/florapix/devicehub/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Camera   *usecases.CameraService
	Location *usecases.LocationService
	Install  *usecases.InstallService
	Fixes    ports.FixRepository
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache

	// Worker registration established via POST /v1/install/worker; push
	// and background-sync endpoints need it.
	mu        sync.Mutex
	workerReg ports.WorkerRegistration
}

func (d *Dependencies) setWorker(reg ports.WorkerRegistration) {
	d.mu.Lock()
	d.workerReg = reg
	d.mu.Unlock()
}

func (d *Dependencies) worker() ports.WorkerRegistration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.workerReg
}
