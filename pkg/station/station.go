package station

import (
	"context"
	"sync"

	"liyu1981.xyz/plant-station-service/pkg/db"
	"liyu1981.xyz/plant-station-service/pkg/models"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . IReadingStore,IResolver,IMirror

// IReadingStore appends one validated reading for a plant and returns the
// stored row with its generated id and timestamp.
type IReadingStore interface {
	Append(ctx context.Context, plantID uint, reading *models.Reading) (*models.SensorData, error)
}

// IResolver walks device -> plant -> user. uid may be empty; when set the
// owner record is verified first.
type IResolver interface {
	ResolveOwner(ctx context.Context, deviceID string, uid string) (*models.OwnerChain, error)
}

type IPlant interface {
	RegisterPlant(ctx context.Context, uid string, deviceID string, plantName string) (*models.Plant, error)
	GetHistory(ctx context.Context, uid string, limit int) ([]models.PlantHistory, error)
}

// IBroadcaster is satisfied by live.Broadcaster.
type IBroadcaster interface {
	Broadcast(owner string, payload any)
}

// IMirror receives stored readings after persistence, best effort.
type IMirror interface {
	Write(ctx context.Context, stored *models.StoredReading) error
}

type Options struct {
	// RequireOwnerIdentity rejects ingests that carry no UID.
	RequireOwnerIdentity bool
	// HistoryLimit caps readings per plant in history projections.
	HistoryLimit int
}

const DefaultHistoryLimit = 100

type Station struct {
	Db          *db.DB
	Reading     IReadingStore
	Resolver    IResolver
	Plant       IPlant
	Broadcaster IBroadcaster
	Mirror      IMirror
	Options     Options

	inflight sync.WaitGroup
}

type ServiceOpts struct {
	Reading     IReadingStore
	Resolver    IResolver
	Plant       IPlant
	Broadcaster IBroadcaster
	Mirror      IMirror
}

// New wires a station over database with the gorm-backed services.
func New(database *db.DB, broadcaster IBroadcaster, opts Options) *Station {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	s := &Station{Db: database, Options: opts}
	return s.WithServices(ServiceOpts{
		Reading:     s.GetIReadingStore(),
		Resolver:    s.GetIResolver(),
		Plant:       s.GetIPlant(),
		Broadcaster: broadcaster,
	})
}

func (s *Station) WithServices(opts ServiceOpts) *Station {
	if opts.Reading != nil {
		s.Reading = opts.Reading
	}
	if opts.Resolver != nil {
		s.Resolver = opts.Resolver
	}
	if opts.Plant != nil {
		s.Plant = opts.Plant
	}
	if opts.Broadcaster != nil {
		s.Broadcaster = opts.Broadcaster
	}
	if opts.Mirror != nil {
		s.Mirror = opts.Mirror
	}
	return s
}

// Wait blocks until every post-persist dispatch started so far has finished.
func (s *Station) Wait() {
	s.inflight.Wait()
}
