package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/events"
	"github.com/vreid/shiki-arena/internal/pkg/scorer"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const AssetsCounter = "assets"

var (
	ErrAlreadyRegistered = errors.New("asset already registered")
	ErrUnknownAsset      = errors.New("asset not registered")
)

type RegistryService struct {
	DatabaseService *common.DatabaseService
	Guard           *common.CallGuard
	Logger          *zap.SugaredLogger

	EventSink chan<- events.Event

	Admin string
	Now   func() time.Time
}

func NewRegistryService(i do.Injector) (*RegistryService, error) {
	result := &RegistryService{
		DatabaseService: do.MustInvoke[*common.DatabaseService](i),
		Guard:           do.MustInvoke[*common.CallGuard](i),
		Logger:          do.MustInvoke[*zap.SugaredLogger](i).Named("registry"),

		EventSink: do.MustInvokeNamed[chan<- events.Event](i, "event-sink"),

		Admin: do.MustInvokeNamed[string](i, "admin"),
		Now:   time.Now,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(func(e *echo.Echo) {
		apiGroup := e.Group("/api")

		registryGroup := apiGroup.Group("/registry")

		registryGroup.GET("/assets", result.GetAssets)
		registryGroup.GET("/assets/:id", result.GetAsset)
		registryGroup.POST("/assets", result.PostAsset)
		registryGroup.POST("/assets/bulk", result.PostAssets)
		registryGroup.POST("/assets/:id/active", result.PostActive)
	})

	return result, nil
}

func LoadAsset(tx *bbolt.Tx, id uint64) (*Asset, error) {
	assets, err := common.Bucket(tx, common.RegistryAssetsBucket)
	if err != nil {
		return nil, err
	}

	var asset Asset

	found, err := common.GetJSON(assets, common.Uint64Key(id), &asset)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %d: %w", id, err)
	}

	if !found {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAsset, id)
	}

	return &asset, nil
}

func StoreAsset(tx *bbolt.Tx, asset *Asset) error {
	assets, err := common.Bucket(tx, common.RegistryAssetsBucket)
	if err != nil {
		return err
	}

	return common.PutJSON(assets, common.Uint64Key(asset.ID), asset)
}

func (s *RegistryService) register(tx *bbolt.Tx, id uint64, batch *events.Batch) (bool, error) {
	_, err := LoadAsset(tx, id)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, ErrUnknownAsset) {
		return false, err
	}

	now := s.Now()

	err = StoreAsset(tx, &Asset{
		ID:           id,
		Rating:       scorer.DefaultRating,
		Active:       true,
		RegisteredAt: now,
	})
	if err != nil {
		return false, err
	}

	_, err = common.AddCounter(tx, AssetsCounter, 1)
	if err != nil {
		return false, err
	}

	batch.Add(events.AssetRegistered{
		AssetID:   id,
		Rating:    scorer.DefaultRating,
		Timestamp: now,
	})

	return true, nil
}

func (s *RegistryService) RegisterAsset(ctx context.Context, caller string, id uint64) (*Asset, error) {
	var result *Asset

	err := s.Guard.Run(ctx, func(ctx context.Context) error {
		err := common.Authorize(s.Admin, caller)
		if err != nil {
			return err
		}

		var batch events.Batch

		err = s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
			registered, err := s.register(tx, id, &batch)
			if err != nil {
				return err
			}

			if !registered {
				return fmt.Errorf("%w: %d", ErrAlreadyRegistered, id)
			}

			result, err = LoadAsset(tx, id)

			return err
		})
		if err != nil {
			return err
		}

		batch.Publish(ctx, s.EventSink)

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infof("registered asset %d", id)

	return result, nil
}

// RegisterMany registers every id not yet known and silently skips the rest.
func (s *RegistryService) RegisterMany(ctx context.Context, caller string, ids []uint64) (*RegisterManyResponse, error) {
	result := &RegisterManyResponse{
		Registered: []uint64{},
		Skipped:    []uint64{},
	}

	err := s.Guard.Run(ctx, func(ctx context.Context) error {
		err := common.Authorize(s.Admin, caller)
		if err != nil {
			return err
		}

		var batch events.Batch

		err = s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
			for _, id := range ids {
				registered, err := s.register(tx, id, &batch)
				if err != nil {
					return err
				}

				if registered {
					result.Registered = append(result.Registered, id)
				} else {
					result.Skipped = append(result.Skipped, id)
				}
			}

			return nil
		})
		if err != nil {
			return err
		}

		batch.Publish(ctx, s.EventSink)

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infof("registered %d assets, skipped %d", len(result.Registered), len(result.Skipped))

	return result, nil
}

// SetActive changes voteability only; rating and counters are kept.
func (s *RegistryService) SetActive(ctx context.Context, caller string, id uint64, active bool) (*Asset, error) {
	var result *Asset

	err := s.Guard.Run(ctx, func(ctx context.Context) error {
		err := common.Authorize(s.Admin, caller)
		if err != nil {
			return err
		}

		var batch events.Batch

		err = s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
			asset, err := LoadAsset(tx, id)
			if err != nil {
				return err
			}

			if asset.Active != active {
				asset.Active = active

				batch.Add(events.AssetActiveChanged{
					AssetID:   id,
					Active:    active,
					Timestamp: s.Now(),
				})
			}

			result = asset

			return StoreAsset(tx, asset)
		})
		if err != nil {
			return err
		}

		batch.Publish(ctx, s.EventSink)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *RegistryService) Asset(id uint64) (*Asset, error) {
	var result *Asset

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		asset, err := LoadAsset(tx, id)
		result = asset

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *RegistryService) Assets() ([]Asset, error) {
	result := []Asset{}

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		assets, err := common.Bucket(tx, common.RegistryAssetsBucket)
		if err != nil {
			return err
		}

		return assets.ForEach(func(k, _ []byte) error {
			var asset Asset

			_, err := common.GetJSON(assets, k, &asset)
			if err != nil {
				return err
			}

			result = append(result, asset)

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	return result, nil
}
