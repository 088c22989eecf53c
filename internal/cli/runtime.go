package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/reservation"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// runtime holds the stores selected by STORE_DRIVER.  db and dialect are
// empty for the memory driver.
type runtime struct {
	cfg     config.Config
	log     *logrus.Logger
	store   repository.ReservationStore
	users   repository.UserStore
	tokens  repository.TokenStore
	db      *sql.DB
	dialect string
	close   func()
}

func loadConfig() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	return cfg, utils.NewLogger(cfg.LogLevel, cfg.LogFormat), nil
}

func openRuntime(ctx context.Context, cfg config.Config, log *logrus.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: log, close: func() {}}
	switch cfg.StoreDriver {
	case config.DriverMemory:
		rt.store = repository.NewMemoryStore()
		rt.users = repository.NewMemoryUserStore()
		rt.tokens = repository.NewMemoryTokenStore()
	case config.DriverMySQL:
		db, err := database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		rt.store = repository.NewMySQLStore(db)
		rt.users = repository.NewUserRepo(db)
		rt.tokens = repository.NewTokenRepo(db)
		rt.db, rt.dialect = db, database.DialectMySQL
		rt.close = func() { _ = db.Close() }
	case config.DriverPostgres:
		pg, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.store = repository.NewPostgresStore(pg.Pool)
		rt.users = repository.NewPostgresUserRepo(pg.DB)
		rt.tokens = repository.NewPostgresTokenRepo(pg.DB)
		rt.db, rt.dialect = pg.DB, database.DialectPostgres
		rt.close = pg.Close
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	log.WithField("driver", cfg.StoreDriver).Info("store opened")
	return rt, nil
}

// migrate applies pending migrations.  The memory driver has none.
func (rt *runtime) migrate(ctx context.Context) error {
	if rt.db == nil {
		return nil
	}
	applied, err := database.Migrate(ctx, rt.db, rt.dialect)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rt.log.WithFields(logrus.Fields{"dialect": rt.dialect, "applied": applied}).Info("migrations done")
	return nil
}

// addStaff hashes password and stores a new active account.
func (rt *runtime) addStaff(ctx context.Context, username, email, password, role string) (model.StaffUser, error) {
	if role != model.RoleStaff && role != model.RoleAdmin {
		return model.StaffUser{}, fmt.Errorf("role must be %s or %s", model.RoleStaff, model.RoleAdmin)
	}
	hash, err := utils.HashPassword(password, rt.cfg.BcryptCost)
	if err != nil {
		return model.StaffUser{}, err
	}
	u := model.StaffUser{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := rt.users.Create(ctx, u); err != nil {
		return model.StaffUser{}, err
	}
	return u, nil
}

// bootstrapStaff creates the STAFF_BOOTSTRAP_* account unless it exists.
func (rt *runtime) bootstrapStaff(ctx context.Context) error {
	b := rt.cfg.Bootstrap
	if b.Username == "" {
		return nil
	}
	if _, err := rt.users.GetByUsername(ctx, b.Username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	email := b.Email
	if email == "" {
		email = b.Username + "@localhost"
	}
	u, err := rt.addStaff(ctx, b.Username, email, b.Password, b.Role)
	if err != nil {
		return fmt.Errorf("bootstrap staff: %w", err)
	}
	rt.log.WithFields(logrus.Fields{"user": u.ID, "username": u.Username, "role": u.Role}).Info("bootstrap staff created")
	return nil
}

// newService builds the engine from configuration.  rdb may be nil; a
// redis locker then falls back to the in-process one.
func (rt *runtime) newService(rdb *redis.Client) (*reservation.Service, error) {
	cfg := rt.cfg
	hours, err := reservation.NewBusinessHours(cfg.Business.OpenHour, cfg.Business.OpenMinute,
		cfg.Business.CloseHour, cfg.Business.CloseMinute, cfg.Business.Timezone)
	if err != nil {
		return nil, err
	}
	consistency, err := reservation.ParseConsistency(cfg.Consistency)
	if err != nil {
		return nil, err
	}
	statsLoc, err := cfg.StatsLocation()
	if err != nil {
		return nil, fmt.Errorf("STATS_TIMEZONE: %w", err)
	}

	var locker reservation.Locker
	switch cfg.Locker {
	case config.LockerNone:
		locker = reservation.NoopLocker{}
	case config.LockerRedis:
		if rdb != nil {
			locker = service.NewRedisLocker(rdb, "lock:reservation", cfg.LockTTL)
			break
		}
		rt.log.Warn("RESERVATION_LOCKER=redis but redis is unavailable; using local locker")
		fallthrough
	default:
		locker = reservation.NewKeyedLocker()
	}

	var publisher reservation.Publisher = reservation.NopPublisher{}
	if cfg.EventsEnabled {
		publisher = service.NewAMQPPublisher(cfg.RabbitURL, cfg.EventsQueue, rt.log)
	}

	return reservation.NewService(rt.store, reservation.Options{
		Hours:         hours,
		Consistency:   consistency,
		Locker:        locker,
		Publisher:     publisher,
		Logger:        rt.log,
		StatsLocation: statsLoc,
	})
}
