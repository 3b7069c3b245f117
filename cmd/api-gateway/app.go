package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-booking-api/internal/handler"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/internal/repository"
	"github.com/noah-isme/clinic-booking-api/internal/service"
	"github.com/noah-isme/clinic-booking-api/pkg/cache"
	"github.com/noah-isme/clinic-booking-api/pkg/config"
	"github.com/noah-isme/clinic-booking-api/pkg/database"
	"github.com/noah-isme/clinic-booking-api/pkg/jobs"
)

type slotStore interface {
	Create(ctx context.Context, slot *models.WeeklySlot) error
	Update(ctx context.Context, slot *models.WeeklySlot) error
	Delete(ctx context.Context, id string) error
	DeleteByDepartment(ctx context.Context, departmentID string) (int, error)
	FindByID(ctx context.Context, id string) (*models.WeeklySlot, error)
	FindByKey(ctx context.Context, key models.SlotKey) (*models.WeeklySlot, error)
	List(ctx context.Context, filter models.SlotFilter) ([]models.WeeklySlot, int, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]models.WeeklySlot, error)
	Availability(ctx context.Context, doctorIDs []string, weekday models.Weekday) ([]models.SlotAvailability, error)
}

type dutyStore interface {
	Create(ctx context.Context, duty *models.DutyAssignment) error
	Update(ctx context.Context, duty *models.DutyAssignment) error
	Delete(ctx context.Context, id string) error
	DeleteByDepartment(ctx context.Context, departmentID string) (int, error)
	FindByID(ctx context.Context, id string) (*models.DutyAssignment, error)
	FindByKey(ctx context.Context, key models.DutyKey) (*models.DutyAssignment, error)
	Query(ctx context.Context, filter models.DutyFilter) ([]models.DutyAssignment, error)
}

type bookingStore interface {
	Allocate(ctx context.Context, booking *models.Booking) error
	Transition(ctx context.Context, id string, from, to models.BookingStatus, at time.Time) (*models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	ListByDoctorAndWeekday(ctx context.Context, doctorID string, weekday models.Weekday) ([]models.DoctorDayEntry, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.Booking, error)
}

type catalogStore interface {
	FindDepartment(ctx context.Context, id string) (*models.Department, error)
	FindDoctor(ctx context.Context, id string) (*models.Doctor, error)
	FindCondition(ctx context.Context, id string) (*models.Condition, error)
	FindPatient(ctx context.Context, id string) (*models.Patient, error)
	CanTreat(ctx context.Context, doctorID, conditionID string) (bool, error)
	DoctorsForCondition(ctx context.Context, conditionID string) ([]models.Doctor, error)
}

type auditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// stores groups the repositories of one storage backend.
type stores struct {
	slots    slotStore
	duties   dutyStore
	bookings bookingStore
	catalog  catalogStore
	audit    auditStore
}

type app struct {
	cfg    *config.Config
	logger *zap.Logger

	closers    []func() error
	auditQueue *jobs.Queue

	metrics  *service.MetricsService
	tokens   *service.TokenService
	slots    *service.SlotService
	duties   *service.DutyService
	bookings *service.BookingService
	eligible *service.EligibilityService
	checks   map[string]handler.ReadinessCheck
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logr, checks: map[string]handler.ReadinessCheck{}}

	st, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	cacheRepo, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load clinic timezone: %w", err)
	}

	a.metrics = service.NewMetricsService()
	a.tokens = service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Expiration: cfg.JWT.Expiration})
	validate := validator.New()
	cacheSvc := service.NewCacheService(cacheRepo, a.metrics, cfg.Cache.TTL, logr.Named("cache"))

	var audit *service.AuditService
	if cfg.Audit.Enabled {
		audit = service.NewAuditService(st.audit, nil, logr.Named("audit"))
		a.auditQueue = jobs.NewQueue("audit", audit.Handle, jobs.QueueConfig{
			Workers:    cfg.Audit.Workers,
			BufferSize: cfg.Audit.BufferSize,
			MaxRetries: cfg.Audit.MaxRetries,
			RetryDelay: cfg.Audit.RetryDelay,
			Logger:     logr.Named("jobs"),
			OnGiveUp: func(job jobs.Job, _ error) {
				a.metrics.RecordJobDropped(job.Type)
			},
		})
		audit.UseQueue(a.auditQueue)
		// Workers outlive the signal context so drain can flush on shutdown.
		a.auditQueue.Start(context.WithoutCancel(ctx))
	}

	a.eligible = service.NewEligibilityService(st.catalog, logr)
	a.slots = service.NewSlotService(st.slots, st.catalog, cacheSvc, audit, a.metrics, validate, logr.Named("slots"))
	a.duties = service.NewDutyService(st.duties, st.catalog, audit, a.metrics, validate, logr.Named("duties"))
	a.bookings = service.NewBookingService(st.bookings, st.slots, st.catalog, validate, logr.Named("bookings"),
		service.WithLocation(loc),
		service.WithBookingCache(cacheSvc),
		service.WithBookingAudit(audit),
		service.WithBookingMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) openStores(ctx context.Context) (*stores, error) {
	switch a.cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store := repository.NewMemoryStore()
		if a.cfg.Storage.SeedFile != "" {
			catalog, err := loadCatalog(a.cfg.Storage.SeedFile)
			if err != nil {
				return nil, err
			}
			store.Seed(*catalog)
			a.logger.Sugar().Infow("memory store seeded", "file", a.cfg.Storage.SeedFile,
				"doctors", len(catalog.Doctors), "conditions", len(catalog.Conditions), "patients", len(catalog.Patients))
		}
		return &stores{
			slots:    repository.NewMemorySlotRepository(store),
			duties:   repository.NewMemoryDutyRepository(store),
			bookings: repository.NewMemoryBookingRepository(store),
			catalog:  repository.NewMemoryCatalogRepository(store),
			audit:    repository.NewMemoryAuditRepository(store),
		}, nil
	default:
		db, err := database.NewPostgres(ctx, a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
		retry := repository.RetryPolicy{MaxRetries: a.cfg.Booking.MaxTxRetries, Interval: a.cfg.Booking.TxRetryInterval}
		return &stores{
			slots:    repository.NewSlotRepository(db),
			duties:   repository.NewDutyRepository(db),
			bookings: repository.NewBookingRepository(db, retry),
			catalog:  repository.NewCatalogRepository(db),
			audit:    repository.NewAuditRepository(db),
		}, nil
	}
}

func (a *app) openCache(ctx context.Context) (service.CacheRepository, error) {
	switch a.cfg.Cache.Driver {
	case config.CacheDriverNone:
		return nil, nil
	case config.CacheDriverRedis:
		client, err := cache.NewRedis(ctx, a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		repo := repository.NewCacheRepository(client, "clinic:", a.logger.Named("redis"))
		a.closers = append(a.closers, repo.Close)
		a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return repo, nil
	default:
		repo, err := repository.NewLRUCacheRepository(a.cfg.Cache.LRUSize)
		if err != nil {
			return nil, fmt.Errorf("init lru cache: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil
	}
}

// drain waits for queued audit entries before exit.
func (a *app) drain(ctx context.Context) {
	if a.auditQueue == nil {
		return
	}
	if err := a.auditQueue.Drain(ctx); err != nil {
		a.logger.Warn("audit queue not drained", zap.Error(err))
	}
}

// Close stops workers and releases connections in reverse order of opening.
func (a *app) Close() {
	if a.auditQueue != nil {
		a.auditQueue.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}

func loadCatalog(path string) (*models.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var catalog models.Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &catalog, nil
}
