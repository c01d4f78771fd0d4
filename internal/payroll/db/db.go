package db

import (
	"context"
	"errors"
	"fmt"

	rows "github.com/gartstein/payroll/internal/payroll/db/models"
	e "github.com/gartstein/payroll/internal/payroll/errors"
	"github.com/gartstein/payroll/internal/payroll/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// registryRowID is the primary key of the single registry row.
const registryRowID = 1

// Repository persists the whole payroll document in a relational database.
type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewRepository connects to PostgreSQL and migrates the schema.
func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newRepository(db)
}

// NewSQLiteRepository opens (or creates) a SQLite database at path.
func NewSQLiteRepository(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)
	return newRepository(db)
}

func newRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(rows.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

// Load reads the full document. An empty database yields an empty registry.
func (r *Repository) Load(ctx context.Context) (*models.Document, error) {
	var employees []rows.Employee
	result := r.db.WithContext(ctx).
		Preload("Records", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Preload("Records.Payments", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Order("position").
		Find(&employees)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: load employees: %w", e.ErrPersistence, result.Error)
	}

	var registry rows.Registry
	result = r.db.WithContext(ctx).First(&registry, registryRowID)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: load registry: %w", e.ErrPersistence, result.Error)
	}

	return toDocument(employees, registry), nil
}

// Save replaces the stored document with doc inside one transaction.
func (r *Repository) Save(ctx context.Context, doc *models.Document) error {
	employees := fromDocument(doc)
	err := r.WithTransaction(ctx, func(repo *Repository) error {
		all := repo.db.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, table := range []interface{}{&rows.Payment{}, &rows.MonthlyRecord{}, &rows.Employee{}} {
			if err := all.Delete(table).Error; err != nil {
				return err
			}
		}
		if len(employees) > 0 {
			if err := repo.db.Create(&employees).Error; err != nil {
				return err
			}
		}
		return repo.db.Save(&rows.Registry{ID: registryRowID, LastEmployeeSeq: doc.LastEmployeeSeq}).Error
	})
	if err != nil {
		return fmt.Errorf("%w: save document: %w", e.ErrPersistence, err)
	}
	return nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
