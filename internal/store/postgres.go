package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/asken-backend/internal/engine"
)

type roomRecord struct {
	Code      string    `gorm:"primaryKey;size:8"`
	Data      string    `gorm:"type:text;not null"`
	Phase     string    `gorm:"size:16"`
	Players   int       `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"index;not null"`
	UpdatedAt time.Time
}

func (roomRecord) TableName() string { return "rooms" }

// Postgres stores each room as a JSON document with an expiry horizon that
// is pushed forward on every write.
type Postgres struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func OpenPostgres(dsn string, ttl time.Duration) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgres(db, ttl)
}

func NewPostgres(db *gorm.DB, ttl time.Duration) (*Postgres, error) {
	if err := db.AutoMigrate(&roomRecord{}); err != nil {
		return nil, fmt.Errorf("migrate rooms: %w", err)
	}
	return &Postgres{db: db, ttl: ttl, now: time.Now}, nil
}

func (p *Postgres) Get(ctx context.Context, code string) (engine.State, error) {
	var rec roomRecord
	err := p.db.WithContext(ctx).
		Where("code = ? AND expires_at > ?", code, p.now()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.State{}, ErrNotFound
	}
	if err != nil {
		return engine.State{}, err
	}
	return decode(rec)
}

func (p *Postgres) Set(ctx context.Context, s engine.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", s.Code, err)
	}
	now := p.now()
	rec := roomRecord{
		Code:      s.Code,
		Data:      string(data),
		Phase:     string(s.Phase),
		Players:   len(s.Players),
		ExpiresAt: now.Add(p.ttl),
		UpdatedAt: now,
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "phase", "players", "expires_at", "updated_at"}),
	}).Create(&rec).Error
}

func (p *Postgres) Delete(ctx context.Context, code string) error {
	return p.db.WithContext(ctx).Delete(&roomRecord{}, "code = ?", code).Error
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&roomRecord{}).Where("expires_at > ?", p.now()).Count(&n).Error
	return int(n), err
}

// List skips rows that fail to decode and reports them together.
func (p *Postgres) List(ctx context.Context) ([]engine.State, error) {
	var recs []roomRecord
	if err := p.db.WithContext(ctx).Where("expires_at > ?", p.now()).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]engine.State, 0, len(recs))
	var errs error
	for _, rec := range recs {
		s, err := decode(rec)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, s)
	}
	return out, errs
}

func (p *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	res := p.db.WithContext(ctx).Where("expires_at <= ?", p.now()).Delete(&roomRecord{})
	return res.RowsAffected, res.Error
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func decode(rec roomRecord) (engine.State, error) {
	var s engine.State
	if err := json.Unmarshal([]byte(rec.Data), &s); err != nil {
		return engine.State{}, fmt.Errorf("decode room %s: %w", rec.Code, err)
	}
	return s, nil
}
