package storage

import (
	"context"
	"errors"
	"time"

	"GuardianAngel/pkg/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Preference 本地持久化的一条键值
type Preference struct {
	Key       string `gorm:"column:pref_key;primaryKey;size:128"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (Preference) TableName() string { return "preferences" }

// SQLStore 基于 gorm + sqlite 的持久化存储
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLStore 打开（或创建）sqlite 文件并迁移表结构
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := util.OpenSQLite(dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an existing gorm handle.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&Preference{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var p Preference
	err := s.db.WithContext(ctx).Where("pref_key = ?", key).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return p.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	p := Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&p).Error
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("pref_key IN ?", keys).Delete(&Preference{}).Error
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
