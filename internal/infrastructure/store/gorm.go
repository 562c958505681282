package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"illineats/internal/infrastructure/config"
	"illineats/internal/pkg/common"
)

// GormStore 以 gorm 實作的關聯式儲存（postgres / sqlite）
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 連線資料庫，必要時執行 AutoMigrate
func NewGormStore(cfg config.StoreConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("gorm store does not support driver %q", cfg.Driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	s := &GormStore{db: db}
	if cfg.AutoMigrate {
		if err := s.Migrate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewGormStoreFromDB 包裝既有連線
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate 建立資料表與索引
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&FoodInfo{}, &MealDetail{}, &RecommendationRow{}, &UserRow{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// DB 取得底層連線
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) FindFoodByName(ctx context.Context, name string) (*common.FoodItem, error) {
	var rows []FoodInfo
	// map 條件保留零值，並為駝峰欄位名稱加上引號
	if err := s.db.WithContext(ctx).Where(map[string]interface{}{"name": name}).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select food by name: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	item := rows[0].toItem()
	return &item, nil
}

func (s *GormStore) InsertFood(ctx context.Context, food *common.FoodItem) (string, error) {
	row := foodRowFrom(food)
	if row.ID == "" {
		row.ID = common.GenerateUUID()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", common.NewStoreWriteError("insert food", food.Name, err)
	}
	food.ID = row.ID
	return row.ID, nil
}

func (s *GormStore) ListMealEntries(ctx context.Context, foodID string) ([]common.MealEntry, error) {
	var rows []MealDetail
	if err := s.db.WithContext(ctx).Where(map[string]interface{}{"foodId": foodID}).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select meal entries: %w", err)
	}
	entries := make([]common.MealEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

func (s *GormStore) InsertMealEntry(ctx context.Context, entry *common.MealEntry) (string, error) {
	row := mealRowFrom(entry)
	if row.ID == "" {
		row.ID = common.GenerateUUID()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", common.NewStoreWriteError("insert meal entry", entry.FoodID, err)
	}
	entry.ID = row.ID
	return row.ID, nil
}

func (s *GormStore) ListCatalog(ctx context.Context) ([]common.FoodItem, error) {
	var details []MealDetail
	if err := s.db.WithContext(ctx).Find(&details).Error; err != nil {
		return nil, fmt.Errorf("select meal entries: %w", err)
	}
	if len(details) == 0 {
		return []common.FoodItem{}, nil
	}

	ids := make([]string, 0, len(details))
	entries := make([]common.MealEntry, 0, len(details))
	seen := make(map[string]bool)
	for _, d := range details {
		entries = append(entries, d.toEntry())
		if !seen[d.FoodID] {
			seen[d.FoodID] = true
			ids = append(ids, d.FoodID)
		}
	}

	var rows []FoodInfo
	if err := s.db.WithContext(ctx).Where(map[string]interface{}{"id": ids}).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select foods: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	foods := make([]common.FoodItem, 0, len(rows))
	for _, r := range rows {
		foods = append(foods, r.toItem())
	}
	return attachFacilities(foods, entries), nil
}

func (s *GormStore) ServingDates(ctx context.Context) ([]string, error) {
	var dates []string
	if err := s.db.WithContext(ctx).Model(&MealDetail{}).Distinct().Pluck("dateServed", &dates).Error; err != nil {
		return nil, fmt.Errorf("select serving dates: %w", err)
	}
	return dates, nil
}

func (s *GormStore) DeleteMealEntriesByDate(ctx context.Context, dateServed string) (int64, error) {
	res := s.db.WithContext(ctx).Where(map[string]interface{}{"dateServed": dateServed}).Delete(&MealDetail{})
	if res.Error != nil {
		return 0, common.NewStoreWriteError("delete meal entries", dateServed, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) UpsertRecommendation(ctx context.Context, rec *common.Recommendation) (string, error) {
	row := recommendationRowFrom(rec)
	row.ID = common.GenerateUUID()

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "userId"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"foodIds", "createdAt"}),
	}).Create(&row).Error
	if err != nil {
		return "", common.NewStoreWriteError("upsert recommendation", rec.UserID, err)
	}

	// 衝突時保留原本的 id
	var stored RecommendationRow
	if err := s.db.WithContext(ctx).Where(map[string]interface{}{"userId": rec.UserID, "type": rec.Type}).First(&stored).Error; err != nil {
		return "", common.NewStoreWriteError("upsert recommendation", rec.UserID, err)
	}
	rec.ID = stored.ID
	return stored.ID, nil
}

func (s *GormStore) GetRecommendation(ctx context.Context, userID, recType string) (*common.Recommendation, error) {
	var row RecommendationRow
	err := s.db.WithContext(ctx).Where(map[string]interface{}{"userId": userID, "type": recType}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrRecommendationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select recommendation: %w", err)
	}
	return row.toRecommendation(), nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*common.UserProfile, error) {
	var row UserRow
	err := s.db.WithContext(ctx).Where(map[string]interface{}{"id": id}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return row.toProfile(), nil
}

func (s *GormStore) UpsertUser(ctx context.Context, user *common.UserProfile) error {
	row := userRowFrom(user)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return common.NewStoreWriteError("upsert user", user.ID, err)
	}
	return nil
}

func (s *GormStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
