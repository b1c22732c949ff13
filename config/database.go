package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onlytalk/onlytalk/models"
)

var db *gorm.DB

// InitDatabase opens the configured database (MySQL by default, SQLite for a
// single-file deployment), migrates the full schema, and seeds reference
// data. Schema setup happens here, once, at boot; request handlers never
// create tables.
func InitDatabase() *gorm.DB {
	if db != nil {
		return db
	}

	cfg := Get()

	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	var err error
	switch cfg.DBDriver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	default:
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		}
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
	}
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	if cfg.DBDriver == "sqlite" {
		// Single writer; a larger pool only produces SQLITE_BUSY noise.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	if err := migrateSchema(db); err != nil {
		log.Fatalf("schema migration failed: %v", err)
	}
	if err := seedReferenceData(db); err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	return db
}

// migrateSchema creates or extends every table the forum uses.
func migrateSchema(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.CommentLike{},
		&models.Favorite{},
		&models.Follow{},
		&models.CheckinRecord{},
		&models.Reward{},
		&models.Notification{},
		&models.ShopItem{},
		&models.Purchase{},
		&models.UserBadge{},
	)
}

// seedReferenceData inserts default categories and shop items on first boot.
func seedReferenceData(db *gorm.DB) error {
	var categoryCount int64
	if err := db.Model(&models.Category{}).Count(&categoryCount).Error; err != nil {
		return err
	}
	if categoryCount == 0 {
		categories := []models.Category{
			{Name: "技术讨论", Description: "技术相关话题讨论"},
			{Name: "生活闲聊", Description: "生活日常话题"},
			{Name: "问题求助", Description: "遇到问题需要帮助"},
			{Name: "资源分享", Description: "分享有用的资源"},
		}
		if err := db.Create(&categories).Error; err != nil {
			return err
		}
	}

	var itemCount int64
	if err := db.Model(&models.ShopItem{}).Count(&itemCount).Error; err != nil {
		return err
	}
	if itemCount == 0 {
		items := []models.ShopItem{
			{Name: "帖子置顶卡", Description: "使用后帖子置顶24小时", Price: 100, ItemType: "post_pin", ItemValue: "24", Icon: "📌", IsAvailable: true},
			{Name: "帖子高亮卡", Description: "使用后帖子标题高亮显示", Price: 50, ItemType: "post_highlight", ItemValue: "7", Icon: "✨", IsAvailable: true},
			{Name: "改名卡", Description: "修改用户名一次", Price: 200, ItemType: "rename", ItemValue: "1", Icon: "✏️", IsAvailable: true},
			{Name: "VIP徽章", Description: "显示VIP身份标识", Price: 500, ItemType: "badge", ItemValue: "VIP", Icon: "👑", IsAvailable: true},
			{Name: "超级会员徽章", Description: "显示超级会员身份", Price: 1000, ItemType: "badge", ItemValue: "SUPER", Icon: "⭐", IsAvailable: true},
		}
		if err := db.Create(&items).Error; err != nil {
			return err
		}
	}

	return nil
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "warn", "info", "":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// DB provides access to the initialized gorm DB instance.
func DB() *gorm.DB {
	if db == nil {
		log.Fatal("database not initialized, call InitDatabase first")
	}
	return db
}
