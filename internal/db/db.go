package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	// DriverSQLite 使用本地 sqlite 文件。
	DriverSQLite = "sqlite"
	// DriverPostgres 使用 DATABASE_URL 指向的 Postgres 实例。
	DriverPostgres = "postgres"
)

// Models 列出需要自动迁移的全部模型，测试与脚本共用。
func Models() []interface{} {
	return []interface{}{
		&Category{},
		&SubCategory{},
		&Tag{},
		&Blog{},
		&Content{},
		&BlogTranslation{},
		&Comment{},
		&GenerationJob{},
	}
}

// Open 建立数据库连接并执行自动迁移。
// driver 为空时回退到 sqlite，path 为空时回退到 buzznfinds.db。
func Open(driver, path, url string, config *gorm.Config) (*gorm.DB, error) {
	if config == nil {
		config = &gorm.Config{}
	}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres:
		dsn := strings.TrimSpace(url)
		if dsn == "" {
			return nil, errors.New("DATABASE_URL is required for postgres")
		}
		dialector = postgres.Open(dsn)
	case "", DriverSQLite:
		p := strings.TrimSpace(path)
		if p == "" {
			p = "buzznfinds.db"
		}
		if err := ensureParentDir(p); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(p)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate 为核心模型创建或更新表结构。
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return err
	}

	// 旧数据没有 language 字段时视为英文原文
	if err := gdb.Model(&Content{}).
		Where("language = '' OR language IS NULL").
		Update("language", "en").Error; err != nil {
		return err
	}
	if err := gdb.Model(&BlogTranslation{}).
		Where("language = '' OR language IS NULL").
		Update("language", "en").Error; err != nil {
		return err
	}
	return nil
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
