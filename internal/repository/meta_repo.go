package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/FocusMirror/internal/schema"
	"gorm.io/gorm"
)

// MetaRepository schema_meta 单行读写（旧数据导入版本号）
type MetaRepository struct {
	db *gorm.DB
}

// NewMetaRepository 创建仓储
func NewMetaRepository(db *gorm.DB) *MetaRepository {
	return &MetaRepository{db: db}
}

func (r *MetaRepository) ensure(ctx context.Context) (*schema.SchemaMeta, error) {
	var meta schema.SchemaMeta
	err := r.db.WithContext(ctx).
		Where(schema.SchemaMeta{ID: 1}).
		Attrs(schema.SchemaMeta{SchemaVersion: latestSchemaVersion}).
		FirstOrCreate(&meta).Error
	if err != nil {
		return nil, fmt.Errorf("读取 schema_meta 失败: %w", err)
	}
	return &meta, nil
}

// GetLegacyImportVersion 已完成的旧数据导入版本（0 表示未导入）
func (r *MetaRepository) GetLegacyImportVersion(ctx context.Context) (int, error) {
	meta, err := r.ensure(ctx)
	if err != nil {
		return 0, err
	}
	return meta.LegacyImportVersion, nil
}

// SetLegacyImportVersion 记录旧数据导入版本
func (r *MetaRepository) SetLegacyImportVersion(ctx context.Context, version int) error {
	if _, err := r.ensure(ctx); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&schema.SchemaMeta{}).
		Where("id = ?", 1).
		Update("legacy_import_version", version).Error; err != nil {
		return fmt.Errorf("写入导入版本失败: %w", err)
	}
	return nil
}
