package migrate

import (
	"context"
	"database/sql"

	"streetview-randomizer/internal/logger"
)

// 背景：开启运行记录时自动创建样本表与索引
// 约束：使用 IF NOT EXISTS，可重复执行；只创建最小必需结构
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _sv_samples (
            id BIGSERIAL PRIMARY KEY,
            run_id UUID NOT NULL,
            idx INT NOT NULL,
            country CHAR(3) NOT NULL,
            country_name TEXT NOT NULL DEFAULT '',
            lat DOUBLE PRECISION NOT NULL,
            lon DOUBLE PRECISION NOT NULL,
            radius_m INT NOT NULL,
            attempts INT NOT NULL,
            elapsed_ms BIGINT NOT NULL,
            images INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_sv_run_idx ON _sv_samples(run_id, idx)`,
		`CREATE INDEX IF NOT EXISTS idx_sv_country ON _sv_samples(country)`,
		`CREATE INDEX IF NOT EXISTS idx_sv_created ON _sv_samples(created_at)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
