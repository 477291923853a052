// 包 store：运行记录的 PostgreSQL 访问层，保存每个采样结果并提供按国家汇总
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/logger"
)

// Store：数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Sample：一次成功采样的持久化记录
type Sample struct {
	RunID    uuid.UUID
	Index    int
	Country  string
	Name     string
	At       geo.Coordinate
	RadiusM  int
	Attempts int
	Elapsed  time.Duration
	Images   int
}

// NewRunID 生成一次运行的标识，同一运行的样本共享
func NewRunID() uuid.UUID { return uuid.New() }

// InsertSample：写入一个样本；同一运行的同一序号重复写入时覆盖
func (s *Store) InsertSample(ctx context.Context, smp Sample) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO _sv_samples(run_id, idx, country, country_name, lat, lon, radius_m, attempts, elapsed_ms, images)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (run_id, idx) DO UPDATE SET country=EXCLUDED.country, country_name=EXCLUDED.country_name,
            lat=EXCLUDED.lat, lon=EXCLUDED.lon, attempts=EXCLUDED.attempts, elapsed_ms=EXCLUDED.elapsed_ms, images=EXCLUDED.images`,
		smp.RunID.String(), smp.Index, smp.Country, smp.Name, smp.At.Lat, smp.At.Lon, smp.RadiusM,
		smp.Attempts, smp.Elapsed.Milliseconds(), smp.Images,
	)
	if err != nil {
		return err
	}
	logger.L().Debug("db_sample_insert", "run_id", smp.RunID.String(), "idx", smp.Index, "country", smp.Country)
	return nil
}

// CountryTotal：历史运行中某国的累计情况
type CountryTotal struct {
	Code        string
	Name        string
	Samples     int64
	Images      int64
	AvgAttempts float64
}

// 文档注释：按国家汇总全部历史样本
// 参数：since 为零值时不限时间窗口。
// 返回：按图片数降序、代码升序排列。
func (s *Store) CountryTotals(ctx context.Context, since time.Time) ([]CountryTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT country, max(country_name), count(1), COALESCE(sum(images), 0), COALESCE(avg(attempts), 0)
        FROM _sv_samples
        WHERE $1::timestamptz IS NULL OR created_at >= $1
        GROUP BY country
        ORDER BY sum(images) DESC, country ASC`, nullTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CountryTotal
	for rows.Next() {
		var t CountryTotal
		if err := rows.Scan(&t.Code, &t.Name, &t.Samples, &t.Images, &t.AvgAttempts); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RunSummary：单次运行的概况
type RunSummary struct {
	RunID    uuid.UUID
	Started  time.Time
	Samples  int64
	Attempts int64
}

// RecentRuns 返回最近 limit 次运行，按开始时间倒序
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT run_id, min(created_at), count(1), sum(attempts)
        FROM _sv_samples
        GROUP BY run_id
        ORDER BY min(created_at) DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunSummary
	for rows.Next() {
		var (
			r  RunSummary
			id string
		)
		if err := rows.Scan(&id, &r.Started, &r.Samples, &r.Attempts); err != nil {
			return nil, err
		}
		if r.RunID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
