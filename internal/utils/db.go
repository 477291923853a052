// 包 utils：外部存储连接工具，统一环境变量读取
package utils

import (
	"database/sql"
	"net/url"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// BuildPostgresDSNFromEnv：由 PG_* 环境变量拼出连接串
// 约束：用户名与密码做 URL 转义；PG_DSN 存在时直接使用。
func BuildPostgresDSNFromEnv() string {
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   getenv("PG_HOST", "localhost") + ":" + getenv("PG_PORT", "5432"),
		Path:   "/" + getenv("PG_DB", "streetview"),
	}
	user := getenv("PG_USER", "postgres")
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	q := url.Values{}
	q.Set("sslmode", getenv("PG_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// OpenPostgresFromEnv：打开连接池；连接数由 PG_MAX_OPEN_CONNS/PG_MAX_IDLE_CONNS 调整
// 背景：采样为顺序执行，每个样本一次写入，默认连接数取小值即可。
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(getenvInt("PG_MAX_OPEN_CONNS", 4))
	db.SetMaxIdleConns(getenvInt("PG_MAX_IDLE_CONNS", 2))
	return db, nil
}
