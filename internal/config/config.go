// 包 config：集中读取运行配置。先加载 .env，再由环境变量填充，最后由命令行参数覆盖
package config

import (
	"errors"
	"flag"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"streetview-randomizer/internal/sampler"
)

// Config：一次运行的全部配置
// 约束：环境变量名不带前缀；命令行参数优先于环境变量。
type Config struct {
	APIKey       string        `envconfig:"GOOGLE_MAPS_API_KEY"`
	Endpoint     string        `envconfig:"STREETVIEW_ENDPOINT" default:"https://maps.googleapis.com/maps/api/streetview"`
	GeometryPath string        `envconfig:"GEOMETRY_PATH" default:"data/world_borders.geojson"`
	Timeout      time.Duration `envconfig:"ORACLE_TIMEOUT" default:"10s"`
	QPS          float64       `envconfig:"ORACLE_QPS" default:"0"`

	Cache      bool          `envconfig:"ORACLE_CACHE" default:"false"`
	CacheSize  int           `envconfig:"ORACLE_CACHE_SIZE" default:"4096"`
	CacheTTL   time.Duration `envconfig:"ORACLE_CACHE_TTL" default:"24h"`
	CacheRedis bool          `envconfig:"ORACLE_CACHE_REDIS" default:"false"`

	RecordDB    bool   `envconfig:"RECORD_DB" default:"false"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	LowCoverage       []string      `envconfig:"LOW_COVERAGE_CODES" default:"ATA"`
	MaxAttempts       int           `envconfig:"MAX_ATTEMPTS" default:"0"`
	MaxElapsed        time.Duration `envconfig:"MAX_ELAPSED" default:"0s"`
	MaxOracleFailures int           `envconfig:"MAX_ORACLE_FAILURES" default:"5"`
	Seed              int64         `envconfig:"SEED" default:"0"`

	Countries []string `envconfig:"COUNTRIES"`
	List      bool     `ignored:"true"`
	UseArea   bool     `envconfig:"USE_AREA" default:"false"`
	Samples   int      `envconfig:"SAMPLES" default:"1"`
	Headings  []int    `envconfig:"HEADINGS" default:"0"`
	Pitches   []int    `envconfig:"PITCHES" default:"0"`
	FOVs      []int    `envconfig:"FOVS" default:"90"`
	Radius    int      `envconfig:"RADIUS" default:"5000"`
	Size      string   `envconfig:"IMAGE_SIZE" default:"640x640"`
	OutputDir string   `envconfig:"OUTPUT_DIR" default:"images"`
	DryRun    bool     `envconfig:"DRY_RUN" default:"false"`
}

// 文档注释：加载 .env 与环境变量
// 背景：与服务部署方式一致，.env 与 data/env/.env 均为可选；已存在的环境变量不会被 .env 覆盖。
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("data/env/.env")
	return FromEnv()
}

// FromEnv fills a Config from the process environment only.
func FromEnv() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%w: %w", sampler.ErrConfiguration, err)
	}
	return &c, nil
}

// BindFlags registers the command line flags; parsed values override c.
func BindFlags(fs *flag.FlagSet, c *Config) {
	countries := &stringList{dst: &c.Countries}
	fs.Var(countries, "c", "country ISO3 codes to sample, comma or space separated (default all)")
	fs.Var(countries, "countries", "alias of -c")
	fs.BoolVar(&c.List, "l", c.List, "list available countries and exit")
	fs.BoolVar(&c.List, "list-countries", c.List, "alias of -l")
	fs.BoolVar(&c.UseArea, "a", c.UseArea, "weight countries by land area")
	fs.BoolVar(&c.UseArea, "use-area", c.UseArea, "alias of -a")
	fs.IntVar(&c.Samples, "n", c.Samples, "number of samples, in [1, 28000)")
	fs.IntVar(&c.Samples, "samples", c.Samples, "alias of -n")

	headings := &intList{dst: &c.Headings}
	fs.Var(headings, "H", "image headings in degrees (default 0)")
	fs.Var(headings, "headings", "alias of -H")
	pitches := &intList{dst: &c.Pitches}
	fs.Var(pitches, "P", "image pitches in degrees (default 0)")
	fs.Var(pitches, "pitches", "alias of -P")
	fovs := &intList{dst: &c.FOVs}
	fs.Var(fovs, "F", "image fields of view in degrees (default 90)")
	fs.Var(fovs, "fovs", "alias of -F")

	fs.IntVar(&c.Radius, "R", c.Radius, "search radius in meters, in [1, 1000000)")
	fs.IntVar(&c.Radius, "radius", c.Radius, "alias of -R")
	fs.StringVar(&c.Size, "s", c.Size, "image size WIDTHxHEIGHT")
	fs.StringVar(&c.Size, "size", c.Size, "alias of -s")
	fs.StringVar(&c.OutputDir, "o", c.OutputDir, "output directory")
	fs.StringVar(&c.OutputDir, "output-dir", c.OutputDir, "alias of -o")
	fs.StringVar(&c.APIKey, "k", c.APIKey, "API key (default $GOOGLE_MAPS_API_KEY)")
	fs.StringVar(&c.APIKey, "api-key", c.APIKey, "alias of -k")
	fs.BoolVar(&c.DryRun, "dry-run", c.DryRun, "find coordinates without downloading images")
	fs.StringVar(&c.GeometryPath, "geometry", c.GeometryPath, "country borders GeoJSON")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed, 0 for time based")
}

// ErrUnexpectedArgument 表示命令行中出现了不属于任何参数的取值
var ErrUnexpectedArgument = errors.New("unexpected argument")

// 文档注释：解析命令行参数
// 背景：flag 包遇到第一个非参数取值即停止解析，"-c BRA ARG -n 5" 会静默丢弃 ARG 与其后的全部参数。
// 约束：存在剩余取值时返回 ErrUnexpectedArgument；列表取值须以逗号分隔或重复传入同一参数。
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w %q: separate list values with commas (-c BRA,ARG -H 0,90) or repeat the flag", ErrUnexpectedArgument, fs.Arg(0))
	}
	return nil
}

var sizePattern = regexp.MustCompile(`^([1-9][0-9]{0,3})x([1-9][0-9]{0,3})$`)

// MaxImageSide 为静态图接口允许的最大边长
const MaxImageSide = 640

// 文档注释：校验配置取值范围
// 约束：所有错误均包装 sampler.ErrConfiguration，在采样开始前返回。
func (c *Config) Validate() error {
	if err := sampler.ValidateSamples(c.Samples); err != nil {
		return err
	}
	if err := sampler.ValidateRadius(c.Radius); err != nil {
		return err
	}
	if err := checkRange("heading", c.Headings, 0, 360); err != nil {
		return err
	}
	if err := checkRange("pitch", c.Pitches, -90, 90); err != nil {
		return err
	}
	if err := checkRange("fov", c.FOVs, 1, 120); err != nil {
		return err
	}
	m := sizePattern.FindStringSubmatch(c.Size)
	if m == nil {
		return fmt.Errorf("%w: image size %q must look like 640x640", sampler.ErrConfiguration, c.Size)
	}
	for _, side := range m[1:] {
		if n, _ := strconv.Atoi(side); n > MaxImageSide {
			return fmt.Errorf("%w: image size %q exceeds %dx%d", sampler.ErrConfiguration, c.Size, MaxImageSide, MaxImageSide)
		}
	}
	if c.OutputDir == "" && !c.DryRun {
		return fmt.Errorf("%w: empty output directory", sampler.ErrConfiguration)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: oracle timeout must be positive", sampler.ErrConfiguration)
	}
	if c.QPS < 0 {
		return fmt.Errorf("%w: negative oracle QPS", sampler.ErrConfiguration)
	}
	return nil
}

func checkRange(name string, vals []int, lo, hi int) error {
	if len(vals) == 0 {
		return fmt.Errorf("%w: at least one %s is required", sampler.ErrConfiguration, name)
	}
	for _, v := range vals {
		if v < lo || v > hi {
			return fmt.Errorf("%w: %s %d not in [%d, %d]", sampler.ErrConfiguration, name, v, lo, hi)
		}
	}
	return nil
}

// Policy returns the search budget described by the configuration.
func (c *Config) Policy() sampler.Policy {
	return sampler.Policy{MaxAttempts: c.MaxAttempts, MaxElapsed: c.MaxElapsed, MaxOracleFailures: c.MaxOracleFailures}
}

// 列表参数：支持逗号或空格分隔，也可重复传入；首次设置时替换默认值
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
}

type stringList struct {
	dst *[]string
	set bool
}

func (l *stringList) String() string {
	if l == nil || l.dst == nil {
		return ""
	}
	return strings.Join(*l.dst, ",")
}

func (l *stringList) Set(s string) error {
	if !l.set {
		*l.dst = nil
		l.set = true
	}
	*l.dst = append(*l.dst, splitList(s)...)
	return nil
}

type intList struct {
	dst *[]int
	set bool
}

func (l *intList) String() string {
	if l == nil || l.dst == nil {
		return ""
	}
	parts := make([]string, len(*l.dst))
	for i, v := range *l.dst {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(s string) error {
	var vals []int
	for _, p := range splitList(s) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("not an integer: %q", p)
		}
		vals = append(vals, n)
	}
	if !l.set {
		*l.dst = nil
		l.set = true
	}
	*l.dst = append(*l.dst, vals...)
	return nil
}
