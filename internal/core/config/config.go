package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/merchant-map/internal/mapview"
)

const (
	SourceFile  = "file"
	SourceRedis = "redis"
)

type RecordsCfg struct {
	Source  string
	Path    string
	Sheet   string
	Dataset string
}

type MapCfg struct {
	CenterLat  float64
	CenterLng  float64
	Zoom       int
	TileURL    string
	ClusterRes int
}

type Config struct {
	Addr            string
	LogLevel        string
	LogConsole      bool
	LogSampleN      int
	RedisAddr       string
	CacheOpTimeout  time.Duration
	Records         RecordsCfg
	Map             MapCfg
	DefaultPageSize int
	SessionTTL      time.Duration
	SessionMax      int
	MetricsEnabled  bool
}

// LoadDotEnv loads variables from the given files (".env" when none) without
// overriding values already present in the environment. Missing files are
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func FromEnv() Config {
	def := mapview.DefaultOptions()
	lat, lng := parseCenter(getenv("MAP_CENTER", ""), def.Center.Lat, def.Center.Lng)

	// any zoom mapview accepts is honored, including 0
	zoom := getint("MAP_ZOOM", def.Zoom)
	if zoom < mapview.MinZoom || zoom > mapview.MaxZoom {
		zoom = def.Zoom
	}
	clusterRes := getint("CLUSTER_RES", 6)
	if clusterRes < 0 || clusterRes > 15 {
		clusterRes = 6
	}
	sessionMax := getint("SESSION_MAX", 1024)
	if sessionMax <= 0 {
		sessionMax = 1024
	}

	return Config{
		Addr:           getenv("ADDR", ":8090"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 2*time.Second),
		Records: RecordsCfg{
			Source:  strings.ToLower(getenv("RECORDS_SOURCE", SourceFile)),
			Path:    getenv("RECORDS_PATH", "public/koordinat.json"),
			Sheet:   getenv("RECORDS_SHEET", ""),
			Dataset: getenv("RECORDS_DATASET", "default"),
		},
		Map: MapCfg{
			CenterLat:  lat,
			CenterLng:  lng,
			Zoom:       zoom,
			TileURL:    getenv("MAP_TILE_URL", def.TileURL),
			ClusterRes: clusterRes,
		},
		DefaultPageSize: getint("DEFAULT_PAGE_SIZE", 10),
		SessionTTL:      getduration("SESSION_TTL", 30*time.Minute),
		SessionMax:      sessionMax,
		MetricsEnabled:  getbool("METRICS_ENABLED", true),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "lat,lng"; falls back to the defaults on any malformed part
func parseCenter(s string, defLat, defLng float64) (float64, float64) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defLat, defLng
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return defLat, defLng
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return defLat, defLng
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return defLat, defLng
	}
	return lat, lng
}
