package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"edumesh/config"
	"edumesh/database"
)

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
	healthCritical = "critical"

	checkUp       = "up"
	checkDown     = "down"
	checkDisabled = "disabled"

	healthProbeTimeout = 1500 * time.Millisecond
)

// HealthService answers /health: whether Postgres and Redis are reachable
// and how long the process has been up. Postgres down is critical; Redis
// down only degrades the report, since the app runs without it.
type HealthService struct {
	serviceName string
	version     string
	startTime   time.Time
}

// HealthCheck is one dependency's probe result.
type HealthCheck struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthReport is the /health response body.
type HealthReport struct {
	Status      string                 `json:"status"`
	Service     string                 `json:"service"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Time        time.Time              `json:"time"`
	Uptime      string                 `json:"uptime"`
	Checks      map[string]HealthCheck `json:"checks"`
	Runtime     HealthRuntime          `json:"runtime"`
	Flags       HealthFlags            `json:"flags"`
}

// HealthRuntime carries the few process numbers worth watching on a small
// deployment.
type HealthRuntime struct {
	GoVersion      string `json:"go_version"`
	Goroutines     int    `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	DBConnsOpen    int    `json:"db_conns_open"`
	DBConnsInUse   int    `json:"db_conns_in_use"`
}

// HealthFlags mirrors the feature toggles the deployment is running with.
type HealthFlags struct {
	SkipMigrate           bool `json:"skip_migrate"`
	SeedDemoData          bool `json:"seed_demo_data"`
	UseRedisNotifications bool `json:"use_redis_notifications"`
}

func NewHealthService(serviceName, version string) *HealthService {
	return &HealthService{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
	}
}

// GetHealthReport probes both dependencies and assembles the response.
func (s *HealthService) GetHealthReport() HealthReport {
	ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()

	rt := HealthRuntime{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	rt.HeapAllocBytes = mem.HeapAlloc

	pg, pgOverall := s.checkPostgres(ctx, &rt)
	rd, rdOverall := s.checkRedis(ctx)

	env := "unknown"
	flags := HealthFlags{}
	if config.AppConfig != nil {
		if e := strings.TrimSpace(config.AppConfig.AppEnv); e != "" {
			env = e
		}
		flags = HealthFlags{
			SkipMigrate:           config.AppConfig.SkipMigrate,
			SeedDemoData:          config.AppConfig.SeedDemoData,
			UseRedisNotifications: config.AppConfig.UseRedisNotifications,
		}
	}

	return HealthReport{
		Status:      worstStatus(pgOverall, rdOverall),
		Service:     s.serviceName,
		Version:     s.version,
		Environment: env,
		Time:        time.Now().UTC(),
		Uptime:      uptimeString(time.Since(s.startTime)),
		Checks: map[string]HealthCheck{
			"postgres": pg,
			"redis":    rd,
		},
		Runtime: rt,
		Flags:   flags,
	}
}

// HTTPStatusForOverall maps a health status to an HTTP status code.
func (s *HealthService) HTTPStatusForOverall(status string) int {
	if status == healthCritical {
		return 503
	}
	return 200
}

func (s *HealthService) checkPostgres(ctx context.Context, rt *HealthRuntime) (HealthCheck, string) {
	if database.DB == nil {
		return HealthCheck{Status: checkDown, Error: "database connection not initialised"}, healthCritical
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		return HealthCheck{Status: checkDown, Error: err.Error()}, healthCritical
	}

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthCheck{Status: checkDown, LatencyMs: latency, Error: err.Error()}, healthCritical
	}

	stats := sqlDB.Stats()
	rt.DBConnsOpen = stats.OpenConnections
	rt.DBConnsInUse = stats.InUse
	return HealthCheck{Status: checkUp, LatencyMs: latency}, healthOK
}

func (s *HealthService) checkRedis(ctx context.Context) (HealthCheck, string) {
	required := config.AppConfig != nil && config.AppConfig.UseRedisNotifications

	client := database.GetRedisClient()
	if client == nil {
		if required {
			return HealthCheck{Status: checkDown, Error: "redis client not initialised"}, healthDegraded
		}
		return HealthCheck{Status: checkDisabled}, healthOK
	}

	start := time.Now()
	err := client.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()
	if err != nil {
		overall := healthOK
		if required {
			overall = healthDegraded
		}
		return HealthCheck{Status: checkDown, LatencyMs: latency, Error: err.Error()}, overall
	}
	return HealthCheck{Status: checkUp, LatencyMs: latency}, healthOK
}

// worstStatus picks the more severe of two overall statuses.
func worstStatus(a, b string) string {
	rank := func(s string) int {
		switch s {
		case healthCritical:
			return 2
		case healthDegraded:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// uptimeString renders an uptime as "3d 4h 12m 9s", dropping leading zero
// units.
func uptimeString(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)

	parts := []string{}
	if days := d / (24 * time.Hour); days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
		d %= 24 * time.Hour
	}
	if hours := d / time.Hour; hours > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
		d %= time.Hour
	}
	if minutes := d / time.Minute; minutes > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
		d %= time.Minute
	}
	parts = append(parts, fmt.Sprintf("%ds", d/time.Second))
	return strings.Join(parts, " ")
}
