// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/report"
	"github.com/carterperez-dev/templates/forum/internal/user"
)

type ReportCounter interface {
	CountOpen(ctx context.Context) (report.OpenCounts, error)
}

type RoleCounter interface {
	CountRoles(ctx context.Context) (*user.RoleCounts, error)
}

type Handler struct {
	reports    ReportCounter
	roles      RoleCounter
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
}

type HandlerConfig struct {
	Reports    ReportCounter
	Roles      RoleCounter
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		reports:    cfg.Reports,
		roles:      cfg.Roles,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetStats)
		r.Get("/stats/moderation", h.GetModerationStats)
	})
}

// GetStats is the admin dashboard summary: moderation backlog and role
// counts, plus pool and runtime numbers for the operator.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	moderation, err := h.moderationStats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, StatsResponse{
		Moderation: *moderation,
		Database:   h.getDBStats(),
		Redis:      h.getRedisStats(),
		Runtime:    runtimeStats(),
	})
}

func (h *Handler) GetModerationStats(w http.ResponseWriter, r *http.Request) {
	moderation, err := h.moderationStats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, moderation)
}

func (h *Handler) moderationStats(ctx context.Context) (*ModerationStats, error) {
	open, err := h.reports.CountOpen(ctx)
	if err != nil {
		return nil, err
	}

	roles, err := h.roles.CountRoles(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range open {
		total += n
	}

	return &ModerationStats{
		OpenReports:      open,
		OpenReportsTotal: total,
		Admins:           roles.Admins,
		Members:          roles.Members,
		ElevatedMembers:  roles.Elevated,
	}, nil
}

func runtimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		MemAlloc:     memStats.Alloc,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

type StatsResponse struct {
	Moderation ModerationStats `json:"moderation"`
	Database   *DBPoolStats    `json:"database,omitempty"`
	Redis      *RedisPoolStats `json:"redis,omitempty"`
	Runtime    RuntimeStats    `json:"runtime"`
}

type ModerationStats struct {
	OpenReports      report.OpenCounts `json:"openReports"`
	OpenReportsTotal int               `json:"openReportsTotal"`
	Admins           int               `json:"admins"`
	Members          int               `json:"members"`
	ElevatedMembers  int               `json:"elevatedMembers"`
}

type DBPoolStats struct {
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`
	WaitDuration    string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
