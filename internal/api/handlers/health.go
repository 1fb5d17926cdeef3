package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/irfndi/capm-lab-go/internal/cache"
)

var startTime = time.Now()

// HealthChecker is implemented by every optional backing service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SessionStatsProvider reports session store counters.
type SessionStatsProvider interface {
	SessionStats() (cache.SessionCacheStats, bool)
}

type HealthHandler struct {
	checkers map[string]HealthChecker
	sessions SessionStatsProvider
	version  string
	memory   func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

type SystemStats struct {
	MemoryTotalMB     uint64  `json:"memory_total_mb"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]string        `json:"services"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	System    *SystemStats             `json:"system,omitempty"`
	Sessions  *cache.SessionCacheStats `json:"sessions,omitempty"`
}

// NewHealthHandler creates the health handler. Only configured services are
// passed in; an empty map means the lab runs fully in memory. sessions may be
// nil.
func NewHealthHandler(checkers map[string]HealthChecker, sessions SessionStatsProvider, version string) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		sessions: sessions,
		version:  version,
		memory:   mem.VirtualMemoryWithContext,
	}
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	services := map[string]string{"lab": "healthy"}
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	overallStatus := "healthy"
	for _, name := range names {
		if err := h.checkers[name].HealthCheck(ctx); err != nil {
			services[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			services[name] = "healthy"
		}
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
	}

	if vm, err := h.memory(ctx); err == nil {
		response.System = &SystemStats{
			MemoryTotalMB:     vm.Total / 1024 / 1024,
			MemoryUsedPercent: vm.UsedPercent,
		}
	}

	if h.sessions != nil {
		if stats, ok := h.sessions.SessionStats(); ok {
			response.Sessions = &stats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if overallStatus == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Liveness check for container restarts
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	}); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
