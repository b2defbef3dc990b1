package service

import (
	"context"
	"time"

	"github.com/smartcity/transitnet/internal/agent"
	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
)

// DashboardData aggregates all live monitoring data
type DashboardData struct {
	Vehicles     []domain.VehicleSnapshot `json:"vehicles"`
	Stats        Stats                    `json:"stats"`
	GraphVersion uint64                   `json:"graph_version"`
	Timestamp    time.Time                `json:"timestamp"`
}

// NetworkView is the renderable form of the road network.
type NetworkView struct {
	Version uint64         `json:"version"`
	Nodes   []network.Node `json:"nodes"`
	Edges   []network.Edge `json:"edges"`
}

// DashboardService aggregates fleet, request and network state for the
// read-only monitoring surface.
type DashboardService struct {
	fleet *agent.FleetRegistry
	stats *StatsCollector
	net   *network.RoadNetwork
	repo  domain.EventRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(fleet *agent.FleetRegistry, stats *StatsCollector, net *network.RoadNetwork, repo domain.EventRepository) *DashboardService {
	return &DashboardService{fleet: fleet, stats: stats, net: net, repo: repo}
}

// GetDashboard returns the aggregated live view.
func (s *DashboardService) GetDashboard(ctx context.Context) DashboardData {
	return DashboardData{
		Vehicles:     s.fleet.Snapshot(),
		Stats:        s.stats.Snapshot(),
		GraphVersion: s.net.Version(),
		Timestamp:    time.Now(),
	}
}

// GetVehicles returns the latest fleet snapshots.
func (s *DashboardService) GetVehicles() []domain.VehicleSnapshot {
	return s.fleet.Snapshot()
}

// GetNetwork returns the current topology with live weights.
func (s *DashboardService) GetNetwork() NetworkView {
	topo := s.net.Snapshot()
	return NetworkView{
		Version: topo.Version,
		Nodes:   topo.Nodes(),
		Edges:   topo.Edges(),
	}
}

// GetRecentEvents returns the newest persisted events.
func (s *DashboardService) GetRecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.repo.GetRecentEvents(ctx, limit)
}

// GetRequestHistory returns archived requests within the time range.
func (s *DashboardService) GetRequestHistory(ctx context.Context, from, to time.Time) ([]domain.RideRequest, error) {
	return s.repo.GetArchivedRequests(ctx, from, to)
}
