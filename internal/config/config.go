package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
)

// BidWeights are the system-wide constants of the bid cost formula
// cost = Fuel*fuelCost + ETA*estimatedTime + Traffic*trafficPenalty.
// The single most important tunable of the matching quality.
type BidWeights struct {
	Fuel    float64
	ETA     float64
	Traffic float64
}

// FuelParams bound the fuel model of fuel-consuming vehicle classes.
type FuelParams struct {
	Capacity    float64
	Consumption float64 // per base-weight unit travelled
	Reserve     float64 // below this an idle vehicle heads to refuel
}

// TrafficParams drive the periodic edge-weight perturbation.
type TrafficParams struct {
	Interval         time.Duration
	Jitter           float64 // fraction of Interval randomized each tick
	FactorMin        float64 // multipliers applied to base weights
	FactorMax        float64
	EdgeFraction     float64 // share of edges perturbed per tick
	RerouteTolerance float64 // reroute only past this cost-increase ratio
}

// VehicleSpec declares one vehicle of the simulated fleet.
type VehicleSpec struct {
	ID        string
	Class     domain.VehicleClass
	StartNode string
}

// Config is the full configuration surface consumed by the core.
type Config struct {
	Port         string
	WSPort       string
	DatabaseURL  string
	TopologyFile string
	Env          string

	Bid               BidWeights
	AuctionDeadline   time.Duration
	AcceptGrace       time.Duration
	PassengerPatience time.Duration
	BreakdownRate     float64
	RepairDuration    time.Duration
	RefuelDuration    time.Duration
	TimeScale         time.Duration // wall time per unit of edge weight
	StationRetryLimit int
	RetryBackoff      time.Duration // pause before re-auctioning a request

	Fuel    FuelParams
	Traffic TrafficParams

	// Classes maps each vehicle class to the edge tags it may traverse.
	Classes map[domain.VehicleClass]network.CapabilitySet
	Fleet   []VehicleSpec
}

// Load reads configuration from the environment, falling back to defaults
// that reproduce the reference scenario.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		WSPort:       getEnv("WS_PORT", "8081"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		TopologyFile: getEnv("TOPOLOGY_FILE", ""),
		Env:          getEnv("GO_ENV", "development"),

		Bid: BidWeights{
			Fuel:    getEnvFloat("BID_WEIGHT_FUEL", 1.0),
			ETA:     getEnvFloat("BID_WEIGHT_ETA", 1.0),
			Traffic: getEnvFloat("BID_WEIGHT_TRAFFIC", 0.5),
		},
		AuctionDeadline:   getEnvDuration("AUCTION_DEADLINE", 2*time.Second),
		AcceptGrace:       getEnvDuration("ACCEPT_GRACE", 2*time.Second),
		PassengerPatience: getEnvDuration("PASSENGER_PATIENCE", 30*time.Second),
		BreakdownRate:     getEnvFloat("BREAKDOWN_RATE", 0.01),
		RepairDuration:    getEnvDuration("REPAIR_DURATION", 5*time.Second),
		RefuelDuration:    getEnvDuration("REFUEL_DURATION", 3*time.Second),
		TimeScale:         getEnvDuration("TIME_SCALE", 100*time.Millisecond),
		StationRetryLimit: getEnvInt("STATION_RETRY_LIMIT", 2),
		RetryBackoff:      getEnvDuration("RETRY_BACKOFF", time.Second),

		Fuel: FuelParams{
			Capacity:    getEnvFloat("FUEL_CAPACITY", 100),
			Consumption: getEnvFloat("FUEL_CONSUMPTION", 0.2),
			Reserve:     getEnvFloat("FUEL_RESERVE", 15),
		},
		Traffic: TrafficParams{
			Interval:         getEnvDuration("TRAFFIC_INTERVAL", 15*time.Second),
			Jitter:           getEnvFloat("TRAFFIC_JITTER", 0.3),
			FactorMin:        getEnvFloat("TRAFFIC_FACTOR_MIN", 1.0),
			FactorMax:        getEnvFloat("TRAFFIC_FACTOR_MAX", 4.0),
			EdgeFraction:     getEnvFloat("TRAFFIC_EDGE_FRACTION", 0.2),
			RerouteTolerance: getEnvFloat("TRAFFIC_REROUTE_TOLERANCE", 0.25),
		},

		Classes: DefaultClasses(),
		Fleet:   DefaultFleet(),
	}
}

// DefaultClasses returns the built-in capability sets: buses run roads and
// highways, trams run roads and tram tracks.
func DefaultClasses() map[domain.VehicleClass]network.CapabilitySet {
	return map[domain.VehicleClass]network.CapabilitySet{
		domain.ClassBus:  network.NewCapabilitySet(network.CapRoad, network.CapHighway),
		domain.ClassTram: network.NewCapabilitySet(network.CapRoad, network.CapTramTrack),
	}
}

// DefaultFleet returns the reference fleet of three buses and two trams.
func DefaultFleet() []VehicleSpec {
	return []VehicleSpec{
		{ID: "bus-1", Class: domain.ClassBus, StartNode: "South"},
		{ID: "bus-2", Class: domain.ClassBus, StartNode: "University"},
		{ID: "bus-3", Class: domain.ClassBus, StartNode: "Airport"},
		{ID: "tram-1", Class: domain.ClassTram, StartNode: "North"},
		{ID: "tram-2", Class: domain.ClassTram, StartNode: "East"},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %v", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %v", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %v", key, raw, defaultValue)
		return defaultValue
	}
	return v
}
