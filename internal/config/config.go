package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a chunk server instance.
// Files may be YAML or JSON; JSON parses as a YAML subset.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Upstream game server to federate with.
	GameServer GameServer `yaml:"game_server"`

	// This instance's client-facing listener.
	ChunkServer ChunkServer `yaml:"chunk_server"`

	// Event pipeline sizing.
	Queues Queues `yaml:"queues"`

	// Simulation tick intervals.
	Simulation Simulation `yaml:"simulation"`
}

// GameServer locates the authoritative upstream process.
type GameServer struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MaxClients int    `yaml:"max_clients"`
}

// Addr returns the dialable upstream address.
func (g GameServer) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// ChunkServer configures the client-facing listener.
type ChunkServer struct {
	ID         int64  `yaml:"id"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MaxClients int    `yaml:"max_clients"`
}

// Addr returns the listen address.
func (c ChunkServer) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Queues sizes the ingress queues and the worker pool. Zero values fall
// back to package defaults at construction.
type Queues struct {
	Capacity    int `yaml:"capacity"`
	WorkerQueue int `yaml:"worker_queue"`
	Workers     int `yaml:"workers"`
}

// Simulation holds the scheduler intervals.
type Simulation struct {
	SpawnIntervalSec   int `yaml:"spawn_interval_sec"`
	MoveIntervalSec    int `yaml:"move_interval_sec"`
	ActionTickMs       int `yaml:"action_tick_ms"`
	HarvestTickMs      int `yaml:"harvest_tick_ms"`
	CleanupIntervalSec int `yaml:"cleanup_interval_sec"`
}

// Default returns a Config with sensible defaults for local runs.
func Default() Config {
	return Config{
		LogLevel: "info",
		GameServer: GameServer{
			Host:       "127.0.0.1",
			Port:       9014,
			MaxClients: 1000,
		},
		ChunkServer: ChunkServer{
			ID:         1,
			Host:       "0.0.0.0",
			Port:       7777,
			MaxClients: 1000,
		},
		Queues: Queues{
			Capacity:    10000,
			WorkerQueue: 10000,
			Workers:     0, // 0 = logical CPU count
		},
		Simulation: Simulation{
			SpawnIntervalSec:   15,
			MoveIntervalSec:    3,
			ActionTickMs:       200,
			HarvestTickMs:      500,
			CleanupIntervalSec: 60,
		},
	}
}

// Load reads config from a YAML or JSON file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
