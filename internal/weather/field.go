package weather

import (
	"math"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/mini-mind/internal/agents"
)

// Field samples ambient conditions anywhere in the arena. Terrain is
// static; noise, visibility, and temperature drift over time.
type Field struct {
	terrain opensimplex.Noise
	noise   opensimplex.Noise
	fog     opensimplex.Noise
	heat    opensimplex.Noise

	mu       sync.RWMutex
	elapsed  float64 // simulated seconds
	baseTemp float64
	modifier Modifiers
}

// Tuning for the noise layers.
const (
	terrainScale = 0.02
	noiseScale   = 0.08
	noiseDrift   = 0.15 // field units per simulated second
	fogScale     = 0.01
	fogDrift     = 0.02
	heatDrift    = 0.005
	heatSwing    = 6.0 // ±°C around the base temperature
)

// NewField creates a field from a seed with a base temperature in °C.
func NewField(seed int64, baseTemp float64) *Field {
	return &Field{
		terrain:  opensimplex.NewNormalized(seed),
		noise:    opensimplex.NewNormalized(seed + 1),
		fog:      opensimplex.NewNormalized(seed + 2),
		heat:     opensimplex.NewNormalized(seed + 3),
		baseTemp: baseTemp,
		modifier: Modifiers{Visibility: 1},
	}
}

// Advance moves the field forward by dt simulated seconds.
func (f *Field) Advance(dt float64) {
	f.mu.Lock()
	f.elapsed += dt
	f.mu.Unlock()
}

// ApplyWeather folds real-world weather modifiers into the field.
func (f *Field) ApplyWeather(m Modifiers) {
	f.mu.Lock()
	f.modifier = m
	f.mu.Unlock()
}

// Sample returns the environment at a position.
func (f *Field) Sample(pos agents.Vec3) agents.Environment {
	f.mu.RLock()
	t := f.elapsed
	base := f.baseTemp
	mod := f.modifier
	f.mu.RUnlock()

	temp := base + (f.heat.Eval2(t*heatDrift, 0)*2-1)*heatSwing
	if mod.HasTemperature {
		temp = mod.Temperature + (f.heat.Eval2(t*heatDrift, 0)*2-1)*heatSwing*0.25
	}

	return agents.Environment{
		Temperature: temp,
		Visibility:  clamp01(f.fog.Eval3(pos.X*fogScale, pos.Z*fogScale, t*fogDrift) * mod.Visibility),
		NoiseLevel:  clamp01(octaveNoise(f.noise, pos.X*noiseScale+t*noiseDrift, pos.Z*noiseScale, 3, 1, 0.5)),
		Terrain:     f.TerrainAt(pos),
	}
}

// TerrainAt classifies the ground at a position by elevation.
func (f *Field) TerrainAt(pos agents.Vec3) agents.Terrain {
	elev := octaveNoise(f.terrain, pos.X, pos.Z, 4, terrainScale, 0.5)
	switch {
	case elev < 0.3:
		return agents.TerrainWater
	case elev < 0.55:
		return agents.TerrainPlains
	case elev < 0.75:
		return agents.TerrainForest
	default:
		return agents.TerrainMountain
	}
}

// octaveNoise layers several frequencies of normalized noise; the result
// stays in [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
