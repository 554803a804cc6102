package config

import "sort"

func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

var Presets = map[string]*Config{
	"galaxy-small": preset(func(c *Config) {
		c.Bodies, c.Scheme, c.Iterations = 1000, "galaxy", 200
	}),
	"galaxy-large": preset(func(c *Config) {
		c.Bodies, c.Scheme, c.Iterations = 30000, "galaxy", 20
		c.Backend = "barnes-hut-parallel"
		c.TrackEnergy = false
	}),
	"flat-galaxy": preset(func(c *Config) {
		c.Bodies, c.Scheme, c.Iterations = 2000, "galaxy2", 100
		c.Backend, c.Schedule = "parallel", "guided"
	}),
	"random-cloud": preset(func(c *Config) {
		c.Bodies, c.Scheme, c.Iterations = 4000, "random", 50
		c.Backend, c.Batch = "pool", 4
	}),
	"orbit": preset(func(c *Config) {
		c.Bodies, c.Scheme, c.Iterations = 500, "galaxy+mod", 1000
		c.Backend = "simd"
		c.Physics.Dt = 60
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
