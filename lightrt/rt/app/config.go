package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gekko3d/lightbake/lightrt/rt/core"
	"github.com/gekko3d/lightbake/lightrt/rt/dynamic"
	"github.com/gekko3d/lightbake/lightrt/rt/pack"
	"github.com/gekko3d/lightbake/lightrt/rt/receiver"
	"gopkg.in/yaml.v3"
)

type VolumeSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	Depth  int `json:"depth" yaml:"depth"`
}

type Settings struct {
	LightmapResolution int        `json:"lightmap_resolution" yaml:"lightmap_resolution"`
	Padding            int        `json:"padding" yaml:"padding"`
	Volume             VolumeSize `json:"volume" yaml:"volume"`
	UseFrameGroups     bool       `json:"use_frame_groups" yaml:"use_frame_groups"`
	MirrorVolumeX      bool       `json:"mirror_volume_x" yaml:"mirror_volume_x"`
	Debug              bool       `json:"debug" yaml:"debug"`
}

func DefaultSettings() Settings {
	return Settings{
		LightmapResolution: 1024,
		Padding:            2,
		UseFrameGroups:     true,
	}
}

func (s Settings) Validate() error {
	if s.LightmapResolution <= 0 {
		return fmt.Errorf("lightmap resolution must be positive, got %d", s.LightmapResolution)
	}
	if s.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", s.Padding)
	}
	return s.Volume.validate(s.MirrorVolumeX, false)
}

// validate checks v against the limits of packed cell coordinates. A zero
// size is accepted unless required is set.
func (v VolumeSize) validate(mirrorX, required bool) error {
	if v.Width < 0 || v.Height < 0 || v.Depth < 0 || required && (v.Width == 0 || v.Height == 0 || v.Depth == 0) {
		return fmt.Errorf("invalid volume size %dx%dx%d", v.Width, v.Height, v.Depth)
	}
	maxWidth := receiver.MaxVolumeWidth
	if mirrorX {
		maxWidth = receiver.MaxMirroredVolumeWidth
	}
	if v.Width > maxWidth || v.Height > receiver.MaxVolumeHeight || v.Depth > receiver.MaxVolumeDepth {
		return fmt.Errorf("volume size %dx%dx%d exceeds %dx%dx%d", v.Width, v.Height, v.Depth,
			maxWidth, receiver.MaxVolumeHeight, receiver.MaxVolumeDepth)
	}
	return nil
}

// gridSize bounds receiver positions. A zero depth means a 2D lightmap,
// where z is ignored.
type gridSize struct {
	width, height, depth int
}

func (g gridSize) check(asset *core.ReceiverAsset) error {
	for l := 0; l < asset.LightCount(); l++ {
		for i, r := range asset.ForLight(l) {
			x, y, z := int(r.PosX), int(r.PosY), int(r.PosZ)
			if g.depth == 0 {
				if x >= g.width || y >= g.height {
					return fmt.Errorf("light %d texel %d at (%d,%d) outside %dx%d", l, i, x, y, g.width, g.height)
				}
				continue
			}
			if x >= g.width || y >= g.height || z >= g.depth {
				return fmt.Errorf("light %d cell %d at (%d,%d,%d) outside %dx%dx%d", l, i, x, y, z, g.width, g.height, g.depth)
			}
		}
	}
	return nil
}

// LightConfig describes one dynamic light. Culling fields left out of the
// file keep their defaults.
type LightConfig struct {
	Name      string  `json:"name" yaml:"name"`
	Intensity float32 `json:"intensity" yaml:"intensity"`

	dynamic.CullingSettings `yaml:",inline"`
}

func DefaultLightConfig() LightConfig {
	return LightConfig{CullingSettings: dynamic.DefaultCullingSettings()}
}

func (c *LightConfig) UnmarshalJSON(data []byte) error {
	type plain LightConfig
	p := plain(DefaultLightConfig())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = LightConfig(p)
	return nil
}

func (c *LightConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain LightConfig
	p := plain(DefaultLightConfig())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = LightConfig(p)
	return nil
}

// NewLight creates the runtime light for c.
func (c LightConfig) NewLight() *dynamic.Light {
	l := dynamic.NewLight(c.Name, c.Intensity)
	l.Culling = c.CullingSettings
	return l
}

// ChartConfig is one lightmap chart to place in the atlas.
type ChartConfig struct {
	ID            int `json:"id" yaml:"id"`
	Width         int `json:"width" yaml:"width"`
	Height        int `json:"height" yaml:"height"`
	MinResolution int `json:"min_resolution,omitempty" yaml:"min_resolution,omitempty"`
}

func (c ChartConfig) Item() *pack.Item {
	return pack.NewItem(c.ID, c.Width, c.Height, c.MinResolution)
}

// Job is a bake import plus a scripted sequence of light intensities.
type Job struct {
	Settings            Settings            `json:"settings" yaml:"settings"`
	Lights              []LightConfig       `json:"lights" yaml:"lights"`
	Charts              []ChartConfig       `json:"charts,omitempty" yaml:"charts,omitempty"`
	LightmapReceivers   *core.ReceiverAsset `json:"lightmap_receivers,omitempty" yaml:"lightmap_receivers,omitempty"`
	VolumetricReceivers *core.ReceiverAsset `json:"volumetric_receivers,omitempty" yaml:"volumetric_receivers,omitempty"`

	// Frames[i][l] is the intensity of light l at frame i.
	Frames [][]float32 `json:"frames,omitempty" yaml:"frames,omitempty"`
}

var ErrUnknownFormat = errors.New("unknown job file format")

func NewJob() *Job {
	return &Job{Settings: DefaultSettings()}
}

func (j *Job) Items() []*pack.Item {
	items := make([]*pack.Item, len(j.Charts))
	for i, c := range j.Charts {
		items[i] = c.Item()
	}
	return items
}

func (j *Job) NewLights() []*dynamic.Light {
	lights := make([]*dynamic.Light, len(j.Lights))
	for i, c := range j.Lights {
		lights[i] = c.NewLight()
	}
	return lights
}

func (j *Job) Validate() error {
	if err := j.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if len(j.Lights) > receiver.MaxDynamicLights {
		return fmt.Errorf("%d lights exceed the limit of %d", len(j.Lights), receiver.MaxDynamicLights)
	}
	assets := []struct {
		name  string
		asset *core.ReceiverAsset
	}{
		{"lightmap receivers", j.LightmapReceivers},
		{"volumetric receivers", j.VolumetricReceivers},
	}
	for _, a := range assets {
		if a.asset == nil {
			continue
		}
		if err := a.asset.Validate(); err != nil {
			return fmt.Errorf("%s: %w", a.name, err)
		}
		if a.asset.LightCount() > len(j.Lights) {
			return fmt.Errorf("%s: %d lights baked but %d configured", a.name, a.asset.LightCount(), len(j.Lights))
		}
	}
	if j.LightmapReceivers != nil {
		res := j.Settings.LightmapResolution
		if err := (gridSize{res, res, 0}).check(j.LightmapReceivers); err != nil {
			return fmt.Errorf("lightmap receivers: %w", err)
		}
	}
	if j.VolumetricReceivers != nil && j.VolumetricReceivers.LightCount() > 0 {
		v := j.Settings.Volume
		if err := v.validate(j.Settings.MirrorVolumeX, true); err != nil {
			return fmt.Errorf("volumetric receivers: %w", err)
		}
		if err := (gridSize{v.Width, v.Height, v.Depth}).check(j.VolumetricReceivers); err != nil {
			return fmt.Errorf("volumetric receivers: %w", err)
		}
	}
	for i, f := range j.Frames {
		if len(f) != len(j.Lights) {
			return fmt.Errorf("frame %d has %d intensities for %d lights", i, len(f), len(j.Lights))
		}
	}
	return nil
}

func jobFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("%s: %w %q", path, ErrUnknownFormat, ext)
	}
}

// LoadJob reads a .json or .yaml job file. Settings missing from the file
// keep their defaults.
func LoadJob(path string) (*Job, error) {
	format, err := jobFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}

	job := NewJob()
	switch format {
	case "json":
		err = json.Unmarshal(data, job)
	case "yaml":
		err = yaml.Unmarshal(data, job)
	}
	if err != nil {
		return nil, fmt.Errorf("decode job %s: %w", path, err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job %s: %w", path, err)
	}
	return job, nil
}

func SaveJob(path string, job *Job) error {
	format, err := jobFormat(path)
	if err != nil {
		return err
	}
	var data []byte
	switch format {
	case "json":
		data, err = json.MarshalIndent(job, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(job)
	}
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
