package app

import (
	"errors"
	"fmt"
	"image"

	"github.com/gekko3d/lightbake/lightrt/rt/core"
	"github.com/gekko3d/lightbake/lightrt/rt/dynamic"
	"github.com/gekko3d/lightbake/lightrt/rt/pack"
	"github.com/gekko3d/lightbake/lightrt/rt/receiver"
)

// ErrAtlasOverflow is returned when charts still need more than one
// lightmap after shrinking to their minimum resolution.
var ErrAtlasOverflow = errors.New("charts do not fit a single lightmap")

// ErrChartSkipped is returned when a chart could not be placed at all, for
// example because its minimum resolution exceeds the lightmap.
var ErrChartSkipped = errors.New("charts left out of the lightmap")

type (
	LightmapPass   = dynamic.Pass[receiver.PackedLightmapReceiver]
	VolumetricPass = dynamic.Pass[receiver.PackedVolumetricReceiver]
)

// FrameUpdate is the relighting work of one frame. A nil frame means the
// corresponding pass has nothing to do.
type FrameUpdate struct {
	Lightmap   *dynamic.Frame[receiver.PackedLightmapReceiver]
	Volumetric *dynamic.Frame[receiver.PackedVolumetricReceiver]
}

func (u FrameUpdate) Empty() bool {
	return u.Lightmap == nil && u.Volumetric == nil
}

func (u FrameUpdate) DispatchCount() int {
	n := 0
	if u.Lightmap != nil {
		n += len(u.Lightmap.Dispatches)
	}
	if u.Volumetric != nil {
		n += len(u.Volumetric.Dispatches)
	}
	return n
}

// Manager owns the baked dynamic lighting of one scene: the lightmap atlas,
// the receiver groups of both lightmap kinds and the passes that refresh
// them as lights change.
type Manager struct {
	Settings Settings
	Lights   []*dynamic.Light
	Profiler *Profiler

	Atlas      *pack.Session
	Lightmap   receiver.LightmapResult
	Volumetric receiver.VolumetricResult

	lightmapPass   *LightmapPass
	volumetricPass *VolumetricPass

	log core.Logger
}

func NewManager(settings Settings, lights []*dynamic.Light, logger core.Logger) *Manager {
	return &Manager{
		Settings: settings,
		Lights:   lights,
		Profiler: NewProfiler(),
		log:      core.OrNop(logger),
	}
}

// NewManagerFromJob creates the manager and its lights from a loaded job.
func NewManagerFromJob(job *Job, logger core.Logger) *Manager {
	return NewManager(job.Settings, job.NewLights(), logger)
}

func (m *Manager) LightmapPass() *LightmapPass { return m.lightmapPass }

func (m *Manager) VolumetricPass() *VolumetricPass { return m.volumetricPass }

// Clear drops all imported receivers and the atlas.
func (m *Manager) Clear() {
	m.Atlas = nil
	m.Lightmap = receiver.LightmapResult{}
	m.Volumetric = receiver.VolumetricResult{}
	m.lightmapPass = nil
	m.volumetricPass = nil
}

// PackLightmaps places the charts into one square lightmap of
// Settings.LightmapResolution, shrinking them as needed. The items are
// updated in place. If they cannot be made to fit, the session is still
// returned along with ErrAtlasOverflow or ErrChartSkipped.
func (m *Manager) PackLightmaps(items []*pack.Item) (*pack.Session, error) {
	defer m.Profiler.Scope("pack")()

	res := m.Settings.LightmapResolution
	s := pack.ForcePackIntoSingleContainer(image.Pt(res, res), m.Settings.Padding, items, m.log)
	m.Atlas = s
	m.Profiler.SetCount("charts", len(items))
	m.Profiler.SetCount("lightmaps", s.ContainerCount())

	if s.ContainerCount() > 1 {
		return s, fmt.Errorf("%d charts need %d lightmaps of %dx%d: %w", len(items), s.ContainerCount(), res, res, ErrAtlasOverflow)
	}
	if skipped := pack.Skipped(items); len(skipped) > 0 {
		ids := make([]int, len(skipped))
		for i, it := range skipped {
			ids[i] = it.ID
		}
		return s, fmt.Errorf("charts %v do not fit a %dx%d lightmap: %w", ids, res, res, ErrChartSkipped)
	}
	if len(s.Layouts) == 1 {
		m.log.Infof("packed %d charts into %dx%d, %.1f%% used", len(items), res, res, 100*s.Layouts[0].Occupancy())
	}
	return s, nil
}

type cullingFor func(*dynamic.Light) (ratio, conservative float32)

func lightmapCulling(l *dynamic.Light) (float32, float32) {
	return l.Culling.CullingRatioForLightmap, l.Culling.ConservativeFactorForLightmap
}

func volumetricCulling(l *dynamic.Light) (float32, float32) {
	return l.Culling.CullingRatioForVolumetricLightmap, l.Culling.ConservativeFactorForVolumetricLightmap
}

// postProcess checks the receivers against the grid, culls every light's
// receivers with that light's settings and rebuilds the offset table.
func (m *Manager) postProcess(asset *core.ReceiverAsset, grid gridSize, culling cullingFor) (*core.ReceiverAsset, error) {
	if asset == nil {
		return &core.ReceiverAsset{}, nil
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if len(m.Lights) > receiver.MaxDynamicLights {
		return nil, fmt.Errorf("%d lights exceed the limit of %d", len(m.Lights), receiver.MaxDynamicLights)
	}
	if asset.LightCount() > len(m.Lights) {
		return nil, fmt.Errorf("%d lights baked but %d configured", asset.LightCount(), len(m.Lights))
	}
	if err := grid.check(asset); err != nil {
		return nil, err
	}

	out := &core.ReceiverAsset{}
	for i := 0; i < asset.LightCount(); i++ {
		ratio, conservative := culling(m.Lights[i])
		src := asset.ForLight(i)
		kept := receiver.CullAndSmooth(src, ratio, conservative)
		m.log.Debugf("light %d (%s): kept %d of %d receivers", i, m.Lights[i].Name, len(kept), len(src))
		out.AppendLight(kept)
	}
	return out, nil
}

// ImportLightmapReceivers culls and classifies lightmap receivers and
// replaces the lightmap pass.
func (m *Manager) ImportLightmapReceivers(asset *core.ReceiverAsset) error {
	res := m.Settings.LightmapResolution
	m.Profiler.BeginScope("cull lightmap")
	culled, err := m.postProcess(asset, gridSize{res, res, 0}, lightmapCulling)
	m.Profiler.EndScope("cull lightmap")
	if err != nil {
		return fmt.Errorf("import lightmap receivers: %w", err)
	}

	m.Profiler.BeginScope("classify lightmap")
	m.Lightmap = receiver.ImportLightmapReceivers(receiver.LightmapContext{
		Asset:              culled,
		LightCount:         len(m.Lights),
		Width:              res,
		Height:             res,
		DisableFrameGroups: !m.Settings.UseFrameGroups,
		Logger:             m.log,
	})
	m.Profiler.EndScope("classify lightmap")

	m.lightmapPass = dynamic.NewLightmapPass(m.Lightmap, m.log)
	m.Profiler.SetCount("lightmap groups", len(m.Lightmap.All()))
	m.Profiler.SetCount("lightmap receivers", m.Lightmap.ReceiverCount())
	if m.Lightmap.DroppedLocations > 0 {
		m.log.Warnf("%d lightmap texels are lit by more than %d dynamic lights and were dropped",
			m.Lightmap.DroppedLocations, receiver.MaxLightsPerReceiver)
	}
	return nil
}

// ImportVolumetricReceivers culls and classifies volume receivers and
// replaces the volumetric pass.
func (m *Manager) ImportVolumetricReceivers(asset *core.ReceiverAsset) error {
	v := m.Settings.Volume
	if asset != nil && asset.LightCount() > 0 {
		if err := v.validate(m.Settings.MirrorVolumeX, true); err != nil {
			return fmt.Errorf("import volumetric receivers: %w", err)
		}
	}

	m.Profiler.BeginScope("cull volumetric")
	culled, err := m.postProcess(asset, gridSize{v.Width, v.Height, v.Depth}, volumetricCulling)
	m.Profiler.EndScope("cull volumetric")
	if err != nil {
		return fmt.Errorf("import volumetric receivers: %w", err)
	}

	m.Profiler.BeginScope("classify volumetric")
	m.Volumetric = receiver.ImportVolumetricReceivers(receiver.VolumetricContext{
		Asset:              culled,
		LightCount:         len(m.Lights),
		Width:              v.Width,
		Height:             v.Height,
		Depth:              v.Depth,
		DisableFrameGroups: !m.Settings.UseFrameGroups,
		MirrorX:            m.Settings.MirrorVolumeX,
		Logger:             m.log,
	})
	m.Profiler.EndScope("classify volumetric")

	m.volumetricPass = dynamic.NewVolumetricPass(m.Volumetric, m.log)
	m.Profiler.SetCount("volumetric groups", len(m.Volumetric.All()))
	m.Profiler.SetCount("volumetric receivers", m.Volumetric.ReceiverCount())
	if m.Volumetric.DroppedLocations > 0 {
		m.log.Warnf("%d volume cells are lit by more than %d dynamic lights and were dropped",
			m.Volumetric.DroppedLocations, receiver.MaxLightsPerReceiver)
	}
	return nil
}

// Update samples the lights and selects this frame's relighting work.
// playing selects incremental updates; otherwise every group is refreshed.
func (m *Manager) Update(playing bool) FrameUpdate {
	defer m.Profiler.Scope("update")()

	var u FrameUpdate
	if len(m.Lights) == 0 {
		return u
	}
	for _, l := range m.Lights {
		l.Tick()
	}

	if m.lightmapPass != nil {
		if f, ok := m.lightmapPass.Begin(m.Lights, playing); ok {
			u.Lightmap = &f
		}
	}
	if m.volumetricPass != nil {
		if f, ok := m.volumetricPass.Begin(m.Lights, playing); ok {
			u.Volumetric = &f
		}
	}
	m.Profiler.AddCount("dispatches", u.DispatchCount())
	return u
}

// SetIntensities drives the lights in index order.
func (m *Manager) SetIntensities(values []float32) error {
	if len(values) != len(m.Lights) {
		return fmt.Errorf("got %d intensities for %d lights", len(values), len(m.Lights))
	}
	for i, v := range values {
		m.Lights[i].SetIntensity(v)
	}
	return nil
}
