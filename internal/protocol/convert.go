package protocol

import (
	"sort"
	"time"

	"glow/internal/engine"
	"glow/internal/plugin"
	"glow/internal/scene"
)

// NewState converts an engine snapshot to its wire form.
func NewState(st engine.State) State {
	out := State{
		Version:    Version,
		Seq:        st.Seq,
		Status:     string(st.Status),
		Animation:  st.Animation,
		Transport:  st.Transport,
		Brightness: st.Brightness,
		Pixels:     st.Pixels,
		FramesSent: st.FramesSent,
		LastError:  st.LastError,
		UpdatedAt:  st.UpdatedAt,
	}
	if st.Interval > 0 {
		out.IntervalMS = float64(st.Interval) / float64(time.Millisecond)
	}
	if len(st.Params) > 0 {
		out.Params = map[string]any(st.Params.Clone())
	}
	return out
}

// NewPluginInfo converts a registry descriptor, with parameters sorted by
// name for stable output.
func NewPluginInfo(desc plugin.Descriptor) PluginInfo {
	info := PluginInfo{
		Name:    desc.Name,
		Kind:    string(desc.Kind),
		Summary: desc.Summary,
	}
	names := desc.Schema.Names()
	sort.Strings(names)
	for _, name := range names {
		spec := desc.Schema[name]
		info.Params = append(info.Params, ParamInfo{
			Name:        name,
			Type:        string(spec.Type),
			Default:     spec.Default,
			Min:         spec.Min,
			Max:         spec.Max,
			Choices:     spec.Choices,
			Description: spec.Description,
		})
	}
	return info
}

// NewPluginList converts a descriptor slice in order.
func NewPluginList(descs []plugin.Descriptor) []PluginInfo {
	out := make([]PluginInfo, 0, len(descs))
	for _, desc := range descs {
		out = append(out, NewPluginInfo(desc))
	}
	return out
}

// NewSceneInfo converts a stored preset to its wire form.
func NewSceneInfo(s *scene.Scene) SceneInfo {
	info := SceneInfo{
		Name:       s.Name,
		Animation:  s.Animation,
		Brightness: s.Brightness,
		UpdatedAt:  s.UpdatedAt,
	}
	if len(s.Params) > 0 {
		info.Params = map[string]any(s.Params.Clone())
	}
	return info
}

// NewSceneList converts a preset slice in order.
func NewSceneList(scenes []*scene.Scene) []SceneInfo {
	out := make([]SceneInfo, 0, len(scenes))
	for _, s := range scenes {
		out = append(out, NewSceneInfo(s))
	}
	return out
}
