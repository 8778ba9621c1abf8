// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ManuGH/acblink/internal/log"
	"github.com/google/uuid"
)

// DefaultPresetID is used when a recording references a missing preset.
const DefaultPresetID = "standard"

var builtinPresets = []Preset{
	{ID: "standard", Name: "Standard Quality", Format: FormatMP3, Bitrate: 128, AutoMetadata: true},
	{ID: "high", Name: "High Quality", Format: FormatMP3, Bitrate: 320, AutoMetadata: true},
	{ID: "voice", Name: "Voice / Talk", Format: FormatMP3, Bitrate: 64, AutoMetadata: true},
	{ID: "lossless", Name: "Lossless", Format: FormatFLAC, Bitrate: 0, AutoMetadata: true},
}

// BuiltinPresets returns copies of the presets that always exist.
func BuiltinPresets() []Preset {
	out := make([]Preset, len(builtinPresets))
	copy(out, builtinPresets)
	return out
}

// IsBuiltinPreset reports whether id names a built-in preset.
func IsBuiltinPreset(id string) bool {
	for _, p := range builtinPresets {
		if p.ID == id {
			return true
		}
	}
	return false
}

func builtinRank(id string) int {
	for i, p := range builtinPresets {
		if p.ID == id {
			return i
		}
	}
	return len(builtinPresets)
}

func normalizePreset(p Preset) (Preset, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Format = Format(strings.ToLower(strings.TrimSpace(string(p.Format))))
	if p.Name == "" {
		return p, fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}
	if !p.Format.Valid() {
		return p, fmt.Errorf("%w: unsupported format %q", ErrInvalidPreset, p.Format)
	}
	if p.Bitrate < 0 || p.SplitInterval < 0 {
		return p, fmt.Errorf("%w: bitrate and split_interval must be >= 0", ErrInvalidPreset)
	}
	if p.Format.Lossless() {
		p.Bitrate = 0
	} else if p.Bitrate == 0 {
		return p, fmt.Errorf("%w: bitrate is required for %s", ErrInvalidPreset, p.Format)
	}
	return p, nil
}

func sortPresets(ps []Preset) {
	sort.Slice(ps, func(i, j int) bool {
		ri, rj := builtinRank(ps[i].ID), builtinRank(ps[j].ID)
		if ri != rj {
			return ri < rj
		}
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}

// ensureBuiltinsLocked adds missing built-in presets and reports whether any were added.
func (m *Manager) ensureBuiltinsLocked() bool {
	added := false
	for _, p := range builtinPresets {
		if _, ok := m.presets[p.ID]; !ok {
			m.presets[p.ID] = p
			added = true
		}
	}
	return added
}

// resolvePresetLocked returns the preset for id, falling back to the standard preset.
func (m *Manager) resolvePresetLocked(id string) Preset {
	if p, ok := m.presets[id]; ok {
		return p
	}
	m.logger.Debug().
		Str(log.FieldPresetID, id).
		Msg("preset not found, falling back to standard")
	if p, ok := m.presets[DefaultPresetID]; ok {
		return p
	}
	return builtinPresets[0]
}

// ListPresets returns built-ins in their fixed order followed by custom presets by name.
func (m *Manager) ListPresets() []Preset {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Preset, 0, len(m.presets))
	for _, p := range m.presets {
		out = append(out, p)
	}
	sortPresets(out)
	return out
}

// GetPreset returns the preset with id.
func (m *Manager) GetPreset(id string) (Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presets[id]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrPresetNotFound, id)
	}
	return p, nil
}

// CreatePreset validates and stores a custom preset. An empty ID is generated.
func (m *Manager) CreatePreset(p Preset) (Preset, error) {
	p, err := normalizePreset(p)
	if err != nil {
		return Preset{}, err
	}

	m.mu.Lock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, exists := m.presets[p.ID]; exists {
		m.mu.Unlock()
		return Preset{}, fmt.Errorf("%w: preset %s already exists", ErrInvalidPreset, p.ID)
	}
	m.presets[p.ID] = p
	saveErr := m.savePresetsLocked()
	m.mu.Unlock()
	m.reportSave(saveErr)

	m.logger.Info().Str(log.FieldPresetID, p.ID).Str("name", p.Name).Msg("preset created")
	return p, nil
}

// UpdatePreset replaces an existing preset, built-ins included. Recordings
// created earlier keep the format and bitrate they copied.
func (m *Manager) UpdatePreset(id string, p Preset) (Preset, error) {
	p.ID = id
	p, err := normalizePreset(p)
	if err != nil {
		return Preset{}, err
	}

	m.mu.Lock()
	if _, ok := m.presets[id]; !ok {
		m.mu.Unlock()
		return Preset{}, fmt.Errorf("%w: %s", ErrPresetNotFound, id)
	}
	m.presets[id] = p
	saveErr := m.savePresetsLocked()
	m.mu.Unlock()
	m.reportSave(saveErr)
	return p, nil
}

// DeletePreset removes a custom preset. Built-ins are refused.
func (m *Manager) DeletePreset(id string) error {
	if IsBuiltinPreset(id) {
		return fmt.Errorf("%w: %s", ErrBuiltinPreset, id)
	}

	m.mu.Lock()
	if _, ok := m.presets[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPresetNotFound, id)
	}
	delete(m.presets, id)
	saveErr := m.savePresetsLocked()
	m.mu.Unlock()
	m.reportSave(saveErr)
	return nil
}
