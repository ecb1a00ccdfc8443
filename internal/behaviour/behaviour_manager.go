// Package behaviour drives per frame scene updates such as animated lights.
package behaviour

import (
	"Forge3D/internal/actor"
	"Forge3D/internal/renderer"
)

// Scene is what a behaviour may act on.
type Scene interface {
	Meshes() []*actor.StaticMesh
	Lights() []*renderer.Light
}

type Behaviour interface {
	Start(scene Scene)
	Update(scene Scene, deltaTime float64)
	UpdateFixed(scene Scene)
}

type behaviourWrapper struct {
	behaviour Behaviour
	started   bool
}

// Manager starts behaviours lazily on their first update.
type Manager struct {
	behaviours []behaviourWrapper
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Add(b Behaviour) {
	m.behaviours = append(m.behaviours, behaviourWrapper{behaviour: b})
}

func (m *Manager) Remove(b Behaviour) {
	for i := range m.behaviours {
		if m.behaviours[i].behaviour == b {
			m.behaviours[i] = m.behaviours[len(m.behaviours)-1]
			m.behaviours = m.behaviours[:len(m.behaviours)-1]
			return
		}
	}
}

// Clear removes all behaviours from the manager
func (m *Manager) Clear() {
	m.behaviours = m.behaviours[:0]
}

func (m *Manager) Len() int { return len(m.behaviours) }

func (m *Manager) start(scene Scene, w *behaviourWrapper) {
	if !w.started {
		w.behaviour.Start(scene)
		w.started = true
	}
}

func (m *Manager) UpdateAll(scene Scene, deltaTime float64) {
	for i := range m.behaviours {
		m.start(scene, &m.behaviours[i])
		m.behaviours[i].behaviour.Update(scene, deltaTime)
	}
}

func (m *Manager) UpdateAllFixed(scene Scene) {
	for i := range m.behaviours {
		m.start(scene, &m.behaviours[i])
		m.behaviours[i].behaviour.UpdateFixed(scene)
	}
}
