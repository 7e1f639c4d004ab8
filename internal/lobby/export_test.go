package lobby

import "time"

func (m *Manager) SetCodeSource(fn func() string) {
	m.newCode = fn
}

func (m *Manager) SetClock(fn func() time.Time) {
	m.now = fn
}

var GenerateCode = generateCode
