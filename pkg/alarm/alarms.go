package alarm

import "sync"

type ActiveAlarms struct {
	activeAlarms []string
	sync.RWMutex
}

// Add adds string to alarm list and returns true if it was added. returns false if it already exists.
func (a *ActiveAlarms) Add(alarm string) bool {
	a.Lock()
	defer a.Unlock()
	for _, activeAlarm := range a.activeAlarms {
		if activeAlarm == alarm {
			return false
		}
	}

	a.activeAlarms = append(a.activeAlarms, alarm)
	return true
}

// Remove removes alarm and returns true if it was active.
func (a *ActiveAlarms) Remove(alarm string) bool {
	a.Lock()
	defer a.Unlock()
	for i, activeAlarm := range a.activeAlarms {
		if activeAlarm == alarm {
			a.activeAlarms = append(a.activeAlarms[:i], a.activeAlarms[i+1:]...)
			return true
		}
	}
	return false
}

// Set replaces the active alarms with alarms and returns the ones that were not active before.
func (a *ActiveAlarms) Set(alarms []string) []string {
	a.Lock()
	defer a.Unlock()
	var added []string
	for _, alarm := range alarms {
		if !contains(a.activeAlarms, alarm) {
			added = append(added, alarm)
		}
	}
	a.activeAlarms = append([]string{}, alarms...)
	return added
}

func (a *ActiveAlarms) List() []string {
	a.RLock()
	defer a.RUnlock()
	return append([]string{}, a.activeAlarms...)
}

func (a *ActiveAlarms) Clear() bool {
	hasActive := false
	a.Lock()
	if len(a.activeAlarms) > 0 {
		hasActive = true
		a.activeAlarms = nil
	}
	a.Unlock()
	return hasActive
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
