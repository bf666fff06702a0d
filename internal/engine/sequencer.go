package engine

import (
	"wealthos.app/roundtable/internal/model"
)

// PickNextEligible scans participants starting at scanStart, wrapping
// circularly, and returns the first one whose speech count is below quota.
// Returns nil when no participant remains eligible (session-complete signal).
// wrapped reports whether the scan passed the end of the order, which is the
// round-increment trigger. Strict seat order from the scan start keeps the
// result fully deterministic for identical inputs.
func PickNextEligible(order []model.Participant, scanStart int, counts map[int]int, quota int) (next *model.Participant, wrapped bool) {
	n := len(order)
	if n == 0 {
		return nil, false
	}
	if scanStart < 0 || scanStart >= n {
		scanStart = 0
	}

	for i := 0; i < n; i++ {
		idx := (scanStart + i) % n
		if idx < scanStart {
			wrapped = true
		}
		p := order[idx]
		if counts[p.Seat] < quota {
			return &order[idx], wrapped
		}
	}
	return nil, wrapped
}

// OpeningSeat returns the seat the very first pass starts from: always the
// manager, regardless of what the raw cursor says, so every discussion has a
// consistent opening move. Falls back to seat 0 when no manager is configured.
func OpeningSeat(order []model.Participant) int {
	for _, p := range order {
		if p.Role == model.RoleManager {
			return p.Seat
		}
	}
	return 0
}

// ManagerOf returns the manager participant, or nil if none is configured.
func ManagerOf(order []model.Participant) *model.Participant {
	for i := range order {
		if order[i].Role == model.RoleManager {
			return &order[i]
		}
	}
	return nil
}

// UserOf returns the user participant, or nil if none is configured.
func UserOf(order []model.Participant) *model.Participant {
	for i := range order {
		if order[i].Role == model.RoleUser {
			return &order[i]
		}
	}
	return nil
}

// AllQuotasMet reports whether every participant has spoken at least quota times.
func AllQuotasMet(order []model.Participant, counts map[int]int, quota int) bool {
	for _, p := range order {
		if counts[p.Seat] < quota {
			return false
		}
	}
	return true
}
