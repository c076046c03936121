// Package metrics computes dashboard statistics over an in-memory ticket
// snapshot. Compute is pure and deterministic: the same inputs always produce
// the same snapshot, so callers can recompute on every filter change.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/souzalb/tv-senai/internal/models"
)

// FilterAll disables the service or attendant filter.
const FilterAll = "all"

type Params struct {
	Tickets      []models.Ticket
	ServiceTypes []models.ServiceType
	Profiles     []models.Profile

	// Date range, inclusive at day granularity. Zero values mean unbounded.
	From time.Time
	To   time.Time

	ServiceTypeID string
	AttendantID   string

	// Non-admin viewers only see tickets they attended themselves.
	ViewerRole string
	ViewerID   string
}

type ServiceStat struct {
	ServiceTypeID  string `json:"service_type_id"`
	Name           string `json:"name"`
	Completed      int    `json:"completed"`
	AvgWaitMinutes int    `json:"avg_wait_minutes"`
}

type AttendantStat struct {
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`
	DeskInfo  string `json:"desk_info,omitempty"`
	Completed int    `json:"completed"`
}

type Snapshot struct {
	TotalHandled     int             `json:"total_handled"`
	CurrentlyServing int             `json:"currently_serving"`
	AvgWaitMinutes   int             `json:"avg_wait_minutes"`
	EfficiencyPct    int             `json:"efficiency_pct"`
	ServiceStats     []ServiceStat   `json:"service_stats"`
	AttendantStats   []AttendantStat `json:"attendant_stats"`
	HourlyCounts     [24]int         `json:"hourly_counts"`
	MaxHourly        int             `json:"max_hourly"`
	PeakHour         int             `json:"peak_hour"`
	PeakHourCount    int             `json:"peak_hour_count"`
}

func Compute(p Params) Snapshot {
	filtered := filterTickets(p)

	var snapshot Snapshot
	for _, ticket := range filtered {
		if ticket.Status != models.StatusWaiting {
			snapshot.TotalHandled++
		}
		if ticket.Status == models.StatusCalled {
			snapshot.CurrentlyServing++
		}
		snapshot.HourlyCounts[ticket.CreatedAt.Hour()]++
	}

	snapshot.AvgWaitMinutes = avgWaitMinutes(filtered)

	if len(filtered) > 0 {
		handled := 0
		for _, ticket := range filtered {
			if ticket.Status == models.StatusCalled || ticket.Status == models.StatusCompleted {
				handled++
			}
		}
		snapshot.EfficiencyPct = roundRatio(float64(handled)*100, float64(len(filtered)))
	}

	snapshot.ServiceStats = serviceStats(p.ServiceTypes, filtered)
	snapshot.AttendantStats = attendantStats(p.Profiles, filtered)

	snapshot.MaxHourly = 1
	for hour, count := range snapshot.HourlyCounts {
		if count > snapshot.MaxHourly {
			snapshot.MaxHourly = count
		}
		// Strictly greater, so the earliest hour wins ties.
		if count > snapshot.PeakHourCount {
			snapshot.PeakHour = hour
			snapshot.PeakHourCount = count
		}
	}
	return snapshot
}

func filterTickets(p Params) []models.Ticket {
	from := p.From
	to := p.To
	if !from.IsZero() {
		from = startOfDay(from)
	}
	if !to.IsZero() {
		to = endOfDay(to)
	}

	restricted := p.ViewerRole != "" && p.ViewerRole != models.RoleSuperAdmin

	var filtered []models.Ticket
	for _, ticket := range p.Tickets {
		if restricted {
			if ticket.AttendantUserID == nil || *ticket.AttendantUserID != p.ViewerID {
				continue
			}
		}
		if p.ServiceTypeID != "" && p.ServiceTypeID != FilterAll && ticket.ServiceTypeID != p.ServiceTypeID {
			continue
		}
		if p.AttendantID != "" && p.AttendantID != FilterAll {
			if ticket.AttendantUserID == nil || *ticket.AttendantUserID != p.AttendantID {
				continue
			}
		}
		if !from.IsZero() && ticket.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && ticket.CreatedAt.After(to) {
			continue
		}
		filtered = append(filtered, ticket)
	}
	return filtered
}

// waitSample returns the wait in minutes when both timestamps exist and the
// delta is strictly positive. Clock skew can make called_at precede
// created_at; those samples are discarded rather than dragging the average
// negative.
func waitSample(ticket models.Ticket) (float64, bool) {
	if ticket.CalledAt == nil {
		return 0, false
	}
	delta := ticket.CalledAt.Sub(ticket.CreatedAt)
	if delta <= 0 {
		return 0, false
	}
	return delta.Minutes(), true
}

func avgWaitMinutes(tickets []models.Ticket) int {
	var sum float64
	count := 0
	for _, ticket := range tickets {
		if minutes, ok := waitSample(ticket); ok {
			sum += minutes
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return roundRatio(sum, float64(count))
}

func serviceStats(serviceTypes []models.ServiceType, tickets []models.Ticket) []ServiceStat {
	stats := make([]ServiceStat, 0, len(serviceTypes))
	for _, serviceType := range serviceTypes {
		stat := ServiceStat{ServiceTypeID: serviceType.ServiceTypeID, Name: serviceType.Name}
		var sum float64
		samples := 0
		for _, ticket := range tickets {
			if ticket.ServiceTypeID != serviceType.ServiceTypeID || ticket.Status != models.StatusCompleted {
				continue
			}
			stat.Completed++
			if minutes, ok := waitSample(ticket); ok {
				sum += minutes
				samples++
			}
		}
		if samples > 0 {
			stat.AvgWaitMinutes = roundRatio(sum, float64(samples))
		}
		stats = append(stats, stat)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Completed > stats[j].Completed
	})
	return stats
}

func attendantStats(profiles []models.Profile, tickets []models.Ticket) []AttendantStat {
	var stats []AttendantStat
	for _, profile := range profiles {
		if profile.Role != models.RoleAttendant && profile.Role != models.RoleSuperAdmin {
			continue
		}
		stat := AttendantStat{ProfileID: profile.ProfileID, Name: profile.Name, DeskInfo: profile.DeskInfo}
		for _, ticket := range tickets {
			if ticket.Status != models.StatusCompleted {
				continue
			}
			if ticket.AttendantUserID != nil && *ticket.AttendantUserID == profile.ProfileID {
				stat.Completed++
			}
		}
		stats = append(stats, stat)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Completed > stats[j].Completed
	})
	return stats
}

// roundRatio divides and rounds half-up to the nearest integer. Callers must
// not pass a zero denominator; every call site guards the empty case first.
func roundRatio(numerator, denominator float64) int {
	return int(math.Floor(numerator/denominator + 0.5))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
