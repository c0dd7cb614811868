package kot

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// complexityBonusMinutes is added to a ticket's estimate for every three
// items on it: preparation is dominated by the slowest item but larger
// tickets still queue longer at the pass.
const complexityBonusMinutes = 5

// Group partitions order items by department and creates one pending ticket
// per department. Tickets come back in department name order so the result
// is deterministic for a given item set.
func Group(orderID uuid.UUID, items []Item, now time.Time) []Ticket {
	byDept := make(map[string][]Item)
	for _, item := range items {
		dept := item.Department
		if dept == "" {
			dept = DefaultDepartment
		}
		byDept[dept] = append(byDept[dept], item)
	}

	depts := make([]string, 0, len(byDept))
	for dept := range byDept {
		depts = append(depts, dept)
	}
	sort.Strings(depts)

	tickets := make([]Ticket, 0, len(depts))
	for _, dept := range depts {
		group := byDept[dept]
		tickets = append(tickets, Ticket{
			ID:               uuid.New(),
			OrderID:          orderID,
			Department:       dept,
			Status:           StatusPending,
			ItemCount:        len(group),
			EstimatedMinutes: estimateMinutes(group),
			CreatedAt:        now,
		})
	}
	return tickets
}

// estimateMinutes is the slowest item's prep time plus a complexity bonus of
// five minutes per three items on the ticket.
func estimateMinutes(group []Item) int {
	var longest int
	for _, item := range group {
		if item.PrepMinutes > longest {
			longest = item.PrepMinutes
		}
	}
	return longest + complexityBonusMinutes*(len(group)/3)
}

// AllTicketsReady reports whether every ticket has reached ready or served.
// Promoting the parent order to ready on that basis is the caller's policy;
// neither state machine drives the other.
func AllTicketsReady(tickets []Ticket) bool {
	if len(tickets) == 0 {
		return false
	}
	for _, t := range tickets {
		if t.Status != StatusReady && t.Status != StatusServed {
			return false
		}
	}
	return true
}
