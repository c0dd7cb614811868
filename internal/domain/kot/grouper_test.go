package kot

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_PartitionsByDepartment(t *testing.T) {
	orderID := uuid.New()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tickets := Group(orderID, []Item{
		{Department: "kitchen", PrepMinutes: 10},
		{Department: "kitchen", PrepMinutes: 15},
		{Department: "bar", PrepMinutes: 3},
	}, now)

	require.Len(t, tickets, 2)

	// Department name order: bar before kitchen.
	assert.Equal(t, "bar", tickets[0].Department)
	assert.Equal(t, 1, tickets[0].ItemCount)
	assert.Equal(t, "kitchen", tickets[1].Department)
	assert.Equal(t, 2, tickets[1].ItemCount)

	for _, tk := range tickets {
		assert.Equal(t, orderID, tk.OrderID)
		assert.Equal(t, StatusPending, tk.Status)
		assert.Equal(t, 0, tk.PrintCount)
		assert.Equal(t, now, tk.CreatedAt)
	}
}

func TestGroup_DefaultsToKitchen(t *testing.T) {
	tickets := Group(uuid.New(), []Item{
		{PrepMinutes: 5},
		{Department: "kitchen", PrepMinutes: 8},
	}, time.Now())

	require.Len(t, tickets, 1)
	assert.Equal(t, DefaultDepartment, tickets[0].Department)
	assert.Equal(t, 2, tickets[0].ItemCount)
}

func TestGroup_EstimateIsMaxPlusComplexityBonus(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  int
	}{
		{
			name:  "single item uses its own prep time",
			items: []Item{{PrepMinutes: 12}},
			want:  12,
		},
		{
			name:  "two items use the slowest, no bonus yet",
			items: []Item{{PrepMinutes: 12}, {PrepMinutes: 7}},
			want:  12,
		},
		{
			name:  "three items add one bonus block",
			items: []Item{{PrepMinutes: 12}, {PrepMinutes: 7}, {PrepMinutes: 4}},
			want:  17,
		},
		{
			name: "six items add two bonus blocks",
			items: []Item{
				{PrepMinutes: 10}, {PrepMinutes: 10}, {PrepMinutes: 10},
				{PrepMinutes: 10}, {PrepMinutes: 10}, {PrepMinutes: 20},
			},
			want: 30,
		},
		{
			name:  "zero prep items still get the bonus",
			items: []Item{{}, {}, {}},
			want:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tickets := Group(uuid.New(), tt.items, time.Now())
			require.Len(t, tickets, 1)
			assert.Equal(t, tt.want, tickets[0].EstimatedMinutes)
		})
	}
}

func TestGroup_NoItems(t *testing.T) {
	assert.Empty(t, Group(uuid.New(), nil, time.Now()))
}

func TestAllTicketsReady(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     bool
	}{
		{"all ready", []Status{StatusReady, StatusReady}, true},
		{"ready and served mix", []Status{StatusReady, StatusServed}, true},
		{"one still preparing", []Status{StatusReady, StatusPreparing}, false},
		{"one still pending", []Status{StatusServed, StatusPending}, false},
		{"no tickets", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tickets := make([]Ticket, len(tt.statuses))
			for i, st := range tt.statuses {
				tickets[i] = Ticket{Status: st}
			}
			assert.Equal(t, tt.want, AllTicketsReady(tickets))
		})
	}
}
