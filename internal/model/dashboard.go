package model

type DashboardMetrics struct {
	TotalTicketsToday  int            `json:"total_tickets_today"`
	TicketsInQueue     int            `json:"tickets_in_queue"`
	TicketsBeingServed int            `json:"tickets_being_served"`
	TicketsCompleted   int            `json:"tickets_completed"`
	AverageWaitMinutes float64        `json:"average_wait_minutes"`
	Advisors           []*Advisor     `json:"advisors"`
	TicketsByQueueType map[string]int `json:"tickets_by_queue_type"`
	TicketsByStatus    map[string]int `json:"tickets_by_status"`
}
