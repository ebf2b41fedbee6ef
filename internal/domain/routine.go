package domain

import "time"

// DailyRoutine is a named schedule the user follows.
type DailyRoutine struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Name        string         `json:"name"`
	Schedule    []RoutineBlock `json:"schedule"`
	IsOptimized bool           `json:"is_optimized"`
}

// RoutineBlock is one time slot in a routine.
type RoutineBlock struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
}

// Goal is a measurable target with a deadline.
type Goal struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Target   float64   `json:"target"`
	Current  float64   `json:"current"`
	Deadline time.Time `json:"deadline"`
}

// Progress returns completion as a percentage capped at 100.
func (g Goal) Progress() float64 {
	if g.Target <= 0 {
		return 0
	}
	return min(g.Current/g.Target*100, 100)
}
