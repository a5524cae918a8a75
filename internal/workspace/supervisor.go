package workspace

import (
	"time"

	"github.com/google/uuid"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// ShiftState is the supervisor's view of the agent's shift
type ShiftState struct {
	Active      bool              `json:"active"`
	ShiftID     string            `json:"shiftId,omitempty"`
	Status      types.AgentStatus `json:"status"`
	StatusLabel string            `json:"statusLabel"`
	StatusSince time.Time         `json:"statusSince"`
	ShiftStart  *time.Time        `json:"shiftStart,omitempty"`
	WorkTime    string            `json:"workTime"`
	BreakTime   string            `json:"breakTime"`
	BreakCount  int               `json:"breakCount"`
	Disposed    int               `json:"disposed"`
}

// Supervisor tracks agent status, breaks and the shift. Not safe for concurrent use.
type Supervisor struct {
	agentID     string
	status      types.AgentStatus
	statusStart time.Time

	shiftID    string
	shiftStart time.Time
	breakStart time.Time
	breakTotal time.Duration
	breakCount int
	disposed   int
}

// NewSupervisor creates an offline supervisor
func NewSupervisor(agentID string, now time.Time) *Supervisor {
	return &Supervisor{agentID: agentID, status: types.StatusOffline, statusStart: now}
}

// Status returns the current status
func (s *Supervisor) Status() types.AgentStatus {
	return s.status
}

// StatusSince returns when the current status began
func (s *Supervisor) StatusSince() time.Time {
	return s.statusStart
}

// ShiftActive reports whether a shift is running
func (s *Supervisor) ShiftActive() bool {
	return s.shiftID != ""
}

// CanWork reports whether contacts may be loaded and dialed
func (s *Supervisor) CanWork() bool {
	return s.ShiftActive() && s.status != types.StatusBreak && s.status != types.StatusOffline
}

// StartShift opens a shift and makes the agent available
func (s *Supervisor) StartShift(now time.Time) error {
	if s.ShiftActive() {
		return apperr.Conflict("shift already started")
	}
	s.shiftID = uuid.New().String()
	s.shiftStart = now
	s.breakTotal = 0
	s.breakCount = 0
	s.disposed = 0
	s.set(types.StatusAvailable, now)
	return nil
}

// EndShift closes the shift and returns its audit row
func (s *Supervisor) EndShift(now time.Time) (types.ShiftRecord, error) {
	if !s.ShiftActive() {
		return types.ShiftRecord{}, apperr.Precondition("no shift in progress")
	}
	if s.status == types.StatusBusy {
		return types.ShiftRecord{}, apperr.Conflict("finish the current call before ending the shift")
	}
	s.set(types.StatusOffline, now)

	record := types.ShiftRecord{
		AgentID:      s.agentID,
		ShiftID:      s.shiftID,
		Date:         s.shiftStart.Format("2006-01-02"),
		StartedAt:    s.shiftStart.Format(time.RFC3339),
		EndedAt:      now.Format(time.RFC3339),
		WorkTime:     s.WorkTime(now).Seconds(),
		BreakTime:    s.breakTotal.Seconds(),
		BreakCount:   s.breakCount,
		Dispositions: s.disposed,
	}
	s.shiftID = ""
	return record, nil
}

// SetStatus changes the status within an active shift
func (s *Supervisor) SetStatus(status types.AgentStatus, now time.Time) error {
	if !status.Valid() {
		return apperr.Validation("unknown status " + string(status))
	}
	if !s.ShiftActive() {
		return apperr.Precondition("start a shift first")
	}
	if status == types.StatusOffline {
		return apperr.Validation("end the shift to go offline")
	}
	s.set(status, now)
	return nil
}

// CountDisposition adds one disposed contact to the shift
func (s *Supervisor) CountDisposition() {
	s.disposed++
}

// Disposed returns the contacts disposed in this shift
func (s *Supervisor) Disposed() int {
	return s.disposed
}

// WorkTime is time on shift excluding breaks
func (s *Supervisor) WorkTime(now time.Time) time.Duration {
	if s.shiftStart.IsZero() {
		return 0
	}
	end := now
	if !s.ShiftActive() {
		end = s.statusStart
	}
	return end.Sub(s.shiftStart) - s.BreakTime(end)
}

// BreakTime is total break time including a running break
func (s *Supervisor) BreakTime(now time.Time) time.Duration {
	total := s.breakTotal
	if s.status == types.StatusBreak {
		total += now.Sub(s.breakStart)
	}
	return total
}

// State returns a snapshot for the workspace view
func (s *Supervisor) State(now time.Time) ShiftState {
	st := ShiftState{
		Active:      s.ShiftActive(),
		ShiftID:     s.shiftID,
		Status:      s.status,
		StatusLabel: types.StatusLabels[s.status],
		StatusSince: s.statusStart,
		WorkTime:    FormatClock(s.WorkTime(now)),
		BreakTime:   FormatClock(s.BreakTime(now)),
		BreakCount:  s.breakCount,
		Disposed:    s.disposed,
	}
	if s.ShiftActive() {
		start := s.shiftStart
		st.ShiftStart = &start
	}
	return st
}

func (s *Supervisor) set(status types.AgentStatus, now time.Time) {
	if s.status == status {
		return
	}
	if s.status == types.StatusBreak {
		s.breakTotal += now.Sub(s.breakStart)
		s.breakStart = time.Time{}
	}
	if status == types.StatusBreak {
		s.breakStart = now
		s.breakCount++
	}
	s.status = status
	s.statusStart = now
}

// BreakStart returns when the running break began
func (s *Supervisor) BreakStart() *time.Time {
	if s.status != types.StatusBreak {
		return nil
	}
	t := s.breakStart
	return &t
}

// ShiftStart returns when the running shift began
func (s *Supervisor) ShiftStart() *time.Time {
	if !s.ShiftActive() {
		return nil
	}
	t := s.shiftStart
	return &t
}
