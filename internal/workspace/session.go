package workspace

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/calltiming"
	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/dennisdiepolder/monti/agentdesk/internal/contactqueue"
	"github.com/dennisdiepolder/monti/agentdesk/internal/crmapi"
	"github.com/dennisdiepolder/monti/agentdesk/internal/disposition"
	"github.com/dennisdiepolder/monti/agentdesk/internal/events"
	"github.com/dennisdiepolder/monti/agentdesk/internal/messaging"
	"github.com/dennisdiepolder/monti/agentdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/agentdesk/internal/script"
	"github.com/dennisdiepolder/monti/agentdesk/internal/tasks"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Session is one agent's workspace. All state is guarded by mu; network calls to the
// CRM, the softphone and the messaging gateways run outside it.
type Session struct {
	agent  Agent
	deps   Deps
	logger zerolog.Logger

	mu       sync.Mutex
	gen      uint64 // bumped on campaign switch and teardown
	closed   bool
	sup      *Supervisor
	queue    *contactqueue.Queue
	autodial *contactqueue.AutoDialer
	campaign *types.Campaign
	disps    []types.Disposition
	trees    map[types.Channel]*disposition.Tree
	gate     *disposition.Gate
	tasks    *tasks.Tracker
	timeline *tasks.Timeline
	runner   *script.Runner
	channel  ChannelState
	timing   *calltiming.Tracker
	focused  *types.CampaignContact
	muted    bool
	held     bool

	wrapGen   uint64
	wrapTimer clock.Timer
}

// Outcome reports a finalized disposition
type Outcome struct {
	ContactID string             `json:"contactId"`
	Patch     types.ContactPatch `json:"patch"`
	Summary   string             `json:"summary"`
	Synced    bool               `json:"synced"`
}

// pendingDisposal carries the network half of a finalization out of the lock
type pendingDisposal struct {
	contact  types.CampaignContact
	result   types.DispositionResult
	patch    types.ContactPatch
	meta     *types.CallMeta
	campaign string
	summary  string
	at       time.Time
}

// NewSession creates an offline session for agent
func NewSession(agent Agent, deps Deps) *Session {
	deps.defaults()
	logger := deps.Logger.With().Str("component", "workspace").Str("agent_id", agent.ID).Logger()
	now := deps.Clock.Now()
	return &Session{
		agent:    agent,
		deps:     deps,
		logger:   logger,
		sup:      NewSupervisor(agent.ID, now),
		queue:    contactqueue.NewQueue(agent.ID, deps.Engine, deps.Logger),
		autodial: contactqueue.NewAutoDialer(deps.Clock),
		trees:    make(map[types.Channel]*disposition.Tree),
		gate:     disposition.NewGate(),
		tasks:    tasks.NewTracker(),
		timeline: tasks.NewTimeline(),
		channel:  InitialChannelState(),
		timing:   calltiming.NewTracker(),
	}
}

// Agent returns the session owner
func (s *Session) Agent() Agent {
	return s.agent
}

// StartShift opens the agent's shift
func (s *Session) StartShift(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperr.Precondition("session closed")
	}
	now := s.deps.Clock.Now()
	if err := s.sup.StartShift(now); err != nil {
		s.mu.Unlock()
		return err
	}
	s.armAutoLocked()
	s.mu.Unlock()

	s.logger.Info().Msg("Shift started")
	s.deps.Lifecycle.OnSessionStart(s.agent)
	s.recordSession(ctx, "shift_start", types.StatusAvailable, now)
	s.publish(ctx, events.New(events.ShiftStarted, s.agent.ID, now, map[string]string{"agentName": s.agent.Name}))
	return nil
}

// EndShift closes the shift, clearing timers and the open contact. It is refused while a
// call is running or a disposition is pending.
func (s *Session) EndShift(ctx context.Context) error {
	s.mu.Lock()
	if s.gate.Forced() {
		s.mu.Unlock()
		return apperr.Locked("dispose the last call before ending the shift")
	}
	if s.timing.State().InProgress() {
		s.mu.Unlock()
		return apperr.Conflict("finish the current call before ending the shift")
	}
	now := s.deps.Clock.Now()
	if s.sup.Status() == types.StatusBusy {
		s.sup.set(types.StatusAvailable, now)
	}
	record, err := s.sup.EndShift(now)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.teardownLocked()
	s.mu.Unlock()

	s.finishShift(ctx, record, now)
	return nil
}

// Close tears the session down, ending a running shift regardless of call state
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	now := s.deps.Clock.Now()
	var record *types.ShiftRecord
	if s.sup.ShiftActive() {
		if s.sup.Status() == types.StatusBusy {
			s.sup.set(types.StatusWrapUp, now)
		}
		if r, err := s.sup.EndShift(now); err == nil {
			record = &r
		}
	}
	s.teardownLocked()
	s.timing.Reset()
	s.mu.Unlock()

	if record != nil {
		s.finishShift(ctx, *record, now)
	}
	s.logger.Info().Msg("Session closed")
}

func (s *Session) finishShift(ctx context.Context, record types.ShiftRecord, now time.Time) {
	s.logger.Info().
		Float64("work_seconds", record.WorkTime).
		Int("dispositions", record.Dispositions).
		Msg("Shift ended")

	if err := s.deps.Store.SaveShiftRecord(ctx, record); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save shift record")
	}
	s.publish(ctx, events.New(events.ShiftEnded, s.agent.ID, now, record))
	s.recordSession(ctx, "shift_end", types.StatusOffline, now)
	s.deps.Lifecycle.OnSessionEnd(s.agent)
}

// SetStatus is the manual status picker. Only available and break can be chosen; busy and
// wrap-up follow the call flow.
func (s *Session) SetStatus(ctx context.Context, status types.AgentStatus) error {
	if status != types.StatusAvailable && status != types.StatusBreak {
		return apperr.Validation("status " + string(status) + " cannot be set manually")
	}

	s.mu.Lock()
	if s.timing.State().InProgress() {
		s.mu.Unlock()
		return apperr.Conflict("finish the current call first")
	}
	if status == types.StatusBreak && s.gate.Forced() {
		s.mu.Unlock()
		return apperr.Locked("dispose the last call before taking a break")
	}
	now := s.deps.Clock.Now()
	if err := s.sup.SetStatus(status, now); err != nil {
		s.mu.Unlock()
		return err
	}
	s.stopWrapLocked()
	if status == types.StatusBreak {
		s.autodial.Cancel()
	} else {
		s.armAutoLocked()
	}
	s.mu.Unlock()

	s.logger.Info().Str("status", string(status)).Msg("Status changed")
	s.recordSession(ctx, "status_change", status, now)
	return nil
}

// SelectCampaign switches the workspace to a campaign. Local state from the previous
// campaign is dropped before the load starts; a load overtaken by a newer switch is discarded.
func (s *Session) SelectCampaign(ctx context.Context, campaignID string) error {
	s.mu.Lock()
	if s.gate.Forced() {
		s.mu.Unlock()
		return apperr.Locked("dispose the last call before switching campaigns")
	}
	if s.timing.State().InProgress() {
		s.mu.Unlock()
		return apperr.Conflict("finish the current call before switching campaigns")
	}
	s.teardownLocked()
	s.campaign = nil
	s.disps = nil
	s.trees = make(map[types.Channel]*disposition.Tree)
	s.runner = nil
	gen := s.gen
	s.mu.Unlock()

	bundle, err := s.deps.CRM.LoadCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if !s.agent.CanSee(bundle.Campaign) {
		return apperr.Forbidden("campaign not available in your country")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		return apperr.Conflict("campaign selection was superseded")
	}
	campaign := bundle.Campaign
	s.campaign = &campaign
	s.queue.Load(campaign, bundle.Contacts)
	s.disps = bundle.Dispositions
	if bundle.Script != nil {
		s.runner = script.NewRunner(*bundle.Script)
	}
	s.armAutoLocked()

	s.logger.Info().
		Str("campaign_id", campaign.ID).
		Int("contacts", len(bundle.Contacts)).
		Int("dispositions", len(bundle.Dispositions)).
		Bool("auto_mode", campaign.Settings.AutoMode).
		Msg("Campaign selected")
	return nil
}

// Refresh refetches the campaign's contacts. Locally disposed contacts stay hidden.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.campaign == nil {
		s.mu.Unlock()
		return apperr.Precondition("no campaign selected")
	}
	campaign := *s.campaign
	gen := s.gen
	s.mu.Unlock()

	contacts, err := s.deps.CRM.ListCampaignContacts(ctx, campaign.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.queue.Load(campaign, contacts)
	return nil
}

// Queue returns the delivery partitions of the loaded campaign
func (s *Session) Queue() contactqueue.Partitions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Partitions(s.deps.Clock.Now())
}

// LoadNext focuses the head of the queue
func (s *Session) LoadNext() (types.CampaignContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.canSwitchContactLocked(); err != nil {
		return types.CampaignContact{}, err
	}
	now := s.deps.Clock.Now()
	next, ok := s.queue.Next(now)
	if !ok {
		return types.CampaignContact{}, apperr.NotFound("no contacts left in this campaign")
	}
	s.endWrapLocked(now)
	s.focusLocked(next, now)
	return next, nil
}

// FocusContact opens a specific contact, e.g. from search. An existing task for the
// contact is brought forward instead of opening a second one.
func (s *Session) FocusContact(contactID string) (types.CampaignContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.canSwitchContactLocked(); err != nil {
		return types.CampaignContact{}, err
	}
	now := s.deps.Clock.Now()
	if task, ok := s.tasks.ByContact(contactID); ok {
		s.focusTaskLocked(task)
		return task.Contact, nil
	}
	contact, ok := s.queue.Find(contactID)
	if !ok {
		return types.CampaignContact{}, apperr.NotFound("contact not found in this campaign")
	}
	if s.queue.Disposed(contactID) {
		return types.CampaignContact{}, apperr.Conflict("contact was already disposed")
	}
	s.endWrapLocked(now)
	s.focusLocked(contact, now)
	return contact, nil
}

// SwitchTask brings an open task to the front
func (s *Session) SwitchTask(taskID string) (types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate.Forced() {
		return types.Task{}, apperr.Locked("dispose the last call first")
	}
	if s.timing.State().InProgress() {
		return types.Task{}, apperr.Conflict("finish the current call first")
	}
	task, ok := s.tasks.Focus(taskID)
	if !ok {
		return types.Task{}, apperr.NotFound("task not found")
	}
	s.focusTaskLocked(task)
	return task, nil
}

// CloseTask drops an open task without disposing its contact
func (s *Session) CloseTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var task *types.Task
	for _, t := range s.tasks.List() {
		if t.ID == taskID {
			t := t
			task = &t
		}
	}
	if task == nil {
		return apperr.NotFound("task not found")
	}
	if s.focused != nil && s.focused.ID == task.Contact.ID {
		if s.gate.Forced() {
			return apperr.Locked("dispose the last call first")
		}
		if s.timing.State().InProgress() {
			return apperr.Conflict("finish the current call first")
		}
		s.clearFocusLocked()
		s.gate.Reset()
	}
	s.tasks.Remove(taskID)
	s.armAutoLocked()
	return nil
}

// Tasks lists the open tasks
func (s *Session) Tasks() []types.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.List()
}

// SelectChannel switches the canvas; the phone channel is kept during a call
func (s *Session) SelectChannel(ch types.Channel) ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = ReduceChannel(s.channel, ChannelAction{Kind: SelectChannel, Channel: ch})
	if task, ok := s.tasks.Active(); ok {
		s.tasks.SetChannel(task.ID, s.channel.Channel)
	}
	return s.channel
}

// SelectPhoneTab switches the phone sub-view
func (s *Session) SelectPhoneTab(tab PhoneTab) ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = ReduceChannel(s.channel, ChannelAction{Kind: SelectPhoneTab, PhoneTab: tab})
	return s.channel
}

// Dial calls number, or the focused contact's phone when number is empty
func (s *Session) Dial(number string) (string, error) {
	s.mu.Lock()
	if !s.sup.CanWork() {
		s.mu.Unlock()
		return "", apperr.Precondition("start your shift and leave break before dialing")
	}
	if s.gate.IsOpen() {
		s.mu.Unlock()
		return "", apperr.Locked("dispose the last call first")
	}
	if s.timing.State().InProgress() {
		s.mu.Unlock()
		return "", apperr.Conflict("a call is already in progress")
	}
	if number == "" {
		if s.focused == nil {
			s.mu.Unlock()
			return "", apperr.Precondition("no contact loaded")
		}
		number = s.focused.Customer.Phone
		if number == "" {
			s.mu.Unlock()
			return "", apperr.Precondition("contact has no phone")
		}
	}
	s.autodial.Cancel()
	s.mu.Unlock()

	return s.deps.Phone.Dial(s.agent.ID, number)
}

// Hangup ends the running call
func (s *Session) Hangup() error {
	if err := s.requireCall(); err != nil {
		return err
	}
	return s.deps.Phone.Hangup(s.agent.ID)
}

// Mute toggles the microphone
func (s *Session) Mute(muted bool) error {
	if err := s.requireCall(); err != nil {
		return err
	}
	if err := s.deps.Phone.Mute(s.agent.ID, muted); err != nil {
		return err
	}
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
	return nil
}

// Hold toggles hold
func (s *Session) Hold(held bool) error {
	if err := s.requireCall(); err != nil {
		return err
	}
	if err := s.deps.Phone.Hold(s.agent.ID, held); err != nil {
		return err
	}
	s.mu.Lock()
	s.held = held
	s.mu.Unlock()
	return nil
}

// DTMF sends tones on the running call
func (s *Session) DTMF(digits string) error {
	if err := s.requireCall(); err != nil {
		return err
	}
	return s.deps.Phone.DTMF(s.agent.ID, digits)
}

// Volume sets the speaker volume
func (s *Session) Volume(volume int) error {
	return s.deps.Phone.Volume(s.agent.ID, volume)
}

func (s *Session) requireCall() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.timing.State().InProgress() {
		return apperr.Precondition("no call in progress")
	}
	return nil
}

// HandleCallEvent applies a softphone or PBX call state change. A reached call that ends
// with a contact focused forces the disposition gate open.
func (s *Session) HandleCallEvent(ev types.CallEvent) (calltiming.Transition, error) {
	if !ev.State.Valid() {
		return calltiming.Transition{}, apperr.Validation("unknown call state " + string(ev.State))
	}

	noOutcomes := false
	defer func() {
		if noOutcomes {
			s.toast(types.ToastWarning, "No dispositions", "This campaign has no phone outcomes, the call was not disposed")
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.deps.Clock.Now()
	at := ev.Timestamp
	if at.IsZero() {
		at = now
	}

	tr := s.timing.Observe(ev, at, s.focused != nil)
	if tr.From == tr.To {
		return tr, nil
	}
	s.channel = ReduceChannel(s.channel, ChannelAction{Kind: CallStateChanged, CallState: tr.To})

	if tr.To.InProgress() {
		s.autodial.Cancel()
		s.stopWrapLocked()
		if st := s.sup.Status(); st == types.StatusAvailable || st == types.StatusWrapUp {
			s.sup.set(types.StatusBusy, now)
		}
		return tr, nil
	}

	if !tr.Ended {
		return tr, nil
	}
	s.muted = false
	s.held = false

	var tree *disposition.Tree
	if tr.GateRequired {
		tree = s.treeLocked(types.ChannelPhone)
		if tree.Len() == 0 {
			// nothing to choose from; a forced gate could never be left
			tr.GateRequired = false
			noOutcomes = true
			s.logger.Warn().Str("contact_id", s.focused.ID).Msg("Call ended without phone dispositions, gate not forced")
		}
	}
	metrics.Get().RecordCallEnded(tr.GateRequired)

	if tr.Meta != nil {
		s.timeline.Append(types.TimelineCall, "Call", callSummary(*tr.Meta), callMeta(*tr.Meta), now)
	}
	if tr.GateRequired {
		s.gate.Open(tree, s.focused.ID, true)
		s.logger.Info().Str("contact_id", s.focused.ID).Msg("Call ended, disposition required")
		return tr, nil
	}
	if s.sup.Status() == types.StatusBusy {
		s.sup.set(types.StatusAvailable, now)
	}
	return tr, nil
}

// OpenDisposition opens the gate voluntarily for the focused contact
func (s *Session) OpenDisposition() (disposition.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused == nil {
		return disposition.State{}, apperr.Precondition("no contact loaded")
	}
	if s.timing.State().InProgress() {
		return disposition.State{}, apperr.Conflict("finish the current call first")
	}
	if !s.gate.IsOpen() {
		s.gate.Open(s.treeLocked(s.channel.Channel), s.focused.ID, false)
	}
	return s.gate.State(), nil
}

// Gate returns the disposition gate state
func (s *Session) Gate() disposition.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.State()
}

// SelectDisposition picks an option in the gate. Branches and scheduling outcomes keep
// the gate open and return a nil Outcome.
func (s *Session) SelectDisposition(ctx context.Context, id, notes string) (*Outcome, error) {
	s.mu.Lock()
	result, err := s.gate.Select(id)
	if err != nil || result == nil {
		s.mu.Unlock()
		return nil, err
	}
	result.Notes = notes
	pending := s.finalizeLocked(*result)
	s.mu.Unlock()

	return s.dispatch(ctx, pending), nil
}

// ConfirmSchedule finalizes a scheduling outcome. assignToSelf keeps the callback for this
// agent; otherwise it goes back to the team.
func (s *Session) ConfirmSchedule(ctx context.Context, at time.Time, assignToSelf bool, notes string) (*Outcome, error) {
	var assignTo *string
	if assignToSelf {
		id := s.agent.ID
		assignTo = &id
	}

	s.mu.Lock()
	result, err := s.gate.ConfirmSchedule(at, s.deps.Clock.Now(), assignTo, notes)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	pending := s.finalizeLocked(*result)
	s.mu.Unlock()

	return s.dispatch(ctx, pending), nil
}

// DispositionBack steps the gate up one level
func (s *Session) DispositionBack() (disposition.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate.Back(); err != nil {
		return disposition.State{}, err
	}
	return s.gate.State(), nil
}

// DismissDisposition closes a voluntary gate
func (s *Session) DismissDisposition() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Dismiss()
}

// finalizeLocked applies the optimistic local side of a disposition: the contact leaves
// the queue and its task, the agent enters wrap-up.
func (s *Session) finalizeLocked(result types.DispositionResult) pendingDisposal {
	now := s.deps.Clock.Now()
	contact := *s.focused
	meta := s.timing.TakeMeta()
	patch := disposition.BuildPatch(contact, result, meta)
	summary := disposition.Summary(result, meta, s.agent.ID)

	s.queue.MarkDisposed(contact.ID)
	s.queue.Update(disposition.Apply(contact, patch))
	s.timeline.Append(types.TimelineSystem, "Disposition: "+result.Disposition.Name, summary,
		map[string]string{"code": result.Disposition.Code, "status": string(patch.Status)}, now)
	s.tasks.RemoveContact(contact.ID)
	s.focused = nil
	s.channel = ReduceChannel(s.channel, ChannelAction{Kind: ContactCleared})
	s.sup.CountDisposition()
	if s.sup.ShiftActive() {
		s.sup.set(types.StatusWrapUp, now)
		s.scheduleWrapLocked()
	}

	campaignID := ""
	if s.campaign != nil {
		campaignID = s.campaign.ID
	}
	return pendingDisposal{
		contact:  contact,
		result:   result,
		patch:    patch,
		meta:     meta,
		campaign: campaignID,
		summary:  summary,
		at:       now,
	}
}

// dispatch sends the PATCH and records the disposal. A failed PATCH is reported and the
// contact list refetched; local state is not rolled back.
func (s *Session) dispatch(ctx context.Context, p pendingDisposal) *Outcome {
	out := &Outcome{ContactID: p.contact.ID, Patch: p.patch, Summary: p.summary, Synced: true}

	if _, err := s.deps.CRM.UpdateCampaignContact(ctx, p.contact.ID, p.patch); err != nil {
		out.Synced = false
		s.logger.Error().Err(err).Str("contact_id", p.contact.ID).Msg("Failed to update contact")
		s.toast(types.ToastError, "Saving the disposition failed", apperr.ExtractMessage(err))
		if rerr := s.Refresh(ctx); rerr != nil {
			s.logger.Warn().Err(rerr).Msg("Refetch after failed update failed")
		}
	} else {
		s.logger.Info().
			Str("contact_id", p.contact.ID).
			Str("code", p.result.Disposition.Code).
			Str("status", string(p.patch.Status)).
			Msg("Contact disposed")
	}
	metrics.Get().RecordDisposition(out.Synced)

	record := dispositionRecord(s.agent.ID, p, out.Synced)
	if err := s.deps.Store.SaveDispositionRecord(ctx, record); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save disposition record")
	}
	s.publish(ctx, events.New(events.ContactDisposed, s.agent.ID, p.at, record))
	return out
}

func dispositionRecord(agentID string, p pendingDisposal, synced bool) types.DispositionRecord {
	record := types.DispositionRecord{
		DateKey:    p.at.Format("2006-01-02"),
		RecordID:   uuid.New().String(),
		AgentID:    agentID,
		CampaignID: p.campaign,
		ContactID:  p.contact.ID,
		CustomerID: p.contact.CustomerID,
		Code:       p.result.Disposition.Code,
		ActionType: string(p.result.Disposition.ActionType),
		NewStatus:  string(p.patch.Status),
		DisposedAt: p.at.Format(time.RFC3339),
		Synced:     synced,
	}
	if p.patch.CallbackDate != nil {
		record.CallbackDate = p.patch.CallbackDate.Format(time.RFC3339)
	}
	if p.patch.AssignedTo != nil {
		record.AssignedTo = *p.patch.AssignedTo
	}
	if p.meta != nil {
		record.RingTime = float64(p.meta.RingDurationSeconds)
		record.TalkTime = float64(p.meta.TalkDurationSeconds)
		record.HungUpBy = string(p.meta.HungUpBy)
	}
	return record
}

// scheduleWrapLocked ends wrap-up: in auto mode the countdown loads the next contact,
// otherwise a fixed delay makes the agent available again. When auto mode has nothing
// left to load, wrap-up still ends after the auto delay and the campaign is reported finished.
func (s *Session) scheduleWrapLocked() {
	s.stopWrapLocked()
	delay := s.deps.WrapUpDelay
	finished := false
	if s.campaign != nil && s.campaign.Settings.AutoMode {
		if s.armAutoLocked() {
			return
		}
		delay = time.Duration(s.campaign.Settings.AutoDelaySeconds) * time.Second
		finished = s.queue.Len(s.deps.Clock.Now()) == 0
	}
	s.wrapGen++
	gen := s.wrapGen
	s.wrapTimer = s.deps.Clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if gen != s.wrapGen || s.closed {
			s.mu.Unlock()
			return
		}
		s.wrapTimer = nil
		s.endWrapLocked(s.deps.Clock.Now())
		s.mu.Unlock()

		if finished {
			s.toast(types.ToastInfo, "Campaign finished", "No contacts left in this campaign")
		}
	})
}

func (s *Session) stopWrapLocked() {
	s.wrapGen++
	if s.wrapTimer != nil {
		s.wrapTimer.Stop()
		s.wrapTimer = nil
	}
}

func (s *Session) endWrapLocked(now time.Time) {
	if s.sup.Status() == types.StatusWrapUp {
		s.sup.set(types.StatusAvailable, now)
	}
}

// armAutoLocked starts the auto mode countdown when the agent is idle and contacts remain.
// It reports whether a countdown was armed.
func (s *Session) armAutoLocked() bool {
	if s.campaign == nil || !s.campaign.Settings.AutoMode {
		return false
	}
	if s.focused != nil || s.gate.IsOpen() || s.timing.State().InProgress() || !s.sup.CanWork() {
		return false
	}
	if s.queue.Len(s.deps.Clock.Now()) == 0 {
		return false
	}
	delay := time.Duration(s.campaign.Settings.AutoDelaySeconds) * time.Second
	gen := s.gen
	s.autodial.Arm(delay, func(dialGen uint64) {
		s.autoFire(gen, dialGen)
	})
	return true
}

func (s *Session) autoFire(gen, dialGen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.closed || !s.autodial.Current(dialGen) {
		s.mu.Unlock()
		return
	}
	now := s.deps.Clock.Now()
	s.endWrapLocked(now)
	if s.focused != nil || s.gate.IsOpen() || s.timing.State().InProgress() || !s.sup.CanWork() {
		s.mu.Unlock()
		return
	}
	next, ok := s.queue.Next(now)
	if ok {
		s.focusLocked(next, now)
	}
	s.mu.Unlock()

	if !ok {
		s.toast(types.ToastInfo, "Campaign finished", "No contacts left in this campaign")
		return
	}
	s.logger.Debug().Str("contact_id", next.ID).Msg("Auto mode loaded next contact")
}

func (s *Session) canSwitchContactLocked() error {
	if !s.sup.CanWork() {
		return apperr.Precondition("start your shift and leave break first")
	}
	if s.campaign == nil {
		return apperr.Precondition("no campaign selected")
	}
	if s.gate.Forced() {
		return apperr.Locked("dispose the last call first")
	}
	if s.timing.State().InProgress() {
		return apperr.Conflict("finish the current call first")
	}
	return nil
}

func (s *Session) focusLocked(contact types.CampaignContact, now time.Time) {
	s.autodial.Cancel()
	s.gate.Reset()
	task := s.tasks.Open(contact, *s.campaign, s.channel.Channel, now)
	s.focusTaskLocked(task)
}

func (s *Session) focusTaskLocked(task types.Task) {
	c := task.Contact
	s.focused = &c
	if s.timeline.ContactID() != c.ID {
		s.timeline.Reset(c.ID)
	}
	if s.runner != nil {
		s.runner.Reset()
	}
	s.channel = ReduceChannel(s.channel, ChannelAction{Kind: ContactCleared})
	s.channel = ReduceChannel(s.channel, ChannelAction{Kind: SelectChannel, Channel: task.Channel})
}

func (s *Session) clearFocusLocked() {
	s.focused = nil
	s.timeline.Reset("")
	s.channel = ReduceChannel(s.channel, ChannelAction{Kind: ContactCleared})
}

// teardownLocked cancels every timer and drops contact-scoped state
func (s *Session) teardownLocked() {
	s.gen++
	s.autodial.Cancel()
	s.stopWrapLocked()
	s.gate.Reset()
	s.tasks.Clear()
	s.clearFocusLocked()
	s.muted = false
	s.held = false
}

func (s *Session) treeLocked(ch types.Channel) *disposition.Tree {
	if t, ok := s.trees[ch]; ok {
		return t
	}
	t := disposition.NewTree(s.disps, ch)
	s.trees[ch] = t
	return t
}

// SendEmail emails the focused contact
func (s *Session) SendEmail(ctx context.Context, subject, body string) error {
	s.mu.Lock()
	if s.focused == nil {
		s.mu.Unlock()
		return apperr.Precondition("no contact loaded")
	}
	contact := *s.focused
	s.mu.Unlock()

	if contact.Customer.Email == "" {
		return apperr.Precondition("contact has no email")
	}
	if subject == "" || body == "" {
		return apperr.Validation("subject and body are required")
	}
	if err := s.deps.Email.SendEmail(ctx, messaging.Email{
		To:      []string{contact.Customer.Email},
		Subject: subject,
		Body:    body,
	}); err != nil {
		return err
	}
	metrics.Get().RecordMessageSent("email")

	s.appendFor(contact.ID, types.TimelineEmail, subject, body, map[string]string{"to": contact.Customer.Email})
	return nil
}

// SendSMS texts the focused contact and returns the segment count
func (s *Session) SendSMS(ctx context.Context, body string) (int, error) {
	s.mu.Lock()
	if s.focused == nil {
		s.mu.Unlock()
		return 0, apperr.Precondition("no contact loaded")
	}
	contact := *s.focused
	s.mu.Unlock()

	if contact.Customer.Phone == "" {
		return 0, apperr.Precondition("contact has no phone")
	}
	if body == "" {
		return 0, apperr.Validation("message text is required")
	}
	to, err := s.deps.Normalizer.Normalize(contact.Customer.Phone)
	if err != nil {
		return 0, err
	}
	if err := s.deps.SMS.SendSMS(ctx, messaging.SMS{To: to, Body: body}); err != nil {
		return 0, err
	}
	metrics.Get().RecordMessageSent("sms")

	segments := messaging.Segments(body)
	s.appendFor(contact.ID, types.TimelineSMS, "SMS", body, map[string]string{
		"to":       to,
		"segments": strconv.Itoa(segments),
	})
	return segments, nil
}

// AddNote appends a free text note to the focused contact's timeline
func (s *Session) AddNote(text string) (types.TimelineEntry, error) {
	if text == "" {
		return types.TimelineEntry{}, apperr.Validation("note is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused == nil {
		return types.TimelineEntry{}, apperr.Precondition("no contact loaded")
	}
	return s.timeline.Append(types.TimelineNote, "Note", text, nil, s.deps.Clock.Now()), nil
}

// appendFor adds a timeline entry if contactID is still the open contact
func (s *Session) appendFor(contactID string, kind types.TimelineType, title, content string, meta map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeline.ContactID() != contactID {
		return
	}
	s.timeline.Append(kind, title, content, meta, s.deps.Clock.Now())
}

// History merges the focused customer's persisted history with this session's timeline
func (s *Session) History(ctx context.Context) ([]types.TimelineEntry, error) {
	s.mu.Lock()
	if s.focused == nil {
		s.mu.Unlock()
		return nil, apperr.Precondition("no contact loaded")
	}
	customerID := s.focused.CustomerID
	session := s.timeline.Entries()
	s.mu.Unlock()

	history, err := s.deps.CRM.ContactHistory(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return tasks.Merge(history, session), nil
}

// ScriptAnswer records the answer of a script element
func (s *Session) ScriptAnswer(elementID string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return apperr.Precondition("campaign has no script")
	}
	s.runner.SetValues(elementID, values)
	return nil
}

// ScriptNext advances the script; false means it did not move
func (s *Session) ScriptNext() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return false, apperr.Precondition("campaign has no script")
	}
	return s.runner.GoNext(), nil
}

// ScriptBack returns to the previously shown step
func (s *Session) ScriptBack() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return false, apperr.Precondition("campaign has no script")
	}
	return s.runner.GoBack(), nil
}

func (s *Session) toast(level types.ToastLevel, title, message string) {
	if s.deps.Notifier == nil {
		return
	}
	err := s.deps.Notifier.SendToAgent(s.agent.ID, types.Toast{
		Type:    "toast",
		Level:   level,
		Title:   title,
		Message: message,
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("title", title).Msg("Toast not delivered")
	}
}

func (s *Session) publish(ctx context.Context, ev events.Event) {
	if err := s.deps.Events.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event", ev.Type).Msg("Failed to publish event")
	}
}

func (s *Session) recordSession(ctx context.Context, action string, status types.AgentStatus, at time.Time) {
	if s.deps.CRM == nil {
		return
	}
	err := s.deps.CRM.RecordUserSession(ctx, crmapi.UserSession{
		AgentID: s.agent.ID,
		Action:  action,
		Status:  string(status),
		At:      at,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("Failed to record user session")
	}
}

func callSummary(meta types.CallMeta) string {
	out := "ring " + strconv.Itoa(meta.RingDurationSeconds) + "s"
	if meta.TalkDurationSeconds > 0 {
		out += " · talk " + FormatClock(time.Duration(meta.TalkDurationSeconds)*time.Second)
	}
	if meta.HungUpBy != types.HangupUnknown {
		out += " · hung up by " + string(meta.HungUpBy)
	}
	return out
}

func callMeta(meta types.CallMeta) map[string]string {
	m := map[string]string{
		"ringSeconds": strconv.Itoa(meta.RingDurationSeconds),
		"talkSeconds": strconv.Itoa(meta.TalkDurationSeconds),
	}
	if meta.Number != "" {
		m["number"] = meta.Number
	}
	if meta.HungUpBy != types.HangupUnknown {
		m["hungUpBy"] = string(meta.HungUpBy)
	}
	return m
}
