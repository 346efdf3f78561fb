package workout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Jethrochang07/FlyWJ/core/logger"
	"log/slog"
)

// Button payloads understood by the engine. These form the closed vocabulary
// carried in callback data.
const (
	PayloadRun   = "log_run"
	PayloadGym   = "log_gym"
	PayloadOther = "log_other"

	PayloadBodyChest  = "gym_body_chest"
	PayloadBodyBack   = "gym_body_back"
	PayloadBodyLegs   = "gym_body_legs"
	PayloadBodyAbs    = "gym_body_abs"
	PayloadBodyCardio = "gym_body_cardio"

	PayloadEqDumbbell   = "gym_eq_dumbbell"
	PayloadEqBarbell    = "gym_eq_barbell"
	PayloadEqMachine    = "gym_eq_machine"
	PayloadEqBodyweight = "gym_eq_bodyweight"

	PayloadCardioIncline = "cardio_incline"
	PayloadCardioFlat    = "cardio_flat"

	PayloadContinue = "gym_continue"
	PayloadEnd      = "gym_end"

	PayloadSameDay = "post_same_day"
	PayloadNewDay  = "post_new_day"
)

// Payloads lists every payload the engine handles, for callback registration.
func Payloads() []string {
	return []string{
		PayloadRun, PayloadGym, PayloadOther,
		PayloadBodyChest, PayloadBodyBack, PayloadBodyLegs, PayloadBodyAbs, PayloadBodyCardio,
		PayloadEqDumbbell, PayloadEqBarbell, PayloadEqMachine, PayloadEqBodyweight,
		PayloadCardioIncline, PayloadCardioFlat,
		PayloadContinue, PayloadEnd,
		PayloadSameDay, PayloadNewDay,
	}
}

// Choice is one selectable button offered with a reply.
type Choice struct {
	Label   string
	Payload string
}

// Reply is one outbound message the engine asks the transport to deliver.
type Reply struct {
	Text     string
	Choices  []Choice
	PerRow   int
	Markdown bool
}

const unknownOptionText = "Unknown option. Please type /log again."

// Notifier delivers supervisor-initiated messages outside a handler turn.
type Notifier interface {
	Notify(chatID int64, replies []Reply)
}

// Archiver persists finalized workouts and quick logs. Implementations must
// never feed archived data back into live sessions. Calls may be slow; the
// engine invokes them outside its mutex so one user's archive write cannot
// stall another user's events.
type Archiver interface {
	ArchiveWorkout(ctx context.Context, userID int64, s *Session) error
	ArchiveQuickLog(ctx context.Context, userID int64, q QuickLog) error
}

// flow holds the transient per-user routing state living outside the Session:
// the selected top-level activity, the equipment picked for the entry being
// built, and the wizard accumulator.
type flow struct {
	pendingActivity string
	equipment       string
	wizard          *WizardState
}

// Options configures a new Engine.
type Options struct {
	IdleTimeout time.Duration
	Notifier    Notifier
	Archiver    Archiver
	Now         func() time.Time
}

// Engine is the transport-free wizard state machine. Each inbound event maps
// to one Handle call returning the replies to deliver; the engine mutates
// sessions, flow state, and the inactivity supervisor as a side effect.
// Events for a single user are expected to arrive serially; the internal
// mutex only synchronizes the supervisor's expiry path with the event path.
// Archiver and Notifier calls happen after the mutex is released.
type Engine struct {
	mu       sync.Mutex
	sessions *Store
	quick    *QuickLogStore
	flows    map[int64]*flow
	sup      *Supervisor
	notifier Notifier
	archiver Archiver
	now      func() time.Time
}

// NewEngine builds an engine with its own stores and inactivity supervisor.
func NewEngine(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		sessions: NewStore(now),
		quick:    NewQuickLogStore(),
		flows:    make(map[int64]*flow),
		notifier: opts.Notifier,
		archiver: opts.Archiver,
		now:      now,
	}
	e.sup = NewSupervisor(opts.IdleTimeout, now, e.expire)
	return e
}

// SetNotifier installs the notifier once the transport exists.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

// Close cancels all outstanding inactivity timers.
func (e *Engine) Close() {
	e.sup.Close()
}

// Sessions exposes the session store for diagnostics.
func (e *Engine) Sessions() *Store { return e.sessions }

// QuickLogs exposes the quick-log store for diagnostics.
func (e *Engine) QuickLogs() *QuickLogStore { return e.quick }

// ActiveFlows reports how many users have transient flow state.
func (e *Engine) ActiveFlows() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.flows)
}

// InProgress reports whether free-form text from the user should be routed
// into the wizard.
func (e *Engine) InProgress(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.flows[userID]
	return ok && f.pendingActivity != ""
}

func (e *Engine) flowFor(userID int64) *flow {
	f, ok := e.flows[userID]
	if !ok {
		f = &flow{}
		e.flows[userID] = f
	}
	return f
}

// resetFlow drops all transient flow state for the user. The Session, if
// any, is untouched.
func (e *Engine) resetFlow(userID int64) {
	delete(e.flows, userID)
}

func (e *Engine) touch(userID, chatID int64) {
	if sess, ok := e.sessions.Get(userID); ok {
		sess.LastActivity = e.now()
	}
	e.sup.Touch(userID, chatID)
}

// snapshotSession copies a session so the archiver can read it after the
// engine mutex is released while the live session keeps mutating.
func snapshotSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Entries = append([]Entry(nil), s.Entries...)
	return &cp
}

// HandleCommand processes one of the slash commands.
func (e *Engine) HandleCommand(userID, chatID int64, name string) []Reply {
	e.mu.Lock()
	replies, post := e.commandLocked(userID, chatID, name)
	e.mu.Unlock()
	if post != nil {
		post()
	}
	return replies
}

func (e *Engine) commandLocked(userID, chatID int64, name string) ([]Reply, func()) {
	e.touch(userID, chatID)

	switch name {
	case "start":
		return []Reply{{Text: "Hello! I am your one stop fitness logging buddy! 🤖\n\nType /log to log an activity."}}, nil
	case "log":
		// An in-progress wizard is discarded without finalizing.
		e.resetFlow(userID)
		return []Reply{{Text: "What would you like to log?", Choices: topLevelChoices(), PerRow: 1}}, nil
	case "summary":
		return e.summaryPreview(userID), nil
	case "end":
		sess, ok := e.sessions.Get(userID)
		if !ok {
			return []Reply{{Text: "No active gym workout."}}, nil
		}
		return e.endWorkout(userID, sess)
	}
	return nil, nil
}

// HandleButton processes one button tap identified by its payload.
func (e *Engine) HandleButton(userID, chatID int64, payload string) []Reply {
	e.mu.Lock()
	replies, post := e.buttonLocked(userID, chatID, payload)
	e.mu.Unlock()
	if post != nil {
		post()
	}
	return replies
}

func (e *Engine) buttonLocked(userID, chatID int64, payload string) ([]Reply, func()) {
	e.touch(userID, chatID)

	switch payload {
	case PayloadGym:
		e.sessions.GetOrCreate(userID)
		f := e.flowFor(userID)
		f.pendingActivity = "Gym"
		f.equipment = ""
		f.wizard = nil
		return []Reply{{
			Text:    "🏋️ Gym selected.\nWhat body part are you hitting today?",
			Choices: bodyPartChoices(),
			PerRow:  1,
		}}, nil
	case PayloadRun, PayloadOther:
		activity := "Run"
		if payload == PayloadOther {
			activity = "Other"
		}
		f := e.flowFor(userID)
		f.pendingActivity = activity
		return []Reply{{
			Text:     fmt.Sprintf("✅ Selected: %s\nReply with details (e.g. `5km`, `45min`).", activity),
			Markdown: true,
		}}, nil

	case PayloadBodyChest, PayloadBodyBack, PayloadBodyLegs, PayloadBodyAbs, PayloadBodyCardio:
		return e.selectBodyPart(userID, payload), nil

	case PayloadEqDumbbell, PayloadEqBarbell, PayloadEqMachine, PayloadEqBodyweight:
		return e.selectEquipment(userID, payload), nil

	case PayloadCardioIncline, PayloadCardioFlat:
		return e.selectCardioMode(userID, payload), nil

	case PayloadContinue:
		return e.continueLogging(userID), nil
	case PayloadEnd:
		sess, ok := e.sessions.Get(userID)
		if !ok {
			return []Reply{{Text: "No active gym workout."}}, nil
		}
		return e.endWorkout(userID, sess)

	case PayloadSameDay:
		return e.resumeSameDay(userID), nil
	case PayloadNewDay:
		e.sessions.Clear(userID)
		e.resetFlow(userID)
		e.sessions.GetOrCreate(userID)
		f := e.flowFor(userID)
		f.pendingActivity = "Gym"
		return []Reply{{
			Text:    "Starting a fresh day. 💪\nWhat body part are you hitting today?",
			Choices: bodyPartChoices(),
			PerRow:  1,
		}}, nil
	}

	return []Reply{{Text: unknownOptionText}}, nil
}

// HandleText processes one free-form text message.
func (e *Engine) HandleText(userID, chatID int64, text string) []Reply {
	e.mu.Lock()
	replies, post := e.textLocked(userID, chatID, text)
	e.mu.Unlock()
	if post != nil {
		post()
	}
	return replies
}

func (e *Engine) textLocked(userID, chatID int64, text string) ([]Reply, func()) {
	e.touch(userID, chatID)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	f, ok := e.flows[userID]
	if !ok || f.pendingActivity == "" {
		// Unrelated chat text outside any flow is ignored without reply.
		return nil, nil
	}

	if f.pendingActivity == "Gym" {
		return e.handleGymText(userID, f, text), nil
	}

	// Run / Other quick log.
	activity := f.pendingActivity
	f.pendingActivity = ""
	q := QuickLog{Activity: activity, Details: text, At: e.now()}
	e.quick.Append(userID, q)
	post := func() { e.archiveQuickLog(userID, q) }
	return []Reply{{
		Text: fmt.Sprintf("📌 Logged: %s — %s\nType /log to add another, or /summary to see your logs.", activity, text),
	}}, post
}

func (e *Engine) handleGymText(userID int64, f *flow, text string) []Reply {
	sess := e.sessions.GetOrCreate(userID)

	if sess.Day == "" {
		return []Reply{{Text: "Please choose Day + Equipment first. Type /log and pick Gym."}}
	}
	if f.wizard == nil {
		if sess.Day == DayCardio {
			return []Reply{{Text: "Please pick Incline or Flat first (via buttons). Type /log → Gym."}}
		}
		return []Reply{{Text: "Please choose equipment first (via buttons). Type /log → Gym."}}
	}

	wiz := f.wizard
	switch wiz.Step {
	case StepExerciseName:
		wiz.Exercise = text
		wiz.Step = StepSetCount
		return []Reply{{Text: "Number of sets?"}}

	case StepSetCount:
		n, ok := ParseSetCount(text)
		if !ok {
			return []Reply{{Text: "Please enter a valid number of sets (1-20)."}}
		}
		wiz.Sets = n
		wiz.Step = StepSetLine
		return []Reply{{Text: "Set 1? Reply as `reps@weight` (e.g. `6@60`).", Markdown: true}}

	case StepSetLine:
		reps, weight, ok := ParseSetLine(text)
		if !ok {
			return []Reply{{Text: "Couldn't read that. Reply as `reps@weight` (e.g. `6@60` or `6 x 60`).", Markdown: true}}
		}
		wiz.Reps = append(wiz.Reps, reps)
		wiz.Weights = append(wiz.Weights, weight)
		if len(wiz.Reps) < wiz.Sets {
			return []Reply{{Text: fmt.Sprintf("Set %d? Reply as `reps@weight`.", len(wiz.Reps)+1), Markdown: true}}
		}
		return e.finalizeLift(f, sess)

	case StepCardioDegree:
		if !IsNumeric(text) {
			return []Reply{{Text: "Please enter a number (e.g. `10`).", Markdown: true}}
		}
		wiz.Degree = text
		wiz.Step = StepCardioSpeed
		return []Reply{{Text: "What speed? (e.g. `6.5`)", Markdown: true}}

	case StepCardioSpeed:
		if !IsNumeric(text) {
			return []Reply{{Text: "Please enter a number (e.g. `6.5`).", Markdown: true}}
		}
		wiz.Speed = text
		return e.finalizeCardio(f, sess)
	}

	return []Reply{{Text: "I got confused in the flow. Type /log to restart."}}
}

func (e *Engine) selectBodyPart(userID int64, payload string) []Reply {
	bodyMap := map[string]string{
		PayloadBodyChest:  DayChest,
		PayloadBodyBack:   DayBack,
		PayloadBodyLegs:   DayLegs,
		PayloadBodyAbs:    DayAbs,
		PayloadBodyCardio: DayCardio,
	}
	day := bodyMap[payload]

	sess := e.sessions.GetOrCreate(userID)
	sess.Day = day
	f := e.flowFor(userID)
	f.pendingActivity = "Gym"
	f.equipment = ""
	f.wizard = nil

	if day == DayCardio {
		return []Reply{{
			Text:    "Day selected: " + day + "\nIncline or flat?",
			Choices: cardioModeChoices(),
			PerRow:  2,
		}}
	}
	return []Reply{{
		Text:    fmt.Sprintf("Day selected: %s\nWhich equipment will you be using?", day),
		Choices: equipmentChoices(),
		PerRow:  1,
	}}
}

func (e *Engine) selectEquipment(userID int64, payload string) []Reply {
	eqMap := map[string]string{
		PayloadEqDumbbell:   EquipmentDumbbell,
		PayloadEqBarbell:    EquipmentBarbell,
		PayloadEqMachine:    EquipmentMachine,
		PayloadEqBodyweight: EquipmentBodyweight,
	}
	equipment := eqMap[payload]

	sess := e.sessions.GetOrCreate(userID)
	f := e.flowFor(userID)
	f.pendingActivity = "Gym"
	f.equipment = equipment
	f.wizard = &WizardState{Step: StepExerciseName}

	day := sess.Day
	if day == "" {
		day = "Unknown"
	}
	return []Reply{{
		Text:     fmt.Sprintf("Day: %s\nEquipment: %s\n\nType the exercise name (e.g. `Bench Press`, `Squat`).", day, equipment),
		Markdown: true,
	}}
}

// selectCardioMode accepts a mode tap only inside an active cardio-day flow.
// A stale button from an old message must not create half-initialized flow
// state that free text would never reach.
func (e *Engine) selectCardioMode(userID int64, payload string) []Reply {
	f, ok := e.flows[userID]
	sess, sok := e.sessions.Get(userID)
	if !ok || f.pendingActivity != "Gym" || !sok || sess.Day != DayCardio {
		return []Reply{{Text: unknownOptionText}}
	}

	if payload == PayloadCardioIncline {
		f.wizard = &WizardState{Step: StepCardioDegree, Mode: CardioIncline}
		return []Reply{{Text: "Incline selected.\nWhat incline degree? (e.g. `10`)", Markdown: true}}
	}
	f.wizard = &WizardState{Step: StepCardioSpeed, Mode: CardioFlat}
	return []Reply{{Text: "Flat selected.\nWhat speed? (e.g. `6.5`)", Markdown: true}}
}

func (e *Engine) finalizeLift(f *flow, sess *Session) []Reply {
	wiz := f.wizard
	entry := LiftEntry{
		Equipment: f.equipment,
		Exercise:  wiz.Exercise,
		Sets:      wiz.Sets,
		Reps:      wiz.Reps,
		Weights:   wiz.Weights,
	}
	sess.Entries = append(sess.Entries, entry)

	// Keep day, drop per-entry transients.
	f.wizard = nil
	f.equipment = ""

	day := sess.Day
	if day == "" {
		day = "Unknown"
	}
	return []Reply{{
		Text: fmt.Sprintf("Day: %s\n%s %s\n%s\n\nWould you like to continue logging or end the workout?",
			day, entry.Equipment, entry.Exercise, entry.Compact()),
		Choices: continueEndChoices(),
		PerRow:  2,
	}}
}

func (e *Engine) finalizeCardio(f *flow, sess *Session) []Reply {
	wiz := f.wizard
	entry := CardioEntry{
		Mode:   wiz.Mode,
		Degree: wiz.Degree,
		Speed:  wiz.Speed,
	}
	sess.Entries = append(sess.Entries, entry)
	f.wizard = nil

	day := sess.Day
	if day == "" {
		day = "Unknown"
	}
	return []Reply{{
		Text: fmt.Sprintf("Day: %s\n%s\n\nWould you like to continue logging or end the workout?",
			day, entry.Label()),
		Choices: continueEndChoices(),
		PerRow:  2,
	}}
}

func (e *Engine) continueLogging(userID int64) []Reply {
	sess := e.sessions.GetOrCreate(userID)
	f := e.flowFor(userID)
	f.pendingActivity = "Gym"
	f.wizard = nil
	f.equipment = ""

	day := sess.Day
	if day == "" {
		return []Reply{{
			Text:    "What body part are you hitting today?",
			Choices: bodyPartChoices(),
			PerRow:  1,
		}}
	}
	if day == DayCardio {
		return []Reply{{
			Text:    "Day: " + day + "\nIncline or flat?",
			Choices: cardioModeChoices(),
			PerRow:  2,
		}}
	}
	return []Reply{{
		Text:    fmt.Sprintf("Day: %s\nWhich equipment will you be using for the next exercise?", day),
		Choices: equipmentChoices(),
		PerRow:  1,
	}}
}

// endWorkout finalizes the session: summary out, transient flow state gone,
// day and entries retained for the post-end choice. The archive write runs
// via the returned func once the caller has dropped the engine mutex, on a
// snapshot so later same-day mutations cannot race it.
func (e *Engine) endWorkout(userID int64, sess *Session) ([]Reply, func()) {
	summary := Summarize(sess)
	e.resetFlow(userID)
	snap := snapshotSession(sess)
	post := func() { e.archiveWorkout(userID, snap) }

	return []Reply{
		{Text: "✅ Workout ended."},
		{
			Text:     summary + "\n\nContinue the same day or start a new one?",
			Markdown: true,
			Choices:  postEndChoices(),
			PerRow:   2,
		},
	}, post
}

func (e *Engine) resumeSameDay(userID int64) []Reply {
	sess, ok := e.sessions.Get(userID)
	if !ok || sess.Day == "" {
		// Nothing to resume, fall back to a fresh body-part selection.
		sess = e.sessions.GetOrCreate(userID)
		f := e.flowFor(userID)
		f.pendingActivity = "Gym"
		return []Reply{{
			Text:    "What body part are you hitting today?",
			Choices: bodyPartChoices(),
			PerRow:  1,
		}}
	}
	return e.continueLogging(userID)
}

// expire is the supervisor's callback. It runs on a timer goroutine and must
// take the engine lock before touching any state; the archive write and the
// notification both happen after the lock is dropped.
func (e *Engine) expire(userID, chatID int64) {
	e.mu.Lock()

	var (
		replies []Reply
		snap    *Session
	)
	if sess, ok := e.sessions.Get(userID); ok {
		summary := Summarize(sess)
		e.resetFlow(userID)
		snap = snapshotSession(sess)
		replies = []Reply{{
			Text:     "⏱ Workout ended due to inactivity.\n\n" + summary + "\n\nContinue the same day or start a new one?",
			Markdown: true,
			Choices:  postEndChoices(),
			PerRow:   2,
		}}
	} else {
		e.resetFlow(userID)
		replies = []Reply{{Text: "⏱ Session closed due to inactivity. Type /log to start again."}}
	}
	n := e.notifier
	e.mu.Unlock()

	if snap != nil {
		e.archiveWorkout(userID, snap)
	}
	logger.Info(logger.Background(), "workout", "session.expire",
		slog.Int64("user_id", userID),
		slog.Int64("chat_id", chatID),
	)
	if n != nil {
		n.Notify(chatID, replies)
	}
}

func (e *Engine) summaryPreview(userID int64) []Reply {
	var lines []string

	if sess, ok := e.sessions.Get(userID); ok && len(sess.Entries) > 0 {
		day := sess.Day
		if day == "" {
			day = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("🏋️ Gym (%s): Day: %s", sess.Date, day))
		entries := sess.Entries
		if len(entries) > 10 {
			entries = entries[len(entries)-10:]
		}
		for i, entry := range entries {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, entry.Label()))
		}
		lines = append(lines, "")
	}

	logs := e.quick.List(userID)
	if len(logs) > 0 {
		lines = append(lines, "🧾 Other logs:")
		if len(logs) > 10 {
			logs = logs[len(logs)-10:]
		}
		for i, item := range logs {
			lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, item.Activity, item.Details))
		}
	}

	if len(lines) == 0 {
		return []Reply{{Text: "No logs yet. Type /log to start."}}
	}
	return []Reply{{Text: strings.Join(lines, "\n")}}
}

// archiveWorkout runs without the engine mutex; sess is a private snapshot.
func (e *Engine) archiveWorkout(userID int64, sess *Session) {
	if e.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.archiver.ArchiveWorkout(ctx, userID, sess); err != nil {
		logger.Warn(ctx, "workout", "archive.workout",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) archiveQuickLog(userID int64, q QuickLog) {
	if e.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.archiver.ArchiveQuickLog(ctx, userID, q); err != nil {
		logger.Warn(ctx, "workout", "archive.quicklog",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

func topLevelChoices() []Choice {
	return []Choice{
		{Label: "🏃 Run", Payload: PayloadRun},
		{Label: "🏋️ Gym", Payload: PayloadGym},
		{Label: "🧘 Other", Payload: PayloadOther},
	}
}

func bodyPartChoices() []Choice {
	return []Choice{
		{Label: DayChest, Payload: PayloadBodyChest},
		{Label: DayBack, Payload: PayloadBodyBack},
		{Label: DayLegs, Payload: PayloadBodyLegs},
		{Label: DayAbs, Payload: PayloadBodyAbs},
		{Label: DayCardio, Payload: PayloadBodyCardio},
	}
}

func equipmentChoices() []Choice {
	return []Choice{
		{Label: EquipmentDumbbell, Payload: PayloadEqDumbbell},
		{Label: EquipmentBarbell, Payload: PayloadEqBarbell},
		{Label: EquipmentMachine, Payload: PayloadEqMachine},
		{Label: EquipmentBodyweight, Payload: PayloadEqBodyweight},
	}
}

func cardioModeChoices() []Choice {
	return []Choice{
		{Label: "Incline", Payload: PayloadCardioIncline},
		{Label: "Flat", Payload: PayloadCardioFlat},
	}
}

func continueEndChoices() []Choice {
	return []Choice{
		{Label: "➕ Continue logging", Payload: PayloadContinue},
		{Label: "✅ End workout", Payload: PayloadEnd},
	}
}

func postEndChoices() []Choice {
	return []Choice{
		{Label: "Continue same day", Payload: PayloadSameDay},
		{Label: "Start new day", Payload: PayloadNewDay},
	}
}
