package workout

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar format stamped on every session.
const DateLayout = "02-01-2006"

// Body-part labels selectable for a gym day. DayCardio routes the session
// into the cardio branch instead of the lift branch.
const (
	DayChest  = "Chest"
	DayBack   = "Back"
	DayLegs   = "Legs"
	DayAbs    = "Abs"
	DayCardio = "Post-gym cardio"
)

// Equipment labels for the lift branch.
const (
	EquipmentDumbbell   = "Dumbbell"
	EquipmentBarbell    = "Barbell"
	EquipmentMachine    = "Machine"
	EquipmentBodyweight = "Body Weight"
)

// CardioMode distinguishes the two cardio entry shapes.
type CardioMode string

const (
	CardioIncline CardioMode = "Incline"
	CardioFlat    CardioMode = "Flat"
)

// Entry is one finalized exercise record inside a Session.
type Entry interface {
	Label() string
}

// LiftEntry records a finished lift exercise. Reps and Weights always have
// exactly Sets elements once the entry is finalized.
type LiftEntry struct {
	Equipment string
	Exercise  string
	Sets      int
	Reps      []int
	Weights   []string
}

// Compact renders the set/rep/weight sequence, e.g. "3 x 6(60), 5(60), 5(60)".
func (e LiftEntry) Compact() string {
	parts := make([]string, 0, e.Sets)
	for i := 0; i < e.Sets && i < len(e.Reps) && i < len(e.Weights); i++ {
		parts = append(parts, fmt.Sprintf("%d(%s)", e.Reps[i], e.Weights[i]))
	}
	return fmt.Sprintf("%d x %s", e.Sets, strings.Join(parts, ", "))
}

// Label implements Entry.
func (e LiftEntry) Label() string {
	return fmt.Sprintf("%s %s — %s", e.Equipment, e.Exercise, e.Compact())
}

// CardioEntry records a finished cardio exercise. Degree is set only for
// incline mode.
type CardioEntry struct {
	Mode   CardioMode
	Degree string
	Speed  string
}

// Label implements Entry.
func (e CardioEntry) Label() string {
	if e.Mode == CardioIncline {
		return fmt.Sprintf("Incline %s° @ %s", e.Degree, e.Speed)
	}
	return fmt.Sprintf("Flat @ %s", e.Speed)
}

// Session is the per-user workout record. Entries are append-only until the
// session is dropped by the "start new day" action.
type Session struct {
	Date         string
	Day          string
	Entries      []Entry
	LastActivity time.Time
}

// QuickLog is a flat Run/Other activity record kept outside the gym session.
type QuickLog struct {
	Activity string
	Details  string
	At       time.Time
}

// Step addresses the next expected text input of an in-progress wizard.
type Step int

const (
	StepNone Step = iota
	StepExerciseName
	StepSetCount
	StepSetLine
	StepCardioDegree
	StepCardioSpeed
)

// WizardState is the ephemeral accumulator for one multi-turn entry. At most
// one exists per user; it is destroyed on finalize, /log restart, or session
// end. For the lift sub-flow len(Reps) == len(Weights) <= Sets holds by
// construction, one pair appended per valid turn.
type WizardState struct {
	Step     Step
	Exercise string
	Sets     int
	Reps     []int
	Weights  []string
	Mode     CardioMode
	Degree   string
	Speed    string
}
