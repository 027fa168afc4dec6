package sharekit

// Level is a permission level on a shared entity. Levels are totally ordered:
// VIEW < COMMENT < EDIT < ADMIN. LevelNone means no access and is a normal
// resolution result, not an error.
type Level string

const (
	LevelNone    Level = "NONE"
	LevelView    Level = "VIEW"
	LevelComment Level = "COMMENT"
	LevelEdit    Level = "EDIT"
	LevelAdmin   Level = "ADMIN"
)

// levelOrdinals maps each grantable level to its position in the fixed order.
// LevelNone and unknown values are below every grantable level.
var levelOrdinals = map[Level]int{
	LevelView:    0,
	LevelComment: 1,
	LevelEdit:    2,
	LevelAdmin:   3,
}

// Levels returns the grantable levels in ascending order.
func Levels() []Level {
	return []Level{LevelView, LevelComment, LevelEdit, LevelAdmin}
}

// ParseLevel validates a level string. Only the four grantable levels are
// accepted; "NONE" is not a level that can be granted.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return LevelNone, NewError(ErrInvalidLevel, "unknown permission level "+s)
	}
	return l, nil
}

// Valid reports whether the level is one of the four grantable levels.
func (l Level) Valid() bool {
	_, ok := levelOrdinals[l]
	return ok
}

// Ordinal returns the level's position in the fixed order
// (VIEW=0, COMMENT=1, EDIT=2, ADMIN=3). LevelNone and unknown values
// return -1 so they compare below every grantable level.
func (l Level) Ordinal() int {
	if ord, ok := levelOrdinals[l]; ok {
		return ord
	}
	return -1
}

// Sufficient reports whether the level satisfies a required level.
// LevelNone never suffices, and an unknown required level can never be met.
func (l Level) Sufficient(required Level) bool {
	if !required.Valid() {
		return false
	}
	return l.Ordinal() >= required.Ordinal()
}

// String implements fmt.Stringer.
func (l Level) String() string {
	if l == "" {
		return string(LevelNone)
	}
	return string(l)
}

// MaxLevel returns the higher of two levels. A public VIEW grant must not
// weaken a targeted EDIT grant, and vice versa.
func MaxLevel(a, b Level) Level {
	if b.Ordinal() > a.Ordinal() {
		return b
	}
	return a
}
