package flow

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidScreen is returned for screen ids outside the fixed set.
var ErrInvalidScreen = errors.New("invalid screen")

// Screen is one of the five wizard steps.
type Screen string

const (
	ScreenLogin            Screen = "login"
	ScreenAreaSelection    Screen = "area-selection"
	ScreenProcessSelection Screen = "process-selection"
	ScreenDescription      Screen = "description"
	ScreenResult           Screen = "result"
)

// Screens lists every screen in wizard order.
var Screens = []Screen{
	ScreenLogin,
	ScreenAreaSelection,
	ScreenProcessSelection,
	ScreenDescription,
	ScreenResult,
}

func (s Screen) Valid() bool {
	switch s {
	case ScreenLogin, ScreenAreaSelection, ScreenProcessSelection, ScreenDescription, ScreenResult:
		return true
	}
	return false
}

func (s Screen) String() string { return string(s) }

func ParseScreen(s string) (Screen, error) {
	if sc := Screen(s); sc.Valid() {
		return sc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScreen, s)
}

// Record is the stored form of one screen's payload: a JSON object.
type Record map[string]any

// Data is the accumulated payload map for a session, keyed by screen.
type Data map[Screen]Record

// Payload is implemented by the typed per-screen payloads. Screen names the
// key the payload is stored under, independent of the navigation target.
type Payload interface {
	Screen() Screen
}

type LoginPayload struct {
	Username string `json:"username,omitempty"`
}

func (LoginPayload) Screen() Screen { return ScreenLogin }

type AreaSelectionPayload struct {
	SelectedArea string `json:"selectedArea,omitempty"`
	AreaName     string `json:"areaName,omitempty"`
	IsNewArea    bool   `json:"isNewArea,omitempty"`
}

func (AreaSelectionPayload) Screen() Screen { return ScreenAreaSelection }

type ProcessSelectionPayload struct {
	Area       string `json:"area,omitempty"`
	Process    string `json:"process,omitempty"`
	Subprocess string `json:"subprocess,omitempty"`
}

func (ProcessSelectionPayload) Screen() Screen { return ScreenProcessSelection }

type DescriptionPayload struct {
	// Title names the area being created on the new-area path.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Attachments int    `json:"attachments,omitempty"`
	// NewAreaID is set once a new area has been created from this screen.
	NewAreaID string `json:"newAreaId,omitempty"`
	// TempAreaID holds uploads made before the new area exists.
	TempAreaID string `json:"tempAreaId,omitempty"`
}

func (DescriptionPayload) Screen() Screen { return ScreenDescription }

type ResultPayload struct {
	Result      string `json:"result,omitempty"`
	Observation string `json:"observation,omitempty"`
}

func (ResultPayload) Screen() Screen { return ScreenResult }

// ToRecord converts a typed payload into its stored form. Zero-valued fields
// are omitted so a partial payload only touches the keys it sets.
func ToRecord(p Payload) (Record, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.Screen(), err)
	}
	rec := Record{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", p.Screen(), err)
	}
	return rec, nil
}

// Decode converts a stored record back into a typed payload. Unknown keys are
// ignored and a nil record yields the zero payload.
func Decode[T Payload](rec Record) (T, error) {
	var out T
	if len(rec) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return out, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s payload: %w", out.Screen(), err)
	}
	return out, nil
}
