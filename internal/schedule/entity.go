package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEntity is returned for entity strings that name no timetable.
var ErrUnknownEntity = errors.New("schedule: unknown entity")

// Entity kinds that own a timetable.
const (
	KindGroup   = "group"
	KindRoom    = "room"
	KindTeacher = "teacher"
	KindStudent = "student"
)

// Entity identifies whose timetable is shown, e.g. "group:cs-101".
type Entity struct {
	Kind string
	ID   string
}

// ParseEntity reads "kind:id".
func ParseEntity(s string) (Entity, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	kind = strings.ToLower(kind)
	if !ok || id == "" {
		return Entity{}, fmt.Errorf("%w: %q", ErrUnknownEntity, s)
	}
	switch kind {
	case KindGroup, KindRoom, KindTeacher, KindStudent:
		return Entity{Kind: kind, ID: id}, nil
	}
	return Entity{}, fmt.Errorf("%w: kind %q", ErrUnknownEntity, kind)
}

func (e Entity) String() string {
	return e.Kind + ":" + e.ID
}
