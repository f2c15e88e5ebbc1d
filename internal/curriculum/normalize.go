package curriculum

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// lessonInput is a lesson as found in stored or imported data. Legacy payloads
// carry a bare name; current payloads carry an object.
type lessonInput interface {
	resolve(unitIndex, lessonIndex int) Lesson
}

type legacyLesson string

type canonicalLesson struct {
	id, name, objective string
}

func (l legacyLesson) resolve(unitIndex, lessonIndex int) Lesson {
	name := string(l)
	return Lesson{
		ID:        lessonID(unitIndex, lessonIndex),
		Name:      name,
		Objective: DefaultObjective(name),
	}
}

func (l canonicalLesson) resolve(unitIndex, lessonIndex int) Lesson {
	id := l.id
	if id == "" {
		id = lessonID(unitIndex, lessonIndex)
	}
	return Lesson{ID: id, Name: l.name, Objective: l.objective}
}

func parseLesson(raw any) lessonInput {
	if name, ok := raw.(string); ok {
		return legacyLesson(name)
	}
	obj := asObject(raw)
	return canonicalLesson{
		id:        stringField(obj, "id"),
		name:      stringField(obj, "name"),
		objective: stringField(obj, "objective"),
	}
}

// DefaultObjective is the objective synthesized for lessons that only carry a name.
func DefaultObjective(name string) string {
	return "Learn about " + strings.ToLower(name)
}

func lessonID(unitIndex, lessonIndex int) string {
	return fmt.Sprintf("lesson_%d_%d", unitIndex, lessonIndex)
}

func unitID(unitIndex int) string {
	return fmt.Sprintf("unit_%d", unitIndex)
}

// Normalize converts an arbitrary decoded JSON value into canonical levels.
// It never fails: a non-array input yields an empty slice and missing or
// wrong-typed fields fall back to "", empty slices and false.
func Normalize(raw any) []Level {
	items, ok := raw.([]any)
	if !ok {
		return []Level{}
	}
	levels := make([]Level, 0, len(items))
	for _, item := range items {
		levels = append(levels, normalizeLevel(asObject(item)))
	}
	return levels
}

// NormalizeJSON decodes data and normalizes it. Only malformed JSON is an error.
func NormalizeJSON(data []byte) ([]Level, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode curriculum: %w", err)
	}
	return Normalize(raw), nil
}

// Canonicalize runs typed levels through the same repair as Normalize.
func Canonicalize(levels []Level) []Level {
	data, err := json.Marshal(levels)
	if err != nil {
		return Clone(levels)
	}
	out, err := NormalizeJSON(data)
	if err != nil {
		return Clone(levels)
	}
	return out
}

func normalizeLevel(obj map[string]any) Level {
	level := Level{
		ID:    stringField(obj, "id"),
		Name:  stringField(obj, "name"),
		Books: []Book{},
	}
	if books, ok := obj["books"].([]any); ok {
		for _, b := range books {
			level.Books = append(level.Books, normalizeBook(asObject(b)))
		}
	}
	return level
}

func normalizeBook(obj map[string]any) Book {
	book := Book{
		ID:             stringField(obj, "id"),
		Name:           stringField(obj, "name"),
		Description:    stringField(obj, "description"),
		Units:          []Unit{},
		IsPracticeBook: truthy(obj["isPracticeBook"]),
		IsTeacherGuide: truthy(obj["isTeacherGuide"]),
		Hyperlink:      stringField(obj, "hyperlink"),
		ISBN:           stringField(obj, "isbn"),
	}
	units, ok := obj["units"].([]any)
	if !ok {
		return book
	}
	if len(units) > 0 {
		if _, legacy := units[0].(string); legacy {
			book.Units = rebuildLegacyUnits(units, obj["lessons"])
			return book
		}
	}
	for i, u := range units {
		book.Units = append(book.Units, normalizeUnit(asObject(u), i))
	}
	return book
}

func normalizeUnit(obj map[string]any, unitIndex int) Unit {
	unit := Unit{
		ID:      stringField(obj, "id"),
		Name:    stringField(obj, "name"),
		Lessons: []Lesson{},
	}
	if lessons, ok := obj["lessons"].([]any); ok {
		for j, l := range lessons {
			unit.Lessons = append(unit.Lessons, parseLesson(l).resolve(unitIndex, j))
		}
	}
	return unit
}

// rebuildLegacyUnits spreads a flat lesson list over named units. Each unit
// takes ceil(lessons/units) lessons; the last one gets whatever remains.
func rebuildLegacyUnits(unitNames []any, rawLessons any) []Unit {
	var names []string
	if list, ok := rawLessons.([]any); ok {
		for _, l := range list {
			s, _ := l.(string)
			names = append(names, s)
		}
	}
	perUnit := int(math.Ceil(float64(len(names)) / float64(len(unitNames))))

	units := make([]Unit, 0, len(unitNames))
	for i, rawName := range unitNames {
		name, _ := rawName.(string)
		start := min(i*perUnit, len(names))
		end := min(start+perUnit, len(names))

		lessons := make([]Lesson, 0, end-start)
		for j, lessonName := range names[start:end] {
			lessons = append(lessons, legacyLesson(lessonName).resolve(i, j))
		}
		units = append(units, Unit{ID: unitID(i), Name: name, Lessons: lessons})
	}
	return units
}

func asObject(raw any) map[string]any {
	if obj, ok := raw.(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// truthy mirrors loose boolean coercion for values decoded from JSON.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

func lower(s string) string { return strings.ToLower(s) }

func trim(s string) string { return strings.TrimSpace(s) }
