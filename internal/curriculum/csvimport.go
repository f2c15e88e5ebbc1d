package curriculum

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Column names of the curriculum import format.
const (
	ColLevel           = "Level"
	ColBookName        = "Book Name"
	ColBookDescription = "Book Description"
	ColBookType        = "Book Type"
	ColISBN            = "ISBN"
	ColHyperlink       = "Hyperlink"
	ColUnitName        = "Unit Name"
	ColLessonName      = "Lesson Name"
	ColLessonObjective = "Lesson Objective"
)

// RequiredHeaders must all be present in the header row.
var RequiredHeaders = []string{ColLevel, ColBookName, ColBookDescription, ColBookType}

// AllHeaders is the full column order used by the sample file.
var AllHeaders = []string{
	ColLevel, ColBookName, ColBookDescription, ColBookType, ColISBN,
	ColHyperlink, ColUnitName, ColLessonName, ColLessonObjective,
}

const (
	defaultUnitName        = "Unit 1"
	defaultLessonName      = "Lesson 1"
	defaultLessonObjective = "Students will learn the basics of this topic"
	teacherGuideSuffix     = " - Teacher Guide"
)

// ValidationError reports an import document that is missing required columns.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "Missing required headers: " + strings.Join(e.Missing, ", ")
}

// ImportOptions tunes identifier generation. A nil NewID uses random UUIDs.
type ImportOptions struct {
	NewID func() string
}

func (o ImportOptions) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

// ImportResult is the replacement curriculum produced by an import.
type ImportResult struct {
	Levels []Level `json:"levels"`
	// BooksImported counts books across all levels of the result.
	BooksImported int `json:"booksImported"`
	// LevelsInFile is the number of distinct level groups found in the rows.
	LevelsInFile int `json:"levelsInFile"`
	SkippedRows  int `json:"skippedRows"`
	// UnmatchedLevels lists level texts that matched no existing level; their
	// rows were dropped.
	UnmatchedLevels []string `json:"unmatchedLevels,omitempty"`
}

// ParseCSVLine splits one line on commas that are outside double quotes.
// Quote characters toggle the quoted state and never reach the output;
// fields are trimmed.
func ParseCSVLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

// ImportCSV builds a replacement curriculum from a CSV document. Existing
// levels are kept but every one of their books is discarded; the input slice
// itself is not modified. A *ValidationError is returned before anything is
// built when required headers are missing.
func ImportCSV(r io.Reader, levels []Level, opts ImportOptions) (ImportResult, error) {
	lines, err := readLines(r)
	if err != nil {
		return ImportResult{}, err
	}
	var header []string
	rows := make([][]string, 0, len(lines))
	for i, line := range lines {
		fields := ParseCSVLine(line)
		if i == 0 {
			header = fields
			continue
		}
		rows = append(rows, fields)
	}
	return ImportRows(header, rows, levels, opts)
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var lines []string
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return lines, nil
}

type bookDraft struct {
	name        string
	description string
	isbn        string
	hyperlink   string
	kind        Kind
	units       *orderedMap[[]Lesson]
}

// ImportRows applies the import rules to an already split header and rows.
// Values are cleaned of quote characters and surrounding space.
func ImportRows(header []string, rows [][]string, levels []Level, opts ImportOptions) (ImportResult, error) {
	header = cleanAll(header)
	if missing := missingHeaders(header); len(missing) > 0 {
		return ImportResult{}, &ValidationError{Missing: missing}
	}

	grouped := newOrderedMap[*orderedMap[*bookDraft]]()
	result := ImportResult{}
	for _, values := range rows {
		row := make(map[string]string, len(header))
		values = cleanAll(values)
		for i, name := range header {
			if i < len(values) {
				row[name] = values[i]
			} else {
				row[name] = ""
			}
		}
		if row[ColLevel] == "" || row[ColBookName] == "" {
			result.SkippedRows++
			continue
		}

		levelKey := row[ColLevel]
		if idx := slices.IndexFunc(levels, func(l Level) bool { return levelMatches(l.Name, row[ColLevel]) }); idx >= 0 {
			levelKey = levels[idx].Name
		}
		kind := ParseKind(row[ColBookType])
		bookKey := row[ColBookName] + "_" + string(kind)

		books := grouped.getOrCreate(levelKey, newOrderedMap[*bookDraft])
		draft := books.getOrCreate(bookKey, func() *bookDraft {
			return &bookDraft{
				name:        row[ColBookName],
				description: row[ColBookDescription],
				isbn:        row[ColISBN],
				hyperlink:   row[ColHyperlink],
				kind:        kind,
				units:       newOrderedMap[[]Lesson](),
			}
		})

		unitName := row[ColUnitName]
		if unitName == "" {
			unitName = defaultUnitName
		}
		lessons := draft.units.getOrCreate(unitName, func() []Lesson { return []Lesson{} })
		if lessonName := row[ColLessonName]; lessonName != "" {
			objective := row[ColLessonObjective]
			if objective == "" {
				objective = DefaultObjective(lessonName)
			}
			draft.units.set(unitName, append(lessons, Lesson{Name: lessonName, Objective: objective}))
		}
	}

	matchedKeys := make(map[string]bool)
	out := make([]Level, len(levels))
	for i, level := range levels {
		out[i] = Level{ID: level.ID, Name: level.Name, Books: []Book{}}
		key, ok := grouped.findKey(func(k string) bool { return levelMatches(level.Name, k) })
		if !ok {
			continue
		}
		matchedKeys[key] = true
		books, _ := grouped.get(key)
		for _, draft := range books.values() {
			out[i].Books = append(out[i].Books, draft.build(level.ID, opts))
		}
	}

	for _, key := range grouped.keys {
		if !matchedKeys[key] {
			result.UnmatchedLevels = append(result.UnmatchedLevels, key)
		}
	}
	result.Levels = out
	result.BooksImported = CountBooks(out)
	result.LevelsInFile = len(grouped.keys)
	return result, nil
}

func (d *bookDraft) build(levelID string, opts ImportOptions) Book {
	name := d.name
	if d.kind == KindTeacher && !strings.Contains(lower(name), "teacher") {
		name += teacherGuideSuffix
	}
	book := Book{
		ID:             levelID + "b" + opts.newID(),
		Name:           name,
		Description:    d.description,
		ISBN:           d.isbn,
		Hyperlink:      d.hyperlink,
		IsPracticeBook: d.kind == KindPractice,
		IsTeacherGuide: d.kind == KindTeacher,
	}
	for _, unitName := range d.units.keys {
		lessons, _ := d.units.get(unitName)
		unit := Unit{ID: "unit_" + opts.newID(), Name: unitName, Lessons: make([]Lesson, 0, len(lessons))}
		for _, lesson := range lessons {
			lesson.ID = "lesson_" + opts.newID()
			unit.Lessons = append(unit.Lessons, lesson)
		}
		book.Units = append(book.Units, unit)
	}
	if len(book.Units) == 0 {
		book.Units = []Unit{defaultUnit(opts)}
	}
	return book
}

func defaultUnit(opts ImportOptions) Unit {
	return Unit{
		ID:   "unit_" + opts.newID(),
		Name: defaultUnitName,
		Lessons: []Lesson{{
			ID:        "lesson_" + opts.newID(),
			Name:      defaultLessonName,
			Objective: defaultLessonObjective,
		}},
	}
}

// levelMatches is a case-insensitive substring test in either direction.
// Short names can match several levels ("Level 1" vs "Level 10"); the first
// level in order wins.
func levelMatches(levelName, text string) bool {
	a, b := lower(levelName), lower(text)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func missingHeaders(header []string) []string {
	var missing []string
	for _, required := range RequiredHeaders {
		if !slices.Contains(header, required) {
			missing = append(missing, required)
		}
	}
	return missing
}

func cleanAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(strings.ReplaceAll(v, `"`, ""))
	}
	return out
}

// orderedMap keeps insertion order so grouped output follows file order.
type orderedMap[V any] struct {
	keys  []string
	items map[string]V
}

func newOrderedMap[V any]() *orderedMap[V] {
	return &orderedMap[V]{items: make(map[string]V)}
}

func (m *orderedMap[V]) get(key string) (V, bool) {
	v, ok := m.items[key]
	return v, ok
}

func (m *orderedMap[V]) set(key string, v V) {
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = v
}

func (m *orderedMap[V]) getOrCreate(key string, create func() V) V {
	if v, ok := m.items[key]; ok {
		return v
	}
	v := create()
	m.set(key, v)
	return v
}

func (m *orderedMap[V]) findKey(match func(string) bool) (string, bool) {
	for _, k := range m.keys {
		if match(k) {
			return k, true
		}
	}
	return "", false
}

func (m *orderedMap[V]) values() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.items[k])
	}
	return out
}
