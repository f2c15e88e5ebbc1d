// Package curriculum holds the level → book → unit → lesson hierarchy and the
// pure transformations over it: legacy-shape normalization, CSV and XLSX
// import, and admin edit operations. Every operation returns a fresh value and
// leaves its inputs untouched.
package curriculum

// Level is one age-banded tier of the curriculum.
type Level struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Books []Book `json:"books" yaml:"books"`
}

// Book is a purchasable catalog item. At most one of IsPracticeBook and
// IsTeacherGuide is set; neither means a student book.
type Book struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description" yaml:"description"`
	Units          []Unit `json:"units" yaml:"units"`
	IsPracticeBook bool   `json:"isPracticeBook" yaml:"isPracticeBook"`
	IsTeacherGuide bool   `json:"isTeacherGuide" yaml:"isTeacherGuide"`
	Hyperlink      string `json:"hyperlink" yaml:"hyperlink"`
	ISBN           string `json:"isbn" yaml:"isbn"`
}

type Unit struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Lessons []Lesson `json:"lessons" yaml:"lessons"`
}

type Lesson struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Objective string `json:"objective" yaml:"objective"`
}

// Kind distinguishes the three book variants.
type Kind string

const (
	KindStudent  Kind = "student"
	KindPractice Kind = "practice"
	KindTeacher  Kind = "teacher"
)

// ParseKind maps a free-text book type to a Kind. Matching is
// case-insensitive; anything other than practice or teacher is a student book.
func ParseKind(value string) Kind {
	switch lower(trim(value)) {
	case string(KindPractice):
		return KindPractice
	case string(KindTeacher):
		return KindTeacher
	default:
		return KindStudent
	}
}

// Kind reports which variant the book is.
func (b Book) Kind() Kind {
	switch {
	case b.IsTeacherGuide:
		return KindTeacher
	case b.IsPracticeBook:
		return KindPractice
	default:
		return KindStudent
	}
}

// Structure is the descriptive curriculum overview shown alongside the catalog.
type Structure struct {
	Title    string  `json:"title" yaml:"title"`
	Subtitle string  `json:"subtitle" yaml:"subtitle"`
	Stages   []Stage `json:"stages" yaml:"stages"`
	Notes    []Note  `json:"notes" yaml:"notes"`
}

type Stage struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	AgeGroup    string `json:"ageGroup" yaml:"ageGroup"`
	WeeklyHours string `json:"weeklyHours" yaml:"weeklyHours"`
	AnnualHours string `json:"annualHours" yaml:"annualHours"`
}

type Note struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
	Color       string `json:"color" yaml:"color"`
}

// Clone returns a deep copy of levels.
func Clone(levels []Level) []Level {
	if levels == nil {
		return nil
	}
	out := make([]Level, len(levels))
	for i, level := range levels {
		out[i] = Level{ID: level.ID, Name: level.Name, Books: cloneBooks(level.Books)}
	}
	return out
}

func cloneBooks(books []Book) []Book {
	out := make([]Book, len(books))
	for i, book := range books {
		out[i] = book
		out[i].Units = cloneUnits(book.Units)
	}
	return out
}

func cloneUnits(units []Unit) []Unit {
	out := make([]Unit, len(units))
	for i, unit := range units {
		out[i] = Unit{ID: unit.ID, Name: unit.Name, Lessons: append([]Lesson{}, unit.Lessons...)}
	}
	return out
}

// FindBook resolves a book by id across all levels. The first match wins.
func FindBook(levels []Level, bookID string) (Book, bool) {
	for _, level := range levels {
		for _, book := range level.Books {
			if book.ID == bookID {
				return book, true
			}
		}
	}
	return Book{}, false
}

// CountBooks returns the number of books across every level.
func CountBooks(levels []Level) int {
	total := 0
	for _, level := range levels {
		total += len(level.Books)
	}
	return total
}
