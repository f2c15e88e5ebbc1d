package curriculum

import (
	"errors"
	"strings"
)

var (
	ErrLevelNotFound = errors.New("curriculum: level not found")
	ErrBookNotFound  = errors.New("curriculum: book not found")
	ErrBookName      = errors.New("curriculum: book name is required")
)

// BookDraft carries the admin input for a new book.
type BookDraft struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	ISBN        string `json:"isbn" validate:"max=32"`
	Hyperlink   string `json:"hyperlink" validate:"omitempty,url"`
	Kind        Kind   `json:"bookType" validate:"omitempty,oneof=student practice teacher"`
}

// BookPatch lists the book fields to change; nil fields are kept.
type BookPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	ISBN        *string `json:"isbn,omitempty" validate:"omitempty,max=32"`
	Hyperlink   *string `json:"hyperlink,omitempty" validate:"omitempty,url"`
	Kind        *Kind   `json:"bookType,omitempty" validate:"omitempty,oneof=student practice teacher"`
	Units       *[]Unit `json:"units,omitempty"`
}

// AddBook appends a new book to the level with levelID. Teacher guides get the
// " - Teacher Guide" name suffix and every new book starts with one unit and
// one placeholder lesson.
func AddBook(levels []Level, levelID string, draft BookDraft, newID func() string) ([]Level, Book, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, Book{}, ErrBookName
	}
	idx := levelIndex(levels, levelID)
	if idx < 0 {
		return nil, Book{}, ErrLevelNotFound
	}
	opts := ImportOptions{NewID: newID}
	kind := ParseKind(string(draft.Kind))
	if kind == KindTeacher && !strings.Contains(lower(name), "teacher") {
		name += teacherGuideSuffix
	}
	book := Book{
		ID:             levelID + "b" + opts.newID(),
		Name:           name,
		Description:    strings.TrimSpace(draft.Description),
		ISBN:           strings.TrimSpace(draft.ISBN),
		Hyperlink:      strings.TrimSpace(draft.Hyperlink),
		IsPracticeBook: kind == KindPractice,
		IsTeacherGuide: kind == KindTeacher,
		Units:          []Unit{defaultUnit(opts)},
	}
	out := Clone(levels)
	out[idx].Books = append(out[idx].Books, book)
	return out, book, nil
}

// UpdateBook applies patch to the first book with bookID.
func UpdateBook(levels []Level, bookID string, patch BookPatch) ([]Level, Book, error) {
	out := Clone(levels)
	for i := range out {
		for j := range out[i].Books {
			book := &out[i].Books[j]
			if book.ID != bookID {
				continue
			}
			if patch.Name != nil {
				name := strings.TrimSpace(*patch.Name)
				if name == "" {
					return nil, Book{}, ErrBookName
				}
				book.Name = name
			}
			if patch.Description != nil {
				book.Description = strings.TrimSpace(*patch.Description)
			}
			if patch.ISBN != nil {
				book.ISBN = strings.TrimSpace(*patch.ISBN)
			}
			if patch.Hyperlink != nil {
				book.Hyperlink = strings.TrimSpace(*patch.Hyperlink)
			}
			if patch.Kind != nil {
				kind := ParseKind(string(*patch.Kind))
				book.IsPracticeBook = kind == KindPractice
				book.IsTeacherGuide = kind == KindTeacher
			}
			if patch.Units != nil {
				book.Units = cloneUnits(*patch.Units)
			}
			return out, *book, nil
		}
	}
	return nil, Book{}, ErrBookNotFound
}

// DeleteBook removes the first book with bookID.
func DeleteBook(levels []Level, bookID string) ([]Level, error) {
	out := Clone(levels)
	for i := range out {
		for j, book := range out[i].Books {
			if book.ID == bookID {
				out[i].Books = append(out[i].Books[:j], out[i].Books[j+1:]...)
				return out, nil
			}
		}
	}
	return nil, ErrBookNotFound
}

// ClearBooks keeps every level and drops all of their books.
func ClearBooks(levels []Level) []Level {
	out := make([]Level, len(levels))
	for i, level := range levels {
		out[i] = Level{ID: level.ID, Name: level.Name, Books: []Book{}}
	}
	return out
}

func levelIndex(levels []Level, id string) int {
	for i, level := range levels {
		if level.ID == id {
			return i
		}
	}
	return -1
}
