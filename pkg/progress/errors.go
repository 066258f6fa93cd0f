package progress

import "fmt"

// Reason classifies why a calculation request was rejected.
type Reason string

const (
	ReasonSelectionRequired Reason = "book/chapter required"
	ReasonDateRequired      Reason = "date required"
	ReasonDateInvalid       Reason = "date invalid"
	ReasonBookNotFound      Reason = "book not found"
	ReasonChapterOutOfRange Reason = "chapter out of range for book"
)

// ValidationError is returned for input the reader can correct.
// Message is ready to display as is.
type ValidationError struct {
	Reason     Reason
	Message    string
	MaxChapter int
}

func (e *ValidationError) Error() string {
	return e.Message
}

func selectionRequired() *ValidationError {
	return &ValidationError{
		Reason:  ReasonSelectionRequired,
		Message: "Veuillez sélectionner un livre et un chapitre.",
	}
}

func dateRequired() *ValidationError {
	return &ValidationError{
		Reason:  ReasonDateRequired,
		Message: "Veuillez sélectionner une date butoire.",
	}
}

func dateInvalid(raw string) *ValidationError {
	return &ValidationError{
		Reason:  ReasonDateInvalid,
		Message: fmt.Sprintf("Date butoire invalide : %q (format attendu AAAA-MM-JJ).", raw),
	}
}

func bookNotFound() *ValidationError {
	return &ValidationError{
		Reason:  ReasonBookNotFound,
		Message: "Livre non trouvé.",
	}
}

func chapterOutOfRange(max int) *ValidationError {
	return &ValidationError{
		Reason:     ReasonChapterOutOfRange,
		Message:    fmt.Sprintf("Le chapitre doit être entre 1 et %d pour ce livre.", max),
		MaxChapter: max,
	}
}
