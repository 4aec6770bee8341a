package domain

// PayloadKind tags the variant of a ResponsePayload.
type PayloadKind string

const (
	PayloadChoices   PayloadKind = "choices"
	PayloadNumerical PayloadKind = "numerical"
	PayloadText      PayloadKind = "text"
	PayloadRating    PayloadKind = "rating"
	PayloadView      PayloadKind = "view"
)

// ResponsePayload is the tagged union over the type-specific submission
// shapes. Exactly the fields belonging to Kind are meaningful; the
// aggregator and ingestor match on Kind exhaustively.
type ResponsePayload struct {
	Kind    PayloadKind     `json:"kind"`
	Choices []int           `json:"choices,omitempty"`
	Value   float64         `json:"value,omitempty"`
	Text    string          `json:"text,omitempty"`
	Rating  FlashcardBucket `json:"rating,omitempty"`
}

// KindForType maps an instance type to the payload variant it accepts.
func KindForType(t ElementType) PayloadKind {
	switch t {
	case TypeSC, TypeMC, TypeKPrim:
		return PayloadChoices
	case TypeNumerical:
		return PayloadNumerical
	case TypeFreeText:
		return PayloadText
	case TypeFlashcard:
		return PayloadRating
	default:
		return PayloadView
	}
}
