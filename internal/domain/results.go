package domain

// FlashcardBucket is the self-reported correctness of a flashcard response.
type FlashcardBucket string

const (
	FlashcardIncorrect FlashcardBucket = "INCORRECT"
	FlashcardPartial   FlashcardBucket = "PARTIAL"
	FlashcardCorrect   FlashcardBucket = "CORRECT"
)

// ElementResults is the running tally of responses for one instance.
// Which fields are populated depends on the instance type:
//
//	SC/MC/KPRIM: Choices (option index -> count) and Total
//	NUMERICAL/FREE_TEXT: Responses (participant id -> latest value) and Total
//	FLASHCARD: Incorrect/Partial/Correct buckets and Total
//	CONTENT: Viewed
//
// Version backs the compare-and-swap contract on concurrent updates.
type ElementResults struct {
	Version   int64             `json:"version"`
	Choices   map[int]int       `json:"choices,omitempty"`
	Responses map[string]string `json:"responses,omitempty"`
	Incorrect int               `json:"INCORRECT,omitempty"`
	Partial   int               `json:"PARTIAL,omitempty"`
	Correct   int               `json:"CORRECT,omitempty"`
	Viewed    int               `json:"viewed,omitempty"`
	Total     int               `json:"total"`
}

// Clone returns an independent copy of the aggregate.
func (r ElementResults) Clone() ElementResults {
	out := r
	if r.Choices != nil {
		out.Choices = make(map[int]int, len(r.Choices))
		for k, v := range r.Choices {
			out.Choices[k] = v
		}
	}
	if r.Responses != nil {
		out.Responses = make(map[string]string, len(r.Responses))
		for k, v := range r.Responses {
			out.Responses[k] = v
		}
	}
	return out
}
