package domain

import "time"

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	SessionPrepared  SessionStatus = "PREPARED"
	SessionRunning   SessionStatus = "RUNNING"
	SessionCompleted SessionStatus = "COMPLETED"
)

// BlockStatus only ever advances SCHEDULED -> ACTIVE -> EXECUTED.
type BlockStatus string

const (
	BlockScheduled BlockStatus = "SCHEDULED"
	BlockActive    BlockStatus = "ACTIVE"
	BlockExecuted  BlockStatus = "EXECUTED"
)

// ElementType enumerates the supported question instance types.
type ElementType string

const (
	TypeSC        ElementType = "SC"
	TypeMC        ElementType = "MC"
	TypeKPrim     ElementType = "KPRIM"
	TypeNumerical ElementType = "NUMERICAL"
	TypeFreeText  ElementType = "FREE_TEXT"
	TypeFlashcard ElementType = "FLASHCARD"
	TypeContent   ElementType = "CONTENT"
)

// KPrimChoices is the fixed number of statements in a KPRIM question.
const KPrimChoices = 4

// Session is a presenter-run series of blocks within a course.
type Session struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	CourseID      string          `json:"courseId"`
	OwnerID       string          `json:"ownerId"`
	Status        SessionStatus   `json:"status"`
	ActiveBlockID string          `json:"activeBlockId,omitempty"`
	Blocks        []*SessionBlock `json:"blocks"`
	CreatedAt     time.Time       `json:"createdAt"`
	StartedAt     time.Time       `json:"startedAt,omitempty"`
	FinishedAt    time.Time       `json:"finishedAt,omitempty"`
}

// SessionBlock groups question instances and is the unit of activation.
// Order values define the presentation sequence within the session.
type SessionBlock struct {
	ID        string              `json:"id"`
	Order     int                 `json:"order"`
	Status    BlockStatus         `json:"status"`
	TimeLimit int                 `json:"timeLimit,omitempty"` // seconds, 0 = unlimited
	Instances []*QuestionInstance `json:"instances"`
}

// QuestionInstance is a frozen per-session copy of a question together
// with its running results aggregate. Instances are owned by exactly one
// block and never shared across sessions.
type QuestionInstance struct {
	ID               string         `json:"id"`
	BlockID          string         `json:"blockId"`
	Type             ElementType    `json:"type"`
	Question         QuestionData   `json:"questionData"`
	PointsMultiplier int            `json:"pointsMultiplier"`
	Results          ElementResults `json:"results"`
}

// QuestionData is the immutable content snapshot taken at block creation
// time, including the grading key. Use Public for participant-facing views.
type QuestionData struct {
	Name           string        `json:"name"`
	Content        string        `json:"content"`
	Explanation    string        `json:"explanation,omitempty"`
	Choices        []string      `json:"choices,omitempty"`
	SolutionIxs    []int         `json:"solutionIxs,omitempty"`
	SolutionRanges []NumberRange `json:"solutionRanges,omitempty"`
	Solutions      []string      `json:"solutions,omitempty"`
	Restrictions   *Restrictions `json:"restrictions,omitempty"`
}

// NumberRange is an accepted solution interval for NUMERICAL questions.
// A nil bound is open-ended.
type NumberRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Restrictions constrain participant input for NUMERICAL and FREE_TEXT.
type Restrictions struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
}

// PublicQuestionData is the rendering view of a question instance.
// It never carries the solution or grading key.
type PublicQuestionData struct {
	Name         string        `json:"name"`
	Content      string        `json:"content"`
	Type         ElementType   `json:"type"`
	Choices      []string      `json:"choices,omitempty"`
	Restrictions *Restrictions `json:"restrictions,omitempty"`
}

// Public strips everything a participant must not see.
func (q QuestionData) Public(t ElementType) PublicQuestionData {
	return PublicQuestionData{
		Name:         q.Name,
		Content:      q.Content,
		Type:         t,
		Choices:      append([]string(nil), q.Choices...),
		Restrictions: q.Restrictions,
	}
}

// Response is the single live submission of one participant to one
// instance. A resubmission replaces it, it never duplicates.
type Response struct {
	ID            string          `json:"id"`
	ParticipantID string          `json:"participantId"`
	SessionID     string          `json:"sessionId"`
	InstanceID    string          `json:"instanceId"`
	Payload       ResponsePayload `json:"payload"`
	SubmittedAt   time.Time       `json:"submittedAt"`
}

// Participation links a participant to a course and accumulates XP.
type Participation struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participantId"`
	CourseID      string    `json:"courseId"`
	DisplayName   string    `json:"displayName"`
	Avatar        string    `json:"avatar,omitempty"`
	Score         int       `json:"score"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// LeaderboardEntry is a derived, read-time projection; it carries no
// independent lifecycle.
type LeaderboardEntry struct {
	ParticipantID  string `json:"participantId"`
	DisplayName    string `json:"displayName"`
	Avatar         string `json:"avatar,omitempty"`
	Score          int    `json:"score"`
	Rank           int    `json:"rank"`
	Level          int    `json:"level"`
	LastBlockOrder int    `json:"lastBlockOrder"`
}

// Leaderboard is the ranked scoreboard of a session at a point in time.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AwardEntry is an immutable achievement record created when a session ends.
type AwardEntry struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	ParticipantID string    `json:"participantId"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Order         int       `json:"order"`
	CreatedAt     time.Time `json:"createdAt"`
}

// InvalidatedEntity identifies a cached projection that a mutation made
// stale. Omissions are correctness bugs; over-inclusion only costs cache
// efficiency.
type InvalidatedEntity struct {
	ID       string `json:"id"`
	Typename string `json:"typename"`
}

// Typenames used in invalidation sets.
const (
	TypenameSession          = "Session"
	TypenameSessionBlock     = "SessionBlock"
	TypenameQuestionInstance = "QuestionInstance"
	TypenameParticipation    = "Participation"
)

// Role identifies the kind of authenticated caller.
type Role string

const (
	RoleOwner       Role = "OWNER"
	RoleParticipant Role = "PARTICIPANT"
)

// Principal is the typed identity resolved from an opaque credential.
type Principal struct {
	ID   string
	Role Role
}

// Block returns the block with the given id, or nil.
func (s *Session) Block(blockID string) *SessionBlock {
	for _, b := range s.Blocks {
		if b.ID == blockID {
			return b
		}
	}
	return nil
}

// Instance locates an instance and its owning block within the session.
func (s *Session) Instance(instanceID string) (*QuestionInstance, *SessionBlock) {
	for _, b := range s.Blocks {
		for _, in := range b.Instances {
			if in.ID == instanceID {
				return in, b
			}
		}
	}
	return nil, nil
}

// Clone returns a deep copy so callers can read a snapshot without
// holding store locks.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Blocks = make([]*SessionBlock, len(s.Blocks))
	for i, b := range s.Blocks {
		nb := *b
		nb.Instances = make([]*QuestionInstance, len(b.Instances))
		for j, in := range b.Instances {
			ni := *in
			ni.Results = in.Results.Clone()
			nb.Instances[j] = &ni
		}
		out.Blocks[i] = &nb
	}
	return &out
}
