package http

import "live-session-service/internal/domain"

// sessionView is the wire projection of a session. Instances expose the
// public question data only; the grading key never leaves the service.
type sessionView struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	CourseID      string        `json:"courseId"`
	Status        string        `json:"status"`
	ActiveBlockID string        `json:"activeBlockId,omitempty"`
	Blocks        []blockView   `json:"blocks"`
	ActiveBlock   *blockView    `json:"activeBlock,omitempty"`
}

type blockView struct {
	ID        string         `json:"id"`
	Order     int            `json:"order"`
	Status    string         `json:"status"`
	TimeLimit int            `json:"timeLimit,omitempty"`
	Instances []instanceView `json:"instances"`
}

type instanceView struct {
	ID               string                    `json:"id"`
	Type             domain.ElementType        `json:"type"`
	PointsMultiplier int                       `json:"pointsMultiplier"`
	QuestionData     domain.PublicQuestionData `json:"questionData"`
	Results          domain.ElementResults     `json:"results"`
}

func viewSession(sess *domain.Session) sessionView {
	view := sessionView{
		ID:            sess.ID,
		Name:          sess.Name,
		CourseID:      sess.CourseID,
		Status:        string(sess.Status),
		ActiveBlockID: sess.ActiveBlockID,
		Blocks:        make([]blockView, 0, len(sess.Blocks)),
	}
	for _, b := range sess.Blocks {
		bv := viewBlock(b)
		view.Blocks = append(view.Blocks, bv)
		if b.ID == sess.ActiveBlockID {
			active := bv
			view.ActiveBlock = &active
		}
	}
	return view
}

func viewBlock(b *domain.SessionBlock) blockView {
	bv := blockView{
		ID:        b.ID,
		Order:     b.Order,
		Status:    string(b.Status),
		TimeLimit: b.TimeLimit,
		Instances: make([]instanceView, 0, len(b.Instances)),
	}
	for _, in := range b.Instances {
		bv.Instances = append(bv.Instances, instanceView{
			ID:               in.ID,
			Type:             in.Type,
			PointsMultiplier: in.PointsMultiplier,
			QuestionData:     in.Question.Public(in.Type),
			Results:          in.Results,
		})
	}
	return bv
}
