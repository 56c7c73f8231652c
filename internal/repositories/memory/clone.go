package memory

import (
	"slices"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

func cloneUser(u models.User) *models.User {
	if u.Email != nil {
		email := *u.Email
		u.Email = &email
	}
	if u.Class != nil {
		class := *u.Class
		u.Class = &class
	}
	return &u
}

func cloneExam(e models.Exam) models.Exam {
	e.Questions = slices.Clone(e.Questions)
	for i := range e.Questions {
		e.Questions[i].Options = slices.Clone(e.Questions[i].Options)
	}
	e.Teacher = nil
	return e
}

func cloneResult(r models.Result) models.Result {
	r.QuestionResults = slices.Clone(r.QuestionResults)
	r.WeakTopics = slices.Clone(r.WeakTopics)
	r.Exam = nil
	r.Student = nil
	return r
}

// stampOrNow keeps a caller supplied update time, as postgres writes it as given
func stampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
