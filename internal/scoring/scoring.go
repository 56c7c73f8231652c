// Package scoring computes exam outcomes from submitted answers.
//
// Answers are aligned with questions by index and compared with exact string
// equality. There is no partial credit. A topic is weak when the share of its
// questions answered correctly is strictly below WeakTopicThreshold.
package scoring

import (
	"math"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// WeakTopicThreshold is the correctness ratio below which a topic is reported as weak
const WeakTopicThreshold = 0.5

// TopicStat is the per-topic tally collected during scoring
type TopicStat struct {
	Topic   string  `json:"topic"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Ratio   float64 `json:"ratio"`
}

// Outcome is the result of scoring one submission
type Outcome struct {
	Score           int                     `json:"score"`
	TotalQuestions  int                     `json:"totalQuestions"`
	QuestionResults []models.QuestionResult `json:"questionResults"`
	WeakTopics      []models.WeakTopic      `json:"weakTopics"`
	Topics          []TopicStat             `json:"topics"`
	TotalTime       int                     `json:"totalTime"`
}

// Score grades answers against questions in order.
//
// answers[i] is compared with questions[i].CorrectAnswer. A missing answer is
// wrong and is recorded as "". Extra answers are ignored. timePerQuestion[i]
// is recorded on the matching question result (0 when absent) and TotalTime is
// the sum of every entry in timePerQuestion.
func Score(questions []models.Question, answers []string, timePerQuestion []int) Outcome {
	out := Outcome{
		TotalQuestions:  len(questions),
		QuestionResults: make([]models.QuestionResult, 0, len(questions)),
		WeakTopics:      []models.WeakTopic{},
	}

	order := make([]string, 0)
	tally := make(map[string]*TopicStat)

	for i, q := range questions {
		answer, answered := "", i < len(answers)
		if answered {
			answer = answers[i]
		}
		isCorrect := answered && answer == q.CorrectAnswer

		stat, ok := tally[q.Topic]
		if !ok {
			stat = &TopicStat{Topic: q.Topic}
			tally[q.Topic] = stat
			order = append(order, q.Topic)
		}
		stat.Total++

		if isCorrect {
			out.Score++
			stat.Correct++
		}

		spent := 0
		if i < len(timePerQuestion) {
			spent = timePerQuestion[i]
		}

		out.QuestionResults = append(out.QuestionResults, models.QuestionResult{
			QuestionID: q.ID,
			Position:   i,
			UserAnswer: answer,
			IsCorrect:  isCorrect,
			TimeTaken:  spent,
		})
	}

	for _, t := range timePerQuestion {
		out.TotalTime += t
	}

	out.Topics = make([]TopicStat, 0, len(order))
	for _, topic := range order {
		stat := tally[topic]
		stat.Ratio = float64(stat.Correct) / float64(stat.Total)
		out.Topics = append(out.Topics, *stat)

		if stat.Ratio < WeakTopicThreshold {
			out.WeakTopics = append(out.WeakTopics, models.WeakTopic{
				Topic: topic,
				Score: stat.Ratio,
			})
		}
	}

	return out
}

// Percentage returns score as a percentage of total rounded to two decimals
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(score) / float64(total) * 100)
}

// Marks scales a raw score onto the exam's mark scheme
func Marks(score, total, totalMarks int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(score) * float64(totalMarks) / float64(total))
}

// Grade maps a percentage to a letter grade
func Grade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B+"
	case percentage >= 60:
		return "B"
	case percentage >= 50:
		return "C"
	default:
		return "F"
	}
}

// Evaluation is an Outcome placed on the exam's mark scheme
type Evaluation struct {
	Outcome
	Percentage    float64 `json:"percentage"`
	MarksObtained float64 `json:"marksObtained"`
	Grade         string  `json:"grade"`
	Passed        bool    `json:"passed"`
}

// Evaluate scores a submission for exam and derives percentage, marks, grade and pass state
func Evaluate(exam *models.Exam, answers []string, timePerQuestion []int) Evaluation {
	outcome := Score(exam.Questions, answers, timePerQuestion)
	percentage := Percentage(outcome.Score, outcome.TotalQuestions)
	marks := Marks(outcome.Score, outcome.TotalQuestions, exam.TotalMarks)

	return Evaluation{
		Outcome:       outcome,
		Percentage:    percentage,
		MarksObtained: marks,
		Grade:         Grade(percentage),
		Passed:        outcome.TotalQuestions > 0 && marks >= float64(exam.PassingMarks),
	}
}

// Apply copies an evaluation onto a result record
func (e Evaluation) Apply(result *models.Result) {
	result.Score = e.Score
	result.TotalQuestions = e.TotalQuestions
	result.Percentage = e.Percentage
	result.MarksObtained = e.MarksObtained
	result.Grade = e.Grade
	result.Passed = e.Passed
	result.QuestionResults = e.QuestionResults
	result.WeakTopics = e.WeakTopics
	result.TimeTaken = e.TotalTime
}

// Round2 rounds to two decimal places, the precision used for percentages
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
