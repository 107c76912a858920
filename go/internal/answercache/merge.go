package answercache

import (
	"github.com/google/uuid"
	"github.com/mcdev12/classroom/go/internal/models"
)

// Merge folds the server's questions into the local cache. The result keeps
// every local question in its original order, with fields refreshed from the
// server where the server knows the question, followed by questions only the
// server has. Answers are unioned by student. Merge never drops a question and
// Merge(Merge(l, r), r) equals Merge(l, r).
func Merge(local, remote []models.Question) []models.Question {
	byID := make(map[uuid.UUID]int, len(remote))
	for i, q := range remote {
		byID[q.ID] = i
	}

	merged := make([]models.Question, 0, len(local)+len(remote))
	seen := make(map[uuid.UUID]bool, len(local))
	for _, l := range local {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true

		if i, ok := byID[l.ID]; ok {
			merged = append(merged, mergeQuestion(l, remote[i]))
		} else {
			merged = append(merged, copyQuestion(l))
		}
	}
	for _, r := range remote {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		merged = append(merged, copyQuestion(r))
	}
	return merged
}

func mergeQuestion(local, remote models.Question) models.Question {
	out := copyQuestion(remote)

	have := make(map[string]bool, len(out.Answers))
	for _, a := range out.Answers {
		have[a.StudentID] = true
	}
	for _, a := range local.Answers {
		if !have[a.StudentID] {
			have[a.StudentID] = true
			out.Answers = append(out.Answers, a)
		}
	}

	if out.AnswerCount < len(out.Answers) {
		out.AnswerCount = len(out.Answers)
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = local.CreatedAt
	}
	return out
}

func copyQuestion(q models.Question) models.Question {
	out := q
	out.Answers = append([]models.Answer{}, q.Answers...)
	if q.Duration != nil {
		d := *q.Duration
		out.Duration = &d
	}
	if out.AnswerCount < len(out.Answers) {
		out.AnswerCount = len(out.Answers)
	}
	return out
}
