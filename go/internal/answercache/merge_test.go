package answercache

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/classroom/go/internal/models"
)

func question(id uuid.UUID, prompt string, students ...string) models.Question {
	q := models.Question{ID: id, Prompt: prompt, Answers: []models.Answer{}, CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	for _, s := range students {
		q.Answers = append(q.Answers, models.Answer{StudentID: s, Code: "code by " + s})
	}
	q.AnswerCount = len(q.Answers)
	return q
}

func ids(qs []models.Question) []uuid.UUID {
	out := make([]uuid.UUID, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestMerge_KeepsLocalOnlyAndAppendsNew(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	local := []models.Question{question(a, "a"), question(b, "b")}
	remote := []models.Question{question(c, "c"), question(a, "a edited", "s1")}

	merged := Merge(local, remote)

	if want := []uuid.UUID{a, b, c}; !reflect.DeepEqual(ids(merged), want) {
		t.Fatalf("order = %v, want %v", ids(merged), want)
	}
	if merged[0].Prompt != "a edited" || merged[0].AnswerCount != 1 {
		t.Errorf("server fields must win: %+v", merged[0])
	}
	if merged[1].Prompt != "b" {
		t.Errorf("local-only question changed: %+v", merged[1])
	}
}

func TestMerge_UnionsAnswersByStudent(t *testing.T) {
	id := uuid.New()
	local := []models.Question{question(id, "p", "s1", "s2")}
	remote := []models.Question{question(id, "p", "s2", "s3")}

	merged := Merge(local, remote)
	got := []string{}
	for _, a := range merged[0].Answers {
		got = append(got, a.StudentID)
	}
	if want := []string{"s2", "s3", "s1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("answers = %v, want %v", got, want)
	}
	if merged[0].AnswerCount != 3 {
		t.Errorf("answer_count = %d, want 3", merged[0].AnswerCount)
	}
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	id := uuid.New()
	local := []models.Question{question(id, "p", "s1")}
	merged := Merge(local, nil)

	merged[0].Answers[0].Code = "changed"
	if local[0].Answers[0].Code == "changed" {
		t.Error("Merge result shares answers with its input")
	}
}

// randomQuestions builds questions drawn from a small ID pool so local and
// remote overlap.
func randomQuestions(r *rand.Rand, pool []uuid.UUID, students []string) []models.Question {
	n := r.Intn(len(pool) + 1)
	perm := r.Perm(len(pool))[:n]
	out := make([]models.Question, 0, n)
	for _, i := range perm {
		var picked []string
		for _, s := range students {
			if r.Intn(2) == 0 {
				picked = append(picked, s)
			}
		}
		out = append(out, question(pool[i], "prompt", picked...))
	}
	return out
}

func TestMerge_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	pool := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	students := []string{"a", "b", "c", "d"}

	for i := 0; i < 500; i++ {
		local := randomQuestions(r, pool, students)
		remote := randomQuestions(r, pool, students)
		merged := Merge(local, remote)

		present := map[uuid.UUID]models.Question{}
		for _, q := range merged {
			if _, dup := present[q.ID]; dup {
				t.Fatalf("duplicate id %s in merge", q.ID)
			}
			present[q.ID] = q
			if q.AnswerCount < len(q.Answers) {
				t.Fatalf("answer_count %d below %d answers", q.AnswerCount, len(q.Answers))
			}
		}

		// Nothing seen locally or remotely is lost, and no answer is lost.
		for _, src := range [][]models.Question{local, remote} {
			for _, q := range src {
				m, ok := present[q.ID]
				if !ok {
					t.Fatalf("question %s lost", q.ID)
				}
				have := map[string]bool{}
				for _, a := range m.Answers {
					have[a.StudentID] = true
				}
				for _, a := range q.Answers {
					if !have[a.StudentID] {
						t.Fatalf("answer by %s on %s lost", a.StudentID, q.ID)
					}
				}
			}
		}

		// Local order is a prefix of the result.
		for j, q := range local {
			if merged[j].ID != q.ID {
				t.Fatalf("local order not preserved at %d", j)
			}
		}

		if again := Merge(merged, remote); !reflect.DeepEqual(again, merged) {
			t.Fatalf("merge is not idempotent:\n%+v\n%+v", merged, again)
		}
	}
}
