package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/classroom/go/internal/dbconfig"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/mcdev12/classroom/go/internal/questions"
	"gopkg.in/yaml.v3"
)

// bankNamespace derives stable question IDs from prompts so re-running the
// seed does not duplicate questions.
var bankNamespace = uuid.MustParse("6f1c2a4e-8d3b-4f6a-9c7e-2b5d8a1e0f43")

// BankEntry mirrors one item of the YAML question bank
type BankEntry struct {
	ID               string `yaml:"id"`
	Prompt           string `yaml:"prompt"`
	Duration         int    `yaml:"duration"`
	ExpectedStudents int    `yaml:"expected_students"`
}

type seedQuestion struct {
	ID       uuid.UUID
	Prompt   string
	Settings models.QuestionSettings
}

func parseBank(data []byte) ([]seedQuestion, error) {
	var bank struct {
		Questions []BankEntry `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("unmarshal YAML: %w", err)
	}

	out := make([]seedQuestion, 0, len(bank.Questions))
	for i, e := range bank.Questions {
		prompt := strings.TrimSpace(e.Prompt)
		if prompt == "" {
			return nil, fmt.Errorf("question %d: prompt is required", i+1)
		}
		if e.Duration < 0 || e.ExpectedStudents < 0 {
			return nil, fmt.Errorf("question %d: duration and expected_students cannot be negative", i+1)
		}

		id := uuid.NewSHA1(bankNamespace, []byte(prompt))
		if e.ID != "" {
			parsed, err := uuid.Parse(e.ID)
			if err != nil {
				return nil, fmt.Errorf("question %d: invalid id: %w", i+1, err)
			}
			id = parsed
		}

		q := seedQuestion{ID: id, Prompt: prompt, Settings: models.QuestionSettings{ExpectedStudents: e.ExpectedStudents}}
		if e.Duration > 0 {
			d := e.Duration
			q.Settings.DurationSec = &d
		}
		out = append(out, q)
	}
	return out, nil
}

func main() {
	ctx := context.Background()

	// 1) Load the YAML question bank
	path := "go/internal/assets/questions.yaml"
	if v := os.Getenv("SEED_FILE"); v != "" {
		path = v
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read YAML: %v\n", err)
		os.Exit(1)
	}
	bank, err := parseBank(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse bank: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, questions.Schema()); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}

	// 3) Insert and count
	var (
		total    = len(bank)
		inserted int
		skipped  int
		errs     int
	)

	for _, q := range bank {
		settings, err := json.Marshal(q.Settings)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error encoding settings for %s: %v\n", q.ID, err)
			errs++
			continue
		}

		cmdTag, err := pool.Exec(ctx, `
            INSERT INTO questions (id, prompt, settings)
            VALUES ($1, $2, $3::jsonb)
            ON CONFLICT (id) DO NOTHING
        `,
			q.ID, q.Prompt, string(settings),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting question %s: %v\n", q.ID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Questions seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
