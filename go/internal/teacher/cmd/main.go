package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/clients/classroom_client"
	"github.com/mcdev12/classroom/go/internal/answercache"
	"github.com/mcdev12/classroom/go/internal/api"
	"github.com/mcdev12/classroom/go/internal/models"
	"github.com/mcdev12/classroom/go/internal/poller"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `commands:
  ask [seconds] <prompt>   post a question (seconds 0 or omitted: untimed)
  status                   show the active session
  answers                  list cached questions and answers
  delete <question-id>     delete a question
  end                      end the active session
  quit`

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "warn"))
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	interval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "1s"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid POLL_INTERVAL")
	}

	client := classroom_client.NewClassroomClient(getEnv("CLASSROOM_API_URL", classroom_client.DefaultBaseURL), os.Getenv("CLASSROOM_TOKEN"))
	clock := clockwork.NewRealClock()

	store, err := answercache.NewStore(answercache.NewFilePersister(getEnv("CLASSROOM_CACHE", defaultCachePath())))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open question cache")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Two independent schedules: session status and answer refresh
	statusPoller := poller.New(client, clock, interval)
	statusPoller.OnUpdate(newBanner().update)
	statusTask := statusPoller.Start(ctx)
	defer statusTask.Stop()

	viewer := answercache.NewViewer(client, store, clock, interval)
	viewerTask := viewer.Start(ctx)
	defer viewerTask.Stop()

	fmt.Println(usage)
	lines := readLines(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleCommand(ctx, line, statusPoller, viewer, client); quit {
				return
			}
		}
	}
}

func handleCommand(ctx context.Context, line string, p *poller.Poller, viewer *answercache.Viewer, client *classroom_client.ClassroomClient) bool {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "":
	case "quit", "exit":
		return true
	case "ask":
		req, err := parseAsk(rest)
		if err != nil {
			fmt.Println(err)
			return false
		}
		id, err := viewer.Ask(ctx, req)
		if err != nil {
			fmt.Println("could not post question:", err)
			return false
		}
		fmt.Println("question posted:", id)
	case "status":
		printView(p.View())
	case "answers":
		printAnswers(viewer.Store().Questions())
	case "delete":
		id, err := uuid.Parse(rest)
		if err != nil {
			fmt.Println("usage: delete <question-id>")
			return false
		}
		if err := viewer.Delete(ctx, id); err != nil {
			fmt.Println("removed locally; server delete failed:", err)
			return false
		}
		fmt.Println("deleted", id)
	case "end":
		ended, err := client.EndQuestionSession(ctx)
		switch {
		case err != nil:
			fmt.Println("could not end session:", err)
		case ended:
			fmt.Println("session ended")
		default:
			fmt.Println("no active session")
		}
	default:
		fmt.Println(usage)
	}
	return false
}

// parseAsk reads "[seconds] <prompt>"
func parseAsk(args string) (api.CreateProblemRequest, error) {
	first, rest, _ := strings.Cut(args, " ")
	if seconds, err := strconv.Atoi(first); err == nil {
		if seconds < 0 {
			return api.CreateProblemRequest{}, fmt.Errorf("duration cannot be negative")
		}
		args = strings.TrimSpace(rest)
		if args == "" {
			return api.CreateProblemRequest{}, fmt.Errorf("usage: ask [seconds] <prompt>")
		}
		req := api.CreateProblemRequest{Prompt: args}
		if seconds > 0 {
			req.Duration = &seconds
		}
		return req, nil
	}
	if args == "" {
		return api.CreateProblemRequest{}, fmt.Errorf("usage: ask [seconds] <prompt>")
	}
	return api.CreateProblemRequest{Prompt: args}, nil
}

// banner prints the session line when it changes
type banner struct {
	last string
}

func newBanner() *banner {
	return &banner{}
}

func (b *banner) update(v poller.View) {
	line := "no active question"
	if v.Active {
		line = fmt.Sprintf("question %s active: %s responses", v.QuestionID, v.ResponseRatio())
		if cd := v.Countdown(); cd != "" {
			line += ", " + cd + " left"
		}
	}
	if line != b.last {
		b.last = line
		fmt.Println(">", line)
	}
}

func printView(v poller.View) {
	if !v.Active {
		fmt.Println("no active question")
		return
	}
	fmt.Printf("question %s\n  responses: %s\n  started:   %d\n", v.QuestionID, v.ResponseRatio(), v.StudentsStarted)
	if cd := v.Countdown(); cd != "" {
		fmt.Printf("  remaining: %s\n", cd)
	}
}

func printAnswers(questions []models.Question) {
	if len(questions) == 0 {
		fmt.Println("no questions yet")
		return
	}
	for _, q := range questions {
		fmt.Printf("%s  %q (%d answers)\n", q.ID, q.Prompt, q.AnswerCount)
		for _, a := range q.Answers {
			fmt.Printf("  - %s:\n", a.StudentID)
			for _, l := range strings.Split(a.Code, "\n") {
				fmt.Printf("      %s\n", l)
			}
		}
	}
}

func readLines(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "classroom-questions.json"
	}
	return filepath.Join(dir, "classroom", "questions.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
