package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/classroom/go/clients/classroom_client"
	"github.com/mcdev12/classroom/go/internal/quiz"
	"github.com/mcdev12/classroom/go/internal/schedule"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `commands:
  start     start the pending timed question
  cancel    decline the pending question
  code      enter your answer; finish with a line containing only "."
  show      show the current question
  run       run your staged answer on the server and show its output
  submit    submit your answer
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

	email := os.Getenv("STUDENT_EMAIL")
	if email == "" {
		log.Fatal().Msg("STUDENT_EMAIL environment variable is required")
	}
	interval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "1s"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid POLL_INTERVAL")
	}

	client := classroom_client.NewClassroomClient(getEnv("CLASSROOM_API_URL", classroom_client.DefaultBaseURL), os.Getenv("CLASSROOM_TOKEN"))
	clock := clockwork.NewRealClock()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	flow := quiz.NewFlow(client, clock, email)
	defer flow.Close()
	flow.OnChange(newPrinter().update)

	refresh := func(ctx context.Context) { _ = flow.Refresh(ctx) }
	task := schedule.Every(ctx, clock, interval, refresh, schedule.Immediately())
	defer task.Stop()

	fmt.Println(usage)
	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch strings.TrimSpace(line) {
			case "":
			case "quit", "exit":
				return
			case "start":
				report(flow.Start(ctx))
			case "cancel":
				flow.Cancel()
			case "show":
				printSnapshot(flow.Snapshot())
			case "code":
				code, ok := readCode(ctx, lines)
				if !ok {
					return
				}
				flow.SetCode(code)
				fmt.Println("answer staged")
			case "run":
				runCode(ctx, client, flow.Snapshot().Code)
			case "submit":
				report(flow.Submit(ctx))
			default:
				fmt.Println(usage)
			}
		}
	}
}

// readCode collects lines until a line holding only "."
func readCode(ctx context.Context, lines <-chan string) (string, bool) {
	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", false
		case line, ok := <-lines:
			if !ok {
				return b.String(), false
			}
			if line == "." {
				return strings.TrimSuffix(b.String(), "\n"), true
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
}

// runCode sends the staged answer to submitCode and prints the output
func runCode(ctx context.Context, client *classroom_client.ClassroomClient, code string) {
	if strings.TrimSpace(code) == "" {
		fmt.Println("nothing to run - stage an answer with \"code\" first")
		return
	}
	res, err := client.SubmitCode(ctx, code)
	if err != nil {
		fmt.Println("could not run code:", err)
		return
	}
	if res.Out != "" {
		fmt.Print("--- output ---\n", res.Out)
	} else {
		fmt.Println("(no output)")
	}
	if res.Err != "" {
		fmt.Print("--- errors ---\n", res.Err)
	}
	switch {
	case res.TimedOut:
		fmt.Println("! stopped: time limit reached")
	case res.ExitCode != 0:
		fmt.Printf("! exit code %d\n", res.ExitCode)
	}
	if res.Truncated {
		fmt.Println("! output truncated")
	}
}

func report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, quiz.ErrNothingPending):
		fmt.Println("nothing to start")
	case errors.Is(err, quiz.ErrNotActive):
		fmt.Println("no question to answer")
	case errors.Is(err, quiz.ErrSubmitInFlight):
		fmt.Println("already submitting")
	default:
		fmt.Println("error:", err)
	}
}

// printer prints state transitions and the one-minute warning, but not
// every countdown tick
type printer struct {
	mu     sync.Mutex
	state  quiz.State
	id     string
	warned bool
}

func newPrinter() *printer {
	return &printer{}
}

func (p *printer) update(s quiz.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := ""
	if s.QuestionID != nil {
		id = s.QuestionID.String()
	}
	if s.State != p.state || id != p.id {
		p.state, p.id, p.warned = s.State, id, false
		printSnapshot(s)
	}
	if s.Warning && !p.warned {
		p.warned = true
		fmt.Println("! one minute remaining")
	}
}

func printSnapshot(s quiz.Snapshot) {
	switch s.State {
	case quiz.Idle:
		fmt.Println("> waiting for a question")
	case quiz.Pending:
		fmt.Printf("> timed question (%ds) ready - type \"start\" to begin\n", *s.Duration)
	case quiz.Active:
		fmt.Printf("> question: %s\n", s.Prompt)
		if s.Remaining != nil {
			fmt.Printf("  %d:%02d remaining\n", *s.Remaining/60, *s.Remaining%60)
		}
	case quiz.Submitted:
		fmt.Println("> answer submitted")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
